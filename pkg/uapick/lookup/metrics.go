package lookup

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uapick",
		Subsystem: "lookup",
		Name:      "requests_total",
		Help:      "Lookups by category and resulting status code",
	}, []string{"category", "status"})

	lookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "uapick",
		Subsystem: "lookup",
		Name:      "duration_seconds",
		Help:      "Time to serve one lookup, including index load",
		Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.25},
	})

	indexCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uapick",
		Subsystem: "lookup",
		Name:      "index_cache_total",
		Help:      "Offset index cache lookups by result (hit, miss, stale)",
	}, []string{"result"})
)

func observe(category string, status int, d time.Duration) {
	lookupRequests.WithLabelValues(category, strconv.Itoa(status)).Inc()
	lookupDuration.Observe(d.Seconds())
}

func cacheResult(result string) {
	indexCacheResults.WithLabelValues(result).Inc()
}
