package lookup

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"
)

// NewHandler exposes the service over HTTP. GET / and GET /pick take the
// category in the type query parameter and answer with a plain-text agent.
func NewHandler(svc *Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", svc.handlePick)
	mux.HandleFunc("/pick", svc.handlePick)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Service) handlePick(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/pick" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed.", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")

	ua, err := s.Fetch(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		status := StatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Printf("lookup %s: %v", r.URL.RawQuery, err)
		}
		w.WriteHeader(status)
		w.Write([]byte(PublicMessage(err) + "\n"))
		return
	}
	w.Write([]byte(ua + "\n"))
}

// Serve listens on addr and serves h until ctx is cancelled. maxConns caps
// simultaneously accepted connections; zero or less means unlimited.
func Serve(ctx context.Context, addr string, maxConns int, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ServeListener(ctx, ln, maxConns, h)
}

// ServeListener is Serve on an existing listener
func ServeListener(ctx context.Context, ln net.Listener, maxConns int, h http.Handler) error {
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}
