package botdetect

import "strings"

// DefaultMarkers are lowercase substrings that identify automated clients:
// crawlers, HTTP libraries, monitors and link previewers.
var DefaultMarkers = []string{
	" bot",
	"bot/",
	"bot;",
	"crawler",
	"crawl",
	"spider",
	"spider-",
	"spider/",
	"curl/",
	"wget/",
	"httpclient",
	"python-requests",
	"libwww-perl",
	"java/",
	"feedfetcher",
	"mediapartners",
	"adsbot",
	"headless",
	"phantomjs",
	"electron",
	"uptimerobot",
	"pingdom",
	"monitor",
	"axios/",
	"node-fetch",
	"guzzlehttp",
	"postmanruntime",
	"insomnia/",
	"okhttp",
	"urlpreview",
	"previewbot",
	"owler",
	"ias-",
	"slurp",
	"discordbot",
	"slackbot",
	"twitterbot",
	"facebookbot",
	"facebookexternalhit",
	"skypeuripreview",
	"vkshare",
	"linkedinbot",
	"whatsapp",
	"telegrambot",
	"petalbot",
	"bytespider",
	"cloudflare-healthcheck",
	"yandexbot",
	"bingbot",
	"bingpreview",
	"duckduckbot",
	"baiduspider",
	"applebot",
	"semrush",
	"ahrefs",
	"mj12bot",
	"dotbot",
	"dataminr",
	"nimbusscreencapture",
	"validator",
	"reindeer",
}

// Detector flags user agents that belong to automated clients
type Detector struct {
	markers []string
}

// New creates a detector. A nil marker list selects DefaultMarkers; an empty
// non-nil list disables detection.
func New(markers []string) *Detector {
	if markers == nil {
		markers = DefaultMarkers
	}
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		if m == "" {
			continue
		}
		lowered = append(lowered, strings.ToLower(m))
	}
	return &Detector{markers: lowered}
}

// IsBot checks if the user agent contains any known marker
func (d *Detector) IsBot(userAgent string) bool {
	normalized := strings.ToLower(userAgent)
	for _, marker := range d.markers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}

// Markers returns a copy of the active marker list
func (d *Detector) Markers() []string {
	out := make([]string, len(d.markers))
	copy(out, d.markers)
	return out
}
