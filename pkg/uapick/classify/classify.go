package classify

import "strings"

// Category labels
const (
	Mobile  = "mobile"
	Desktop = "desktop"
)

// Categories lists every label Classify can return, in report order.
var Categories = []string{Mobile, Desktop}

// DefaultMobileKeywords are lowercase substrings that mark a mobile device
var DefaultMobileKeywords = []string{
	"android",
	"iphone",
	"ipad",
	"ipod",
	"windows phone",
	"mobile",
	"mobi",
	"blackberry",
	"opera mini",
	"opera mobi",
	"kindle",
	"silk/",
	"fennec",
	"iemobile",
	"puffin",
	"samsung",
	"huawei",
	"honor",
	"xiaomi",
	"redmi",
	"oneplus",
	"nokia",
}

// Classifier splits user agents into mobile and desktop
type Classifier struct {
	keywords []string
}

// New creates a classifier. A nil keyword list selects DefaultMobileKeywords.
func New(keywords []string) *Classifier {
	if keywords == nil {
		keywords = DefaultMobileKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k == "" {
			continue
		}
		lowered = append(lowered, strings.ToLower(k))
	}
	return &Classifier{keywords: lowered}
}

// Classify returns Mobile when any mobile keyword matches, Desktop otherwise
func (c *Classifier) Classify(userAgent string) string {
	normalized := strings.ToLower(userAgent)
	for _, kw := range c.keywords {
		if strings.Contains(normalized, kw) {
			return Mobile
		}
	}
	return Desktop
}

// Known reports whether label is one of Categories
func Known(label string) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}
