// Package extract streams raw user-agent strings out of request log exports.
package extract

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cognicore/uapick/pkg/uapick/internalerr"
)

// Extractor yields the user-agent cells of one input file. Iteration stops
// after the first non-nil error.
type Extractor interface {
	Extract(ctx context.Context, path string) iter.Seq2[string, error]
}

var uaKeywords = []string{
	"mozilla/",
	"chrome/",
	"safari/",
	"opera/",
	"edge/",
	"android",
	"iphone",
	"bot",
	"spider",
	"crawler",
	"curl/",
	"wget/",
	"httpclient",
	"mediapartners",
	"postmanruntime",
	"cfnetwork",
}

// LooksLikeUserAgent reports whether value resembles a User-Agent header:
// at least 12 bytes long and either carrying a well-known client keyword or
// a parenthesised comment.
func LooksLikeUserAgent(value string) bool {
	value = strings.TrimSpace(value)
	if len(value) < 12 {
		return false
	}

	lower := strings.ToLower(value)
	for _, kw := range uaKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	return strings.Contains(value, "(") && strings.Contains(value, ")") && strings.Contains(value, " ")
}

// Registry picks an extractor by file extension
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a registry with the CSV and XLSX extractors
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register("csv", CSV{})
	r.Register("xlsx", XLSX{})
	return r
}

// Register binds ext (case-insensitive, leading dot optional) to e
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[normalizeExt(ext)] = e
}

// For returns the extractor for path's extension
func (r *Registry) For(path string) (Extractor, error) {
	ext := normalizeExt(filepath.Ext(path))
	if e, ok := r.byExt[ext]; ok {
		return e, nil
	}
	if ext == "" {
		return nil, fmt.Errorf("%w: %s has no extension", internalerr.ErrUnsupportedFormat, filepath.Base(path))
	}
	return nil, fmt.Errorf("%w: .%s", internalerr.ErrUnsupportedFormat, ext)
}

// Extensions lists the registered extensions
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
