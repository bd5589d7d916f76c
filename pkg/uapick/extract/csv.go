package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/cognicore/uapick/pkg/uapick/internalerr"
)

const utf8BOM = "\xEF\xBB\xBF"

var headerNames = []string{"user_agent", "useragent", "ua", "user-agent"}

// CSV extracts user agents from comma-separated exports. The first row is a
// header; the user-agent column is picked by name, or by scoring header
// labels when no name matches. Only values that look like user agents are
// yielded.
type CSV struct{}

// Extract implements Extractor.
func (CSV) Extract(ctx context.Context, path string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield("", fmt.Errorf("%w: cannot read %s: %v", internalerr.ErrExtraction, path, err))
			return
		}
		defer f.Close()

		r := csv.NewReader(f)
		r.LazyQuotes = true
		r.FieldsPerRecord = -1
		r.ReuseRecord = true

		header, err := readRow(r)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield("", fmt.Errorf("%w: %s: %v", internalerr.ErrExtraction, path, err))
			return
		}

		col := headerColumn(header)
		if col < 0 {
			col = fallbackColumn(header)
		}
		if col < 0 {
			return
		}

		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}

			row, err := readRow(r)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("%w: %s: %v", internalerr.ErrExtraction, path, err))
				return
			}
			if col >= len(row) {
				continue
			}

			value := strings.TrimSpace(row[col])
			if value == "" || !LooksLikeUserAgent(value) {
				continue
			}
			if !yield(value, nil) {
				return
			}
		}
	}
}

func readRow(r *csv.Reader) ([]string, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	if len(row) > 0 {
		row[0] = strings.TrimPrefix(row[0], utf8BOM)
	}
	return row, nil
}

// headerColumn returns the first column named like a user-agent field, or -1
func headerColumn(header []string) int {
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		for _, target := range headerNames {
			if name == target {
				return i
			}
		}
	}
	return -1
}

// fallbackColumn scores header labels: "agent" is worth 2, "ua" 1. The
// earliest best-scoring column wins; a header with no hints at all still
// picks its first column, since every column ties at zero.
func fallbackColumn(header []string) int {
	best, bestScore := len(header)-1, -1
	for i, name := range header {
		lower := strings.ToLower(strings.TrimSpace(name))
		score := 0
		if strings.Contains(lower, "agent") {
			score += 2
		}
		if strings.Contains(lower, "ua") {
			score++
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}
