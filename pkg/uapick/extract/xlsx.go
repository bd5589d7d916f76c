package extract

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cognicore/uapick/pkg/uapick/internalerr"
)

const (
	// detectRows is how many worksheet rows are scored to find the
	// user-agent column
	detectRows    = 400
	defaultColumn = "G"
)

// XLSX extracts user agents from the first worksheet of an Excel workbook.
// Rows are streamed with excelize's row iterator. The user-agent column is
// the one with the most UA-looking cells in the first rows; every non-empty
// cell of that column is yielded.
type XLSX struct{}

// Extract implements Extractor.
func (XLSX) Extract(ctx context.Context, file string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		wb, err := excelize.OpenFile(file)
		if err != nil {
			yield("", fmt.Errorf("%w: cannot read %s: %v", internalerr.ErrExtraction, file, err))
			return
		}
		defer wb.Close()

		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			yield("", fmt.Errorf("%w: %s has no worksheets", internalerr.ErrExtraction, file))
			return
		}
		sheet := sheets[0]

		name, err := detectColumn(ctx, wb, sheet)
		if err != nil {
			yield("", wrapSheetErr(file, sheet, err))
			return
		}
		col, err := excelize.ColumnNameToNumber(name)
		if err != nil {
			yield("", fmt.Errorf("%w: %s: column %s: %v", internalerr.ErrExtraction, file, name, err))
			return
		}
		col--

		stopped := false
		err = scanRows(ctx, wb, sheet, func(cells []string) bool {
			if col >= len(cells) {
				return true
			}
			value := strings.TrimSpace(cells[col])
			if value == "" {
				return true
			}
			if !yield(value, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield("", wrapSheetErr(file, sheet, err))
		}
	}
}

func wrapSheetErr(file, sheet string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: cannot read worksheet %q in %s: %v", internalerr.ErrExtraction, sheet, file, err)
}

// detectColumn scores the first detectRows rows and returns the winning
// column name. The column with the most UA-looking cells wins, ties going to
// the column that scored first. With no hits it falls back to the last
// column of the last non-empty row, then to G.
func detectColumn(ctx context.Context, wb *excelize.File, sheet string) (string, error) {
	scores := make(map[int]int)
	var order []int
	fallback := -1
	rows := 0

	err := scanRows(ctx, wb, sheet, func(cells []string) bool {
		last := -1
		for i, v := range cells {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			last = i
			if !LooksLikeUserAgent(v) {
				continue
			}
			if _, seen := scores[i]; !seen {
				order = append(order, i)
			}
			scores[i]++
		}
		if last >= 0 {
			fallback = last
		}
		rows++
		return rows < detectRows
	})
	if err != nil {
		return "", err
	}

	best, bestScore := -1, 0
	for _, i := range order {
		if scores[i] > bestScore {
			best, bestScore = i, scores[i]
		}
	}
	switch {
	case best >= 0:
		return excelize.ColumnNumberToName(best + 1)
	case fallback >= 0:
		return excelize.ColumnNumberToName(fallback + 1)
	default:
		return defaultColumn, nil
	}
}

// scanRows streams the rows of sheet to fn until fn returns false. Missing
// rows come through as empty slices.
func scanRows(ctx context.Context, wb *excelize.File, sheet string, fn func([]string) bool) error {
	rows, err := wb.Rows(sheet)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		cells, err := rows.Columns()
		if err != nil {
			return err
		}
		if !fn(cells) {
			return nil
		}
	}
	return rows.Error()
}
