package pipeline

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cognicore/uapick/pkg/uapick/aggregate"
	"github.com/cognicore/uapick/pkg/uapick/internalerr"
	"github.com/cognicore/uapick/pkg/uapick/sample"
)

// ReportPath returns the frequency report path for category: middle.csv for
// the combined table, middle-<category>.csv otherwise.
func ReportPath(dir, category string) string {
	if category == "" || category == sample.CategoryAll {
		return filepath.Join(dir, "middle.csv")
	}
	return filepath.Join(dir, "middle-"+category+".csv")
}

// WriteReport writes counts as a user_agent,count CSV sorted by count
// descending, then agent ascending.
func WriteReport(path string, counts aggregate.FrequencyTable) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: unable to open %s for writing: %v", internalerr.ErrWriteFailure, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %s: %v", internalerr.ErrWriteFailure, path, cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	w := csv.NewWriter(bw)
	if err := w.Write([]string{"user_agent", "count"}); err != nil {
		return fmt.Errorf("%w: %s: %v", internalerr.ErrWriteFailure, path, err)
	}
	for _, e := range counts.Sorted() {
		if err := w.Write([]string{e.Agent, strconv.FormatInt(e.Count, 10)}); err != nil {
			return fmt.Errorf("%w: %s: %v", internalerr.ErrWriteFailure, path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: %s: %v", internalerr.ErrWriteFailure, path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %s: %v", internalerr.ErrWriteFailure, path, err)
	}
	return nil
}
