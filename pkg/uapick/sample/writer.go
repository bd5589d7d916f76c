package sample

import (
	"bufio"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/uapick/pkg/uapick/internalerr"
)

// WriteResult describes a written sample pair
type WriteResult struct {
	Lines   int
	Bytes   int64
	Offsets OffsetIndex
}

// Writer persists allocations as a data file plus offset index.
//
// Both files are first written to temporary siblings and then renamed into
// place, data before index. A failed run leaves the previous pair untouched.
type Writer struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewWriter creates a sample writer
func NewWriter() *Writer {
	return &Writer{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Write expands the allocation into pair.DataPath, one line per occurrence
// with each agent's copies kept consecutive, and stores the offset of every
// line in pair.IndexPath.
//
// An empty allocation leaves an empty data file and removes the index so a
// stale index never outlives its sample.
func (w *Writer) Write(ctx context.Context, alloc Allocation, pair FilePair) (WriteResult, error) {
	for _, s := range alloc {
		if strings.ContainsAny(s.Agent, "\r\n") {
			return WriteResult{}, fmt.Errorf("%w: %s: agent contains a line break", internalerr.ErrWriteFailure, pair.DataPath)
		}
	}

	suffix := w.tempSuffix()
	dataTmp := pair.DataPath + suffix
	indexTmp := pair.IndexPath + suffix

	res, err := writeData(ctx, dataTmp, alloc)
	if err != nil {
		os.Remove(dataTmp)
		return WriteResult{}, fmt.Errorf("%w: %s: %v", internalerr.ErrWriteFailure, pair.DataPath, err)
	}

	if res.Lines == 0 {
		if err := os.Rename(dataTmp, pair.DataPath); err != nil {
			os.Remove(dataTmp)
			return WriteResult{}, fmt.Errorf("%w: %s: %v", internalerr.ErrWriteFailure, pair.DataPath, err)
		}
		if err := removeIfExists(pair.IndexPath); err != nil {
			return res, fmt.Errorf("%w: remove stale index %s: %v", internalerr.ErrWriteFailure, pair.IndexPath, err)
		}
		return res, nil
	}

	if err := writeIndex(indexTmp, res.Offsets); err != nil {
		os.Remove(dataTmp)
		os.Remove(indexTmp)
		return WriteResult{}, fmt.Errorf("%w: %s: %v", internalerr.ErrWriteFailure, pair.IndexPath, err)
	}

	if err := os.Rename(dataTmp, pair.DataPath); err != nil {
		os.Remove(dataTmp)
		os.Remove(indexTmp)
		return WriteResult{}, fmt.Errorf("%w: %s: %v", internalerr.ErrWriteFailure, pair.DataPath, err)
	}
	if err := os.Rename(indexTmp, pair.IndexPath); err != nil {
		os.Remove(indexTmp)
		// New data with the old index would hand out wrong lines.
		removeIfExists(pair.IndexPath)
		return WriteResult{}, fmt.Errorf("%w: %s: %v", internalerr.ErrWriteFailure, pair.IndexPath, err)
	}

	return res, nil
}

func (w *Writer) tempSuffix() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ".tmp-" + ulid.MustNew(ulid.Now(), w.entropy).String()
}

func writeData(ctx context.Context, path string, alloc Allocation) (res WriteResult, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return WriteResult{}, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	offsets := make(OffsetIndex, 0, alloc.Total())
	var current int64

	for _, s := range alloc {
		if err := ctx.Err(); err != nil {
			return WriteResult{}, err
		}
		line := s.Agent + "\n"
		for i := 0; i < s.Occurrences; i++ {
			offsets = append(offsets, current)
			n, err := bw.WriteString(line)
			if err != nil {
				return WriteResult{}, err
			}
			current += int64(n)
		}
	}

	if err := bw.Flush(); err != nil {
		return WriteResult{}, err
	}
	if err := f.Sync(); err != nil {
		return WriteResult{}, err
	}

	return WriteResult{Lines: len(offsets), Bytes: current, Offsets: offsets}, nil
}

func writeIndex(path string, offsets OffsetIndex) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	if err := EncodeIndex(bw, offsets); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
