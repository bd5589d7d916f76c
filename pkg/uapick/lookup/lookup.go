// Package lookup serves one random line of a generated sample per call,
// seeking straight to it through the offset index.
package lookup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cognicore/uapick/pkg/uapick/internalerr"
	"github.com/cognicore/uapick/pkg/uapick/sample"
)

// Catalog maps a lowercase category selector to its sample pair
type Catalog map[string]sample.FilePair

// NewCatalog builds a catalog of the conventional pairs in dir
func NewCatalog(dir string, categories ...string) Catalog {
	c := make(Catalog, len(categories))
	for _, cat := range categories {
		c[strings.ToLower(cat)] = sample.PairFor(dir, cat)
	}
	return c
}

// Names returns the selectors in sorted order
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options configures a Service
type Options struct {
	Catalog Catalog
	// Cache memoizes offset indexes; nil disables caching.
	Cache Cache
	// IntN returns a uniform integer in [0, n). Defaults to math/rand/v2.IntN.
	IntN func(n int) int
}

// Service picks random user agents from generated samples. It holds no
// open files and is safe for concurrent use.
type Service struct {
	catalog Catalog
	cache   Cache
	intN    func(n int) int
}

// New creates a lookup service
func New(opts Options) *Service {
	intN := opts.IntN
	if intN == nil {
		intN = rand.IntN
	}
	return &Service{
		catalog: opts.Catalog,
		cache:   opts.Cache,
		intN:    intN,
	}
}

// Fetch returns one user agent drawn uniformly from the sample lines of
// category. Because the sample repeats agents by weight, agents come back
// in proportion to their share of the sample.
func (s *Service) Fetch(ctx context.Context, category string) (ua string, err error) {
	start := time.Now()
	key := strings.ToLower(strings.TrimSpace(category))
	defer func() {
		observe(s.metricLabel(key), StatusCode(err), time.Since(start))
	}()

	if key == "" {
		return "", &Error{Kind: internalerr.ErrNotFound, Msg: "Missing required query parameter: type=" + strings.Join(s.catalog.Names(), "|")}
	}
	pair, ok := s.catalog[key]
	if !ok {
		return "", &Error{Category: key, Kind: internalerr.ErrNotFound, Msg: s.unsupportedMsg()}
	}

	data, err := openRegular(pair.DataPath)
	if err != nil {
		return "", &Error{Category: key, Kind: internalerr.ErrUnavailable, Msg: "Sample file unavailable.", Err: err}
	}
	defer data.Close()

	indexInfo, err := os.Stat(pair.IndexPath)
	if err == nil && !indexInfo.Mode().IsRegular() {
		err = fmt.Errorf("%s is not a regular file", pair.IndexPath)
	}
	if err != nil {
		return "", &Error{Category: key, Kind: internalerr.ErrUnavailable, Msg: "Sample index unavailable. Re-run ua-process first.", Err: err}
	}

	dataInfo, err := data.Stat()
	if err != nil {
		return "", &Error{Category: key, Kind: internalerr.ErrUnavailable, Msg: "Sample file unavailable.", Err: err}
	}

	offsets, err := s.loadOffsets(ctx, pair.IndexPath, indexInfo, dataInfo.Size())
	if err != nil {
		if errors.Is(err, internalerr.ErrCorruptIndex) {
			return "", &Error{Category: key, Kind: internalerr.ErrCorruptIndex, Msg: failedMsg, Err: err}
		}
		return "", &Error{Category: key, Kind: internalerr.ErrUnavailable, Msg: "Sample index unavailable. Re-run ua-process first.", Err: err}
	}
	if len(offsets) == 0 {
		return "", &Error{Category: key, Kind: internalerr.ErrEmptySample, Msg: failedMsg, Err: errors.New("sample set is empty")}
	}

	line, err := readLineAt(data, offsets[s.intN(len(offsets))])
	if err != nil {
		return "", &Error{Category: key, Kind: internalerr.ErrUnavailable, Msg: failedMsg, Err: err}
	}
	return line, nil
}

func (s *Service) unsupportedMsg() string {
	names := s.catalog.Names()
	opts := make([]string, len(names))
	for i, n := range names {
		opts[i] = "type=" + n
	}
	return "Unsupported type. Use " + strings.Join(opts, " or ") + "."
}

func (s *Service) metricLabel(key string) string {
	if _, ok := s.catalog[key]; ok {
		return key
	}
	return "unknown"
}

// loadOffsets returns the offsets of indexPath, served from the cache when
// the cached entry was read from an index with the same mtime and size
// against a data file of the same size.
func (s *Service) loadOffsets(ctx context.Context, indexPath string, index os.FileInfo, dataSize int64) (sample.OffsetIndex, error) {
	if s.cache != nil {
		entry, ok := s.cache.Get(ctx, indexPath)
		switch {
		case ok && entry.fresh(index.ModTime(), index.Size(), dataSize):
			cacheResult("hit")
			return entry.Offsets, nil
		case ok:
			cacheResult("stale")
		default:
			cacheResult("miss")
		}
	}

	offsets, err := sample.ReadIndexFile(indexPath)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Put(ctx, indexPath, IndexEntry{
			ModTime:   index.ModTime(),
			IndexSize: index.Size(),
			DataSize:  dataSize,
			Offsets:   offsets,
		})
	}
	return offsets, nil
}

func openRegular(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	return f, nil
}

// readLineAt reads the line starting at offset. An offset outside the file
// falls back to the first line.
func readLineAt(f *os.File, offset int64) (string, error) {
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if offset < 0 || offset >= info.Size() {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("unable to seek within %s: %w", f.Name(), err)
		}
	}

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("unable to read data from %s: empty file", f.Name())
		}
		return "", fmt.Errorf("unable to read data from %s: %w", f.Name(), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
