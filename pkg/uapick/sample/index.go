package sample

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cognicore/uapick/pkg/uapick/internalerr"
)

// CategoryAll names the unsuffixed sample that covers every category
const CategoryAll = "all"

// OffsetIndex holds the byte offset of every line in a sample data file, in
// file order.
type OffsetIndex []int64

// FilePair binds a sample data file to its offset index
type FilePair struct {
	Category  string
	DataPath  string
	IndexPath string
}

// PairFor returns the conventional file pair for a category inside dir:
// ua.txt/ua.idx.json for CategoryAll, ua-<category>.txt/ua-<category>.idx.json
// otherwise.
func PairFor(dir, category string) FilePair {
	stem := "ua"
	if category != "" && category != CategoryAll {
		stem = "ua-" + category
	}
	if category == "" {
		category = CategoryAll
	}
	return FilePair{
		Category:  category,
		DataPath:  filepath.Join(dir, stem+".txt"),
		IndexPath: filepath.Join(dir, stem+".idx.json"),
	}
}

// EncodeIndex writes offsets as a JSON array of integers
func EncodeIndex(w io.Writer, offsets OffsetIndex) error {
	if offsets == nil {
		offsets = OffsetIndex{}
	}
	return json.NewEncoder(w).Encode([]int64(offsets))
}

// DecodeIndex parses a JSON array of non-negative integers. Anything else
// yields an error wrapping internalerr.ErrCorruptIndex.
func DecodeIndex(r io.Reader) (OffsetIndex, error) {
	dec := json.NewDecoder(r)

	var raw []int64
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: index is empty", internalerr.ErrCorruptIndex)
		}
		return nil, fmt.Errorf("%w: %v", internalerr.ErrCorruptIndex, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: index is not an array", internalerr.ErrCorruptIndex)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after index", internalerr.ErrCorruptIndex)
	}

	for i, off := range raw {
		if off < 0 {
			return nil, fmt.Errorf("%w: negative offset %d at position %d", internalerr.ErrCorruptIndex, off, i)
		}
	}
	return OffsetIndex(raw), nil
}

// ReadIndexFile loads and decodes an index file
func ReadIndexFile(path string) (OffsetIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	idx, err := DecodeIndex(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	return idx, nil
}
