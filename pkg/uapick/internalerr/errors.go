package internalerr

import "errors"

// Sentinel errors for common cases
var (
	// Generation side
	ErrInputUnavailable  = errors.New("input unavailable")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrExtraction        = errors.New("extraction failed")
	ErrWriteFailure      = errors.New("write failed")

	// Lookup side
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("sample unavailable")
	ErrCorruptIndex = errors.New("corrupt index")
	ErrEmptySample  = errors.New("sample set is empty")

	ErrInvalidConfig = errors.New("invalid configuration")
)
