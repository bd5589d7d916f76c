package store

import (
	"context"
	"time"
)

// Store persists generation run history and cached offset indexes
type Store interface {
	Close() error

	// Runs
	RecordRun(ctx context.Context, r Run) error
	LatestRun(ctx context.Context) (Run, bool, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Offset index cache, keyed by index file path
	GetIndex(ctx context.Context, path string) (IndexRecord, bool, error)
	PutIndex(ctx context.Context, path string, rec IndexRecord) error
	DeleteIndex(ctx context.Context, path string) error
}

// Run represents one execution of the generation pipeline
type Run struct {
	ID             string // ULID
	StartedAt      time.Time
	FinishedAt     time.Time
	FilesProcessed int
	FilesSkipped   int
	FilesFailed    int
	UniqueAgents   int
	TotalAgents    int64
	SampleSize     int
	Samples        []SampleRecord
}

// SampleRecord describes one sample pair written by a run
type SampleRecord struct {
	Category  string
	Lines     int
	DataPath  string
	IndexPath string
}

// IndexRecord is a cached offset index with the modification time and size
// of the index file it was read from and the size of its data file
type IndexRecord struct {
	ModTime   time.Time
	IndexSize int64
	DataSize  int64
	Offsets   []int64
}
