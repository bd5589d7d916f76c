package lookup

import (
	"context"
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/uapick/pkg/uapick/sample"
	"github.com/cognicore/uapick/pkg/uapick/store"
)

// IndexEntry is a memoized offset index together with the stamp of the
// files it was read against: the index file's modification time and size,
// and the size of the data file it points into.
type IndexEntry struct {
	ModTime   time.Time
	IndexSize int64
	DataSize  int64
	Offsets   sample.OffsetIndex
}

// fresh reports whether the entry still describes the current pair. Size is
// checked alongside mtime since coarse mtime resolution lets a regeneration
// land on the same timestamp.
func (e IndexEntry) fresh(modTime time.Time, indexSize, dataSize int64) bool {
	return e.ModTime.Equal(modTime) && e.IndexSize == indexSize && e.DataSize == dataSize
}

// Cache memoizes offset indexes by index file path. Implementations must be
// safe for concurrent use. Offsets handed out by Get are shared and must not
// be modified.
type Cache interface {
	Get(ctx context.Context, key string) (IndexEntry, bool)
	Put(ctx context.Context, key string, entry IndexEntry)
}

// LRUCache is a bounded process-local cache
type LRUCache struct {
	entries *lru.Cache[string, IndexEntry]
}

// NewLRUCache creates a cache holding up to size indexes
func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[string, IndexEntry](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{entries: c}, nil
}

// Get implements Cache.
func (c *LRUCache) Get(_ context.Context, key string) (IndexEntry, bool) {
	return c.entries.Get(key)
}

// Put implements Cache.
func (c *LRUCache) Put(_ context.Context, key string, entry IndexEntry) {
	c.entries.Add(key, entry)
}

// Len returns the number of cached indexes
func (c *LRUCache) Len() int {
	return c.entries.Len()
}

// StoreCache keeps indexes in a store.Store so separate processes share them.
// Store errors are logged and treated as misses.
type StoreCache struct {
	st store.Store
}

// NewStoreCache wraps a store as a Cache
func NewStoreCache(st store.Store) *StoreCache {
	return &StoreCache{st: st}
}

// Get implements Cache.
func (c *StoreCache) Get(ctx context.Context, key string) (IndexEntry, bool) {
	rec, found, err := c.st.GetIndex(ctx, key)
	if err != nil {
		log.Printf("WARNING: index cache read %s: %v", key, err)
		return IndexEntry{}, false
	}
	if !found {
		return IndexEntry{}, false
	}
	return IndexEntry{
		ModTime:   rec.ModTime,
		IndexSize: rec.IndexSize,
		DataSize:  rec.DataSize,
		Offsets:   sample.OffsetIndex(rec.Offsets),
	}, true
}

// Put implements Cache.
func (c *StoreCache) Put(ctx context.Context, key string, entry IndexEntry) {
	err := c.st.PutIndex(ctx, key, store.IndexRecord{
		ModTime:   entry.ModTime,
		IndexSize: entry.IndexSize,
		DataSize:  entry.DataSize,
		Offsets:   []int64(entry.Offsets),
	})
	if err != nil {
		log.Printf("WARNING: index cache write %s: %v", key, err)
	}
}

// Tiered reads through caches in order and back-fills the faster tiers on a
// hit further down. Put writes every tier.
type Tiered []Cache

// Get implements Cache.
func (t Tiered) Get(ctx context.Context, key string) (IndexEntry, bool) {
	for i, c := range t {
		entry, ok := c.Get(ctx, key)
		if !ok {
			continue
		}
		for _, faster := range t[:i] {
			faster.Put(ctx, key, entry)
		}
		return entry, true
	}
	return IndexEntry{}, false
}

// Put implements Cache.
func (t Tiered) Put(ctx context.Context, key string, entry IndexEntry) {
	for _, c := range t {
		c.Put(ctx, key, entry)
	}
}
