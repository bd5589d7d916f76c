package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/uapick/pkg/uapick/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
// Several ua-pick processes may share one database file.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	// Per-connection pragmas go in the DSN so every pooled connection gets them
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	files_processed INTEGER NOT NULL DEFAULT 0,
	files_skipped INTEGER NOT NULL DEFAULT 0,
	files_failed INTEGER NOT NULL DEFAULT 0,
	unique_agents INTEGER NOT NULL DEFAULT 0,
	total_agents INTEGER NOT NULL DEFAULT 0,
	sample_size INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_samples (
	run_id TEXT NOT NULL,
	category TEXT NOT NULL,
	lines INTEGER NOT NULL,
	data_path TEXT NOT NULL,
	index_path TEXT NOT NULL,
	PRIMARY KEY(run_id, category),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS index_cache (
	path TEXT PRIMARY KEY,
	mtime INTEGER NOT NULL,
	index_size INTEGER NOT NULL DEFAULT -1,
	data_size INTEGER NOT NULL DEFAULT -1,
	offsets TEXT NOT NULL
);
`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return migrateIndexCache(ctx, db)
}

// migrateIndexCache adds the size columns to caches created before they
// existed. Old rows get -1 and are never considered fresh.
func migrateIndexCache(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `PRAGMA table_info(index_cache)`)
	if err != nil {
		return err
	}
	have := make(map[string]bool)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			rows.Close()
			return err
		}
		have[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, col := range []string{"index_size", "data_size"} {
		if have[col] {
			continue
		}
		if _, err := db.ExecContext(ctx, `ALTER TABLE index_cache ADD COLUMN `+col+` INTEGER NOT NULL DEFAULT -1`); err != nil {
			return fmt.Errorf("add index_cache.%s: %w", col, err)
		}
	}
	return nil
}

// RecordRun inserts or replaces a run and its sample records
func (s *sqliteStore) RecordRun(ctx context.Context, r store.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, started_at, finished_at, files_processed, files_skipped, files_failed, unique_agents, total_agents, sample_size)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	started_at=excluded.started_at,
	finished_at=excluded.finished_at,
	files_processed=excluded.files_processed,
	files_skipped=excluded.files_skipped,
	files_failed=excluded.files_failed,
	unique_agents=excluded.unique_agents,
	total_agents=excluded.total_agents,
	sample_size=excluded.sample_size;
`,
		r.ID,
		r.StartedAt.UTC().UnixNano(),
		r.FinishedAt.UTC().UnixNano(),
		r.FilesProcessed,
		r.FilesSkipped,
		r.FilesFailed,
		r.UniqueAgents,
		r.TotalAgents,
		r.SampleSize,
	)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_samples WHERE run_id=?`, r.ID); err != nil {
		return err
	}
	if len(r.Samples) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_samples (run_id, category, lines, data_path, index_path) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, smp := range r.Samples {
			if smp.Category == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, r.ID, smp.Category, smp.Lines, smp.DataPath, smp.IndexPath); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LatestRun returns the most recently started run
func (s *sqliteStore) LatestRun(ctx context.Context) (store.Run, bool, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return store.Run{}, false, err
	}
	if len(runs) == 0 {
		return store.Run{}, false, nil
	}
	return runs[0], true, nil
}

// ListRuns returns up to limit runs, newest first
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, finished_at, files_processed, files_skipped, files_failed, unique_agents, total_agents, sample_size
FROM runs
ORDER BY started_at DESC, id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		var (
			r                 store.Run
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.FilesProcessed, &r.FilesSkipped, &r.FilesFailed, &r.UniqueAgents, &r.TotalAgents, &r.SampleSize); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(0, started).UTC()
		r.FinishedAt = time.Unix(0, finished).UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		runs[i].Samples, err = s.loadSamples(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *sqliteStore) loadSamples(ctx context.Context, runID string) ([]store.SampleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT category, lines, data_path, index_path
FROM run_samples
WHERE run_id = ?
ORDER BY category;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.SampleRecord
	for rows.Next() {
		var rec store.SampleRecord
		if err := rows.Scan(&rec.Category, &rec.Lines, &rec.DataPath, &rec.IndexPath); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetIndex retrieves a cached offset index
func (s *sqliteStore) GetIndex(ctx context.Context, path string) (store.IndexRecord, bool, error) {
	var (
		mtime   int64
		offsets string
		rec     store.IndexRecord
	)
	err := s.db.QueryRowContext(ctx, `SELECT mtime, index_size, data_size, offsets FROM index_cache WHERE path=?`, path).
		Scan(&mtime, &rec.IndexSize, &rec.DataSize, &offsets)
	if err == sql.ErrNoRows {
		return store.IndexRecord{}, false, nil
	}
	if err != nil {
		return store.IndexRecord{}, false, err
	}

	rec.ModTime = time.Unix(0, mtime).UTC()
	if err := json.Unmarshal([]byte(offsets), &rec.Offsets); err != nil {
		return store.IndexRecord{}, false, err
	}
	return rec, true, nil
}

// PutIndex inserts or replaces a cached offset index
func (s *sqliteStore) PutIndex(ctx context.Context, path string, rec store.IndexRecord) error {
	offsets := rec.Offsets
	if offsets == nil {
		offsets = []int64{}
	}
	data, err := json.Marshal(offsets)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO index_cache (path, mtime, index_size, data_size, offsets) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
	mtime=excluded.mtime,
	index_size=excluded.index_size,
	data_size=excluded.data_size,
	offsets=excluded.offsets;
`, path, rec.ModTime.UTC().UnixNano(), rec.IndexSize, rec.DataSize, string(data))
	return err
}

// DeleteIndex removes a cached offset index
func (s *sqliteStore) DeleteIndex(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM index_cache WHERE path=?`, path)
	return err
}
