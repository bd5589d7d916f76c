// Package pipeline runs one generation pass: it reads every export in the
// input directory, aggregates the user agents, and writes the frequency
// reports and weighted sample files.
package pipeline

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/oklog/ulid/v2"

	"github.com/cognicore/uapick/pkg/uapick/aggregate"
	"github.com/cognicore/uapick/pkg/uapick/classify"
	"github.com/cognicore/uapick/pkg/uapick/config"
	"github.com/cognicore/uapick/pkg/uapick/internalerr"
	"github.com/cognicore/uapick/pkg/uapick/sample"
	"github.com/cognicore/uapick/pkg/uapick/store"
)

// File outcome labels
const (
	FileProcessed = "processed"
	FileSkipped   = "skipped"
	FileFailed    = "failed"
)

// FileResult describes what happened to one input file
type FileResult struct {
	Name   string
	Status string
	Agents int64 // entries counted from this file
	Err    error
}

// SampleResult describes one written (or failed) sample pair
type SampleResult struct {
	Category string
	Pair     sample.FilePair
	Lines    int
	Bytes    int64
	Err      error
}

// Report summarizes a run
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Files      []FileResult
	Processed  int
	Skipped    int
	Failed     int
	Unique     int
	Total      int64
	Rejected   aggregate.RejectStats
	Reports    []string
	Samples    []SampleResult
}

// Runner wires loaded components to the output directory and run ledger
type Runner struct {
	Components *config.Components
	// Store records the run; nil skips recording.
	Store  store.Store
	Writer *sample.Writer
	// Out receives the one-line summary; nil means stdout.
	Out io.Writer
}

// Run executes one generation pass. Only a missing input directory, an
// unusable output directory and cancellation abort the run; per-file and
// per-artifact failures are logged and skipped.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	cfg := r.Components.Config
	rep := &Report{StartedAt: time.Now().UTC()}

	info, err := os.Stat(cfg.InputDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: input directory '%s' does not exist", internalerr.ErrInputUnavailable, cfg.InputDir)
	}

	names, err := discoverFiles(cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInputUnavailable, err)
	}

	agg := aggregate.New(r.Components.Detector)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := r.processFile(ctx, agg, name)
		if res.Err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rep.Files = append(rep.Files, res)
		switch res.Status {
		case FileProcessed:
			rep.Processed++
		case FileSkipped:
			rep.Skipped++
		case FileFailed:
			rep.Failed++
		}
	}

	counts := agg.Counts()
	rep.Unique = agg.Unique()
	rep.Total = agg.Total()
	rep.Rejected = agg.Rejected()
	if rej := rep.Rejected; rej.Total() > 0 {
		log.Printf("Rejected %s value(s): %s empty, %s not a browser agent, %s bots",
			humanize.Comma(rej.Total()), humanize.Comma(rej.Empty), humanize.Comma(rej.NotAgent), humanize.Comma(rej.Bot))
	}

	parts := aggregate.Partition(counts, r.Components.Classifier, classify.Categories, classify.Desktop)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %v", internalerr.ErrWriteFailure, err)
	}

	tables := []struct {
		category string
		counts   aggregate.FrequencyTable
	}{
		{sample.CategoryAll, counts},
		{classify.Mobile, parts[classify.Mobile]},
		{classify.Desktop, parts[classify.Desktop]},
	}

	for _, t := range tables {
		path := ReportPath(cfg.OutputDir, t.category)
		if err := WriteReport(path, t.counts); err != nil {
			log.Printf("WARNING: %v", err)
			continue
		}
		rep.Reports = append(rep.Reports, path)
	}

	writer := r.Writer
	if writer == nil {
		writer = sample.NewWriter()
	}
	for _, t := range tables {
		res := r.writeSample(ctx, writer, cfg, t.category, t.counts)
		if res.Err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rep.Samples = append(rep.Samples, res)
	}

	rep.FinishedAt = time.Now().UTC()
	rep.RunID = ulid.MustNew(ulid.Timestamp(rep.StartedAt), ulid.Monotonic(rand.Reader, 0)).String()
	if r.Store != nil {
		if err := r.Store.RecordRun(ctx, rep.toRun(cfg.SampleSize)); err != nil {
			log.Printf("WARNING: failed to record run %s: %v", rep.RunID, err)
		}
	}

	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, rep.Summary())

	return rep, nil
}

// Summary is the one-line run summary
func (rep *Report) Summary() string {
	return fmt.Sprintf("Processed %s file(s); %s unique user agents found across %s entries.",
		humanize.Comma(int64(rep.Processed)), humanize.Comma(int64(rep.Unique)), humanize.Comma(rep.Total))
}

func (r *Runner) processFile(ctx context.Context, agg *aggregate.Aggregator, name string) FileResult {
	res := FileResult{Name: name}
	path := filepath.Join(r.Components.Config.InputDir, name)

	ex, err := r.Components.Extractors.For(path)
	if err != nil {
		log.Printf("WARNING: Skipping unsupported file: %s", name)
		res.Status = FileSkipped
		res.Err = err
		return res
	}

	// Rows go to a per-file aggregator first so a file that fails midway
	// contributes nothing.
	fileAgg := aggregate.New(r.Components.Detector)
	for ua, err := range ex.Extract(ctx, path) {
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("Failed to process %s: %v", name, err)
			}
			res.Status = FileFailed
			res.Err = err
			return res
		}
		fileAgg.Add(ua)
	}

	agg.Absorb(fileAgg)
	res.Status = FileProcessed
	res.Agents = fileAgg.Total()
	return res
}

func (r *Runner) writeSample(ctx context.Context, w *sample.Writer, cfg *config.Config, category string, counts aggregate.FrequencyTable) SampleResult {
	pair := sample.PairFor(cfg.OutputDir, category)
	res := SampleResult{Category: category, Pair: pair}

	alloc := sample.Build(counts, cfg.SampleSize)
	wr, err := w.Write(ctx, alloc, pair)
	if err != nil {
		log.Printf("WARNING: %v", err)
		res.Err = err
		return res
	}
	res.Lines = wr.Lines
	res.Bytes = wr.Bytes

	if wr.Lines != cfg.SampleSize && len(counts) > 0 {
		label := ""
		if category != sample.CategoryAll {
			label = " (" + category + ")"
		}
		log.Printf("WARNING%s: expected to write %s entries, wrote %s", label,
			humanize.Comma(int64(cfg.SampleSize)), humanize.Comma(int64(wr.Lines)))
	}
	log.Printf("Wrote %s: %s line(s), %s", pair.DataPath, humanize.Comma(int64(wr.Lines)), humanize.Bytes(uint64(wr.Bytes)))

	// Lookups sharing this store would otherwise revalidate a cached index
	// that no longer matches the pair.
	if r.Store != nil {
		if err := r.Store.DeleteIndex(ctx, pair.IndexPath); err != nil {
			log.Printf("WARNING: failed to drop cached index %s: %v", pair.IndexPath, err)
		}
	}
	return res
}

func (rep *Report) toRun(sampleSize int) store.Run {
	run := store.Run{
		ID:             rep.RunID,
		StartedAt:      rep.StartedAt,
		FinishedAt:     rep.FinishedAt,
		FilesProcessed: rep.Processed,
		FilesSkipped:   rep.Skipped,
		FilesFailed:    rep.Failed,
		UniqueAgents:   rep.Unique,
		TotalAgents:    rep.Total,
		SampleSize:     sampleSize,
	}
	for _, s := range rep.Samples {
		if s.Err != nil {
			continue
		}
		run.Samples = append(run.Samples, store.SampleRecord{
			Category:  s.Category,
			Lines:     s.Lines,
			DataPath:  s.Pair.DataPath,
			IndexPath: s.Pair.IndexPath,
		})
	}
	return run
}

// discoverFiles lists regular files in dir by name, skipping dot-files and
// Office lock files (~$...)
func discoverFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue // dangling symlink
			}
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
