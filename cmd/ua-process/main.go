package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/cognicore/uapick/pkg/uapick/config"
	"github.com/cognicore/uapick/pkg/uapick/pipeline"
	"github.com/cognicore/uapick/pkg/uapick/sample"
	"github.com/cognicore/uapick/pkg/uapick/store"
	"github.com/cognicore/uapick/pkg/uapick/store/sqlite"
)

type options struct {
	configPath string
	inputDir   string
	outputDir  string
	sampleSize int
	botsPath   string
	mobilePath string
	dbPath     string
	set        map[string]bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Config file (optional, e.g. configs/uapick.yaml)")
	flag.StringVar(&opts.inputDir, "input", config.DefaultInputDir, "Directory of CSV/XLSX exports")
	flag.StringVar(&opts.outputDir, "output", config.DefaultOutputDir, "Directory for reports and samples")
	flag.IntVar(&opts.sampleSize, "sample-size", config.DefaultSampleSize, "Lines per sample file")
	flag.StringVar(&opts.botsPath, "bots", "", "Bot marker list (terms: YAML)")
	flag.StringVar(&opts.mobilePath, "mobile", "", "Mobile keyword list (terms: YAML)")
	flag.StringVar(&opts.dbPath, "db", "", "SQLite run ledger (optional)")
	runs := flag.Int("runs", 0, "List the N most recent runs and exit")
	flag.Parse()

	opts.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *runs > 0 {
		if err := showRuns(ctx, opts, *runs, os.Stdout); err != nil {
			log.Fatalf("list runs: %v", err)
		}
		return
	}

	runner, cleanup, err := buildRunner(ctx, opts)
	if err != nil {
		log.Fatalf("load configs: %v", err)
	}
	defer cleanup()

	if _, err := runner.Run(ctx); err != nil {
		cleanup()
		log.Fatalf("%v", err)
	}
}

// buildRunner loads configuration (flags win over the config file) and opens
// the run ledger when one is configured
func buildRunner(ctx context.Context, opts options) (*pipeline.Runner, func(), error) {
	loader := config.Loader{
		ConfigPath: opts.configPath,
		BotsPath:   opts.botsPath,
		MobilePath: opts.mobilePath,
		Override:   opts.apply,
	}
	comp, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}

	runner := &pipeline.Runner{
		Components: comp,
		Writer:     sample.NewWriter(),
	}
	cleanup := func() {}

	if comp.Config.CacheDB != "" {
		st, err := sqlite.OpenSQLite(ctx, comp.Config.CacheDB)
		if err != nil {
			return nil, nil, fmt.Errorf("open db: %w", err)
		}
		runner.Store = st
		cleanup = func() { st.Close() }
	}

	return runner, cleanup, nil
}

// apply copies explicitly set flags over the loaded config
func (o options) apply(cfg *config.Config) {
	if o.set["input"] {
		cfg.InputDir = o.inputDir
	}
	if o.set["output"] {
		cfg.OutputDir = o.outputDir
	}
	if o.set["sample-size"] {
		cfg.SampleSize = o.sampleSize
	}
	if o.set["db"] {
		cfg.CacheDB = o.dbPath
	}
}

func showRuns(ctx context.Context, opts options, limit int, w io.Writer) error {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	opts.apply(&cfg)
	if cfg.CacheDB == "" {
		return fmt.Errorf("no run ledger configured (set -db or cache_db)")
	}

	st, err := sqlite.OpenSQLite(ctx, cfg.CacheDB)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	return printRuns(w, runs)
}

func printRuns(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tFILES\tUNIQUE\tENTRIES\tSAMPLES")
	for _, r := range runs {
		samples := ""
		for i, s := range r.Samples {
			if i > 0 {
				samples += " "
			}
			samples += fmt.Sprintf("%s=%s", s.Category, humanize.Comma(int64(s.Lines)))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d/%d\t%s\t%s\t%s\n",
			r.ID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.FilesProcessed, r.FilesSkipped, r.FilesFailed,
			humanize.Comma(int64(r.UniqueAgents)),
			humanize.Comma(r.TotalAgents),
			samples,
		)
	}
	return tw.Flush()
}
