package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cognicore/uapick/pkg/uapick/classify"
	"github.com/cognicore/uapick/pkg/uapick/config"
	"github.com/cognicore/uapick/pkg/uapick/lookup"
	"github.com/cognicore/uapick/pkg/uapick/store/sqlite"
)

const (
	exitOK         = 0
	exitFailure    = 1 // missing or corrupt sample artifacts
	exitBadRequest = 2 // missing or unsupported category
)

type options struct {
	configPath string
	outputDir  string
	cacheDB    string
	cacheSize  int
	listen     string
	serve      bool
	maxConns   int
	set        map[string]bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Config file (optional, e.g. configs/uapick.yaml)")
	flag.StringVar(&opts.outputDir, "output", config.DefaultOutputDir, "Directory holding the generated samples")
	flag.StringVar(&opts.cacheDB, "cache-db", "", "SQLite file shared as an offset-index cache (optional)")
	flag.IntVar(&opts.cacheSize, "cache-size", config.DefaultCacheSize, "In-process index cache entries when serving (0 disables)")
	flag.StringVar(&opts.listen, "listen", "", "Serve HTTP on this address instead of printing one agent")
	flag.BoolVar(&opts.serve, "serve", false, "Serve HTTP on the configured listen address")
	flag.IntVar(&opts.maxConns, "max-conns", config.DefaultMaxConns, "Maximum simultaneous HTTP connections")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <desktop|mobile>\n       %s -listen :8080 | -serve [flags]\n", os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	opts.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	cfg, err := opts.resolve()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, cleanup, err := buildCache(ctx, cfg, opts.serving())
	if err != nil {
		log.Fatalf("open cache: %v", err)
	}

	svc := lookup.New(lookup.Options{
		Catalog: lookup.NewCatalog(cfg.OutputDir, classify.Categories...),
		Cache:   cache,
	})

	if opts.serving() {
		log.Printf("Serving user agents from %s on %s (max %d connections)", cfg.OutputDir, cfg.Listen, cfg.MaxConns)
		err := lookup.Serve(ctx, cfg.Listen, cfg.MaxConns, lookup.NewHandler(svc))
		cleanup()
		if err != nil {
			log.Fatalf("serve: %v", err)
		}
		return
	}

	code := pick(ctx, svc, flag.Arg(0), os.Stdout)
	cleanup()
	os.Exit(code)
}

func (o options) serving() bool {
	return o.set["listen"] || o.serve
}

// resolve loads the config file and copies explicitly set flags over it.
// Server mode additionally requires a listen address.
func (o options) resolve() (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.LoadConfig(o.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
		cfg = *loaded
	}
	if o.set["output"] {
		cfg.OutputDir = o.outputDir
	}
	if o.set["cache-db"] {
		cfg.CacheDB = o.cacheDB
	}
	if o.set["cache-size"] {
		cfg.CacheSize = o.cacheSize
	}
	if o.set["max-conns"] {
		cfg.MaxConns = o.maxConns
	}
	if o.set["listen"] {
		cfg.Listen = o.listen
	}

	validate := cfg.Validate
	if o.serving() {
		validate = cfg.ValidateServe
	}
	if err := validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// buildCache assembles the offset-index cache: the shared SQLite tier when
// configured, fronted by an in-process LRU for a long-running server
func buildCache(ctx context.Context, cfg config.Config, serving bool) (lookup.Cache, func(), error) {
	var tiers lookup.Tiered
	cleanup := func() {}

	if serving && cfg.CacheSize > 0 {
		lru, err := lookup.NewLRUCache(cfg.CacheSize)
		if err != nil {
			return nil, nil, err
		}
		tiers = append(tiers, lru)
	}
	if cfg.CacheDB != "" {
		st, err := sqlite.OpenSQLite(ctx, cfg.CacheDB)
		if err != nil {
			return nil, nil, err
		}
		tiers = append(tiers, lookup.NewStoreCache(st))
		cleanup = func() { st.Close() }
	}

	switch len(tiers) {
	case 0:
		return nil, cleanup, nil
	case 1:
		return tiers[0], cleanup, nil
	default:
		return tiers, cleanup, nil
	}
}

// pick prints one agent for category and returns the process exit code.
// Errors are printed to w as their client-facing message.
func pick(ctx context.Context, svc *lookup.Service, category string, w io.Writer) int {
	ua, err := svc.Fetch(ctx, category)
	if err != nil {
		fmt.Fprintln(w, lookup.PublicMessage(err))
		if lookup.StatusCode(err) == http.StatusBadRequest {
			return exitBadRequest
		}
		log.Printf("lookup %q: %v", category, err)
		return exitFailure
	}
	fmt.Fprintln(w, ua)
	return exitOK
}
