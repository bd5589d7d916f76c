package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cognicore/uapick/pkg/uapick/internalerr"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "uapick.yaml")

	content := `input_dir: /var/log/exports
output_dir: /srv/ua
sample_size: 2500
cache_db: /var/lib/uapick/cache.db
listen: 127.0.0.1:9000
max_conns: 32
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	want := Config{
		InputDir:   "/var/log/exports",
		OutputDir:  "/srv/ua",
		SampleSize: 2500,
		CacheDB:    "/var/lib/uapick/cache.db",
		Listen:     "127.0.0.1:9000",
		MaxConns:   32,
		CacheSize:  DefaultCacheSize,
	}
	if *cfg != want {
		t.Errorf("LoadConfig = %+v, want %+v", *cfg, want)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/uapick.yaml"); err == nil {
		t.Error("Should error on missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("sample_size: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Should error on malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero sample size", func(c *Config) { c.SampleSize = 0 }, true},
		{"negative sample size", func(c *Config) { c.SampleSize = -5 }, false},
		{"blank input dir", func(c *Config) { c.InputDir = "  " }, false},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, false},
		{"zero max conns", func(c *Config) { c.MaxConns = 0 }, false},
		{"negative cache size", func(c *Config) { c.CacheSize = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Expected valid, got %v", err)
			}
			if !tt.ok && !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestValidateServe(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateServe(); err != nil {
		t.Errorf("Defaults should be servable, got %v", err)
	}

	cfg.Listen = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Empty listen is fine for one-shot use, got %v", err)
	}
	if err := cfg.ValidateServe(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for empty listen, got %v", err)
	}

	cfg = Default()
	cfg.MaxConns = 0
	if err := cfg.ValidateServe(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("ValidateServe should include Validate, got %v", err)
	}
}

func TestLoadTerms(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bots.yaml")

	content := `terms:
  - Googlebot
  - " bot"
  - ""
  - "   "
  - "Spider  "
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	terms, err := LoadTerms(path)
	if err != nil {
		t.Fatalf("Failed to load terms: %v", err)
	}

	want := []string{"googlebot", " bot", "spider"}
	if !reflect.DeepEqual(terms, want) {
		t.Errorf("LoadTerms = %q, want %q", terms, want)
	}
}

func TestLoadTermsEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("terms: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	terms, err := LoadTerms(path)
	if err != nil {
		t.Fatalf("Failed to load terms: %v", err)
	}
	if terms == nil || len(terms) != 0 {
		t.Errorf("Expected empty non-nil list, got %#v", terms)
	}
}
