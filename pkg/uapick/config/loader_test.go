package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cognicore/uapick/pkg/uapick/botdetect"
	"github.com/cognicore/uapick/pkg/uapick/classify"
	"github.com/cognicore/uapick/pkg/uapick/internalerr"
)

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoaderAllEmpty(t *testing.T) {
	loader := Loader{}

	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}

	if comp.Config == nil || comp.Config.SampleSize != DefaultSampleSize {
		t.Errorf("Should have default config, got %+v", comp.Config)
	}
	if comp.Detector == nil || !comp.Detector.IsBot("Mozilla/5.0 (compatible; Googlebot/2.1)") {
		t.Error("Should have detector with default markers")
	}
	if comp.Classifier == nil || comp.Classifier.Classify("Mozilla/5.0 (iPhone)") != classify.Mobile {
		t.Error("Should have classifier with default keywords")
	}
	if comp.Extractors == nil {
		t.Fatal("Should have extractor registry")
	}
	if _, err := comp.Extractors.For("export.xlsx"); err != nil {
		t.Errorf("Registry should handle xlsx: %v", err)
	}
}

func TestLoaderFromFiles(t *testing.T) {
	dir := t.TempDir()
	bots := writeYAML(t, dir, "bots.yaml", "terms:\n  - scraper\n")
	mobile := writeYAML(t, dir, "mobile.yaml", "terms:\n  - kaios\n")
	cfgPath := writeYAML(t, dir, "uapick.yaml", "input_dir: logs\nsample_size: 50\nbots: "+bots+"\nmobile: "+mobile+"\n")

	loader := Loader{ConfigPath: cfgPath}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if comp.Config.InputDir != "logs" || comp.Config.SampleSize != 50 {
		t.Errorf("Unexpected config %+v", comp.Config)
	}
	if comp.Config.OutputDir != DefaultOutputDir {
		t.Errorf("Missing keys should keep defaults, got output_dir %q", comp.Config.OutputDir)
	}
	if !comp.Detector.IsBot("Mozilla/5.0 AcmeScraper/1.0") {
		t.Error("Custom marker should match")
	}
	if comp.Detector.IsBot("Mozilla/5.0 (compatible; Googlebot/2.1)") {
		t.Error("Custom marker list should replace the defaults")
	}
	if got := comp.Classifier.Classify("Mozilla/5.0 (Mobile; KaiOS 2.5)"); got != classify.Mobile {
		t.Errorf("Expected mobile, got %s", got)
	}
	if got := comp.Classifier.Classify("Mozilla/5.0 (iPhone)"); got != classify.Desktop {
		t.Errorf("Custom keywords should replace the defaults, got %s", got)
	}
}

func TestLoaderPathOverridesAndFlags(t *testing.T) {
	dir := t.TempDir()
	fileBots := writeYAML(t, dir, "file-bots.yaml", "terms:\n  - fromfile\n")
	flagBots := writeYAML(t, dir, "flag-bots.yaml", "terms:\n  - fromflag\n")
	cfgPath := writeYAML(t, dir, "uapick.yaml", "bots: "+fileBots+"\nsample_size: 10\n")

	loader := Loader{
		ConfigPath: cfgPath,
		BotsPath:   flagBots,
		Override:   func(c *Config) { c.SampleSize = 99 },
	}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if comp.Config.SampleSize != 99 {
		t.Errorf("Override should win, got %d", comp.Config.SampleSize)
	}
	if comp.Config.BotsPath != flagBots {
		t.Errorf("BotsPath = %q, want %q", comp.Config.BotsPath, flagBots)
	}
	if !comp.Detector.IsBot("Mozilla/5.0 FromFlag") || comp.Detector.IsBot("Mozilla/5.0 FromFile") {
		t.Error("Detector should use the overriding marker file")
	}
}

func TestLoaderInvalidConfig(t *testing.T) {
	loader := Loader{Override: func(c *Config) { c.SampleSize = -1 }}
	_, err := loader.Load()
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoaderNonExistentFiles(t *testing.T) {
	tests := []struct {
		name   string
		loader Loader
	}{
		{"config", Loader{ConfigPath: "/nonexistent/uapick.yaml"}},
		{"bots", Loader{BotsPath: "/nonexistent/bots.yaml"}},
		{"mobile", Loader{MobilePath: "/nonexistent/mobile.yaml"}},
	}
	for _, tt := range tests {
		if _, err := tt.loader.Load(); err == nil {
			t.Errorf("%s: should error on nonexistent file", tt.name)
		}
	}
}

func TestShippedTermListsMatchDefaults(t *testing.T) {
	root := filepath.Join("..", "..", "..", "configs")

	bots, err := LoadTerms(filepath.Join(root, "bots.yaml"))
	if err != nil {
		t.Fatalf("load bots.yaml: %v", err)
	}
	if !reflect.DeepEqual(bots, botdetect.DefaultMarkers) {
		t.Errorf("configs/bots.yaml drifted from botdetect.DefaultMarkers")
	}

	mobile, err := LoadTerms(filepath.Join(root, "mobile.yaml"))
	if err != nil {
		t.Fatalf("load mobile.yaml: %v", err)
	}
	if !reflect.DeepEqual(mobile, classify.DefaultMobileKeywords) {
		t.Errorf("configs/mobile.yaml drifted from classify.DefaultMobileKeywords")
	}

	cfg, err := LoadConfig(filepath.Join(root, "uapick.yaml"))
	if err != nil {
		t.Fatalf("load uapick.yaml: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("shipped config invalid: %v", err)
	}
}
