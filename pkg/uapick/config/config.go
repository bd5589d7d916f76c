package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/uapick/pkg/uapick/internalerr"
)

// Defaults used when neither the config file nor a flag sets a value.
const (
	DefaultInputDir   = "in"
	DefaultOutputDir  = "out"
	DefaultSampleSize = 10000
	DefaultListen     = ":8080"
	DefaultMaxConns   = 256
	DefaultCacheSize  = 16
)

// Config represents the uapick.yaml configuration
type Config struct {
	InputDir   string `yaml:"input_dir"`
	OutputDir  string `yaml:"output_dir"`
	SampleSize int    `yaml:"sample_size"`
	BotsPath   string `yaml:"bots"`
	MobilePath string `yaml:"mobile"`
	CacheDB    string `yaml:"cache_db"`
	Listen     string `yaml:"listen"`
	MaxConns   int    `yaml:"max_conns"`
	CacheSize  int    `yaml:"cache_size"`
}

// Default returns a Config populated with the built-in defaults.
func Default() Config {
	return Config{
		InputDir:   DefaultInputDir,
		OutputDir:  DefaultOutputDir,
		SampleSize: DefaultSampleSize,
		Listen:     DefaultListen,
		MaxConns:   DefaultMaxConns,
		CacheSize:  DefaultCacheSize,
	}
}

// LoadConfig loads a Config from a YAML file. Keys missing from the file keep
// their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if strings.TrimSpace(c.InputDir) == "" {
		return fmt.Errorf("%w: input_dir is empty", internalerr.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("%w: output_dir is empty", internalerr.ErrInvalidConfig)
	}
	if c.SampleSize < 0 {
		return fmt.Errorf("%w: sample_size must be >= 0, got %d", internalerr.ErrInvalidConfig, c.SampleSize)
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("%w: max_conns must be > 0, got %d", internalerr.ErrInvalidConfig, c.MaxConns)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must be >= 0, got %d", internalerr.ErrInvalidConfig, c.CacheSize)
	}
	return nil
}

// ValidateServe is Validate plus the settings only the HTTP server needs.
// An empty listen address would make net.Listen pick a random port.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("%w: listen is empty", internalerr.ErrInvalidConfig)
	}
	return nil
}

// Terms represents a YAML term list (bot markers, mobile keywords)
type Terms struct {
	Terms []string `yaml:"terms"`
}

// LoadTerms loads a term list from a YAML file. Terms are lowercased and
// trimmed; blanks are dropped.
func LoadTerms(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tl Terms
	if err := yaml.Unmarshal(data, &tl); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(tl.Terms))
	for _, term := range tl.Terms {
		// Leading spaces are significant for markers like " bot".
		term = strings.ToLower(strings.TrimRight(term, " \t"))
		if strings.TrimSpace(term) == "" {
			continue
		}
		out = append(out, term)
	}
	return out, nil
}
