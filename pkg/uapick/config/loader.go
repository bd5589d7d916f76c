package config

import (
	"fmt"

	"github.com/cognicore/uapick/pkg/uapick/botdetect"
	"github.com/cognicore/uapick/pkg/uapick/classify"
	"github.com/cognicore/uapick/pkg/uapick/extract"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	ConfigPath string
	// BotsPath and MobilePath override the paths named in the config file.
	BotsPath   string
	MobilePath string
	// Override is applied to the loaded config before validation, so
	// command-line flags win over file values.
	Override func(*Config)
}

// Components holds all loaded configuration components
type Components struct {
	Config     *Config
	Detector   *botdetect.Detector
	Classifier *classify.Classifier
	Extractors *extract.Registry
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	// Load main config
	if l.ConfigPath != "" {
		cfg, err := LoadConfig(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		comp.Config = cfg
	} else {
		cfg := Default()
		comp.Config = &cfg
	}

	if l.BotsPath != "" {
		comp.Config.BotsPath = l.BotsPath
	}
	if l.MobilePath != "" {
		comp.Config.MobilePath = l.MobilePath
	}
	if l.Override != nil {
		l.Override(comp.Config)
	}
	if err := comp.Config.Validate(); err != nil {
		return nil, err
	}

	// Load bot markers
	if comp.Config.BotsPath != "" {
		markers, err := LoadTerms(comp.Config.BotsPath)
		if err != nil {
			return nil, fmt.Errorf("load bot markers: %w", err)
		}
		comp.Detector = botdetect.New(markers)
	} else {
		comp.Detector = botdetect.New(nil)
	}

	// Load mobile keywords
	if comp.Config.MobilePath != "" {
		keywords, err := LoadTerms(comp.Config.MobilePath)
		if err != nil {
			return nil, fmt.Errorf("load mobile keywords: %w", err)
		}
		comp.Classifier = classify.New(keywords)
	} else {
		comp.Classifier = classify.New(nil)
	}

	comp.Extractors = extract.NewRegistry()

	return comp, nil
}
