// Package config loads funcscope settings from a TOML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/maxgio92/funcscope"
)

// Classifier modes.
const (
	// ModeAuto decodes instructions when a code image is available and
	// falls back to edge labels otherwise.
	ModeAuto = "auto"
	// ModeDecode requires a code image.
	ModeDecode = "decode"
	// ModeEdges uses the edge-only exit heuristic.
	ModeEdges = "edges"
)

// Environment variables overriding the file.
const (
	EnvLogLevel       = "FUNCSCOPE_LOG_LEVEL"
	EnvClassifierMode = "FUNCSCOPE_CLASSIFIER_MODE"
)

// Config holds the classifier, worker and logging settings.
type Config struct {
	Classifier struct {
		Mode string `toml:"mode"`
		// Arch of raw code images. ELF images carry their own.
		Arch string `toml:"arch"`
	} `toml:"classifier"`
	// Workers bounds parallel exit computation; 0 means GOMAXPROCS.
	Workers int `toml:"workers"`
	Log     struct {
		Level       string `toml:"level"`
		Development bool   `toml:"development"`
	} `toml:"log"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Classifier.Mode = ModeAuto
	cfg.Classifier.Arch = string(funcscope.ArchAMD64)
	cfg.Log.Level = "warn"
	return cfg
}

// Load reads the TOML file at path over the defaults and applies the
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = level
	}
	if mode := os.Getenv(EnvClassifierMode); mode != "" {
		cfg.Classifier.Mode = mode
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Classifier.Mode) {
	case ModeAuto, ModeDecode, ModeEdges:
		c.Classifier.Mode = strings.ToLower(c.Classifier.Mode)
	default:
		return fmt.Errorf("invalid classifier mode %q (want %s, %s or %s)",
			c.Classifier.Mode, ModeAuto, ModeDecode, ModeEdges)
	}

	switch funcscope.Arch(c.Classifier.Arch) {
	case funcscope.ArchAMD64, funcscope.ArchARM64:
	default:
		return fmt.Errorf("invalid classifier arch %q", c.Classifier.Arch)
	}

	if c.Workers < 0 {
		return fmt.Errorf("invalid workers %d: must not be negative", c.Workers)
	}

	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// Logger builds the logger described by the log settings. Output goes to
// stderr.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
