package main

import (
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/unixpickle/essentials"
	"gopkg.in/yaml.v3"
)

// Config holds the command configuration.
//
// Values come from built-in defaults, then an optional
// YAML file, then HAN_* environment overrides.
type Config struct {
	Embedding int     `envconfig:"EMBEDDING" yaml:"embedding"`
	Hidden    int     `envconfig:"HIDDEN" yaml:"hidden"`
	Attention int     `envconfig:"ATTENTION" yaml:"attention"`
	BatchSize int     `envconfig:"BATCH_SIZE" yaml:"batch_size"`
	StepSize  float64 `envconfig:"STEP_SIZE" yaml:"step_size"`
	MinCount  int     `envconfig:"MIN_COUNT" yaml:"min_count"`
	ModelPath string  `envconfig:"MODEL" yaml:"model"`
	VocabPath string  `envconfig:"VOCAB" yaml:"vocab"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Embedding: 100,
		Hidden:    50,
		Attention: 100,
		BatchSize: 32,
		StepSize:  0.001,
		MinCount:  2,
		ModelPath: "han_model",
		VocabPath: "han_vocab.json",
	}
}

// LoadConfig reads the optional YAML file at path and
// applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, essentials.AddCtx("load config", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, essentials.AddCtx("load config", err)
		}
	}
	if err := envconfig.Process("han", cfg); err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	return cfg, nil
}
