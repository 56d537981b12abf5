package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/montelog/montelog/pkg/montelog/internalerr"
)

// Run is a sampling run configuration, loadable from YAML. Zero values mean
// defaults: one sample, fresh seed, plain multi-line output.
type Run struct {
	Seed           uint64 `yaml:"seed"`
	Samples        int    `yaml:"samples"`
	Estimate       bool   `yaml:"estimate"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Format         Format `yaml:"format"`
}

// Format mirrors the output flags of the sampler.
type Format struct {
	WithFacts       bool `yaml:"with_facts"`
	WithProbability bool `yaml:"with_probability"`
	OneLine         bool `yaml:"oneline"`
	AsEvidence      bool `yaml:"as_evidence"`
	Tuples          bool `yaml:"tuples"`
}

// Load reads a run configuration from a YAML file.
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	var r Run
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// samples left unset means one sample; in estimate mode 0 stays
	// open-ended
	if r.Samples == 0 && !r.Estimate {
		r.Samples = 1
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the configuration for contradictions.
func (r *Run) Validate() error {
	if r.Samples < 0 {
		return fmt.Errorf("%w: samples must be >= 0, got %d", internalerr.ErrInvalidConfig, r.Samples)
	}
	if r.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: timeout_seconds must be >= 0, got %d", internalerr.ErrInvalidConfig, r.TimeoutSeconds)
	}
	if !r.Estimate && r.Samples == 0 {
		return fmt.Errorf("%w: open-ended runs (samples=0) require estimate mode", internalerr.ErrInvalidConfig)
	}
	if r.Format.Tuples && r.Format.AsEvidence {
		return fmt.Errorf("%w: tuples and as_evidence are mutually exclusive", internalerr.ErrInvalidConfig)
	}
	return nil
}
