package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/montelog/montelog/pkg/montelog/internalerr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
seed: 42
samples: 100
estimate: true
timeout_seconds: 30
format:
  oneline: true
  with_probability: true
`)
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Seed != 42 || r.Samples != 100 || !r.Estimate || r.TimeoutSeconds != 30 {
		t.Errorf("unexpected run config: %+v", r)
	}
	if !r.Format.OneLine || !r.Format.WithProbability || r.Format.Tuples {
		t.Errorf("unexpected format config: %+v", r.Format)
	}
}

func TestLoad_DefaultsSamplesToOne(t *testing.T) {
	r, err := Load(writeConfig(t, "format:\n  oneline: true\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Samples != 1 {
		t.Errorf("omitted samples: want default 1, got %d", r.Samples)
	}

	// estimate mode keeps samples=0 as an open-ended run
	r, err = Load(writeConfig(t, "estimate: true\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Samples != 0 {
		t.Errorf("open-ended estimate: want samples 0, got %d", r.Samples)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("want error for missing file")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "samples: [not a number\n")
	if _, err := Load(path); err == nil {
		t.Fatal("want error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		run  Run
		ok   bool
	}{
		{"default single sample", Run{Samples: 1}, true},
		{"open-ended estimate", Run{Estimate: true}, true},
		{"negative samples", Run{Samples: -1}, false},
		{"negative timeout", Run{Samples: 1, TimeoutSeconds: -5}, false},
		{"open-ended without estimate", Run{}, false},
		{"tuples with as_evidence", Run{Samples: 1, Format: Format{Tuples: true, AsEvidence: true}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run.Validate()
			if tc.ok && err != nil {
				t.Fatalf("want valid, got %v", err)
			}
			if !tc.ok && !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Fatalf("want ErrInvalidConfig, got %v", err)
			}
		})
	}
}
