// Package montelog is a Monte-Carlo sampling engine for probabilistic logic
// programs. Each sampling round produces one self-consistent random possible
// world, tracks its joint probability, and supports evidence-conditioned
// rejection and frequency estimation of query atoms.
package montelog

import (
	"context"
	"time"

	"github.com/montelog/montelog/pkg/montelog/ground"
	"github.com/montelog/montelog/pkg/montelog/ground/simple"
	"github.com/montelog/montelog/pkg/montelog/program"
	"github.com/montelog/montelog/pkg/montelog/sampler"
	"github.com/montelog/montelog/pkg/montelog/world"
)

// Montelog is the main engine facade: a compiled program plus a sampler
// ready to run rounds.
type Montelog struct {
	eng ground.Engine
	db  *ground.Database
	smp *sampler.Sampler
}

// Options configures a Montelog instance.
type Options struct {
	// Engine grounds programs; defaults to the built-in SLD engine.
	Engine ground.Engine
	// Seed for the sampling random stream; 0 seeds from the clock.
	Seed uint64
}

// New parses and compiles a program and wires a sampler for it.
func New(source string, opts Options) (*Montelog, error) {
	prog, err := program.Parse(source)
	if err != nil {
		return nil, err
	}
	eng := opts.Engine
	if eng == nil {
		eng = simple.New()
	}
	db, err := eng.Prepare(prog)
	if err != nil {
		return nil, err
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	smp, err := sampler.New(sampler.Options{Engine: eng, DB: db, Seed: seed})
	if err != nil {
		return nil, err
	}
	return &Montelog{eng: eng, db: db, smp: smp}, nil
}

// Sampler exposes the underlying round driver.
func (m *Montelog) Sampler() *sampler.Sampler { return m.smp }

// Sample draws up to n accepted worlds and returns their records.
func (m *Montelog) Sample(ctx context.Context, n int, opts world.FormatOptions) ([]sampler.WorldRecord, error) {
	it := m.smp.Sample(ctx, n, opts)
	var out []sampler.WorldRecord
	for {
		rec, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, rec)
	}
	return out, it.Err()
}

// SampleStrings is Sample reduced to the serialized world texts.
func (m *Montelog) SampleStrings(ctx context.Context, n int, opts world.FormatOptions) ([]string, error) {
	recs, err := m.Sample(ctx, n, opts)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Text
	}
	return out, nil
}

// Estimate runs evidence-conditioned rounds and returns empirical query
// frequencies. n == 0 runs until the context is cancelled.
func (m *Montelog) Estimate(ctx context.Context, n int) (sampler.Estimates, error) {
	return m.smp.Estimate(ctx, n)
}
