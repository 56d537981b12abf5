// Package sampler drives repeated sampling rounds: each round grounds the
// whole program against a fresh world, checks evidence, and either yields the
// accepted world or silently discards it and retries. Rejection is unbounded;
// a program whose evidence is rarely satisfied may loop until the context
// expires.
package sampler

import (
	"context"
	crand "crypto/rand"
	"fmt"

	"github.com/oklog/ulid/v2"
	"golang.org/x/exp/rand"

	"github.com/montelog/montelog/pkg/montelog/distribution"
	"github.com/montelog/montelog/pkg/montelog/ground"
	"github.com/montelog/montelog/pkg/montelog/world"
)

// Sampler runs rounds of a prepared program. One Sampler owns one random
// stream; rounds are sequential.
type Sampler struct {
	eng     ground.Engine
	db      *ground.Database
	rng     *rand.Rand
	dist    *distribution.Sampler
	entropy *ulid.MonotonicEntropy
}

// Options configures a Sampler.
type Options struct {
	Engine ground.Engine
	DB     *ground.Database
	Seed   uint64
}

// New creates a Sampler and installs the sample/2 builtin on the engine.
func New(opts Options) (*Sampler, error) {
	if opts.Engine == nil || opts.DB == nil {
		return nil, fmt.Errorf("sampler: engine and database are required")
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	s := &Sampler{
		eng:     opts.Engine,
		db:      opts.DB,
		rng:     rng,
		dist:    distribution.New(rng),
		entropy: ulid.Monotonic(crand.Reader, 0),
	}
	s.eng.RegisterBuiltin("sample", 2, builtinSample)
	return s, nil
}

// NewWorld creates a fresh world on the sampler's random stream.
func (s *Sampler) NewWorld() *world.World {
	return world.New(s.rng, s.dist)
}

// round grounds one fresh world and reports whether its evidence held.
func (s *Sampler) round() (*world.World, bool, error) {
	w := s.NewWorld()
	if err := s.eng.GroundAll(s.db, w); err != nil {
		return nil, false, err
	}
	return w, w.EvidenceSatisfied(), nil
}

// WorldRecord is one accepted world, serialized.
type WorldRecord struct {
	ID          string
	Text        string
	Tuples      []world.Tuple
	Probability float64
}

// Iterator yields accepted worlds on demand. Each Next call retries rejected
// rounds internally until a world is accepted, the requested count is
// reached, or the context is done. Dropping the iterator leaks nothing.
type Iterator struct {
	s        *Sampler
	ctx      context.Context
	n        int
	produced int
	opts     world.FormatOptions
	tuples   bool
	err      error
}

// Sample returns an iterator over up to n accepted worlds rendered with the
// given format options.
func (s *Sampler) Sample(ctx context.Context, n int, opts world.FormatOptions) *Iterator {
	return &Iterator{s: s, ctx: ctx, n: n, opts: opts}
}

// SampleTuples is Sample with structured records instead of text.
func (s *Sampler) SampleTuples(ctx context.Context, n int) *Iterator {
	return &Iterator{s: s, ctx: ctx, n: n, tuples: true}
}

// Next produces the next accepted world. It returns false when the requested
// count is reached, the context is done, or a round failed; Err tells the
// difference.
func (it *Iterator) Next() (WorldRecord, bool) {
	if it.err != nil || it.produced >= it.n {
		return WorldRecord{}, false
	}
	for {
		if err := it.ctx.Err(); err != nil {
			return WorldRecord{}, false
		}
		w, ok, err := it.s.round()
		if err != nil {
			it.err = err
			return WorldRecord{}, false
		}
		if !ok {
			continue // evidence unsatisfied, discard and retry
		}
		it.produced++
		rec := WorldRecord{ID: ulid.MustNew(ulid.Now(), it.s.entropy).String()}
		if it.tuples {
			w.ComputeProbability()
			rec.Tuples = w.Tuples()
		} else {
			rec.Text = w.Format(it.opts)
		}
		rec.Probability = w.Probability()
		return rec, true
	}
}

// Err reports the first round error, if any.
func (it *Iterator) Err() error { return it.err }

// Estimates holds empirical true-frequencies per query atom after a number
// of accepted rounds.
type Estimates struct {
	Rounds int
	Freq   map[string]float64
}

// Estimate accumulates query frequencies over accepted rounds. With n == 0 it
// runs until the context is cancelled and returns whatever was accumulated;
// with zero accepted rounds the frequency map is empty rather than divided
// by zero. Value-bearing query resolutions do not count toward frequencies.
func (s *Sampler) Estimate(ctx context.Context, n int) (Estimates, error) {
	counts := make(map[string]float64)
	accepted := 0
	for n == 0 || accepted < n {
		if ctx.Err() != nil {
			break
		}
		w, ok, err := s.round()
		if err != nil {
			return Estimates{}, err
		}
		if !ok {
			continue
		}
		for _, q := range w.Queries() {
			if q.Node == world.NodeTrue {
				counts[q.Atom.String()]++
			}
		}
		accepted++
	}

	est := Estimates{Rounds: accepted, Freq: make(map[string]float64, len(counts))}
	if accepted == 0 {
		return est, nil
	}
	for atom, c := range counts {
		est.Freq[atom] = c / float64(accepted)
	}
	return est, nil
}
