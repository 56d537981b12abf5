// Package distribution draws concrete values for distribution-annotated atoms.
// Continuous laws are sampled through gonum's distuv with an explicit random
// source; the weight they contribute to the discrete joint probability is 0
// by convention. constant/1 is deterministic with full mass.
package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/montelog/montelog/pkg/montelog/internalerr"
	"github.com/montelog/montelog/pkg/montelog/program"
)

// Descriptor names a distribution and carries its raw argument terms.
// Arguments are validated when a value is drawn, not at parse time, so an
// unknown or malformed distribution only fails the round that samples it.
type Descriptor struct {
	Functor string
	Args    []program.Term
}

// FromTerm interprets an annotation term as a distribution descriptor.
func FromTerm(t program.Term) (Descriptor, bool) {
	switch x := t.(type) {
	case program.Atom:
		return Descriptor{Functor: string(x)}, true
	case program.Compound:
		return Descriptor{Functor: x.Functor, Args: x.Args}, true
	}
	return Descriptor{}, false
}

func (d Descriptor) String() string {
	if len(d.Args) == 0 {
		return d.Functor
	}
	return program.Compound{Functor: d.Functor, Args: d.Args}.String()
}

// Sampler draws values from distribution descriptors using a single explicit
// pseudo-random source.
type Sampler struct {
	rng *rand.Rand
}

// New creates a Sampler on the given generator.
func New(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

// SampleValue draws one value from the described distribution and returns it
// together with the probability mass the draw contributes to the joint
// product: 1.0 for constant/1, 0.0 for every random law.
func (s *Sampler) SampleValue(d Descriptor) (program.Term, float64, error) {
	switch d.Functor {
	case "constant":
		if len(d.Args) != 1 {
			return nil, 0, fmt.Errorf("%w: constant/%d, want constant/1",
				internalerr.ErrUnsupportedDistribution, len(d.Args))
		}
		return d.Args[0], 1.0, nil
	case "normal":
		args, err := d.floatArgs(2)
		if err != nil {
			return nil, 0, err
		}
		v := distuv.Normal{Mu: args[0], Sigma: args[1], Src: s.rng}.Rand()
		return program.Number(v), 0.0, nil
	case "exponential":
		args, err := d.floatArgs(1)
		if err != nil {
			return nil, 0, err
		}
		v := distuv.Exponential{Rate: args[0], Src: s.rng}.Rand()
		return program.Number(v), 0.0, nil
	case "beta":
		args, err := d.floatArgs(2)
		if err != nil {
			return nil, 0, err
		}
		v := distuv.Beta{Alpha: args[0], Beta: args[1], Src: s.rng}.Rand()
		return program.Number(v), 0.0, nil
	case "gamma":
		args, err := d.floatArgs(2)
		if err != nil {
			return nil, 0, err
		}
		v := distuv.Gamma{Alpha: args[0], Beta: args[1], Src: s.rng}.Rand()
		return program.Number(v), 0.0, nil
	case "uniform":
		args, err := d.floatArgs(2)
		if err != nil {
			return nil, 0, err
		}
		v := distuv.Uniform{Min: args[0], Max: args[1], Src: s.rng}.Rand()
		return program.Number(v), 0.0, nil
	case "poisson":
		args, err := d.floatArgs(1)
		if err != nil {
			return nil, 0, err
		}
		return program.Number(samplePoisson(s.rng, args[0])), 0.0, nil
	}
	return nil, 0, fmt.Errorf("%w: %q", internalerr.ErrUnsupportedDistribution, d.Functor)
}

func (d Descriptor) floatArgs(n int) ([]float64, error) {
	if len(d.Args) != n {
		return nil, fmt.Errorf("%w: %s/%d, want %s/%d",
			internalerr.ErrUnsupportedDistribution, d.Functor, len(d.Args), d.Functor, n)
	}
	out := make([]float64, n)
	for i, a := range d.Args {
		num, ok := a.(program.Number)
		if !ok {
			return nil, fmt.Errorf("%w: %s argument %s is not numeric",
				internalerr.ErrUnsupportedDistribution, d.Functor, a)
		}
		out[i] = float64(num)
	}
	return out, nil
}

// samplePoisson draws a Poisson variate without a library sampler. Below
// lambda 30 it uses Knuth's multiplicative method; above, a transformed
// rejection method with a logistic proposal.
// See http://www.johndcook.com/blog/2010/06/14/generating-poisson-random-values/
func samplePoisson(rng *rand.Rand, lambda float64) float64 {
	if lambda >= 30 {
		c := 0.767 - 3.36/lambda
		beta := math.Pi / math.Sqrt(3.0*lambda)
		alpha := beta * lambda
		k := math.Log(c) - lambda - math.Log(beta)

		for {
			u := rng.Float64()
			x := (alpha - math.Log((1.0-u)/u)) / beta
			n := math.Floor(x + 0.5)
			if n < 0 {
				continue
			}
			v := rng.Float64()
			y := alpha - beta*x
			denom := 1.0 + math.Exp(y)
			lhs := y + math.Log(v/(denom*denom))
			lg, _ := math.Lgamma(n + 1)
			rhs := k + n*math.Log(lambda) - lg
			if lhs <= rhs {
				return n
			}
		}
	}

	threshold := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		k++
		p *= rng.Float64()
		if p <= threshold {
			return float64(k - 1)
		}
	}
}
