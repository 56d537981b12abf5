package distribution

import (
	"errors"
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/montelog/montelog/pkg/montelog/internalerr"
	"github.com/montelog/montelog/pkg/montelog/program"
)

func newSampler(seed uint64) *Sampler {
	return New(rand.New(rand.NewSource(seed)))
}

func num(v float64) program.Term { return program.Number(v) }

func TestSampleValue_Constant(t *testing.T) {
	s := newSampler(1)
	v, weight, err := s.SampleValue(Descriptor{Functor: "constant", Args: []program.Term{program.Atom("red")}})
	if err != nil {
		t.Fatalf("SampleValue: %v", err)
	}
	if v.String() != "red" {
		t.Errorf("constant value: want red, got %s", v)
	}
	if weight != 1.0 {
		t.Errorf("constant weight: want 1.0, got %g", weight)
	}
}

func TestSampleValue_ContinuousWeightIsZero(t *testing.T) {
	s := newSampler(1)
	descriptors := []Descriptor{
		{Functor: "normal", Args: []program.Term{num(0), num(1)}},
		{Functor: "exponential", Args: []program.Term{num(2)}},
		{Functor: "beta", Args: []program.Term{num(2), num(3)}},
		{Functor: "gamma", Args: []program.Term{num(2), num(1)}},
		{Functor: "uniform", Args: []program.Term{num(0), num(10)}},
		{Functor: "poisson", Args: []program.Term{num(4)}},
	}
	for _, d := range descriptors {
		v, weight, err := s.SampleValue(d)
		if err != nil {
			t.Fatalf("%s: %v", d.Functor, err)
		}
		if _, ok := v.(program.Number); !ok {
			t.Errorf("%s: want numeric value, got %s", d.Functor, v)
		}
		if weight != 0.0 {
			t.Errorf("%s: random law weight must be 0.0, got %g", d.Functor, weight)
		}
	}
}

func TestSampleValue_UnknownFunctor(t *testing.T) {
	s := newSampler(1)
	_, _, err := s.SampleValue(Descriptor{Functor: "cauchy", Args: []program.Term{num(0)}})
	if !errors.Is(err, internalerr.ErrUnsupportedDistribution) {
		t.Fatalf("want ErrUnsupportedDistribution, got %v", err)
	}
}

func TestSampleValue_BadArguments(t *testing.T) {
	s := newSampler(1)
	tests := []Descriptor{
		{Functor: "normal", Args: []program.Term{num(0)}},
		{Functor: "constant"},
		{Functor: "poisson", Args: []program.Term{program.Atom("five")}},
	}
	for _, d := range tests {
		if _, _, err := s.SampleValue(d); !errors.Is(err, internalerr.ErrUnsupportedDistribution) {
			t.Errorf("%s: want ErrUnsupportedDistribution, got %v", d, err)
		}
	}
}

func TestSampleValue_NormalMoments(t *testing.T) {
	s := newSampler(42)
	const n = 20000
	draws := make([]float64, n)
	d := Descriptor{Functor: "normal", Args: []program.Term{num(5), num(2)}}
	for i := range draws {
		v, _, err := s.SampleValue(d)
		if err != nil {
			t.Fatalf("SampleValue: %v", err)
		}
		draws[i] = float64(v.(program.Number))
	}
	mean := stat.Mean(draws, nil)
	sd := math.Sqrt(stat.Variance(draws, nil))
	if math.Abs(mean-5) > 4*2/math.Sqrt(n) {
		t.Errorf("normal(5,2) mean: got %g", mean)
	}
	if math.Abs(sd-2) > 0.1 {
		t.Errorf("normal(5,2) sd: got %g", sd)
	}
}

// Poisson moments for both code paths: the multiplicative regime below
// lambda 30 and the transformed rejection regime above.
func TestSamplePoisson_Moments(t *testing.T) {
	const n = 10000
	for _, lambda := range []float64{5, 50} {
		s := newSampler(uint64(lambda))
		d := Descriptor{Functor: "poisson", Args: []program.Term{num(lambda)}}
		draws := make([]float64, n)
		for i := range draws {
			v, _, err := s.SampleValue(d)
			if err != nil {
				t.Fatalf("lambda=%g: %v", lambda, err)
			}
			f := float64(v.(program.Number))
			if f != math.Trunc(f) || f < 0 {
				t.Fatalf("lambda=%g: non-integral draw %g", lambda, f)
			}
			draws[i] = f
		}

		mean := stat.Mean(draws, nil)
		variance := stat.Variance(draws, nil)
		// standard error of the mean is sqrt(lambda/n)
		tol := 4 * math.Sqrt(lambda/n)
		if math.Abs(mean-lambda) > tol {
			t.Errorf("lambda=%g: mean %g outside %g of lambda", lambda, mean, tol)
		}
		// variance of the sample variance is roughly (2*lambda^2+lambda)/n
		vtol := 4 * math.Sqrt((2*lambda*lambda+lambda)/n)
		if math.Abs(variance-lambda) > vtol {
			t.Errorf("lambda=%g: variance %g outside %g of lambda", lambda, variance, vtol)
		}
	}
}

func TestFromTerm(t *testing.T) {
	d, ok := FromTerm(program.Compound{Functor: "normal", Args: []program.Term{num(0), num(1)}})
	if !ok || d.Functor != "normal" || len(d.Args) != 2 {
		t.Errorf("FromTerm compound: got %+v, ok=%v", d, ok)
	}
	if _, ok := FromTerm(program.Number(0.5)); ok {
		t.Error("FromTerm must reject plain numbers")
	}
	if _, ok := FromTerm(program.Variable("X")); ok {
		t.Error("FromTerm must reject variables")
	}
}
