// Command sample-cli samples possible worlds from a probabilistic logic
// program, or estimates query probabilities from accepted samples.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/montelog/montelog/pkg/montelog"
	"github.com/montelog/montelog/pkg/montelog/config"
	"github.com/montelog/montelog/pkg/montelog/internalerr"
	"github.com/montelog/montelog/pkg/montelog/world"
)

func main() {
	var (
		programPath = flag.String("f", "", "Program file (required)")
		configPath  = flag.String("config", "", "Run configuration YAML (optional)")
		n           = flag.Int("N", 1, "Number of samples")
		estimate    = flag.Bool("estimate", false, "Estimate probability of queries from samples")
		withFacts   = flag.Bool("with-facts", false, "Also output choice facts (default: just queries)")
		withProb    = flag.Bool("with-probability", false, "Show world probability")
		asEvidence  = flag.Bool("as-evidence", false, "Output as evidence")
		oneline     = flag.Bool("oneline", false, "Format each sample on one line")
		tuples      = flag.Bool("tuples", false, "Output structured tuples")
		timeout     = flag.Int("timeout", 0, "Timeout in seconds (default: off)")
		seed        = flag.Uint64("seed", 0, "Random seed (default: from clock)")
	)
	flag.Parse()

	if *programPath == "" && flag.NArg() > 0 {
		*programPath = flag.Arg(0)
	}
	if *programPath == "" {
		log.Fatal("-f program file required")
	}

	run := &config.Run{
		Seed:           *seed,
		Samples:        *n,
		Estimate:       *estimate,
		TimeoutSeconds: *timeout,
		Format: config.Format{
			WithFacts:       *withFacts,
			WithProbability: *withProb,
			OneLine:         *oneline,
			AsEvidence:      *asEvidence,
			Tuples:          *tuples,
		},
	}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		mergeFlags(loaded, run)
		run = loaded
	}
	if err := run.Validate(); err != nil {
		log.Fatal(err)
	}

	source, err := os.ReadFile(*programPath)
	if err != nil {
		log.Fatal(err)
	}

	m, err := montelog.New(string(source), montelog.Options{Seed: run.Seed})
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if run.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(run.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	if run.Estimate {
		runEstimate(ctx, m, run.Samples)
		return
	}
	runSample(ctx, m, run)
}

// mergeFlags lets explicitly passed flags override file values.
func mergeFlags(dst, flags *config.Run) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "N":
			dst.Samples = flags.Samples
		case "seed":
			dst.Seed = flags.Seed
		case "estimate":
			dst.Estimate = flags.Estimate
		case "timeout":
			dst.TimeoutSeconds = flags.TimeoutSeconds
		case "with-facts":
			dst.Format.WithFacts = flags.Format.WithFacts
		case "with-probability":
			dst.Format.WithProbability = flags.Format.WithProbability
		case "oneline":
			dst.Format.OneLine = flags.Format.OneLine
		case "as-evidence":
			dst.Format.AsEvidence = flags.Format.AsEvidence
		case "tuples":
			dst.Format.Tuples = flags.Format.Tuples
		}
	})
}

func runSample(ctx context.Context, m *montelog.Montelog, run *config.Run) {
	opts := world.FormatOptions{
		WithFacts:       run.Format.WithFacts,
		WithProbability: run.Format.WithProbability,
		OneLine:         run.Format.OneLine,
		AsEvidence:      run.Format.AsEvidence,
	}

	smp := m.Sampler()
	it := smp.Sample(ctx, run.Samples, opts)
	if run.Format.Tuples {
		it = smp.SampleTuples(ctx, run.Samples)
	}

	first := true
	for {
		rec, ok := it.Next()
		if !ok {
			break
		}
		if run.Format.Tuples {
			for _, t := range rec.Tuples {
				fmt.Println(tupleString(t))
			}
			continue
		}
		if !run.Format.OneLine && !first {
			fmt.Println("----------------")
		}
		first = false
		fmt.Println(rec.Text)
	}
	if err := it.Err(); err != nil {
		log.Fatal(err)
	}
}

func tupleString(t world.Tuple) string {
	s := "(" + t.Functor
	for _, a := range t.Args {
		s += ", " + a.String()
	}
	if t.Value != nil {
		s += ", " + t.Value.String()
	} else {
		s += ", -"
	}
	return s + ")"
}

func runEstimate(ctx context.Context, m *montelog.Montelog, n int) {
	est, err := m.Estimate(ctx, n)
	if err != nil {
		log.Fatal(err)
	}
	if est.Rounds == 0 {
		log.Fatalf("%v: no world satisfied the evidence before the run ended", internalerr.ErrNoSolutions)
	}
	fmt.Printf("%% Probability estimate after %d samples:\n", est.Rounds)
	atoms := make([]string, 0, len(est.Freq))
	for atom := range est.Freq {
		atoms = append(atoms, atom)
	}
	sort.Strings(atoms)
	for _, atom := range atoms {
		fmt.Printf("%s:\t%g\n", atom, est.Freq[atom])
	}
}
