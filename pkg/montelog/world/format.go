package world

import (
	"fmt"
	"sort"
	"strings"

	"github.com/montelog/montelog/pkg/montelog/program"
)

// FormatOptions controls the textual rendering of an accepted world.
type FormatOptions struct {
	WithFacts       bool // also print the resolved probabilistic facts
	WithProbability bool // append a % Probability comment line
	OneLine         bool // join lines with spaces instead of newlines
	AsEvidence      bool // render as evidence/1 facts, including negatives
}

// Format settles the joint probability and renders the world per the output
// contract: `atom.` for proven Boolean queries, `atom = value.` for
// value-bearing ones, nothing for disproved queries unless evidence
// formatting is requested.
func (w *World) Format(opts FormatOptions) string {
	w.ComputeProbability()

	base := "%s."
	if opts.AsEvidence {
		base = "evidence(%s)."
	}

	var lines []string
	for _, q := range w.queries {
		switch {
		case q.Node == NodeFalse:
			if opts.AsEvidence {
				lines = append(lines, fmt.Sprintf(base, "\\+"+q.Atom.String()))
			}
		case q.Node.Live():
			if !opts.AsEvidence {
				lines = append(lines, fmt.Sprintf("%s = %s.", q.Atom, w.Value(q.Node)))
			}
		default:
			lines = append(lines, fmt.Sprintf(base, q.Atom))
		}
	}

	if opts.WithFacts {
		factLines := make([]string, 0, len(w.facts))
		for id, node := range w.facts {
			switch node {
			case NodeTrue:
				factLines = append(factLines, fmt.Sprintf(base, id.Label))
			case NodeFalse:
				factLines = append(factLines, fmt.Sprintf(base, "\\+"+id.Label))
			}
		}
		sort.Strings(factLines)
		lines = append(lines, factLines...)
	}

	lines = dedupe(lines)
	if opts.WithProbability {
		lines = append(lines, fmt.Sprintf("%% Probability: %.8g", w.probability))
	}

	sep := "\n"
	if opts.OneLine {
		sep = " "
	}
	return strings.Join(lines, sep)
}

// Tuple is one structured query record: functor, resolved arguments and the
// sampled value, nil when the query is a plain Boolean.
type Tuple struct {
	Functor string
	Args    []program.Term
	Value   program.Term
}

// Tuples renders the proven queries as structured records, one per resolved
// query, deduplicated.
func (w *World) Tuples() []Tuple {
	var out []Tuple
	seen := map[string]bool{}
	for _, q := range w.queries {
		if q.Node == NodeFalse {
			continue
		}
		functor, args, err := program.MustCallable(q.Atom)
		if err != nil {
			continue
		}
		t := Tuple{Functor: functor, Args: args, Value: w.Value(q.Node)}
		key := q.Atom.String()
		if t.Value != nil {
			key += "=" + t.Value.String()
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func dedupe(lines []string) []string {
	seen := map[string]bool{}
	out := lines[:0]
	for _, l := range lines {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
