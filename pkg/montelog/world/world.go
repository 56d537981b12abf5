// Package world holds the per-round sample store. A World records every
// random choice made while one possible world is grounded: Boolean outcomes
// of probabilistic facts, committed alternatives of annotated disjunctions,
// materialized distribution values and the running joint probability.
//
// A World is created fresh for each sampling round, is exclusively owned by
// that round, and is discarded after serialization. It is not safe for
// concurrent use and never needs to be.
package world

import (
	"fmt"

	"github.com/montelog/montelog/pkg/montelog/distribution"
	"github.com/montelog/montelog/pkg/montelog/internalerr"
	"github.com/montelog/montelog/pkg/montelog/program"
)

// Node is the resolved outcome of an atom in one world: proven true, proven
// false, or a handle to a sampled value.
type Node int

const (
	// NodeTrue marks a plain proven atom with no attached value.
	NodeTrue Node = 0
	// NodeFalse marks a disproved atom.
	NodeFalse Node = -1
)

// Live reports whether the node carries a sampled value. Positive nodes are
// 1-based indices into the world's value list.
func (n Node) Live() bool { return n > 0 }

// AtomID identifies one ground probabilistic atom within a round. Choice is
// the alternative index for annotated-disjunction atoms and -1 for plain
// facts. Label is the printable form of the atom; it is a pure function of
// the other fields and does not affect identity semantics.
type AtomID struct {
	Clause int
	Args   string
	Choice int
	Label  string
}

// FactID builds the identity of a plain probabilistic fact.
func FactID(clause int, args, label string) AtomID {
	return AtomID{Clause: clause, Args: args, Choice: -1, Label: label}
}

// ChoiceID builds the identity of one alternative of an annotated
// disjunction.
func ChoiceID(group int, args string, choice int, label string) AtomID {
	return AtomID{Clause: group, Args: args, Choice: choice, Label: label}
}

// Origin is the renormalization key shared by all alternatives of one
// disjunction instance.
type Origin struct {
	Group int
	Args  string
}

func (id AtomID) origin() Origin { return Origin{Group: id.Clause, Args: id.Args} }

// Annotation is the probability attached to an atom: a plain weight, or a
// distribution descriptor. A nil *Annotation means no probability is defined.
type Annotation struct {
	Weight float64
	Dist   *distribution.Descriptor
}

// WeightAnnotation wraps a plain numeric probability.
func WeightAnnotation(p float64) *Annotation {
	return &Annotation{Weight: p}
}

// DistAnnotation wraps a distribution descriptor.
func DistAnnotation(d distribution.Descriptor) *Annotation {
	return &Annotation{Dist: &d}
}

// UniformSource yields uniform draws in [0,1). *rand.Rand satisfies it;
// tests substitute scripted sequences.
type UniformSource interface {
	Float64() float64
}

// ValueSampler draws a concrete value for a distribution descriptor.
// *distribution.Sampler satisfies it.
type ValueSampler interface {
	SampleValue(d distribution.Descriptor) (program.Term, float64, error)
}

// Result pairs a query or evidence atom with its resolved node.
type Result struct {
	Atom program.Term
	Node Node
}

// Below this leftover mass a disjunction is treated as exhausted; repeated
// floating-point subtraction can push the remainder slightly negative.
const massEpsilon = 1e-8

// World is the sample store for one round.
type World struct {
	rng UniformSource
	vs  ValueSampler

	facts  map[AtomID]Node
	values []program.Term
	// remaining mass per disjunction instance; nil entry = an alternative
	// already committed, absent entry = full mass 1.0
	groups      map[Origin]*float64
	probability float64

	queries  []Result
	evidence []Result
}

// New creates an empty World drawing uniforms from rng and distribution
// values from vs.
func New(rng UniformSource, vs ValueSampler) *World {
	return &World{
		rng:         rng,
		vs:          vs,
		facts:       make(map[AtomID]Node),
		groups:      make(map[Origin]*float64),
		probability: 1.0,
	}
}

// Probability returns the running joint probability of all committed choices.
func (w *World) Probability() float64 { return w.probability }

// Value returns the materialized value behind a node, or nil for Boolean
// nodes.
func (w *World) Value(n Node) program.Term {
	if !n.Live() {
		return nil
	}
	return w.values[n-1]
}

func (w *World) addValue(v program.Term) Node {
	w.values = append(w.values, v)
	return Node(len(w.values))
}

// AddAtom resolves a probabilistic atom, drawing its outcome on first sight
// and returning the memoized node on every later reference. A nil annotation
// models an atom without a defined probability and resolves true at no cost.
func (w *World) AddAtom(id AtomID, ann *Annotation) (Node, error) {
	if ann == nil {
		return NodeTrue, nil
	}
	if node, ok := w.facts[id]; ok {
		return node, nil
	}

	var node Node
	switch {
	case ann.Dist != nil:
		value, weight, err := w.vs.SampleValue(*ann.Dist)
		if err != nil {
			return NodeFalse, err
		}
		w.probability *= weight
		node = w.addValue(value)
	case id.Choice >= 0:
		node = w.drawChoice(id, ann.Weight)
	default:
		node = w.drawFact(ann.Weight)
	}
	w.facts[id] = node
	return node, nil
}

func (w *World) drawFact(p float64) Node {
	if w.rng.Float64() < p {
		w.probability *= p
		return NodeTrue
	}
	w.probability *= 1 - p
	return NodeFalse
}

// drawChoice resolves one alternative of an annotated disjunction. The draw
// is conditioned on the mass still unclaimed by earlier alternatives of the
// same instance; a winning alternative contributes its unconditional mass
// and locks the instance.
func (w *World) drawChoice(id AtomID, p float64) Node {
	origin := id.origin()
	remaining, seen := w.groups[origin]
	if !seen {
		full := 1.0
		remaining = &full
	}

	if remaining == nil || *remaining < massEpsilon {
		// another alternative already won, or the mass is exhausted
		return NodeFalse
	}

	q := p / *remaining
	if w.rng.Float64() <= q {
		w.probability *= p
		w.groups[origin] = nil
		return NodeTrue
	}
	rest := *remaining - p
	w.groups[origin] = &rest
	return NodeFalse
}

// ComputeProbability settles the joint probability: every disjunction
// instance in which no alternative fired contributes its leftover mass,
// covering the implicit "none of the above" outcome. The bookkeeping is
// cleared, so repeated calls are no-ops.
func (w *World) ComputeProbability() {
	for _, remaining := range w.groups {
		if remaining != nil {
			w.probability *= *remaining
		}
	}
	w.groups = make(map[Origin]*float64)
}

// AddAnd combines the nodes of a conjunction. At most one operand may carry
// a sampled value; a second live operand means the program combines sampled
// results structurally, which per-world sampling cannot express.
func (w *World) AddAnd(nodes []Node) (Node, error) {
	if countLive(nodes) > 1 {
		return NodeFalse, fmt.Errorf(
			"%w: cannot combine sampled values in a conjunction, use sample/2 to extract the value",
			internalerr.ErrModelingConflict)
	}
	out := NodeTrue
	for _, n := range nodes {
		if n == NodeFalse {
			return NodeFalse, nil
		}
		if n.Live() {
			out = n
		}
	}
	return out, nil
}

// AddOr combines the nodes of alternative derivations of one goal.
func (w *World) AddOr(nodes []Node) (Node, error) {
	if countLive(nodes) > 1 {
		return NodeFalse, fmt.Errorf(
			"%w: cannot combine sampled values across derivations, make sure clause bodies are mutually exclusive",
			internalerr.ErrModelingConflict)
	}
	out := NodeFalse
	for _, n := range nodes {
		if n == NodeTrue {
			return NodeTrue, nil
		}
		if n.Live() {
			out = n
		}
	}
	return out, nil
}

func countLive(nodes []Node) int {
	live := 0
	for _, n := range nodes {
		if n.Live() {
			live++
		}
	}
	return live
}

// AddQuery records the resolved node of a query atom.
func (w *World) AddQuery(atom program.Term, node Node) {
	w.queries = append(w.queries, Result{Atom: atom, Node: node})
}

// AddEvidence records the resolved node of an evidence atom.
func (w *World) AddEvidence(atom program.Term, node Node) {
	w.evidence = append(w.evidence, Result{Atom: atom, Node: node})
}

// Queries returns the recorded query results in registration order.
func (w *World) Queries() []Result { return w.queries }

// Evidence returns the recorded evidence results in registration order.
func (w *World) Evidence() []Result { return w.evidence }

// EvidenceSatisfied reports whether every evidence atom resolved to a
// non-false node.
func (w *World) EvidenceSatisfied() bool {
	for _, ev := range w.evidence {
		if ev.Node == NodeFalse {
			return false
		}
	}
	return true
}

// Facts exposes the resolved probabilistic atoms of the round, keyed by
// identity. The map is the world's own; callers must not mutate it.
func (w *World) Facts() map[AtomID]Node { return w.facts }
