// Package simple is a depth-first SLD resolution engine in pure Go. It
// resolves goals against the clause database and reports every probabilistic
// or derived atom it visits to the round's world, which owns all sampling
// decisions. The engine itself keeps no per-round state.
package simple

import (
	"fmt"
	"math"
	"strconv"

	"github.com/montelog/montelog/pkg/montelog/distribution"
	"github.com/montelog/montelog/pkg/montelog/ground"
	"github.com/montelog/montelog/pkg/montelog/internalerr"
	"github.com/montelog/montelog/pkg/montelog/program"
	"github.com/montelog/montelog/pkg/montelog/world"
)

// maxDepth bounds the derivation depth so runaway recursion fails instead of
// hanging a round.
const maxDepth = 256

// Engine implements ground.Engine.
type Engine struct {
	builtins map[string]ground.Builtin
	counter  int
}

// New creates an engine with no extra builtins registered.
func New() *Engine {
	return &Engine{builtins: make(map[string]ground.Builtin)}
}

// RegisterBuiltin installs a handler for name/arity goals. Registered
// builtins shadow user clauses with the same indicator.
func (e *Engine) RegisterBuiltin(name string, arity int, fn ground.Builtin) {
	e.builtins[name+"/"+strconv.Itoa(arity)] = fn
}

// Prepare validates and indexes a parsed program.
func (e *Engine) Prepare(p *program.Program) (*ground.Database, error) {
	for _, c := range p.Clauses {
		sum := 0.0
		weighted := 0
		for _, h := range c.Heads {
			if h.Ann == nil {
				continue
			}
			if n, ok := h.Ann.(program.Number); ok {
				if n < 0 || n > 1 {
					return nil, fmt.Errorf("%w: probability %s out of range in %s",
						internalerr.ErrInvalidProgram, n, c)
				}
				sum += float64(n)
				weighted++
			}
		}
		if c.IsChoice() && weighted > 1 && sum > 1+1e-9 {
			return nil, fmt.Errorf("%w: annotated disjunction mass %g exceeds 1 in %s",
				internalerr.ErrInvalidProgram, sum, c)
		}
	}
	return ground.NewDatabase(p), nil
}

// GroundAll resolves every declared query and evidence atom against the
// target world.
func (e *Engine) GroundAll(db *ground.Database, target *world.World) error {
	s := &session{e: e, db: db, w: target}
	for _, q := range db.Queries {
		sols, err := s.solve(q, program.Bindings{}, 0)
		if err != nil {
			return err
		}
		if len(sols) == 0 {
			target.AddQuery(q, world.NodeFalse)
			continue
		}
		for _, sol := range sols {
			target.AddQuery(sol.Bindings.Resolve(q), sol.Node)
		}
	}
	for _, ev := range db.Evidence {
		sols, err := s.solve(ev.Atom, program.Bindings{}, 0)
		if err != nil {
			return err
		}
		if len(sols) == 0 {
			target.AddEvidence(ev.Atom, evidenceNode(world.NodeFalse, ev.Want))
			continue
		}
		for _, sol := range sols {
			target.AddEvidence(sol.Bindings.Resolve(ev.Atom), evidenceNode(sol.Node, ev.Want))
		}
	}
	return nil
}

// evidenceNode folds the declared polarity into the grounded node: negative
// evidence holds exactly when the atom is disproved.
func evidenceNode(n world.Node, want bool) world.Node {
	if want {
		return n
	}
	if n == world.NodeFalse {
		return world.NodeTrue
	}
	return world.NodeFalse
}

// Call resolves a goal as a sub-derivation, for builtins that re-enter the
// engine. The depth bound spans the outer derivation and the sub-derivation
// together.
func (e *Engine) Call(db *ground.Database, goal program.Term, b program.Bindings, target *world.World, depth int) ([]ground.Solution, error) {
	if b == nil {
		b = program.Bindings{}
	}
	s := &session{e: e, db: db, w: target}
	return s.solve(goal, b, depth)
}

// session bundles the immutable engine with the database and world of one
// grounding pass.
type session struct {
	e  *Engine
	db *ground.Database
	w  *world.World
}

// solve returns one solution per surviving derivation of the goal. It never
// mutates the bindings it is given.
func (s *session) solve(goal program.Term, b program.Bindings, depth int) ([]ground.Solution, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: while solving %s", internalerr.ErrDepthLimit, b.Resolve(goal))
	}
	goal = b.Walk(goal)
	functor, args, err := program.MustCallable(goal)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidProgram, err)
	}

	switch {
	case functor == "true" && len(args) == 0:
		return []ground.Solution{{Bindings: b, Node: world.NodeTrue}}, nil
	case (functor == "fail" || functor == "false") && len(args) == 0:
		return nil, nil
	case functor == "\\+" && len(args) == 1:
		sols, err := s.solve(args[0], b, depth+1)
		if err != nil {
			return nil, err
		}
		if len(sols) > 0 {
			return nil, nil
		}
		return []ground.Solution{{Bindings: b, Node: world.NodeTrue}}, nil
	case functor == "=" && len(args) == 2:
		nb := b.Clone()
		if !program.Unify(nb, args[0], args[1]) {
			return nil, nil
		}
		return []ground.Solution{{Bindings: nb, Node: world.NodeTrue}}, nil
	case functor == "is" && len(args) == 2:
		v, err := s.eval(b, args[1])
		if err != nil {
			return nil, err
		}
		nb := b.Clone()
		if !program.Unify(nb, args[0], program.Number(v)) {
			return nil, nil
		}
		return []ground.Solution{{Bindings: nb, Node: world.NodeTrue}}, nil
	case isComparison(functor) && len(args) == 2:
		ok, err := s.compare(b, functor, args[0], args[1])
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return []ground.Solution{{Bindings: b, Node: world.NodeTrue}}, nil
	}

	if fn, ok := s.e.builtins[functor+"/"+strconv.Itoa(len(args))]; ok {
		return fn(ground.BuiltinContext{Engine: s.e, DB: s.db, Target: s.w, Depth: depth}, args, b)
	}

	return s.solveUser(goal, functor, len(args), b, depth)
}

// solveUser resolves a goal against the clause database and merges multiple
// derivations of the same ground instance through the world's OR combinator.
func (s *session) solveUser(goal program.Term, functor string, arity int, b program.Bindings, depth int) ([]ground.Solution, error) {
	var raw []ground.Solution
	for _, ci := range s.db.ClausesFor(functor, arity) {
		clause := s.rename(s.db.Clauses[ci])
		for hi, head := range clause.Heads {
			if program.Indicator(head.Atom) != program.Indicator(goal) {
				continue
			}
			nb := b.Clone()
			if !program.Unify(nb, goal, head.Atom) {
				continue
			}
			bodySols, err := s.solveSeq(clause.Body, nb, depth)
			if err != nil {
				return nil, err
			}
			for _, bs := range bodySols {
				sol, ok, err := s.finishDerivation(clause, ci, hi, head, bs)
				if err != nil {
					return nil, err
				}
				if ok {
					raw = append(raw, sol)
				}
			}
		}
	}
	return s.mergeInstances(goal, raw)
}

type partial struct {
	b     program.Bindings
	nodes []world.Node
}

// solveSeq resolves a conjunction left to right, carrying the node of every
// goal along each solution branch.
func (s *session) solveSeq(goals []program.Term, b program.Bindings, depth int) ([]partial, error) {
	partials := []partial{{b: b}}
	for _, g := range goals {
		var next []partial
		for _, p := range partials {
			sols, err := s.solve(g, p.b, depth+1)
			if err != nil {
				return nil, err
			}
			for _, sol := range sols {
				nodes := make([]world.Node, len(p.nodes), len(p.nodes)+1)
				copy(nodes, p.nodes)
				next = append(next, partial{b: sol.Bindings, nodes: append(nodes, sol.Node)})
			}
		}
		partials = next
		if len(partials) == 0 {
			break
		}
	}
	return partials, nil
}

// finishDerivation draws the head atom's own random outcome if it carries a
// probability annotation and conjoins it with the body nodes.
func (s *session) finishDerivation(clause program.Clause, ci, hi int, head program.Head, bs partial) (ground.Solution, bool, error) {
	nodes := bs.nodes
	if head.Ann != nil {
		ann, err := s.annotation(bs.b, head.Ann)
		if err != nil {
			return ground.Solution{}, false, err
		}
		id := s.atomID(clause, ci, hi, head, bs.b)
		node, err := s.w.AddAtom(id, ann)
		if err != nil {
			return ground.Solution{}, false, err
		}
		if node == world.NodeFalse {
			return ground.Solution{}, false, nil
		}
		nodes = append(nodes, node)
	}
	conj, err := s.w.AddAnd(nodes)
	if err != nil {
		return ground.Solution{}, false, err
	}
	if conj == world.NodeFalse {
		return ground.Solution{}, false, nil
	}
	return ground.Solution{Bindings: bs.b, Node: conj}, true, nil
}

func (s *session) annotation(b program.Bindings, annTerm program.Term) (*world.Annotation, error) {
	resolved := b.Resolve(annTerm)
	switch x := resolved.(type) {
	case program.Number:
		return world.WeightAnnotation(float64(x)), nil
	case program.Compound:
		// arithmetic weight expressions like 1/6
		if isArith(x.Functor, len(x.Args)) {
			v, err := s.eval(b, x)
			if err != nil {
				return nil, err
			}
			return world.WeightAnnotation(v), nil
		}
	}
	d, ok := distribution.FromTerm(resolved)
	if !ok {
		return nil, fmt.Errorf("%w: probability annotation %s is not ground",
			internalerr.ErrInvalidProgram, resolved)
	}
	return world.DistAnnotation(d), nil
}

func isArith(functor string, arity int) bool {
	switch functor {
	case "+", "-", "*", "/":
		return arity == 2 || (functor == "-" && arity == 1)
	}
	return false
}

func (s *session) atomID(clause program.Clause, ci, hi int, head program.Head, b program.Bindings) world.AtomID {
	args := program.ArgsKey(b, head.Atom)
	if clause.IsChoice() {
		return world.ChoiceID(ci, args, hi, ground.ChoiceLabel(ci, hi, head.Atom, b))
	}
	return world.FactID(ci, args, b.Resolve(head.Atom).String())
}

// mergeInstances groups derivations by the ground instance they prove and
// folds each group through AddOr, surfacing a modeling conflict when two
// value-bearing derivations collide.
func (s *session) mergeInstances(goal program.Term, raw []ground.Solution) ([]ground.Solution, error) {
	if len(raw) <= 1 {
		return raw, nil
	}
	var order []string
	groups := make(map[string][]ground.Solution)
	for _, sol := range raw {
		key := sol.Bindings.Resolve(goal).String()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], sol)
	}
	out := make([]ground.Solution, 0, len(order))
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		nodes := make([]world.Node, len(group))
		for i, sol := range group {
			nodes[i] = sol.Node
		}
		// raw never holds false derivations, so the merge is true or live
		merged, err := s.w.AddOr(nodes)
		if err != nil {
			return nil, err
		}
		out = append(out, ground.Solution{Bindings: group[0].Bindings, Node: merged})
	}
	return out, nil
}

// rename instantiates a clause with fresh variables.
func (s *session) rename(c program.Clause) program.Clause {
	seen := make(map[program.Variable]program.Variable)
	next := func() program.Variable {
		s.e.counter++
		return program.Variable("_G" + strconv.Itoa(s.e.counter))
	}
	heads := make([]program.Head, len(c.Heads))
	for i, h := range c.Heads {
		heads[i] = program.Head{Atom: program.Rename(h.Atom, seen, next)}
		if h.Ann != nil {
			heads[i].Ann = program.Rename(h.Ann, seen, next)
		}
	}
	body := make([]program.Term, len(c.Body))
	for i, g := range c.Body {
		body[i] = program.Rename(g, seen, next)
	}
	return program.Clause{Heads: heads, Body: body}
}

func isComparison(functor string) bool {
	switch functor {
	case "<", ">", "=<", ">=", "=:=", "=\\=":
		return true
	}
	return false
}

func (s *session) compare(b program.Bindings, op string, lhs, rhs program.Term) (bool, error) {
	l, err := s.eval(b, lhs)
	if err != nil {
		return false, err
	}
	r, err := s.eval(b, rhs)
	if err != nil {
		return false, err
	}
	switch op {
	case "<":
		return l < r, nil
	case ">":
		return l > r, nil
	case "=<":
		return l <= r, nil
	case ">=":
		return l >= r, nil
	case "=:=":
		return l == r, nil
	case "=\\=":
		return l != r, nil
	}
	return false, fmt.Errorf("%w: unknown comparison %q", internalerr.ErrInvalidProgram, op)
}

// eval computes a ground arithmetic expression.
func (s *session) eval(b program.Bindings, t program.Term) (float64, error) {
	switch x := b.Walk(t).(type) {
	case program.Number:
		return float64(x), nil
	case program.Variable:
		return 0, fmt.Errorf("%w: unbound variable %s in arithmetic", internalerr.ErrInvalidProgram, x)
	case program.Atom:
		switch x {
		case "pi":
			return math.Pi, nil
		case "e":
			return math.E, nil
		}
		return 0, fmt.Errorf("%w: %s is not a number", internalerr.ErrInvalidProgram, x)
	case program.Compound:
		if len(x.Args) == 1 && x.Functor == "-" {
			v, err := s.eval(b, x.Args[0])
			return -v, err
		}
		if len(x.Args) == 2 {
			l, err := s.eval(b, x.Args[0])
			if err != nil {
				return 0, err
			}
			r, err := s.eval(b, x.Args[1])
			if err != nil {
				return 0, err
			}
			switch x.Functor {
			case "+":
				return l + r, nil
			case "-":
				return l - r, nil
			case "*":
				return l * r, nil
			case "/":
				return l / r, nil
			}
		}
		return 0, fmt.Errorf("%w: unknown arithmetic term %s", internalerr.ErrInvalidProgram, x)
	}
	return 0, fmt.Errorf("%w: cannot evaluate %s", internalerr.ErrInvalidProgram, t)
}
