// Package ground defines the grounding collaborator contract: the engine
// that resolves a program's logical structure and calls into a world's
// AddAtom/AddAnd/AddOr for every probabilistic or derived atom it visits.
package ground

import (
	"fmt"
	"strconv"

	"github.com/montelog/montelog/pkg/montelog/program"
	"github.com/montelog/montelog/pkg/montelog/world"
)

// Engine grounds programs against per-round worlds.
// This interface allows swapping implementations (the built-in SLD engine,
// a tabled engine, an external solver bridge).
type Engine interface {
	// Prepare compiles a parsed program into a queryable database.
	Prepare(p *program.Program) (*Database, error)

	// GroundAll evaluates every query and evidence declaration of the
	// database against the target world, registering the resolved nodes
	// on it.
	GroundAll(db *Database, target *world.World) error

	// Call resolves a single goal as a sub-derivation starting at the
	// given depth, returning one solution per surviving derivation.
	// Builtins that re-enter the engine pass their context depth so the
	// depth bound covers the whole derivation, not just one session.
	Call(db *Database, goal program.Term, b program.Bindings, target *world.World, depth int) ([]Solution, error)

	// RegisterBuiltin installs a handler for name/arity goals.
	RegisterBuiltin(name string, arity int, fn Builtin)
}

// Solution is one successful derivation of a goal: the extended bindings and
// the world node the derivation hinges on.
type Solution struct {
	Bindings program.Bindings
	Node     world.Node
}

// BuiltinContext gives a builtin handler access to the engine, the compiled
// database and the round's world. Depth is the derivation depth of the goal
// that triggered the builtin; handlers re-entering the engine must resume
// from it.
type BuiltinContext struct {
	Engine Engine
	DB     *Database
	Target *world.World
	Depth  int
}

// Builtin handles a goal with registered name/arity. Arguments arrive
// unresolved; handlers walk them under b as needed.
type Builtin func(ctx BuiltinContext, args []program.Term, b program.Bindings) ([]Solution, error)

// Database is a compiled program: the clause list with a functor/arity index
// plus the declared queries and evidence.
type Database struct {
	Clauses  []program.Clause
	Queries  []program.Term
	Evidence []program.Evidence

	index map[string][]int
}

// NewDatabase indexes a parsed program.
func NewDatabase(p *program.Program) *Database {
	db := &Database{
		Clauses:  p.Clauses,
		Queries:  p.Queries,
		Evidence: p.Evidence,
		index:    make(map[string][]int),
	}
	for i, c := range p.Clauses {
		for _, h := range c.Heads {
			key := program.Indicator(h.Atom)
			// two alternatives may share an indicator; index the clause once
			if n := len(db.index[key]); n > 0 && db.index[key][n-1] == i {
				continue
			}
			db.index[key] = append(db.index[key], i)
		}
	}
	return db
}

// ClausesFor returns the indices of clauses whose head can match the given
// functor and arity.
func (db *Database) ClausesFor(functor string, arity int) []int {
	return db.index[functor+"/"+strconv.Itoa(arity)]
}

// ChoiceLabel renders the printable identity of one annotated-disjunction
// alternative, mirroring the ad_<group>_<choice> naming of grounded choice
// atoms.
func ChoiceLabel(group, choice int, atom program.Term, b program.Bindings) string {
	functor := fmt.Sprintf("ad_%d_%d", group, choice)
	if c, ok := b.Walk(atom).(program.Compound); ok {
		args := make([]program.Term, len(c.Args))
		for i, a := range c.Args {
			args[i] = b.Resolve(a)
		}
		return program.Compound{Functor: functor, Args: args}.String()
	}
	return functor
}
