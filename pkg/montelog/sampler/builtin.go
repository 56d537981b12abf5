package sampler

import (
	"fmt"

	"github.com/montelog/montelog/pkg/montelog/ground"
	"github.com/montelog/montelog/pkg/montelog/internalerr"
	"github.com/montelog/montelog/pkg/montelog/program"
	"github.com/montelog/montelog/pkg/montelog/world"
)

// builtinSample implements sample(Goal, Value): it re-enters the engine on
// Goal as a sub-derivation and, for every solution that carries a sampled
// value, unifies Value with it. This is the only sanctioned way to read a
// sampled value into ordinary variable flow; the AND/OR combinators refuse
// to combine sampled results structurally.
func builtinSample(ctx ground.BuiltinContext, args []program.Term, b program.Bindings) ([]ground.Solution, error) {
	goal := b.Walk(args[0])
	if _, ok := goal.(program.Variable); ok {
		return nil, fmt.Errorf("%w: sample/2 goal is unbound", internalerr.ErrInvalidProgram)
	}

	inner, err := ctx.Engine.Call(ctx.DB, goal, b, ctx.Target, ctx.Depth+1)
	if err != nil {
		return nil, err
	}

	var out []ground.Solution
	for _, sol := range inner {
		value := ctx.Target.Value(sol.Node)
		if value == nil {
			// Boolean goal, nothing to extract
			continue
		}
		nb := sol.Bindings.Clone()
		if !program.Unify(nb, args[1], value) {
			continue
		}
		// the value has been consumed into a binding; the solution itself
		// is a plain proven node
		out = append(out, ground.Solution{Bindings: nb, Node: world.NodeTrue})
	}
	return out, nil
}
