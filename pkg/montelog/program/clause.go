package program

import "strings"

// Head is one alternative of a clause head. Ann is the probability annotation:
// nil for a deterministic head, a Number for a plain weight, or a Compound
// describing a distribution.
type Head struct {
	Ann  Term
	Atom Term
}

// Clause is a program clause. A plain fact or rule has a single head; an
// annotated disjunction has several mutually exclusive heads. Body is a
// conjunction of goals, empty for facts.
type Clause struct {
	Heads []Head
	Body  []Term
}

// IsChoice reports whether the clause is an annotated disjunction.
func (c Clause) IsChoice() bool { return len(c.Heads) > 1 }

func (c Clause) String() string {
	var sb strings.Builder
	for i, h := range c.Heads {
		if i > 0 {
			sb.WriteString("; ")
		}
		if h.Ann != nil {
			sb.WriteString(h.Ann.String())
			sb.WriteString("::")
		}
		sb.WriteString(h.Atom.String())
	}
	if len(c.Body) > 0 {
		sb.WriteString(" :- ")
		for i, g := range c.Body {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(g.String())
		}
	}
	sb.WriteString(".")
	return sb.String()
}

// Evidence is a declared observation: the atom must come out true (or false
// when Want is false) for a sampled world to be accepted.
type Evidence struct {
	Atom Term
	Want bool
}

// Program is a parsed probabilistic logic program.
type Program struct {
	Clauses  []Clause
	Queries  []Term
	Evidence []Evidence
}
