package program

import (
	"fmt"
	"strconv"
	"strings"
)

// Term is a node of the logic term tree: an atom, a number, a variable or a
// compound. Terms are immutable once built.
type Term interface {
	String() string
	isTerm()
}

// Atom is a constant symbol (lowercase identifier).
type Atom string

func (a Atom) isTerm()        {}
func (a Atom) String() string { return string(a) }

// Number is a numeric constant. Integers print without a decimal part.
type Number float64

func (n Number) isTerm() {}

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

// Variable is a logic variable (uppercase or underscore identifier).
type Variable string

func (v Variable) isTerm()        {}
func (v Variable) String() string { return string(v) }

// Compound is a functor applied to one or more arguments.
type Compound struct {
	Functor string
	Args    []Term
}

func (c Compound) isTerm() {}

func (c Compound) String() string {
	if len(c.Args) == 0 {
		return c.Functor
	}
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return c.Functor + "(" + strings.Join(parts, ",") + ")"
}

// Indicator returns the predicate indicator of a callable term, e.g. "edge/2".
// Numbers and variables are not callable and return an empty string.
func Indicator(t Term) string {
	switch x := t.(type) {
	case Atom:
		return string(x) + "/0"
	case Compound:
		return x.Functor + "/" + strconv.Itoa(len(x.Args))
	}
	return ""
}

// Bindings maps variables to terms. A binding chain is resolved lazily by Walk.
type Bindings map[Variable]Term

// Clone returns an independent copy of the bindings.
func (b Bindings) Clone() Bindings {
	nb := make(Bindings, len(b))
	for k, v := range b {
		nb[k] = v
	}
	return nb
}

// Walk resolves a term one level: variables are chased through the binding
// chain until an unbound variable or a non-variable term is reached.
func (b Bindings) Walk(t Term) Term {
	for {
		v, ok := t.(Variable)
		if !ok {
			return t
		}
		bound, ok := b[v]
		if !ok {
			return t
		}
		t = bound
	}
}

// Resolve substitutes bindings through the whole term tree.
func (b Bindings) Resolve(t Term) Term {
	t = b.Walk(t)
	c, ok := t.(Compound)
	if !ok {
		return t
	}
	args := make([]Term, len(c.Args))
	for i, a := range c.Args {
		args[i] = b.Resolve(a)
	}
	return Compound{Functor: c.Functor, Args: args}
}

// IsGround reports whether the term contains no unbound variables under b.
func (b Bindings) IsGround(t Term) bool {
	switch x := b.Walk(t).(type) {
	case Variable:
		return false
	case Compound:
		for _, a := range x.Args {
			if !b.IsGround(a) {
				return false
			}
		}
	}
	return true
}

// Unify attempts to make x and y equal under b, extending b in place.
// It reports whether unification succeeded; on failure b may hold partial
// bindings and the caller is expected to discard it.
func Unify(b Bindings, x, y Term) bool {
	x = b.Walk(x)
	y = b.Walk(y)
	if xv, ok := x.(Variable); ok {
		if yv, ok := y.(Variable); ok && xv == yv {
			return true
		}
		b[xv] = y
		return true
	}
	if yv, ok := y.(Variable); ok {
		b[yv] = x
		return true
	}
	switch xt := x.(type) {
	case Atom:
		yt, ok := y.(Atom)
		return ok && xt == yt
	case Number:
		yt, ok := y.(Number)
		return ok && xt == yt
	case Compound:
		yt, ok := y.(Compound)
		if !ok || xt.Functor != yt.Functor || len(xt.Args) != len(yt.Args) {
			return false
		}
		for i := range xt.Args {
			if !Unify(b, xt.Args[i], yt.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Rename replaces every variable in t with a fresh one produced by next.
// The same source variable maps to the same fresh variable within one call
// tree, tracked in seen.
func Rename(t Term, seen map[Variable]Variable, next func() Variable) Term {
	switch x := t.(type) {
	case Variable:
		fresh, ok := seen[x]
		if !ok {
			fresh = next()
			seen[x] = fresh
		}
		return fresh
	case Compound:
		args := make([]Term, len(x.Args))
		for i, a := range x.Args {
			args[i] = Rename(a, seen, next)
		}
		return Compound{Functor: x.Functor, Args: args}
	}
	return t
}

// ArgsKey renders the resolved arguments of a callable term as a canonical
// key, used to identify one ground instance of an atom.
func ArgsKey(b Bindings, t Term) string {
	t = b.Walk(t)
	c, ok := t.(Compound)
	if !ok {
		return ""
	}
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = b.Resolve(a).String()
	}
	return strings.Join(parts, ",")
}

// MustCallable asserts that t is an atom or compound and returns its functor
// and arguments.
func MustCallable(t Term) (string, []Term, error) {
	switch x := t.(type) {
	case Atom:
		return string(x), nil, nil
	case Compound:
		return x.Functor, x.Args, nil
	}
	return "", nil, fmt.Errorf("term %s is not callable", t)
}
