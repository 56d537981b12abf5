package program

import (
	"fmt"
	"strconv"

	"github.com/montelog/montelog/pkg/montelog/internalerr"
)

// operator precedence, higher binds tighter
const (
	precClause = 1 // :-
	precSemi   = 2 // ;
	precComma  = 3 // ,
	precAnnot  = 4 // ::
	precCmp    = 5 // = is =:= =\= < > =< >=
	precAdd    = 6 // + -
	precMul    = 7 // * /
)

var infixPrec = map[string]int{
	":-": precClause,
	";":  precSemi,
	",":  precComma,
	"::": precAnnot,
	"=":  precCmp, "is": precCmp, "=:=": precCmp, "=\\=": precCmp,
	"<": precCmp, ">": precCmp, "=<": precCmp, ">=": precCmp,
	"+": precAdd, "-": precAdd,
	"*": precMul, "/": precMul,
}

// right-associative operators; everything else is left-associative
var rightAssoc = map[string]bool{";": true, ",": true}

type parser struct {
	toks []token
	pos  int
}

// Parse reads a probabilistic logic program: probabilistic facts,
// annotated disjunctions, deterministic clauses, query/1 and evidence/1..2
// declarations.
func Parse(src string) (*Program, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidProgram, err)
	}
	p := &parser{toks: toks}
	prog := &Program{}
	for p.peek().kind != tokEOF {
		t, err := p.parseExpr(precClause)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidProgram, err)
		}
		if err := p.expectPunct("."); err != nil {
			return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidProgram, err)
		}
		if err := addClause(prog, t); err != nil {
			return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidProgram, err)
		}
	}
	return prog, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expectPunct(text string) error {
	t := p.next()
	if t.kind != tokPunct || t.text != text {
		return fmt.Errorf("line %d: expected %q, got %s", t.line, text, t)
	}
	return nil
}

func (p *parser) parseExpr(minPrec int) (Term, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		var op string
		switch {
		case t.kind == tokPunct:
			op = t.text
		case t.kind == tokAtom && t.text == "is":
			op = "is"
		default:
			return left, nil
		}
		prec, ok := infixPrec[op]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		nextMin := prec + 1
		if rightAssoc[op] {
			nextMin = prec
		}
		right, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		left = Compound{Functor: op, Args: []Term{left, right}}
	}
}

func (p *parser) parsePrimary() (Term, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad number %q", t.line, t.text)
		}
		return Number(f), nil
	case tokVariable:
		return Variable(t.text), nil
	case tokAtom:
		if p.peek().kind == tokPunct && p.peek().text == "(" {
			p.next()
			var args []Term
			for {
				arg, err := p.parseExpr(precAnnot)
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				sep := p.next()
				if sep.kind == tokPunct && sep.text == "," {
					continue
				}
				if sep.kind == tokPunct && sep.text == ")" {
					break
				}
				return nil, fmt.Errorf("line %d: expected \",\" or \")\", got %s", sep.line, sep)
			}
			return Compound{Functor: t.text, Args: args}, nil
		}
		return Atom(t.text), nil
	case tokPunct:
		switch t.text {
		case "(":
			inner, err := p.parseExpr(precSemi)
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return inner, nil
		case "\\+":
			inner, err := p.parseExpr(precCmp)
			if err != nil {
				return nil, err
			}
			return Compound{Functor: "\\+", Args: []Term{inner}}, nil
		case "-":
			inner, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			if n, ok := inner.(Number); ok {
				return Number(-n), nil
			}
			return Compound{Functor: "-", Args: []Term{inner}}, nil
		}
	}
	return nil, fmt.Errorf("line %d: unexpected token %s", t.line, t)
}

// addClause restructures a parsed clause term into the program model and
// routes query/evidence declarations to their registries.
func addClause(prog *Program, t Term) error {
	var headTerm Term
	var body []Term
	if c, ok := t.(Compound); ok && c.Functor == ":-" && len(c.Args) == 2 {
		headTerm = c.Args[0]
		var err error
		body, err = flattenConjunction(c.Args[1])
		if err != nil {
			return err
		}
	} else {
		headTerm = t
	}

	heads, err := splitHeads(headTerm)
	if err != nil {
		return err
	}

	if len(heads) == 1 && heads[0].Ann == nil && len(body) == 0 {
		if done, err := addDeclaration(prog, heads[0].Atom); done || err != nil {
			return err
		}
	}

	prog.Clauses = append(prog.Clauses, Clause{Heads: heads, Body: body})
	return nil
}

func splitHeads(t Term) ([]Head, error) {
	if c, ok := t.(Compound); ok && c.Functor == ";" && len(c.Args) == 2 {
		left, err := splitHeads(c.Args[0])
		if err != nil {
			return nil, err
		}
		right, err := splitHeads(c.Args[1])
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	}
	h := Head{Atom: t}
	if c, ok := t.(Compound); ok && c.Functor == "::" && len(c.Args) == 2 {
		h = Head{Ann: c.Args[0], Atom: c.Args[1]}
	}
	if !callableHead(h.Atom) {
		return nil, fmt.Errorf("clause head %s is not callable", h.Atom)
	}
	return []Head{h}, nil
}

func callableHead(t Term) bool {
	switch t.(type) {
	case Atom, Compound:
		return true
	}
	return false
}

func flattenConjunction(t Term) ([]Term, error) {
	if c, ok := t.(Compound); ok && len(c.Args) == 2 {
		switch c.Functor {
		case ",":
			left, err := flattenConjunction(c.Args[0])
			if err != nil {
				return nil, err
			}
			right, err := flattenConjunction(c.Args[1])
			if err != nil {
				return nil, err
			}
			return append(left, right...), nil
		case ";":
			return nil, fmt.Errorf("disjunction in clause body is not supported; write separate clauses")
		}
	}
	return []Term{t}, nil
}

// addDeclaration handles query/1, evidence/1 and evidence/2 facts. It reports
// whether the fact was consumed as a declaration.
func addDeclaration(prog *Program, atom Term) (bool, error) {
	c, ok := atom.(Compound)
	if !ok {
		return false, nil
	}
	switch {
	case c.Functor == "query" && len(c.Args) == 1:
		prog.Queries = append(prog.Queries, c.Args[0])
		return true, nil
	case c.Functor == "evidence" && len(c.Args) == 1:
		ev := Evidence{Atom: c.Args[0], Want: true}
		if neg, ok := c.Args[0].(Compound); ok && neg.Functor == "\\+" && len(neg.Args) == 1 {
			ev = Evidence{Atom: neg.Args[0], Want: false}
		}
		prog.Evidence = append(prog.Evidence, ev)
		return true, nil
	case c.Functor == "evidence" && len(c.Args) == 2:
		want, ok := c.Args[1].(Atom)
		if !ok || (want != "true" && want != "false") {
			return false, fmt.Errorf("evidence/2 expects true or false, got %s", c.Args[1])
		}
		prog.Evidence = append(prog.Evidence, Evidence{Atom: c.Args[0], Want: want == "true"})
		return true, nil
	}
	return false, nil
}
