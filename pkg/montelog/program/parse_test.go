package program

import (
	"errors"
	"testing"

	"github.com/montelog/montelog/pkg/montelog/internalerr"
)

func TestParse_ProbabilisticFact(t *testing.T) {
	prog, err := Parse("0.4::a.")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Clauses) != 1 {
		t.Fatalf("want 1 clause, got %d", len(prog.Clauses))
	}
	c := prog.Clauses[0]
	if len(c.Heads) != 1 || c.IsChoice() {
		t.Fatalf("want single head, got %+v", c)
	}
	if c.Heads[0].Ann != Number(0.4) {
		t.Errorf("annotation: want 0.4, got %v", c.Heads[0].Ann)
	}
	if c.Heads[0].Atom != Atom("a") {
		t.Errorf("head atom: want a, got %v", c.Heads[0].Atom)
	}
}

func TestParse_Rule(t *testing.T) {
	prog, err := Parse("alarm :- burglary, earthquake.")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c := prog.Clauses[0]
	if c.Heads[0].Atom != Atom("alarm") || c.Heads[0].Ann != nil {
		t.Errorf("head: got %+v", c.Heads[0])
	}
	if len(c.Body) != 2 || c.Body[0] != Atom("burglary") || c.Body[1] != Atom("earthquake") {
		t.Errorf("body: got %v", c.Body)
	}
}

func TestParse_AnnotatedDisjunction(t *testing.T) {
	prog, err := Parse("0.3::red(X); 0.2::blue(X) :- item(X).")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c := prog.Clauses[0]
	if !c.IsChoice() || len(c.Heads) != 2 {
		t.Fatalf("want 2 heads, got %+v", c)
	}
	if c.Heads[0].Ann != Number(0.3) || c.Heads[1].Ann != Number(0.2) {
		t.Errorf("annotations: got %v and %v", c.Heads[0].Ann, c.Heads[1].Ann)
	}
	if c.Heads[1].Atom.String() != "blue(X)" {
		t.Errorf("second head: got %s", c.Heads[1].Atom)
	}
	if len(c.Body) != 1 || c.Body[0].String() != "item(X)" {
		t.Errorf("body: got %v", c.Body)
	}
}

func TestParse_ArithmeticAnnotation(t *testing.T) {
	prog, err := Parse("1/6::die(1).")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ann := prog.Clauses[0].Heads[0].Ann
	if ann.String() != "/(1,6)" {
		t.Errorf("annotation: got %s", ann)
	}
}

func TestParse_DistributionAnnotation(t *testing.T) {
	prog, err := Parse("normal(20,3)::temperature.")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ann := prog.Clauses[0].Heads[0].Ann
	if ann.String() != "normal(20,3)" {
		t.Errorf("annotation: got %s", ann)
	}
}

func TestParse_Declarations(t *testing.T) {
	src := `
0.5::a.
query(a).
evidence(a).
evidence(\+b).
evidence(c, false).
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Clauses) != 1 {
		t.Errorf("declarations must not become clauses, got %d", len(prog.Clauses))
	}
	if len(prog.Queries) != 1 || prog.Queries[0] != Atom("a") {
		t.Errorf("queries: got %v", prog.Queries)
	}
	want := []Evidence{
		{Atom: Atom("a"), Want: true},
		{Atom: Atom("b"), Want: false},
		{Atom: Atom("c"), Want: false},
	}
	if len(prog.Evidence) != len(want) {
		t.Fatalf("evidence: got %v", prog.Evidence)
	}
	for i, ev := range want {
		if prog.Evidence[i] != ev {
			t.Errorf("evidence[%d]: want %+v, got %+v", i, prog.Evidence[i], ev)
		}
	}
}

func TestParse_BodyOperators(t *testing.T) {
	prog, err := Parse("big(X) :- sample(size, X), X >= 10, \\+ excluded(X).")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	body := prog.Clauses[0].Body
	if len(body) != 3 {
		t.Fatalf("want 3 goals, got %v", body)
	}
	if body[0].String() != "sample(size,X)" {
		t.Errorf("goal 1: got %s", body[0])
	}
	if body[1].String() != ">=(X,10)" {
		t.Errorf("goal 2: got %s", body[1])
	}
	if body[2].String() != "\\+(excluded(X))" {
		t.Errorf("goal 3: got %s", body[2])
	}
}

func TestParse_Comments(t *testing.T) {
	prog, err := Parse("% header\n0.5::a. % trailing\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Clauses) != 1 {
		t.Errorf("want 1 clause, got %d", len(prog.Clauses))
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		"0.4::a",         // missing period
		"a :- (b ; c).",  // disjunctive body
		"1.5 :- a.",      // non-callable head
		":: a.",          // dangling operator
		"f(.",            // malformed args
	}
	for _, src := range tests {
		if _, err := Parse(src); !errors.Is(err, internalerr.ErrInvalidProgram) {
			t.Errorf("Parse(%q): want ErrInvalidProgram, got %v", src, err)
		}
	}
}

func TestParse_ClauseRoundTrip(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"0.4::a.", "0.4::a."},
		{"alarm :- burglary, earthquake.", "alarm :- burglary, earthquake."},
		{"0.3::red(X); 0.2::blue(X) :- item(X).", "0.3::red(X); 0.2::blue(X) :- item(X)."},
	}
	for _, tc := range tests {
		prog, err := Parse(tc.src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.src, err)
		}
		if got := prog.Clauses[0].String(); got != tc.want {
			t.Errorf("round trip of %q: got %q", tc.src, got)
		}
	}
}
