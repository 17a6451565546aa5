//go:build unit

package core

import "testing"

func TestQuerySolutionsBindsVariableToMatchingObject(t *testing.T) {
	store := NewStore(nil)
	g := IRI("http://e/g")
	_ = store.InsertQuad(IRI("http://e/s"), Literal{Lexical: "v"}, IRI("http://e/p"), g)

	solutions := store.QuerySolutions(Pattern{
		Subject:   IRI("http://e/s"),
		Predicate: IRI("http://e/p"),
		Object:    Variable{Name: "o"},
	})
	if len(solutions) != 1 {
		t.Fatalf("expected 1 solution, got %d", len(solutions))
	}
	lit, ok := solutions[0]["o"].(Literal)
	if !ok || lit.Lexical != "v" {
		t.Fatalf("expected ?o bound to literal v, got %+v", solutions[0]["o"])
	}
}

func TestQuerySolutionsRestrictsToGivenGraph(t *testing.T) {
	store := NewStore(nil)
	gA := IRI("http://e/gA")
	gB := IRI("http://e/gB")
	_ = store.InsertQuad(IRI("http://e/s"), Literal{Lexical: "a"}, IRI("http://e/p"), gA)
	_ = store.InsertQuad(IRI("http://e/s"), Literal{Lexical: "b"}, IRI("http://e/p"), gB)

	solutions := store.QuerySolutions(Pattern{
		Subject:   Variable{Name: "s"},
		Predicate: Variable{Name: "p"},
		Object:    Variable{Name: "o"},
		Graph:     &gA,
	})
	if len(solutions) != 1 {
		t.Fatalf("expected graph restriction to yield exactly 1 solution, got %d", len(solutions))
	}
	if solutions[0]["o"].(Literal).Lexical != "a" {
		t.Fatalf("expected the graph-A triple, got %+v", solutions[0])
	}
}

func TestQuerySolutionsNilGraphScansAllGraphs(t *testing.T) {
	store := NewStore(nil)
	gA := IRI("http://e/gA")
	gB := IRI("http://e/gB")
	_ = store.InsertQuad(IRI("http://e/s"), Literal{Lexical: "a"}, IRI("http://e/p"), gA)
	_ = store.InsertQuad(IRI("http://e/s"), Literal{Lexical: "b"}, IRI("http://e/p"), gB)

	solutions := store.QuerySolutions(Pattern{
		Subject:   Variable{Name: "s"},
		Predicate: Variable{Name: "p"},
		Object:    Variable{Name: "o"},
	})
	if len(solutions) != 2 {
		t.Fatalf("expected solutions across both graphs, got %d", len(solutions))
	}
}

func TestAskExistsTrueAndFalse(t *testing.T) {
	store := NewStore(nil)
	g := IRI("http://e/g")
	_ = store.InsertQuad(IRI("http://e/s"), Literal{Lexical: "v"}, IRI("http://e/p"), g)

	if !store.AskExists(Pattern{Subject: IRI("http://e/s"), Predicate: IRI("http://e/p"), Object: Variable{Name: "o"}}) {
		t.Fatal("expected AskExists true for a matching pattern")
	}
	if store.AskExists(Pattern{Subject: IRI("http://e/nope"), Predicate: IRI("http://e/p"), Object: Variable{Name: "o"}}) {
		t.Fatal("expected AskExists false for a non-matching subject")
	}
}

func TestQuerySolutionsRejectsMismatchedBoundSubject(t *testing.T) {
	store := NewStore(nil)
	g := IRI("http://e/g")
	_ = store.InsertQuad(IRI("http://e/other"), Literal{Lexical: "v"}, IRI("http://e/p"), g)

	solutions := store.QuerySolutions(Pattern{Subject: IRI("http://e/s"), Predicate: IRI("http://e/p"), Object: Variable{Name: "o"}})
	if len(solutions) != 0 {
		t.Fatalf("expected no solutions when the bound subject does not match, got %d", len(solutions))
	}
}

func TestFormatBindingRendersVarEqualsValue(t *testing.T) {
	b := Binding{"o": Literal{Lexical: "v"}}
	got := FormatBinding(b)
	want := `o="v"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
