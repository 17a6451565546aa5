//go:build unit

package core

import "testing"

func TestClassifySimpleGraph(t *testing.T) {
	triples := []Triple{
		{Subject: IRI("http://e/s"), Predicate: IRI("http://e/p"), Object: Literal{Lexical: "v"}},
	}
	if got := Classify(triples); got != ClassSimple {
		t.Fatalf("expected ClassSimple, got %v", got)
	}
}

func TestCanonicalDeterministicUnderBlankNodeRelabeling(t *testing.T) {
	s1 := NewStore(nil)
	g := IRI("http://e/g")
	_ = s1.InsertQuad(BlankNode("x"), Literal{Lexical: "v"}, IRI("http://e/p"), g)

	s2 := NewStore(nil)
	_ = s2.InsertQuad(BlankNode("y"), Literal{Lexical: "v"}, IRI("http://e/p"), g)

	h1 := Canonical(s1, g)
	h2 := Canonical(s2, g)
	if h1 != h2 {
		t.Fatalf("canonical hash must be invariant to blank node label: %x != %x", h1, h2)
	}
}

func TestCanonicalChangesWithData(t *testing.T) {
	s := NewStore(nil)
	g := IRI("http://e/g")
	h0 := Canonical(s, g)
	_ = s.InsertQuad(IRI("http://e/s"), Literal{Lexical: "v"}, IRI("http://e/p"), g)
	h1 := Canonical(s, g)
	if h0 == h1 {
		t.Fatal("expected canonical hash to change after inserting a triple")
	}
}

func TestCanonicalUsesFastHashForSimpleClass(t *testing.T) {
	triples := []Triple{
		{Subject: IRI("http://e/s"), Predicate: IRI("http://e/p"), Object: Literal{Lexical: "v"}},
	}
	if got := canonicalize(triples, nil); got != fastHash(triples) {
		t.Fatal("expected a Simple-class graph to be canonicalized via the fast hash")
	}
}
