//go:build unit

package core

import "testing"

func TestClassifyModerateGraph(t *testing.T) {
	triples := []Triple{
		{Subject: BlankNode("b1"), Predicate: IRI("http://e/p1"), Object: Literal{Lexical: "v1"}},
		{Subject: BlankNode("b2"), Predicate: IRI("http://e/p2"), Object: Literal{Lexical: "v2"}},
	}
	if got := Classify(triples); got != ClassModerate {
		t.Fatalf("expected ClassModerate, got %v", got)
	}
}

func TestClassifyPathologicalGraphWithBlankCycle(t *testing.T) {
	var triples []Triple
	for i := 0; i < 15; i++ {
		a := BlankNode("b" + string(rune('a'+i)))
		b := BlankNode("b" + string(rune('a'+(i+1)%15)))
		triples = append(triples, Triple{Subject: a, Predicate: IRI("http://e/p"), Object: b})
	}
	if got := Classify(triples); got != ClassPathological {
		t.Fatalf("expected ClassPathological for a large blank-node cycle, got %v", got)
	}
}

func TestFastHashDeterministicUnderBlankRelabeling(t *testing.T) {
	a := []Triple{
		{Subject: BlankNode("x"), Predicate: IRI("http://e/p"), Object: Literal{Lexical: "v"}},
	}
	b := []Triple{
		{Subject: BlankNode("y"), Predicate: IRI("http://e/p"), Object: Literal{Lexical: "v"}},
	}
	if fastHash(a) != fastHash(b) {
		t.Fatal("expected fast hash to be invariant under blank node relabeling")
	}
}

func TestFastHashDiffersOnDifferentData(t *testing.T) {
	a := []Triple{
		{Subject: IRI("http://e/s1"), Predicate: IRI("http://e/p"), Object: Literal{Lexical: "v"}},
	}
	b := []Triple{
		{Subject: IRI("http://e/s2"), Predicate: IRI("http://e/p"), Object: Literal{Lexical: "v"}},
	}
	if fastHash(a) == fastHash(b) {
		t.Fatal("expected fast hash to differ for different non-blank subjects")
	}
}

func TestRDFC10HashDeterministicUnderBlankRelabeling(t *testing.T) {
	a := []Triple{
		{Subject: BlankNode("x"), Predicate: IRI("http://e/knows"), Object: BlankNode("y")},
		{Subject: BlankNode("y"), Predicate: IRI("http://e/name"), Object: Literal{Lexical: "bob"}},
	}
	b := []Triple{
		{Subject: BlankNode("p"), Predicate: IRI("http://e/knows"), Object: BlankNode("q")},
		{Subject: BlankNode("q"), Predicate: IRI("http://e/name"), Object: Literal{Lexical: "bob"}},
	}
	if rdfc10Hash(a) != rdfc10Hash(b) {
		t.Fatal("expected RDFC-1.0 hash to be invariant under consistent blank node relabeling")
	}
}

func TestRDFC10HashNoBlankNodesIsOrderIndependent(t *testing.T) {
	a := []Triple{
		{Subject: IRI("http://e/s1"), Predicate: IRI("http://e/p"), Object: Literal{Lexical: "v1"}},
		{Subject: IRI("http://e/s2"), Predicate: IRI("http://e/p"), Object: Literal{Lexical: "v2"}},
	}
	b := []Triple{a[1], a[0]}
	if rdfc10Hash(a) != rdfc10Hash(b) {
		t.Fatal("expected RDFC-1.0 hash to be independent of input triple order")
	}
}

func TestCanonicalEmptyGraphIsSHA256OfEmptyString(t *testing.T) {
	s := NewStore(nil)
	g := IRI("http://e/empty")
	got := Canonical(s, g)
	want := canonicalize(nil, nil)
	if got != want {
		t.Fatal("expected empty graph's canonical hash to match the empty-input digest")
	}
}

func TestCanonicalCacheInvalidatesOnDeleteGraph(t *testing.T) {
	s := NewStore(nil)
	g := IRI("http://e/g")
	_ = s.InsertQuad(IRI("http://e/s"), Literal{Lexical: "v"}, IRI("http://e/p"), g)
	h0 := Canonical(s, g)

	s.DeleteGraph(g)
	_ = s.InsertQuad(IRI("http://e/s2"), Literal{Lexical: "v2"}, IRI("http://e/p"), g)
	h1 := Canonical(s, g)

	if h0 == h1 {
		t.Fatal("expected canonical hash to change after DeleteGraph + reinsert with different data")
	}
}

func TestCanonicalDoesNotLeakAcrossStoresWithSameGraphIRI(t *testing.T) {
	g := IRI("http://e/shared")
	s1 := NewStore(nil)
	_ = s1.InsertQuad(IRI("http://e/s1"), Literal{Lexical: "v1"}, IRI("http://e/p"), g)
	h1 := Canonical(s1, g)

	s2 := NewStore(nil)
	_ = s2.InsertQuad(IRI("http://e/s2"), Literal{Lexical: "v2"}, IRI("http://e/p"), g)
	h2 := Canonical(s2, g)

	if h1 == h2 {
		t.Fatal("expected distinct stores with the same graph IRI but different data to have different canonical hashes")
	}
}
