package core

// Fast hash (spec.md §4.2.3) — a custom canonicalization for
// low-interconnection blank-node patterns (chains, trees): each
// triple's hash is extended with the hashes of its blank nodes'
// one-hop neighborhood, which uniquely identifies local structure up
// to isomorphism for Simple/Moderate-class graphs.

import (
	"crypto/sha256"
	"sort"
)

const (
	magicSubject = "\x00MAGIC_S\x00"
	magicObject  = "\x00MAGIC_O\x00"
)

// fastTripleHash computes h(t) per spec.md §4.2.3 step 1.
func fastTripleHash(t Triple) [32]byte {
	h := sha256.New()
	if t.Subject.IsBlank() {
		h.Write([]byte(magicSubject))
	} else {
		h.Write([]byte(termNT(t.Subject)))
	}
	h.Write([]byte(t.Predicate.NTriples()))
	if t.Object.IsBlank() {
		h.Write([]byte(magicObject))
	} else {
		h.Write([]byte(termNT(t.Object)))
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// fastHash implements the full algorithm: base hashes, two-hop
// blank-node context extension, sort, concatenate, SHA-256.
func fastHash(triples []Triple) [32]byte {
	// Index triples by the blank nodes they touch, for the two-hop
	// context extension (steps 3-4).
	bySubjectBlank := map[BlankNode][]int{}
	byObjectBlank := map[BlankNode][]int{}
	baseHash := make([][32]byte, len(triples))
	for i, t := range triples {
		baseHash[i] = fastTripleHash(t)
		if b, ok := t.Subject.(BlankNode); ok {
			bySubjectBlank[b] = append(bySubjectBlank[b], i)
		}
		if b, ok := t.Object.(BlankNode); ok {
			byObjectBlank[b] = append(byObjectBlank[b], i)
		}
	}

	hashSet := map[[32]byte]struct{}{}
	addAll := func(idxs []int) {
		for _, i := range idxs {
			hashSet[baseHash[i]] = struct{}{}
		}
	}
	for i, t := range triples {
		hashSet[baseHash[i]] = struct{}{}
		// Step 3: subject is blank -> include triples where that blank
		// node appears as object.
		if b, ok := t.Subject.(BlankNode); ok {
			addAll(byObjectBlank[b])
		}
		// Step 4: object is blank -> include triples where that blank
		// node appears as subject.
		if b, ok := t.Object.(BlankNode); ok {
			addAll(bySubjectBlank[b])
		}
	}

	return sortConcatSum(hashSet)
}

func sortConcatSum(hashSet map[[32]byte]struct{}) [32]byte {
	list := make([][32]byte, 0, len(hashSet))
	for h := range hashSet {
		list = append(list, h)
	}
	sort.Slice(list, func(i, j int) bool {
		for k := 0; k < 32; k++ {
			if list[i][k] != list[j][k] {
				return list[i][k] < list[j][k]
			}
		}
		return false
	})
	h := sha256.New()
	for _, item := range list {
		h.Write(item[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
