package core

// Typed quad store with named graphs (spec.md §4.1, component C1).
//
// The index structure generalizes the teacher's flat KV ledger
// (core/ledger.go's `State map[string][]byte` guarded by a single
// sync.RWMutex) into a graph-keyed triple index: instead of one flat
// keyspace we keep one unordered triple set per named graph IRI.

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Store is an in-memory, optionally persistent RDF quad store.
type Store struct {
	mu     sync.RWMutex
	graphs map[IRI]map[tripleKey]Triple
	log    *logrus.Logger

	canonMu    sync.Mutex
	canonCache map[IRI][32]byte // per-graph canonical-hash cache (core/canonical.go)
}

// tripleKey is a comparable projection of a Triple suitable for use
// as a Go map key; triples within a graph have no intrinsic order
// (spec.md §3) so a set keyed this way is the natural representation.
type tripleKey string

func keyOf(t Triple) tripleKey {
	return tripleKey(termNT(t.Subject) + "\x00" + t.Predicate.NTriples() + "\x00" + termNT(t.Object))
}

// NewStore constructs an empty store.
func NewStore(log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{graphs: make(map[IRI]map[tripleKey]Triple), log: log, canonCache: make(map[IRI][32]byte)}
}

// InsertQuad inserts (s,p,o) into graph g. Duplicate quads are
// idempotent no-ops. Fails only on I/O — since this is the in-memory
// path, it never fails, matching spec.md's documented contract that
// insert only fails on I/O.
func (s *Store) InsertQuad(subj, obj Term, pred IRI, g IRI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(Quad{Triple: Triple{Subject: subj, Predicate: pred, Object: obj}, Graph: g})
	return nil
}

func (s *Store) insertLocked(q Quad) {
	m, ok := s.graphs[q.Graph]
	if !ok {
		m = make(map[tripleKey]Triple)
		s.graphs[q.Graph] = m
	}
	m[keyOf(q.Triple)] = q.Triple
	s.invalidateCanonical(q.Graph)
}

// invalidateCanonical drops g's cached canonical digest, if any, so
// the next Canonical(s, g) call recomputes it (core/canonical.go).
func (s *Store) invalidateCanonical(g IRI) {
	s.canonMu.Lock()
	delete(s.canonCache, g)
	s.canonMu.Unlock()
}

// InsertTriples bulk-inserts triples into a single named graph.
func (s *Store) InsertTriples(g IRI, triples []Triple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range triples {
		s.insertLocked(Quad{Triple: t, Graph: g})
	}
}

// QuadsInGraph returns a snapshot slice of every triple in g, used by
// the canonicalizer (C2). The returned slice is a defensive copy; the
// caller may not observe subsequent concurrent writes.
func (s *Store) QuadsInGraph(g IRI) []Triple {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.graphs[g]
	out := make([]Triple, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	return out
}

// GraphExists reports whether g has at least one triple.
func (s *Store) GraphExists(g IRI) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.graphs[g]) > 0
}

// GraphIRIs returns every named graph IRI currently holding triples,
// sorted for deterministic iteration (used by state_root, §4.3).
func (s *Store) GraphIRIs() []IRI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]IRI, 0, len(s.graphs))
	for g := range s.graphs {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// QuadCount returns the total number of quads across all graphs.
func (s *Store) QuadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.graphs {
		n += len(m)
	}
	return n
}

// LoadTurtle parses Turtle text into defaultGraph. On parse failure it
// falls back to storing the raw text as a single literal triple
// (spec.md §4.1) so ingestion never blocks on malformed application
// payloads; the fallback is logged and the fallback triple — not the
// original text — is what later gets canonicalized.
func (s *Store) LoadTurtle(text string, defaultGraph IRI) error {
	triples, err := ParseTurtle(text)
	if err != nil {
		s.log.WithError(err).WithField("graph", defaultGraph).
			Warn("turtle parse failed, falling back to literal storage")
		fallback := Triple{
			Subject:   IRI(string(defaultGraph) + "/data"),
			Predicate: IRI("http://provchain.example/hasData"),
			Object:    Literal{Lexical: text},
		}
		s.mu.Lock()
		s.insertLocked(Quad{Triple: fallback, Graph: defaultGraph})
		s.mu.Unlock()
		return nil
	}
	s.InsertTriples(defaultGraph, triples)
	return nil
}

// Flush is a no-op for the pure in-memory store; Storage
// (core/storage.go) is responsible for durable persistence and calls
// into DumpTurtle itself. It exists so callers coded against the
// spec.md §4.1 contract (`flush()` durably persists pending writes)
// have a stable call site regardless of which persistence mode is
// configured.
func (s *Store) Flush() error { return nil }

// DeleteGraph removes every triple in g. Used by fork resolution
// (core/fork.go) when a losing block's graph must be retracted.
func (s *Store) DeleteGraph(g IRI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.graphs, g)
	s.invalidateCanonical(g)
}

// DumpTurtle serializes every named graph as Turtle, one graph block
// per IRI-commented section, for storage.go's store.ttl persistence.
func (s *Store) DumpTurtle() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	graphs := make([]IRI, 0, len(s.graphs))
	for g := range s.graphs {
		graphs = append(graphs, g)
	}
	sort.Slice(graphs, func(i, j int) bool { return graphs[i] < graphs[j] })
	for _, g := range graphs {
		out = append(out, fmt.Sprintf("# graph %s", g))
		triples := make([]Triple, 0, len(s.graphs[g]))
		for _, t := range s.graphs[g] {
			triples = append(triples, t)
		}
		sort.Slice(triples, func(i, j int) bool { return keyOf(triples[i]) < keyOf(triples[j]) })
		for _, t := range triples {
			out = append(out, fmt.Sprintf("%s %s %s .", termNT(t.Subject), t.Predicate.NTriples(), termNT(t.Object)))
		}
	}
	return joinLines(out)
}

func joinLines(lines []string) string {
	var b []byte
	for _, l := range lines {
		b = append(b, l...)
		b = append(b, '\n')
	}
	return string(b)
}
