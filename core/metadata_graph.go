package core

// Metadata graph (spec.md §4.4, component C4): a reserved named graph
// recording the chain's own structure inside the RDF store. Grounded
// on spec.md §4.4 directly; the "never mutated after" append-only
// discipline follows the teacher's WAL philosophy in core/ledger.go.

import "fmt"

// MetadataGraphIRI is the reserved graph spec.md §3 calls
// "<…/blockchain>".
const MetadataGraphIRI IRI = "http://provchain.example/blockchain"

const (
	predRDFType        = IRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")
	predHasIndex       = IRI("http://provchain.example/hasIndex")
	predHasTimestamp   = IRI("http://provchain.example/hasTimestamp")
	predHasHash        = IRI("http://provchain.example/hasHash")
	predHasPreviousHash = IRI("http://provchain.example/hasPreviousHash")
	predHasDataGraphIRI = IRI("http://provchain.example/hasDataGraphIRI")
	predWasPrecededBy  = IRI("http://www.w3.org/ns/prov#wasPrecededBy")

	classGenesisBlock = IRI("http://provchain.example/GenesisBlock")
	classBlock        = IRI("http://provchain.example/Block")
)

// BlockResourceIRI is the IRI convention for a block's metadata
// resource: <…/block/{index}/resource>. It is distinct from the
// block's data graph IRI (<…/block/{index}>) so metadata assertions
// never collide with application triples in the same graph.
func BlockResourceIRI(index uint64) IRI {
	return IRI(fmt.Sprintf("http://provchain.example/block/%d/resource", index))
}

// DataGraphIRI is the convention spec.md §3 names for a block's
// committed named graph.
func DataGraphIRI(index uint64) IRI {
	return IRI(fmt.Sprintf("http://provchain.example/block/%d", index))
}

// RecordBlockMetadata asserts the metadata triples for block b into
// MetadataGraphIRI, per spec.md §4.4. Called once, on commit; the
// metadata graph is never mutated after this call for a given block.
func RecordBlockMetadata(s *Store, b *Block) {
	res := BlockResourceIRI(b.Index)
	class := classBlock
	if b.IsGenesis() {
		class = classGenesisBlock
	}
	assert := func(pred IRI, obj Term) {
		_ = s.InsertQuad(res, obj, pred, MetadataGraphIRI)
	}
	assert(predRDFType, class)
	assert(predHasIndex, Literal{Lexical: fmt.Sprintf("%d", b.Index), Datatype: "http://www.w3.org/2001/XMLSchema#nonNegativeInteger"})
	assert(predHasTimestamp, Literal{Lexical: b.Timestamp.Format("2006-01-02T15:04:05Z07:00"), Datatype: "http://www.w3.org/2001/XMLSchema#dateTime"})
	assert(predHasHash, Literal{Lexical: b.DataHash})
	assert(predHasPreviousHash, Literal{Lexical: b.PreviousHash})
	assert(predHasDataGraphIRI, b.DataGraphIRI)
	if !b.IsGenesis() {
		assert(predWasPrecededBy, BlockResourceIRI(b.Index-1))
	}
}

// RetractBlockMetadata removes every metadata triple whose subject is
// block index's resource IRI — used only by fork resolution
// (core/fork.go) when a losing block is superseded.
func RetractBlockMetadata(s *Store, index uint64) {
	res := BlockResourceIRI(index)
	triples := s.QuadsInGraph(MetadataGraphIRI)
	var keep []Triple
	for _, t := range triples {
		if iri, ok := t.Subject.(IRI); ok && iri == res {
			continue
		}
		keep = append(keep, t)
	}
	s.DeleteGraph(MetadataGraphIRI)
	s.InsertTriples(MetadataGraphIRI, keep)
}
