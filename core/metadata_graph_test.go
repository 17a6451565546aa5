//go:build unit

package core

import "testing"

func TestRecordBlockMetadataGenesis(t *testing.T) {
	s := NewStore(nil)
	genesis := NewBlock(0, DataGraphIRI(0), ZeroHashHex, "", "genesis")
	genesis.DataHash = ZeroHashHex
	RecordBlockMetadata(s, genesis)

	triples := s.QuadsInGraph(MetadataGraphIRI)
	res := BlockResourceIRI(0)
	var sawType, sawPreceded bool
	for _, tr := range triples {
		subj, ok := tr.Subject.(IRI)
		if !ok || subj != res {
			continue
		}
		if tr.Predicate == predRDFType {
			sawType = true
			if obj, ok := tr.Object.(IRI); !ok || obj != classGenesisBlock {
				t.Fatalf("expected genesis block rdf:type %s, got %v", classGenesisBlock, tr.Object)
			}
		}
		if tr.Predicate == predWasPrecededBy {
			sawPreceded = true
		}
	}
	if !sawType {
		t.Fatal("expected an rdf:type triple for the genesis block resource")
	}
	if sawPreceded {
		t.Fatal("genesis block must not assert wasPrecededBy")
	}
}

func TestRecordBlockMetadataNonGenesisAssertsPrecededBy(t *testing.T) {
	s := NewStore(nil)
	b := NewBlock(1, DataGraphIRI(1), "prevhash", "", "authA")
	b.DataHash = "hash1"
	RecordBlockMetadata(s, b)

	triples := s.QuadsInGraph(MetadataGraphIRI)
	res := BlockResourceIRI(1)
	prevRes := BlockResourceIRI(0)
	var found bool
	for _, tr := range triples {
		subj, ok := tr.Subject.(IRI)
		if ok && subj == res && tr.Predicate == predWasPrecededBy {
			if obj, ok := tr.Object.(IRI); ok && obj == prevRes {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected non-genesis block to assert wasPrecededBy its predecessor's resource")
	}
}

func TestRetractBlockMetadataRemovesOnlyThatBlock(t *testing.T) {
	s := NewStore(nil)
	b0 := NewBlock(0, DataGraphIRI(0), ZeroHashHex, "", "genesis")
	b0.DataHash = ZeroHashHex
	b1 := NewBlock(1, DataGraphIRI(1), "h0", "", "authA")
	b1.DataHash = "h1"
	RecordBlockMetadata(s, b0)
	RecordBlockMetadata(s, b1)

	RetractBlockMetadata(s, 1)

	triples := s.QuadsInGraph(MetadataGraphIRI)
	res0 := BlockResourceIRI(0)
	res1 := BlockResourceIRI(1)
	var sawBlock0, sawBlock1 bool
	for _, tr := range triples {
		subj, ok := tr.Subject.(IRI)
		if !ok {
			continue
		}
		if subj == res0 {
			sawBlock0 = true
		}
		if subj == res1 {
			sawBlock1 = true
		}
	}
	if !sawBlock0 {
		t.Fatal("expected block 0's metadata to survive retraction of block 1")
	}
	if sawBlock1 {
		t.Fatal("expected block 1's metadata to be fully retracted")
	}
}
