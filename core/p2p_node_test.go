//go:build unit

package core

import (
	"testing"
	"time"
)

func TestNodeStatusReportsChainAndAuthorityState(t *testing.T) {
	store := NewStore(nil)
	chain := NewChain()
	genesis := NewBlock(0, DataGraphIRI(0), ZeroHashHex, "", "genesis")
	genesis.DataHash = hashToHex(Canonical(store, DataGraphIRI(0)))
	_ = chain.Append(genesis)

	node := NewNode(nil, "node1", "net1", "127.0.0.1:0", chain, store)

	authorities := NewAuthoritySet(nil)
	pub, _, _ := GenerateKeypair()
	authorities.AddAuthority("node1", pub, 0)
	authorities.RecordProposal("node1", time.Now())

	startedAt := time.Now().Add(-time.Minute)
	status := node.Status(authorities, "node1", startedAt)

	if status.NodeID != "node1" || status.NetworkID != "net1" {
		t.Fatalf("unexpected identity fields: %+v", status)
	}
	if status.ChainLength != 1 {
		t.Fatalf("expected chain length 1, got %d", status.ChainLength)
	}
	if status.LatestHash != genesis.BlockHash {
		t.Fatalf("expected latest hash to match genesis block hash")
	}
	if !status.IsAuthority {
		t.Fatal("expected IsAuthority to be true when localID is non-empty")
	}
	if status.Reputation != 1.0 {
		t.Fatalf("expected reputation 1.0 after one proposal with no missed slots, got %v", status.Reputation)
	}
	if status.Uptime < time.Minute {
		t.Fatalf("expected uptime to be at least 1 minute, got %v", status.Uptime)
	}
}

func TestNodeStatusNonAuthorityHasNoReputation(t *testing.T) {
	store := NewStore(nil)
	chain := NewChain()
	node := NewNode(nil, "observer", "net1", "127.0.0.1:0", chain, store)

	status := node.Status(NewAuthoritySet(nil), "", time.Now())
	if status.IsAuthority {
		t.Fatal("expected IsAuthority to be false for an empty localID")
	}
	if status.Reputation != 0 {
		t.Fatalf("expected zero-value reputation for a non-authority node, got %v", status.Reputation)
	}
}
