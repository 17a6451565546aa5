package core

// PoA consensus engine (spec.md §4.6, component C6). Grounded on the
// teacher's core/consensus.go dependency-injection shape — its
// networkAdapter/securityAdapter/authorityAdapter interfaces are kept
// (so this engine stays decoupled from concrete transport/signing
// implementations) but the PoW/PoS hybrid retarget/reward logic is
// replaced with spec.md §4.6.1-§4.6.2's round-robin authoring loop.

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBlockInterval and DefaultGrace are spec.md §4.6.2's default
// authoring slot timing.
const (
	DefaultBlockInterval = 10 * time.Second
	DefaultGrace         = 5 * time.Second
)

// PendingGraphSource supplies the application RDF data waiting to be
// committed in the next block (spec.md §4.6.2 step 1). An empty
// result is valid — a block may commit an empty graph.
type PendingGraphSource interface {
	PendingGraph(nextIndex uint64) (turtle string, graph IRI)
}

// Broadcaster is the subset of the P2P layer (C7) the consensus
// engine needs to announce newly authored blocks.
type Broadcaster interface {
	BroadcastBlock(b *Block)
}

// Consensus drives the round-robin authoring loop and block
// acceptance for one local node.
type Consensus struct {
	log *logrus.Logger

	store       *Store
	chain       *Chain
	authorities *AuthoritySet
	pending     PendingGraphSource
	net         Broadcaster

	// Empty if this node is not itself an authority.
	localID string

	blockInterval time.Duration
	grace         time.Duration

	round uint64
}

// AuthoritySigner signs an unsigned block with the local node's
// private key (crypto/ed25519.PrivateKey satisfies this via
// core/block.go's Sign once wrapped — see cmd/provchain-node/main.go).
type AuthoritySigner interface {
	SignBlock(*Block)
}

// NewConsensus constructs the engine. localID may be empty for a
// non-authority (observer) node.
func NewConsensus(log *logrus.Logger, store *Store, chain *Chain, authorities *AuthoritySet, pending PendingGraphSource, net Broadcaster, localID string) *Consensus {
	if log == nil {
		log = logrus.New()
	}
	return &Consensus{
		log:           log,
		store:         store,
		chain:         chain,
		authorities:   authorities,
		pending:       pending,
		net:           net,
		localID:       localID,
		blockInterval: DefaultBlockInterval,
		grace:         DefaultGrace,
	}
}

// WithTiming overrides the default slot timing, used by
// cmd/provchain-node to apply pkg/config's consensus.block_interval
// setting.
func (c *Consensus) WithTiming(interval, grace time.Duration) *Consensus {
	c.blockInterval = interval
	c.grace = grace
	return c
}

// Run drives the authoring loop until ctx is cancelled, implementing
// spec.md §4.6.2's "every block_interval seconds" cadence. Missed-slot
// accounting covers only the local authority's own failed attempts
// (see tick).
func (c *Consensus) Run(ctx context.Context, priv AuthoritySigner) {
	ticker := time.NewTicker(c.blockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(priv)
		}
	}
}

// tick performs one authoring attempt if the local node is designated
// for the current round, recording a missed slot for the local
// authority if that attempt fails; otherwise it only advances the
// round. A remote designated author that produces no block is not
// detected, and its missed-slot counter is not incremented; the grace
// period set by WithTiming is not consulted here.
func (c *Consensus) tick(priv AuthoritySigner) {
	height := uint64(c.chain.Len())
	designated, ok := c.authorities.DesignatedAuthor(height, c.round)
	if !ok {
		c.log.Warn("no enabled authority for current round")
		return
	}

	if c.localID == "" || designated != c.localID {
		c.round++
		return
	}

	if err := c.author(priv, height); err != nil {
		c.log.WithError(err).WithField("height", height).Warn("authoring failed, counting as missed slot")
		c.authorities.RecordMissedSlot(designated)
	}
	c.round++
}

// author implements spec.md §4.6.2 steps 1-7 for the local authority.
func (c *Consensus) author(priv AuthoritySigner, height uint64) error {
	start := time.Now()
	graphIRI := DataGraphIRI(height)
	if c.pending != nil {
		turtle, iri := c.pending.PendingGraph(height)
		if iri != "" {
			graphIRI = iri
		}
		if turtle != "" {
			if err := c.store.LoadTurtle(turtle, graphIRI); err != nil {
				return &ChainError{Kind: KindIO, Msg: "load pending graph", Err: err}
			}
		}
	}

	dataHash := hashToHex(Canonical(c.store, graphIRI))
	stateRoot := computeStateRoot(c.store)

	var prevHash string = ZeroHashHex
	if prev := c.chain.Head(); prev != nil {
		prevHash = prev.DataHash
	}

	b := NewBlock(height, graphIRI, prevHash, stateRoot, c.localID)
	b.DataHash = dataHash
	priv.SignBlock(b)

	if err := c.chain.Append(b); err != nil {
		return err
	}
	RecordBlockMetadata(c.store, b)

	c.authorities.RecordProposal(c.localID, b.Timestamp)
	c.authorities.RecordLatency(c.localID, time.Since(start))
	if c.net != nil {
		c.net.BroadcastBlock(b)
	}
	c.log.WithFields(logrus.Fields{"index": b.Index, "hash": shortHex(b.BlockHash)}).Info("authored block")
	return nil
}

// Len, Head, and At satisfy the P2P layer's ChainAccessor interface
// (core/p2p_node.go) by delegating to the underlying chain.
func (c *Consensus) Len() int                      { return c.chain.Len() }
func (c *Consensus) Head() *Block                   { return c.chain.Head() }
func (c *Consensus) At(i uint64) (*Block, error)     { return c.chain.At(i) }

// AcceptBlock satisfies the P2P layer's ChainAccessor interface; it is
// an alias for AcceptExternal, the name a peer-received block is
// validated and appended (or fork-resolved) under.
func (c *Consensus) AcceptBlock(b *Block) error { return c.AcceptExternal(b) }

// AcceptExternal validates and appends/replaces a block received from
// a peer, implementing §4.6.3's acceptance rule and routing same-index
// conflicts to ResolveFork. The authority check is ValidateBlock's
// authorities.ActiveAt lookup: any authority enabled at the block's
// index is accepted, and no check against the designated author for
// a round is made.
func (c *Consensus) AcceptExternal(b *Block) error {
	height := uint64(c.chain.Len())

	if b.Index < height {
		existing, err := c.chain.At(b.Index)
		if err != nil {
			return err
		}
		if existing.BlockHash == b.BlockHash {
			return nil // already have it
		}
		return ResolveFork(c.store, c.chain, existing, b)
	}

	if b.Index > height {
		return &ChainError{Kind: KindConsensus, Msg: fmt.Sprintf("out-of-order block %d, expected %d (buffer upstream in p2p layer)", b.Index, height)}
	}

	var prev *Block
	if height > 0 {
		p, err := c.chain.At(height - 1)
		if err != nil {
			return err
		}
		prev = p
	}
	if err := ValidateBlock(b, prev, c.store, c.authorities); err != nil {
		return err
	}
	if err := c.chain.Append(b); err != nil {
		return err
	}
	RecordBlockMetadata(c.store, b)
	c.authorities.RecordProposal(b.Validator, b.Timestamp)
	return nil
}

// computeStateRoot hashes the sorted set of per-graph canonical
// hashes, excluding the metadata graph per DESIGN.md §2's first Open
// Question decision (avoids a circular commit).
func computeStateRoot(s *Store) string {
	graphs := s.GraphIRIs()
	lines := make([]string, 0, len(graphs))
	for _, g := range graphs {
		if g == MetadataGraphIRI {
			continue
		}
		lines = append(lines, string(g)+"|"+hashToHex(Canonical(s, g)))
	}
	sort.Strings(lines)
	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return hashToHex(sum)
}

// Ed25519Signer adapts an ed25519.PrivateKey to the AuthoritySigner
// interface the authoring loop uses.
type Ed25519Signer struct {
	Priv ed25519.PrivateKey
}

// SignBlock signs b in place with the wrapped private key.
func (s Ed25519Signer) SignBlock(b *Block) { b.Sign(s.Priv) }
