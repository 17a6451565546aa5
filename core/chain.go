package core

// Chain container and validation (spec.md §3, §4.3, component C3).
// Grounded on teacher core/ledger.go's Blocks []*Block +
// blockIndex map[Hash]*Block bookkeeping, generalized from a
// height-keyed ledger of transactions to an index-keyed ledger of
// graph-committing blocks.

import (
	"crypto/ed25519"
	"fmt"
	"sync"
	"time"
)

// ClockSkewBound is the default tolerance for a block's timestamp
// being ahead of the local clock (spec.md §4.3 rule 6).
const ClockSkewBound = 30 * time.Second

// Chain is the ordered sequence of blocks. It exclusively owns its
// blocks; mutation is limited to append, block replacement during
// fork resolution (core/fork.go), and truncation during restore.
type Chain struct {
	mu     sync.RWMutex
	blocks []*Block
}

// NewChain constructs an empty chain. Callers append the genesis
// block via Append.
func NewChain() *Chain { return &Chain{} }

// Len returns the number of blocks.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// Head returns the most recently appended block, or nil if empty.
func (c *Chain) Head() *Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[len(c.blocks)-1]
}

// At returns the block at index i.
func (c *Chain) At(i uint64) (*Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i >= uint64(len(c.blocks)) {
		return nil, fmt.Errorf("block %d not found", i)
	}
	return c.blocks[i], nil
}

// Blocks returns a defensive copy of every block in order.
func (c *Chain) Blocks() []*Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Append adds b as the next block, strictly requiring b.Index ==
// Len(). It does not re-validate b; callers must call ValidateBlock
// first (spec.md §4.3's validate/append split keeps validation pure
// and side-effect-free).
func (c *Chain) Append(b *Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b.Index != uint64(len(c.blocks)) {
		return fmt.Errorf("append: expected index %d, got %d", len(c.blocks), b.Index)
	}
	c.blocks = append(c.blocks, b)
	return nil
}

// Replace swaps the block at index i for winner, used only by fork
// resolution (core/fork.go). Any blocks after i are truncated since
// they were built atop the losing branch.
func (c *Chain) Replace(i uint64, winner *Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= uint64(len(c.blocks)) {
		return fmt.Errorf("replace: index %d out of range", i)
	}
	c.blocks = append(c.blocks[:i], winner)
	return nil
}

// Truncate drops every block at or after index i, used during
// restore (core/storage.go).
func (c *Chain) Truncate(i uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < uint64(len(c.blocks)) {
		c.blocks = c.blocks[:i]
	}
}

// AuthoritySetAt looks up which authorities were enabled at a given
// block index — the only governance interface this core requires
// (spec.md §9 Open Question on authority-set governance; see
// DESIGN.md §2, item 2).
type AuthoritySetAt interface {
	ActiveAt(height uint64, id string) (pub ed25519.PublicKey, ok bool)
}

// ValidateBlock implements spec.md §4.3's six validation rules. It is
// pure: no store or chain mutation happens here.
func ValidateBlock(b, prev *Block, store *Store, authorities AuthoritySetAt) error {
	if prev == nil {
		if b.Index != 0 {
			return &ChainError{Kind: KindConsensus, Msg: "genesis block must have index 0"}
		}
		if b.PreviousHash != ZeroHashHex {
			return &ChainError{Kind: KindConsensus, Msg: "genesis block previous_hash must be all zero"}
		}
	} else {
		if b.Index != prev.Index+1 {
			return &ChainError{Kind: KindConsensus, Msg: fmt.Sprintf("expected index %d, got %d", prev.Index+1, b.Index)}
		}
		if b.PreviousHash != prev.DataHash {
			return &ChainError{Kind: KindConsensus, Msg: "previous_hash does not match predecessor's data_hash"}
		}
	}

	recomputed := hashToHex(Canonical(store, b.DataGraphIRI))
	if b.DataHash != recomputed {
		return &ChainError{Kind: KindConsensus, Msg: "data_hash does not match recomputed canonical hash"}
	}

	pub, ok := authorities.ActiveAt(b.Index, b.Validator)
	if !ok {
		return &ChainError{Kind: KindConsensus, Msg: fmt.Sprintf("validator %q is not a known authority at index %d", b.Validator, b.Index)}
	}
	if !b.VerifySignature(pub) {
		return &ChainError{Kind: KindCrypto, Msg: "signature verification failed"}
	}

	if prev != nil && !b.Timestamp.After(prev.Timestamp) {
		return &ChainError{Kind: KindConsensus, Msg: "timestamp does not strictly increase"}
	}
	if b.Timestamp.After(time.Now().UTC().Add(ClockSkewBound)) {
		return &ChainError{Kind: KindConsensus, Msg: "timestamp too far in the future"}
	}
	return nil
}

// ValidateChain validates every block pairwise from genesis.
func ValidateChain(c *Chain, store *Store, authorities AuthoritySetAt) error {
	blocks := c.Blocks()
	var prev *Block
	for _, b := range blocks {
		if err := ValidateBlock(b, prev, store, authorities); err != nil {
			return fmt.Errorf("block %d: %w", b.Index, err)
		}
		prev = b
	}
	return nil
}
