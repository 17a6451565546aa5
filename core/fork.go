package core

// Fork resolution (spec.md §4.6.4, component C6). Grounded on the
// teacher's core/chain_fork_manager.go (fork bookkeeping, rewind +
// rebuild idiom) — simplified to PoA's single-slot reorg depth: only
// same-index, single-block forks are resolved, since honest
// authorities never sign two blocks at the same index two rounds
// apart under the PoA liveness assumption (spec.md §4.6.5).

import "fmt"

// ErrConsensusTie is returned when two competing blocks at the same
// index have identical timestamp AND block_hash — an impossible
// outcome under honest PoA (two distinct authorities producing
// byte-identical blocks) that spec.md §9 leaves as an open question;
// this core treats it as fatal rather than silently picking one,
// per DESIGN.md §2, item 3. ChainError.IsFatal reports it as fatal.
var ErrConsensusTie = &ChainError{Kind: KindFork, Msg: "competing blocks have identical timestamp and block_hash"}

// ResolveFork implements spec.md §4.6.4: given the currently committed
// block at an index and a newly-received competing block at the same
// index, it decides a winner and, if the new block wins, performs the
// local reorganization (graph + metadata swap). The caller (C7's p2p
// layer) is responsible for having already loaded candidate's named
// graph into the store before calling this — ResolveFork only swaps
// chain/metadata bookkeeping, it does not fetch data.
func ResolveFork(store *Store, chain *Chain, existing, candidate *Block) error {
	if existing.Index != candidate.Index {
		return fmt.Errorf("resolve fork: index mismatch %d != %d", existing.Index, candidate.Index)
	}

	winner, loser, swapped := pickWinner(existing, candidate)
	if winner == nil {
		return ErrConsensusTie
	}
	if !swapped {
		return nil // existing already wins; nothing to do
	}

	store.DeleteGraph(loser.DataGraphIRI)
	RetractBlockMetadata(store, loser.Index)

	if err := chain.Replace(winner.Index, winner); err != nil {
		return err
	}
	RecordBlockMetadata(store, winner)
	return nil
}

// pickWinner implements §4.6.4 steps 1-2. swapped reports whether b
// (the candidate, "existing" being a) displaces a.
func pickWinner(a, b *Block) (winner, loser *Block, swapped bool) {
	if a.Timestamp.Equal(b.Timestamp) {
		if a.BlockHash == b.BlockHash {
			return nil, nil, false
		}
		if a.BlockHash < b.BlockHash {
			return a, b, false
		}
		return b, a, true
	}
	if a.Timestamp.Before(b.Timestamp) {
		return a, b, false
	}
	return b, a, true
}
