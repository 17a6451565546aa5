package core

// Block entity (spec.md §3, §4.3, component C3). Grounded on the
// teacher's core/consensus.go BlockHeader.SerializeWithoutNonce /
// core/ledger.go block-hash bookkeeping, generalized from a PoW/PoS
// hybrid header to the PoA block spec.md defines.

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ZeroHashHex is the 64-hex-zero previous_hash of the genesis block.
var ZeroHashHex = strings.Repeat("0", 64)

// Block is one entry in the chain (spec.md §3).
type Block struct {
	Index        uint64    `json:"index"`
	Timestamp    time.Time `json:"timestamp"`
	DataGraphIRI IRI       `json:"data_graph_iri"`
	DataHash     string    `json:"data_hash"`     // lowercase hex, 64 chars
	PreviousHash string    `json:"previous_hash"` // lowercase hex, 64 chars
	StateRoot    string    `json:"state_root"`    // lowercase hex, 64 chars; see DESIGN.md §2, item 1
	Validator    string    `json:"validator"`
	Signature    []byte    `json:"signature"` // 64 raw bytes
	BlockHash    string    `json:"block_hash"`
}

// NewBlock constructs an unsigned block. Signing and block_hash
// computation happen afterward via Sign.
func NewBlock(index uint64, dataGraphIRI IRI, previousHash, stateRoot string, validator string) *Block {
	return &Block{
		Index:        index,
		Timestamp:    time.Now().UTC(),
		DataGraphIRI: dataGraphIRI,
		PreviousHash: previousHash,
		StateRoot:    stateRoot,
		Validator:    validator,
	}
}

// SignableBytes is the canonical byte encoding used for hashing and
// signing, exactly the field-concatenation spec.md §6 mandates:
//
//	index || "|" || timestamp || "|" || previous_hash || "|" ||
//	data_hash || "|" || state_root || "|" || validator
func (b *Block) SignableBytes() []byte {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(b.Index, 10))
	sb.WriteByte('|')
	sb.WriteString(b.Timestamp.Format(time.RFC3339))
	sb.WriteByte('|')
	sb.WriteString(b.PreviousHash)
	sb.WriteByte('|')
	sb.WriteString(b.DataHash)
	sb.WriteByte('|')
	sb.WriteString(b.StateRoot)
	sb.WriteByte('|')
	sb.WriteString(b.Validator)
	return []byte(sb.String())
}

// Sign finalizes DataHash/StateRoot must already be set; it computes
// the Ed25519 signature over SignableBytes and the resulting
// block_hash (SHA-256 over every field including the signature).
func (b *Block) Sign(priv ed25519.PrivateKey) {
	b.Signature = ed25519.Sign(priv, b.SignableBytes())
	b.BlockHash = b.computeBlockHash()
}

// computeBlockHash is SHA-256 over the canonical fields plus the
// signature — the block's identity (spec.md §3 "block_hash").
func (b *Block) computeBlockHash() string {
	h := sha256.New()
	h.Write(b.SignableBytes())
	h.Write(b.Signature)
	return hexEncode(h.Sum(nil))
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}

// VerifySignature checks the Ed25519 signature against pub.
func (b *Block) VerifySignature(pub ed25519.PublicKey) bool {
	if len(b.Signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, b.SignableBytes(), b.Signature)
}

// IsGenesis reports whether b is the chain's first block.
func (b *Block) IsGenesis() bool {
	return b.Index == 0 && b.PreviousHash == ZeroHashHex
}

func hashToHex(h [32]byte) string { return hexEncode(h[:]) }

// String renders a short human-readable summary, used in log lines.
func (b *Block) String() string {
	return fmt.Sprintf("Block{index=%d, hash=%s, validator=%s}", b.Index, shortHex(b.BlockHash), b.Validator)
}

func shortHex(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-6:]
}
