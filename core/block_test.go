//go:build unit

package core

import (
	"crypto/ed25519"
	"testing"
)

func TestBlockSignAndVerify(t *testing.T) {
	pub, priv, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	b := NewBlock(1, DataGraphIRI(1), ZeroHashHex, "deadbeef", "authA")
	b.DataHash = "cafebabe"
	b.Sign(priv)

	if len(b.Signature) != ed25519.SignatureSize {
		t.Fatalf("expected %d-byte signature, got %d", ed25519.SignatureSize, len(b.Signature))
	}
	if b.BlockHash == "" {
		t.Fatal("expected block_hash to be set after Sign")
	}
	if !b.VerifySignature(pub) {
		t.Fatal("expected signature to verify against signing key")
	}

	otherPub, _, _ := GenerateKeypair()
	if b.VerifySignature(otherPub) {
		t.Fatal("expected signature to fail verification against unrelated key")
	}
}

func TestBlockVerifySignatureRejectsWrongLength(t *testing.T) {
	b := NewBlock(0, DataGraphIRI(0), ZeroHashHex, "", "genesis")
	b.Signature = []byte{1, 2, 3}
	pub, _, _ := GenerateKeypair()
	if b.VerifySignature(pub) {
		t.Fatal("expected undersized signature to fail verification")
	}
}

func TestBlockIsGenesis(t *testing.T) {
	genesis := NewBlock(0, DataGraphIRI(0), ZeroHashHex, "", "genesis")
	if !genesis.IsGenesis() {
		t.Fatal("expected index 0 with zero previous_hash to be genesis")
	}

	notGenesis := NewBlock(1, DataGraphIRI(1), "somehash", "", "authA")
	if notGenesis.IsGenesis() {
		t.Fatal("expected index 1 to not be genesis")
	}
}

func TestBlockSignableBytesChangesWithFields(t *testing.T) {
	a := NewBlock(1, DataGraphIRI(1), ZeroHashHex, "root1", "authA")
	a.DataHash = "hash1"
	b := NewBlock(1, DataGraphIRI(1), ZeroHashHex, "root1", "authA")
	b.DataHash = "hash2"

	if string(a.SignableBytes()) == string(b.SignableBytes()) {
		t.Fatal("expected differing data_hash to produce differing signable bytes")
	}
}
