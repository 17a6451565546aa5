package core

// Ed25519 signing primitives (spec.md §4.5, component C5). Grounded
// on the teacher's core/security.go Sign/Verify dispatch, narrowed
// from its Ed25519/BLS/Dilithium multi-algorithm surface to the
// single Ed25519 algorithm spec.md §4.5 mandates (see SPEC_FULL.md §2
// for why BLS/Dilithium were dropped rather than kept unused).

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// GenerateKeypair creates a fresh Ed25519 keypair using crypto/rand.
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, &ChainError{Kind: KindCrypto, Msg: "generate keypair", Err: err}
	}
	return pub, priv, nil
}

// LoadOrGenerateKeypair implements spec.md §4.5's load_or_generate_keypair:
// if path exists and contains exactly 32 raw bytes (the Ed25519 seed,
// no header — spec.md §6's "keypair file" format), it is loaded. If
// path is empty or does not exist, a fresh key is generated and, if
// path is non-empty, persisted in that same raw format. An existing
// file of any other length is an error; no key is generated and the
// file is left as it is.
func LoadOrGenerateKeypair(path string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			if len(raw) != ed25519.SeedSize {
				return nil, nil, &ChainError{Kind: KindCrypto, Msg: fmt.Sprintf("key file %s must contain exactly %d raw bytes", path, ed25519.SeedSize)}
			}
			priv := ed25519.NewKeyFromSeed(raw)
			pub := priv.Public().(ed25519.PublicKey)
			return pub, priv, nil
		}
		if !os.IsNotExist(err) {
			return nil, nil, &ChainError{Kind: KindIO, Msg: "read key file", Err: err}
		}
	}

	pub, priv, err := GenerateKeypair()
	if err != nil {
		return nil, nil, err
	}
	if path == "" {
		return pub, priv, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, &ChainError{Kind: KindIO, Msg: "create key directory", Err: err}
	}
	seed := priv.Seed()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, nil, &ChainError{Kind: KindIO, Msg: "create key file", Err: err}
	}
	defer f.Close()
	if _, err := f.Write(seed); err != nil {
		return nil, nil, &ChainError{Kind: KindIO, Msg: "write key file", Err: err}
	}
	return pub, priv, nil
}

// PublicKeyHex renders pub as lowercase hex, the wire/config form
// spec.md §6 uses for an authority's public identity.
func PublicKeyHex(pub ed25519.PublicKey) string {
	return hex.EncodeToString(pub)
}

// ParsePublicKeyHex is the inverse of PublicKeyHex.
func ParsePublicKeyHex(s string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, &ChainError{Kind: KindCrypto, Msg: "decode public key hex", Err: err}
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, &ChainError{Kind: KindCrypto, Msg: fmt.Sprintf("public key has wrong length %d", len(raw))}
	}
	return ed25519.PublicKey(raw), nil
}
