package audit

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Signer attests chain hashes with a secp256k1 key, letting an external
// verifier confirm the chain head was produced by the holder of the key.
type Signer struct {
	priv *secp256k1.PrivateKey
}

// NewSigner parses a hex-encoded secp256k1 private key.
func NewSigner(hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")
	hexKey = strings.TrimPrefix(hexKey, "0X")

	keyBytes, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("audit: invalid signing key hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("audit: signing key must be 32 bytes, got %d", len(keyBytes))
	}

	priv := secp256k1.PrivKeyFromBytes(keyBytes)
	if priv.Key.IsZero() {
		return nil, fmt.Errorf("audit: signing key is zero")
	}

	return &Signer{priv: priv}, nil
}

// Sign returns a base64 DER signature over SHA256(chainHash).
func (s *Signer) Sign(chainHash string) string {
	digest := sha256.Sum256([]byte(chainHash))
	sig := ecdsa.Sign(s.priv, digest[:])
	return base64.StdEncoding.EncodeToString(sig.Serialize())
}

// PublicKeyHex returns the compressed public key in hex, for distribution
// to verifiers.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.priv.PubKey().SerializeCompressed())
}

// Verify checks a signature produced by Sign against a compressed public
// key in hex.
func Verify(chainHash, signature, pubKeyHex string) (bool, error) {
	pubBytes, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false, fmt.Errorf("audit: invalid public key hex: %w", err)
	}
	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return false, fmt.Errorf("audit: parse public key: %w", err)
	}

	sigBytes, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, fmt.Errorf("audit: invalid signature encoding: %w", err)
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false, fmt.Errorf("audit: parse signature: %w", err)
	}

	digest := sha256.Sum256([]byte(chainHash))
	return sig.Verify(digest[:], pub), nil
}
