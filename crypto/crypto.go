// Package crypto is the thin adapter the rest of simplechain calls through
// for hashing, key generation, and ECDSA-over-secp256k1 signing. It never
// does anything the caller could not trivially verify itself; its whole job
// is to keep the curve and encoding choices in one place.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// PubKeyLen is the width of an uncompressed secp256k1 public key (SEC1: 0x04
// prefix + 32-byte X + 32-byte Y).
const PubKeyLen = 65

// PrivateKey wraps a secp256k1 scalar. It is kept opaque outside this package
// so the rest of the codebase never has to know which curve implementation
// produced it.
type PrivateKey struct {
	inner *btcec.PrivateKey
}

// PublicKey wraps a secp256k1 point.
type PublicKey struct {
	inner *btcec.PublicKey
}

// Sha256 hashes data with SHA-256. Every signature in simplechain signs the
// output of this function, never a raw message.
func Sha256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// GenerateKeyPair creates a fresh secp256k1 key pair.
func GenerateKeyPair() (*PrivateKey, *PublicKey, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: generate key pair: %w", err)
	}
	return &PrivateKey{priv}, &PublicKey{priv.PubKey()}, nil
}

// PrivateKeyFromScalar reconstructs a private key from its raw 32-byte scalar,
// the form the wallet file stores on disk.
func PrivateKeyFromScalar(d []byte) *PrivateKey {
	var scalar btcec.ModNScalar
	scalar.SetByteSlice(d)
	return &PrivateKey{btcec.PrivKeyFromScalar(&scalar)}
}

// Scalar returns the raw 32-byte private scalar, for on-disk wallet storage.
func (k *PrivateKey) Scalar() []byte {
	return k.inner.Serialize()
}

// PubKey derives the public key matching this private key.
func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{k.inner.PubKey()}
}

// Bytes returns the 65-byte uncompressed SEC1 encoding of the public key —
// the on-wire form used everywhere a TransactionBody or BlockHeader carries
// a public key.
func (k *PublicKey) Bytes() []byte {
	return k.inner.SerializeUncompressed()
}

// ParsePublicKey decodes a 65-byte uncompressed SEC1 public key.
func ParsePublicKey(data []byte) (*PublicKey, error) {
	if len(data) != PubKeyLen {
		return nil, fmt.Errorf("crypto: public key must be %d bytes, got %d", PubKeyLen, len(data))
	}
	pub, err := btcec.ParsePubKey(data)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse public key: %w", err)
	}
	return &PublicKey{pub}, nil
}

// Sign signs a SHA-256 digest with the given private key using RFC 6979
// deterministic nonces, and returns the ASN.1 DER encoding of the signature —
// a variable-length byte string, matching §3's Transaction.signature field.
func Sign(priv *PrivateKey, digest [32]byte) []byte {
	sig := btcecdsa.Sign(priv.inner, digest[:])
	return sig.Serialize()
}

// Verify checks a DER-encoded signature produced by Sign against a public
// key and digest. A malformed signature is simply invalid, never an error —
// signature verification is a predicate, not a decode step.
func Verify(pub *PublicKey, digest [32]byte, sig []byte) bool {
	parsed, err := btcecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(digest[:], pub.inner)
}

// SecureRandom returns n cryptographically secure random bytes.
func SecureRandom(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("crypto: secure random: %w", err)
	}
	return buf, nil
}

// RandomUint64 draws a uniformly random 64-bit value, used by the CLI's send
// command to pick transaction nonces. The miner's block-header nonce search
// starts from zero and does not use it.
func RandomUint64() (uint64, error) {
	buf, err := SecureRandom(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v, nil
}
