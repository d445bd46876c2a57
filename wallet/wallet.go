package wallet

import (
	"bytes"
	"crypto/sha256"
	"log"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"

	"github.com/golang-blockchain/simplechain/crypto"
)

// Wallet system constants, kept from the teacher's Bitcoin-style address
// scheme even though the core no longer checks addresses for anything —
// Address() is purely a human-facing display form over the raw public key
// the core actually uses (§6: the wallet file format is an out-of-core
// collaborator).
const (
	checksumLength = 4
	version        = byte(0x00)
)

// Wallet holds one signing keypair (§6: "the core only requires that the
// wallet can supply (pub, priv) pairs and the derived miner proof").
type Wallet struct {
	PrivateKey *crypto.PrivateKey
	PublicKey  []byte // 65-byte uncompressed secp256k1 public key
}

// Address derives a Bitcoin-style display address:
// PublicKey -> SHA256 -> RIPEMD160 -> version byte -> checksum -> Base58.
func (w Wallet) Address() []byte {
	pubHash := PublicKeyHash(w.PublicKey)
	versionedHash := append([]byte{version}, pubHash...)
	checksum := Checksum(versionedHash)
	fullHash := append(versionedHash, checksum...)
	return Base58Encode(fullHash)
}

// ValidateAddress checks that address Base58-decodes to a 25-byte
// version+hash+checksum payload whose checksum matches.
func ValidateAddress(address string) bool {
	pubKeyHash, err := base58.Decode(address)
	if err != nil || len(pubKeyHash) != 25 {
		return false
	}

	addressVersion := pubKeyHash[0]
	pubKeyHashContent := pubKeyHash[1:21]
	actualChecksum := pubKeyHash[21:]

	payload := append([]byte{addressVersion}, pubKeyHashContent...)
	targetChecksum := Checksum(payload)

	return bytes.Equal(actualChecksum, targetChecksum)
}

// NewKeyPair generates a fresh secp256k1 keypair via the crypto adapter.
func NewKeyPair() (*crypto.PrivateKey, []byte) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		log.Panic(err)
	}
	return priv, pub.Bytes()
}

// MakeWallet constructs a Wallet around a freshly generated keypair.
func MakeWallet() *Wallet {
	privateKey, publicKey := NewKeyPair()
	return &Wallet{PrivateKey: privateKey, PublicKey: publicKey}
}

// MinerProof produces ECDSA_sign(priv, SHA256(pub)) — the self-proof
// verify_miner_signature checks against miner_pub_key (§4.5, §4.7).
func (w Wallet) MinerProof() []byte {
	digest := crypto.Sha256(w.PublicKey)
	return crypto.Sign(w.PrivateKey, digest)
}

// PublicKeyHash is Bitcoin's "Hash160": RIPEMD160(SHA256(pubKey)).
func PublicKeyHash(pubKey []byte) []byte {
	pubHash := sha256.Sum256(pubKey)

	hasher := ripemd160.New()
	if _, err := hasher.Write(pubHash[:]); err != nil {
		log.Panic(err)
	}
	return hasher.Sum(nil)
}

// Checksum returns the first checksumLength bytes of double-SHA256(payload).
func Checksum(payload []byte) []byte {
	firstHash := sha256.Sum256(payload)
	secondHash := sha256.Sum256(firstHash[:])
	return secondHash[:checksumLength]
}
