package wallet

import (
	"log"

	"github.com/mr-tron/base58"
)

// Base58Encode renders input in Bitcoin-style Base58 — the display codec for
// wallet addresses (§6). Base58 drops the characters Base64 has that are
// easy to misread (0/O, I/l) or transcribe wrong by hand.
func Base58Encode(input []byte) []byte {
	return []byte(base58.Encode(input))
}

// Base58Decode inverts Base58Encode, panicking on malformed input — callers
// only ever feed it addresses this package itself produced.
func Base58Decode(input []byte) []byte {
	decode, err := base58.Decode(string(input))
	if err != nil {
		log.Panic(err)
	}
	return decode
}
