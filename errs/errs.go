// Package errs defines the flat error taxonomy used across the chain,
// wallet, and mempool packages. Every kind is a distinct sentinel so callers
// can branch with errors.Is instead of parsing strings.
package errs

import "errors"

// Codec errors.
var (
	ErrDecode = errors.New("decode: truncated or malformed stream")
)

// Transaction-body rejection (AccountStore.VerifyTransactionBody).
var (
	ErrInvalidAmount     = errors.New("transaction: invalid amount")
	ErrInsufficientFunds = errors.New("transaction: insufficient funds")
	ErrInvalidNonce      = errors.New("transaction: nonce already spent")
)

// Transaction signature rejection.
var (
	ErrInvalidSig = errors.New("transaction: invalid signature")
)

// Block rejection at validation (pow / miner proof / body).
var (
	ErrInvalidMinerSig     = errors.New("block: invalid miner proof of key")
	ErrInvalidPow          = errors.New("block: proof of work target not met")
	ErrTooManyTransactions = errors.New("block: too many transactions in body")
)

// Block rejection at chain acceptance.
var (
	ErrInvalidPrevBlock  = errors.New("block: prev_hash does not match chain tip")
	ErrInvalidDifficulty = errors.New("block: difficulty does not match current target")
)

// Unrecoverable startup errors.
var (
	ErrCorruptedGenesisBlock = errors.New("chain: genesis block does not match the pinned hash")
	ErrUnknownGenesisBlock   = errors.New("chain: genesis block prev_hash is not the genesis sentinel")
	ErrCorruptedChain        = errors.New("chain: corrupted chain state")
)
