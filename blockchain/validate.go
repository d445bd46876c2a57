package blockchain

import (
	"github.com/golang-blockchain/simplechain/crypto"
	"github.com/golang-blockchain/simplechain/errs"
)

// VerifyPow checks that block.Hash(), read as a 256-bit big-endian integer,
// has its leading header.Difficulty bits all zero — a bit-level prefix
// check, not a byte one (§4.5).
func VerifyPow(block *Block) error {
	pow := NewProofOfWork(block)
	if !pow.Validate() {
		return errs.ErrInvalidPow
	}
	return nil
}

// VerifyMinerSignature checks that the miner's proof is a valid signature,
// under miner_pub_key, over SHA256(miner_pub_key) — a self-proof that the
// miner holds the private key for the reward-receiving address (§4.5).
func VerifyMinerSignature(block *Block) error {
	pub, err := crypto.ParsePublicKey(block.Header.MinerPubKey)
	if err != nil {
		return errs.ErrInvalidMinerSig
	}
	digest := crypto.Sha256(block.Header.MinerPubKey)
	if !crypto.Verify(pub, digest, block.Header.MinerProofOfPrivKey) {
		return errs.ErrInvalidMinerSig
	}
	return nil
}

// VerifyBody rejects oversized bodies outright, then verifies each
// transaction's signature and body in order, short-circuiting on the first
// failure (§4.5). Verification is stateful: it reflects store at the moment
// of the call, not any later snapshot — but "the store" here means the
// store as the block's own transactions would leave it, not just store's
// state before the block started. Checking each transaction against a
// never-advancing snapshot would let two transactions from the same sender
// that are each individually affordable but jointly overspend both pass,
// only to have the second one fail once RegisterMined actually applies it —
// after the block was already written to disk. To avoid that, VerifyBody
// stages every transaction against a private clone of store, applying as it
// verifies, so the check a transaction sees already reflects every earlier
// transaction in the same body.
func VerifyBody(body *BlockBody, store *AccountStore, minerPubKey []byte) error {
	if len(body.Transactions) > MaxTransactionsPerBlock {
		return errs.ErrTooManyTransactions
	}
	staged := store.Clone()
	for _, tx := range body.Transactions {
		if !tx.VerifySignature() {
			return errs.ErrInvalidSig
		}
		if err := staged.VerifyTransactionBody(&tx.Body); err != nil {
			return err
		}
		if err := staged.ApplyTransactionBody(&tx.Body, minerPubKey); err != nil {
			return err
		}
	}
	return nil
}

// Verify runs the full block-validation pipeline in the order §4.5
// mandates — PoW, then miner signature, then body — returning the first
// failure. A block that passes Verify is guaranteed to apply cleanly,
// transaction by transaction in order, against store: VerifyBody already
// proved that by staging the whole body against a clone.
func Verify(block *Block, store *AccountStore) error {
	if err := VerifyPow(block); err != nil {
		return err
	}
	if err := VerifyMinerSignature(block); err != nil {
		return err
	}
	if err := VerifyBody(&block.Body, store, block.Header.MinerPubKey); err != nil {
		return err
	}
	return nil
}
