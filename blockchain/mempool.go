package blockchain

import "github.com/golang-blockchain/simplechain/errs"

// TransactionPool is the mempool of unconfirmed transactions (§4.4), keyed
// by transaction hash. Like AccountStore and the chain engine, it is a
// single-writer, multi-reader resource (§5). The pool has no lock of its
// own and Node adds none; RemoveConfirmed runs under Chain's lock when
// RegisterMined calls it.
type TransactionPool struct {
	store *AccountStore
	txs   map[[32]byte]*Transaction
}

// NewTransactionPool returns an empty pool backed by store for body
// validation.
func NewTransactionPool(store *AccountStore) *TransactionPool {
	return &TransactionPool{store: store, txs: make(map[[32]byte]*Transaction)}
}

// Register verifies tx's signature then its body against the current
// AccountStore and, on success, inserts it under hash(tx) (§4.4). A
// duplicate hash silently overwrites the existing entry — the pool is
// simply keyed by hash, with no separate dedup logic.
func (p *TransactionPool) Register(tx *Transaction) error {
	if !tx.VerifySignature() {
		return errs.ErrInvalidSig
	}
	if err := p.store.VerifyTransactionBody(&tx.Body); err != nil {
		return err
	}
	p.txs[tx.Hash()] = tx
	return nil
}

// Snapshot returns a cheap read-only copy of the current pending set, for
// the miner to assemble a candidate block from (§4.4).
func (p *TransactionPool) Snapshot() map[[32]byte]*Transaction {
	out := make(map[[32]byte]*Transaction, len(p.txs))
	for h, tx := range p.txs {
		out[h] = tx
	}
	return out
}

// RemoveConfirmed deletes the given transactions by hash, then reverifies
// every remaining entry against the now-advanced AccountStore (§4.4).
func (p *TransactionPool) RemoveConfirmed(txs []*Transaction) {
	for _, tx := range txs {
		delete(p.txs, tx.Hash())
	}
	p.Reverify()
}

// Reverify drops every entry whose body no longer validates against the
// current AccountStore. Signatures are never re-checked: they cannot become
// invalid once verified (§4.4). The single pass deletes from the map it is
// ranging over, which Go permits: a deleted entry is simply not visited.
func (p *TransactionPool) Reverify() {
	for hash, tx := range p.txs {
		if err := p.store.VerifyTransactionBody(&tx.Body); err != nil {
			delete(p.txs, hash)
		}
	}
}
