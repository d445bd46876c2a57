package blockchain

import "testing"

// Mempool eviction after block (§8 testable property / concrete scenario 4):
// pool has tx1 {A->B, amount=50, nonce=1} and tx2 {A->C, amount=60, nonce=2}
// with A balance 100. After tx1 applies, A's balance is 50 (minus fee), and
// reverify evicts tx2 as InsufficientFunds.
func TestMempoolEvictionAfterBlock(t *testing.T) {
	store := NewAccountStore()
	aPriv, aPub := mustKeyPair(t)
	_, bPub := mustKeyPair(t)
	_, cPub := mustKeyPair(t)

	store.accounts[string(aPub.Bytes())] = &Account{Balance: 100, SpentNonces: make(map[uint64]struct{})}

	pool := NewTransactionPool(store)

	tx1 := &Transaction{Body: TransactionBody{From: aPub.Bytes(), To: bPub.Bytes(), Amount: 50, Nonce: 1}}
	tx1.Sign(aPriv)
	tx2 := &Transaction{Body: TransactionBody{From: aPub.Bytes(), To: cPub.Bytes(), Amount: 60, Nonce: 2}}
	tx2.Sign(aPriv)

	if err := pool.Register(tx1); err != nil {
		t.Fatalf("register tx1: %v", err)
	}
	if err := pool.Register(tx2); err != nil {
		t.Fatalf("register tx2: %v", err)
	}

	if err := store.ApplyTransactionBody(&tx1.Body, nil); err != nil {
		t.Fatalf("apply tx1: %v", err)
	}
	pool.RemoveConfirmed([]*Transaction{tx1})

	if got := store.GetBalance(aPub.Bytes()); got != 50 {
		t.Fatalf("balance after block: got %d want 50", got)
	}

	snapshot := pool.Snapshot()
	if _, ok := snapshot[tx1.Hash()]; ok {
		t.Fatal("tx1 should have been removed as confirmed")
	}
	if _, ok := snapshot[tx2.Hash()]; ok {
		t.Fatal("tx2 should have been evicted by reverify (insufficient funds)")
	}
}

func TestMempoolRejectsInvalidSignature(t *testing.T) {
	store := NewAccountStore()
	_, aPub := mustKeyPair(t)
	_, bPub := mustKeyPair(t)
	store.accounts[string(aPub.Bytes())] = &Account{Balance: 100, SpentNonces: make(map[uint64]struct{})}

	pool := NewTransactionPool(store)
	tx := &Transaction{Body: TransactionBody{From: aPub.Bytes(), To: bPub.Bytes(), Amount: 1, Nonce: 1}}
	// never signed

	if err := pool.Register(tx); err == nil {
		t.Fatal("expected unsigned transaction to be rejected")
	}
}
