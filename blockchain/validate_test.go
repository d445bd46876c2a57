package blockchain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-blockchain/simplechain/crypto"
	"github.com/golang-blockchain/simplechain/errs"
)

func minedBlock(t *testing.T, difficulty uint8, txs []*Transaction) (*Block, *crypto.PrivateKey) {
	t.Helper()
	minerPriv, minerPub := mustKeyPair(t)
	proof := crypto.Sign(minerPriv, crypto.Sha256(minerPub.Bytes()))

	block := &Block{
		Header: BlockHeader{
			PrevHash:               make([]byte, HashLen),
			Difficulty:             difficulty,
			MinerPubKey:            minerPub.Bytes(),
			MinerProofOfPrivKey:    proof,
			ChainStateMerkleHash:   make([]byte, HashLen),
			TransactionsMerkleHash: TransactionsMerkleRoot(txs),
		},
		Body: BlockBody{Transactions: txs},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := NewProofOfWork(block).Mine(ctx); err != nil {
		t.Fatalf("mine: %v", err)
	}
	return block, minerPriv
}

func TestVerifyOrderPowBeforeMinerSig(t *testing.T) {
	store := NewAccountStore()
	block, _ := minedBlock(t, 6, nil)

	// Corrupt both the miner signature and the PoW difficulty at once;
	// verify must report the PoW failure first.
	block.Header.Difficulty = 255
	block.Header.MinerProofOfPrivKey = []byte("not a signature")

	err := Verify(block, store)
	if !errors.Is(err, errs.ErrInvalidPow) {
		t.Fatalf("expected PoW to fail first, got %v", err)
	}
}

func TestVerifyMinerSignatureRejectsForeignProof(t *testing.T) {
	store := NewAccountStore()
	block, _ := minedBlock(t, 6, nil)

	otherPriv, _ := mustKeyPair(t)
	block.Header.MinerProofOfPrivKey = crypto.Sign(otherPriv, crypto.Sha256(block.Header.MinerPubKey))
	// Re-mine so PoW still passes after mutating the proof bytes changed the header.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := NewProofOfWork(block).Mine(ctx); err != nil {
		t.Fatalf("re-mine: %v", err)
	}

	err := Verify(block, store)
	if !errors.Is(err, errs.ErrInvalidMinerSig) {
		t.Fatalf("expected InvalidMinerSig, got %v", err)
	}
}

func TestVerifyBodyRejectsTooManyTransactions(t *testing.T) {
	store := NewAccountStore()
	txs := make([]*Transaction, MaxTransactionsPerBlock+1)
	for i := range txs {
		txs[i] = &Transaction{}
	}
	err := VerifyBody(&BlockBody{Transactions: txs}, store, nil)
	if !errors.Is(err, errs.ErrTooManyTransactions) {
		t.Fatalf("expected TooManyTransactions, got %v", err)
	}
}

// Two transactions from the same sender can each be individually affordable
// against the pre-block balance while jointly overspending it. VerifyBody
// must reject the second one instead of letting both through only for
// RegisterMined's sequential apply to fail after the block is already on
// disk (§5's cross-store atomicity requirement).
func TestVerifyBodyRejectsJointOverspendWithinOneBlock(t *testing.T) {
	store := NewAccountStore()
	aPriv, aPub := mustKeyPair(t)
	_, bPub := mustKeyPair(t)
	_, cPub := mustKeyPair(t)
	store.accounts[string(aPub.Bytes())] = &Account{Balance: 100, SpentNonces: make(map[uint64]struct{})}

	tx1 := &Transaction{Body: TransactionBody{From: aPub.Bytes(), To: bPub.Bytes(), Amount: 60, Nonce: 1}}
	tx1.Sign(aPriv)
	tx2 := &Transaction{Body: TransactionBody{From: aPub.Bytes(), To: cPub.Bytes(), Amount: 60, Nonce: 2}}
	tx2.Sign(aPriv)

	// Each transaction alone is affordable (60 <= 100), but together they
	// need 120 against a balance of 100.
	if err := store.VerifyTransactionBody(&tx1.Body); err != nil {
		t.Fatalf("tx1 should verify alone: %v", err)
	}
	if err := store.VerifyTransactionBody(&tx2.Body); err != nil {
		t.Fatalf("tx2 should verify alone: %v", err)
	}

	body := &BlockBody{Transactions: []*Transaction{tx1, tx2}}
	err := VerifyBody(body, store, nil)
	if !errors.Is(err, errs.ErrInsufficientFunds) {
		t.Fatalf("expected InsufficientFunds for joint overspend, got %v", err)
	}

	// store itself must be untouched: VerifyBody only ever mutated a clone.
	if got := store.GetBalance(aPub.Bytes()); got != 100 {
		t.Fatalf("store balance changed by VerifyBody: got %d want 100", got)
	}
}
