package blockchain

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang-blockchain/simplechain/crypto"
	"github.com/golang-blockchain/simplechain/errs"
)

func openTestChain(t *testing.T) (*Chain, *AccountStore) {
	t.Helper()
	store := NewAccountStore()
	chain, err := OpenChain(t.TempDir(), store)
	if err != nil {
		t.Fatalf("open chain: %v", err)
	}
	t.Cleanup(func() { chain.Close() })
	return chain, store
}

func TestOpenChainEmptyHasGenesisSentinelTip(t *testing.T) {
	chain, _ := openTestChain(t)
	if chain.Height() != 0 {
		t.Fatalf("height = %d, want 0", chain.Height())
	}
	if chain.NewestHash() != genesisSentinel {
		t.Fatal("empty chain's newest_hash should be SHA256(\"GENESIS\")")
	}
}

func mineLinkedBlock(t *testing.T, prevHash [32]byte, difficulty uint8) *Block {
	t.Helper()
	minerPriv, minerPub := mustKeyPair(t)
	proof := crypto.Sign(minerPriv, crypto.Sha256(minerPub.Bytes()))

	block := &Block{Header: BlockHeader{
		PrevHash:               append([]byte{}, prevHash[:]...),
		Difficulty:             difficulty,
		MinerPubKey:            minerPub.Bytes(),
		MinerProofOfPrivKey:    proof,
		ChainStateMerkleHash:   make([]byte, HashLen),
		TransactionsMerkleHash: make([]byte, HashLen),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := NewProofOfWork(block).Mine(ctx); err != nil {
		t.Fatalf("mine: %v", err)
	}
	return block
}

func TestRegisterMinedRejectsWrongPrevHash(t *testing.T) {
	chain, _ := openTestChain(t)
	var wrongPrev [32]byte
	copy(wrongPrev[:], []byte("not the real chain tip hash!!!!"))

	block := mineLinkedBlock(t, wrongPrev, 4)
	pool := NewTransactionPool(chain.store)

	err := chain.RegisterMined(block, pool)
	if !errors.Is(err, errs.ErrInvalidPrevBlock) {
		t.Fatalf("expected InvalidPrevBlock, got %v", err)
	}
}

func TestRegisterMinedRejectsWrongDifficulty(t *testing.T) {
	chain, _ := openTestChain(t)
	block := mineLinkedBlock(t, chain.NewestHash(), CurrentDifficulty()+1)

	pool := NewTransactionPool(chain.store)
	err := chain.RegisterMined(block, pool)
	if !errors.Is(err, errs.ErrInvalidDifficulty) {
		t.Fatalf("expected InvalidDifficulty, got %v", err)
	}
}

func TestRegisterMinedAcceptsLinkedBlockAndPersists(t *testing.T) {
	chain, store := openTestChain(t)
	block := mineLinkedBlock(t, chain.NewestHash(), CurrentDifficulty())
	pool := NewTransactionPool(store)

	if err := chain.RegisterMined(block, pool); err != nil {
		t.Fatalf("register mined: %v", err)
	}

	if chain.Height() != 1 {
		t.Fatalf("height = %d, want 1", chain.Height())
	}
	if chain.NewestHash() != block.Hash() {
		t.Fatal("newest_hash should now be the accepted block's hash")
	}

	reward := RewardForHeight(1)
	if got := store.GetBalance(block.Header.MinerPubKey); got != reward {
		t.Fatalf("miner balance after accept: got %d want %d", got, reward)
	}

	got, err := chain.GetBlock(block.Hash())
	if err != nil {
		t.Fatalf("get block from index: %v", err)
	}
	if got.Hash() != block.Hash() {
		t.Fatal("block retrieved from index does not match what was accepted")
	}
}

// RegisterMined must reject a block whose own transactions are each
// individually affordable against the pre-block balance but jointly
// overspend it, and must do so before touching the chain file, the
// secondary index, AccountStore, or the mempool (§5's cross-store
// atomicity requirement).
func TestRegisterMinedRejectsJointOverspendAndTouchesNothing(t *testing.T) {
	chain, store := openTestChain(t)

	aPriv, aPub := mustKeyPair(t)
	_, bPub := mustKeyPair(t)
	_, cPub := mustKeyPair(t)
	store.accounts[string(aPub.Bytes())] = &Account{Balance: 100, SpentNonces: make(map[uint64]struct{})}

	tx1 := &Transaction{Body: TransactionBody{From: aPub.Bytes(), To: bPub.Bytes(), Amount: 60, Nonce: 1}}
	tx1.Sign(aPriv)
	tx2 := &Transaction{Body: TransactionBody{From: aPub.Bytes(), To: cPub.Bytes(), Amount: 60, Nonce: 2}}
	tx2.Sign(aPriv)

	pool := NewTransactionPool(store)
	if err := pool.Register(tx1); err != nil {
		t.Fatalf("register tx1: %v", err)
	}
	if err := pool.Register(tx2); err != nil {
		t.Fatalf("register tx2: %v", err)
	}

	minerPriv, minerPub := mustKeyPair(t)
	proof := crypto.Sign(minerPriv, crypto.Sha256(minerPub.Bytes()))
	newest := chain.NewestHash()
	block := &Block{Header: BlockHeader{
		PrevHash:               append([]byte{}, newest[:]...),
		Difficulty:             CurrentDifficulty(),
		MinerPubKey:            minerPub.Bytes(),
		MinerProofOfPrivKey:    proof,
		ChainStateMerkleHash:   make([]byte, HashLen),
		TransactionsMerkleHash: TransactionsMerkleRoot([]*Transaction{tx1, tx2}),
	}, Body: BlockBody{Transactions: []*Transaction{tx1, tx2}}}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := NewProofOfWork(block).Mine(ctx); err != nil {
		t.Fatalf("mine: %v", err)
	}

	err := chain.RegisterMined(block, pool)
	if !errors.Is(err, errs.ErrInsufficientFunds) {
		t.Fatalf("expected InsufficientFunds, got %v", err)
	}

	if chain.Height() != 0 {
		t.Fatalf("height should remain 0 after rejected block, got %d", chain.Height())
	}
	if chain.NewestHash() != genesisSentinel {
		t.Fatal("newest_hash should remain the genesis sentinel after rejected block")
	}
	if got := store.GetBalance(aPub.Bytes()); got != 100 {
		t.Fatalf("sender balance should be untouched: got %d want 100", got)
	}
	if _, statErr := os.Stat(chain.path); !os.IsNotExist(statErr) {
		t.Fatalf("chain file should not have been created by a rejected block, stat err=%v", statErr)
	}
	snapshot := pool.Snapshot()
	if _, ok := snapshot[tx1.Hash()]; !ok {
		t.Fatal("tx1 should still be pending: block was rejected, not confirmed")
	}
	if _, ok := snapshot[tx2.Hash()]; !ok {
		t.Fatal("tx2 should still be pending: block was rejected, not confirmed")
	}
}

func TestReplayRejectsCorruptedChainFile(t *testing.T) {
	dir := t.TempDir()
	store := NewAccountStore()
	chain, err := OpenChain(dir, store)
	if err != nil {
		t.Fatalf("open chain: %v", err)
	}
	chain.Close()

	if err := os.WriteFile(chain.path, []byte{0xFF, 0xFF, 0xFF}, 0o644); err != nil {
		t.Fatalf("write garbage chain file: %v", err)
	}

	_, err = OpenChain(dir, NewAccountStore())
	if err == nil {
		t.Fatal("expected replay to reject a truncated/garbage chain file")
	}
}
