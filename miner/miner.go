// Package miner assembles candidate blocks from a node's mempool and
// performs the proof-of-work search against them (§4.7). The nonce search
// itself is the teacher's own loop (proof.go's Run), generalized to take a
// context so it terminates on a caller signal instead of running forever
// (§5's cancellation requirement).
package miner

import (
	"context"
	"fmt"

	"github.com/golang-blockchain/simplechain/blockchain"
	"github.com/golang-blockchain/simplechain/node"
	"github.com/golang-blockchain/simplechain/wallet"
)

// ZeroHash is the placeholder written into a candidate block's
// chain_state_merkle_hash. Its computation is never constrained by the
// validator (§9's first open question), so the miner does not bother
// deriving a real one.
var ZeroHash = make([]byte, blockchain.HashLen)

// Assemble builds an unmined candidate block: it snapshots the mempool (up
// to MaxTransactionsPerBlock transactions), links to the chain's current
// tip, and fills in the miner's credentials and proof (§4.7).
func Assemble(n *node.Node, miner wallet.Wallet) *blockchain.Block {
	snapshot := n.Pool.Snapshot()

	txs := make([]*blockchain.Transaction, 0, len(snapshot))
	for _, tx := range snapshot {
		if len(txs) >= blockchain.MaxTransactionsPerBlock {
			break
		}
		txs = append(txs, tx)
	}

	body := blockchain.BlockBody{Transactions: txs}

	header := blockchain.BlockHeader{
		PrevHash:               hashSlice(n.Chain.NewestHash()),
		Difficulty:             blockchain.CurrentDifficulty(),
		Nonce:                  0,
		MinerPubKey:            miner.PublicKey,
		MinerProofOfPrivKey:    miner.MinerProof(),
		ChainStateMerkleHash:   ZeroHash,
		TransactionsMerkleHash: blockchain.TransactionsMerkleRoot(txs),
	}

	return &blockchain.Block{Header: header, Body: body}
}

func hashSlice(h [32]byte) []byte {
	out := make([]byte, len(h))
	copy(out, h[:])
	return out
}

// MineOnce assembles one candidate block, searches for a winning nonce, and
// registers it with the chain. It returns the mined block on success, or
// the context's error if cancelled mid-search.
func MineOnce(ctx context.Context, n *node.Node, miner wallet.Wallet) (*blockchain.Block, error) {
	block := Assemble(n, miner)

	pow := blockchain.NewProofOfWork(block)
	if _, err := pow.Mine(ctx); err != nil {
		return nil, err
	}

	if err := n.Chain.RegisterMined(block, n.Pool); err != nil {
		return nil, fmt.Errorf("register mined block: %w", err)
	}
	return block, nil
}

// Run mines continuously until ctx is cancelled, reporting each accepted
// block (or error) to onBlock. This is the adapter loop the wallet/miner
// component owns (§2); its scheduling policy beyond "keep mining" is an
// out-of-core concern (§1).
func Run(ctx context.Context, n *node.Node, miner wallet.Wallet, onBlock func(*blockchain.Block, error)) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		block, err := MineOnce(ctx, n, miner)
		if onBlock != nil {
			onBlock(block, err)
		}
		if err != nil && ctx.Err() != nil {
			return
		}
	}
}
