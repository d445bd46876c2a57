// Package node composes the four core resources — AccountStore,
// TransactionPool, Chain, and Wallets — behind a single explicitly owned
// handle (§9's redesign: "global singletons -> explicit ownership"). The
// source kept each of these in a package-level registry; this eliminates
// that hidden global state so multiple Nodes, each over its own directory,
// can coexist in one process.
package node

import (
	"path/filepath"

	"github.com/golang-blockchain/simplechain/blockchain"
	"github.com/golang-blockchain/simplechain/wallet"
)

// Node owns every mutable resource a running instance needs. Callers obtain
// one via Open and must Close it when done.
type Node struct {
	Store   *blockchain.AccountStore
	Pool    *blockchain.TransactionPool
	Chain   *blockchain.Chain
	Wallets *wallet.Wallets

	Dir string
}

// Open loads (or initializes) every resource under dir: db/blockchain.db
// for the chain file, db/index for its secondary index, wallet.dat for the
// wallet collection (§6).
func Open(dir string) (*Node, error) {
	store := blockchain.NewAccountStore()

	chain, err := blockchain.OpenChain(filepath.Join(dir, "db"), store)
	if err != nil {
		return nil, err
	}

	wallets, err := wallet.CreateWallets(dir)
	if err != nil {
		chain.Close()
		return nil, err
	}

	return &Node{
		Store:   store,
		Pool:    blockchain.NewTransactionPool(store),
		Chain:   chain,
		Wallets: wallets,
		Dir:     dir,
	}, nil
}

// Close releases the chain's secondary index. Wallets and AccountStore hold
// no OS resources of their own.
func (n *Node) Close() error {
	return n.Chain.Close()
}
