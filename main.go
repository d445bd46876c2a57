package main

import (
	"log"

	"github.com/golang-blockchain/simplechain/cli"
	"github.com/golang-blockchain/simplechain/node"
	"github.com/golang-blockchain/simplechain/wallet"
)

func main() {
	n, err := node.Open(wallet.StoreDir())
	if err != nil {
		log.Fatalf("simplechain: %v", err)
	}
	defer func() {
		if err := n.Close(); err != nil {
			log.Printf("simplechain: close: %v", err)
		}
	}()

	c := &cli.CommandLine{}
	c.Run(n)
}
