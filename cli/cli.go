package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"syscall"

	"github.com/vrecan/death/v3"

	"github.com/golang-blockchain/simplechain/blockchain"
	"github.com/golang-blockchain/simplechain/crypto"
	"github.com/golang-blockchain/simplechain/errs"
	"github.com/golang-blockchain/simplechain/miner"
	"github.com/golang-blockchain/simplechain/node"
	"github.com/golang-blockchain/simplechain/wallet"
)

// CommandLine is the interactive shell over a Node (§1: explicitly out of
// the specified core — it only has to drive the core's public operations
// correctly).
type CommandLine struct{}

func (cli *CommandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println(" createwallet - Create a new wallet")
	fmt.Println(" listaddresses - Lists the addresses in the wallet file")
	fmt.Println(" getbalance -address ADDRESS - get the balance of an address")
	fmt.Println(" send -from FROM -to TO -amount AMOUNT -fee FEE - Submit a signed transaction to the mempool")
	fmt.Println(" printchain - Print the blocks in the chain")
	fmt.Println(" mine -miner ADDRESS - Run the mining loop, paying rewards to ADDRESS, until interrupted")
}

func (cli *CommandLine) validateArgs() {
	if len(os.Args) < 2 {
		cli.printUsage()
		runtime.Goexit()
	}
}

func (cli *CommandLine) createWallet(n *node.Node) {
	address := n.Wallets.AddWallet(n.Dir)
	fmt.Printf("New wallet created with address: %s\n", address)
}

func (cli *CommandLine) listAddresses(n *node.Node) {
	for _, address := range n.Wallets.GetAllAddresses() {
		fmt.Println(address)
	}
}

func (cli *CommandLine) getBalance(n *node.Node, address string) {
	if !wallet.ValidateAddress(address) {
		blockchain.Handle(errors.New("invalid address"))
	}

	w, ok := n.Wallets.Wallets[address]
	if !ok {
		blockchain.Handle(fmt.Errorf("no wallet on file for %s", address))
	}

	fmt.Printf("Balance of %s: %d\n", address, n.Store.GetBalance(w.PublicKey))
}

func (cli *CommandLine) printChain(n *node.Node) {
	height := n.Chain.Height()
	hash := n.Chain.NewestHash()
	for i := height; i >= 1; i-- {
		block, err := n.Chain.GetBlock(hash)
		if err != nil {
			blockchain.Handle(err)
		}

		fmt.Printf("Height: %d\n", i)
		fmt.Printf("Prev. hash: %x\n", block.Header.PrevHash)
		fmt.Printf("Hash: %x\n", block.Hash())
		fmt.Printf("Difficulty: %d\n", block.Header.Difficulty)
		pow := blockchain.NewProofOfWork(block)
		fmt.Printf("PoW valid: %v\n", pow.Validate())
		for _, tx := range block.Body.Transactions {
			fmt.Printf("  tx %x: %d (fee %d) nonce=%d\n", tx.Hash(), tx.Body.Amount, tx.Body.TransactionFee, tx.Body.Nonce)
		}

		var prev [32]byte
		copy(prev[:], block.Header.PrevHash)
		hash = prev
		if i == 1 {
			break
		}
	}
}

// send builds, signs, and submits a transfer from `from` to `to`. Per §4.7,
// the wallet chooses a random nonce and retries with a fresh one whenever
// the pool rejects it as InvalidNonce.
func (cli *CommandLine) send(n *node.Node, from, to string, amount, fee uint64) {
	if !wallet.ValidateAddress(from) {
		blockchain.Handle(errors.New("invalid from address"))
	}
	if !wallet.ValidateAddress(to) {
		blockchain.Handle(errors.New("invalid to address"))
	}

	sender, ok := n.Wallets.Wallets[from]
	if !ok {
		blockchain.Handle(fmt.Errorf("no wallet on file for %s", from))
	}
	recipient, ok := n.Wallets.Wallets[to]
	if !ok {
		blockchain.Handle(fmt.Errorf("no wallet on file for %s", to))
	}

	const maxNonceRetries = 16
	var lastErr error
	for attempt := 0; attempt < maxNonceRetries; attempt++ {
		nonce, err := crypto.RandomUint64()
		if err != nil {
			blockchain.Handle(err)
		}

		tx := &blockchain.Transaction{Body: blockchain.TransactionBody{
			From:           sender.PublicKey,
			To:             recipient.PublicKey,
			Amount:         amount,
			Nonce:          nonce,
			TransactionFee: fee,
		}}
		tx.Sign(sender.PrivateKey)

		err = n.Pool.Register(tx)
		if err == nil {
			fmt.Printf("Submitted tx %x\n", tx.Hash())
			return
		}
		if errors.Is(err, errs.ErrInvalidNonce) {
			lastErr = err
			continue
		}
		blockchain.Handle(err)
	}
	blockchain.Handle(fmt.Errorf("exhausted nonce retries: %w", lastErr))
}

// mine runs the mining loop against minerAddress until SIGINT/SIGTERM,
// mirroring the teacher's own CloseDB shutdown idiom but driving mining
// cancellation instead of a network server's.
func (cli *CommandLine) mine(n *node.Node, minerAddress string) {
	if !wallet.ValidateAddress(minerAddress) {
		blockchain.Handle(errors.New("invalid miner address"))
	}
	w, ok := n.Wallets.Wallets[minerAddress]
	if !ok {
		blockchain.Handle(fmt.Errorf("no wallet on file for %s", minerAddress))
	}

	// The teacher's own shutdown idiom (network.CloseDB) waits for a signal
	// then runs a cleanup func; here that cleanup is cancelling the mining
	// loop's context instead of closing a network server's database handle.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	go d.WaitForDeathWithFunc(cancel)

	fmt.Printf("Mining to %s. Press Ctrl+C to stop.\n", minerAddress)
	miner.Run(ctx, n, *w, func(block *blockchain.Block, err error) {
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Printf("mining attempt failed: %v\n", err)
			return
		}
		fmt.Printf("mined block %x\n", block.Hash())
	})
}

// Run parses os.Args and dispatches to the matching subcommand against n.
func (cli *CommandLine) Run(n *node.Node) {
	cli.validateArgs()

	createWalletCMD := flag.NewFlagSet("createwallet", flag.ExitOnError)
	listAddressesCMD := flag.NewFlagSet("listaddresses", flag.ExitOnError)
	getBalanceCMD := flag.NewFlagSet("getbalance", flag.ExitOnError)
	sendCMD := flag.NewFlagSet("send", flag.ExitOnError)
	printChainCMD := flag.NewFlagSet("printchain", flag.ExitOnError)
	mineCMD := flag.NewFlagSet("mine", flag.ExitOnError)

	getBalanceAddress := getBalanceCMD.String("address", "", "Wallet address to get the balance of")
	sendFrom := sendCMD.String("from", "", "Source wallet address")
	sendTo := sendCMD.String("to", "", "Destination wallet address")
	sendAmount := sendCMD.Uint64("amount", 0, "Amount to send")
	sendFee := sendCMD.Uint64("fee", 0, "Transaction fee")
	mineMiner := mineCMD.String("miner", "", "Address to receive mining rewards")

	if len(os.Args) < 2 {
		cli.printUsage()
		runtime.Goexit()
	}

	switch os.Args[1] {
	case "createwallet":
		blockchain.Handle(createWalletCMD.Parse(os.Args[2:]))
	case "listaddresses":
		blockchain.Handle(listAddressesCMD.Parse(os.Args[2:]))
	case "getbalance":
		blockchain.Handle(getBalanceCMD.Parse(os.Args[2:]))
	case "send":
		blockchain.Handle(sendCMD.Parse(os.Args[2:]))
	case "printchain":
		blockchain.Handle(printChainCMD.Parse(os.Args[2:]))
	case "mine":
		blockchain.Handle(mineCMD.Parse(os.Args[2:]))
	default:
		cli.printUsage()
		runtime.Goexit()
	}

	switch {
	case createWalletCMD.Parsed():
		cli.createWallet(n)
	case listAddressesCMD.Parsed():
		cli.listAddresses(n)
	case getBalanceCMD.Parsed():
		if *getBalanceAddress == "" {
			getBalanceCMD.Usage()
			runtime.Goexit()
		}
		cli.getBalance(n, *getBalanceAddress)
	case sendCMD.Parsed():
		if *sendFrom == "" || *sendTo == "" || *sendAmount == 0 {
			sendCMD.Usage()
			runtime.Goexit()
		}
		cli.send(n, *sendFrom, *sendTo, *sendAmount, *sendFee)
	case printChainCMD.Parsed():
		cli.printChain(n)
	case mineCMD.Parsed():
		if *mineMiner == "" {
			mineCMD.Usage()
			runtime.Goexit()
		}
		cli.mine(n, *mineMiner)
	}
}
