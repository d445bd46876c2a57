package wallet

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-blockchain/simplechain/crypto"
)

// walletFileName is the file inside NODE_STORE holding every wallet (§6:
// "Inside it: db/blockchain.db and wallet.dat").
const walletFileName = "wallet.dat"

// StoreDir resolves the data directory from NODE_STORE, defaulting to
// ./.simple_blockchain/ (§6).
func StoreDir() string {
	if dir := os.Getenv("NODE_STORE"); dir != "" {
		return dir
	}
	return "./.simple_blockchain/"
}

// Wallets is a collection of wallets keyed by their display address.
type Wallets struct {
	Wallets map[string]*Wallet
}

// walletRecord is the on-disk shape of one wallet: a JSON triple of
// [id, base64(pub_key), base64(priv_key)] (§6). id is the wallet's display
// address, duplicated from the map key so the file is self-describing.
type walletRecord [3]string

// CreateWallets loads the wallet collection from dir, or returns an empty
// one if the file does not yet exist.
func CreateWallets(dir string) (*Wallets, error) {
	ws := &Wallets{Wallets: make(map[string]*Wallet)}
	err := ws.LoadFile(dir)
	if os.IsNotExist(err) {
		return ws, nil
	}
	return ws, err
}

// AddWallet generates a fresh keypair, stores it under its display address,
// persists the collection, and returns the new address.
func (ws *Wallets) AddWallet(dir string) string {
	w := MakeWallet()
	address := string(w.Address())
	ws.Wallets[address] = w
	ws.SaveFile(dir)
	return address
}

// GetAllAddresses lists every known wallet's display address.
func (ws *Wallets) GetAllAddresses() []string {
	addresses := make([]string, 0, len(ws.Wallets))
	for address := range ws.Wallets {
		addresses = append(addresses, address)
	}
	return addresses
}

// GetWallet looks up a wallet by its display address.
func (ws *Wallets) GetWallet(address string) Wallet {
	return *ws.Wallets[address]
}

// LoadFile reads the JSON array of [id, pub, priv] triples and reconstructs
// every wallet from its raw private scalar (§6).
func (ws *Wallets) LoadFile(dir string) error {
	path := filepath.Join(dir, walletFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var records []walletRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("wallet: decode %s: %w", path, err)
	}

	wallets := make(map[string]*Wallet, len(records))
	for _, rec := range records {
		id, pubB64, privB64 := rec[0], rec[1], rec[2]

		pubKey, err := base64.StdEncoding.DecodeString(pubB64)
		if err != nil {
			return fmt.Errorf("wallet: decode public key for %s: %w", id, err)
		}
		privScalar, err := base64.StdEncoding.DecodeString(privB64)
		if err != nil {
			return fmt.Errorf("wallet: decode private key for %s: %w", id, err)
		}

		wallets[id] = &Wallet{
			PrivateKey: crypto.PrivateKeyFromScalar(privScalar),
			PublicKey:  pubKey,
		}
	}

	ws.Wallets = wallets
	return nil
}

// SaveFile serializes every wallet as a [id, base64(pub), base64(priv)]
// triple and writes the JSON array to disk (§6).
func (ws *Wallets) SaveFile(dir string) {
	records := make([]walletRecord, 0, len(ws.Wallets))
	for id, w := range ws.Wallets {
		records = append(records, walletRecord{
			id,
			base64.StdEncoding.EncodeToString(w.PublicKey),
			base64.StdEncoding.EncodeToString(w.PrivateKey.Scalar()),
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		log.Panic(err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Panic(err)
	}
	if err := os.WriteFile(filepath.Join(dir, walletFileName), data, 0o644); err != nil {
		log.Panic(err)
	}
}
