package blockchain

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/golang-blockchain/simplechain/crypto"
	"github.com/golang-blockchain/simplechain/errs"
)

// chainFileName is the canonical flat-file chain store, inside NODE_STORE
// (§6). It is a single length-prefixed list of serialized Blocks, newest
// first, sharing the exact codec encodeList/decodeList already uses for
// every other list in this package.
const chainFileName = "blockchain.db"

// indexDirName holds a Badger instance used only as a rebuildable secondary
// index (hash -> serialized block) for O(1) lookups the flat file alone
// can't give cheaply. It carries no authority: on every startup it is
// rebuilt from the chain file, never trusted as the canonical store (§6
// reserves that role for the flat file alone).
const indexDirName = "index"

// genesisSentinel is SHA256("GENESIS"), the required prev_hash of the
// genesis block (§6).
var genesisSentinel = crypto.Sha256([]byte("GENESIS"))

// GenesisHash is the fixed hash every genesis block must equal (§4.6).
var GenesisHash = mustParseHash("000003D7FFFEF8ECDCDC56378855C9717343D395E5CA5E7EF14F39A81CCC1CA9")

func mustParseHash(s string) [32]byte {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		panic("blockchain: malformed genesis hash constant")
	}
	var out [32]byte
	copy(out[:], b)
	return out
}

// CurrentDifficulty is the fixed, non-retargeting difficulty every accepted
// block's header must declare (§4.6). There is no dynamic difficulty
// adjustment in this design (§1's Non-goals).
func CurrentDifficulty() uint8 { return 20 }

// Chain is the append-only, strictly linear block store (§4.6). It is a
// single-writer, multi-reader resource (§5): every mutator takes Chain's
// own lock for its whole duration, which is also what makes register_mined's
// four effects — append, AccountStore apply, miner reward, mempool purge —
// observable as a single atomic step to anyone reading through Chain.
type Chain struct {
	mu sync.Mutex

	path  string // chain file path
	index *badger.DB

	blocksNewestFirst []*Block
	height            uint64

	store *AccountStore
}

// OpenChain ensures dir exists, then replays the chain file (if any) into a
// fresh AccountStore and a rebuilt secondary index (§4.6's startup replay).
func OpenChain(dir string, store *AccountStore) (*Chain, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chain directory: %w", err)
	}

	indexDir := filepath.Join(dir, indexDirName)
	opts := badger.DefaultOptions(indexDir).WithLogger(nil)
	index, err := openIndexDB(indexDir, opts)
	if err != nil {
		return nil, fmt.Errorf("open chain index: %w", err)
	}

	c := &Chain{
		path:  filepath.Join(dir, chainFileName),
		index: index,
		store: store,
	}

	if err := c.replay(); err != nil {
		index.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the secondary index. The chain file needs no explicit
// close: every write reopens it for the duration of a single append.
func (c *Chain) Close() error {
	return c.index.Close()
}

// replay implements §4.6's startup fold: decode the whole chain file (if
// present) as a length-prefixed block list, then walk it oldest-first,
// checking genesis pinning on the first block and full verification on
// every later one, applying transactions and rewards as it goes. Any
// failure here is an unrecoverable startup error (§7): replay does not
// partially apply state.
func (c *Chain) replay() error {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		c.blocksNewestFirst = nil
		c.height = 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("read chain file: %w", err)
	}

	blocks, _, err := decodeList(data, DeserializeBlock)
	if err != nil {
		return fmt.Errorf("%w: chain file is corrupt: %v", errs.ErrCorruptedChain, err)
	}

	n := len(blocks)
	prevHash := genesisSentinel
	height := uint64(1)

	// Apply into a clone so a failure part-way leaves c.store untouched.
	staged := c.store.Clone()

	for i := n - 1; i >= 0; i-- {
		block := blocks[i]

		if i == n-1 {
			if !bytes.Equal(block.Header.PrevHash, prevHash[:]) {
				return fmt.Errorf("%w: genesis prev_hash mismatch", errs.ErrUnknownGenesisBlock)
			}
			if block.Hash() != GenesisHash {
				return fmt.Errorf("%w: genesis hash %x does not match fixed constant",
					errs.ErrCorruptedGenesisBlock, block.Hash())
			}
			// The genesis block is identified by fixed hash, not PoW or
			// signature (§4.6): it is never passed to Verify.
		} else {
			if !bytes.Equal(block.Header.PrevHash, prevHash[:]) {
				return fmt.Errorf("%w: block %x has wrong prev_hash", errs.ErrCorruptedChain, block.Hash())
			}
			if err := Verify(block, staged); err != nil {
				return fmt.Errorf("%w: block %x failed verification: %v", errs.ErrCorruptedChain, block.Hash(), err)
			}
		}

		for _, tx := range block.Body.Transactions {
			if err := staged.ApplyTransactionBody(&tx.Body, block.Header.MinerPubKey); err != nil {
				return fmt.Errorf("%w: applying transaction in block %x: %v", errs.ErrCorruptedChain, block.Hash(), err)
			}
		}
		if err := staged.RewardMiner(block.Header.MinerPubKey, RewardForHeight(height)); err != nil {
			return err
		}

		if err := c.indexPut(block); err != nil {
			return fmt.Errorf("rebuild chain index: %w", err)
		}

		prevHash = block.Hash()
		height++
	}

	c.store.accounts = staged.accounts
	c.blocksNewestFirst = blocks
	c.height = uint64(n)
	return nil
}

// NewestHash is SHA256("GENESIS") for an empty chain, else the head
// block's hash (§4.6).
func (c *Chain) NewestHash() [32]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newestHashLocked()
}

func (c *Chain) newestHashLocked() [32]byte {
	if len(c.blocksNewestFirst) == 0 {
		return genesisSentinel
	}
	return c.blocksNewestFirst[0].Hash()
}

// Height returns the number of blocks currently accepted.
func (c *Chain) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// GetBlock looks a block up by hash through the secondary index (§6's
// framing guarantee is what the index is rebuilt from; it is never itself
// authoritative).
func (c *Chain) GetBlock(hash [32]byte) (*Block, error) {
	var block *Block
	err := c.index.View(func(txn *badger.Txn) error {
		item, err := txn.Get(hash[:])
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			b, _, derr := DeserializeBlock(val)
			if derr != nil {
				return derr
			}
			block = b
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("block %x not found: %w", hash, err)
	}
	return block, nil
}

// openIndexDB opens the secondary index, retrying once by removing a stale
// LOCK file left behind by an unclean shutdown — the teacher's own recovery
// for exactly this Badger failure mode.
func openIndexDB(dir string, opts badger.Options) (*badger.DB, error) {
	db, err := badger.Open(opts)
	if err == nil {
		return db, nil
	}
	if !strings.Contains(err.Error(), "LOCK") {
		return nil, err
	}

	lockPath := filepath.Join(dir, "LOCK")
	if rmErr := os.Remove(lockPath); rmErr != nil {
		return nil, fmt.Errorf("remove stale lock file: %w", rmErr)
	}
	db, err = badger.Open(opts)
	if err != nil {
		log.Println("could not unlock chain index:", err)
		return nil, err
	}
	log.Println("chain index unlocked")
	return db, nil
}

func (c *Chain) indexPut(block *Block) error {
	hash := block.Hash()
	return c.index.Update(func(txn *badger.Txn) error {
		return txn.Set(hash[:], block.Serialize())
	})
}

// RegisterMined implements §4.6's register_mined: check linkage and
// declared difficulty, run the full validator, and on success commit all
// four effects — file append, AccountStore apply, miner reward, mempool
// purge — as a single critical section so no observer can see a torn
// intermediate state (§5's cross-store atomicity requirement). Verify
// already staged the whole body against a clone of store (validate.go's
// VerifyBody), so nothing durable is touched until every transaction in the
// block is known to apply cleanly in order; the sequential apply loop below
// cannot fail on a block that passed Verify.
func (c *Chain) RegisterMined(block *Block, pool *TransactionPool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	newest := c.newestHashLocked()
	if !bytes.Equal(block.Header.PrevHash, newest[:]) {
		return errs.ErrInvalidPrevBlock
	}
	if block.Header.Difficulty != CurrentDifficulty() {
		return errs.ErrInvalidDifficulty
	}
	if err := Verify(block, c.store); err != nil {
		return err
	}

	if err := c.appendToFile(block); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrCorruptedChain, err)
	}
	if err := c.indexPut(block); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrCorruptedChain, err)
	}

	for _, tx := range block.Body.Transactions {
		if err := c.store.ApplyTransactionBody(&tx.Body, block.Header.MinerPubKey); err != nil {
			return err
		}
	}
	if err := c.store.RewardMiner(block.Header.MinerPubKey, RewardForHeight(c.height+1)); err != nil {
		return err
	}

	c.blocksNewestFirst = append([]*Block{block}, c.blocksNewestFirst...)
	c.height++

	pool.RemoveConfirmed(block.Body.Transactions)
	return nil
}

// appendToFile implements §6's append protocol exactly: on first write,
// emit the list prefix 1 followed by the block; otherwise read the
// existing count, write the new block's bytes at end-of-file, then rewrite
// the count in place.
func (c *Chain) appendToFile(block *Block) error {
	f, err := os.OpenFile(c.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	blockBytes := encodeAppendItem(block, func(b *Block) []byte { return b.Serialize() })

	if info.Size() == 0 {
		if _, err := f.Write(encodeU64(1)); err != nil {
			return err
		}
		_, err = f.Write(blockBytes)
		return err
	}

	countBuf := make([]byte, 8)
	if _, err := f.ReadAt(countBuf, 0); err != nil {
		return err
	}
	count, _, err := decodeU64(countBuf)
	if err != nil {
		return err
	}

	if _, err := f.WriteAt(blockBytes, info.Size()); err != nil {
		return err
	}
	_, err = f.WriteAt(encodeU64(count+1), 0)
	return err
}
