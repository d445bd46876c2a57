package blockchain

import (
	"bytes"

	"github.com/golang-blockchain/simplechain/crypto"
)

// MaxTransactionsPerBlock caps a BlockBody's size (§3, §4.5).
const MaxTransactionsPerBlock = 100

// HashLen is the width of every hash this package carries verbatim (block
// hashes, prev_hash, and the two opaque Merkle-root fields).
const HashLen = 32

// BlockHeader carries everything needed to link and mine a block (§3).
//
// ChainStateMerkleHash and TransactionsMerkleHash are carried as opaque
// bytes: the validator never recomputes or checks them (§9's first open
// question — this is a faithful, not a corrected, reimplementation of that
// behavior). The miner adapter still computes a real TransactionsMerkleHash
// (see merkle.go) so the field is not simply garbage; it is just unverified.
type BlockHeader struct {
	PrevHash             []byte // 32 bytes
	Difficulty           uint8
	Nonce                uint64
	MinerPubKey          []byte // 65 bytes, uncompressed
	MinerProofOfPrivKey  []byte // variable-length ECDSA signature
	ChainStateMerkleHash []byte // 32 bytes, opaque
	TransactionsMerkleHash []byte // 32 bytes, opaque
}

// Serialize encodes a BlockHeader per §4.1:
// prev_hash(32B) || difficulty:u8 || nonce:u64 || miner_pub_key(65B) ||
// proof_bit_length:u16 || proof_bits || chain_state_merkle_hash(32B) ||
// transactions_merkle_hash(32B).
func (h *BlockHeader) Serialize() []byte {
	var out bytes.Buffer
	out.Write(h.PrevHash)
	out.Write(encodeU8(h.Difficulty))
	out.Write(encodeU64(h.Nonce))
	out.Write(h.MinerPubKey)
	out.Write(encodeBitString(h.MinerProofOfPrivKey))
	out.Write(h.ChainStateMerkleHash)
	out.Write(h.TransactionsMerkleHash)
	return out.Bytes()
}

// DeserializeBlockHeader decodes a BlockHeader and any leftover bytes.
func DeserializeBlockHeader(data []byte) (*BlockHeader, []byte, error) {
	prevHash, rest, err := takeBytes(data, HashLen)
	if err != nil {
		return nil, nil, decodeErr("block header prev_hash: %v", err)
	}
	difficulty, rest, err := decodeU8(rest)
	if err != nil {
		return nil, nil, decodeErr("block header difficulty: %v", err)
	}
	nonce, rest, err := decodeU64(rest)
	if err != nil {
		return nil, nil, decodeErr("block header nonce: %v", err)
	}
	minerPubKey, rest, err := takeBytes(rest, PubKeyLen)
	if err != nil {
		return nil, nil, decodeErr("block header miner_pub_key: %v", err)
	}
	proof, rest, err := decodeBitString(rest)
	if err != nil {
		return nil, nil, decodeErr("block header miner_proof: %v", err)
	}
	chainStateRoot, rest, err := takeBytes(rest, HashLen)
	if err != nil {
		return nil, nil, decodeErr("block header chain_state_merkle_hash: %v", err)
	}
	txRoot, rest, err := takeBytes(rest, HashLen)
	if err != nil {
		return nil, nil, decodeErr("block header transactions_merkle_hash: %v", err)
	}
	return &BlockHeader{
		PrevHash:               prevHash,
		Difficulty:             difficulty,
		Nonce:                  nonce,
		MinerPubKey:            minerPubKey,
		MinerProofOfPrivKey:    proof,
		ChainStateMerkleHash:   chainStateRoot,
		TransactionsMerkleHash: txRoot,
	}, rest, nil
}

// BlockBody is an ordered sequence of at most MaxTransactionsPerBlock
// transactions (§3).
type BlockBody struct {
	Transactions []*Transaction
}

// Serialize encodes a BlockBody as a length-prefixed list of transactions
// (§4.1).
func (b *BlockBody) Serialize() []byte {
	return encodeList(b.Transactions, func(tx *Transaction) []byte {
		return tx.Serialize()
	})
}

// DeserializeBlockBody decodes a BlockBody and any leftover bytes.
func DeserializeBlockBody(data []byte) (*BlockBody, []byte, error) {
	txs, rest, err := decodeList(data, DeserializeTransaction)
	if err != nil {
		return nil, nil, decodeErr("block body: %v", err)
	}
	return &BlockBody{Transactions: txs}, rest, nil
}

// Block pairs a header with its body (§3).
type Block struct {
	Header BlockHeader
	Body   BlockBody
}

// Serialize encodes a Block as serialize(header) || serialize(body) (§4.1).
func (b *Block) Serialize() []byte {
	out := b.Header.Serialize()
	return append(out, b.Body.Serialize()...)
}

// DeserializeBlock decodes a Block and any leftover bytes.
func DeserializeBlock(data []byte) (*Block, []byte, error) {
	header, rest, err := DeserializeBlockHeader(data)
	if err != nil {
		return nil, nil, err
	}
	body, rest, err := DeserializeBlockBody(rest)
	if err != nil {
		return nil, nil, err
	}
	return &Block{Header: *header, Body: *body}, rest, nil
}

// Hash is SHA256(serialize(header) || serialize(body)) — the block's
// identity, its children's prev_hash, and the PoW target input (§3).
func (b *Block) Hash() [32]byte {
	return crypto.Sha256(b.Serialize())
}
