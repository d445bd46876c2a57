package blockchain

import "github.com/golang-blockchain/simplechain/crypto"

// MerkleTree is a binary tree whose leaves are hashes of individual data
// items and whose internal nodes hash the concatenation of their children.
// simplechain's validator never recomputes or checks a Merkle root (§9's
// first open question: the header's Merkle fields are carried as opaque
// bytes), but the miner adapter still builds a real tree over a candidate
// block's transactions when assembling TransactionsMerkleHash — an unverified
// root is still a meaningful fingerprint of the block's contents, and it is
// what the teacher's own block-assembly path computed.
type MerkleTree struct {
	Root *MerkleNode
}

// MerkleNode is a single node of a MerkleTree.
type MerkleNode struct {
	Left, Right *MerkleNode
	Data        []byte
}

// NewMerkleNode builds a leaf (hashing data) when both children are nil, or
// an internal node (hashing the concatenation of its children) otherwise.
func NewMerkleNode(left, right *MerkleNode, data []byte) *MerkleNode {
	node := &MerkleNode{Left: left, Right: right}
	if left == nil && right == nil {
		hash := crypto.Sha256(data)
		node.Data = hash[:]
		return node
	}
	combined := append(append([]byte{}, left.Data...), right.Data...)
	hash := crypto.Sha256(combined)
	node.Data = hash[:]
	return node
}

// NewMerkleTree builds a tree over the given leaves, duplicating the final
// leaf, and the final node of any higher level, when the count is odd (the
// conventional "balanced Merkle tree" fix).
// Returns nil for an empty input — callers treat that as the zero hash.
func NewMerkleTree(leaves [][]byte) *MerkleTree {
	if len(leaves) == 0 {
		return nil
	}
	if len(leaves)%2 != 0 {
		leaves = append(leaves, leaves[len(leaves)-1])
	}

	nodes := make([]*MerkleNode, 0, len(leaves))
	for _, leaf := range leaves {
		nodes = append(nodes, NewMerkleNode(nil, nil, leaf))
	}

	for len(nodes) > 1 {
		if len(nodes)%2 != 0 {
			nodes = append(nodes, nodes[len(nodes)-1])
		}
		var level []*MerkleNode
		for i := 0; i < len(nodes); i += 2 {
			level = append(level, NewMerkleNode(nodes[i], nodes[i+1], nil))
		}
		nodes = level
	}

	return &MerkleTree{Root: nodes[0]}
}

// TransactionsMerkleRoot computes the Merkle root over a block's transaction
// hashes, or the zero hash for an empty body.
func TransactionsMerkleRoot(txs []*Transaction) []byte {
	if len(txs) == 0 {
		return make([]byte, HashLen)
	}
	leaves := make([][]byte, len(txs))
	for i, tx := range txs {
		h := tx.Hash()
		leaves[i] = h[:]
	}
	tree := NewMerkleTree(leaves)
	return tree.Root.Data
}
