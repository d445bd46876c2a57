package blockchain

import (
	"context"
	"math/big"
)

/*
   Proof of work (§4.5's verify_pow). The teacher's proof.go already computes
   this the bit-exact way the spec wants: shifting 1 left by (256-difficulty)
   produces the smallest value whose top `difficulty` bits (of 256) are not
   all zero, so "hash < target" is exactly "the leading `difficulty` bits of hash
   are zero" — true at any bit granularity, not just byte boundaries. The only
   change from the teacher is that Difficulty now comes from the block header
   (§3's BlockHeader.difficulty, a u8) instead of being a package constant,
   since the spec fixes a *chain-wide* difficulty (§4.6's current_difficulty,
   20) but the validator (§4.5) must still check whatever difficulty value a
   block's own header claims.
*/

// ProofOfWork wraps a block with the target its header's difficulty implies.
type ProofOfWork struct {
	Block  *Block
	Target *big.Int
}

// NewProofOfWork derives the target for block.Header.Difficulty leading
// zero bits out of 256.
func NewProofOfWork(block *Block) *ProofOfWork {
	target := big.NewInt(1)
	target.Lsh(target, uint(256-int(block.Header.Difficulty)))
	return &ProofOfWork{Block: block, Target: target}
}

// meetsTarget reports whether hash, read as a big-endian 256-bit integer,
// is strictly below the target — equivalently, whether its leading
// `difficulty` bits are all zero.
func (pow *ProofOfWork) meetsTarget(hash [32]byte) bool {
	var v big.Int
	v.SetBytes(hash[:])
	return v.Cmp(pow.Target) == -1
}

// Validate recomputes the block's hash from its currently-stored nonce and
// checks it against the target — the "verification is easy" half of PoW.
func (pow *ProofOfWork) Validate() bool {
	return pow.meetsTarget(pow.Block.Hash())
}

// Mine searches nonces starting from the block's current Header.Nonce,
// mutating it in place, until the hash meets the target or ctx is
// cancelled (§5: "mining loops must be cancellable by the caller"). On
// success it returns the winning hash; the caller is expected to have
// already set every other header field (prev_hash, difficulty, miner
// pub key and proof, Merkle fields) before calling Mine.
func (pow *ProofOfWork) Mine(ctx context.Context) ([32]byte, error) {
	for nonce := pow.Block.Header.Nonce; ; nonce++ {
		select {
		case <-ctx.Done():
			return [32]byte{}, ctx.Err()
		default:
		}

		pow.Block.Header.Nonce = nonce
		hash := pow.Block.Hash()
		if pow.meetsTarget(hash) {
			return hash, nil
		}
	}
}
