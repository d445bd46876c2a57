package blockchain

// BaseReward is the coinbase-style reward paid for the first halving epoch
// (§4.3, §8).
const BaseReward = 5_000_000

// HalvingInterval is the number of blocks between reward halvings (§4.3).
const HalvingInterval = 1000

// RewardForHeight computes floor(BaseReward / 2^floor(height/HalvingInterval))
// as a right shift, per §4.3. Verified against §8's worked examples:
// heights 1, 999, 1000, 1999, 2000 yield 5_000_000, 5_000_000, 2_500_000,
// 2_500_000, 1_250_000 respectively.
func RewardForHeight(height uint64) uint64 {
	epoch := height / HalvingInterval
	if epoch >= 64 {
		return 0
	}
	return BaseReward >> epoch
}
