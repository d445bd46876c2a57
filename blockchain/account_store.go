package blockchain

import (
	"fmt"

	"github.com/golang-blockchain/simplechain/errs"
)

// Account is a single address's balance and anti-replay state (§3).
// balance is never allowed to wrap: apply_transaction_body uses widened
// arithmetic for its pre-checks and rejects anything that would overflow
// as a corrupted-chain condition rather than silently wrapping (§7).
type Account struct {
	Balance     uint64
	SpentNonces map[uint64]struct{}
}

// AccountStore holds every known account's balance and spent-nonce set and
// is the sole authority for whether a transaction body may apply (§4.3).
// It is a single-writer, multi-reader resource (§5): callers serialize
// mutation the same way the chain engine serializes block acceptance.
type AccountStore struct {
	accounts map[string]*Account
}

// NewAccountStore returns an empty store; every account is implicitly
// balance-0 with no spent nonces until first touched.
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]*Account)}
}

// Clone returns a deep copy of the store, suitable for staging a candidate
// block's transactions before committing anything durable. Nothing
// VerifyTransactionBody/ApplyTransactionBody do on the clone is visible
// through the original.
func (s *AccountStore) Clone() *AccountStore {
	out := &AccountStore{accounts: make(map[string]*Account, len(s.accounts))}
	for key, acct := range s.accounts {
		nonces := make(map[uint64]struct{}, len(acct.SpentNonces))
		for n := range acct.SpentNonces {
			nonces[n] = struct{}{}
		}
		out.accounts[key] = &Account{Balance: acct.Balance, SpentNonces: nonces}
	}
	return out
}

func (s *AccountStore) account(pubKey []byte) *Account {
	key := string(pubKey)
	acct, ok := s.accounts[key]
	if !ok {
		acct = &Account{SpentNonces: make(map[uint64]struct{})}
		s.accounts[key] = acct
	}
	return acct
}

// GetBalance returns 0 for an account that has never been credited or
// debited (§4.3).
func (s *AccountStore) GetBalance(pubKey []byte) uint64 {
	acct, ok := s.accounts[string(pubKey)]
	if !ok {
		return 0
	}
	return acct.Balance
}

// HasSpentNonce reports whether nonce has already been used by pubKey.
func (s *AccountStore) HasSpentNonce(pubKey []byte, nonce uint64) bool {
	acct, ok := s.accounts[string(pubKey)]
	if !ok {
		return false
	}
	_, spent := acct.SpentNonces[nonce]
	return spent
}

// VerifyTransactionBody applies §4.3's four checks in order, short-circuiting
// on the first failure:
//  1. amount == 0                                -> ErrInvalidAmount
//  2. amount + transaction_fee overflows u64      -> ErrInvalidAmount
//  3. amount + transaction_fee > balance(from)    -> ErrInsufficientFunds
//  4. nonce already spent by from                 -> ErrInvalidNonce
//
// Step 2 widens to avoid the overflow the spec calls out explicitly in §7:
// two uint64 values summed in uint64 arithmetic can wrap past zero and
// appear to satisfy a naive "<= balance" check.
func (s *AccountStore) VerifyTransactionBody(body *TransactionBody) error {
	if body.Amount == 0 {
		return errs.ErrInvalidAmount
	}

	total := uint128Add(body.Amount, body.TransactionFee)
	if total.overflowsUint64() {
		return errs.ErrInvalidAmount
	}

	balance := s.GetBalance(body.From)
	if total.hi > 0 || total.lo > balance {
		return errs.ErrInsufficientFunds
	}

	if s.HasSpentNonce(body.From, body.Nonce) {
		return errs.ErrInvalidNonce
	}

	return nil
}

// ApplyTransactionBody commits a transaction body's effects: debit the
// sender by amount+fee, mark the nonce spent, credit the recipient, and
// route any fee to minerPubKey (§4.3). Callers must have already called
// VerifyTransactionBody successfully; Apply itself re-derives the widened
// sum and returns ErrCorruptedChain if it would overflow, since an overflow
// here means a caller skipped verification or state changed underneath it.
func (s *AccountStore) ApplyTransactionBody(body *TransactionBody, minerPubKey []byte) error {
	total := uint128Add(body.Amount, body.TransactionFee)
	if total.overflowsUint64() {
		return errs.ErrCorruptedChain
	}
	debit := total.lo

	from := s.account(body.From)
	if debit > from.Balance {
		return errs.ErrCorruptedChain
	}
	from.Balance -= debit
	from.SpentNonces[body.Nonce] = struct{}{}

	to := s.account(body.To)
	if to.Balance+body.Amount < to.Balance {
		return errs.ErrCorruptedChain
	}
	to.Balance += body.Amount

	if body.TransactionFee > 0 {
		miner := s.account(minerPubKey)
		if miner.Balance+body.TransactionFee < miner.Balance {
			return errs.ErrCorruptedChain
		}
		miner.Balance += body.TransactionFee
	}

	return nil
}

// RewardMiner credits minerPubKey with value — the block-acceptance reward
// payout, called once per accepted block with RewardForHeight(height) (§4.3).
func (s *AccountStore) RewardMiner(minerPubKey []byte, value uint64) error {
	acct := s.account(minerPubKey)
	if acct.Balance+value < acct.Balance {
		return fmt.Errorf("%w: miner reward overflow", errs.ErrCorruptedChain)
	}
	acct.Balance += value
	return nil
}

// uint128 is the minimal widened accumulator VerifyTransactionBody needs to
// add two uint64 values without risking the wraparound the spec warns about
// in §7 — a plain carry-out flag plus the wrapped low word.
type uint128 struct {
	hi, lo uint64
}

func uint128Add(a, b uint64) uint128 {
	lo := a + b
	hi := uint64(0)
	if lo < a {
		hi = 1
	}
	return uint128{hi: hi, lo: lo}
}

func (u uint128) overflowsUint64() bool {
	return u.hi > 0
}
