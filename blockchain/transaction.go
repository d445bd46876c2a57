package blockchain

import (
	"bytes"

	"github.com/golang-blockchain/simplechain/crypto"
)

/*
   Transactions move value between accounts identified directly by their
   65-byte uncompressed public keys (§9: the source mixed 33- and 65-byte
   key widths; this implementation fixes on 65 bytes throughout). Unlike the
   teacher's UTXO model (the old tx.go's TxInput/TxOutput referencing earlier
   outputs), a TransactionBody just names a sender, a recipient, an amount, a
   nonce, and a fee — balances live in the AccountStore, not in a chain of
   spent/unspent outputs.
*/

// PubKeyLen is the width of every public key this package serializes.
const PubKeyLen = crypto.PubKeyLen

// TransactionBody is the signed payload of a Transaction (§3).
type TransactionBody struct {
	From           []byte // 65-byte uncompressed public key of the sender
	To             []byte // 65-byte uncompressed public key of the recipient
	Amount         uint64
	Nonce          uint64
	TransactionFee uint64
}

// Serialize encodes a TransactionBody per §4.1:
// from(65B) || to(65B) || amount:u64 || nonce:u64 || transaction_fee:u64.
func (tb *TransactionBody) Serialize() []byte {
	var out bytes.Buffer
	out.Write(tb.From)
	out.Write(tb.To)
	out.Write(encodeU64(tb.Amount))
	out.Write(encodeU64(tb.Nonce))
	out.Write(encodeU64(tb.TransactionFee))
	return out.Bytes()
}

// DeserializeTransactionBody decodes a TransactionBody, returning leftover
// bytes per the codec's (value, leftover) convention.
func DeserializeTransactionBody(data []byte) (*TransactionBody, []byte, error) {
	from, rest, err := takeBytes(data, PubKeyLen)
	if err != nil {
		return nil, nil, decodeErr("transaction body from: %v", err)
	}
	to, rest, err := takeBytes(rest, PubKeyLen)
	if err != nil {
		return nil, nil, decodeErr("transaction body to: %v", err)
	}
	amount, rest, err := decodeU64(rest)
	if err != nil {
		return nil, nil, decodeErr("transaction body amount: %v", err)
	}
	nonce, rest, err := decodeU64(rest)
	if err != nil {
		return nil, nil, decodeErr("transaction body nonce: %v", err)
	}
	fee, rest, err := decodeU64(rest)
	if err != nil {
		return nil, nil, decodeErr("transaction body fee: %v", err)
	}
	return &TransactionBody{From: from, To: to, Amount: amount, Nonce: nonce, TransactionFee: fee}, rest, nil
}

// Transaction pairs a body with the sender's signature over it (§3).
type Transaction struct {
	Body      TransactionBody
	Signature []byte
}

// Serialize encodes a Transaction per §4.1: serialize(body) ||
// sig_bit_length:u16 || signature_bits.
func (tx *Transaction) Serialize() []byte {
	out := tx.Body.Serialize()
	out = append(out, encodeBitString(tx.Signature)...)
	return out
}

// DeserializeTransaction decodes a Transaction and any leftover bytes.
func DeserializeTransaction(data []byte) (*Transaction, []byte, error) {
	body, rest, err := DeserializeTransactionBody(data)
	if err != nil {
		return nil, nil, err
	}
	sig, rest, err := decodeBitString(rest)
	if err != nil {
		return nil, nil, decodeErr("transaction signature: %v", err)
	}
	return &Transaction{Body: *body, Signature: sig}, rest, nil
}

// Hash is SHA256(serialize(Transaction)) — the transaction's identity and
// the mempool's lookup key (§3).
func (tx *Transaction) Hash() [32]byte {
	return crypto.Sha256(tx.Serialize())
}

// Sign produces the sender's signature over SHA256(serialize(body)) and
// stores it on the transaction. priv must correspond to body.From.
func (tx *Transaction) Sign(priv *crypto.PrivateKey) {
	digest := crypto.Sha256(tx.Body.Serialize())
	tx.Signature = crypto.Sign(priv, digest)
}

// VerifySignature checks ECDSA_verify(body.from, SHA256(serialize(body)),
// signature) per §3's Transaction invariant.
func (tx *Transaction) VerifySignature() bool {
	pub, err := crypto.ParsePublicKey(tx.Body.From)
	if err != nil {
		return false
	}
	digest := crypto.Sha256(tx.Body.Serialize())
	return crypto.Verify(pub, digest, tx.Signature)
}
