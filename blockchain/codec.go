package blockchain

import (
	"encoding/binary"
	"fmt"

	"github.com/golang-blockchain/simplechain/errs"
)

// Every decoder in this package follows the same shape the rest of
// simplechain's codec uses: (value, leftover bytes, error). A decoder never
// validates anything beyond "the stream had enough bytes" — body rules,
// signatures, and chain linkage are the validator's and AccountStore's job,
// not the codec's (§4.1).

func decodeErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errs.ErrDecode, fmt.Sprintf(format, args...))
}

func takeBytes(data []byte, n int) (chunk, rest []byte, err error) {
	if len(data) < n {
		return nil, nil, decodeErr("need %d bytes, have %d", n, len(data))
	}
	chunk = make([]byte, n)
	copy(chunk, data[:n])
	return chunk, data[n:], nil
}

func encodeU8(v uint8) []byte {
	return []byte{v}
}

func decodeU8(data []byte) (uint8, []byte, error) {
	chunk, rest, err := takeBytes(data, 1)
	if err != nil {
		return 0, nil, err
	}
	return chunk[0], rest, nil
}

func encodeU16(v uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return buf
}

func decodeU16(data []byte) (uint16, []byte, error) {
	chunk, rest, err := takeBytes(data, 2)
	if err != nil {
		return 0, nil, err
	}
	return binary.BigEndian.Uint16(chunk), rest, nil
}

func encodeU64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decodeU64(data []byte) (uint64, []byte, error) {
	chunk, rest, err := takeBytes(data, 8)
	if err != nil {
		return 0, nil, err
	}
	return binary.BigEndian.Uint64(chunk), rest, nil
}

// encodeBitString encodes a variable-length byte string (a signature or a
// miner proof) preceded by its length in BITS as a u16, per §4.1's
// bit-granularity framing. This implementation is byte-oriented (§9's "may
// choose byte granularity on the wire"), so the bit length it ever writes is
// always len(data)*8.
func encodeBitString(data []byte) []byte {
	return append(encodeU16(uint16(len(data))*8), data...)
}

// decodeBitString reads a u16 bit length and consumes ceil(bits/8) bytes —
// the byte-aligned decoder §9 requires so that foreign streams whose bit
// length is not a multiple of eight still parse (the final byte's unused
// low bits are simply carried along as part of the returned slice).
func decodeBitString(data []byte) ([]byte, []byte, error) {
	bits, rest, err := decodeU16(data)
	if err != nil {
		return nil, nil, decodeErr("bit-string length: %v", err)
	}
	numBytes := (int(bits) + 7) / 8
	chunk, rest, err := takeBytes(rest, numBytes)
	if err != nil {
		return nil, nil, decodeErr("bit-string body: %v", err)
	}
	return chunk, rest, nil
}

// encodeList implements §4.1's length-prefixed list: a u64 count followed by
// the elements encoded in REVERSE iteration order. Preserving that order is
// what lets the chain file append a single new element in place (§6) without
// rewriting anything already on disk: the physically-last element written is
// always the logically-first element after decodeList's final reversal.
func encodeList[T any](items []T, encode func(T) []byte) []byte {
	out := encodeU64(uint64(len(items)))
	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, encode(items[i])...)
	}
	return out
}

// decodeList is the inverse of encodeList: read the count, decode that many
// elements in stream order, then reverse the accumulated slice to restore
// the original iteration order.
func decodeList[T any](data []byte, decode func([]byte) (T, []byte, error)) ([]T, []byte, error) {
	n, rest, err := decodeU64(data)
	if err != nil {
		return nil, nil, decodeErr("list count: %v", err)
	}
	items := make([]T, n)
	for i := uint64(0); i < n; i++ {
		var item T
		item, rest, err = decode(rest)
		if err != nil {
			return nil, nil, decodeErr("list element %d: %v", i, err)
		}
		items[i] = item
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, rest, nil
}

// encodeAppendItem encodes a single element the same way encodeList would
// encode it as the new first element of an existing list (written physically
// last, so it is the head after decodeList) — i.e. just the element's own
// bytes, with no length prefix of its own. Used by the chain
// file's O(1) append protocol (§6).
func encodeAppendItem[T any](item T, encode func(T) []byte) []byte {
	return encode(item)
}
