// Package wire provides the big-endian byte-twiddling helpers shared by the
// frame codec and the flow-control bookkeeping.
package wire

import (
	"crypto/rand"

	"github.com/valyala/fastrand"
)

// Uint24ToBytes writes the low 24 bits of n into b in big-endian order.
func Uint24ToBytes(b []byte, n uint32) {
	_ = b[2]
	b[0] = byte(n >> 16)
	b[1] = byte(n >> 8)
	b[2] = byte(n)
}

// BytesToUint24 reads a 24-bit big-endian unsigned integer from b.
func BytesToUint24(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// AppendUint32 appends the big-endian encoding of n to dst.
func AppendUint32(dst []byte, n uint32) []byte {
	return append(dst, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

// PutUint32 writes n into b in big-endian order.
func PutUint32(b []byte, n uint32) {
	_ = b[3]
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
}

// Uint32 reads a big-endian unsigned 32-bit integer from b.
func Uint32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// Uint31 reads a big-endian unsigned integer from b with the reserved top
// bit (RFC 7540 §4.1) cleared.
func Uint31(b []byte) uint32 {
	return Uint32(b) & (1<<31 - 1)
}

// CutPadding strips the one-octet pad-length prefix and trailing padding
// bytes from payload, per RFC 7540 §6.1/§6.2. length is the total payload
// length as carried in the frame header.
func CutPadding(payload []byte, length int) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrPadding
	}

	pad := int(payload[0])
	if pad >= length {
		return nil, ErrPadding
	}

	return payload[1 : length-pad], nil
}

// AddPadding appends a random amount of padding (plus its length prefix) to
// b, returning the new slice. Used only when the caller opts into PADDED.
func AddPadding(b []byte) []byte {
	n := int(fastrand.Uint32n(256-9)) + 9

	padded := make([]byte, 0, len(b)+n+1)
	padded = append(padded, byte(n))
	padded = append(padded, b...)

	pad := make([]byte, n)
	_, _ = rand.Read(pad)

	return append(padded, pad...)
}
