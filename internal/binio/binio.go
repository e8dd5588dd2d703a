// Package binio provides the fixed-width, explicit-byte-order primitives
// that every on-disk RPM and CPIO structure is built from: big-endian
// integers for RPM tag data, ASCII hex fields for CPIO newc headers, and
// the 4/8-byte alignment padding both formats depend on.
package binio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// ErrUnexpectedEOF is returned when a read runs out of input before a
// fixed-size field is complete.
var ErrUnexpectedEOF = errors.New("binio: unexpected EOF")

// ErrInvalidField is returned by ParseHex8 when a field is not exactly
// 8 ASCII hex digits.
var ErrInvalidField = errors.New("binio: invalid field")

// PadTo returns the number of zero bytes required to bring n up to the
// next multiple of boundary. boundary must be a power of two.
func PadTo(n, boundary int) int {
	if boundary <= 0 {
		return 0
	}
	return (boundary - n%boundary) % boundary
}

// WriteBE writes v to w in big-endian order. v must be a fixed-size type
// or slice of fixed-size types, per encoding/binary.Write.
func WriteBE(w io.Writer, v interface{}) error {
	if err := binary.Write(w, binary.BigEndian, v); err != nil {
		return errors.Wrap(err, "binio: write big-endian")
	}
	return nil
}

// ReadBE reads into v from r in big-endian order.
func ReadBE(r io.Reader, v interface{}) error {
	if err := binary.Read(r, binary.BigEndian, v); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ErrUnexpectedEOF
		}
		return errors.Wrap(err, "binio: read big-endian")
	}
	return nil
}

// WritePad writes n zero bytes to w.
func WritePad(w io.Writer, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := w.Write(make([]byte, n))
	return errors.Wrap(err, "binio: write padding")
}

// DiscardExact reads and discards exactly n bytes from r, the strategy
// used when r is not seekable.
func DiscardExact(r io.Reader, n int) error {
	if n <= 0 {
		return nil
	}
	written, err := io.CopyN(io.Discard, r, int64(n))
	if err != nil {
		if err == io.EOF {
			return ErrUnexpectedEOF
		}
		return errors.Wrap(err, "binio: discard")
	}
	if written != int64(n) {
		return ErrUnexpectedEOF
	}
	return nil
}

const hexDigits = "0123456789ABCDEF"

// PutHex8 formats v as 8 uppercase hex characters, zero padded, with no
// "0x" prefix — the field format used by every integer in a CPIO newc
// header.
func PutHex8(dst []byte, v uint32) {
	for i := 7; i >= 0; i-- {
		dst[i] = hexDigits[v&0xf]
		v >>= 4
	}
}

// Hex8 returns the 8-character ASCII hex encoding of v.
func Hex8(v uint32) string {
	var b [8]byte
	PutHex8(b[:], v)
	return string(b[:])
}

// ParseHex8 parses an 8-character ASCII hex field. It rejects anything
// that is not exactly 8 hex digits, matching the strictness real rpm/cpio
// implementations apply to newc headers.
func ParseHex8(b []byte) (uint32, error) {
	if len(b) != 8 {
		return 0, errors.Wrapf(ErrInvalidField, "hex field must be 8 bytes, got %d", len(b))
	}
	var v uint32
	for _, c := range b {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= uint32(c - '0')
		case c >= 'a' && c <= 'f':
			v |= uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= uint32(c-'A') + 10
		default:
			return 0, errors.Wrapf(ErrInvalidField, "invalid hex digit %q", fmt.Sprintf("%c", c))
		}
	}
	return v, nil
}
