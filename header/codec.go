package header

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

// sectionMagic is the 4-byte magic every RPM header-structure section
// (signature and header alike) begins with, per spec.md §6.
var sectionMagic = [4]byte{0x8e, 0xad, 0xe8, 0x01}

const preambleLen = 16 // magic(4) + reserved(4) + count(4) + datalen(4)
const indexEntryLen = 16

// ErrInvalidFormat is returned by Decode when a section's magic, index,
// or data-store extents don't match the on-disk layout.
var ErrInvalidFormat = errors.New("header: invalid section format")

func alignLen(n, boundary int) int {
	if boundary <= 1 {
		return 0
	}
	return (boundary - n%boundary) % boundary
}

func encodeValue(v Value) ([]byte, error) {
	switch v.Type {
	case TypeChar, TypeInt8:
		return append([]byte(nil), v.Int8...), nil
	case TypeInt16:
		b := &bytes.Buffer{}
		if err := binary.Write(b, binary.BigEndian, v.Int16); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	case TypeInt32:
		b := &bytes.Buffer{}
		if err := binary.Write(b, binary.BigEndian, v.Int32); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	case TypeInt64:
		b := &bytes.Buffer{}
		if err := binary.Write(b, binary.BigEndian, v.Int64); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	case TypeString, TypeI18NString:
		return append([]byte(v.Str), 0), nil
	case TypeBinary:
		return append([]byte(nil), v.Bin...), nil
	case TypeStringArray:
		parts := make([][]byte, len(v.StrArr))
		for i, s := range v.StrArr {
			parts[i] = []byte(s)
		}
		return append(bytes.Join(parts, []byte{0}), 0), nil
	default:
		return nil, errors.Wrapf(ErrTypeMismatch, "cannot encode type %s", v.Type)
	}
}

func writeIndexEntry(w *bytes.Buffer, tag Tag, typ ValueType, offset, count int) error {
	return binary.Write(w, binary.BigEndian, []int32{int32(tag), int32(typ), int32(offset), int32(count)})
}

// regionTrailerValue returns the 16-byte immutable-region back-reference
// record: itself shaped like an index entry, whose offset field is the
// negative byte distance from the end of the index array (the start of
// the data store) back to the first index entry. numOtherEntries is the number of non-region
// tags in the store; the index array's total length is
// 16*(numOtherEntries+1) once the region's own index entry is counted.
func regionTrailerValue(region Tag, numOtherEntries int) ([]byte, error) {
	b := &bytes.Buffer{}
	err := binary.Write(b, binary.BigEndian, []int32{
		int32(region), int32(TypeBinary), -int32(indexEntryLen * (numOtherEntries + 1)), int32(regionTrailerLen),
	})
	return b.Bytes(), err
}

// Encode serializes s to the on-disk section format: preamble, index
// array (immutable-region entry first if present), data store. Tags are
// emitted in s.Tags() order — call s.SortCanonical first to get
// byte-exact reference-compatible output.
func Encode(s *Store) ([]byte, error) {
	tags := s.Tags()
	data := &bytes.Buffer{}
	offsets := make([]int, len(tags))

	for i, tag := range tags {
		v := s.values[tag]
		if pad := alignLen(data.Len(), v.Type.alignment()); pad > 0 {
			data.Write(make([]byte, pad))
		}
		offsets[i] = data.Len()
		b, err := encodeValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "header: encode tag %d", tag)
		}
		data.Write(b)
	}

	count := len(tags)
	if s.region != 0 {
		trailer, err := regionTrailerValue(s.region, len(tags))
		if err != nil {
			return nil, errors.Wrap(err, "header: encode region trailer")
		}
		data.Write(trailer)
		count++
	}

	out := &bytes.Buffer{}
	out.Write(sectionMagic[:])
	out.Write([]byte{0, 0, 0, 0})
	if err := binary.Write(out, binary.BigEndian, []uint32{uint32(count), uint32(data.Len())}); err != nil {
		return nil, errors.Wrap(err, "header: write preamble")
	}

	if s.region != 0 {
		if err := writeIndexEntry(out, s.region, TypeBinary, data.Len()-regionTrailerLen, regionTrailerLen); err != nil {
			return nil, errors.Wrap(err, "header: write region index entry")
		}
	}
	for i, tag := range tags {
		v := s.values[tag]
		if err := writeIndexEntry(out, tag, v.Type, offsets[i], v.Count()); err != nil {
			return nil, errors.Wrapf(err, "header: write index entry for tag %d", tag)
		}
	}
	out.Write(data.Bytes())
	return out.Bytes(), nil
}

type rawIndexEntry struct {
	tag, typ      Tag
	offset, count int32
}

func decodeIndexEntry(b []byte) rawIndexEntry {
	return rawIndexEntry{
		tag:    Tag(binary.BigEndian.Uint32(b[0:4])),
		typ:    Tag(binary.BigEndian.Uint32(b[4:8])),
		offset: int32(binary.BigEndian.Uint32(b[8:12])),
		count:  int32(binary.BigEndian.Uint32(b[12:16])),
	}
}

func decodeValue(typ ValueType, count int, data []byte) (Value, error) {
	switch typ {
	case TypeNull:
		return Value{Type: TypeNull}, nil
	case TypeChar, TypeInt8:
		if len(data) < count {
			return Value{}, errors.Wrap(ErrInvalidFormat, "short int8 data")
		}
		return Value{Type: typ, Int8: append([]byte(nil), data[:count]...)}, nil
	case TypeInt16:
		need := count * 2
		if len(data) < need {
			return Value{}, errors.Wrap(ErrInvalidFormat, "short int16 data")
		}
		out := make([]uint16, count)
		for i := range out {
			out[i] = binary.BigEndian.Uint16(data[i*2:])
		}
		return Value{Type: TypeInt16, Int16: out}, nil
	case TypeInt32:
		need := count * 4
		if len(data) < need {
			return Value{}, errors.Wrap(ErrInvalidFormat, "short int32 data")
		}
		out := make([]uint32, count)
		for i := range out {
			out[i] = binary.BigEndian.Uint32(data[i*4:])
		}
		return Value{Type: TypeInt32, Int32: out}, nil
	case TypeInt64:
		need := count * 8
		if len(data) < need {
			return Value{}, errors.Wrap(ErrInvalidFormat, "short int64 data")
		}
		out := make([]uint64, count)
		for i := range out {
			out[i] = binary.BigEndian.Uint64(data[i*8:])
		}
		return Value{Type: TypeInt64, Int64: out}, nil
	case TypeString, TypeI18NString:
		i := bytes.IndexByte(data, 0)
		if i == -1 {
			return Value{}, errors.Wrap(ErrInvalidFormat, "unterminated string")
		}
		return Value{Type: typ, Str: string(data[:i])}, nil
	case TypeBinary:
		if len(data) < count {
			return Value{}, errors.Wrap(ErrInvalidFormat, "short binary data")
		}
		return Value{Type: TypeBinary, Bin: append([]byte(nil), data[:count]...)}, nil
	case TypeStringArray:
		parts := strings.SplitN(string(data), "\x00", count+1)
		if len(parts) < count {
			return Value{}, errors.Wrap(ErrInvalidFormat, "truncated string array")
		}
		return Value{Type: TypeStringArray, StrArr: append([]string(nil), parts[:count]...)}, nil
	default:
		// Unknown type codes are preserved as opaque binary so the
		// section still round-trips even when it names a tag/type
		// this package doesn't otherwise understand.
		return Value{Type: TypeBinary, Bin: append([]byte(nil), data...)}, nil
	}
}

// SectionLen reports how many leading bytes of b make up one complete
// section (preamble + index + data store), without decoding it. Callers
// streaming multiple sections back to back (signature then header) use
// this to find where the next section starts.
func SectionLen(b []byte) (int, error) {
	if len(b) < preambleLen {
		return 0, errors.Wrap(ErrInvalidFormat, "section shorter than preamble")
	}
	if !bytes.Equal(b[0:4], sectionMagic[:]) {
		return 0, errors.Wrap(ErrInvalidFormat, "bad section magic")
	}
	count := int(binary.BigEndian.Uint32(b[8:12]))
	dataLen := int(binary.BigEndian.Uint32(b[12:16]))
	total := preambleLen + count*indexEntryLen + dataLen
	if len(b) < total {
		return 0, errors.Wrap(ErrInvalidFormat, "section shorter than index+data")
	}
	return total, nil
}

// Decode parses an on-disk section into a Store. Unknown tags decode
// successfully (their declared type still drives the decode); only a
// structural violation — bad magic, an offset outside the data store, an
// unterminated string — is an error.
func Decode(b []byte) (*Store, error) {
	if len(b) < preambleLen {
		return nil, errors.Wrap(ErrInvalidFormat, "section shorter than preamble")
	}
	if !bytes.Equal(b[0:4], sectionMagic[:]) {
		return nil, errors.Wrap(ErrInvalidFormat, "bad section magic")
	}
	count := int(binary.BigEndian.Uint32(b[8:12]))
	dataLen := int(binary.BigEndian.Uint32(b[12:16]))

	indexEnd := preambleLen + count*indexEntryLen
	if len(b) < indexEnd+dataLen {
		return nil, errors.Wrap(ErrInvalidFormat, "section shorter than index+data")
	}
	data := b[indexEnd : indexEnd+dataLen]

	entries := make([]rawIndexEntry, count)
	for i := 0; i < count; i++ {
		off := preambleLen + i*indexEntryLen
		entries[i] = decodeIndexEntry(b[off : off+indexEntryLen])
	}

	s := NewStore()
	for i, e := range entries {
		if i == 0 && (e.tag == Tag(TagHeaderImmutable) || e.tag == Tag(TagHeaderSignatures)) {
			if e.offset < 0 || int(e.offset)+regionTrailerLen > len(data) {
				return nil, errors.Wrap(ErrInvalidFormat, "immutable region trailer out of bounds")
			}
			trailer := decodeIndexEntry(data[e.offset : int(e.offset)+regionTrailerLen])
			if int(trailer.offset) != -(indexEntryLen * count) {
				return nil, errors.Wrap(ErrInvalidFormat, "immutable region back-reference does not point to the first index entry")
			}
			s.SetImmutableRegion(e.tag)
			continue
		}
		if e.offset < 0 || int(e.offset) > len(data) {
			return nil, errors.Wrapf(ErrInvalidFormat, "tag %d offset %d out of bounds", e.tag, e.offset)
		}
		v, err := decodeValue(ValueType(e.typ), int(e.count), data[e.offset:])
		if err != nil {
			return nil, errors.Wrapf(err, "header: decode tag %d", e.tag)
		}
		if err := s.Set(e.tag, v); err != nil {
			return nil, err
		}
	}
	return s, nil
}
