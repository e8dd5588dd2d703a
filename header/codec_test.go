package header

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := NewStore()
	must := func(err error) {
		if err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	must(s.Set(TagName, StringValue("hello")))
	must(s.Set(TagVersion, StringValue("1.0.0")))
	must(s.Set(TagSize, Int32Value(4096)))
	must(s.Set(TagFileMTimes, Int32Value(1, 2, 3)))
	must(s.Set(TagFileDigestAlgo, Int32Value(DigestAlgoSHA256)))
	must(s.Set(TagBaseNames, StringArrayValue("a", "b", "c")))
	must(s.Set(TagFileDigests, BinaryValue([]byte{0xde, 0xad, 0xbe, 0xef})))
	s.SortCanonical(CanonicalHeaderOrder)
	s.SetImmutableRegion(TagHeaderImmutable)

	encoded, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(encoded)%4 != 0 {
		// header sections aren't required to be 4-byte aligned as a whole,
		// but our synthetic fixture happens to be; this just documents the
		// expectation so a future change in test data explains itself.
		t.Logf("encoded length %d", len(encoded))
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.ImmutableRegion() != TagHeaderImmutable {
		t.Fatalf("ImmutableRegion() = %d, want %d", decoded.ImmutableRegion(), TagHeaderImmutable)
	}

	for _, tag := range []Tag{TagName, TagVersion, TagSize, TagFileMTimes, TagFileDigestAlgo, TagBaseNames, TagFileDigests} {
		want, _ := s.Get(tag)
		got, ok := decoded.Get(tag)
		if !ok {
			t.Errorf("tag %d missing after decode", tag)
			continue
		}
		if d := cmp.Diff(want, got); d != "" {
			t.Errorf("tag %d round trip mismatch (-want +got):\n%s", tag, d)
		}
	}
}

func TestEncodeRegionTrailerBackReference(t *testing.T) {
	s := NewStore()
	s.Set(TagName, StringValue("x"))
	s.Set(TagVersion, StringValue("y"))
	s.SetImmutableRegion(TagHeaderImmutable)

	encoded, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.ImmutableRegion() != TagHeaderImmutable {
		t.Fatalf("region not recovered")
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	s := NewStore()
	s.Set(TagName, StringValue("x"))
	encoded, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	encoded[0] ^= 0xff
	if _, err := Decode(encoded); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("Decode: got %v, want ErrInvalidFormat", err)
	}
}

func TestDecodePreservesUnknownTag(t *testing.T) {
	s := NewStore()
	must := func(err error) {
		if err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	const unknownTag Tag = 99999
	must(s.Set(unknownTag, BinaryValue([]byte{1, 2, 3})))

	encoded, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	v, ok := decoded.Get(unknownTag)
	if !ok {
		t.Fatalf("unknown tag not preserved")
	}
	if v.Type != TypeBinary || len(v.Bin) != 3 {
		t.Fatalf("unknown tag decoded wrong: %+v", v)
	}
}

func TestSetTypeMismatchRejected(t *testing.T) {
	s := NewStore()
	if err := s.Set(TagName, StringValue("x")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(TagName, Int32Value(1)); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("Set: got %v, want ErrTypeMismatch", err)
	}
}

func TestSortCanonicalOrdersKnownTagsFirst(t *testing.T) {
	s := NewStore()
	s.Set(TagVersion, StringValue("v"))
	s.Set(Tag(999999), BinaryValue([]byte{0}))
	s.Set(TagName, StringValue("n"))
	s.SortCanonical(CanonicalHeaderOrder)

	tags := s.Tags()
	if tags[0] != TagName || tags[1] != TagVersion {
		t.Fatalf("canonical tags not ordered first: %v", tags)
	}
	if tags[len(tags)-1] != Tag(999999) {
		t.Fatalf("unknown tag not ordered last: %v", tags)
	}
}
