package compressor

import (
	"bytes"
	"io"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 200)

	for _, format := range []Format{XZ, LZMA, Gzip, Zstd} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(format, &buf)
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}
			if _, err := w.Write(payload); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			r, err := NewReader(format, bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			defer r.Close()

			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatalf("round trip mismatch for %s", format)
			}
		})
	}
}

func TestUnknownFormatRejected(t *testing.T) {
	if _, err := NewWriter(Format("bogus"), &bytes.Buffer{}); err == nil {
		t.Fatalf("NewWriter: expected error for unknown format")
	}
	if _, err := NewReader(Format("bogus"), bytes.NewReader(nil)); err == nil {
		t.Fatalf("NewReader: expected error for unknown format")
	}
}

// closeTrackingSink records whether Close was called on it.
type closeTrackingSink struct {
	bytes.Buffer
	closed bool
}

func (s *closeTrackingSink) Close() error {
	s.closed = true
	return nil
}

func TestCloseDoesNotCloseUnderlyingSink(t *testing.T) {
	var buf closeTrackingSink
	w, err := NewWriter(Gzip, &buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	w.Write([]byte("data"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.closed {
		t.Fatalf("encoder Close closed the underlying sink")
	}
	// Close only flushed the encoder's own framing into the sink.
	if buf.Len() == 0 {
		t.Fatalf("expected compressed bytes in sink after Close")
	}
}
