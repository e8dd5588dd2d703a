package digest

import (
	"errors"
	"testing"
)

func TestHexKnownVectors(t *testing.T) {
	got, err := Hex(MD5, []byte("hello\n"))
	if err != nil {
		t.Fatalf("Hex: %v", err)
	}
	if want := "b1946ac92492d2347c6235b4d2611184"; got != want {
		t.Errorf("MD5(%q) = %s, want %s", "hello\n", got, want)
	}

	got, err = Hex(SHA256, []byte("hello\n"))
	if err != nil {
		t.Fatalf("Hex: %v", err)
	}
	if want := "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03"; got != want {
		t.Errorf("SHA256(%q) = %s, want %s", "hello\n", got, want)
	}
}

func TestHexUnknownAlgo(t *testing.T) {
	if _, err := Hex(Algo(99), []byte("x")); !errors.Is(err, ErrUnknownAlgo) {
		t.Fatalf("Hex: got %v, want ErrUnknownAlgo", err)
	}
}

func TestSHA1Hex(t *testing.T) {
	if got, want := SHA1Hex([]byte("hello\n")), "f572d396fae9206628714fb2ce00f72e94f2258f"; got != want {
		t.Errorf("SHA1Hex(%q) = %s, want %s", "hello\n", got, want)
	}
}
