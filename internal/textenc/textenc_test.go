package textenc_test

import (
	"bytes"
	"errors"
	"testing"

	"camsort/internal/textenc"
)

func encode(t *testing.T, enc textenc.Encoding, fresh bool, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := enc.NewWriter(&buf, fresh)
	if _, err := w.Write([]byte(text)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestLookupUTF8WithBOMOnlyWhenFresh(t *testing.T) {
	enc, err := textenc.Lookup("UTF-8", true)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if !enc.BOM() {
		t.Fatal("expected BOM to be enabled")
	}
	got := encode(t, enc, true, "a\n")
	if !bytes.Equal(got, []byte{0xEF, 0xBB, 0xBF, 'a', '\n'}) {
		t.Fatalf("unexpected fresh bytes: % x", got)
	}
	got = encode(t, enc, false, "a\n")
	if !bytes.Equal(got, []byte("a\n")) {
		t.Fatalf("appended chunk must not repeat the BOM: % x", got)
	}
}

func TestLookupUTF16LittleEndian(t *testing.T) {
	enc, err := textenc.Lookup("utf-16", false)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	got := encode(t, enc, true, "ab")
	if !bytes.Equal(got, []byte{'a', 0, 'b', 0}) {
		t.Fatalf("unexpected utf-16le bytes: % x", got)
	}
}

func TestLookupCodePage(t *testing.T) {
	enc, err := textenc.Lookup("28591", false)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	got := encode(t, enc, true, "é")
	if !bytes.Equal(got, []byte{0xE9}) {
		t.Fatalf("unexpected latin-1 bytes: % x", got)
	}
}

func TestLookupReplacesUnencodableRunes(t *testing.T) {
	enc, err := textenc.Lookup("iso-8859-1", false)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	got := encode(t, enc, true, "a中b")
	if len(got) != 3 || got[0] != 'a' || got[2] != 'b' {
		t.Fatalf("expected replacement in the middle, got % x", got)
	}
}

func TestLookupWHATWGLabel(t *testing.T) {
	if _, err := textenc.Lookup("shift_jis", false); err != nil {
		t.Fatalf("expected shift_jis to resolve: %v", err)
	}
}

func TestLookupEmptyDefaultsToUTF8(t *testing.T) {
	enc, err := textenc.Lookup("", false)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if enc.Name() != "utf-8" {
		t.Fatalf("unexpected default name %q", enc.Name())
	}
}

func TestLookupUnknown(t *testing.T) {
	for _, name := range []string{"klingon", "65000"} {
		if _, err := textenc.Lookup(name, false); !errors.Is(err, textenc.ErrUnknown) {
			t.Fatalf("Lookup(%q): expected ErrUnknown, got %v", name, err)
		}
	}
}
