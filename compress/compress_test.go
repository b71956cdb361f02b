package compress

import (
	"bytes"
	"testing"
)

func TestZstdRoundTrip(t *testing.T) {
	c, err := New(Zstd)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := bytes.Repeat([]byte("hello world "), 100)
	compressed, err := c.Compress(data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Fatalf("expected compression to shrink repetitive data: got %d >= %d", len(compressed), len(data))
	}
	decompressed, err := c.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(data, decompressed) {
		t.Fatal("round trip mismatch")
	}
}

func TestLZ4RoundTrip(t *testing.T) {
	c, err := New(LZ4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := bytes.Repeat([]byte("abcdefgh"), 200)
	compressed, err := c.Compress(data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	decompressed, err := c.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(data, decompressed) {
		t.Fatal("round trip mismatch")
	}
}

func TestEmptyInputShortCircuits(t *testing.T) {
	for _, algo := range []Algorithm{Zstd, LZ4} {
		c, err := New(algo)
		if err != nil {
			t.Fatalf("New(%s): %v", algo, err)
		}
		out, err := c.Compress(nil)
		if err != nil || out != nil {
			t.Fatalf("Compress(nil) for %s = %v, %v; want nil, nil", algo, out, err)
		}
		out, err = c.Decompress(nil)
		if err != nil || out != nil {
			t.Fatalf("Decompress(nil) for %s = %v, %v; want nil, nil", algo, out, err)
		}
	}
}

func TestDecompressMalformedInput(t *testing.T) {
	for _, algo := range []Algorithm{Zstd, LZ4} {
		c, err := New(algo)
		if err != nil {
			t.Fatalf("New(%s): %v", algo, err)
		}
		if _, err := c.Decompress([]byte("not a valid compressed stream, definitely garbage")); err == nil {
			t.Fatalf("expected error decompressing garbage for %s", algo)
		}
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	if _, err := New(Algorithm("brotli")); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}

func TestEncodeDecodePageRaw(t *testing.T) {
	c, err := New(LZ4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Incompressible random-ish data: compression should not shrink it, so
	// EncodePage falls back to the Raw indicator.
	data := []byte{0x01, 0x9f, 0x33, 0x7c, 0x00, 0xaa, 0x55, 0x12}
	page, err := EncodePage(c, data)
	if err != nil {
		t.Fatalf("EncodePage: %v", err)
	}
	if Indicator(page[0]) != Raw {
		t.Fatalf("expected Raw indicator for incompressible data, got %d", page[0])
	}
	out, err := DecodePage(c, page)
	if err != nil {
		t.Fatalf("DecodePage: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatal("raw page round trip mismatch")
	}
}

func TestEncodeDecodePageCompressed(t *testing.T) {
	c, err := New(Zstd)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := bytes.Repeat([]byte{0x42}, 4096)
	page, err := EncodePage(c, data)
	if err != nil {
		t.Fatalf("EncodePage: %v", err)
	}
	if Indicator(page[0]) != Compressed {
		t.Fatalf("expected Compressed indicator for highly repetitive data, got %d", page[0])
	}
	out, err := DecodePage(c, page)
	if err != nil {
		t.Fatalf("DecodePage: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatal("compressed page round trip mismatch")
	}
}

func TestDecodePageUnknownIndicator(t *testing.T) {
	c, _ := New(LZ4)
	_, err := DecodePage(c, []byte{0x07, 0x01, 0x02})
	if err == nil {
		t.Fatal("expected error for unknown indicator byte")
	}
}
