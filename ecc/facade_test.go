package ecc

import "testing"

func TestBCHRoundTrip(t *testing.T) {
	c, err := New(Config{Algorithm: BCH, BCH: BCHParams{M: 8, T: 4}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	codeword, err := c.Encode([]byte("hi"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	res, err := c.Decode(codeword)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.ErrCount != 0 {
		t.Fatalf("ErrCount = %d, want 0", res.ErrCount)
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	if _, err := New(Config{Algorithm: "rot13"}); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}
