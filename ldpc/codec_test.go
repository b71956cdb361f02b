package ldpc

import "testing"

func TestEncodeDecodeRoundTripNonSystematic(t *testing.T) {
	c, err := New(Config{N: 16, Dv: 3, Dc: 6, Systematic: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	u := []int{1, 0, 1, 1, 0, 0, 1, 0}
	codeword, err := c.Encode(u)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Flip a single bit, which a dv=3,dc=6 LDPC should typically recover
	// from via belief propagation.
	received := make([]int, len(codeword))
	copy(received, codeword)
	received[0] ^= 1

	res, err := c.Decode(received, 50, true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !res.Success {
		t.Fatalf("decode did not converge")
	}
	for i := range u {
		if res.Data[i] != u[i] {
			t.Fatalf("Data[%d] = %d, want %d", i, res.Data[i], u[i])
		}
	}
}

func TestEncodeDecodeNoErrors(t *testing.T) {
	c, err := New(Config{N: 16, Dv: 3, Dc: 6, Systematic: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	u := []int{0, 1, 0, 0, 1, 1, 0, 1}
	codeword, err := c.Encode(u)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	res, err := c.Decode(codeword, 50, true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !res.Success {
		t.Fatalf("decode of an error-free codeword did not converge")
	}
	for i := range u {
		if res.Data[i] != u[i] {
			t.Fatalf("Data[%d] = %d, want %d", i, res.Data[i], u[i])
		}
	}
}

func TestDecodeTimesOutGracefully(t *testing.T) {
	c, err := New(Config{N: 16, Dv: 3, Dc: 6, Systematic: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// A heavily corrupted received vector may not converge; Decode must
	// still return a tentative decision rather than error.
	garbage := make([]int, c.N())
	for i := range garbage {
		garbage[i] = i % 2
	}
	res, err := c.Decode(garbage, 5, true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(res.Data) != c.K() {
		t.Fatalf("Data length = %d, want %d", len(res.Data), c.K())
	}
}

func TestInvalidParameters(t *testing.T) {
	if _, err := New(Config{N: 10, Dv: 3, Dc: 4}); err == nil {
		t.Fatal("expected error when n*dv is not divisible by dc")
	}
}
