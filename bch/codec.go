// Package bch implements a systematic binary BCH(m,t) encoder/decoder over
// GF(2^m), per spec.md §4.1.
package bch

import (
	"nandctl/gf"
	"nandctl/nanderr"
)

// Codec is a constructed BCH(m,t) instance.
type Codec struct {
	field      *gf.Field
	t          int
	n          int // codeword length in bits
	parityBits int
	dataBits   int
	genMSB     []int // generator coefficients, MSB-first, monic
}

// New builds a BCH codec for parameters (m,t), 3<=m<=16, 1<=t<=2^m-1.
func New(m, t int) (*Codec, error) {
	field, err := gf.New(m)
	if err != nil {
		return nil, err
	}
	if t < 1 || t > field.N {
		return nil, nanderr.Errorf(nanderr.OutOfRange, "bch: t=%d out of range for m=%d", t, m)
	}

	genLSB := buildGenerator(field, t)
	parityBits := degree(genLSB)
	dataBits := field.N - parityBits
	if dataBits <= 0 {
		return nil, nanderr.Errorf(nanderr.OutOfRange, "bch: t=%d leaves no data bits for m=%d", t, m)
	}

	genMSB := make([]int, parityBits+1)
	for i := 0; i <= parityBits; i++ {
		genMSB[i] = genLSB[parityBits-i]
	}

	return &Codec{
		field:      field,
		t:          t,
		n:          field.N,
		parityBits: parityBits,
		dataBits:   dataBits,
		genMSB:     genMSB,
	}, nil
}

// M returns the field exponent.
func (c *Codec) M() int { return c.field.M }

// T returns the designed error-correction capacity.
func (c *Codec) T() int { return c.t }

// N returns the codeword length in bits.
func (c *Codec) N() int { return c.n }

// DataBits returns the number of user-data bits per codeword.
func (c *Codec) DataBits() int { return c.dataBits }

// ParityBits returns deg(generator), the number of parity bits.
func (c *Codec) ParityBits() int { return c.parityBits }

// DataBytes returns floor(DataBits/8), the usable payload size in bytes:
// the whole bytes Encode stores without loss and the length of Decode's
// Data. Any DataBits%8 remaining data bits are always encoded as zero.
func (c *Codec) DataBytes() int { return c.dataBits / 8 }

// ECCBytes returns ceil(parityBits/8).
func (c *Codec) ECCBytes() int { return (c.parityBits + 7) / 8 }

// Encode systematically encodes data, returning data||parity as a bit
// buffer packed into bytes MSB-first. Input longer than DataBytes fails
// with InputTooLarge; shorter input is zero-extended on the right.
func (c *Codec) Encode(data []byte) ([]byte, error) {
	dataBytes := c.DataBytes()
	if len(data) > dataBytes {
		return nil, nanderr.Errorf(nanderr.InputTooLarge, "bch: input %d bytes exceeds data capacity %d bytes", len(data), dataBytes)
	}
	padded := make([]byte, dataBytes)
	copy(padded, data)

	dataBits := bytesToBits(padded, c.dataBits)
	dividend := make([]int, c.n)
	copy(dividend, dataBits) // low c.parityBits entries remain 0 (the shift by parityBits)

	remainder := polyModGF2(dividend, c.genMSB)

	codewordBits := make([]int, c.n)
	copy(codewordBits, dataBits)
	copy(codewordBits[c.dataBits:], remainder)

	return bitsToBytes(codewordBits), nil
}

// DecodeResult is the outcome of a successful Decode.
type DecodeResult struct {
	Data      []byte
	ErrCount  int
}

// Decode corrects up to t bit errors in codeword and returns the data
// portion. Returns Uncorrectable if the codeword cannot be corrected.
func (c *Codec) Decode(codeword []byte) (*DecodeResult, error) {
	bits := bytesToBitsExact(codeword, c.n)

	syndromes := c.computeSyndromes(bits)
	allZero := true
	for _, s := range syndromes {
		if s != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		dataBits := bits[:c.dataBits]
		return &DecodeResult{Data: bitsToBytes(dataBits)[:c.DataBytes()], ErrCount: 0}, nil
	}

	sigma, l := c.berlekampMassey(syndromes)
	roots := c.chienSearch(sigma, l)
	if len(roots) != l {
		return nil, nanderr.New(nanderr.Uncorrectable, "bch: error-locator degree does not match roots found")
	}

	corrected := make([]int, len(bits))
	copy(corrected, bits)
	for _, pos := range roots {
		corrected[pos] ^= 1
	}

	dataBits := corrected[:c.dataBits]
	return &DecodeResult{Data: bitsToBytes(dataBits)[:c.DataBytes()], ErrCount: len(roots)}, nil
}

// computeSyndromes evaluates S_i = r(alpha^i) for i=1..2t.
func (c *Codec) computeSyndromes(bits []int) []int {
	// 1-indexed: syndromes[0] unused, syndromes[1..2t] populated.
	syndromes := make([]int, 2*c.t+1)
	n := c.n
	for i := 1; i <= 2*c.t; i++ {
		s := 0
		for p, bit := range bits {
			if bit == 0 {
				continue
			}
			e := n - 1 - p
			s ^= c.field.Pow(i * e)
		}
		syndromes[i] = s
	}
	return syndromes
}

// berlekampMassey runs the Berlekamp-Massey algorithm over GF(2^m) on the
// 1-indexed syndromes, returning the error-locator polynomial (LSB-first,
// sigma[0]=1) and its degree.
func (c *Codec) berlekampMassey(syndromes []int) ([]int, int) {
	field := c.field
	maxDeg := 2*c.t + 2
	C := make([]int, maxDeg)
	B := make([]int, maxDeg)
	C[0] = 1
	B[0] = 1
	l := 0
	m := 1
	b := 1

	for nStep := 0; nStep < 2*c.t; nStep++ {
		delta := syndromes[nStep+1]
		for i := 1; i <= l; i++ {
			delta ^= field.Mul(C[i], syndromes[nStep+1-i])
		}
		if delta == 0 {
			m++
			continue
		}
		T := make([]int, len(C))
		copy(T, C)
		coef := field.Div(delta, b)
		for i := 0; i < len(B); i++ {
			if i+m < len(C) {
				C[i+m] ^= field.Mul(coef, B[i])
			}
		}
		if 2*l <= nStep {
			l = nStep + 1 - l
			copy(B, T)
			b = delta
			m = 1
		} else {
			m++
		}
	}
	return C[:l+1], l
}

// chienSearch evaluates sigma at alpha^-i for i=0..n-1 and returns the bit
// positions (in the same MSB-first indexing as the codeword) whose
// corresponding error occurred.
func (c *Codec) chienSearch(sigma []int, l int) []int {
	field := c.field
	n := c.n
	var roots []int
	for i := 0; i < n; i++ {
		// Evaluate sigma(alpha^-i) = sum_j sigma[j] * alpha^(-i*j)
		acc := 0
		for j := 0; j <= l; j++ {
			if sigma[j] == 0 {
				continue
			}
			acc ^= field.Mul(sigma[j], field.Pow(-i*j))
		}
		if acc == 0 {
			// Error at exponent i (coefficient of x^i); map to bit position.
			pos := n - 1 - i
			roots = append(roots, pos)
		}
	}
	return roots
}

// polyModGF2 computes dividend mod divisor over GF(2), both MSB-first,
// divisor monic (divisor[0]==1). Returns the remainder, MSB-first, of
// length len(divisor)-1.
func polyModGF2(dividend []int, divisor []int) []int {
	rem := make([]int, len(dividend))
	copy(rem, dividend)
	for i := 0; i <= len(rem)-len(divisor); i++ {
		if rem[i] == 1 {
			for j := 0; j < len(divisor); j++ {
				rem[i+j] ^= divisor[j]
			}
		}
	}
	return rem[len(rem)-(len(divisor)-1):]
}

// bytesToBits unpacks data MSB-first into exactly nBits bits.
func bytesToBits(data []byte, nBits int) []int {
	bits := make([]int, nBits)
	for i := 0; i < nBits; i++ {
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		if byteIdx < len(data) {
			bits[i] = int((data[byteIdx] >> uint(bitIdx)) & 1)
		}
	}
	return bits
}

// bytesToBitsExact is bytesToBits but panics-free even if data is shorter
// than nBits (zero-pads), matching a tolerant codeword reader.
func bytesToBitsExact(data []byte, nBits int) []int {
	return bytesToBits(data, nBits)
}

// bitsToBytes packs MSB-first bits into bytes, zero-padding the final byte.
func bitsToBytes(bits []int) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, bit := range bits {
		if bit == 0 {
			continue
		}
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		out[byteIdx] |= 1 << uint(bitIdx)
	}
	return out
}
