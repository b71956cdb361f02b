// Package ecc selects and adapts the concrete ECC scheme (BCH or LDPC),
// normalizing byte/bit packing so upstream code never sees raw bit arrays.
// Per spec.md §4.3 and §9 ("dynamic algorithm dispatch"): the facade
// matches once at construction and stores the concrete state, avoiding
// per-call indirection.
package ecc

import (
	"nandctl/bch"
	"nandctl/ldpc"
	"nandctl/nanderr"
)

// Algorithm names the codec scheme.
type Algorithm string

const (
	BCH  Algorithm = "bch"
	LDPC Algorithm = "ldpc"
)

// BCHParams configures the BCH scheme.
type BCHParams struct {
	M, T int
}

// LDPCParams configures the LDPC scheme.
type LDPCParams struct {
	N, Dv, Dc        int
	Systematic       bool
	MaxIterations    int
	EarlyTermination bool
}

// Config selects and parameterizes the codec.
type Config struct {
	Algorithm Algorithm
	BCH       BCHParams
	LDPC      LDPCParams
}

// DecodeResult is the facade's normalized decode outcome.
type DecodeResult struct {
	Payload  []byte
	ErrCount int
}

// Codec is the tagged-union ECC facade: exactly one of bchCodec/ldpcCodec
// is set, selected once at New and never re-dispatched per call.
type Codec struct {
	algorithm Algorithm
	bchCodec  *bch.Codec
	ldpcCodec *ldpc.Codec
	ldpcCfg   LDPCParams
}

// New selects and constructs the codec named by cfg.Algorithm.
func New(cfg Config) (*Codec, error) {
	switch cfg.Algorithm {
	case BCH:
		c, err := bch.New(cfg.BCH.M, cfg.BCH.T)
		if err != nil {
			return nil, err
		}
		return &Codec{algorithm: BCH, bchCodec: c}, nil
	case LDPC:
		c, err := ldpc.New(ldpc.Config{N: cfg.LDPC.N, Dv: cfg.LDPC.Dv, Dc: cfg.LDPC.Dc, Systematic: cfg.LDPC.Systematic})
		if err != nil {
			return nil, err
		}
		return &Codec{algorithm: LDPC, ldpcCodec: c, ldpcCfg: cfg.LDPC}, nil
	default:
		return nil, nanderr.Errorf(nanderr.OutOfRange, "ecc: unknown algorithm %q", cfg.Algorithm)
	}
}

// Algorithm reports which scheme this codec uses.
func (c *Codec) Algorithm() Algorithm { return c.algorithm }

// DataBytes returns the usable payload size in bytes for this codec.
func (c *Codec) DataBytes() int {
	switch c.algorithm {
	case BCH:
		return c.bchCodec.DataBytes()
	case LDPC:
		return c.ldpcCodec.K() / 8
	}
	return 0
}

// Encode returns data||parity for BCH, or the full bit-packed codeword for
// LDPC — both as MSB-first packed bytes. The facade's job is exactly to
// hide this asymmetry from callers (spec.md §9).
func (c *Codec) Encode(data []byte) ([]byte, error) {
	switch c.algorithm {
	case BCH:
		return c.bchCodec.Encode(data)
	case LDPC:
		k := c.ldpcCodec.K()
		u := bytesToBits(data, k)
		codeword, err := c.ldpcCodec.Encode(u)
		if err != nil {
			return nil, err
		}
		return bitsToBytes(codeword), nil
	default:
		return nil, nanderr.New(nanderr.OutOfRange, "ecc: codec not initialized")
	}
}

// Decode recovers (payload, error_count) from codeword, or fails with
// Uncorrectable.
func (c *Codec) Decode(codeword []byte) (*DecodeResult, error) {
	switch c.algorithm {
	case BCH:
		res, err := c.bchCodec.Decode(codeword)
		if err != nil {
			return nil, err
		}
		return &DecodeResult{Payload: res.Data, ErrCount: res.ErrCount}, nil
	case LDPC:
		n := c.ldpcCodec.N()
		r := bytesToBits(codeword, n)
		maxIter := c.ldpcCfg.MaxIterations
		res, err := c.ldpcCodec.Decode(r, maxIter, c.ldpcCfg.EarlyTermination)
		if err != nil {
			return nil, err
		}
		if !res.Success {
			return nil, nanderr.New(nanderr.Uncorrectable, "ecc: ldpc belief propagation did not converge")
		}
		errCount := hammingDistance(r, res.Codeword)
		return &DecodeResult{Payload: bitsToBytes(res.Data)[:c.DataBytes()], ErrCount: errCount}, nil
	default:
		return nil, nanderr.New(nanderr.OutOfRange, "ecc: codec not initialized")
	}
}

func hammingDistance(a, b []int) int {
	d := 0
	for i := range a {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}

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
