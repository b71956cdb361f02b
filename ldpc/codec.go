// Package ldpc implements a regular LDPC encoder and a sum-product
// belief-propagation decoder, per spec.md §4.2.
package ldpc

import (
	"math"

	"nandctl/nanderr"
)

const channelLLR = 10.0
const clampEpsilon = 1e-6

// Codec is a constructed regular LDPC(n, dv, dc) instance.
type Codec struct {
	n, dv, dc, m, k int
	systematic      bool

	h *bitMatrix // original PEG matrix, used for belief propagation

	// parity-check structure derived via RREF, used for encoding and for
	// extracting the payload from a corrected codeword.
	pivotCols []int // length m; pivotCols[r] is the variable index that is
	// the identity column for parity-check row r
	freeCols []int // length k; the information-bearing variable indices
	p        [][]int // m x k: parity[r] = dot(p[r], u)

	checkAdj [][]int // for each check j, the connected variable indices
	varAdj   [][]int // for each variable i, the connected check indices
}

// Config parameterizes LDPC construction.
type Config struct {
	N, Dv, Dc  int
	Systematic bool
}

// New builds an LDPC codec. Requires n*dv % dc == 0 and k=n-m > 0.
func New(cfg Config) (*Codec, error) {
	n, dv, dc := cfg.N, cfg.Dv, cfg.Dc
	if dc <= 0 || (n*dv)%dc != 0 {
		return nil, nanderr.Errorf(nanderr.OutOfRange, "ldpc: n*dv (%d) not divisible by dc (%d)", n*dv, dc)
	}
	m := n * dv / dc
	k := n - m
	if k <= 0 {
		return nil, nanderr.Errorf(nanderr.OutOfRange, "ldpc: k=%d must be positive (n=%d, m=%d)", k, n, m)
	}

	h := buildPEG(n, dv, dc, m)

	work := newBitMatrix(m, n)
	for r := range h.data {
		copy(work.data[r], h.data[r])
	}

	var allowed []int
	if cfg.Systematic {
		allowed = lastColumns(n, m)
	} else {
		allowed = allColumns(n)
	}
	pivotCols, freeCols, err := work.rref(allowed)
	if err != nil {
		return nil, err
	}

	p := make([][]int, m)
	for r := 0; r < m; r++ {
		p[r] = make([]int, k)
		for i, fc := range freeCols {
			p[r][i] = work.data[r][fc]
		}
	}

	checkAdj := make([][]int, m)
	varAdj := make([][]int, n)
	for j := 0; j < m; j++ {
		for i := 0; i < n; i++ {
			if h.data[j][i] == 1 {
				checkAdj[j] = append(checkAdj[j], i)
				varAdj[i] = append(varAdj[i], j)
			}
		}
	}

	return &Codec{
		n: n, dv: dv, dc: dc, m: m, k: k,
		systematic: cfg.Systematic,
		h:          h,
		pivotCols:  pivotCols,
		freeCols:   freeCols,
		p:          p,
		checkAdj:   checkAdj,
		varAdj:     varAdj,
	}, nil
}

// N, K, M return the codeword length, information length and check-node count.
func (c *Codec) N() int { return c.n }
func (c *Codec) K() int { return c.k }
func (c *Codec) M() int { return c.m }

// Encode computes c = G*u (mod 2) and returns the full n-bit codeword as
// one 0/1 int per bit, in natural variable-node order.
func (c *Codec) Encode(u []int) ([]int, error) {
	if len(u) != c.k {
		return nil, nanderr.Errorf(nanderr.InputTooLarge, "ldpc: input length %d != k=%d", len(u), c.k)
	}
	codeword := make([]int, c.n)
	for i, fc := range c.freeCols {
		codeword[fc] = u[i]
	}
	for r := 0; r < c.m; r++ {
		sum := 0
		for i := 0; i < c.k; i++ {
			if c.p[r][i] == 1 {
				sum ^= u[i]
			}
		}
		codeword[c.pivotCols[r]] = sum
	}
	return codeword, nil
}

// DecodeResult is the outcome of a belief-propagation decode attempt.
type DecodeResult struct {
	Codeword []int
	Data     []int
	Success  bool
}

// Decode runs sum-product belief propagation on the received bit vector r
// for up to maxIterations (default 50 if <=0), returning early if
// earlyTermination is set and a satisfying codeword is found.
func (c *Codec) Decode(r []int, maxIterations int, earlyTermination bool) (*DecodeResult, error) {
	if len(r) != c.n {
		return nil, nanderr.Errorf(nanderr.OutOfRange, "ldpc: received vector length %d != n=%d", len(r), c.n)
	}
	if maxIterations <= 0 {
		maxIterations = 50
	}

	lambda := make([]float64, c.n)
	for i, bit := range r {
		if bit == 0 {
			lambda[i] = channelLLR
		} else {
			lambda[i] = -channelLLR
		}
	}

	// mv2c[j][idx] holds the variable-to-check message for the idx-th edge
	// of check j (idx indexes into c.checkAdj[j]).
	mv2c := make([][]float64, c.m)
	for j := range mv2c {
		mv2c[j] = make([]float64, len(c.checkAdj[j]))
	}
	for j, vars := range c.checkAdj {
		for idx, i := range vars {
			mv2c[j][idx] = lambda[i]
		}
	}
	// mc2v[i][idx] holds the check-to-variable message for the idx-th edge
	// of variable i (idx indexes into c.varAdj[i]).
	mc2v := make([][]float64, c.n)
	for i := range mc2v {
		mc2v[i] = make([]float64, len(c.varAdj[i]))
	}

	decision := make([]int, c.n)

	for iter := 0; iter < maxIterations; iter++ {
		// Check-to-variable.
		for j, vars := range c.checkAdj {
			for idx := range vars {
				prod := 1.0
				for idx2 := range vars {
					if idx2 == idx {
						continue
					}
					prod *= math.Tanh(mv2c[j][idx2] / 2)
				}
				prod = clamp(prod, -1+clampEpsilon, 1-clampEpsilon)
				msg := 2 * atanh(prod)
				i := vars[idx]
				edgeIdx := edgeIndex(c.varAdj[i], j)
				mc2v[i][edgeIdx] = msg
			}
		}

		// Variable-to-check.
		for i, checks := range c.varAdj {
			for idx, j := range checks {
				sum := lambda[i]
				for idx2 := range checks {
					if idx2 == idx {
						continue
					}
					sum += mc2v[i][idx2]
				}
				edgeIdx := edgeIndex(c.checkAdj[j], i)
				mv2c[j][edgeIdx] = sum
			}
		}

		// Tentative decision.
		for i := range decision {
			total := lambda[i]
			for idx := range c.varAdj[i] {
				total += mc2v[i][idx]
			}
			if total < 0 {
				decision[i] = 1
			} else {
				decision[i] = 0
			}
		}

		if earlyTermination && c.satisfies(decision) {
			return c.finish(decision, true), nil
		}
	}

	success := c.satisfies(decision)
	return c.finish(decision, success), nil
}

func (c *Codec) finish(decision []int, success bool) *DecodeResult {
	data := make([]int, c.k)
	for i, fc := range c.freeCols {
		data[i] = decision[fc]
	}
	codeword := make([]int, c.n)
	copy(codeword, decision)
	return &DecodeResult{Codeword: codeword, Data: data, Success: success}
}

func (c *Codec) satisfies(decision []int) bool {
	for j, vars := range c.checkAdj {
		_ = j
		sum := 0
		for _, i := range vars {
			sum ^= decision[i]
		}
		if sum != 0 {
			return false
		}
	}
	return true
}

func edgeIndex(adj []int, target int) int {
	for idx, v := range adj {
		if v == target {
			return idx
		}
	}
	return -1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func atanh(x float64) float64 {
	return 0.5 * math.Log((1+x)/(1-x))
}
