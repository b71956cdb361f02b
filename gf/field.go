// Package gf implements log-table arithmetic over GF(2^m), the finite
// field the BCH codec is built on.
package gf

import "github.com/pkg/errors"

// primitivePoly maps m to a primitive polynomial of degree m, given as the
// integer whose bit i is the coefficient of x^i, including the leading
// x^m bit (New strips that bit before using the value as alpha^m). Table covers 3<=m<=16,
// matching spec.md's BCH parameter range.
var primitivePoly = map[int]int{
	3:  0x0B, // x^3+x+1
	4:  0x13, // x^4+x+1
	5:  0x25, // x^5+x^2+1
	6:  0x43, // x^6+x+1
	7:  0x89, // x^7+x^3+1
	8:  0x11D, // x^8+x^4+x^3+x^2+1
	9:  0x211, // x^9+x^4+1
	10: 0x409, // x^10+x^3+1
	11: 0x805, // x^11+x^2+1
	12: 0x1053, // x^12+x^6+x^4+x+1
	13: 0x201B, // x^13+x^4+x^3+x+1
	14: 0x4443, // x^14+x^10+x^6+x+1
	15: 0x8003, // x^15+x+1
	16: 0x1100B, // x^16+x^12+x^3+x+1
}

// Field holds the alpha_to / index_of log tables for GF(2^m).
type Field struct {
	M       int
	N       int // 2^m - 1
	AlphaTo []int
	IndexOf []int
}

// New builds the field tables for GF(2^m), 3<=m<=16.
func New(m int) (*Field, error) {
	if m < 3 || m > 16 {
		return nil, errors.Errorf("gf: m=%d out of supported range [3,16]", m)
	}
	poly, ok := primitivePoly[m]
	if !ok {
		return nil, errors.Errorf("gf: no primitive polynomial tabulated for m=%d", m)
	}
	n := (1 << uint(m)) - 1
	alphaTo := make([]int, n+1)
	indexOf := make([]int, n+1)

	// Build alpha_to via the shift-register recurrence driven by poly.
	mask := 1
	alphaTo[m] = poly &^ (1 << uint(m))
	for i := 0; i < m; i++ {
		alphaTo[i] = mask
		indexOf[alphaTo[i]] = i
		mask <<= 1
	}
	indexOf[alphaTo[m]] = m
	mask = 1 << uint(m-1)
	for i := m + 1; i <= n; i++ {
		if alphaTo[i-1] >= mask {
			alphaTo[i] = alphaTo[m] ^ ((alphaTo[i-1] ^ mask) << 1)
		} else {
			alphaTo[i] = alphaTo[i-1] << 1
		}
		indexOf[alphaTo[i]] = i % n
	}
	indexOf[0] = -1 // sentinel: log of zero is undefined

	return &Field{M: m, N: n, AlphaTo: alphaTo, IndexOf: indexOf}, nil
}

// Mul multiplies two field elements via the log tables.
func (f *Field) Mul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return f.AlphaTo[(f.IndexOf[a]+f.IndexOf[b])%f.N]
}

// Div divides a by b. Division by zero is a caller contract violation.
func (f *Field) Div(a, b int) int {
	if b == 0 {
		panic("gf: division by zero")
	}
	if a == 0 {
		return 0
	}
	diff := f.IndexOf[a] - f.IndexOf[b]
	if diff < 0 {
		diff += f.N
	}
	return f.AlphaTo[diff]
}

// Pow returns alpha^e, e taken mod N.
func (f *Field) Pow(e int) int {
	e %= f.N
	if e < 0 {
		e += f.N
	}
	return f.AlphaTo[e]
}

// Log returns index_of[a]; callers must not pass a==0.
func (f *Field) Log(a int) int {
	return f.IndexOf[a]
}
