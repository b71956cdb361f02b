package bch

import "nandctl/gf"

// buildGenerator constructs g(x) = lcm over i in {1,3,...,2t-1} of the
// minimal polynomial of alpha^i, per spec.md §4.1. Returned as coefficients
// LSB-first (g[0] is the constant term); the top nonzero index is deg(g).
func buildGenerator(field *gf.Field, t int) []int {
	n := field.N
	covered := make([]bool, n+1)
	g := []int{1} // the polynomial "1", LSB-first

	for i := 1; i <= 2*t-1; i += 2 {
		if covered[i] {
			continue
		}
		// Conjugate orbit of alpha^i: {i, 2i, 4i, ...} mod n.
		var cycle []int
		j := i
		for {
			cycle = append(cycle, j)
			covered[j] = true
			j = (j * 2) % n
			if j == i {
				break
			}
		}

		// Minimal polynomial: product over the orbit of (x + alpha^c).
		// Coefficients are field elements; addition is XOR (char 2), so
		// after closing the full orbit the coefficients collapse to {0,1}.
		minPoly := []int{1}
		for _, c := range cycle {
			root := field.Pow(c)
			minPoly = mulByLinear(minPoly, root, field)
		}

		g = mulGF2(g, minPoly)
	}
	return g
}

// mulByLinear multiplies poly (coefficients may be arbitrary field
// elements, LSB-first) by (x + root).
func mulByLinear(poly []int, root int, field *gf.Field) []int {
	out := make([]int, len(poly)+1)
	for i, c := range poly {
		out[i] ^= field.Mul(c, root)
		out[i+1] ^= c
	}
	return out
}

// mulGF2 multiplies two polynomials with coefficients restricted to {0,1}
// (i.e. over GF(2) itself), LSB-first.
func mulGF2(a, b []int) []int {
	out := make([]int, len(a)+len(b)-1)
	for i, ai := range a {
		if ai == 0 {
			continue
		}
		for j, bj := range b {
			out[i+j] ^= bj
		}
	}
	return out
}

// degree returns the index of the highest nonzero coefficient.
func degree(p []int) int {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] != 0 {
			return i
		}
	}
	return 0
}
