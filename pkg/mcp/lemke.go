package mcp

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"spicecore/pkg/simerr"
)

const (
	lemkePivotEps = 1e-12

	// defaultMaxIters is used when the caller supplies maxIters <= 0.
	defaultMaxIters = 1000
)

// lemke solves the LCP w = M*z + q, w,z >= 0, z^T*w = 0 via Lemke's
// almost-complementary pivoting algorithm with a covering
// vector of ones and lexicographic ratio-test tie-breaking to avoid
// cycling on degenerate tableaus. maxIters caps the pivot count (<=0
// selects defaultMaxIters); it returns the number of pivots actually
// performed alongside the resolved z.
//
// Tableau layout, n = len(q): columns [0..n) are the w-basis (identity at
// start), [n..2n) are the z-basis (-M), column 2n is -d for the covering
// vector d (all ones), column 2n+1 is the RHS (q), so each row reads
// w - M*z - d*z0 = q. Row i's basic variable index
// is tracked in basis[i]; indices [0,n) name w_i, [n,2n) name z_{i-n},
// and 2n names the artificial variable z0.
func lemke(M *mat.Dense, q *mat.VecDense, maxIters int) ([]float64, int, error) {
	n, _ := M.Dims()
	if n == 0 {
		return nil, 0, nil
	}
	if maxIters <= 0 {
		maxIters = defaultMaxIters
	}
	cols := 2*n + 2
	t := make([][]float64, n)
	for i := range t {
		t[i] = make([]float64, cols)
		t[i][i] = 1 // w-basis identity
		for j := 0; j < n; j++ {
			t[i][n+j] = -M.At(i, j)
		}
		t[i][2*n] = -1 // -d, covering vector d of all ones
		t[i][2*n+1] = q.AtVec(i)
	}
	z0Col := 2 * n
	rhsCol := 2*n + 1

	basis := make([]int, n)
	for i := range basis {
		basis[i] = i // w_i
	}

	// Trivial solution: z = 0 already satisfies complementarity.
	allNonneg := true
	for i := 0; i < n; i++ {
		if t[i][rhsCol] < -lemkePivotEps {
			allNonneg = false
			break
		}
	}
	if allNonneg {
		return make([]float64, n), 0, nil
	}

	pivot := func(r, c int) {
		piv := t[r][c]
		row := t[r]
		for j := 0; j < cols; j++ {
			row[j] /= piv
		}
		for i := 0; i < n; i++ {
			if i == r {
				continue
			}
			factor := t[i][c]
			if factor == 0 {
				continue
			}
			ri, rr := t[i], row
			for j := 0; j < cols; j++ {
				ri[j] -= factor * rr[j]
			}
		}
	}

	// ratioTest finds the row that should leave when `enter` becomes
	// basic, breaking ties lexicographically using columns 0..n-1 (the
	// evolving w-basis columns) to guarantee a unique, cycle-free choice.
	ratioTest := func(enter int) int {
		best := -1
		for i := 0; i < n; i++ {
			if t[i][enter] > lemkePivotEps {
				if best == -1 {
					best = i
					continue
				}
				cmp := compareRatioRows(t, best, i, enter, rhsCol, n)
				if cmp > 0 {
					best = i
				}
			}
		}
		return best
	}

	// Initial leaving row: most negative RHS; z0 enters.
	leaveRow := 0
	most := t[0][rhsCol]
	for i := 1; i < n; i++ {
		if t[i][rhsCol] < most {
			most = t[i][rhsCol]
			leaveRow = i
		}
	}
	leavingVar := basis[leaveRow]
	pivot(leaveRow, z0Col)
	basis[leaveRow] = z0Col

	for iter := 0; iter < maxIters; iter++ {
		var enter int
		if leavingVar < n {
			enter = n + leavingVar // w_k left -> z_k enters
		} else if leavingVar < 2*n {
			enter = leavingVar - n // z_k left -> w_k enters
		} else {
			// z0 left the basis: complementary solution found.
			return extractZ(t, basis, n, rhsCol), iter, nil
		}

		row := ratioTest(enter)
		if row == -1 {
			return nil, iter + 1, simerr.New(simerr.KindLcpFailure, "lemke: secondary ray, no complementary solution")
		}
		leavingVar = basis[row]
		pivot(row, enter)
		basis[row] = enter

		if leavingVar == z0Col {
			return extractZ(t, basis, n, rhsCol), iter + 1, nil
		}
	}
	return nil, maxIters, simerr.New(simerr.KindLcpFailure, "lemke: exceeded maximum pivot count")
}

// compareRatioRows returns <0 if row a's ratio vector is lexicographically
// smaller than row b's (a should be preferred), >0 if larger, 0 if equal.
func compareRatioRows(t [][]float64, a, b, enter, rhsCol, n int) int {
	ra, rb := t[a][enter], t[b][enter]
	for j := -1; j < n; j++ {
		var va, vb float64
		if j == -1 {
			va, vb = t[a][rhsCol]/ra, t[b][rhsCol]/rb
		} else {
			va, vb = t[a][j]/ra, t[b][j]/rb
		}
		if math.Abs(va-vb) > lemkePivotEps {
			if va < vb {
				return -1
			}
			return 1
		}
	}
	return 0
}

func extractZ(t [][]float64, basis []int, n, rhsCol int) []float64 {
	z := make([]float64, n)
	for i, v := range basis {
		if v >= n && v < 2*n {
			z[v-n] = t[i][rhsCol]
		}
	}
	return z
}
