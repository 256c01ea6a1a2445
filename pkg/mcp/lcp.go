// Package mcp implements the mixed/linear complementarity core of spec
// §4.4: w = M*z + q, w >= 0, z >= 0, z^T*w = 0, formed as the Schur
// complement of the non-complementary block of the MNA system and solved
// with Lemke's pivoting algorithm (pkg/mcp/lemke.go). Dense linear algebra
// here uses gonum/mat, grounded on soypat/godesim's NewtonRaphsonSolver
// use of gonum/mat for its per-step Jacobian solve.
package mcp

import (
	"gonum.org/v1/gonum/mat"

	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
)

// Row is one complementary element's contribution to the MCP formulation:
// the two MNA row indices its current couples into, the coefficient it
// places on its own complementary variable ("Ron"), and the constant term
// ("Vf").
type Row struct {
	NodeA, NodeB int
	D            float64
	Constant     float64
}

// Problem is the dense M*z+q tableau built by Formulate, ready for Solve.
type Problem struct {
	M *mat.Dense
	Q *mat.VecDense
}

// Formulate builds the MCP tableau by Schur-complementing the
// complementary rows out of the circuit matrix:
//
//	M = D - C * A_ff^-1 * B
//	q = d - C * A_ff^-1 * b_f
//
// target must already be fully stamped (every non-MCP element's Stamp
// called) but not yet Solve()'d; Formulate performs the factoring solve
// itself against the real RHS, then reuses that factorization for every
// complementary column via SolveColumns.
func Formulate(target *matrix.CircuitMatrix, rows []Row) (*Problem, error) {
	n := len(rows)
	if n == 0 {
		return &Problem{M: mat.NewDense(0, 0, nil), Q: mat.NewVecDense(0, nil)}, nil
	}

	size := target.Size

	// Factor A_ff against the real b_f0 first (every complementary current
	// held at 0), then reuse that factorization for each B_j column.
	if err := target.Solve(); err != nil {
		return nil, simerr.Wrap(simerr.KindLcpFailure, err, "mcp: Schur-complement factorization failed")
	}
	x0 := target.Solution() // A_ff^-1 * b_f0, the free solution with every z held at 0

	columns := make([][]float64, n)
	for k, r := range rows {
		col := make([]float64, size+1)
		if r.NodeA > 0 {
			col[r.NodeA] = -1
		}
		if r.NodeB > 0 {
			col[r.NodeB] = 1
		}
		columns[k] = col
	}

	solved, err := target.SolveColumns(columns)
	if err != nil {
		return nil, simerr.Wrap(simerr.KindLcpFailure, err, "mcp: Schur-complement column solve failed")
	}

	drop := func(x []float64, r Row) float64 {
		v := 0.0
		if r.NodeA > 0 {
			v += x[r.NodeA]
		}
		if r.NodeB > 0 {
			v -= x[r.NodeB]
		}
		return v
	}

	m := mat.NewDense(n, n, nil)
	q := mat.NewVecDense(n, nil)

	for i, ri := range rows {
		q.SetVec(i, ri.Constant-drop(x0, ri))
		for j := range rows {
			cPrime := drop(solved[j], ri) // e_i^T * A_ff^-1 * B_j
			mij := -cPrime
			if i == j {
				mij += ri.D
			}
			m.Set(i, j, mij)
		}
	}

	return &Problem{M: m, Q: q}, nil
}

// Solve runs Lemke's algorithm on the given problem and returns the
// resolved complementary variable z (e.g. each diode's branch current)
// plus the number of pivots it took. maxIters caps the pivot count
// (<=0 selects defaultMaxIters). The caller is responsible for
// rejecting/retrying the step at a smaller h if Solve fails.
func Solve(p *Problem, maxIters int) ([]float64, int, error) {
	if p.M.RawMatrix().Rows == 0 {
		return nil, 0, nil
	}
	return lemke(p.M, p.Q, maxIters)
}
