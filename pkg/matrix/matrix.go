// Package matrix wraps a sparse LU factorization into the dense-indexed
// accumulate/solve API the element and engine layers stamp into.
package matrix

import (
	"math"

	"github.com/edp1096/sparse"
	"github.com/pkg/errors"

	"spicecore/pkg/simerr"
)

// CircuitMatrix is the (N+M)x(N+M) MNA matrix A and right-hand side b:
// rows/cols 1..Size are 1-indexed, index 0 is the never-assembled ground
// row.
type CircuitMatrix struct {
	Size     int
	matrix   *sparse.Matrix
	rhs      []float64
	solution []float64
	config   *sparse.Configuration
}

// NewMatrix allocates a zeroed Size x Size MNA system.
func NewMatrix(size int) (*CircuitMatrix, error) {
	config := &sparse.Configuration{
		Real:           true,
		Expandable:     true,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, errors.Wrap(err, "creating sparse matrix")
	}

	return &CircuitMatrix{
		Size:     size,
		matrix:   mat,
		rhs:      make([]float64, size+1),
		solution: make([]float64, size+1),
		config:   config,
	}, nil
}

// AddElement deposits value at A[i][j]. Per invariant 5, indices <= 0
// (ground) are silently skipped rather than stamped.
func (m *CircuitMatrix) AddElement(i, j int, value float64) {
	if i <= 0 || j <= 0 || i > m.Size || j > m.Size {
		return
	}
	m.matrix.GetElement(int64(i), int64(j)).Real += value
}

// AddRHS deposits value at b[i]. Ground (i <= 0) is skipped.
func (m *CircuitMatrix) AddRHS(i int, value float64) {
	if i <= 0 || i > m.Size {
		return
	}
	m.rhs[i] += value
}

// LoadGmin adds gmin to every diagonal entry, used during Newton-Raphson
// gmin-stepping to assist convergence on the initial operating point.
func (m *CircuitMatrix) LoadGmin(gmin float64) {
	for i := 1; i <= m.Size; i++ {
		if diag := m.matrix.Diags[i]; diag != nil {
			diag.Real += gmin
		}
	}
}

// Clear zeroes A and b ahead of the next stamp phase.
func (m *CircuitMatrix) Clear() {
	m.matrix.Clear()
	for i := range m.rhs {
		m.rhs[i] = 0
	}
}

// Solve factors A and solves Ax=b, leaving the result in Solution(). A
// singular matrix is reported as simerr.KindSingularMatrix so the caller
// can apply the recoverable shrink-and-retry policy.
func (m *CircuitMatrix) Solve() error {
	if err := m.matrix.Factor(); err != nil {
		return simerr.Wrap(simerr.KindSingularMatrix, err, "matrix factorization failed")
	}

	solution, err := m.matrix.Solve(m.rhs)
	if err != nil {
		return simerr.Wrap(simerr.KindSingularMatrix, err, "matrix solve failed")
	}
	m.solution = solution

	for _, v := range m.solution {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return simerr.New(simerr.KindNonFinite, "solution contains non-finite entry")
		}
	}
	return nil
}

// ClearRHS zeroes only the right-hand side, leaving A and its
// factorization untouched. Used by the state-space engine (pkg/statespace),
// which factors G once and rebuilds only the state-dependent RHS every step.
func (m *CircuitMatrix) ClearRHS() {
	for i := range m.rhs {
		m.rhs[i] = 0
	}
}

// ResolveRHS re-solves the already-factored system against the current RHS
// without refactoring A, for engines that stamp a constant matrix once and
// then only update b per step.
func (m *CircuitMatrix) ResolveRHS() error {
	sol, err := m.matrix.Solve(m.rhs)
	if err != nil {
		return simerr.Wrap(simerr.KindSingularMatrix, err, "matrix resolve failed")
	}
	for _, v := range sol {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return simerr.New(simerr.KindNonFinite, "solution contains non-finite entry")
		}
	}
	m.solution = sol
	return nil
}

// SolveColumns re-solves the already-factored system against additional
// right-hand sides, one per column, reusing the factorization from the
// most recent Solve. Used by pkg/mcp to compute A_ff^{-1}*B one column at
// a time when forming the LCP Schur complement.
func (m *CircuitMatrix) SolveColumns(columns [][]float64) ([][]float64, error) {
	out := make([][]float64, len(columns))
	for idx, col := range columns {
		rhs := make([]float64, m.Size+1)
		copy(rhs, col)
		sol, err := m.matrix.Solve(rhs)
		if err != nil {
			return nil, simerr.Wrap(simerr.KindSingularMatrix, err, "schur column solve failed")
		}
		out[idx] = sol
	}
	return out, nil
}

// RHS returns the raw 1-indexed right-hand side vector.
func (m *CircuitMatrix) RHS() []float64 { return m.rhs }

// Solution returns the raw 1-indexed solution vector (node voltages then
// auxiliary currents).
func (m *CircuitMatrix) Solution() []float64 { return m.solution }

// Destroy releases the underlying sparse factorization.
func (m *CircuitMatrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
	}
}
