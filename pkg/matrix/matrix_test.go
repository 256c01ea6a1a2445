package matrix_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
)

func TestSolveSimpleVoltageDivider(t *testing.T) {
	// Single-node KCL: two 1-ohm resistors to ground (G=2) with a 1A
	// injection solve to V = 0.5.
	m, err := matrix.NewMatrix(1)
	require.NoError(t, err)

	m.AddElement(1, 1, 2.0) // 1/R1 + 1/R2
	m.AddRHS(1, 1.0)

	require.NoError(t, m.Solve())
	assert.InDelta(t, 0.5, m.Solution()[1], 1e-9)
}

func TestGroundIndicesAreSkipped(t *testing.T) {
	m, err := matrix.NewMatrix(2)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.AddElement(0, 1, 5)
		m.AddElement(1, 0, 5)
		m.AddElement(-1, 1, 5)
		m.AddRHS(0, 5)
	})
}

func TestSingularMatrixIsClassified(t *testing.T) {
	m, err := matrix.NewMatrix(2)
	require.NoError(t, err)

	// Row 2 is entirely zero: singular.
	m.AddElement(1, 1, 1.0)
	m.AddRHS(1, 1.0)

	err = m.Solve()
	require.Error(t, err)
	assert.Equal(t, simerr.KindSingularMatrix, simerr.Classify(err))
}

func TestClearResetsMatrixAndRHS(t *testing.T) {
	m, err := matrix.NewMatrix(1)
	require.NoError(t, err)

	m.AddElement(1, 1, 2.0)
	m.AddRHS(1, 1.0)
	require.NoError(t, m.Solve())
	assert.InDelta(t, 0.5, m.Solution()[1], 1e-9)

	m.Clear()
	m.AddElement(1, 1, 4.0)
	m.AddRHS(1, 1.0)
	require.NoError(t, m.Solve())
	assert.InDelta(t, 0.25, m.Solution()[1], 1e-9)
}

func TestClearRHSLeavesMatrixIntact(t *testing.T) {
	m, err := matrix.NewMatrix(1)
	require.NoError(t, err)

	m.AddElement(1, 1, 2.0)
	m.AddRHS(1, 1.0)
	require.NoError(t, m.Solve())

	m.ClearRHS()
	m.AddRHS(1, 4.0)
	require.NoError(t, m.ResolveRHS())
	assert.InDelta(t, 2.0, m.Solution()[1], 1e-9)
}

func TestSolveColumnsReusesFactorization(t *testing.T) {
	m, err := matrix.NewMatrix(1)
	require.NoError(t, err)

	m.AddElement(1, 1, 2.0)
	m.AddRHS(1, 1.0)
	require.NoError(t, m.Solve())

	cols, err := m.SolveColumns([][]float64{{0, 1}, {0, 2}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, cols[0][1], 1e-9)
	assert.InDelta(t, 1.0, cols[1][1], 1e-9)
}

func TestLoadGminAddsToDiagonal(t *testing.T) {
	m, err := matrix.NewMatrix(1)
	require.NoError(t, err)

	m.AddElement(1, 1, 0) // all-zero row, singular without gmin
	m.AddRHS(1, 1.0)
	m.LoadGmin(1e-2)

	require.NoError(t, m.Solve())
	assert.InDelta(t, 100.0, m.Solution()[1], 1e-6)
}
