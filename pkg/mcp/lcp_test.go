package mcp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spicecore/pkg/matrix"
	"spicecore/pkg/mcp"
)

// buildDiodeMatrix models a 1-ohm resistor and a 1A current source into
// node 1, stamped but not yet solved. The tests pair it with an
// ideal-diode-shaped complementary row (Ron=1, Vf=0) from node 1 to ground.
func buildDiodeMatrix(t *testing.T) *matrix.CircuitMatrix {
	t.Helper()
	m, err := matrix.NewMatrix(1)
	require.NoError(t, err)
	m.AddElement(1, 1, 1.0)
	m.AddRHS(1, 1.0)
	return m
}

func TestFormulateAndSolveSingleDiode(t *testing.T) {
	m := buildDiodeMatrix(t)
	rows := []mcp.Row{{NodeA: 1, NodeB: 0, D: 1.0, Constant: 0}}

	problem, err := mcp.Formulate(m, rows)
	require.NoError(t, err)

	z, _, err := mcp.Solve(problem, 0)
	require.NoError(t, err)
	require.Len(t, z, 1)
	assert.InDelta(t, 0.5, z[0], 1e-9)
}

func TestFormulateEmptyRowsReturnsEmptyProblem(t *testing.T) {
	m := buildDiodeMatrix(t)

	problem, err := mcp.Formulate(m, nil)
	require.NoError(t, err)

	z, _, err := mcp.Solve(problem, 0)
	require.NoError(t, err)
	assert.Nil(t, z)
}

func TestFormulateResolvedCurrentMatchesDirectSolve(t *testing.T) {
	m := buildDiodeMatrix(t)
	rows := []mcp.Row{{NodeA: 1, NodeB: 0, D: 1.0, Constant: 0}}

	problem, err := mcp.Formulate(m, rows)
	require.NoError(t, err)
	z, _, err := mcp.Solve(problem, 0)
	require.NoError(t, err)

	// Re-stamp with the resolved complementary current fixed in, matching
	// IdealDiode.Stamp's sign convention, and confirm the node voltage
	// this implies.
	m2 := buildDiodeMatrix(t)
	m2.AddRHS(1, -z[0])
	require.NoError(t, m2.Solve())
	assert.InDelta(t, 0.5, m2.Solution()[1], 1e-9)
}
