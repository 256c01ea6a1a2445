package circuit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spicecore/pkg/circuit"
	"spicecore/pkg/element"
)

func buildRCCircuit(t *testing.T) *circuit.Circuit {
	t.Helper()
	ckt := circuit.New("rc")

	src, err := element.NewVoltageSource("V1", "1", "0", element.Constant(5))
	require.NoError(t, err)
	r, err := element.NewResistor("R1", "1", "2", 1e3)
	require.NoError(t, err)
	c, err := element.NewCapacitor("C1", "2", "0", 1e-6, 0)
	require.NoError(t, err)

	ckt.Add(src)
	ckt.Add(r)
	ckt.Add(c)
	return ckt
}

func TestPreprocessAssignsNodesAndBranches(t *testing.T) {
	ckt := buildRCCircuit(t)
	require.NoError(t, ckt.Preprocess())

	assert.Equal(t, 2, ckt.NumNodes())
	assert.Equal(t, 3, ckt.Size()) // 2 nodes + 1 voltage-source branch
	assert.NotNil(t, ckt.Matrix)
	assert.Len(t, ckt.Reactives(), 1)
	assert.Len(t, ckt.BranchNames(), 1)
	assert.Contains(t, ckt.BranchNames(), "V1")
}

func TestPreprocessRejectsEmptyCircuit(t *testing.T) {
	ckt := circuit.New("empty")
	assert.Error(t, ckt.Preprocess())
}

func TestNodeRowIsReadOnly(t *testing.T) {
	ckt := buildRCCircuit(t)
	require.NoError(t, ckt.Preprocess())

	row := ckt.NodeRow("1")
	assert.Greater(t, row, 0)
	assert.Equal(t, 0, ckt.NodeRow("0"))
	assert.Equal(t, 0, ckt.NodeRow("nonexistent"))
	// Calling it again must not allocate a new node.
	assert.Equal(t, row, ckt.NodeRow("1"))
	assert.Equal(t, 2, ckt.NumNodes())
}

func TestAddTransformerRegistersCoupling(t *testing.T) {
	ckt := circuit.New("xfmr")
	tr, err := element.NewTransformer("T1", []element.Winding{
		{NodeA: "1", NodeB: "0", L: 1e-3},
		{NodeA: "2", NodeB: "0", L: 1e-3},
	}, 0.95)
	require.NoError(t, err)
	require.NoError(t, ckt.AddTransformer(tr))

	r, err := element.NewResistor("R1", "1", "0", 1e3)
	require.NoError(t, err)
	ckt.Add(r)

	require.NoError(t, ckt.Preprocess())
	assert.Equal(t, 1, ckt.Coupling().Len())
	assert.Len(t, ckt.Reactives(), 2)
}

func TestBindCurrentControlResolvesControllingBranch(t *testing.T) {
	ckt := circuit.New("cccs")
	vsrc, err := element.NewVoltageSource("V1", "1", "0", element.Constant(1))
	require.NoError(t, err)
	cccs, err := element.NewCCCS("F1", "2", "0", "V1", 2.0)
	require.NoError(t, err)
	r, err := element.NewResistor("R1", "2", "0", 1e3)
	require.NoError(t, err)

	ckt.Add(vsrc)
	ckt.Add(cccs)
	ckt.Add(r)
	ckt.BindCurrentControl("V1", cccs.BindControl)

	require.NoError(t, ckt.Preprocess())

	// Stamping F1 must not panic now that its controlling branch is bound.
	ctx := &element.StepContext{Mode: element.Transient}
	assert.NotPanics(t, func() {
		require.NoError(t, cccs.Stamp(ckt.Matrix, ctx))
	})
}
