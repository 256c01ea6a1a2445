package statespace_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spicecore/pkg/circuit"
	"spicecore/pkg/element"
	"spicecore/pkg/simerr"
	"spicecore/pkg/statespace"
)

func TestNewRejectsCircuitWithMCPElement(t *testing.T) {
	ckt := circuit.New("diode")
	src, err := element.NewVoltageSource("V1", "1", "0", element.Constant(5))
	require.NoError(t, err)
	d, err := element.NewIdealDiode("D1", "1", "0", 10, 0.6)
	require.NoError(t, err)
	ckt.Add(src)
	ckt.Add(d)
	require.NoError(t, ckt.Preprocess())

	_, err = statespace.New(ckt, statespace.DefaultParams(1e-6))
	require.Error(t, err)
	assert.Equal(t, simerr.KindBadNetlist, simerr.Classify(err))
}

func TestNewRejectsCircuitWithIdealSwitch(t *testing.T) {
	ckt := circuit.New("switch")
	src, err := element.NewVoltageSource("V1", "1", "0", element.Constant(5))
	require.NoError(t, err)
	gate, err := element.NewVoltageSource("VG", "g", "0", element.Constant(3))
	require.NoError(t, err)
	s, err := element.NewIdealSwitch("S1", "1", "0", "g", "0", 1.0, 1e9, 2.5)
	require.NoError(t, err)
	ckt.Add(src)
	ckt.Add(gate)
	ckt.Add(s)
	require.NoError(t, ckt.Preprocess())

	_, err = statespace.New(ckt, statespace.DefaultParams(1e-6))
	require.Error(t, err)
	assert.Equal(t, simerr.KindBadNetlist, simerr.Classify(err))
}

func TestRunTransientDegenerateRangeReturnsOnePoint(t *testing.T) {
	ckt := circuit.New("rc")
	src, err := element.NewVoltageSource("V1", "in", "0", element.Constant(5))
	require.NoError(t, err)
	r, err := element.NewResistor("R1", "in", "out", 1e3)
	require.NoError(t, err)
	c, err := element.NewCapacitor("C1", "out", "0", 1e-6, 0)
	require.NoError(t, err)
	ckt.Add(src)
	ckt.Add(r)
	ckt.Add(c)
	require.NoError(t, ckt.Preprocess())

	eng, err := statespace.New(ckt, statespace.DefaultParams(1e-8))
	require.NoError(t, err)

	res, err := eng.RunTransient(1e-3, 1e-3)
	require.NoError(t, err)
	require.Len(t, res.Points, 1)
	assert.Equal(t, 1e-3, res.Points[0].Time)
}

func TestNewRejectsNonPositiveLargeAdmittance(t *testing.T) {
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
	require.NoError(t, ckt.Preprocess())

	params := statespace.DefaultParams(1e-6)
	params.LargeAdmittance = 0
	_, err = statespace.New(ckt, params)
	require.Error(t, err)
}

func TestRCChargeConvergesTowardSteadyState(t *testing.T) {
	ckt := circuit.New("rc")
	src, err := element.NewVoltageSource("V1", "in", "0", element.Constant(5))
	require.NoError(t, err)
	r, err := element.NewResistor("R1", "in", "out", 1e3)
	require.NoError(t, err)
	c, err := element.NewCapacitor("C1", "out", "0", 1e-6, 0)
	require.NoError(t, err)
	ckt.Add(src)
	ckt.Add(r)
	ckt.Add(c)
	require.NoError(t, ckt.Preprocess())

	eng, err := statespace.New(ckt, statespace.DefaultParams(1e-8))
	require.NoError(t, err)

	res, err := eng.RunTransient(0, 5e-3)
	require.NoError(t, err)

	out := res.NodeVoltage("out")
	require.NotEmpty(t, out)

	want := 5.0 * (1 - math.Exp(-5))
	assert.InDelta(t, want, out[len(out)-1], 0.05)

	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i], out[i-1]-1e-6, "forward-Euler RC charge must be non-decreasing at sample %d", i)
	}
}

func TestTransformerSecondaryIsDriven(t *testing.T) {
	ckt := circuit.New("xfmr")
	freq := 100e3
	wave := func(t float64) float64 { return 48 * math.Sin(2*math.Pi*freq*t) }
	src, err := element.NewVoltageSource("V1", "p1", "0", wave)
	require.NoError(t, err)
	tr, err := element.NewTransformer("T1", []element.Winding{
		{NodeA: "p1", NodeB: "0", L: 100e-6},
		{NodeA: "s1", NodeB: "0", L: 100e-6},
	}, 0.98)
	require.NoError(t, err)
	rload, err := element.NewResistor("RL", "s1", "0", 4.0)
	require.NoError(t, err)

	ckt.Add(src)
	require.NoError(t, ckt.AddTransformer(tr))
	ckt.Add(rload)
	require.NoError(t, ckt.Preprocess())

	period := 1.0 / freq
	eng, err := statespace.New(ckt, statespace.DefaultParams(period/2000))
	require.NoError(t, err)

	res, err := eng.RunTransient(0, 2*period)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Points)

	loadCurrent := res.NodeVoltage("s1")
	require.NotEmpty(t, loadCurrent)
	// Secondary must actually be driven: nonzero swing confirms the mutual
	// coupling injected real current into the loop.
	maxAbs := 0.0
	for _, v := range loadCurrent {
		if math.Abs(v) > maxAbs {
			maxAbs = math.Abs(v)
		}
	}
	assert.Greater(t, maxAbs, 0.1)
}
