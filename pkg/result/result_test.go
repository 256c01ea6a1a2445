package result_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"spicecore/pkg/result"
)

func TestAppendTracksStats(t *testing.T) {
	r := result.NewTransient([]string{"1", "2"}, []string{"V1"}, []string{"C1"})

	r.Append(result.Point{Time: 1e-3, NodeVoltages: []float64{1, 2}, BranchCurrents: []float64{0.1}, StateVariables: []float64{1}}, 1e-3)
	r.Append(result.Point{Time: 2.5e-3, NodeVoltages: []float64{1.1, 2.1}, BranchCurrents: []float64{0.2}, StateVariables: []float64{1.1}}, 1.5e-3)

	assert.Equal(t, 2, r.Stats.AcceptedSteps)
	assert.InDelta(t, 2.5e-3, r.Stats.FinalTime, 1e-12)
	assert.InDelta(t, 1e-3, r.Stats.MinStep, 1e-12)
	assert.InDelta(t, 1.5e-3, r.Stats.MaxStep, 1e-12)
}

func TestNodeVoltageAndBranchCurrentLookup(t *testing.T) {
	r := result.NewTransient([]string{"1", "2"}, []string{"V1"}, nil)
	r.Append(result.Point{Time: 0, NodeVoltages: []float64{5, 2}, BranchCurrents: []float64{0.5}}, 1e-3)
	r.Append(result.Point{Time: 1e-3, NodeVoltages: []float64{5, 3}, BranchCurrents: []float64{0.4}}, 1e-3)

	assert.Equal(t, []float64{2, 3}, r.NodeVoltage("2"))
	assert.Equal(t, []float64{0.5, 0.4}, r.BranchCurrent("V1"))
	assert.Nil(t, r.NodeVoltage("missing"))
	assert.Nil(t, r.BranchCurrent("missing"))
	assert.Equal(t, []float64{0, 1e-3}, r.Times())
}
