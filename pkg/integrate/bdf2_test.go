package integrate_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"spicecore/pkg/integrate"
)

func TestCoeffsFirstStepIsBackwardEuler(t *testing.T) {
	c := integrate.Coeffs(0.1, 0, false)
	assert.InDelta(t, 10.0, c.Alpha, 1e-9)
	assert.InDelta(t, -10.0, c.Beta, 1e-9)
	assert.Equal(t, 0.0, c.Gamma)
}

func TestCoeffsSumIsZero(t *testing.T) {
	steps := []struct{ hn, hPrev float64 }{
		{0.1, 0.1},
		{0.1, 0.05},
		{0.05, 0.1},
		{1e-6, 1e-3},
		{1e-3, 1e-6},
	}
	for _, s := range steps {
		c := integrate.Coeffs(s.hn, s.hPrev, true)
		assert.InDelta(t, 0.0, c.Sum(), 1e-6, "hn=%g hPrev=%g", s.hn, s.hPrev)
	}
}

func TestCoeffsConstantStepMatchesFixedBDF2(t *testing.T) {
	// With hn == hPrev, the classic fixed-step BDF2 coefficients
	// (3/2h, -2/h, 1/2h) must fall out of the variable-step formula.
	h := 0.2
	c := integrate.Coeffs(h, h, true)
	assert.InDelta(t, 1.5/h, c.Alpha, 1e-9)
	assert.InDelta(t, -2.0/h, c.Beta, 1e-9)
	assert.InDelta(t, 0.5/h, c.Gamma, 1e-9)
}

func TestCoeffsDegenerateStepDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		c := integrate.Coeffs(0, 0, true)
		assert.False(t, math.IsNaN(c.Alpha))
		assert.False(t, math.IsInf(c.Alpha, 0))
	})
}

func TestCoeffsMissingPrevStepFallsBackToEqualSpacing(t *testing.T) {
	h := 0.1
	withZero := integrate.Coeffs(h, 0, true)
	equalSpaced := integrate.Coeffs(h, h, true)
	assert.InDelta(t, equalSpaced.Alpha, withZero.Alpha, 1e-9)
	assert.InDelta(t, equalSpaced.Beta, withZero.Beta, 1e-9)
	assert.InDelta(t, equalSpaced.Gamma, withZero.Gamma, 1e-9)
}
