package element

import (
	"math"

	"spicecore/pkg/integrate"
	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
)

// Capacitor holds up to two history points and implements the variable-step
// BDF2 companion model: G_eq = C*alpha in parallel with
// I_eq = -C*(beta*V_n-1 + gamma*V_n-2) injected between its nodes.
type Capacitor struct {
	Base
	C  float64
	IC float64 // initial voltage

	vPrev, vPrev2   float64
	hPrev           float64
	stepIndex       int
	geq, ieq        float64
}

// NewCapacitor builds a capacitor between nodeA and nodeB. C must be
// finite and > 0.
func NewCapacitor(name, nodeA, nodeB string, c, ic float64) (*Capacitor, error) {
	if c <= 0 {
		return nil, simerr.Newf(simerr.KindBadNetlist, "capacitor %s: C must be > 0, got %g", name, c)
	}
	return &Capacitor{
		Base: Base{ElemName: name, ElemKind: "C", NodeNames: []string{nodeA, nodeB}},
		C:    c,
		IC:   ic,
	}, nil
}

func (c *Capacitor) InitTransient() {
	c.vPrev, c.vPrev2 = c.IC, c.IC
	c.hPrev = 0
	c.stepIndex = 0
}

func (c *Capacitor) StateKind() StateKind   { return StateVoltage }
func (c *Capacitor) StateParameter() float64 { return c.C }
func (c *Capacitor) InitialState() float64   { return c.IC }

// UpdateCompanion computes this step's (G_eq, I_eq), falling back to
// backward Euler on the first step (stepIndex < 2 — gated on the
// element's own counter, never on absolute time).
func (c *Capacitor) UpdateCompanion(h float64) {
	coeffs := integrate.Coeffs(h, c.hPrev, c.stepIndex >= 2)
	c.geq = c.C * coeffs.Alpha
	c.ieq = -c.C * (coeffs.Beta*c.vPrev + coeffs.Gamma*c.vPrev2)
}

func (c *Capacitor) Stamp(target matrix.StampTarget, ctx *StepContext) error {
	n1, n2 := c.NodeRows[0], c.NodeRows[1]

	switch ctx.Mode {
	case OperatingPoint:
		gmin := ctx.Gmin
		if gmin <= 0 {
			gmin = 1e-12
		}
		target.AddElement(n1, n1, gmin)
		target.AddElement(n1, n2, -gmin)
		target.AddElement(n2, n1, -gmin)
		target.AddElement(n2, n2, gmin)
	default:
		target.AddElement(n1, n1, c.geq)
		target.AddElement(n1, n2, -c.geq)
		target.AddElement(n2, n1, -c.geq)
		target.AddElement(n2, n2, c.geq)

		// i_C = G_eq*Vn - I_eq, so I_eq enters the KCL row at n1 as an
		// injected current (and leaves at n2 with the opposite sign).
		target.AddRHS(n1, c.ieq)
		target.AddRHS(n2, -c.ieq)
	}
	return nil
}

// UpdateHistory rotates vPrev2 <- vPrev, vPrev <- this step's terminal
// voltage, and records h as hPrev for the next
// step's coefficient computation.
func (c *Capacitor) UpdateHistory(solution []float64, h float64) {
	v1, v2 := 0.0, 0.0
	if c.NodeRows[0] > 0 {
		v1 = solution[c.NodeRows[0]]
	}
	if c.NodeRows[1] > 0 {
		v2 = solution[c.NodeRows[1]]
	}

	c.vPrev2 = c.vPrev
	c.vPrev = v1 - v2
	c.hPrev = h
	c.stepIndex++
}

// Voltage returns the most recently committed terminal voltage.
func (c *Capacitor) Voltage() float64 { return c.vPrev }

// SolvedState extracts the terminal voltage difference from a raw
// solution vector, without committing it to history.
func (c *Capacitor) SolvedState(solution []float64) float64 {
	v1, v2 := 0.0, 0.0
	if c.NodeRows[0] > 0 {
		v1 = solution[c.NodeRows[0]]
	}
	if c.NodeRows[1] > 0 {
		v2 = solution[c.NodeRows[1]]
	}
	return v1 - v2
}

// EstimateLTE compares actual against a linear extrapolation of the two
// prior history points, the cheapest predictor a BDF2 corrector can be
// checked against.
func (c *Capacitor) EstimateLTE(h float64, actual float64) float64 {
	if c.stepIndex < 2 || c.hPrev <= 0 {
		return 0
	}
	predicted := c.vPrev + (h/c.hPrev)*(c.vPrev-c.vPrev2)
	scale := math.Max(math.Abs(actual), 1e-9)
	return math.Abs(actual-predicted) / scale
}
