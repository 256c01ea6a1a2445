package element

import (
	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
)

// IdealDiode is the ideal (piecewise-linear) diode: off, it is an open
// circuit; on, it is a small series resistance Ron. It is resolved every
// step through the MCP/LCP core rather than through Newton iteration on
// an exponential junction.
type IdealDiode struct {
	Base
	Ron float64 // on-state series resistance, > 0
	Vf  float64 // forward voltage offset

	current float64 // last complementary current the LCP solve assigned
	on      bool    // observational latch only, never read back into the solve
}

// NewIdealDiode builds an ideal diode conducting from anode to cathode.
// Ron must be finite and > 0.
func NewIdealDiode(name, anode, cathode string, ron, vf float64) (*IdealDiode, error) {
	if ron <= 0 {
		return nil, simerr.Newf(simerr.KindBadNetlist, "diode %s: Ron must be > 0, got %g", name, ron)
	}
	return &IdealDiode{
		Base: Base{ElemName: name, ElemKind: "D", NodeNames: []string{anode, cathode}},
		Ron:  ron,
		Vf:   vf,
	}, nil
}

func (d *IdealDiode) InitTransient() {
	d.current = 0
	d.on = false
}

func (d *IdealDiode) UpdateCompanion(h float64) {}

// ComplementarityRow returns this element's row of the MCP formulation
//: w = Ron*z + (Vf - (Va-Vb)), z = branch current >= 0,
// w = the margin by which Vf + Ron*z exceeds the terminal voltage >= 0,
// complementary to z.
func (d *IdealDiode) ComplementarityRow() (nodeA, nodeB int, coeff, constant float64) {
	return d.NodeRows[0], d.NodeRows[1], d.Ron, d.Vf
}

func (d *IdealDiode) SetComplementaryCurrent(i float64) {
	d.current = i
	d.on = i > 0
}

// On reports the diode's latched conduction state from the last solved
// step, observational only.
func (d *IdealDiode) On() bool { return d.on }

// SwitchesDuringRun marks the diode as a Switching element: its
// resistance toggles between Ron and open across a run.
func (d *IdealDiode) SwitchesDuringRun() bool { return true }

// Stamp deposits the fixed linear contribution of this step's resolved
// branch current as a current source between the terminals, so that a
// plain re-assembly (e.g. for history bookkeeping or a subsequent
// non-MCP pass) sees a consistent operating point.
func (d *IdealDiode) Stamp(target matrix.StampTarget, ctx *StepContext) error {
	n1, n2 := d.NodeRows[0], d.NodeRows[1]
	target.AddRHS(n1, -d.current)
	target.AddRHS(n2, d.current)
	return nil
}

func (d *IdealDiode) UpdateHistory(solution []float64, h float64) {}
