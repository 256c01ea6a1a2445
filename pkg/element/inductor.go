package element

import (
	"math"

	"spicecore/pkg/integrate"
	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
)

// Inductor requires an auxiliary current row and implements the
// variable-step BDF2 companion model:
//
//	V_a - V_b - R_eq*I_n - V_eq = 0
//	R_eq = L*alpha + Rseries
//	V_eq = -L*(beta*I_n-1 + gamma*I_n-2)
//
// Mutual-inductance cross-terms are NOT stamped here: an inductor never
// holds references to other inductors, so the cross-terms live in
// pkg/coupling's Manager, which stamps them as a separate pass using only
// this inductor's exported accessors
// (Inductance/PreviousCurrent/PrevPrevCurrent/BranchIndex).
type Inductor struct {
	Base
	L  float64
	Rs float64 // series resistance, >= 0
	IC float64 // initial current

	branchIdx     int
	iPrev, iPrev2 float64
	hPrev         float64
	stepIndex     int
	req, veq      float64
}

// NewInductor builds an inductor between nodeA and nodeB. L must be
// finite and > 0; Rs must be >= 0.
func NewInductor(name, nodeA, nodeB string, l, rs, ic float64) (*Inductor, error) {
	if l <= 0 {
		return nil, simerr.Newf(simerr.KindBadNetlist, "inductor %s: L must be > 0, got %g", name, l)
	}
	if rs < 0 {
		return nil, simerr.Newf(simerr.KindBadNetlist, "inductor %s: series R must be >= 0, got %g", name, rs)
	}
	return &Inductor{
		Base: Base{ElemName: name, ElemKind: "L", NodeNames: []string{nodeA, nodeB}},
		L:    l,
		Rs:   rs,
		IC:   ic,
	}, nil
}

func (l *Inductor) NeedsCurrentVariable() bool { return true }
func (l *Inductor) BranchIndex() int           { return l.branchIdx }
func (l *Inductor) SetBranchIndex(idx int)     { l.branchIdx = idx }

func (l *Inductor) StateKind() StateKind    { return StateCurrent }
func (l *Inductor) StateParameter() float64 { return l.L }
func (l *Inductor) InitialState() float64   { return l.IC }

// Inductance and PreviousCurrent/PrevPrevCurrent satisfy pkg/coupling's
// accessor interface, the only channel through which cross-inductor
// information flows.
func (l *Inductor) Inductance() float64      { return l.L }
func (l *Inductor) PreviousCurrent() float64 { return l.iPrev }
func (l *Inductor) PrevPrevCurrent() float64 { return l.iPrev2 }

func (l *Inductor) InitTransient() {
	l.iPrev, l.iPrev2 = l.IC, l.IC
	l.hPrev = 0
	l.stepIndex = 0
}

func (l *Inductor) UpdateCompanion(h float64) {
	coeffs := integrate.Coeffs(h, l.hPrev, l.stepIndex >= 2)
	l.req = l.L*coeffs.Alpha + l.Rs
	l.veq = -l.L * (coeffs.Beta*l.iPrev + coeffs.Gamma*l.iPrev2)
}

func (l *Inductor) Stamp(target matrix.StampTarget, ctx *StepContext) error {
	n1, n2 := l.NodeRows[0], l.NodeRows[1]
	b := l.branchIdx

	target.AddElement(n1, b, 1)
	target.AddElement(n2, b, -1)
	target.AddElement(b, n1, 1)
	target.AddElement(b, n2, -1)

	switch ctx.Mode {
	case OperatingPoint:
		// DC: inductor is a short. R_eq -> 0, no history term.
		target.AddElement(b, b, 0)
	default:
		target.AddElement(b, b, -l.req)
		target.AddRHS(b, l.veq)
	}
	return nil
}

func (l *Inductor) UpdateHistory(solution []float64, h float64) {
	l.iPrev2 = l.iPrev
	l.iPrev = solution[l.branchIdx]
	l.hPrev = h
	l.stepIndex++
}

// SolvedState extracts the branch current from a raw solution vector,
// without committing it to history.
func (l *Inductor) SolvedState(solution []float64) float64 { return solution[l.branchIdx] }

// EstimateLTE compares actual against a linear extrapolation of the two
// prior history points.
func (l *Inductor) EstimateLTE(h float64, actual float64) float64 {
	if l.stepIndex < 2 || l.hPrev <= 0 {
		return 0
	}
	predicted := l.iPrev + (h/l.hPrev)*(l.iPrev-l.iPrev2)
	scale := math.Max(math.Abs(actual), 1e-9)
	return math.Abs(actual-predicted) / scale
}
