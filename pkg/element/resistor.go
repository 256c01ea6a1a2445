package element

import (
	"math"

	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
)

// Resistor contributes G=1/R symmetrically to the conductance block. It
// carries no history and no auxiliary variable.
type Resistor struct {
	Base
	R float64
}

// NewResistor builds a resistor between nodeA and nodeB. R must be finite
// and > 0.
func NewResistor(name, nodeA, nodeB string, r float64) (*Resistor, error) {
	if r <= 0 || math.IsInf(r, 0) || math.IsNaN(r) {
		return nil, simerr.Newf(simerr.KindBadNetlist, "resistor %s: R must be finite and > 0, got %g", name, r)
	}
	return &Resistor{
		Base: Base{ElemName: name, ElemKind: "R", NodeNames: []string{nodeA, nodeB}},
		R:    r,
	}, nil
}

func (r *Resistor) InitTransient()                         {}
func (r *Resistor) UpdateCompanion(h float64)               {}
func (r *Resistor) UpdateHistory(sol []float64, h float64) {}

func (r *Resistor) Stamp(target matrix.StampTarget, ctx *StepContext) error {
	n1, n2 := r.NodeRows[0], r.NodeRows[1]
	g := 1.0 / r.R

	target.AddElement(n1, n1, g)
	target.AddElement(n1, n2, -g)
	target.AddElement(n2, n1, -g)
	target.AddElement(n2, n2, g)
	return nil
}
