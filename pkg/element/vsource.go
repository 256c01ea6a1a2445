package element

import (
	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
)

// Waveform is a time-domain source function. Parsing a waveform description
// (PULSE/SIN/PWL and similar) is out of this core's scope; the
// core only ever consumes the resulting callable.
type Waveform func(t float64) float64

// Constant returns a Waveform that ignores t and always returns v, for DC
// sources and tests.
func Constant(v float64) Waveform { return func(float64) float64 { return v } }

// VoltageSource is an ideal independent voltage source. It needs an
// auxiliary current row and contributes no history of
// its own.
type VoltageSource struct {
	Base
	Wave Waveform

	branchIdx int
}

// NewVoltageSource builds a voltage source between nodeA (+) and nodeB (-)
// driven by wave. wave must be non-nil.
func NewVoltageSource(name, nodeA, nodeB string, wave Waveform) (*VoltageSource, error) {
	if wave == nil {
		return nil, simerr.Newf(simerr.KindBadNetlist, "voltage source %s: waveform must not be nil", name)
	}
	return &VoltageSource{
		Base: Base{ElemName: name, ElemKind: "V", NodeNames: []string{nodeA, nodeB}},
		Wave: wave,
	}, nil
}

func (v *VoltageSource) NeedsCurrentVariable() bool { return true }
func (v *VoltageSource) BranchIndex() int           { return v.branchIdx }
func (v *VoltageSource) SetBranchIndex(idx int)     { v.branchIdx = idx }

func (v *VoltageSource) InitTransient()                         {}
func (v *VoltageSource) UpdateCompanion(h float64)    {}
func (v *VoltageSource) UpdateHistory(sol []float64, h float64) {}

func (v *VoltageSource) Stamp(target matrix.StampTarget, ctx *StepContext) error {
	n1, n2 := v.NodeRows[0], v.NodeRows[1]
	b := v.branchIdx

	target.AddElement(n1, b, 1)
	target.AddElement(n2, b, -1)
	target.AddElement(b, n1, 1)
	target.AddElement(b, n2, -1)
	target.AddRHS(b, v.Wave(ctx.Time))
	return nil
}

// StampRHS deposits only the time-varying part of this source's
// contribution, for the state-space engine's per-step RHS
// rebuild against a G matrix factored once.
func (v *VoltageSource) StampRHS(target matrix.StampTarget, t float64) {
	target.AddRHS(v.branchIdx, v.Wave(t))
}

// CurrentSource is an ideal independent current source, injected directly
// into the RHS with no auxiliary variable.
type CurrentSource struct {
	Base
	Wave Waveform
}

// NewCurrentSource builds a current source flowing from nodeA to nodeB
// (positive current leaves nodeA) driven by wave. wave must be non-nil.
func NewCurrentSource(name, nodeA, nodeB string, wave Waveform) (*CurrentSource, error) {
	if wave == nil {
		return nil, simerr.Newf(simerr.KindBadNetlist, "current source %s: waveform must not be nil", name)
	}
	return &CurrentSource{
		Base: Base{ElemName: name, ElemKind: "I", NodeNames: []string{nodeA, nodeB}},
		Wave: wave,
	}, nil
}

func (i *CurrentSource) InitTransient()                         {}
func (i *CurrentSource) UpdateCompanion(h float64)    {}
func (i *CurrentSource) UpdateHistory(sol []float64, h float64) {}

func (i *CurrentSource) Stamp(target matrix.StampTarget, ctx *StepContext) error {
	n1, n2 := i.NodeRows[0], i.NodeRows[1]
	val := i.Wave(ctx.Time)

	target.AddRHS(n1, -val)
	target.AddRHS(n2, val)
	return nil
}

// StampRHS deposits only the time-varying part of this source's
// contribution.
func (i *CurrentSource) StampRHS(target matrix.StampTarget, t float64) {
	val := i.Wave(t)
	target.AddRHS(i.NodeRows[0], -val)
	target.AddRHS(i.NodeRows[1], val)
}
