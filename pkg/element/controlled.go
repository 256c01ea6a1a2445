package element

import (
	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
)

// VCVS is a voltage-controlled voltage source: V(out) = gain * V(ctrl).
// Needs its own auxiliary current row like any voltage source.
type VCVS struct {
	Base
	Gain float64

	ctrlNodeNames [2]string
	ctrlRows      [2]int
	branchIdx     int
}

// NewVCVS builds a VCVS between (outA, outB), controlled by the voltage
// across (ctrlA, ctrlB), with the given gain.
func NewVCVS(name, outA, outB, ctrlA, ctrlB string, gain float64) (*VCVS, error) {
	return &VCVS{
		Base:          Base{ElemName: name, ElemKind: "E", NodeNames: []string{outA, outB}},
		Gain:          gain,
		ctrlNodeNames: [2]string{ctrlA, ctrlB},
	}, nil
}

// ControlNodes exposes the controlling terminal names so the preprocessor
// can resolve them to rows alongside the element's own terminals.
func (e *VCVS) ControlNodes() []string { return e.ctrlNodeNames[:] }

// SetControlRows is called by the preprocessor once control node rows are
// resolved (mirrors SetNodes for the element's own terminals).
func (e *VCVS) SetControlRows(rows []int) { e.ctrlRows[0], e.ctrlRows[1] = rows[0], rows[1] }

func (e *VCVS) NeedsCurrentVariable() bool { return true }
func (e *VCVS) BranchIndex() int           { return e.branchIdx }
func (e *VCVS) SetBranchIndex(idx int)     { e.branchIdx = idx }

func (e *VCVS) InitTransient()                      {}
func (e *VCVS) UpdateCompanion(h float64) {}
func (e *VCVS) UpdateHistory(sol []float64, h float64) {}

func (e *VCVS) Stamp(target matrix.StampTarget, ctx *StepContext) error {
	n1, n2 := e.NodeRows[0], e.NodeRows[1]
	c1, c2 := e.ctrlRows[0], e.ctrlRows[1]
	b := e.branchIdx

	target.AddElement(n1, b, 1)
	target.AddElement(n2, b, -1)
	target.AddElement(b, n1, 1)
	target.AddElement(b, n2, -1)
	target.AddElement(b, c1, -e.Gain)
	target.AddElement(b, c2, e.Gain)
	return nil
}

// VCCS is a voltage-controlled current source: I(out) = gain * V(ctrl).
// Needs no auxiliary variable; it only stamps into the conductance block.
type VCCS struct {
	Base
	Gain float64

	ctrlNodeNames [2]string
	ctrlRows      [2]int
}

func NewVCCS(name, outA, outB, ctrlA, ctrlB string, gain float64) (*VCCS, error) {
	return &VCCS{
		Base:          Base{ElemName: name, ElemKind: "G", NodeNames: []string{outA, outB}},
		Gain:          gain,
		ctrlNodeNames: [2]string{ctrlA, ctrlB},
	}, nil
}

func (e *VCCS) ControlNodes() []string    { return e.ctrlNodeNames[:] }
func (e *VCCS) SetControlRows(rows []int) { e.ctrlRows[0], e.ctrlRows[1] = rows[0], rows[1] }

func (e *VCCS) InitTransient()                         {}
func (e *VCCS) UpdateCompanion(h float64)     {}
func (e *VCCS) UpdateHistory(sol []float64, h float64) {}

func (e *VCCS) Stamp(target matrix.StampTarget, ctx *StepContext) error {
	n1, n2 := e.NodeRows[0], e.NodeRows[1]
	c1, c2 := e.ctrlRows[0], e.ctrlRows[1]

	target.AddElement(n1, c1, e.Gain)
	target.AddElement(n1, c2, -e.Gain)
	target.AddElement(n2, c1, -e.Gain)
	target.AddElement(n2, c2, e.Gain)
	return nil
}

// CCCS is a current-controlled current source: I(out) = gain * I(ctrl),
// where I(ctrl) is the current through a controlling voltage source (or
// any other CurrentVariable element, e.g. a zero-volt ammeter branch).
type CCCS struct {
	Base
	Gain        float64
	ctrlName    string
	ctrlBranch  CurrentVariable
}

func NewCCCS(name, outA, outB, ctrlSourceName string, gain float64) (*CCCS, error) {
	if ctrlSourceName == "" {
		return nil, simerr.Newf(simerr.KindBadNetlist, "CCCS %s: controlling source name required", name)
	}
	return &CCCS{
		Base:     Base{ElemName: name, ElemKind: "F", NodeNames: []string{outA, outB}},
		Gain:     gain,
		ctrlName: ctrlSourceName,
	}, nil
}

// ControllingSource returns the name of the branch this element reads its
// controlling current from, for the preprocessor to resolve.
func (e *CCCS) ControllingSource() string { return e.ctrlName }

// BindControl wires the resolved controlling element in (called once by
// the preprocessor after all elements are registered).
func (e *CCCS) BindControl(ctrl CurrentVariable) { e.ctrlBranch = ctrl }

func (e *CCCS) InitTransient()                         {}
func (e *CCCS) UpdateCompanion(h float64)     {}
func (e *CCCS) UpdateHistory(sol []float64, h float64) {}

func (e *CCCS) Stamp(target matrix.StampTarget, ctx *StepContext) error {
	n1, n2 := e.NodeRows[0], e.NodeRows[1]
	cb := e.ctrlBranch.BranchIndex()

	target.AddElement(n1, cb, e.Gain)
	target.AddElement(n2, cb, -e.Gain)
	return nil
}

// CCVS is a current-controlled voltage source: V(out) = gain * I(ctrl).
// Needs its own auxiliary current row in addition to reading the
// controlling branch's current.
type CCVS struct {
	Base
	Gain       float64
	ctrlName   string
	ctrlBranch CurrentVariable
	branchIdx  int
}

func NewCCVS(name, outA, outB, ctrlSourceName string, gain float64) (*CCVS, error) {
	if ctrlSourceName == "" {
		return nil, simerr.Newf(simerr.KindBadNetlist, "CCVS %s: controlling source name required", name)
	}
	return &CCVS{
		Base:     Base{ElemName: name, ElemKind: "H", NodeNames: []string{outA, outB}},
		Gain:     gain,
		ctrlName: ctrlSourceName,
	}, nil
}

func (e *CCVS) ControllingSource() string        { return e.ctrlName }
func (e *CCVS) BindControl(ctrl CurrentVariable) { e.ctrlBranch = ctrl }

func (e *CCVS) NeedsCurrentVariable() bool { return true }
func (e *CCVS) BranchIndex() int           { return e.branchIdx }
func (e *CCVS) SetBranchIndex(idx int)     { e.branchIdx = idx }

func (e *CCVS) InitTransient()                         {}
func (e *CCVS) UpdateCompanion(h float64)     {}
func (e *CCVS) UpdateHistory(sol []float64, h float64) {}

func (e *CCVS) Stamp(target matrix.StampTarget, ctx *StepContext) error {
	n1, n2 := e.NodeRows[0], e.NodeRows[1]
	b := e.branchIdx
	cb := e.ctrlBranch.BranchIndex()

	target.AddElement(n1, b, 1)
	target.AddElement(n2, b, -1)
	target.AddElement(b, n1, 1)
	target.AddElement(b, n2, -1)
	target.AddElement(b, cb, -e.Gain)
	return nil
}
