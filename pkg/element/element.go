// Package element implements the companion-model layer: every lumped
// device the core understands, and the per-step linearization ("stamp")
// contract the MNA and state-space engines drive them through.
package element

import "spicecore/pkg/matrix"

// AnalysisMode distinguishes the operating-point solve (used to seed a
// transient run) from the transient stamp itself. The core has no AC/DC
// sweep mode.
type AnalysisMode int

const (
	OperatingPoint AnalysisMode = iota
	Transient
)

// StepContext is the per-step status threaded through every element's
// Stamp call. It is a field bag rather than a singleton precisely so the
// run context can be passed by reference through the step loop instead of
// living as package state.
type StepContext struct {
	Time     float64
	Step     float64 // h_n, current step size
	PrevStep float64 // h_n-1, previous step size
	Mode     AnalysisMode
	Gmin     float64
	Temp     float64 // operating temperature, Kelvin
}

// Element is the contract every device must satisfy: a closed set of
// total operations, none of which may panic on well-formed input.
type Element interface {
	Name() string
	Kind() string
	Terminals() []string  // terminal node names, in declaration order
	Nodes() []int         // resolved row indices (0 = ground), set by SetNodes
	SetNodes(nodes []int) // called once by the preprocessor

	// NeedsCurrentVariable reports whether this element demands an
	// auxiliary current row/column in the MNA system:
	// true for independent voltage sources, VCVS, CCVS and inductors.
	// CCCS and VCCS need none of their own; a CCCS reads the current
	// variable of its controlling element.
	NeedsCurrentVariable() bool

	// InitTransient resets history to the element's initial condition and
	// its internal step counter to zero.
	InitTransient()

	// UpdateCompanion computes and caches this step's linearization
	// (G_eq/I_eq or R_eq/V_eq) from the element's parameters, h, and
	// bounded history. Implementations gate the BDF2-vs-backward-Euler
	// choice on their own internal step counter, never on the engine's
	// clock or step count.
	UpdateCompanion(h float64)

	// Stamp deposits this element's contribution into A/b. May be called
	// more than once per step (once per Newton/MCP iterate).
	Stamp(target matrix.StampTarget, ctx *StepContext) error

	// UpdateHistory commits the accepted step's solution, rotating
	// history slots atomically.
	UpdateHistory(solution []float64, h float64)
}

// CurrentVariable is implemented by elements that own an auxiliary current
// row (voltage sources, inductors) so the preprocessor and coupling
// manager can wire a branch index into them.
type CurrentVariable interface {
	Element
	BranchIndex() int
	SetBranchIndex(idx int)
}

// Reactive is implemented by every element that contributes a state
// variable to the explicit state-space engine:
// capacitors (V-type) and inductors (I-type).
type Reactive interface {
	Element
	StateKind() StateKind
	StateParameter() float64 // C for capacitors, L for inductors
	InitialState() float64

	// SolvedState extracts this element's state value (terminal voltage
	// difference or branch current) from a raw MNA solution vector.
	SolvedState(solution []float64) float64

	// EstimateLTE returns a local-truncation-error estimate for the step
	// that produced actual, by comparing it against a lower-order
	// predictor built from the element's own history.
	EstimateLTE(h float64, actual float64) float64
}

// SourceElement is implemented by independent sources, whose Stamp
// contribution splits cleanly into a time-invariant matrix part and a
// time-varying RHS part. The state-space engine stamps every
// element's matrix contribution once to build its constant G, then redrives
// only StampRHS per step instead of re-stamping the whole element.
type SourceElement interface {
	Element
	StampRHS(target matrix.StampTarget, t float64)
}

// StateKind distinguishes the two state-variable flavors.
type StateKind int

const (
	StateVoltage StateKind = iota
	StateCurrent
)

// MCP is implemented by the ideal piecewise-linear diode, resolved every
// step through the MCP/LCP core instead of a direct linear solve.
type MCP interface {
	Element
	// ComplementarityRow returns this element's row of the MCP
	// formulation: the two terminal row indices it couples
	// its complementary current into, the coefficient D on its own
	// complementary variable ("Ron"), and the constant term d ("Vf").
	ComplementarityRow() (nodeA, nodeB int, d, constant float64)
	// SetComplementaryCurrent stores the current the LCP solve assigned
	// to this element's complementary variable, so Stamp can deposit it
	// as a fixed RHS contribution on the next assembly pass, and latches
	// the element's on/off state from it.
	SetComplementaryCurrent(i float64)
}

// Switching marks elements whose effective resistance is not fixed for a
// run's duration — the ideal diode (resolved through the MCP/LCP core)
// and the ideal switch (a deterministic two-valued resistor latched from
// an external gate). Neither can be reduced to a single constant
// conductance matrix, so the strategy selector and the state-space
// engine must route any circuit containing one to pkg/mna, independent
// of how each one is actually resolved.
type Switching interface {
	Element
	SwitchesDuringRun() bool
}

// Base is embedded by every concrete element for the bookkeeping common to
// all of them (name, terminals, resolved node rows).
type Base struct {
	ElemName  string
	ElemKind  string
	NodeNames []string
	NodeRows  []int
}

func (b *Base) Name() string               { return b.ElemName }
func (b *Base) Kind() string               { return b.ElemKind }
func (b *Base) Terminals() []string        { return b.NodeNames }
func (b *Base) Nodes() []int                { return b.NodeRows }
func (b *Base) SetNodes(nodes []int)        { b.NodeRows = nodes }
func (b *Base) NeedsCurrentVariable() bool  { return false }
