// Package statespace implements an explicit forward-Euler engine: a
// reduced state vector (one scalar per reactive element) stepped against
// a conductance matrix G that is stamped and factored exactly once, since
// only reactive elements carry per-step state and they contribute it
// through the right-hand side rather than through new matrix entries.
// State is cloned and advanced outside the matrix layer; each step only
// rebuilds and re-solves against the right-hand side.
package statespace

import (
	"spicecore/pkg/circuit"
	"spicecore/pkg/element"
	"spicecore/pkg/matrix"
	"spicecore/pkg/result"
	"spicecore/pkg/simerr"
)

// Params configures a state-space run.
type Params struct {
	LargeAdmittance float64
	InitialStep     float64
	MaxStep         float64
}

// DefaultParams returns a large admittance of 1e6, a value large enough
// relative to typical circuit conductances that the Norton approximation
// introduces negligible error.
func DefaultParams(step float64) Params {
	return Params{
		LargeAdmittance: 1e6,
		InitialStep:     step,
		MaxStep:         step,
	}
}

// stateVar is one reactive element's entry in the reduced state vector.
type stateVar struct {
	name         string
	kind         element.StateKind
	param        float64 // C or L
	nodeA, nodeB int
}

// Engine drives a circuit through the explicit forward-Euler loop. Unlike
// mna.Engine, it stamps its conductance matrix exactly once in New and
// never refactors it; every step only rebuilds the right-hand side.
type Engine struct {
	Circuit *circuit.Circuit
	Params  Params

	states  []stateVar
	s       []float64 // current state values, indexed like states
	sources []element.SourceElement
}

// New builds a state-space engine over ckt, which must already have had
// Preprocess called. It fails with KindBadNetlist if the circuit contains
// any switching element (ideal diode or ideal switch).
func New(ckt *circuit.Circuit, params Params) (*Engine, error) {
	if ckt.HasSwitching() {
		return nil, simerr.New(simerr.KindBadNetlist, "state-space engine cannot route circuits containing ideal diodes or switches")
	}
	if params.LargeAdmittance <= 0 {
		return nil, simerr.New(simerr.KindBadNetlist, "state-space large admittance must be > 0")
	}

	e := &Engine{Circuit: ckt, Params: params}
	target := ckt.Matrix
	target.Clear()

	ctx := &element.StepContext{Time: 0, Mode: element.Transient}

	for _, el := range ckt.Elements() {
		if r, ok := el.(element.Reactive); ok {
			nodes := el.Nodes()
			sv := stateVar{name: el.Name(), kind: r.StateKind(), param: r.StateParameter(), nodeA: nodes[0], nodeB: nodes[1]}
			if sv.kind == element.StateVoltage {
				stampConductance(target, sv.nodeA, sv.nodeB, params.LargeAdmittance)
			}
			e.states = append(e.states, sv)
			e.s = append(e.s, r.InitialState())
			continue
		}

		if err := el.Stamp(target, ctx); err != nil {
			return nil, simerr.Wrapf(simerr.KindBadNetlist, err, "stamping %s", el.Name())
		}
		if src, ok := el.(element.SourceElement); ok {
			e.sources = append(e.sources, src)
		}
	}

	if err := target.Solve(); err != nil {
		return nil, simerr.Wrap(simerr.KindSingularMatrix, err, "state-space G matrix factorization failed")
	}
	return e, nil
}

// stampConductance deposits a symmetric conductance g between two node
// rows, the Norton equivalent of a capacitor's large-admittance companion
// resistor.
func stampConductance(target matrix.StampTarget, a, b int, g float64) {
	target.AddElement(a, a, g)
	target.AddElement(a, b, -g)
	target.AddElement(b, a, -g)
	target.AddElement(b, b, g)
}

func dropNodes(sol []float64, a, b int) float64 {
	v := 0.0
	if a > 0 {
		v += sol[a]
	}
	if b > 0 {
		v -= sol[b]
	}
	return v
}

// step advances the state vector by h, returning the solution vector
// solved from the state at the start of the step (before it is advanced).
func (e *Engine) step(t, h float64) ([]float64, error) {
	target := e.Circuit.Matrix
	target.ClearRHS()

	for _, src := range e.sources {
		src.StampRHS(target, t)
	}
	large := e.Params.LargeAdmittance
	for i, sv := range e.states {
		switch sv.kind {
		case element.StateVoltage:
			inj := large * e.s[i]
			if sv.nodeA > 0 {
				target.AddRHS(sv.nodeA, inj)
			}
			if sv.nodeB > 0 {
				target.AddRHS(sv.nodeB, -inj)
			}
		case element.StateCurrent:
			if sv.nodeA > 0 {
				target.AddRHS(sv.nodeA, -e.s[i])
			}
			if sv.nodeB > 0 {
				target.AddRHS(sv.nodeB, e.s[i])
			}
		}
	}

	if err := target.ResolveRHS(); err != nil {
		return nil, err
	}
	sol := target.Solution()

	derivs := make([]float64, len(e.states))
	for i, sv := range e.states {
		drop := dropNodes(sol, sv.nodeA, sv.nodeB)
		switch sv.kind {
		case element.StateVoltage:
			derivs[i] = (drop - e.s[i]) * large / sv.param
		case element.StateCurrent:
			derivs[i] = drop / sv.param
		}
	}
	for i := range e.s {
		e.s[i] += h * derivs[i]
	}

	return sol, nil
}

// RunTransient steps the circuit from tStart to tStop at a fixed step
// (no step-size adaptation).
func (e *Engine) RunTransient(tStart, tStop float64) (*result.Transient, error) {
	ckt := e.Circuit
	names := make([]string, len(e.states))
	for i, sv := range e.states {
		names[i] = sv.name
	}
	res := result.NewTransient(ckt.NodeNames(), ckt.BranchNames(), names)

	h := e.Params.InitialStep
	if h <= 0 {
		return nil, simerr.New(simerr.KindBadNetlist, "state-space initial step must be > 0")
	}

	t := tStart
	if !(t < tStop-1e-15) {
		sol, err := e.step(tStart, 0)
		if err != nil {
			return res, err
		}
		res.Points = append(res.Points, buildPoint(ckt, sol, e.s, tStart))
		res.Stats.FinalTime = tStart
		return res, nil
	}

	for t < tStop-1e-15 {
		hTry := h
		if t+hTry > tStop {
			hTry = tStop - t
		}
		sol, err := e.step(t, hTry)
		if err != nil {
			return res, err
		}
		t += hTry
		res.Append(buildPoint(ckt, sol, e.s, t), hTry)
	}
	return res, nil
}

func buildPoint(ckt *circuit.Circuit, sol []float64, states []float64, t float64) result.Point {
	nodeNames := ckt.NodeNames()
	voltages := make([]float64, len(nodeNames))
	for i, n := range nodeNames {
		if row := ckt.NodeRow(n); row > 0 {
			voltages[i] = sol[row]
		}
	}

	branchNames := ckt.BranchNames()
	currents := make([]float64, len(branchNames))
	for i, n := range branchNames {
		currents[i] = sol[ckt.BranchRow(n)]
	}

	stateCopy := make([]float64, len(states))
	copy(stateCopy, states)

	return result.Point{Time: t, NodeVoltages: voltages, BranchCurrents: currents, StateVariables: stateCopy}
}
