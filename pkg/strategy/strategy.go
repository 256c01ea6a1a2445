// Package strategy implements a lightweight engine selector: inspect
// element kinds and counts, then recommend MNA+BDF2 or the explicit
// state-space engine.
package strategy

import "spicecore/pkg/circuit"

// Choice names the engine a circuit should run under.
type Choice int

const (
	// ChoiceMNA routes through pkg/mna (BDF2 + MCP/LCP where needed).
	ChoiceMNA Choice = iota
	// ChoiceStateSpace routes through pkg/statespace (explicit forward Euler).
	ChoiceStateSpace
	// ChoiceDegenerateDC signals a circuit with no reactive elements: a
	// single operating-point solve fully describes its behavior over time.
	ChoiceDegenerateDC
)

func (c Choice) String() string {
	switch c {
	case ChoiceStateSpace:
		return "state-space"
	case ChoiceDegenerateDC:
		return "degenerate-dc"
	default:
		return "mna"
	}
}

// Select chooses an engine for ckt, which must already have had Preprocess
// called so Switching/Reactives are populated:
//
//   - any ideal diode or switch mandates MNA+MCP, regardless of anything else.
//   - no reactive elements at all means a single DC solve fully describes
//     the circuit's (constant) behavior; no stepping is needed.
//   - otherwise either engine is valid; MNA+BDF2 is the default for its
//     stiffness tolerance.
func Select(ckt *circuit.Circuit) Choice {
	if ckt.HasSwitching() {
		return ChoiceMNA
	}
	if len(ckt.Reactives()) == 0 {
		return ChoiceDegenerateDC
	}
	return ChoiceMNA
}

// PreferStateSpace re-routes a non-switching, reactive circuit to the
// state-space engine when the caller has decided the circuit is linear
// and not stiff enough to need BDF2's implicit damping. Select never
// returns ChoiceStateSpace on its own,
// so opting in is always an explicit caller decision.
func PreferStateSpace(ckt *circuit.Circuit) Choice {
	choice := Select(ckt)
	if choice == ChoiceMNA && !ckt.HasSwitching() && len(ckt.Reactives()) > 0 {
		return ChoiceStateSpace
	}
	return choice
}
