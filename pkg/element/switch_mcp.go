package element

import (
	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
)

// IdealSwitch is a voltage-controlled switch: a two-valued resistor, Ron
// while its gate voltage (across ctrlA, ctrlB) is at or above Vth, Roff
// otherwise. Unlike IdealDiode it is not resolved through the MCP/LCP
// core — the gate condition is a deterministic external comparison, not
// a complementarity pair, so the state is latched from the previous
// accepted step's gate voltage rather than solved for simultaneously
// with the rest of the circuit.
type IdealSwitch struct {
	Base
	Ron, Roff, Vth float64

	ctrlNodeNames [2]string
	ctrlRows      [2]int

	closed bool
}

// NewIdealSwitch builds an ideal switch between nodeA and nodeB, gated by
// the voltage across (ctrlA, ctrlB) against threshold vth. Ron and Roff
// must both be finite and > 0.
func NewIdealSwitch(name, nodeA, nodeB, ctrlA, ctrlB string, ron, roff, vth float64) (*IdealSwitch, error) {
	if ron <= 0 {
		return nil, simerr.Newf(simerr.KindBadNetlist, "switch %s: Ron must be > 0, got %g", name, ron)
	}
	if roff <= 0 {
		return nil, simerr.Newf(simerr.KindBadNetlist, "switch %s: Roff must be > 0, got %g", name, roff)
	}
	return &IdealSwitch{
		Base:          Base{ElemName: name, ElemKind: "S", NodeNames: []string{nodeA, nodeB}},
		Ron:           ron,
		Roff:          roff,
		Vth:           vth,
		ctrlNodeNames: [2]string{ctrlA, ctrlB},
	}, nil
}

// ControlNodes exposes the gate terminal names so the preprocessor can
// resolve them to rows alongside the switch's own terminals.
func (s *IdealSwitch) ControlNodes() []string { return s.ctrlNodeNames[:] }

// SetControlRows is called by the preprocessor once the gate terminal
// rows are resolved.
func (s *IdealSwitch) SetControlRows(rows []int) { s.ctrlRows[0], s.ctrlRows[1] = rows[0], rows[1] }

func (s *IdealSwitch) InitTransient() { s.closed = false }

func (s *IdealSwitch) UpdateCompanion(h float64) {}

// Stamp deposits G=1/R symmetrically between the switch's terminals,
// where R is whichever of Ron/Roff the last accepted gate voltage
// selected.
func (s *IdealSwitch) Stamp(target matrix.StampTarget, ctx *StepContext) error {
	n1, n2 := s.NodeRows[0], s.NodeRows[1]
	r := s.Roff
	if s.closed {
		r = s.Ron
	}
	g := 1.0 / r
	target.AddElement(n1, n1, g)
	target.AddElement(n1, n2, -g)
	target.AddElement(n2, n1, -g)
	target.AddElement(n2, n2, g)
	return nil
}

// UpdateHistory latches the gate comparison from the accepted step's
// solution so the next step's Stamp picks Ron or Roff deterministically.
func (s *IdealSwitch) UpdateHistory(solution []float64, h float64) {
	vGate := 0.0
	if s.ctrlRows[0] > 0 {
		vGate += solution[s.ctrlRows[0]]
	}
	if s.ctrlRows[1] > 0 {
		vGate -= solution[s.ctrlRows[1]]
	}
	s.closed = vGate >= s.Vth
}

// Closed reports the switch's latched state from the last accepted step.
func (s *IdealSwitch) Closed() bool { return s.closed }

// SwitchesDuringRun marks the switch as a Switching element: its
// resistance toggles between Ron and Roff across a run.
func (s *IdealSwitch) SwitchesDuringRun() bool { return true }
