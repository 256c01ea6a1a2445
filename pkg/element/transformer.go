package element

import (
	"fmt"

	"spicecore/pkg/simerr"
)

// Winding describes one winding of a Transformer meta-element: its two
// terminal node names and its self-inductance.
type Winding struct {
	NodeA, NodeB string
	L            float64
	Rs           float64 // series resistance, >= 0
}

// Transformer is a multi-winding meta-element: it is not
// itself stamped. pkg/circuit's AddTransformer expands it into N Inductor
// elements (one per winding) plus N*(N-1)/2 MutualCoupling declarations,
// all pairs sharing the single coupling coefficient K. The expansion
// point lives in pkg/circuit rather than a separate netlist pass.
type Transformer struct {
	Name     string
	Windings []Winding
	K        float64 // shared coupling coefficient across every winding pair
}

// NewTransformer declares a transformer with at least two windings and a
// shared coupling coefficient k (0 < |k| <= 1).
func NewTransformer(name string, windings []Winding, k float64) (*Transformer, error) {
	if len(windings) < 2 {
		return nil, simerr.Newf(simerr.KindBadNetlist, "transformer %s: needs at least two windings, got %d", name, len(windings))
	}
	for i, w := range windings {
		if w.L <= 0 {
			return nil, simerr.Newf(simerr.KindBadNetlist, "transformer %s: winding %d: L must be > 0, got %g", name, i, w.L)
		}
	}
	return &Transformer{Name: name, Windings: windings, K: k}, nil
}

// Expand returns the N inductors and N*(N-1)/2 coupling declarations this
// transformer decomposes into, named "<transformer>.W<i>" and
// "<transformer>.K<i>_<j>" respectively.
func (t *Transformer) Expand() ([]*Inductor, []*MutualCoupling, error) {
	inductors := make([]*Inductor, len(t.Windings))
	for i, w := range t.Windings {
		name := fmt.Sprintf("%s.W%d", t.Name, i)
		ind, err := NewInductor(name, w.NodeA, w.NodeB, w.L, w.Rs, 0)
		if err != nil {
			return nil, nil, err
		}
		inductors[i] = ind
	}

	var couplings []*MutualCoupling
	for i := 0; i < len(inductors); i++ {
		for j := i + 1; j < len(inductors); j++ {
			name := fmt.Sprintf("%s.K%d_%d", t.Name, i, j)
			couplings = append(couplings, NewMutualCoupling(name, inductors[i].Name(), inductors[j].Name(), t.K))
		}
	}
	return inductors, couplings, nil
}
