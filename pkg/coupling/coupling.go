// Package coupling implements mutual-inductance stamping as an index-keyed
// adjacency list owned by the circuit: never as owning references from
// one inductor to another. An Inductor never holds a pointer to another
// Inductor; only the Manager holds the accessor interfaces needed to
// stamp the cross terms, and inductors are addressed here purely by the
// small integer index they were Register'd with.
package coupling

import (
	"math"

	"spicecore/pkg/integrate"
	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
)

// Inductor is the narrow accessor a coupled inductor must provide. element.
// Inductor satisfies it without knowing this package exists.
type Inductor interface {
	BranchIndex() int
	Inductance() float64
	PreviousCurrent() float64
	PrevPrevCurrent() float64
}

// edge is one mutual-inductance pair, addressed by foreign index into
// Manager.inductors rather than by pointer.
type edge struct {
	a, b int // indices into inductors
	k    float64
}

// Manager owns every mutual-inductance edge in a circuit and performs the
// cross-coupling stamp as an assembly pass separate from any one
// inductor's own Stamp call.
type Manager struct {
	inductors []Inductor
	byName    map[string]int
	edges     []edge
}

// NewManager returns an empty coupling manager.
func NewManager() *Manager {
	return &Manager{byName: make(map[string]int)}
}

// Register associates a name with an inductor accessor and returns its
// index within this manager. Registering the same name twice is a
// BadNetlist error.
func (m *Manager) Register(name string, ind Inductor) (int, error) {
	if _, exists := m.byName[name]; exists {
		return 0, simerr.Newf(simerr.KindBadNetlist, "coupling: inductor %q registered twice", name)
	}
	idx := len(m.inductors)
	m.inductors = append(m.inductors, ind)
	m.byName[name] = idx
	return idx, nil
}

// AddCoupling declares a mutual-inductance edge between two already
// registered inductor names with coupling coefficient k (0 < |k| <= 1).
func (m *Manager) AddCoupling(nameA, nameB string, k float64) error {
	ia, ok := m.byName[nameA]
	if !ok {
		return simerr.Newf(simerr.KindBadNetlist, "coupling: unknown inductor %q", nameA)
	}
	ib, ok := m.byName[nameB]
	if !ok {
		return simerr.Newf(simerr.KindBadNetlist, "coupling: unknown inductor %q", nameB)
	}
	if ia == ib {
		return simerr.Newf(simerr.KindBadNetlist, "coupling: inductor %q cannot couple to itself", nameA)
	}
	if math.Abs(k) > 1 {
		return simerr.Newf(simerr.KindBadNetlist, "coupling: |k| must be <= 1, got %g", k)
	}
	m.edges = append(m.edges, edge{a: ia, b: ib, k: k})
	return nil
}

// Len reports the number of registered coupling edges.
func (m *Manager) Len() int { return len(m.edges) }

// Stamp deposits every edge's cross-coupling term using the same
// variable-step BDF2 law each inductor applies to its own self-term (spec
// §4.1, §4.6): V_i gains M_ij*(alpha*I_j + beta*I_j,n-1 + gamma*I_j,n-2).
func (m *Manager) Stamp(target matrix.StampTarget, h, hPrev float64, haveHistory bool) error {
	if len(m.edges) == 0 {
		return nil
	}
	coeffs := integrate.Coeffs(h, hPrev, haveHistory)

	for _, e := range m.edges {
		la, lb := m.inductors[e.a], m.inductors[e.b]
		mij := e.k * math.Sqrt(la.Inductance()*lb.Inductance())
		if mij == 0 {
			continue
		}
		ba, bb := la.BranchIndex(), lb.BranchIndex()

		target.AddElement(ba, bb, -mij*coeffs.Alpha)
		target.AddElement(bb, ba, -mij*coeffs.Alpha)

		hist := mij * (coeffs.Beta*lb.PreviousCurrent() + coeffs.Gamma*lb.PrevPrevCurrent())
		target.AddRHS(ba, hist)
		hist2 := mij * (coeffs.Beta*la.PreviousCurrent() + coeffs.Gamma*la.PrevPrevCurrent())
		target.AddRHS(bb, hist2)
	}
	return nil
}
