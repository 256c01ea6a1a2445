// Package circuit assembles a netlist-free circuit description
// out of explicitly constructed pkg/element values, built directly from Go
// construction calls rather than a parsed netlist, since netlist parsing
// is out of this core's scope. AddTransformer expands a transformer into
// inductors and coupling declarations as it is added; Preprocess then
// does the node/branch indexing and resolves the mutual-inductance
// declarations against the registered inductors.
package circuit

import (
	"sort"

	"spicecore/pkg/coupling"
	"spicecore/pkg/element"
	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
)

const groundNode = "0"

// Circuit holds every element of a single network, plus the resolved
// node/branch index tables built by Preprocess.
type Circuit struct {
	Name string

	elements  []element.Element
	mcps      []element.MCP
	reactives []element.Reactive
	switching []element.Switching

	nodeMap   map[string]int
	branchMap map[string]int
	numNodes  int
	numTotal  int

	coupling  *coupling.Manager
	couplings []*element.MutualCoupling

	ccControlled []ccBinding

	Matrix *matrix.CircuitMatrix
}

type ccBinding struct {
	name string
	bind func(element.CurrentVariable)
}

// New returns an empty circuit ready to accept elements via Add.
func New(name string) *Circuit {
	return &Circuit{
		Name:      name,
		nodeMap:   make(map[string]int),
		branchMap: make(map[string]int),
		coupling:  coupling.NewManager(),
	}
}

// Add registers an element with the circuit. Elements that also implement
// element.MCP are additionally tracked for the LCP assembly pass.
func (c *Circuit) Add(e element.Element) {
	c.elements = append(c.elements, e)
	if mcp, ok := e.(element.MCP); ok {
		c.mcps = append(c.mcps, mcp)
	}
	if r, ok := e.(element.Reactive); ok {
		c.reactives = append(c.reactives, r)
	}
	if sw, ok := e.(element.Switching); ok {
		c.switching = append(c.switching, sw)
	}
}

// AddCoupling declares a mutual-inductance edge between two inductors of
// this circuit by name. The declaration is resolved against the
// registered inductors in Preprocess, which reports unknown names or an
// out-of-range k.
func (c *Circuit) AddCoupling(m *element.MutualCoupling) error {
	c.couplings = append(c.couplings, m)
	return nil
}

// AddTransformer expands a multi-winding Transformer meta-element into its
// constituent inductors and coupling declarations and registers all of
// them.
func (c *Circuit) AddTransformer(t *element.Transformer) error {
	inductors, couplings, err := t.Expand()
	if err != nil {
		return err
	}
	for _, ind := range inductors {
		c.Add(ind)
	}
	for _, k := range couplings {
		if err := c.AddCoupling(k); err != nil {
			return err
		}
	}
	return nil
}

// BindCurrentControl registers a deferred binding for a current-controlled
// source (CCCS/CCVS), resolved once every CurrentVariable element has
// been added and indexed.
func (c *Circuit) BindCurrentControl(controllingName string, bind func(element.CurrentVariable)) {
	c.ccControlled = append(c.ccControlled, ccBinding{name: controllingName, bind: bind})
}

// Coupling exposes the coupling manager for the MNA engine's per-step
// assembly pass.
func (c *Circuit) Coupling() *coupling.Manager { return c.coupling }

// Elements returns every registered element in declaration order.
func (c *Circuit) Elements() []element.Element { return c.elements }

// MCPElements returns every element requiring LCP resolution.
func (c *Circuit) MCPElements() []element.MCP { return c.mcps }

// HasSwitching reports whether the circuit contains any element (ideal
// diode or ideal switch) whose resistance is not fixed for a run's
// duration, regardless of how each one resolves its state.
func (c *Circuit) HasSwitching() bool { return len(c.switching) > 0 }

// Reactives returns every capacitor/inductor contributing a state
// variable.
func (c *Circuit) Reactives() []element.Reactive { return c.reactives }

// NumNodes reports the number of non-ground nodes.
func (c *Circuit) NumNodes() int { return c.numNodes }

// Size reports the total MNA system dimension (nodes + branch currents).
func (c *Circuit) Size() int { return c.numTotal }

func (c *Circuit) nodeIndex(name string) int {
	if name == groundNode || name == "gnd" {
		return 0
	}
	if idx, ok := c.nodeMap[name]; ok {
		return idx
	}
	idx := len(c.nodeMap) + 1
	c.nodeMap[name] = idx
	return idx
}

// Preprocess resolves every element's terminal names to row indices,
// assigns a branch index to every CurrentVariable element, registers
// every inductor with the coupling manager, resolves the declared
// couplings, binds current-controlled sources, and allocates the MNA
// matrix. It must be called exactly once, after every
// element/coupling/transformer has been added.
func (c *Circuit) Preprocess() error {
	if len(c.elements) == 0 {
		return simerr.New(simerr.KindBadNetlist, "circuit has no elements")
	}

	for _, e := range c.elements {
		terms := e.Terminals()
		rows := make([]int, len(terms))
		for i, t := range terms {
			rows[i] = c.nodeIndex(t)
		}
		e.SetNodes(rows)

		if cc, ok := e.(interface{ ControlNodes() []string }); ok {
			ctrlRows := make([]int, len(cc.ControlNodes()))
			for i, t := range cc.ControlNodes() {
				ctrlRows[i] = c.nodeIndex(t)
			}
			e.(interface{ SetControlRows([]int) }).SetControlRows(ctrlRows)
		}
	}
	c.numNodes = len(c.nodeMap)

	branchStart := c.numNodes + 1
	byName := make(map[string]element.CurrentVariable, len(c.elements))
	for _, e := range c.elements {
		if !e.NeedsCurrentVariable() {
			continue
		}
		cv, ok := e.(element.CurrentVariable)
		if !ok {
			return simerr.Newf(simerr.KindBadNetlist, "element %s needs a current variable but does not implement CurrentVariable", e.Name())
		}
		cv.SetBranchIndex(branchStart)
		c.branchMap[e.Name()] = branchStart
		byName[e.Name()] = cv
		branchStart++
	}
	c.numTotal = branchStart - 1

	for _, b := range c.ccControlled {
		cv, ok := byName[b.name]
		if !ok {
			return simerr.Newf(simerr.KindBadNetlist, "controlled source references unknown branch %q", b.name)
		}
		b.bind(cv)
	}

	for _, e := range c.elements {
		ci, ok := e.(coupling.Inductor)
		if !ok {
			continue
		}
		if _, err := c.coupling.Register(e.Name(), ci); err != nil {
			return err
		}
	}
	for _, k := range c.couplings {
		if err := c.coupling.AddCoupling(k.IndA, k.IndB, k.K); err != nil {
			return err
		}
	}

	m, err := matrix.NewMatrix(c.numTotal)
	if err != nil {
		return err
	}
	c.Matrix = m
	return nil
}

// NodeNames returns every non-ground node name sorted by resolved row
// index, for result labeling.
func (c *Circuit) NodeNames() []string {
	names := make([]string, 0, len(c.nodeMap))
	for n := range c.nodeMap {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return c.nodeMap[names[i]] < c.nodeMap[names[j]] })
	return names
}

// NodeRow returns the resolved row index of a node name (0 for ground or
// any name not present in the circuit).
func (c *Circuit) NodeRow(name string) int {
	if name == groundNode || name == "gnd" {
		return 0
	}
	return c.nodeMap[name]
}

// BranchRow returns the resolved row index of a current-variable element
// by name (0 if unknown).
func (c *Circuit) BranchRow(name string) int {
	return c.branchMap[name]
}

// BranchNames returns every current-variable element name sorted by
// resolved row index.
func (c *Circuit) BranchNames() []string {
	names := make([]string, 0, len(c.branchMap))
	for n := range c.branchMap {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return c.branchMap[names[i]] < c.branchMap[names[j]] })
	return names
}

// InitTransient resets every element's history to its initial condition.
func (c *Circuit) InitTransient() {
	for _, e := range c.elements {
		e.InitTransient()
	}
}
