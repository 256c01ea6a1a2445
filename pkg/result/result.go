// Package result holds the typed transient-analysis output container,
// using named fields for node voltages, branch currents, and state
// variables instead of a string-keyed map.
package result

// Stats summarizes a completed (or aborted) transient run.
type Stats struct {
	AcceptedSteps int
	RejectedSteps int
	MinStep       float64
	MaxStep       float64
	FinalTime     float64

	AvgLCPIterations float64
	MaxLCPIterations int
	TotalLUSolves    int

	lcpIterSum int
	lcpSolves  int
}

// RecordLUSolve counts one factor-and-solve pass against the circuit
// matrix (the Schur-complement path runs this twice per step: once to
// formulate the MCP tableau, once for the final consistent solve).
func (s *Stats) RecordLUSolve() { s.TotalLUSolves++ }

// RecordLCPIterations folds one Lemke solve's pivot count into the
// running average and observed maximum.
func (s *Stats) RecordLCPIterations(iters int) {
	s.lcpIterSum += iters
	s.lcpSolves++
	if iters > s.MaxLCPIterations {
		s.MaxLCPIterations = iters
	}
	s.AvgLCPIterations = float64(s.lcpIterSum) / float64(s.lcpSolves)
}

// Point is a single accepted step's sample: the solved time, every node
// voltage (indexed identically to the circuit's NodeNames/BranchNames
// ordering), every branch current, and every reactive element's state
// variable.
type Point struct {
	Time           float64
	NodeVoltages   []float64
	BranchCurrents []float64
	StateVariables []float64
}

// Transient is the full accumulated output of a transient run:
// time series plus summary statistics. NodeNames/BranchNames/StateNames
// give the column labels for NodeVoltages/BranchCurrents/StateVariables
// in each Point, fixed once at the start of the run.
type Transient struct {
	NodeNames   []string
	BranchNames []string
	StateNames  []string

	Points []Point
	Stats  Stats
}

// NewTransient returns an empty result labeled with the given column
// names, ready to accumulate Points via Append.
func NewTransient(nodeNames, branchNames, stateNames []string) *Transient {
	return &Transient{
		NodeNames:   nodeNames,
		BranchNames: branchNames,
		StateNames:  stateNames,
	}
}

// Append records one accepted step and updates running statistics.
func (r *Transient) Append(p Point, h float64) {
	r.Points = append(r.Points, p)
	r.Stats.AcceptedSteps++
	r.Stats.FinalTime = p.Time
	if r.Stats.MinStep == 0 || h < r.Stats.MinStep {
		r.Stats.MinStep = h
	}
	if h > r.Stats.MaxStep {
		r.Stats.MaxStep = h
	}
}

// NodeVoltage returns the time series for a named node, or nil if the
// name is unknown.
func (r *Transient) NodeVoltage(name string) []float64 {
	idx := indexOf(r.NodeNames, name)
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.NodeVoltages[idx]
	}
	return out
}

// BranchCurrent returns the time series for a named current-variable
// branch, or nil if the name is unknown.
func (r *Transient) BranchCurrent(name string) []float64 {
	idx := indexOf(r.BranchNames, name)
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.BranchCurrents[idx]
	}
	return out
}

// Times returns every accepted step's time, in order.
func (r *Transient) Times() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Time
	}
	return out
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
