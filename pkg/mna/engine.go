// Package mna implements the variable-step BDF2 transient engine: predict,
// stamp, solve (directly or through the MCP/LCP core), estimate local
// truncation error, damp, and accept or reject the step — plus the
// Newton-Raphson/Gmin-stepping operating-point solve that seeds a run's
// initial condition.
package mna

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"spicecore/internal/consts"
	"spicecore/pkg/circuit"
	"spicecore/pkg/element"
	"spicecore/pkg/matrix"
	"spicecore/pkg/mcp"
	"spicecore/pkg/result"
	"spicecore/pkg/simerr"
)

// roomTemp is the default simulation temperature (27C, SPICE's TNOM), used
// wherever a run doesn't specify one explicitly.
const roomTemp = consts.KELVIN + 27.0

// Params configures a transient run.
type Params struct {
	InitialStep float64
	MinStep     float64
	MaxStep     float64

	LteTol float64 // relative local-truncation-error tolerance
	Reltol float64 // Newton/gmin convergence relative tolerance
	Abstol float64 // Newton/gmin convergence absolute tolerance
	Gmin   float64

	MaxNRIter int
	MaxReject int // per-step rejection budget before giving up

	UseInitialConditions bool // skip the operating-point solve, start from each element's IC

	EnablePredictor bool    // extrapolate x^p_n = x_{n-1} + (h/h_prev)(x_{n-1}-x_{n-2}) and fold its disagreement with the corrector into the accept/reject decision
	EnableDamping   bool    // clamp |x_n[j]-x_{n-1}[j]| to MaxVoltageStep*DampingFactor after every accepted solve
	MaxVoltageStep  float64 // per-unknown damping ceiling, volts (or amps for branch rows)
	DampingFactor   float64 // multiplier applied to MaxVoltageStep

	AdaptiveStep bool // grow/shrink h from the LTE estimate; false holds h at InitialStep

	ConvergenceTolerance float64 // threshold for the predictor-disagreement check

	MaxLCPIterations int // cap on Lemke pivots per LCP solve, <=0 selects the package default

	CollectStatistics bool // track LU-solve counts and LCP iteration counts in the result's Stats

	Cancel func() bool                  // polled once per step; a true return stops the run cleanly
	OnStep func(t float64, x []float64) // invoked once per accepted step with the full solution vector
}

// DefaultParams returns conservative defaults: minStep = step/1024, and
// growth-capped step adaptation. The predictor and damping are left off;
// a caller who wants them active sets EnablePredictor/EnableDamping and
// tightens MaxVoltageStep/DampingFactor/ConvergenceTolerance for their
// circuit's voltage scale.
func DefaultParams(step, stop float64) Params {
	return Params{
		InitialStep: step,
		MinStep:     step / 1024,
		MaxStep:     stop,
		LteTol:      1e-3,
		Reltol:      1e-6,
		Abstol:      1e-9,
		Gmin:        1e-12,
		MaxNRIter:   100,
		MaxReject:   32,

		// Predictor/damping are opt-in: a caller enables them for stiff or
		// switching-heavy circuits by setting EnablePredictor/EnableDamping
		// and tightening MaxVoltageStep/DampingFactor/ConvergenceTolerance
		// for their circuit's voltage scale.
		EnablePredictor: false,
		EnableDamping:   false,
		MaxVoltageStep:  1.0,
		DampingFactor:   1.0,

		AdaptiveStep:         true,
		ConvergenceTolerance: 1e-2,

		MaxLCPIterations:  1000,
		CollectStatistics: true,
	}
}

// gminLadder is the gmin-stepping schedule used to assist convergence
// when the plain solve at the target gmin fails.
var gminLadder = []float64{1e-2, 1e-3, 1e-4, 1e-5, 1e-6, 1e-7, 1e-8, 1e-9, 1e-10, 1e-11}

// Engine drives a single circuit through an operating-point solve and a
// variable-step BDF2 transient run.
type Engine struct {
	Circuit *circuit.Circuit
	Params  Params
}

// New returns an engine bound to ckt with the given parameters.
func New(ckt *circuit.Circuit, params Params) *Engine {
	return &Engine{Circuit: ckt, Params: params}
}

// OperatingPoint solves the DC operating point (capacitors open at a
// gmin floor, inductors shorted) and seeds every reactive element's
// history from it, unless the element already carries an explicit
// initial condition the caller wants kept (Params.UseInitialConditions).
func (e *Engine) OperatingPoint() error {
	ckt := e.Circuit
	ctx := &element.StepContext{Time: 0, Mode: element.OperatingPoint, Gmin: e.Params.Gmin, Temp: roomTemp}

	if err := e.solveWithGminStepping(ctx); err != nil {
		return simerr.Wrap(simerr.KindSingularMatrix, err, "operating point failed to converge")
	}

	if !e.Params.UseInitialConditions {
		sol := ckt.Matrix.Solution()
		for _, r := range ckt.Reactives() {
			r.UpdateHistory(sol, 0)
		}
	}
	return nil
}

// solveWithGminStepping runs Newton iteration at the configured gmin,
// falling back to the gmin-stepping ladder on failure.
func (e *Engine) solveWithGminStepping(ctx *element.StepContext) error {
	target := e.Params.Gmin
	if err := e.newtonIterate(ctx, target); err == nil {
		return nil
	}
	for _, gmin := range gminLadder {
		ctx.Gmin = gmin
		if err := e.newtonIterate(ctx, gmin); err == nil {
			ctx.Gmin = target
			return e.newtonIterate(ctx, target)
		}
	}
	return simerr.New(simerr.KindSingularMatrix, "gmin stepping exhausted without convergence")
}

// newtonIterate assembles and solves the (possibly MCP) system repeatedly
// until the solution stops moving by more than reltol/abstol. With no
// nonlinear junction devices in this core, this converges in one or two
// passes except when MCP elements are present, in which case each
// iteration re-solves the LCP against the previous pass's linearization
// point. Operating-point solves aren't transient steps, so they never
// feed the run's statistics.
func (e *Engine) newtonIterate(ctx *element.StepContext, gmin float64) error {
	ckt := e.Circuit
	var prev []float64

	for iter := 0; iter < e.Params.MaxNRIter; iter++ {
		if err := e.assembleAndSolve(ctx, gmin, nil); err != nil {
			return err
		}
		sol := ckt.Matrix.Solution()

		if iter > 0 && converged(sol, prev, e.Params.Reltol, e.Params.Abstol) {
			return nil
		}
		if prev == nil {
			prev = make([]float64, len(sol))
		}
		copy(prev, sol)
	}
	return simerr.Newf(simerr.KindSingularMatrix, "failed to converge in %d iterations", e.Params.MaxNRIter)
}

func converged(sol, prev []float64, reltol, abstol float64) bool {
	for i := range sol {
		if !floats.EqualWithinAbsOrRel(sol[i], prev[i], abstol, reltol) {
			return false
		}
	}
	return true
}

// assembleAndSolve performs one stamp+solve pass, routing through the
// MCP/LCP core when the circuit has any complementarity elements: stamp
// every non-MCP element, solve the Schur complement, latch each
// element's resolved current, then re-stamp everything (this time
// including the MCP elements' now-fixed contribution) for a consistent
// final solve. When stats is non-nil, every factor-and-solve pass and
// every LCP pivot count is folded into it.
func (e *Engine) assembleAndSolve(ctx *element.StepContext, gmin float64, stats *result.Stats) error {
	ckt := e.Circuit
	target := ckt.Matrix

	mcpElems := ckt.MCPElements()
	if len(mcpElems) == 0 {
		target.Clear()
		if err := stampAll(ckt, target, ctx); err != nil {
			return err
		}
		target.LoadGmin(gmin)
		if err := target.Solve(); err != nil {
			return err
		}
		if stats != nil {
			stats.RecordLUSolve()
		}
		return nil
	}

	target.Clear()
	if err := stampNonMCP(ckt, target, ctx); err != nil {
		return err
	}
	target.LoadGmin(gmin)

	rows := make([]mcp.Row, len(mcpElems))
	for i, m := range mcpElems {
		na, nb, d, c := m.ComplementarityRow()
		rows[i] = mcp.Row{NodeA: na, NodeB: nb, D: d, Constant: c}
	}
	problem, err := mcp.Formulate(target, rows)
	if err != nil {
		return err
	}
	if stats != nil {
		stats.RecordLUSolve() // Formulate's internal A_ff factorization
	}

	z, iters, err := mcp.Solve(problem, e.Params.MaxLCPIterations)
	if err != nil {
		return err
	}
	if stats != nil {
		stats.RecordLCPIterations(iters)
	}
	for i, m := range mcpElems {
		m.SetComplementaryCurrent(z[i])
	}

	target.Clear()
	if err := stampAll(ckt, target, ctx); err != nil {
		return err
	}
	target.LoadGmin(gmin)
	if err := target.Solve(); err != nil {
		return err
	}
	if stats != nil {
		stats.RecordLUSolve()
	}
	return nil
}

// stampAll stamps every element, including MCP elements (their fixed
// last-resolved-current contribution).
func stampAll(ckt *circuit.Circuit, target *matrix.CircuitMatrix, ctx *element.StepContext) error {
	for _, e := range ckt.Elements() {
		if err := e.Stamp(target, ctx); err != nil {
			return simerr.Wrapf(simerr.KindBadNetlist, err, "stamping %s", e.Name())
		}
	}
	return stampCoupling(ckt, target, ctx)
}

// stampNonMCP stamps every element except the MCP set, producing the
// b_f0 baseline pkg/mcp.Formulate requires (every complementary current
// implicitly held at zero).
func stampNonMCP(ckt *circuit.Circuit, target *matrix.CircuitMatrix, ctx *element.StepContext) error {
	for _, e := range ckt.Elements() {
		if _, ok := e.(element.MCP); ok {
			continue
		}
		if err := e.Stamp(target, ctx); err != nil {
			return simerr.Wrapf(simerr.KindBadNetlist, err, "stamping %s", e.Name())
		}
	}
	return stampCoupling(ckt, target, ctx)
}

func stampCoupling(ckt *circuit.Circuit, target *matrix.CircuitMatrix, ctx *element.StepContext) error {
	if ckt.Coupling().Len() == 0 {
		return nil
	}
	haveHistory := ctx.Mode == element.Transient && ctx.PrevStep > 0
	return ckt.Coupling().Stamp(target, ctx.Step, ctx.PrevStep, haveHistory)
}

// RunTransient runs the circuit from tStart to tStop with the
// variable-step BDF2 loop: per step, predict the next solution from the
// last two accepted ones, update every reactive element's companion
// model, stamp/solve (or MCP-solve), estimate LTE (both per-element and,
// if enabled, against the system-level predictor), damp the accepted
// solution, and accept or halve-and-retry. tStart is typically 0;
// sampling before tStart is never recorded. A degenerate tStart==tStop
// call still returns the single operating-point sample.
func (e *Engine) RunTransient(tStart, tStop float64) (*result.Transient, error) {
	ckt := e.Circuit
	ckt.InitTransient()

	if err := e.OperatingPoint(); err != nil {
		return nil, err
	}

	res := result.NewTransient(ckt.NodeNames(), ckt.BranchNames(), stateNames(ckt))

	t := tStart
	if !(t < tStop-1e-15) {
		sol := ckt.Matrix.Solution()
		res.Points = append(res.Points, buildPoint(ckt, sol, t))
		res.Stats.FinalTime = t
		return res, nil
	}

	h := e.Params.InitialStep
	hPrev := 0.0
	rejects := 0

	var xPrev1, xPrev2 []float64

	var stepStats *result.Stats
	if e.Params.CollectStatistics {
		stepStats = &res.Stats
	}

	for t < tStop-1e-15 {
		if e.Params.Cancel != nil && e.Params.Cancel() {
			return res, simerr.New(simerr.KindCancelled, "transient run cancelled")
		}

		hTry := h
		if t+hTry > tStop {
			hTry = tStop - t
		}
		if hTry < e.Params.MinStep {
			hTry = e.Params.MinStep
		}

		var xPred []float64
		if e.Params.EnablePredictor && xPrev1 != nil && xPrev2 != nil && hPrev > 0 {
			ratio := hTry / hPrev
			xPred = make([]float64, len(xPrev1))
			for j := range xPred {
				xPred[j] = xPrev1[j] + ratio*(xPrev1[j]-xPrev2[j])
			}
		}

		ctx := &element.StepContext{
			Time: t + hTry, Step: hTry, PrevStep: hPrev,
			Mode: element.Transient, Gmin: e.Params.Gmin, Temp: roomTemp,
		}
		for _, r := range ckt.Reactives() {
			r.UpdateCompanion(hTry)
		}

		err := e.assembleAndSolve(ctx, e.Params.Gmin, stepStats)
		if err != nil {
			kind := simerr.Classify(err)
			if kind.Recoverable() && hTry > e.Params.MinStep {
				h = math.Max(hTry/2, e.Params.MinStep)
				rejects++
				res.Stats.RejectedSteps++
				if rejects > e.Params.MaxReject {
					return res, simerr.Wrap(simerr.KindStepTooSmall, err, "step rejection budget exhausted")
				}
				continue
			}
			return res, err
		}

		sol := ckt.Matrix.Solution()
		lte := e.worstLTE(ckt, hTry, sol)

		predictorTripped := false
		if xPred != nil {
			for j := range sol {
				scale := e.Params.Reltol*math.Abs(sol[j]) + e.Params.Abstol
				if scale == 0 {
					continue
				}
				if math.Abs(sol[j]-xPred[j])/scale > e.Params.ConvergenceTolerance {
					predictorTripped = true
					break
				}
			}
		}

		if e.Params.AdaptiveStep && (lte > e.Params.LteTol || predictorTripped) && hTry > e.Params.MinStep {
			h = math.Max(hTry/2, e.Params.MinStep)
			rejects++
			res.Stats.RejectedSteps++
			if rejects > e.Params.MaxReject {
				return res, simerr.New(simerr.KindStepTooSmall, "LTE rejection budget exhausted")
			}
			continue
		}
		rejects = 0

		if e.Params.EnableDamping && xPrev1 != nil && e.Params.MaxVoltageStep > 0 {
			limit := e.Params.MaxVoltageStep * e.Params.DampingFactor
			for j := range sol {
				if j >= len(xPrev1) {
					break
				}
				diff := sol[j] - xPrev1[j]
				if diff > limit {
					sol[j] = xPrev1[j] + limit
				} else if diff < -limit {
					sol[j] = xPrev1[j] - limit
				}
			}
		}

		for _, el := range ckt.Elements() {
			el.UpdateHistory(sol, hTry)
		}
		res.Append(buildPoint(ckt, sol, t+hTry), hTry)
		if e.Params.OnStep != nil {
			e.Params.OnStep(t+hTry, sol)
		}

		xPrev2 = xPrev1
		xPrev1 = append([]float64(nil), sol...)

		hPrev = hTry
		t += hTry

		if !e.Params.AdaptiveStep {
			continue
		}
		if lte < e.Params.LteTol/4 {
			h = math.Min(hTry*1.5, e.Params.MaxStep)
		} else {
			h = math.Min(hTry*1.1, e.Params.MaxStep)
		}
	}

	return res, nil
}

func (e *Engine) worstLTE(ckt *circuit.Circuit, h float64, sol []float64) float64 {
	worst := 0.0
	for _, r := range ckt.Reactives() {
		actual := r.SolvedState(sol)
		if v := r.EstimateLTE(h, actual); v > worst {
			worst = v
		}
	}
	return worst
}

func stateNames(ckt *circuit.Circuit) []string {
	names := make([]string, len(ckt.Reactives()))
	for i, r := range ckt.Reactives() {
		names[i] = r.Name()
	}
	return names
}

func buildPoint(ckt *circuit.Circuit, sol []float64, t float64) result.Point {
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

	reactives := ckt.Reactives()
	states := make([]float64, len(reactives))
	for i, r := range reactives {
		states[i] = r.SolvedState(sol)
	}

	return result.Point{Time: t, NodeVoltages: voltages, BranchCurrents: currents, StateVariables: states}
}
