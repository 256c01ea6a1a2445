// Package integrate holds the variable-step BDF2 coefficient law shared by
// every reactive element's companion model.
package integrate

// BDF2Coeffs is the (alpha, beta, gamma) triple the capacitor and inductor
// companion models apply as
//
//	i_C = C * (alpha*V_n + beta*V_n-1 + gamma*V_n-2)
//
// with the algebraic-consistency invariant alpha+beta+gamma == 0.
type BDF2Coeffs struct {
	Alpha, Beta, Gamma float64
}

// Coeffs computes the variable-step BDF2 coefficients for the current step
// size hn and previous step size hPrev. haveHistory must be
// false on the very first step of a run (no V_n-2 / I_n-2 yet), in which
// case the formula falls back to backward Euler (alpha=1/h, beta=-1/h,
// gamma=0). Callers gate this on their own step counter (>= 2), never on
// absolute time.
func Coeffs(hn, hPrev float64, haveHistory bool) BDF2Coeffs {
	if hn <= 0 {
		hn = 1e-15
	}

	if !haveHistory {
		return BDF2Coeffs{Alpha: 1.0 / hn, Beta: -1.0 / hn, Gamma: 0}
	}

	if hPrev <= 0 {
		hPrev = hn
	}

	denomA := hn * (hn + hPrev)
	alpha := (2*hn + hPrev) / denomA
	beta := -(hn + hPrev) / (hn * hPrev)
	gamma := hn / (hPrev * (hn + hPrev))

	return BDF2Coeffs{Alpha: alpha, Beta: beta, Gamma: gamma}
}

// Sum returns alpha+beta+gamma, which must be ~0 for any valid (hn, hPrev)
// pair — the algebraic-consistency check the coefficient tests assert.
func (c BDF2Coeffs) Sum() float64 { return c.Alpha + c.Beta + c.Gamma }
