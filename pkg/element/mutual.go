package element

// MutualCoupling is a declaration of a mutual-inductance edge between two
// named inductors, with coupling coefficient K. It is not an
// Element: it never stamps anything itself. The circuit preprocessor
// consumes it to build a pkg/coupling.Manager, which owns the actual
// cross-term stamping.
type MutualCoupling struct {
	Name       string
	IndA, IndB string
	K          float64
}

// NewMutualCoupling declares a coupling between inductors named indA and
// indB with coefficient k. Validation of k's range and of indA/indB's
// existence happens when the circuit preprocessor resolves the
// declaration against its registered inductors.
func NewMutualCoupling(name, indA, indB string, k float64) *MutualCoupling {
	return &MutualCoupling{Name: name, IndA: indA, IndB: indB, K: k}
}
