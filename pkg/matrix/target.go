package matrix

// StampTarget is the narrow accumulation interface elements stamp into.
// CircuitMatrix implements it; tests may supply a fake to assert stamp
// contributions directly without building a full sparse matrix.
type StampTarget interface {
	AddElement(i, j int, value float64) // 1-based indexing; ground (<=0) is a no-op
	AddRHS(i int, value float64)
}
