package swap

// PriorityLevel is the requested priority-fee tier.
type PriorityLevel string

const (
	PriorityMedium   PriorityLevel = "MEDIUM"
	PriorityHigh     PriorityLevel = "HIGH"
	PriorityVeryHigh PriorityLevel = "VERY_HIGH"
)

// ReferenceFees are the tiered compute-unit prices published by the fee
// oracle, in micro-lamports, plus a single base fee used when tiers are
// unavailable.
type ReferenceFees struct {
	Medium   uint64 `json:"m"`
	High     uint64 `json:"h"`
	VeryHigh uint64 `json:"vh"`
	SwapFee  uint64 `json:"swapFee"`
}

// Resolve picks the fee for a tier. If any tier is missing, the whole
// tier table is considered unreliable and the base SwapFee is used
// instead.
func (f ReferenceFees) Resolve(level PriorityLevel) uint64 {
	if f.Medium == 0 || f.High == 0 || f.VeryHigh == 0 {
		return f.SwapFee
	}
	switch level {
	case PriorityMedium:
		return f.Medium
	case PriorityHigh:
		return f.High
	case PriorityVeryHigh:
		return f.VeryHigh
	}
	return f.SwapFee
}

// FeeSource supplies the current reference fees. A zero-value return
// leaves the transaction's existing priority fee untouched.
type FeeSource func() ReferenceFees
