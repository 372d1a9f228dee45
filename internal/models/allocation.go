package models

// TipMode selects how TipSpec.Amount is interpreted.
type TipMode string

const (
	// TipPercentage means Amount is in percentage points of the grand total.
	TipPercentage TipMode = "percentage"

	// TipFixed means Amount is in currency units.
	TipFixed TipMode = "fixed"
)

// TipSpec is an optional gratuity distributed over a subset of participants.
// It is supplied at allocation time and is not part of the persisted Group.
type TipSpec struct {
	Mode TipMode

	// Amount is percentage points or currency units depending on Mode.
	Amount float64

	// Participants is the set of participant labels who pay the tip.
	Participants []string

	// Label names the breakdown entry credited for the tip.
	// Empty means the engine default ("Tip").
	Label string
}

// AllocationEntry is one contribution to a participant's total.
type AllocationEntry struct {
	// SourceName is the item name, or the tip label.
	SourceName string

	// Value is this participant's share of the source.
	Value float64
}

// PersonAllocation is the computed amount one participant owes.
// It is recomputed on demand and never persisted.
type PersonAllocation struct {
	Person  string
	Total   float64
	Entries []AllocationEntry
}
