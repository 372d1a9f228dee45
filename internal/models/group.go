package models

// GroupStatus is the lifecycle state of a Group.
type GroupStatus string

const (
	// StatusOpen groups accept item additions and removals.
	StatusOpen GroupStatus = "open"

	// StatusFinished groups are closed and appear in history.
	// The transition from open to finished happens once and is irreversible.
	StatusFinished GroupStatus = "finished"
)

// Group is one bill-splitting session covering a single place and a fixed participant list.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// PlaceName is the human-readable name of the place (e.g., "Bar do João").
	PlaceName string

	// Participants is the ordered list of participant labels ("P1".."Pn").
	// Order is significant only for display; allocation output follows it.
	Participants []string

	// Items are the line items recorded so far, in insertion order.
	Items []LineItem

	// CreatedAt is the Unix timestamp (milliseconds) when the group was created.
	CreatedAt int64

	// Status is either StatusOpen or StatusFinished.
	Status GroupStatus
}

// IsFinished reports whether the group has been closed.
func (g *Group) IsFinished() bool {
	return g.Status == StatusFinished
}

// HasParticipant reports whether label is one of the group's participants.
func (g *Group) HasParticipant(label string) bool {
	for _, p := range g.Participants {
		if p == label {
			return true
		}
	}
	return false
}

// ItemsTotal is the sum of every item's total value, regardless of assignment.
func (g *Group) ItemsTotal() float64 {
	var total float64
	for _, item := range g.Items {
		total += item.TotalValue
	}
	return total
}

// FindItem returns the index of the item with the given ID, or -1.
func (g *Group) FindItem(itemID string) int {
	for i, item := range g.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can derive a new snapshot without
// touching the original.
func (g *Group) Clone() *Group {
	clone := *g
	clone.Participants = append([]string(nil), g.Participants...)
	if g.Items != nil {
		clone.Items = make([]LineItem, len(g.Items))
		for i, item := range g.Items {
			clone.Items[i] = item
			clone.Items[i].Participants = append([]string(nil), item.Participants...)
		}
	}
	return &clone
}

// LineItem represents a single purchased item on the tab.
// Items can be shared among any subset of the group's participants.
type LineItem struct {
	// ID is the unique identifier for the item (UUID format).
	ID string

	// Name is the name of the item (e.g., "Pizza Margherita").
	Name string

	// Quantity is the number of units ordered. Always at least 1.
	Quantity int

	// TotalValue is the quantity-inclusive value (unit price × quantity).
	TotalValue float64

	// Participants is the set of participant labels who shared this item.
	// The item is split equally among them.
	Participants []string
}

// UnitPrice derives the per-unit price for display.
func (i LineItem) UnitPrice() float64 {
	if i.Quantity <= 0 {
		return i.TotalValue
	}
	return i.TotalValue / float64(i.Quantity)
}
