// Package calculator implements the allocation engine: it turns a Group's
// items and an optional tip into per-participant totals.
//
// All functions here are pure. They perform no I/O, never mutate their
// input and return identical output for identical input.
package calculator

import (
	"github.com/mmynk/tabsplit/internal/models"
)

// Allocation is the engine output for one Group.
type Allocation struct {
	// PerPerson follows the Group's participant order.
	PerPerson []models.PersonAllocation

	// GrandTotal is the sum of every item's value plus the applied tip.
	// Items without participants are counted here even though no one is charged.
	GrandTotal float64

	// TipValue is the tip added to GrandTotal, zero when no tip applied.
	TipValue float64

	// Unallocated is the value of items that have no participants.
	// GrandTotal - TipValue - Unallocated equals the sum of PerPerson totals
	// up to floating point error.
	Unallocated float64
}

// Allocate computes how much each participant owes for the group's items
// plus an optional tip.
//
// Each item is split equally among its participants without intermediate
// rounding. Items with no participants still count towards GrandTotal but
// are charged to no one. Shares attributed to labels that are not group
// participants are dropped.
//
// The only error is ErrInvalidTip for a malformed tip. A nil or degenerate
// tip (amount <= 0 or no participants) is ignored.
func Allocate(group *models.Group, tip *models.TipSpec) (*Allocation, error) {
	if err := ValidateTip(tip); err != nil {
		return nil, err
	}

	result := &Allocation{}
	if group == nil {
		return result, nil
	}

	// Initialize one accumulator per participant, in group order
	result.PerPerson = make([]models.PersonAllocation, len(group.Participants))
	index := make(map[string]int, len(group.Participants))
	for i, p := range group.Participants {
		result.PerPerson[i] = models.PersonAllocation{Person: p, Entries: []models.AllocationEntry{}}
		if _, exists := index[p]; !exists {
			index[p] = i
		}
	}

	for _, item := range group.Items {
		result.GrandTotal += item.TotalValue

		assigned := uniqueLabels(item.Participants)
		if len(assigned) == 0 {
			result.Unallocated += item.TotalValue
			continue
		}

		share := item.TotalValue / float64(len(assigned))
		for _, person := range assigned {
			if i, exists := index[person]; exists {
				credit(&result.PerPerson[i], item.Name, share)
			}
		}
	}

	applyTip(result, index, tip)

	return result, nil
}

// PersonTotal returns the allocated total for person, or false when the
// person is not part of the allocation.
func (a *Allocation) PersonTotal(person string) (float64, bool) {
	for _, p := range a.PerPerson {
		if p.Person == person {
			return p.Total, true
		}
	}
	return 0, false
}

// AllocatedTotal is the sum of every participant's total.
func (a *Allocation) AllocatedTotal() float64 {
	var total float64
	for _, p := range a.PerPerson {
		total += p.Total
	}
	return total
}

func credit(acc *models.PersonAllocation, source string, value float64) {
	acc.Total += value
	acc.Entries = append(acc.Entries, models.AllocationEntry{
		SourceName: source,
		Value:      value,
	})
}

// uniqueLabels drops duplicate labels, keeping first occurrence order.
func uniqueLabels(labels []string) []string {
	if len(labels) < 2 {
		return labels
	}
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
