// Package lifecycle governs how a Group is created, edited while open and
// finished.
//
// Every operation is a pure transformation: it validates its input and
// returns a new Group snapshot, leaving the argument untouched. Persisting
// the result is the caller's job.
package lifecycle

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tabsplit/internal/models"
)

const (
	// MinParticipants is the smallest group size accepted by CreateGroup.
	MinParticipants = 2
	// MaxParticipants is the largest group size accepted by CreateGroup.
	MaxParticipants = 20

	// MaxItemValue is the largest total value accepted for a single item.
	MaxItemValue = 1e12
	// MaxGroupTotal bounds the sum of a group's item values.
	MaxGroupTotal = 1e15
)

// Manager creates and edits groups. The zero value is not usable; use NewManager.
type Manager struct {
	now   func() time.Time
	newID func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides the generator used for group and item IDs.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// NewManager creates a Manager using UUIDs and the wall clock.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ParticipantLabels returns the deterministic labels "P1".."Pn".
func ParticipantLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("P%d", i+1)
	}
	return labels
}

// CreateGroup returns a new open group with no items.
func (m *Manager) CreateGroup(placeName string, participantCount int) (*models.Group, error) {
	placeName = strings.TrimSpace(placeName)
	if placeName == "" {
		return nil, invalid("place name is required")
	}
	if participantCount < MinParticipants || participantCount > MaxParticipants {
		return nil, invalid("participant count must be between %d and %d, got %d",
			MinParticipants, MaxParticipants, participantCount)
	}

	return &models.Group{
		ID:           m.newID(),
		PlaceName:    placeName,
		Participants: ParticipantLabels(participantCount),
		Items:        []models.LineItem{},
		CreatedAt:    m.now().UnixMilli(),
		Status:       models.StatusOpen,
	}, nil
}

// ItemInput describes an item to add to a group.
type ItemInput struct {
	Name     string
	Quantity int

	// TotalValue is the quantity-inclusive value. When zero, it is derived
	// from UnitPrice × Quantity.
	TotalValue float64
	UnitPrice  float64

	Participants []string
}

// totalValue resolves the quantity-inclusive value of the input.
func (in ItemInput) totalValue() float64 {
	if in.TotalValue == 0 && in.UnitPrice != 0 {
		return in.UnitPrice * float64(in.Quantity)
	}
	return in.TotalValue
}

// AddItem appends a new item with a fresh ID and returns the updated group.
func (m *Manager) AddItem(group *models.Group, in ItemInput) (*models.Group, error) {
	if group == nil {
		return nil, invalid("group is required")
	}
	if group.IsFinished() {
		return nil, ErrGroupFinished
	}
	if err := validateItem(group, in); err != nil {
		return nil, err
	}

	id := m.newID()
	for group.FindItem(id) >= 0 {
		id = m.newID()
	}

	updated := group.Clone()
	updated.Items = append(updated.Items, models.LineItem{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		Quantity:     in.Quantity,
		TotalValue:   in.totalValue(),
		Participants: append([]string(nil), in.Participants...),
	})
	return updated, nil
}

// RemoveItem removes the item with itemID. An unknown itemID is not an
// error: the returned group is an unchanged copy.
func (m *Manager) RemoveItem(group *models.Group, itemID string) (*models.Group, error) {
	if group == nil {
		return nil, invalid("group is required")
	}
	if group.IsFinished() {
		return nil, ErrGroupFinished
	}

	updated := group.Clone()
	if i := updated.FindItem(itemID); i >= 0 {
		updated.Items = append(updated.Items[:i], updated.Items[i+1:]...)
	}
	return updated, nil
}

// FinishGroup closes the group. Finishing a finished group is a no-op.
func (m *Manager) FinishGroup(group *models.Group) (*models.Group, error) {
	if group == nil {
		return nil, invalid("group is required")
	}
	updated := group.Clone()
	updated.Status = models.StatusFinished
	return updated, nil
}

func validateItem(group *models.Group, in ItemInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("item name is required")
	}
	if in.Quantity < 1 {
		return invalid("quantity must be at least 1, got %d", in.Quantity)
	}
	value := in.totalValue()
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return invalid("item value must be positive")
	}
	if value > MaxItemValue {
		return invalid("item value must not exceed %g", float64(MaxItemValue))
	}
	if group.ItemsTotal()+value > MaxGroupTotal {
		return invalid("group total must not exceed %g", float64(MaxGroupTotal))
	}
	if len(in.Participants) == 0 {
		return invalid("item needs at least one participant")
	}

	seen := make(map[string]bool, len(in.Participants))
	for _, p := range in.Participants {
		if !group.HasParticipant(p) {
			return invalid("unknown participant %q", p)
		}
		if seen[p] {
			return invalid("participant %q listed twice", p)
		}
		seen[p] = true
	}
	return nil
}
