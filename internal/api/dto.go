package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmynk/tabsplit/internal/calculator"
	"github.com/mmynk/tabsplit/internal/lifecycle"
	"github.com/mmynk/tabsplit/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type createGroupRequest struct {
	PlaceName        string `json:"placeName" validate:"required"`
	ParticipantCount int    `json:"participantCount" validate:"required"`
}

type selectGroupRequest struct {
	GroupID string `json:"groupId" validate:"required"`
}

type addItemRequest struct {
	Name         string   `json:"name" validate:"required"`
	Quantity     int      `json:"quantity" validate:"gte=1"`
	UnitPrice    float64  `json:"unitPrice" validate:"gte=0"`
	TotalValue   float64  `json:"totalValue" validate:"gte=0"`
	Participants []string `json:"participants" validate:"required,min=1,dive,required"`
}

func (r addItemRequest) input() lifecycle.ItemInput {
	return lifecycle.ItemInput{
		Name:         r.Name,
		Quantity:     r.Quantity,
		UnitPrice:    r.UnitPrice,
		TotalValue:   r.TotalValue,
		Participants: r.Participants,
	}
}

// tipRequest leaves mode checks to calculator.ValidateTip so that a tip with
// no amount or no participants is ignored rather than rejected.
type tipRequest struct {
	Mode         string   `json:"mode"`
	Amount       float64  `json:"amount"`
	Participants []string `json:"participants"`
	Label        string   `json:"label"`
}

// allocationRequest is the body of the allocation, share and tip preview
// endpoints. An empty body means no tip.
type allocationRequest struct {
	Tip *tipRequest `json:"tip" validate:"omitempty"`
}

func (r allocationRequest) tipSpec() *models.TipSpec {
	if r.Tip == nil {
		return nil
	}
	return &models.TipSpec{
		Mode:         models.TipMode(r.Tip.Mode),
		Amount:       r.Tip.Amount,
		Participants: r.Tip.Participants,
		Label:        r.Tip.Label,
	}
}

// validateRequest runs struct validation and reports the first failure as
// lifecycle.ErrInvalidInput so handlers map it to 400.
func validateRequest(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed on %q", lifecycle.ErrInvalidInput, jsonField(fe), fe.Tag())
	}
	return fmt.Errorf("%w: %v", lifecycle.ErrInvalidInput, err)
}

// jsonField turns "addItemRequest.Participants[0]" into "participants[0]".
func jsonField(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	if ns == "" {
		return fe.Field()
	}
	return strings.ToLower(ns[:1]) + ns[1:]
}

type itemResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Quantity     int      `json:"quantity"`
	UnitPrice    float64  `json:"unitPrice"`
	TotalValue   float64  `json:"totalValue"`
	Participants []string `json:"participants"`
}

type groupResponse struct {
	ID           string         `json:"id"`
	PlaceName    string         `json:"placeName"`
	Participants []string       `json:"participants"`
	Items        []itemResponse `json:"items"`
	ItemsTotal   float64        `json:"itemsTotal"`
	CreatedAt    int64          `json:"createdAt"`
	Status       string         `json:"status"`
}

func toGroupResponse(g *models.Group) groupResponse {
	items := make([]itemResponse, len(g.Items))
	for i, it := range g.Items {
		participants := it.Participants
		if participants == nil {
			participants = []string{}
		}
		items[i] = itemResponse{
			ID:           it.ID,
			Name:         it.Name,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice(),
			TotalValue:   it.TotalValue,
			Participants: participants,
		}
	}
	return groupResponse{
		ID:           g.ID,
		PlaceName:    g.PlaceName,
		Participants: g.Participants,
		Items:        items,
		ItemsTotal:   g.ItemsTotal(),
		CreatedAt:    g.CreatedAt,
		Status:       string(g.Status),
	}
}

func toGroupResponses(groups []*models.Group) []groupResponse {
	out := make([]groupResponse, len(groups))
	for i, g := range groups {
		out[i] = toGroupResponse(g)
	}
	return out
}

type entryResponse struct {
	Source string  `json:"source"`
	Value  float64 `json:"value"`
}

type personResponse struct {
	Person  string          `json:"person"`
	Total   float64         `json:"total"`
	Entries []entryResponse `json:"entries"`
}

type allocationResponse struct {
	GroupID     string           `json:"groupId"`
	PerPerson   []personResponse `json:"perPerson"`
	GrandTotal  float64          `json:"grandTotal"`
	TipValue    float64          `json:"tipValue"`
	Unallocated float64          `json:"unallocated"`
}

func toAllocationResponse(groupID string, a *calculator.Allocation) allocationResponse {
	people := make([]personResponse, len(a.PerPerson))
	for i, p := range a.PerPerson {
		entries := make([]entryResponse, len(p.Entries))
		for j, e := range p.Entries {
			entries[j] = entryResponse{Source: e.SourceName, Value: e.Value}
		}
		people[i] = personResponse{Person: p.Person, Total: p.Total, Entries: entries}
	}
	return allocationResponse{
		GroupID:     groupID,
		PerPerson:   people,
		GrandTotal:  a.GrandTotal,
		TipValue:    a.TipValue,
		Unallocated: a.Unallocated,
	}
}
