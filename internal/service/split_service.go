package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/tabsplit/internal/calculator"
	"github.com/mmynk/tabsplit/internal/metrics"
	"github.com/mmynk/tabsplit/internal/models"
	"github.com/mmynk/tabsplit/internal/summary"
)

// SplitService computes allocations for stored groups.
// Tips are supplied per request and never persisted.
type SplitService struct {
	groups  *GroupService
	format  summary.Format
	tipName string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewSplitService creates a SplitService reading groups through groups.
// tipLabel names the tip entry when a request leaves TipSpec.Label empty.
func NewSplitService(groups *GroupService, format summary.Format, tipLabel string) *SplitService {
	return &SplitService{
		groups:  groups,
		format:  format,
		tipName: tipLabel,
		metrics: groups.metrics,
		logger:  groups.logger,
	}
}

// Allocate computes the per-person allocation of a group with an optional tip.
func (s *SplitService) Allocate(ctx context.Context, groupID string, tip *models.TipSpec) (*calculator.Allocation, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.allocate(group, tip)
}

// PreviewTip returns the value a tip would have on the group's items total
// and the amount each tip participant would pay.
func (s *SplitService) PreviewTip(ctx context.Context, groupID string, tip *models.TipSpec) (value, share float64, err error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return 0, 0, err
	}
	if err := calculator.ValidateTip(tip); err != nil {
		return 0, 0, err
	}
	total := group.ItemsTotal()
	return calculator.TipValue(total, tip), calculator.TipShare(total, tip), nil
}

// ShareText renders the group's allocation as shareable text.
func (s *SplitService) ShareText(ctx context.Context, groupID string, tip *models.TipSpec) (string, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return "", err
	}
	a, err := s.allocate(group, tip)
	if err != nil {
		return "", err
	}
	return summary.ShareText(group.PlaceName, a, s.format), nil
}

// Breakdown renders every participant's entries for the group.
func (s *SplitService) Breakdown(ctx context.Context, groupID string, tip *models.TipSpec) (string, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return "", err
	}
	a, err := s.allocate(group, tip)
	if err != nil {
		return "", err
	}
	return summary.Breakdown(a, s.format), nil
}

func (s *SplitService) allocate(group *models.Group, tip *models.TipSpec) (*calculator.Allocation, error) {
	if tip != nil && tip.Label == "" && s.tipName != "" {
		labelled := *tip
		labelled.Label = s.tipName
		tip = &labelled
	}

	a, err := calculator.Allocate(group, tip)
	if err != nil {
		s.logger.Warn("Allocate rejected", "group_id", group.ID, "error", err)
		return nil, err
	}

	mode := "none"
	if a.TipValue > 0 {
		mode = string(tip.Mode)
	}
	s.metrics.Allocations.WithLabelValues(mode).Inc()
	s.metrics.AllocatedAmount.Observe(a.GrandTotal)

	s.logger.Debug("Allocation computed",
		"group_id", group.ID,
		"grand_total", a.GrandTotal,
		"tip", a.TipValue,
		"unallocated", a.Unallocated,
	)
	return a, nil
}
