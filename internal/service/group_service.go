// Package service composes the group lifecycle, the allocation engine and a
// Store into the operations exposed over HTTP and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mmynk/tabsplit/internal/lifecycle"
	"github.com/mmynk/tabsplit/internal/metrics"
	"github.com/mmynk/tabsplit/internal/models"
	"github.com/mmynk/tabsplit/internal/storage"
)

// GroupService creates, edits and finishes groups and tracks the current one.
type GroupService struct {
	store   storage.Store
	manager *lifecycle.Manager
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewGroupService creates a new GroupService with the given storage backend.
// A nil manager, metrics or logger falls back to a default.
func NewGroupService(store storage.Store, manager *lifecycle.Manager, m *metrics.Metrics, logger *slog.Logger) *GroupService {
	if manager == nil {
		manager = lifecycle.NewManager()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GroupService{store: store, manager: manager, metrics: m, logger: logger}
}

// CreateGroup creates a new open group and makes it the current group.
func (s *GroupService) CreateGroup(ctx context.Context, placeName string, participantCount int) (*models.Group, error) {
	s.logger.Info("CreateGroup request received",
		"place", placeName,
		"participants", participantCount,
	)

	group, err := s.manager.CreateGroup(placeName, participantCount)
	if err != nil {
		s.logger.Warn("CreateGroup rejected", "error", err)
		return nil, err
	}

	if err := s.store.Put(ctx, group); err != nil {
		s.logger.Error("CreateGroup failed", "error", err)
		return nil, fmt.Errorf("failed to save group: %w", err)
	}
	if err := s.store.SetCurrent(ctx, group.ID); err != nil {
		s.logger.Error("Failed to select new group", "group_id", group.ID, "error", err)
		return nil, fmt.Errorf("failed to select group: %w", err)
	}

	s.metrics.GroupsCreated.Inc()
	s.logger.Info("Group created", "group_id", group.ID)
	return group, nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.store.Get(ctx, groupID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: group %s", lifecycle.ErrNotFound, groupID)
		}
		s.logger.Error("GetGroup failed", "group_id", groupID, "error", err)
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// CurrentGroup returns the group selected as current. It returns
// lifecycle.ErrNotFound when none is selected or the selection is stale.
func (s *GroupService) CurrentGroup(ctx context.Context) (*models.Group, error) {
	id, err := s.store.GetCurrent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current group: %w", err)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: no current group", lifecycle.ErrNotFound)
	}
	return s.GetGroup(ctx, id)
}

// SelectGroup makes an existing group the current one.
func (s *GroupService) SelectGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetCurrent(ctx, group.ID); err != nil {
		return nil, fmt.Errorf("failed to select group: %w", err)
	}
	s.logger.Info("Group selected", "group_id", group.ID)
	return group, nil
}

// ClearCurrent unsets the current group.
func (s *GroupService) ClearCurrent(ctx context.Context) error {
	if err := s.store.ClearCurrent(ctx); err != nil {
		return fmt.Errorf("failed to clear current group: %w", err)
	}
	return nil
}

// AddItem adds a line item to an open group.
func (s *GroupService) AddItem(ctx context.Context, groupID string, in lifecycle.ItemInput) (*models.Group, error) {
	s.logger.Info("AddItem request received",
		"group_id", groupID,
		"name", in.Name,
		"participants", len(in.Participants),
	)

	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	updated, err := s.manager.AddItem(group, in)
	if err != nil {
		s.logger.Warn("AddItem rejected", "group_id", groupID, "error", err)
		return nil, err
	}
	if err := s.store.Put(ctx, updated); err != nil {
		s.logger.Error("AddItem failed", "group_id", groupID, "error", err)
		return nil, fmt.Errorf("failed to save group: %w", err)
	}

	s.metrics.ItemsAdded.Inc()
	return updated, nil
}

// RemoveItem removes a line item from an open group. Removing an unknown
// item leaves the group unchanged.
func (s *GroupService) RemoveItem(ctx context.Context, groupID, itemID string) (*models.Group, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	updated, err := s.manager.RemoveItem(group, itemID)
	if err != nil {
		s.logger.Warn("RemoveItem rejected", "group_id", groupID, "item_id", itemID, "error", err)
		return nil, err
	}
	if len(updated.Items) == len(group.Items) {
		return updated, nil
	}
	if err := s.store.Put(ctx, updated); err != nil {
		s.logger.Error("RemoveItem failed", "group_id", groupID, "error", err)
		return nil, fmt.Errorf("failed to save group: %w", err)
	}

	s.metrics.ItemsRemoved.Inc()
	s.logger.Info("Item removed", "group_id", groupID, "item_id", itemID)
	return updated, nil
}

// FinishGroup marks a group finished and makes it the current group, so a
// following CurrentGroup shows its final split. Finishing twice is a no-op
// apart from the selection.
func (s *GroupService) FinishGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if !group.IsFinished() {
		updated, err := s.manager.FinishGroup(group)
		if err != nil {
			return nil, err
		}
		if err := s.store.Put(ctx, updated); err != nil {
			s.logger.Error("FinishGroup failed", "group_id", groupID, "error", err)
			return nil, fmt.Errorf("failed to save group: %w", err)
		}
		group = updated

		s.metrics.GroupsFinished.Inc()
		s.logger.Info("Group finished", "group_id", groupID, "items", len(group.Items))
	}

	if err := s.store.SetCurrent(ctx, group.ID); err != nil {
		s.logger.Error("Failed to select finished group", "group_id", groupID, "error", err)
		return nil, fmt.Errorf("failed to select group: %w", err)
	}
	return group, nil
}

// ListOpen returns the open groups in creation order.
func (s *GroupService) ListOpen(ctx context.Context) ([]*models.Group, error) {
	return s.list(ctx, models.StatusOpen)
}

// ListHistory returns finished groups, most recently created first.
func (s *GroupService) ListHistory(ctx context.Context) ([]*models.Group, error) {
	groups, err := s.list(ctx, models.StatusFinished)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].CreatedAt > groups[j].CreatedAt
	})
	return groups, nil
}

func (s *GroupService) list(ctx context.Context, status models.GroupStatus) ([]*models.Group, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		s.logger.Error("ListGroups failed", "error", err)
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	groups := make([]*models.Group, 0, len(all))
	for _, g := range all {
		if g.Status == status {
			groups = append(groups, g)
		}
	}
	return groups, nil
}
