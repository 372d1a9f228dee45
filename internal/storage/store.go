// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/tabsplit/internal/models"
)

// ErrNotFound is returned when a requested group doesn't exist.
var ErrNotFound = errors.New("group not found")

// Store defines the interface for group storage operations.
// Groups are read and written as whole records. There is no versioning:
// the last Put for a group wins.
type Store interface {
	// Get retrieves a group by its ID, including participants and items.
	// Returns ErrNotFound if the group does not exist.
	Get(ctx context.Context, groupID string) (*models.Group, error)

	// Put creates or fully replaces a group record.
	Put(ctx context.Context, group *models.Group) error

	// ListAll returns every stored group in creation order.
	ListAll(ctx context.Context) ([]*models.Group, error)

	// SetCurrent records groupID as the current group.
	SetCurrent(ctx context.Context, groupID string) error

	// GetCurrent returns the current group ID, or "" when none is set.
	// The ID may refer to a group that no longer exists.
	GetCurrent(ctx context.Context) (string, error)

	// ClearCurrent unsets the current group.
	ClearCurrent(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
