// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/tabsplit/internal/models"
	"github.com/mmynk/tabsplit/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

const currentGroupKey = "current_group_id"

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put inserts the group or replaces every stored field of an existing one.
func (s *SQLiteStore) Put(ctx context.Context, group *models.Group) error {
	if group == nil || group.ID == "" {
		return fmt.Errorf("group id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, place_name, created_at, status) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     place_name = excluded.place_name,
		     created_at = excluded.created_at,
		     status = excluded.status`,
		group.ID, group.PlaceName, group.CreatedAt, string(group.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}

	// Replace children wholesale; item_participants cascade from items
	if _, err := tx.ExecContext(ctx, "DELETE FROM group_participants WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	for i, label := range group.Participants {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO group_participants (group_id, position, label) VALUES (?, ?, ?)",
			group.ID, i, label,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	for i, item := range group.Items {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO items (group_id, id, position, name, quantity, total_value) VALUES (?, ?, ?, ?, ?, ?)",
			group.ID, item.ID, i, item.Name, item.Quantity, item.TotalValue,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}

		for j, participant := range item.Participants {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO item_participants (group_id, item_id, position, participant) VALUES (?, ?, ?, ?)",
				group.ID, item.ID, j, participant,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item participant: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Get retrieves a group by ID, including all participants and items.
func (s *SQLiteStore) Get(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	var status string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, place_name, created_at, status FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.PlaceName, &group.CreatedAt, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	group.Status = models.GroupStatus(status)

	if group.Participants, err = s.participants(ctx, groupID); err != nil {
		return nil, err
	}
	if group.Items, err = s.items(ctx, groupID); err != nil {
		return nil, err
	}

	return group, nil
}

// ListAll returns every group in the order it was first stored.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM groups ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	groups := make([]*models.Group, 0, len(ids))
	for _, id := range ids {
		group, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// SetCurrent stores groupID as the current group pointer.
func (s *SQLiteStore) SetCurrent(ctx context.Context, groupID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		currentGroupKey, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to set current group: %w", err)
	}
	return nil
}

// GetCurrent returns the current group pointer, or "" when unset.
func (s *SQLiteStore) GetCurrent(ctx context.Context) (string, error) {
	var groupID string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", currentGroupKey).Scan(&groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get current group: %w", err)
	}
	return groupID, nil
}

// ClearCurrent removes the current group pointer.
func (s *SQLiteStore) ClearCurrent(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", currentGroupKey); err != nil {
		return fmt.Errorf("failed to clear current group: %w", err)
	}
	return nil
}

func (s *SQLiteStore) participants(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT label FROM group_participants WHERE group_id = ? ORDER BY position",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return labels, nil
}

func (s *SQLiteStore) items(ctx context.Context, groupID string) ([]models.LineItem, error) {
	// Assignments are fetched in one query and bucketed by item
	assignments, err := s.itemParticipants(ctx, groupID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, quantity, total_value FROM items WHERE group_id = ? ORDER BY position",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	items := []models.LineItem{}
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.TotalValue); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.Participants = assignments[item.ID]
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) itemParticipants(ctx context.Context, groupID string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT item_id, participant FROM item_participants WHERE group_id = ? ORDER BY item_id, position",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get item assignments: %w", err)
	}
	defer rows.Close()

	assignments := make(map[string][]string)
	for rows.Next() {
		var itemID, participant string
		if err := rows.Scan(&itemID, &participant); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments[itemID] = append(assignments[itemID], participant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}
	return assignments, nil
}
