package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mmynk/tabsplit/internal/models"
	"github.com/mmynk/tabsplit/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleGroup(id string, createdAt int64) *models.Group {
	return &models.Group{
		ID:           id,
		PlaceName:    "Bar do João",
		Participants: []string{"P1", "P2", "P3"},
		Items: []models.LineItem{
			{ID: "i1", Name: "Pizza", Quantity: 2, TotalValue: 90.0, Participants: []string{"P3", "P1"}},
			{ID: "i2", Name: "Beer", Quantity: 3, TotalValue: 37.5, Participants: []string{"P2"}},
		},
		CreatedAt: createdAt,
		Status:    models.StatusOpen,
	}
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("Put then Get returns the complete group", func(t *testing.T) {
		original := sampleGroup("g1", 1000)
		if err := store.Put(ctx, original); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		retrieved, err := store.Get(ctx, "g1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if !reflect.DeepEqual(retrieved, original) {
			t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", retrieved, original)
		}
	})

	t.Run("Put replaces items and status", func(t *testing.T) {
		group := sampleGroup("g2", 2000)
		if err := store.Put(ctx, group); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		group.Items = group.Items[1:]
		group.Status = models.StatusFinished
		if err := store.Put(ctx, group); err != nil {
			t.Fatalf("second Put failed: %v", err)
		}

		retrieved, err := store.Get(ctx, "g2")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(retrieved.Items) != 1 || retrieved.Items[0].ID != "i2" {
			t.Errorf("Items = %+v, want only i2", retrieved.Items)
		}
		if retrieved.Status != models.StatusFinished {
			t.Errorf("Status = %s, want finished", retrieved.Status)
		}
	})

	t.Run("item ids may repeat across groups", func(t *testing.T) {
		if err := store.Put(ctx, sampleGroup("g3", 3000)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		first, _ := store.Get(ctx, "g1")
		if len(first.Items) != 2 {
			t.Errorf("g1 items = %d, want 2", len(first.Items))
		}
	})

	t.Run("Get returns ErrNotFound for nonexistent group", func(t *testing.T) {
		_, err := store.Get(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListAll keeps creation order across updates", func(t *testing.T) {
		// Re-putting g1 must not move it to the end
		g1, _ := store.Get(ctx, "g1")
		g1.PlaceName = "Renamed"
		if err := store.Put(ctx, g1); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		groups, err := store.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		var ids []string
		for _, g := range groups {
			ids = append(ids, g.ID)
		}
		want := []string{"g1", "g2", "g3"}
		if !reflect.DeepEqual(ids, want) {
			t.Errorf("ListAll ids = %v, want %v", ids, want)
		}
		if groups[0].PlaceName != "Renamed" {
			t.Errorf("PlaceName = %s, want Renamed", groups[0].PlaceName)
		}
	})

	t.Run("item without participants round trips", func(t *testing.T) {
		group := sampleGroup("g4", 4000)
		group.Items = append(group.Items, models.LineItem{ID: "i3", Name: "Water", Quantity: 1, TotalValue: 5})
		if err := store.Put(ctx, group); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		retrieved, err := store.Get(ctx, "g4")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(retrieved.Items) != 3 || len(retrieved.Items[2].Participants) != 0 {
			t.Errorf("Items = %+v, want third item without participants", retrieved.Items)
		}
	})

	t.Run("Put rejects group without id", func(t *testing.T) {
		if err := store.Put(ctx, &models.Group{}); err == nil {
			t.Error("expected error for group without id")
		}
	})
}

func TestCurrentGroup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	current, err := store.GetCurrent(ctx)
	if err != nil {
		t.Fatalf("GetCurrent failed: %v", err)
	}
	if current != "" {
		t.Errorf("GetCurrent = %q, want empty", current)
	}

	for _, id := range []string{"g1", "g2"} {
		if err := store.SetCurrent(ctx, id); err != nil {
			t.Fatalf("SetCurrent failed: %v", err)
		}
		current, err = store.GetCurrent(ctx)
		if err != nil {
			t.Fatalf("GetCurrent failed: %v", err)
		}
		if current != id {
			t.Errorf("GetCurrent = %q, want %q", current, id)
		}
	}

	if err := store.ClearCurrent(ctx); err != nil {
		t.Fatalf("ClearCurrent failed: %v", err)
	}
	current, _ = store.GetCurrent(ctx)
	if current != "" {
		t.Errorf("GetCurrent after clear = %q, want empty", current)
	}
}

func TestInMemoryStore(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Put(ctx, sampleGroup("g1", 1)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := store.Get(ctx, "g1"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
}
