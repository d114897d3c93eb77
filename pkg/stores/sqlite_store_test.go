package stores

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func newEntry(id, op string, at time.Time) *Entry {
	return &Entry{
		EventID:   id,
		Type:      "dropin.installed",
		Operation: op,
		Path:      "/srv/www/wp-content/db.php",
		Level:     EntryLevelInfo,
		Message:   "Drop-in installed at /srv/www/wp-content/db.php",
		Timestamp: at,
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

// TestStoreMigrations checks the journal table exists and migrating twice is harmless.
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var count int
	if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM journal").Scan(&count); err != nil {
		t.Fatalf("journal table is not accessible: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestAppendAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []*Entry{
		newEntry("evt-1", "install", base),
		newEntry("evt-2", "remove", base.Add(time.Minute)),
		newEntry("evt-3", "install", base.Add(2*time.Minute)),
	}
	entries[1].Type = "dropin.removed"

	for _, e := range entries {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("append %s: %v", e.EventID, err)
		}
		if e.ID == 0 {
			t.Errorf("expected id to be assigned for %s", e.EventID)
		}
	}

	all, err := store.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].EventID != "evt-3" || all[2].EventID != "evt-1" {
		t.Errorf("expected newest first, got %s..%s", all[0].EventID, all[2].EventID)
	}
	if all[0].Details != "{}" {
		t.Errorf("expected empty details object, got %q", all[0].Details)
	}
	if !all[2].Timestamp.Equal(base) {
		t.Errorf("expected timestamp %v, got %v", base, all[2].Timestamp)
	}

	installs, err := store.List(ctx, Filter{Operation: "install"})
	if err != nil {
		t.Fatalf("list installs: %v", err)
	}
	if len(installs) != 2 {
		t.Errorf("expected 2 install entries, got %d", len(installs))
	}

	removed, err := store.List(ctx, Filter{Type: "dropin.removed"})
	if err != nil {
		t.Fatalf("list removed: %v", err)
	}
	if len(removed) != 1 || removed[0].EventID != "evt-2" {
		t.Errorf("expected only evt-2, got %v", removed)
	}

	recent, err := store.List(ctx, Filter{Since: base.Add(90 * time.Second)})
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 1 || recent[0].EventID != "evt-3" {
		t.Errorf("expected only evt-3 since cutoff, got %d entries", len(recent))
	}
}

func TestAppendIsIdempotentPerEvent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := store.Append(ctx, newEntry("evt-dup", "install", time.Now())); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := store.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 entry, got %d", len(all))
	}

	if err := store.Append(ctx, &Entry{Type: "dropin.installed"}); err == nil {
		t.Error("expected error for missing event id")
	}
}

func TestListPagination(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		e := newEntry(fmt.Sprintf("evt-%d", i), "install", base.Add(time.Duration(i)*time.Second))
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	page, err := store.List(ctx, Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page))
	}
	if page[0].EventID != "evt-2" || page[1].EventID != "evt-1" {
		t.Errorf("unexpected page: %s, %s", page[0].EventID, page[1].EventID)
	}
}

func TestPrune(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = store.Append(ctx, newEntry("old", "install", now.Add(-48*time.Hour)))
	_ = store.Append(ctx, newEntry("new", "remove", now))

	n, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned entry, got %d", n)
	}

	all, _ := store.List(ctx, Filter{})
	if len(all) != 1 || all[0].EventID != "new" {
		t.Errorf("expected only the recent entry to remain")
	}
}

func TestOpenFileBackedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "journal.db")
	ctx := context.Background()

	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Append(ctx, newEntry("evt-file", "install", time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	all, err := reopened.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected entry to survive reopen, got %d", len(all))
	}
}
