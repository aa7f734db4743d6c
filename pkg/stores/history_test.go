package stores

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/openlpar/hmcctl/pkg/engine"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := NewHistoryStore(Config{Path: filepath.Join(t.TempDir(), "history.db")})
	if err != nil {
		t.Fatalf("NewHistoryStore: %v", err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecord(id, target string, started time.Time) engine.InvocationRecord {
	return engine.InvocationRecord{
		ID:       id,
		Action:   "poweron",
		Target:   target,
		Changed:  true,
		Status:   "success",
		Started:  started,
		Duration: 42 * time.Second,
	}
}

func TestNewHistoryStoreRequiresPath(t *testing.T) {
	if _, err := NewHistoryStore(Config{}); err == nil {
		t.Fatal("want error for empty path")
	}
}

func TestRecordAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Record(ctx, sampleRecord("run-1", "p9-sys", started)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	inv, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if inv.Action != "poweron" || inv.Target != "p9-sys" || !inv.Changed {
		t.Errorf("unexpected row %+v", inv)
	}
	if inv.Duration != 42*time.Second {
		t.Errorf("duration = %v", inv.Duration)
	}
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get(context.Background(), "nope"); err == nil {
		t.Fatal("want error for missing id")
	}
}

func TestListNewestFirstWithTargetFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, target := range []string{"p9-sys", "p9-sys", "p10-sys"} {
		rec := sampleRecord("run-"+string(rune('a'+i)), target, base.Add(time.Duration(i)*time.Minute))
		if err := store.Record(ctx, rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	list, err := store.List(ctx, ListOptions{Target: "p9-sys"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ID != "run-b" {
		t.Errorf("first = %s, want the newest row", list[0].ID)
	}
}

func TestListLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		rec := sampleRecord("run-"+string(rune('0'+i)), "p9-sys", base.Add(time.Duration(i)*time.Second))
		if err := store.Record(ctx, rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	list, err := store.List(ctx, ListOptions{Limit: 3})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("len = %d, want 3", len(list))
	}
}

func TestPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := store.Record(ctx, sampleRecord("run-old", "p9-sys", old)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, sampleRecord("run-new", "p9-sys", recent)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	n, err := store.Prune(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}
	if _, err := store.Get(ctx, "run-new"); err != nil {
		t.Errorf("recent row must survive: %v", err)
	}
}
