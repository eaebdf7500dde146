package sqlite

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"bactopo/internal/domain"
	"bactopo/internal/repository"
)

// newTestStore creates an in-memory SQLite store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func testGraph(t *testing.T, instance uint32) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	id := fmt.Sprintf("%d", instance)
	dev := g.Ensure(domain.KindDevice, id)
	dev.SetLabel("device://" + id)
	dev.SetInstance(instance)
	dev.SetAddress("10.0.0.5")
	dev.SetVendor(999)
	g.Ensure(domain.KindSubnet, "10.0.0.0/24")
	if err := dev.Relate(domain.RelationDeviceOnSubnet, "subnet://10.0.0.0/24"); err != nil {
		t.Fatalf("relate: %v", err)
	}
	return g
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	g := testGraph(t, 1234)
	takenAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	saved, err := store.Save(ctx, g, takenAt)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected a generated snapshot ID")
	}

	loaded, err := store.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !loaded.TakenAt.Equal(takenAt) {
		t.Errorf("expected taken_at %v, got %v", takenAt, loaded.TakenAt)
	}
	if !reflect.DeepEqual(loaded.Triples, g.Triples()) {
		t.Error("loaded triples differ from saved graph")
	}

	rebuilt, err := loaded.Graph()
	if err != nil {
		t.Fatalf("rebuild graph: %v", err)
	}
	if !reflect.DeepEqual(rebuilt.Triples(), g.Triples()) {
		t.Error("rebuilt graph not structurally equal to the original")
	}
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "no-such-id")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Latest(ctx); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	var last *repository.Snapshot
	for i := uint32(0); i < 3; i++ {
		snap, err := store.Save(ctx, testGraph(t, 1000+i), base.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		last = snap
	}

	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != last.ID {
		t.Errorf("expected latest %s, got %s", last.ID, latest.ID)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := uint32(0); i < 3; i++ {
		snap, err := store.Save(ctx, testGraph(t, 1000+i), base.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		ids = append(ids, snap.ID)
	}

	infos, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(infos))
	}
	for i, info := range infos {
		if want := ids[len(ids)-1-i]; info.ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, info.ID)
		}
	}
	// Two nodes per test graph: the device and its subnet.
	if infos[0].NodeCount != 2 {
		t.Errorf("expected node count 2, got %d", infos[0].NodeCount)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	for i := uint32(0); i < 5; i++ {
		if _, err := store.Save(ctx, testGraph(t, 1000+i), base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	removed, err := store.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}

	infos, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(infos))
	}
	if !infos[0].TakenAt.After(infos[1].TakenAt) {
		t.Error("expected the newest snapshots to survive the prune")
	}

	// Pruning below the retained count is a no-op.
	removed, err = store.Prune(ctx, 10)
	if err != nil {
		t.Fatalf("second prune: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected no removals, got %d", removed)
	}
}
