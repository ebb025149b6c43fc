package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/hazardscore/internal/model"
)

// repositories returns every implementation under test
func repositories(t *testing.T) map[string]Repository {
	t.Helper()

	sqlite, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"sqlite": sqlite,
	}
}

func mustCreate(t *testing.T, repo Repository, r model.Report) model.Report {
	t.Helper()
	if err := repo.Create(context.Background(), &r); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return r
}

func TestRepository_CreateAndGet(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			a := mustCreate(t, repo, model.Report{UserID: "u1", Text: "flood", HazardType: "flood", Lat: 1.5, Lon: 2.5, Score: 0.7})
			b := mustCreate(t, repo, model.Report{UserID: "u1", Text: "fire", HazardType: "fire", Lat: 3, Lon: 4, Score: 0.4})

			if a.ID <= 0 || b.ID <= a.ID {
				t.Errorf("Expected increasing IDs, got %d then %d", a.ID, b.ID)
			}
			if a.Timestamp.IsZero() {
				t.Error("Expected timestamp to be assigned")
			}
			if a.Phase != model.PhaseProvisional {
				t.Errorf("Expected provisional phase, got %s", a.Phase)
			}

			got, err := repo.Get(ctx, a.ID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.UserID != "u1" || got.HazardType != "flood" || got.Lat != 1.5 || got.Lon != 2.5 || got.Score != 0.7 {
				t.Errorf("Unexpected report: %+v", got)
			}
			if !got.Timestamp.Equal(a.Timestamp) {
				t.Errorf("Expected timestamp %v, got %v", a.Timestamp, got.Timestamp)
			}

			if _, err := repo.Get(ctx, 9999); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestRepository_KeepsGivenTimestamp(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ts := time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC)
			r := mustCreate(t, repo, model.Report{UserID: "u", HazardType: "flood", Timestamp: ts})

			got, err := repo.Get(context.Background(), r.ID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if !got.Timestamp.Equal(ts) {
				t.Errorf("Expected %v, got %v", ts, got.Timestamp)
			}
		})
	}
}

func TestRepository_ByHazardTypeAndCount(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			mustCreate(t, repo, model.Report{UserID: "alice", HazardType: "flood"})
			mustCreate(t, repo, model.Report{UserID: "bob", HazardType: "flood"})
			mustCreate(t, repo, model.Report{UserID: "alice", HazardType: "fire"})
			mustCreate(t, repo, model.Report{UserID: "alice", HazardType: model.HazardIgnore})

			floods, err := repo.ByHazardType(ctx, "flood")
			if err != nil {
				t.Fatalf("ByHazardType failed: %v", err)
			}
			if len(floods) != 2 || floods[0].ID >= floods[1].ID {
				t.Errorf("Expected 2 flood reports ordered by ID, got %+v", floods)
			}

			none, err := repo.ByHazardType(ctx, "tsunami")
			if err != nil || len(none) != 0 {
				t.Errorf("Expected empty result, got %v %v", none, err)
			}

			// Ignored reports still count towards volume
			if n, _ := repo.CountByUser(ctx, "alice"); n != 3 {
				t.Errorf("Expected 3 reports for alice, got %d", n)
			}
			if n, _ := repo.CountByUser(ctx, "nobody"); n != 0 {
				t.Errorf("Expected 0 reports for unknown user, got %d", n)
			}
		})
	}
}

func TestRepository_FinalizeAndDashboard(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			low := mustCreate(t, repo, model.Report{UserID: "a", HazardType: "flood", Score: 0.9})
			high := mustCreate(t, repo, model.Report{UserID: "b", HazardType: "fire", Score: 0.1})
			ignored := mustCreate(t, repo, model.Report{UserID: "c", HazardType: model.HazardIgnore})

			if err := repo.Finalize(ctx, low.ID, 0.2); err != nil {
				t.Fatalf("Finalize failed: %v", err)
			}
			if err := repo.Finalize(ctx, high.ID, 0.8); err != nil {
				t.Fatalf("Finalize failed: %v", err)
			}
			if err := repo.Finalize(ctx, ignored.ID, 0); err != nil {
				t.Fatalf("Finalize failed: %v", err)
			}
			if err := repo.Finalize(ctx, 9999, 0.5); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}

			got, _ := repo.Get(ctx, high.ID)
			if got.Score != 0.8 || got.Phase != model.PhaseFinal {
				t.Errorf("Expected final score 0.8, got %+v", got)
			}

			all, err := repo.Dashboard(ctx, 0)
			if err != nil {
				t.Fatalf("Dashboard failed: %v", err)
			}
			if len(all) != 2 {
				t.Errorf("Expected ignored report excluded at threshold 0, got %d reports", len(all))
			}

			surfaced, _ := repo.Dashboard(ctx, 0.5)
			if len(surfaced) != 1 || surfaced[0].ID != high.ID {
				t.Errorf("Expected only report %d above 0.5, got %+v", high.ID, surfaced)
			}

			// Threshold is inclusive
			edge, _ := repo.Dashboard(ctx, 0.8)
			if len(edge) != 1 {
				t.Errorf("Expected score == threshold to be surfaced, got %d", len(edge))
			}
		})
	}
}

func TestSQLiteRepository_NaNCoordinates(t *testing.T) {
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nan.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = repo.Close() }()

	r := mustCreate(t, repo, model.Report{UserID: "u", HazardType: "flood", Lat: math.NaN(), Lon: 10})
	got, err := repo.Get(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !math.IsNaN(got.Lat) || got.Lon != 10 {
		t.Errorf("Expected NaN latitude to round-trip, got %v/%v", got.Lat, got.Lon)
	}
}

func TestOpen(t *testing.T) {
	repo, err := Open(model.StoreConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("Open memory failed: %v", err)
	}
	if _, ok := repo.(*MemoryRepository); !ok {
		t.Errorf("Expected memory repository, got %T", repo)
	}

	if _, err := Open(model.StoreConfig{Driver: "mongo"}); err == nil {
		t.Error("Expected error for unknown driver")
	}
}
