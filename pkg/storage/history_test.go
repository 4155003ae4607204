package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := Open("sqlite", filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	rec := NewRecord("Dell", 14, 1000, 8, "knn+random_forest", 725)
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Brand != "Dell" || got.ScreenSize != 14 || got.HardDisk != 1000 || got.RAM != 8 {
		t.Fatalf("features: %+v", got)
	}
	if got.Selection != "knn+random_forest" || got.Price != 725 {
		t.Fatalf("outcome: %+v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("created_at: got %v, want %v", got.CreatedAt, rec.CreatedAt)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, price := range []float64{100, 200, 300} {
		rec := NewRecord("HP", 15.6, 512, 16, "knn", price)
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.Save(ctx, rec); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Price != 300 || recent[1].Price != 200 {
		t.Fatalf("recent: %+v", recent)
	}

	n, err := s.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("count: %d %v", n, err)
	}

	if err := s.Truncate(); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Fatalf("count after truncate: %d", n)
	}
}

func TestSaveFillsIDAndTime(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.Save(ctx, Record{Brand: "Lenovo", ScreenSize: 14, HardDisk: 256, RAM: 4, Selection: "random_forest", Price: 400}); err != nil {
		t.Fatalf("save: %v", err)
	}
	recent, err := s.Recent(ctx, 0)
	if err != nil || len(recent) != 1 {
		t.Fatalf("recent: %v %v", recent, err)
	}
	if recent[0].ID == "" || recent[0].CreatedAt.IsZero() {
		t.Fatalf("id/time not filled: %+v", recent[0])
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
