package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/model"
)

// flakySink fails its first n Save calls, then accepts everything.
type flakySink struct {
	failFirst int
	saves     [][]model.ScoredCandidate
	known     []KnownRecord
}

func (f *flakySink) ReadKnownRecords(_ context.Context, _ time.Time) ([]KnownRecord, error) {
	return f.known, nil
}

func (f *flakySink) Save(_ context.Context, cands []model.ScoredCandidate) error {
	if f.failFirst > 0 {
		f.failFirst--
		return errors.New("sink unavailable")
	}
	f.saves = append(f.saves, cands)
	return nil
}

func TestManagerSavePrimary(t *testing.T) {
	primary := &flakySink{}
	mgr := NewManager(primary, newTestStore(t), zerolog.Nop())

	if err := mgr.Save(context.Background(), spill("https://example.com/a", 8.0)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(primary.saves) != 1 {
		t.Fatalf("primary saves = %d, want 1", len(primary.saves))
	}

	stats, err := mgr.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("nothing should spill on a healthy primary: %+v", stats)
	}
}

func TestManagerSpillsOnPrimaryFailure(t *testing.T) {
	primary := &flakySink{failFirst: 1}
	store := newTestStore(t)
	mgr := NewManager(primary, store, zerolog.Nop())

	if err := mgr.Save(context.Background(), spill("https://example.com/a", 8.0)); err != nil {
		t.Fatalf("Save must succeed via the fallback: %v", err)
	}

	pending, err := store.LoadUnsynced(context.Background())
	if err != nil {
		t.Fatalf("LoadUnsynced: %v", err)
	}
	if len(pending) != 1 || pending[0].URL != "https://example.com/a" {
		t.Fatalf("spilled candidates wrong: %+v", pending)
	}
}

func TestManagerReconcile(t *testing.T) {
	primary := &flakySink{failFirst: 1}
	store := newTestStore(t)
	mgr := NewManager(primary, store, zerolog.Nop())
	ctx := context.Background()

	if err := mgr.Save(ctx, spill("https://example.com/a", 8.0)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	result, err := mgr.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Pending != 1 || result.Synced != 1 {
		t.Fatalf("result = %+v, want 1 pending 1 synced", result)
	}
	if len(primary.saves) != 1 || primary.saves[0][0].URL != "https://example.com/a" {
		t.Fatalf("replayed candidates wrong: %+v", primary.saves)
	}

	// A second pass finds nothing to do.
	result, err = mgr.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Pending != 0 || result.Synced != 0 {
		t.Fatalf("second pass should be empty: %+v", result)
	}
}

func TestManagerNoPrimaryWritesToFallback(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(nil, store, zerolog.Nop())
	ctx := context.Background()

	if err := mgr.Save(ctx, spill("https://example.com/a", 8.0)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	records, err := mgr.ReadKnownRecords(ctx, time.Time{})
	if err != nil || records != nil {
		t.Fatalf("no primary: want empty known records, got %v %v", records, err)
	}
	if _, err := mgr.Reconcile(ctx); err == nil {
		t.Fatalf("reconcile without a primary must fail")
	}
}
