package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/TierVault/internal/domain/access"
	"github.com/Strob0t/TierVault/internal/service"
)

func TestObserveCountsAndTimestamps(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := service.NewTracker(newFakeDB(func() time.Time { return now }))
	tr.SetNow(func() time.Time { return now })

	first := tr.Observe("rec")
	if first.AccessCount != 1 || !first.FirstAccessedAt.Equal(now) {
		t.Fatalf("first observation: %+v", first)
	}

	now = now.Add(time.Hour)
	second := tr.Observe("rec")
	if second.AccessCount != 2 {
		t.Fatalf("count %d, want 2", second.AccessCount)
	}
	if !second.FirstAccessedAt.Equal(first.FirstAccessedAt) {
		t.Fatal("first-access timestamp moved")
	}
	if !second.LastAccessedAt.Equal(now) {
		t.Fatal("last-access timestamp did not move")
	}
}

func TestFrequencyUsesDayFloor(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	tr := service.NewTracker(newFakeDB(func() time.Time { return now }))
	tr.SetNow(func() time.Time { return now })

	// Six accesses within one hour: the one-day floor makes that 6/day.
	for range 6 {
		tr.Observe("rec")
		now = now.Add(10 * time.Minute)
	}
	if f := tr.Frequency("rec"); f != 6 {
		t.Fatalf("frequency %v, want 6", f)
	}

	// Three full days after the first access it drops to 2/day.
	now = start.Add(3 * 24 * time.Hour)
	if f := tr.Frequency("rec"); f != 2 {
		t.Fatalf("frequency %v, want 2", f)
	}

	if f := tr.Frequency("never-seen"); f != 0 {
		t.Fatalf("frequency %v for unseen record, want 0", f)
	}
}

func TestTemperatureFallsBackToRowAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := service.NewTracker(newFakeDB(func() time.Time { return now }))
	tr.SetNow(func() time.Time { return now })

	if temp := tr.Temperature("untracked", now.Add(-10*24*time.Hour)); temp != access.Cool {
		t.Fatalf("got %v, want cool", temp)
	}
	if temp := tr.Temperature("untracked", now.Add(-40*24*time.Hour)); temp != access.Cold {
		t.Fatalf("got %v, want cold", temp)
	}

	// A tracked pattern wins over the fallback.
	for range 6 {
		tr.Observe("tracked")
	}
	if temp := tr.Temperature("tracked", now.Add(-40*24*time.Hour)); temp != access.Warm {
		t.Fatalf("got %v, want warm", temp)
	}
}

func TestAnalysisBucketsByTemperature(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := service.NewTracker(newFakeDB(func() time.Time { return now }))
	tr.SetNow(func() time.Time { return now })

	for range 11 {
		tr.Observe("hot")
	}
	for range 6 {
		tr.Observe("warm")
	}
	tr.Observe("cool")
	now = now.Add(10 * 24 * time.Hour)
	tr.Observe("hot") // 12 accesses, last one fresh

	a := tr.Analysis()
	want := access.Analysis{Hot: 1, Warm: 0, Cool: 2, Cold: 0, Total: 3}
	if a != want {
		t.Fatalf("analysis %+v, want %+v", a, want)
	}
}

func TestFlushAndLoadRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	db := newFakeDB(func() time.Time { return now })
	ctx := context.Background()

	tr := service.NewTracker(db)
	tr.SetNow(func() time.Time { return now })
	for range 3 {
		tr.Observe("rec")
	}
	if err := tr.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	restored := service.NewTracker(db)
	restored.SetNow(func() time.Time { return now })
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if f := restored.Frequency("rec"); f != 3 {
		t.Fatalf("frequency %v after reload, want 3", f)
	}

	// A fresh access keeps counting against the restored pattern.
	if p := restored.Observe("rec"); p.AccessCount != 4 {
		t.Fatalf("count %d after reload, want 4", p.AccessCount)
	}
}

func TestFlushEmptyIsNoop(t *testing.T) {
	db := newFakeDB(time.Now)
	db.patterns = []access.Pattern{{RecordID: "keep"}}

	tr := service.NewTracker(db)
	if err := tr.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(db.patterns) != 1 {
		t.Fatal("empty flush overwrote the persisted snapshot")
	}
}
