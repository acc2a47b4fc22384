package access_test

import (
	"testing"
	"time"

	"github.com/Strob0t/TierVault/internal/domain/access"
)

func TestClassify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		count uint64
		last  time.Time
		want  access.Temperature
	}{
		{"frequent and recent", 11, now.Add(-12 * time.Hour), access.Hot},
		{"moderate within a week", 6, now.Add(-3 * 24 * time.Hour), access.Warm},
		{"single read within a month", 1, now.Add(-10 * 24 * time.Hour), access.Cool},
		{"never read and stale", 0, now.Add(-40 * 24 * time.Hour), access.Cold},
		{"frequent but stale drops to warm", 11, now.Add(-2 * 24 * time.Hour), access.Warm},
		{"boundary day is not hot", 11, now.Add(-24 * time.Hour), access.Warm},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := access.Classify(tc.count, tc.last, now)
			if got != tc.want {
				t.Fatalf("Classify(%d, %s ago) = %s, want %s",
					tc.count, now.Sub(tc.last), got, tc.want)
			}
		})
	}
}

func TestFrequencyFloorsAtOneDay(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p := access.Pattern{AccessCount: 20, FirstAccessedAt: now.Add(-time.Hour)}
	if got := p.Frequency(now); got != 20 {
		t.Fatalf("same-day frequency = %v, want 20", got)
	}

	p = access.Pattern{AccessCount: 20, FirstAccessedAt: now.Add(-4 * 24 * time.Hour)}
	if got := p.Frequency(now); got != 5 {
		t.Fatalf("four-day frequency = %v, want 5", got)
	}
}
