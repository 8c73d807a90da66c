package fetcher

import (
	"testing"
	"time"
)

func TestNextMinuteBoundaryRoundsUp(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 10, 15, 32, 500, time.UTC)
	got := nextMinuteBoundary(now)
	want := time.Date(2026, 8, 1, 10, 16, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("nextMinuteBoundary(%v) = %v, want %v", now, got, want)
	}
}

func TestNextMinuteBoundaryOnExactBoundary(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 10, 16, 0, 0, time.UTC)
	got := nextMinuteBoundary(now)
	want := time.Date(2026, 8, 1, 10, 17, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("nextMinuteBoundary(%v) = %v, want %v", now, got, want)
	}
}
