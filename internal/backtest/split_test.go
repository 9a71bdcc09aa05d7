package backtest

import (
	"errors"
	"testing"
)

func TestSplitRangesDropsTail(t *testing.T) {
	ranges, err := SplitRanges(100, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranges) != 19 {
		t.Fatalf("expected 19 ranges, got %d", len(ranges))
	}
	for i, r := range ranges {
		if r.Start != i*5 || r.Len() != 5 {
			t.Fatalf("range %d: got [%d, %d)", i, r.Start, r.End)
		}
	}
}

func TestSplitRangesUneven(t *testing.T) {
	ranges, err := SplitRanges(10, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Range{{0, 3}, {3, 6}, {6, 9}}
	if len(ranges) != len(want) {
		t.Fatalf("expected %d ranges, got %v", len(want), ranges)
	}
	for i := range want {
		if ranges[i] != want[i] {
			t.Fatalf("range %d: expected %v, got %v", i, want[i], ranges[i])
		}
	}
}

func TestSplitRangesRejectsDegenerateInput(t *testing.T) {
	for _, tc := range []struct{ n, points int }{
		{100, 1},
		{100, 0},
		{100, -3},
		{5, 6},
		{0, 2},
	} {
		if _, err := SplitRanges(tc.n, tc.points); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("SplitRanges(%d, %d): expected ErrInvalidConfig, got %v", tc.n, tc.points, err)
		}
	}
}
