package model

import (
	"math"
	"testing"
	"time"
)

func TestTotalScoreWeighting(t *testing.T) {
	t.Parallel()

	cand := ScoredCandidate{
		Scores: DimensionScores{
			Activity:        8,
			Reproducibility: 9,
			License:         10,
			Novelty:         7,
			Relevance:       8,
		},
	}
	// 8*.15 + 9*.30 + 10*.15 + 7*.15 + 8*.25 = 8.45
	if got := cand.TotalScore(); math.Abs(got-8.45) > 1e-9 {
		t.Fatalf("TotalScore = %v, want 8.45", got)
	}
	if got := cand.Priority(); got != PriorityHigh {
		t.Fatalf("Priority = %s, want high", got)
	}

	override := 5.0
	cand.OverrideTotal = &override
	if got := cand.TotalScore(); got != 5.0 {
		t.Fatalf("override total = %v, want 5.0", got)
	}
	if got := cand.Priority(); got != PriorityLow {
		t.Fatalf("Priority with override = %s, want low", got)
	}
}

func TestAgeDays(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	cand := RawCandidate{}
	if got := cand.AgeDays(now); got != -1 {
		t.Fatalf("unknown publish date: age = %d, want -1", got)
	}

	published := now.AddDate(0, 0, -7)
	cand.PublishedAt = &published
	if got := cand.AgeDays(now); got != 7 {
		t.Fatalf("age = %d, want 7", got)
	}

	future := now.Add(time.Hour)
	cand.PublishedAt = &future
	if got := cand.AgeDays(now); got != 0 {
		t.Fatalf("future publish date: age = %d, want 0", got)
	}
}

func TestClampScore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want float64
	}{
		{11, 10},
		{-1, 0},
		{7.5, 7.5},
	}
	for _, tc := range cases {
		if got := ClampScore(tc.in); got != tc.want {
			t.Fatalf("ClampScore(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
