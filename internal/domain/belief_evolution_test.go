package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestComputeTrend(t *testing.T) {
	pts := func(confs ...float64) []ConfidencePoint {
		out := make([]ConfidencePoint, len(confs))
		for i, c := range confs {
			out[i] = ConfidencePoint{EntryID: uuid.New(), Confidence: c}
		}
		return out
	}

	tests := []struct {
		name string
		in   []ConfidencePoint
		want BeliefTrend
	}{
		{"single point", pts(0.6), TrendEmerging},
		{"flat", pts(0.6, 0.6, 0.65, 0.6), TrendStable},
		{"rising", pts(0.3, 0.4, 0.8, 0.9), TrendStrengthening},
		{"falling", pts(0.9, 0.8, 0.4, 0.3), TrendWeakening},
	}
	for _, tt := range tests {
		if got, _ := ComputeTrend(tt.in); got != tt.want {
			t.Errorf("%s: trend = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestBeliefEvolutionObserve(t *testing.T) {
	now := time.Now()
	b := &BeliefEvolution{}
	id := uuid.New()

	b.Observe(ConfidencePoint{EntryID: uuid.New(), Confidence: 0.3, At: now.Add(time.Hour)})
	b.Observe(ConfidencePoint{EntryID: id, Confidence: 0.9, At: now})
	if b.FirstSeen != now || len(b.History) != 2 {
		t.Fatalf("history = %+v", b.History)
	}
	if b.Trend != TrendWeakening {
		t.Errorf("trend = %s, want WEAKENING", b.Trend)
	}

	b.Observe(ConfidencePoint{EntryID: id, Confidence: 0.3, At: now})
	if len(b.History) != 2 || b.Trend != TrendStable {
		t.Errorf("re-observing an entry should replace its point: %+v %s", b.History, b.Trend)
	}
}
