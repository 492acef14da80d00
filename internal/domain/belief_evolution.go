package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type BeliefTrend string

const (
	TrendEmerging      BeliefTrend = "EMERGING"
	TrendStable        BeliefTrend = "STABLE"
	TrendStrengthening BeliefTrend = "STRENGTHENING"
	TrendWeakening     BeliefTrend = "WEAKENING"
)

// BeliefDriftThreshold is the mean-confidence shift between the first and
// second half of a history that counts as drift.
const BeliefDriftThreshold = 0.2

type ConfidencePoint struct {
	EntryID    uuid.UUID `json:"entry_id"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// BeliefEvolution tracks one belief across the entries that restate it.
type BeliefEvolution struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	BeliefKey string            `json:"belief_key"`
	Statement string            `json:"statement"`
	History   []ConfidencePoint `json:"history"`
	Trend     BeliefTrend       `json:"trend"`
	Drift     float64           `json:"drift"`
	FirstSeen time.Time         `json:"first_seen"`
	LastSeen  time.Time         `json:"last_seen"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Observe records a point for entryID, replacing an earlier point for the
// same entry, and recomputes the trend.
func (b *BeliefEvolution) Observe(p ConfidencePoint) {
	replaced := false
	for i := range b.History {
		if b.History[i].EntryID == p.EntryID {
			b.History[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		b.History = append(b.History, p)
	}
	sort.SliceStable(b.History, func(i, j int) bool {
		return b.History[i].At.Before(b.History[j].At)
	})
	b.FirstSeen = b.History[0].At
	b.LastSeen = b.History[len(b.History)-1].At
	b.Trend, b.Drift = ComputeTrend(b.History)
}

// ComputeTrend compares the mean confidence of the first half of a history
// against the second half.
func ComputeTrend(history []ConfidencePoint) (BeliefTrend, float64) {
	if len(history) < 2 {
		return TrendEmerging, 0
	}
	mid := len(history) / 2
	first, second := history[:mid], history[mid:]

	mean := func(points []ConfidencePoint) float64 {
		var sum float64
		for _, p := range points {
			sum += p.Confidence
		}
		return sum / float64(len(points))
	}

	diff := mean(second) - mean(first)
	switch {
	case diff > BeliefDriftThreshold:
		return TrendStrengthening, diff
	case diff < -BeliefDriftThreshold:
		return TrendWeakening, diff
	default:
		return TrendStable, diff
	}
}
