package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConfidenceShiftThreshold is the smallest confidence change reported as a diff.
const ConfidenceShiftThreshold = 0.2

const defaultDiffListLimit = 100

// NarrativeDiffService detects how the user's account of each entity
// changes between consecutive entries.
type NarrativeDiffService struct {
	diffStore  domain.NarrativeDiffStore
	entryStore domain.EntryStore
	logger     *zap.Logger
	now        func() time.Time
}

func NewNarrativeDiffService(ds domain.NarrativeDiffStore, es domain.EntryStore, logger *zap.Logger) *NarrativeDiffService {
	return &NarrativeDiffService{diffStore: ds, entryStore: es, logger: logger, now: time.Now}
}

type subjectTimeline struct {
	id      uuid.UUID
	name    string
	entries []*domain.EntryIR
}

// Detect diffs every entity's timeline under contract c and upserts the results.
func (s *NarrativeDiffService) Detect(ctx context.Context, userID uuid.UUID, c domain.SensemakingContract) ([]domain.NarrativeDiff, error) {
	entries, err := s.entryStore.ListByUser(ctx, userID, domain.ListEntriesOpts{})
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	view := domain.ApplyContract(c, entries)

	timelines := make(map[uuid.UUID]*subjectTimeline)
	var order []uuid.UUID
	for i := range view.Entries {
		e := &view.Entries[i]
		if !domain.IsAnalyticsEligible(e) {
			continue
		}
		seen := make(map[uuid.UUID]bool, len(e.Entities))
		for _, ref := range e.Entities {
			if ref.ID == uuid.Nil || seen[ref.ID] {
				continue
			}
			seen[ref.ID] = true
			tl, ok := timelines[ref.ID]
			if !ok {
				tl = &subjectTimeline{id: ref.ID, name: ref.Name}
				timelines[ref.ID] = tl
				order = append(order, ref.ID)
			}
			tl.entries = append(tl.entries, e)
		}
	}

	now := s.now().UTC()
	var diffs []domain.NarrativeDiff
	for _, id := range order {
		tl := timelines[id]
		sort.SliceStable(tl.entries, func(i, j int) bool {
			return tl.entries[i].Timestamp.Before(tl.entries[j].Timestamp)
		})
		for i := 1; i < len(tl.entries); i++ {
			for _, d := range DiffEntries(tl.entries[i-1], tl.entries[i]) {
				d.UserID = userID
				d.SubjectID = tl.id
				d.SubjectName = tl.name
				d.DetectedAt = now
				diffs = append(diffs, d)
			}
		}
	}

	for i := range diffs {
		if err := s.diffStore.Upsert(ctx, &diffs[i]); err != nil {
			return nil, fmt.Errorf("store narrative diff: %w", err)
		}
	}

	s.logger.Info("narrative diffs detected",
		zap.String("user_id", userID.String()),
		zap.String("contract", string(c.Name)),
		zap.Int("subjects", len(order)),
		zap.Int("diffs", len(diffs)))
	if diffs == nil {
		diffs = []domain.NarrativeDiff{}
	}
	return diffs, nil
}

func (s *NarrativeDiffService) List(ctx context.Context, userID uuid.UUID, subjectID *uuid.UUID, limit int) ([]domain.NarrativeDiff, error) {
	if limit <= 0 {
		limit = defaultDiffListLimit
	}
	return s.diffStore.ListByUser(ctx, userID, subjectID, limit)
}

// DiffEntries compares two consecutive entries about the same subject.
func DiffEntries(before, after *domain.EntryIR) []domain.NarrativeDiff {
	var out []domain.NarrativeDiff
	add := func(t domain.DiffType, b, a string, magnitude float64) {
		out = append(out, domain.NarrativeDiff{
			FromEntryID: before.ID,
			ToEntryID:   after.ID,
			DiffType:    t,
			Before:      b,
			After:       a,
			Magnitude:   magnitude,
		})
	}

	if before.KnowledgeType != after.KnowledgeType {
		add(domain.DiffKnowledgeShift, string(before.KnowledgeType), string(after.KnowledgeType), 1)
	}

	if delta := after.Confidence - before.Confidence; math.Abs(delta) >= ConfidenceShiftThreshold {
		add(domain.DiffConfidenceShift,
			fmt.Sprintf("%.2f", before.Confidence),
			fmt.Sprintf("%.2f", after.Confidence),
			math.Abs(delta))
	}

	if eb, ok := dominantEmotion(before.Emotions); ok {
		if ea, ok := dominantEmotion(after.Emotions); ok && !strings.EqualFold(eb.Emotion, ea.Emotion) {
			add(domain.DiffEmotionalShift, eb.Emotion, ea.Emotion, math.Max(eb.Intensity, ea.Intensity))
		}
	}

	tb, ta := themeSet(before.Themes), themeSet(after.Themes)
	if len(tb) > 0 && len(ta) > 0 && disjoint(tb, ta) {
		add(domain.DiffThematicShift, joinSet(tb), joinSet(ta), 1)
	}
	return out
}

func dominantEmotion(signals []domain.EmotionSignal) (domain.EmotionSignal, bool) {
	if len(signals) == 0 {
		return domain.EmotionSignal{}, false
	}
	best := signals[0]
	for _, s := range signals[1:] {
		if s.Intensity > best.Intensity {
			best = s
		}
	}
	return best, true
}

func themeSet(themes []domain.ThemeSignal) map[string]bool {
	set := make(map[string]bool, len(themes))
	for _, t := range themes {
		if k := strings.ToLower(strings.TrimSpace(t.Theme)); k != "" {
			set[k] = true
		}
	}
	return set
}

func disjoint(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return false
		}
	}
	return true
}

func joinSet(set map[string]bool) string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
