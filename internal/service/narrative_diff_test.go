package service

import (
	"context"
	"testing"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDiffEntries(t *testing.T) {
	userID := uuid.New()
	base := func() *domain.EntryIR {
		e := newEntry(userID, domain.KnowledgeExperience, 0.8, testTime(0))
		e.Emotions = []domain.EmotionSignal{{Emotion: "joy", Intensity: 0.6}}
		e.Themes = []domain.ThemeSignal{{Theme: "family"}}
		return e
	}

	tests := []struct {
		name   string
		mutate func(after *domain.EntryIR)
		want   []domain.DiffType
	}{
		{"identical", func(a *domain.EntryIR) {}, nil},
		{"knowledge shift", func(a *domain.EntryIR) { a.KnowledgeType = domain.KnowledgeBelief }, []domain.DiffType{domain.DiffKnowledgeShift}},
		{"small confidence change ignored", func(a *domain.EntryIR) { a.Confidence = 0.7 }, nil},
		{"confidence shift", func(a *domain.EntryIR) { a.Confidence = 0.55 }, []domain.DiffType{domain.DiffConfidenceShift}},
		{"emotional shift", func(a *domain.EntryIR) {
			a.Emotions = []domain.EmotionSignal{{Emotion: "joy", Intensity: 0.2}, {Emotion: "anger", Intensity: 0.9}}
		}, []domain.DiffType{domain.DiffEmotionalShift}},
		{"emotion case only", func(a *domain.EntryIR) { a.Emotions = []domain.EmotionSignal{{Emotion: "JOY", Intensity: 0.9}} }, nil},
		{"missing emotions", func(a *domain.EntryIR) { a.Emotions = nil }, nil},
		{"thematic shift", func(a *domain.EntryIR) { a.Themes = []domain.ThemeSignal{{Theme: "work"}} }, []domain.DiffType{domain.DiffThematicShift}},
		{"overlapping themes", func(a *domain.EntryIR) {
			a.Themes = []domain.ThemeSignal{{Theme: "work"}, {Theme: "Family"}}
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, after := base(), base()
			tt.mutate(after)

			var got []domain.DiffType
			for _, d := range DiffEntries(before, after) {
				got = append(got, d.DiffType)
				assert.Equal(t, before.ID, d.FromEntryID)
				assert.Equal(t, after.ID, d.ToEntryID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNarrativeDiffDetect(t *testing.T) {
	ds := newMockDiffStore()
	es := newMockEntryStore()
	svc := NewNarrativeDiffService(ds, es, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()
	sarah := domain.EntityRef{ID: uuid.New(), Name: "Sarah"}

	e1 := newEntry(userID, domain.KnowledgeExperience, 0.9, testTime(0))
	e1.Entities = []domain.EntityRef{sarah}
	e2 := newEntry(userID, domain.KnowledgeBelief, 0.6, testTime(2))
	e2.Entities = []domain.EntityRef{sarah}
	// analytics excludes questions
	q := newEntry(userID, domain.KnowledgeQuestion, 0.9, testTime(1))
	q.Entities = []domain.EntityRef{sarah}
	// inserted out of order to exercise timestamp ordering
	for _, e := range []*domain.EntryIR{e2, q, e1} {
		es.put(e)
	}

	diffs, err := svc.Detect(ctx, userID, domain.Reflector)
	require.NoError(t, err)
	require.Len(t, diffs, 2)

	types := map[domain.DiffType]domain.NarrativeDiff{}
	for _, d := range diffs {
		types[d.DiffType] = d
		assert.Equal(t, sarah.ID, d.SubjectID)
		assert.Equal(t, "Sarah", d.SubjectName)
		assert.Equal(t, e1.ID, d.FromEntryID)
		assert.Equal(t, e2.ID, d.ToEntryID)
	}
	assert.Equal(t, "EXPERIENCE", types[domain.DiffKnowledgeShift].Before)
	assert.Equal(t, "BELIEF", types[domain.DiffKnowledgeShift].After)
	assert.InDelta(t, 0.3, types[domain.DiffConfidenceShift].Magnitude, 1e-9)

	// detection is idempotent
	_, err = svc.Detect(ctx, userID, domain.Reflector)
	require.NoError(t, err)
	listed, err := svc.List(ctx, userID, &sarah.ID, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestNarrativeDiffDetect_ContractFilters(t *testing.T) {
	ds := newMockDiffStore()
	es := newMockEntryStore()
	svc := NewNarrativeDiffService(ds, es, zap.NewNop())
	userID := uuid.New()
	sarah := domain.EntityRef{ID: uuid.New(), Name: "Sarah"}

	e1 := newEntry(userID, domain.KnowledgeExperience, 0.9, testTime(0))
	e1.Entities = []domain.EntityRef{sarah}
	e2 := newEntry(userID, domain.KnowledgeBelief, 0.6, testTime(1))
	e2.Entities = []domain.EntityRef{sarah}
	es.put(e1)
	es.put(e2)

	// ARCHIVIST never sees the belief, so there is no pair to compare
	diffs, err := svc.Detect(context.Background(), userID, domain.Archivist)
	require.NoError(t, err)
	assert.Empty(t, diffs)
}

func TestNarrativeDiffDetect_SharedSubjectsStoredSeparately(t *testing.T) {
	ds := newMockDiffStore()
	es := newMockEntryStore()
	svc := NewNarrativeDiffService(ds, es, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()
	sarah := domain.EntityRef{ID: uuid.New(), Name: "Sarah"}
	paris := domain.EntityRef{ID: uuid.New(), Name: "Paris"}

	e1 := newEntry(userID, domain.KnowledgeExperience, 0.9, testTime(0))
	e1.Entities = []domain.EntityRef{sarah, paris}
	e2 := newEntry(userID, domain.KnowledgeExperience, 0.5, testTime(1))
	e2.Entities = []domain.EntityRef{sarah, paris}
	es.put(e1)
	es.put(e2)

	diffs, err := svc.Detect(ctx, userID, domain.Reflector)
	require.NoError(t, err)
	require.Len(t, diffs, 2)
	assert.NotEqual(t, diffs[0].ID, diffs[1].ID)
	assert.ElementsMatch(t, []uuid.UUID{sarah.ID, paris.ID}, []uuid.UUID{diffs[0].SubjectID, diffs[1].SubjectID})
	for _, d := range diffs {
		assert.Equal(t, domain.DiffConfidenceShift, d.DiffType)
	}
	assert.Len(t, ds.diffs, 2, "every returned diff is stored")

	for _, subject := range []domain.EntityRef{sarah, paris} {
		listed, err := svc.List(ctx, userID, &subject.ID, 0)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, subject.Name, listed[0].SubjectName)
	}
}
