package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type incrementalFixture struct {
	entries  *mockEntryStore
	deps     *mockDependencyStore
	graph    *DependencyGraph
	compiler *IncrementalCompiler
}

func newIncrementalFixture() *incrementalFixture {
	logger := zap.NewNop()
	f := &incrementalFixture{entries: newMockEntryStore(), deps: newMockDependencyStore()}
	f.graph = NewDependencyGraph(f.deps, logger)
	f.compiler = NewIncrementalCompiler(f.entries, f.graph, logger)
	return f
}

func TestRecompiledConfidence(t *testing.T) {
	tests := []struct {
		name     string
		old      float64
		entities []domain.EntityRef
		emotions []domain.EmotionSignal
		themes   []domain.ThemeSignal
		want     float64
	}{
		{"no signals", 0.8, nil, nil, nil, 0.72},
		{"entities only", 0.8, []domain.EntityRef{{Confidence: 0.6}, {Confidence: 1.0}}, nil, nil, 0.72},
		{"emotions", 0.5, []domain.EntityRef{{Confidence: 0.5}}, []domain.EmotionSignal{{Emotion: "joy", Intensity: 0.9}}, nil, 0.455},
		{"themes", 0.5, []domain.EntityRef{{Confidence: 0.5}}, nil, []domain.ThemeSignal{{Theme: "work"}}, 0.5},
		{"clamped low", 0.1, []domain.EntityRef{{Confidence: 0.1}}, nil, nil, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &domain.EntryIR{Entities: tt.entities, Emotions: tt.emotions, Themes: tt.themes}
			assert.InDelta(t, tt.want, RecompiledConfidence(tt.old, e), 1e-9)
		})
	}
}

func TestIncrementalCompile_RecompilesAffectedWithoutReclassifying(t *testing.T) {
	f := newIncrementalFixture()
	userID := uuid.New()
	ctx := context.Background()

	a := newEntry(userID, domain.KnowledgeExperience, 0.9, testTime(0))
	b := newEntry(userID, domain.KnowledgeFeeling, 0.8, testTime(1))
	b.Content = "I think this is actually a fact"
	b.NarrativeLinks.PreviousEntryID = &a.ID
	unrelated := newEntry(userID, domain.KnowledgeBelief, 0.6, testTime(2))
	for _, e := range []*domain.EntryIR{a, b, unrelated} {
		f.entries.put(e)
		require.NoError(t, f.graph.IndexEntry(ctx, e))
	}

	f.compiler.SetEnricher(&stubEnricher{enrichment: &domain.Enrichment{
		Emotions: []domain.EmotionSignal{{Emotion: "calm", Intensity: 0.4}},
	}})

	res, err := f.compiler.IncrementalCompile(ctx, userID, []uuid.UUID{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Affected)
	assert.Equal(t, 2, res.Recompiled)
	assert.Zero(t, res.Failed)

	gotB := f.entries.get(b.ID)
	assert.Equal(t, domain.KnowledgeFeeling, gotB.KnowledgeType, "incremental recompilation never reclassifies")
	assert.Equal(t, 2, gotB.CompilerFlags.CompilationVersion)
	assert.InDelta(t, 0.6*0.8+0.3*0.8+0.1*0.05, gotB.Confidence, 1e-9)
	assert.Len(t, gotB.Emotions, 1)

	assert.Equal(t, 1, f.entries.get(unrelated.ID).CompilerFlags.CompilationVersion)
}

func TestRecompileDependents_LeavesSeedsAlone(t *testing.T) {
	f := newIncrementalFixture()
	userID := uuid.New()
	ctx := context.Background()

	a := newEntry(userID, domain.KnowledgeExperience, 0.9, testTime(0))
	b := newEntry(userID, domain.KnowledgeExperience, 0.9, testTime(1))
	b.NarrativeLinks.RelatedEntryIDs = []uuid.UUID{a.ID}
	for _, e := range []*domain.EntryIR{a, b} {
		f.entries.put(e)
		require.NoError(t, f.graph.IndexEntry(ctx, e))
	}

	res, err := f.compiler.RecompileDependents(ctx, userID, []uuid.UUID{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Recompiled)
	assert.Equal(t, 1, f.entries.get(a.ID).CompilerFlags.CompilationVersion)
	assert.Equal(t, 2, f.entries.get(b.ID).CompilerFlags.CompilationVersion)
}

func TestIncrementalCompile_CarriesSymbolBindings(t *testing.T) {
	f := newIncrementalFixture()
	userID := uuid.New()
	ctx := context.Background()
	resolver := newStubResolver()
	sarahID := uuid.New()
	resolver.ids["sarah"] = sarahID
	symbolID := uuid.New()

	e := newEntry(userID, domain.KnowledgeBelief, 0.6, testTime(0))
	e.Entities = []domain.EntityRef{{
		ID: sarahID, Name: "Sarah", Confidence: 0.7,
		SymbolID: &symbolID, Restrictions: []string{domain.RestrictionBeliefContext},
	}}
	f.entries.put(e)

	f.compiler.SetExtractor(&stubExtractor{candidates: []domain.EntityCandidate{
		{Name: "Sarah", Confidence: 0.9}, {Name: "Tom", Confidence: 0.5},
	}})
	f.compiler.SetResolver(resolver)

	_, err := f.compiler.IncrementalCompile(ctx, userID, []uuid.UUID{e.ID})
	require.NoError(t, err)

	got := f.entries.get(e.ID)
	require.Len(t, got.Entities, 2)
	assert.Equal(t, &symbolID, got.Entities[0].SymbolID)
	assert.Equal(t, []string{domain.RestrictionBeliefContext}, got.Entities[0].Restrictions)
	assert.Nil(t, got.Entities[1].SymbolID)
	assert.Equal(t, domain.KnowledgeBelief, got.KnowledgeType)
}

func TestIncrementalCompile_FailuresMarkDirty(t *testing.T) {
	f := newIncrementalFixture()
	userID := uuid.New()
	e := newEntry(userID, domain.KnowledgeExperience, 0.9, testTime(0))
	f.entries.put(e)
	f.entries.updateErr = errors.New("deadlock detected")

	res, err := f.compiler.IncrementalCompile(context.Background(), userID, []uuid.UUID{e.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.True(t, f.entries.get(e.ID).CompilerFlags.IsDirty)
}

func TestIncrementalCompile_DeferredAreMarkedDirty(t *testing.T) {
	f := newIncrementalFixture()
	f.graph.SetLimits(0, 2)
	userID := uuid.New()
	ctx := context.Background()

	root := newEntry(userID, domain.KnowledgeExperience, 0.9, testTime(0))
	f.entries.put(root)
	var children []*domain.EntryIR
	for i := 0; i < 4; i++ {
		c := newEntry(userID, domain.KnowledgeExperience, 0.9, testTime(i+1))
		c.NarrativeLinks.PreviousEntryID = &root.ID
		f.entries.put(c)
		require.NoError(t, f.graph.IndexEntry(ctx, c))
		children = append(children, c)
	}

	res, err := f.compiler.IncrementalCompile(ctx, userID, []uuid.UUID{root.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Deferred)
	assert.Equal(t, 2, res.Recompiled)

	dirty, err := f.entries.ListDirty(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, dirty, 3)
}

func TestIncrementalCompile_DeprecatedOnlyClearsDirty(t *testing.T) {
	f := newIncrementalFixture()
	userID := uuid.New()
	e := newEntry(userID, domain.KnowledgeExperience, 0.9, testTime(0))
	e.CompilerFlags.IsDeprecated = true
	e.CompilerFlags.IsDirty = true
	f.entries.put(e)

	res, err := f.compiler.IncrementalCompile(context.Background(), userID, []uuid.UUID{e.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)

	got := f.entries.get(e.ID)
	assert.False(t, got.CompilerFlags.IsDirty)
	assert.Equal(t, 1, got.CompilerFlags.CompilationVersion)
	assert.Equal(t, 0.9, got.Confidence)
}

func TestRecompileWorker_RunOnce(t *testing.T) {
	f := newIncrementalFixture()
	worker := NewRecompileWorker(f.entries, f.compiler, zap.NewNop())
	ctx := context.Background()

	u1, u2 := uuid.New(), uuid.New()
	var ids []uuid.UUID
	for i, userID := range []uuid.UUID{u1, u1, u2} {
		e := newEntry(userID, domain.KnowledgeExperience, 0.9, testTime(i))
		e.CompilerFlags.IsDirty = true
		f.entries.put(e)
		ids = append(ids, e.ID)
	}

	res := worker.RunOnce(ctx)
	assert.Equal(t, 3, res.Recompiled)

	for _, id := range ids {
		assert.False(t, f.entries.get(id).CompilerFlags.IsDirty)
	}
	assert.Zero(t, worker.RunOnce(ctx).Recompiled)
}
