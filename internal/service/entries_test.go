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

func TestEntryService_Get(t *testing.T) {
	es := newMockEntryStore()
	svc := NewEntryService(es, zap.NewNop())
	userID := uuid.New()

	exp := newEntry(userID, domain.KnowledgeExperience, 0.9, testTime(0))
	feeling := newEntry(userID, domain.KnowledgeFeeling, 0.9, testTime(1))
	es.put(exp)
	es.put(feeling)

	view, err := svc.Get(context.Background(), userID, exp.ID, domain.Archivist)
	require.NoError(t, err)
	require.Len(t, view.Entries, 1)
	assert.Equal(t, exp.ID, view.Entries[0].ID)

	_, err = svc.Get(context.Background(), userID, feeling.ID, domain.Archivist)
	assert.ErrorIs(t, err, ErrNotVisible)

	view, err = svc.Get(context.Background(), userID, feeling.ID, domain.Therapist)
	require.NoError(t, err)
	assert.Len(t, view.Entries, 1)

	_, err = svc.Get(context.Background(), userID, uuid.New(), domain.Reflector)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestEntryService_List(t *testing.T) {
	es := newMockEntryStore()
	svc := NewEntryService(es, zap.NewNop())
	userID := uuid.New()

	for i, k := range domain.AllKnowledgeTypes() {
		es.put(newEntry(userID, k, 0.9, testTime(i)))
	}
	gone := newEntry(userID, domain.KnowledgeExperience, 0.9, testTime(10))
	gone.CompilerFlags.IsDeprecated = true
	es.put(gone)

	view, err := svc.List(context.Background(), ListEntriesRequest{UserID: userID, Contract: domain.Archivist})
	require.NoError(t, err)
	assert.Equal(t, 6, view.Metadata.TotalEntries)
	assert.Equal(t, 2, view.Metadata.FilteredEntries)
	for _, e := range view.Entries {
		assert.Contains(t, []domain.KnowledgeType{domain.KnowledgeExperience, domain.KnowledgeFact}, e.KnowledgeType)
	}
	assert.Empty(t, domain.CheckArchivistView(*view))
}

func TestRender(t *testing.T) {
	e := &domain.EntryIR{Content: "Sarah seems distant", Confidence: 0.45}
	assert.Equal(t, "[UNCERTAIN] Sarah seems distant", Render(domain.Reflector, e))
	assert.Equal(t, "Sarah seems distant", Render(domain.Archivist, e))
	assert.Equal(t, "[REFLECTION] a pattern", RenderInference(domain.Reflector, "a pattern"))
	assert.Equal(t, "a pattern", RenderInference(domain.Archivist, "a pattern"))
}
