package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecallScorer_Score(t *testing.T) {
	s := NewRecallScorer()
	e := domain.EntryWithScore{
		EntryIR: domain.EntryIR{Confidence: 0.8, Timestamp: testTime(0)},
		Score:   0.5,
	}

	b := s.Score(e, testTime(0))
	assert.InDelta(t, 0.4, b.FinalScore, 1e-6)
	assert.InDelta(t, 1.0, b.Freshness, 1e-9)

	older := s.Score(e, testTime(365))
	assert.Less(t, older.FinalScore, b.FinalScore)
}

func TestRecall_AppliesContractAndEligibility(t *testing.T) {
	es := newMockEntryStore()
	embedder := &mockEmbedder{}
	svc := NewRecallService(es, embedder, zap.NewNop())
	userID := uuid.New()

	strong := newEntry(userID, domain.KnowledgeExperience, 0.9, testTime(0))
	strong.Content = "I went to Lisbon"
	tentative := newEntry(userID, domain.KnowledgeExperience, 0.6, testTime(0))
	tentative.Content = "I went to Porto"
	weak := newEntry(userID, domain.KnowledgeExperience, 0.2, testTime(0))
	belief := newEntry(userID, domain.KnowledgeBelief, 0.9, testTime(0))
	for _, e := range []*domain.EntryIR{strong, tentative, weak, belief} {
		es.put(e)
		es.similarity[e.ID] = 0.9
	}
	es.similarity[tentative.ID] = 0.95

	embedder.On("Embed", mock.Anything, "trips to portugal").Return([]float32{1, 0}, nil)

	t.Run("archivist", func(t *testing.T) {
		res, err := svc.Recall(context.Background(), RecallRequest{UserID: userID, Query: "trips to portugal", Contract: domain.Archivist})
		require.NoError(t, err)
		require.Len(t, res.Results, 2)
		assert.Equal(t, strong.ID, res.Results[0].Entry.ID)
		assert.Equal(t, "I went to Lisbon", res.Results[0].Display)
		assert.Equal(t, "I went to Porto", res.Results[1].Display)
		assert.Equal(t, domain.ContractArchivist, res.Contract)
	})

	t.Run("reflector labels uncertainty", func(t *testing.T) {
		res, err := svc.Recall(context.Background(), RecallRequest{UserID: userID, Query: "trips to portugal", Contract: domain.Reflector, Limit: 10})
		require.NoError(t, err)
		require.Len(t, res.Results, 3)

		displays := map[uuid.UUID]string{}
		for _, r := range res.Results {
			displays[r.Entry.ID] = r.Display
		}
		assert.Equal(t, "[TENTATIVE] I went to Porto", displays[tentative.ID])
		_, leaked := displays[weak.ID]
		assert.False(t, leaked, "entries below the recall floor are never surfaced")
	})
	embedder.AssertExpectations(t)
}

func TestRecall_Errors(t *testing.T) {
	es := newMockEntryStore()

	_, err := NewRecallService(es, nil, zap.NewNop()).Recall(context.Background(), RecallRequest{UserID: uuid.New(), Query: "x"})
	assert.ErrorIs(t, err, ErrRecallNotConfigured)

	embedder := &mockEmbedder{}
	svc := NewRecallService(es, embedder, zap.NewNop())
	_, err = svc.Recall(context.Background(), RecallRequest{UserID: uuid.New(), Query: "   "})
	assert.ErrorIs(t, err, ErrQueryEmpty)

	embedder.On("Embed", mock.Anything, "boom").Return(nil, errors.New("quota"))
	_, err = svc.Recall(context.Background(), RecallRequest{UserID: uuid.New(), Query: "boom", Contract: domain.Archivist})
	assert.ErrorContains(t, err, "quota")
}
