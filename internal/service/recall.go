package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultFreshnessDecay = 0.0001
	DefaultRecallLimit    = 10
	MaxRecallLimit        = 100

	// nearest neighbours fetched per requested result, before contract filtering
	recallOverfetch = 4
)

var (
	ErrQueryEmpty          = errors.New("query is required")
	ErrRecallNotConfigured = errors.New("recall requires an embedding client")
)

type RecallScorer struct {
	FreshnessDecay float64
}

type ScoreBreakdown struct {
	Similarity float64 `json:"similarity"`
	Confidence float64 `json:"confidence"`
	Freshness  float64 `json:"freshness"`
	FinalScore float64 `json:"final_score"`
}

// RecalledEntry is one recall hit rendered for its contract.
type RecalledEntry struct {
	Entry     domain.EntryIR `json:"entry"`
	Display   string         `json:"display"`
	Breakdown ScoreBreakdown `json:"score_breakdown"`
}

func NewRecallScorer() *RecallScorer {
	return &RecallScorer{FreshnessDecay: DefaultFreshnessDecay}
}

// Score weighs vector similarity by entry confidence and an exponential
// freshness decay on the entry timestamp.
func (s *RecallScorer) Score(e domain.EntryWithScore, now time.Time) ScoreBreakdown {
	ageHours := now.Sub(e.Timestamp).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	b := ScoreBreakdown{
		Similarity: float64(e.Score),
		Confidence: e.Confidence,
		Freshness:  math.Exp(-s.FreshnessDecay * ageHours),
	}
	b.FinalScore = b.Similarity * b.Confidence * b.Freshness
	return b
}

type RecallRequest struct {
	UserID   uuid.UUID
	Query    string
	Contract domain.SensemakingContract
	Limit    int
}

type RecallResult struct {
	Results  []RecalledEntry     `json:"results"`
	Contract domain.ContractName `json:"contract"`
	Metadata domain.ViewMetadata `json:"metadata"`
}

type RecallService struct {
	entryStore domain.EntryStore
	embedder   domain.EmbeddingClient
	scorer     *RecallScorer
	logger     *zap.Logger
	now        func() time.Time
}

func NewRecallService(es domain.EntryStore, ec domain.EmbeddingClient, logger *zap.Logger) *RecallService {
	return &RecallService{entryStore: es, embedder: ec, scorer: NewRecallScorer(), logger: logger, now: time.Now}
}

// Recall returns the nearest entries the contract admits and recall may
// surface, ranked and labeled for the contract.
func (s *RecallService) Recall(ctx context.Context, req RecallRequest) (*RecallResult, error) {
	query := NormalizeText(req.Query)
	if query == "" {
		return nil, ErrQueryEmpty
	}
	if s.embedder == nil {
		return nil, ErrRecallNotConfigured
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultRecallLimit
	}
	if limit > MaxRecallLimit {
		limit = MaxRecallLimit
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.entryStore.FindSimilar(ctx, req.UserID, vec, limit*recallOverfetch)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	scores := make(map[uuid.UUID]float32, len(hits))
	raw := make([]domain.EntryIR, 0, len(hits))
	for _, h := range hits {
		scores[h.ID] = h.Score
		raw = append(raw, h.EntryIR)
	}
	view := domain.ApplyContract(req.Contract, raw)

	now := s.now()
	results := make([]RecalledEntry, 0, len(view.Entries))
	for _, e := range view.Entries {
		if !domain.IsRecallEligible(&e) {
			continue
		}
		display := domain.FormatOutputWithUncertainty(req.Contract, e.Content, e.Confidence)
		results = append(results, RecalledEntry{
			Entry:     e,
			Display:   display,
			Breakdown: s.scorer.Score(domain.EntryWithScore{EntryIR: e, Score: scores[e.ID]}, now),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Breakdown.FinalScore > results[j].Breakdown.FinalScore
	})
	if len(results) > limit {
		results = results[:limit]
	}

	s.logger.Debug("recall",
		zap.String("contract", string(req.Contract.Name)),
		zap.Int("candidates", len(hits)),
		zap.Int("returned", len(results)))
	return &RecallResult{Results: results, Contract: req.Contract.Name, Metadata: view.Metadata}, nil
}
