package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/Harshitk-cp/lorekeeper/internal/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	ErrEntryNotFound    = errors.New("entry not found")
	ErrEvidenceNotFound = errors.New("evidence entry not found")
	ErrEntryDeprecated  = errors.New("entry is deprecated")
	ErrInvalidKnowledge = errors.New("invalid knowledge type")
)

// PromoteRequest names the evidence a proof is built from. EvidenceIDs must
// be the user's stored entries; without evidence there is no proof and the
// promotion is rejected.
type PromoteRequest struct {
	UserID      uuid.UUID
	EntryID     uuid.UUID
	To          domain.KnowledgeType
	EvidenceIDs []uuid.UUID
	GeneratedBy domain.ProofGenerator
	Reasoning   string
}

// PromotionService performs proof-carrying lattice promotions and
// deprecations, and recompiles what depends on the changed entry.
type PromotionService struct {
	entryStore  domain.EntryStore
	incremental *IncrementalCompiler
	logger      *zap.Logger
	now         func() time.Time
}

func NewPromotionService(es domain.EntryStore, ic *IncrementalCompiler, logger *zap.Logger) *PromotionService {
	return &PromotionService{entryStore: es, incremental: ic, logger: logger, now: time.Now}
}

func (s *PromotionService) load(ctx context.Context, userID, id uuid.UUID) (*domain.EntryIR, error) {
	e, err := s.entryStore.GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return e, nil
}

// Promote moves an entry up the lattice. Rejected attempts surface as
// *domain.EpistemicViolation.
func (s *PromotionService) Promote(ctx context.Context, req PromoteRequest) (*domain.EntryIR, error) {
	if !domain.ValidKnowledgeType(string(req.To)) {
		return nil, ErrInvalidKnowledge
	}

	ctx, span := tracer.Start(ctx, "PromotionService.Promote")
	span.SetAttributes(attribute.String("entry_id", req.EntryID.String()), attribute.String("to", string(req.To)))
	var err error
	defer func() { endSpan(span, err) }()

	var e *domain.EntryIR
	if e, err = s.load(ctx, req.UserID, req.EntryID); err != nil {
		return nil, err
	}
	if e.CompilerFlags.IsDeprecated {
		err = ErrEntryDeprecated
		return nil, err
	}

	var proof *domain.EpistemicProof
	if len(req.EvidenceIDs) > 0 {
		if proof, err = s.proofFromEvidence(ctx, e, req); err != nil {
			return nil, err
		}
	}

	attempt := domain.PromotionAttempt{EntryID: e.ID, From: e.KnowledgeType, To: req.To, Proof: proof}
	if err = domain.EpistemicTypeCheck(attempt); err != nil {
		promotionTotal.WithLabelValues("rejected").Inc()
		s.logger.Info("promotion rejected", zap.String("entry_id", e.ID.String()), zap.Error(err))
		return nil, err
	}

	proof.GeneratedAt = s.now().UTC()

	e.KnowledgeType = req.To
	e.CertaintySource = domain.CertaintyVerification
	if proof.Confidence > e.Confidence {
		e.Confidence = clampConfidence(proof.Confidence)
	}
	e.CompilerFlags.PromotionProof = proof
	e.CompilerFlags.DowngradedFromFact = false
	e.CompilerFlags.CompilationVersion++
	e.CompilerFlags.LastCompiledAt = s.now().UTC()

	if err = s.entryStore.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("persist promotion: %w", err)
	}
	promotionTotal.WithLabelValues("promoted").Inc()

	s.recompileDependents(ctx, e)
	return e, nil
}

func (s *PromotionService) proofFromEvidence(ctx context.Context, e *domain.EntryIR, req PromoteRequest) (*domain.EpistemicProof, error) {
	evidence, err := s.entryStore.GetByIDs(ctx, req.UserID, req.EvidenceIDs)
	if err != nil {
		return nil, err
	}
	if len(evidence) != len(req.EvidenceIDs) {
		return nil, ErrEvidenceNotFound
	}
	for _, ev := range evidence {
		if ev.CompilerFlags.IsDeprecated {
			return nil, fmt.Errorf("%w: %s", ErrEntryDeprecated, ev.ID)
		}
	}
	by := req.GeneratedBy
	if by == "" {
		by = domain.GeneratedByUser
	}
	return domain.GenerateProof(e.KnowledgeType, req.To, evidence, by, req.Reasoning), nil
}

// Deprecate retires an entry. Entries are never deleted.
func (s *PromotionService) Deprecate(ctx context.Context, userID, entryID uuid.UUID) (*domain.EntryIR, error) {
	e, err := s.load(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	if e.CompilerFlags.IsDeprecated {
		return e, nil
	}

	e.CompilerFlags.IsDeprecated = true
	e.CompilerFlags.CompilationVersion++
	e.CompilerFlags.LastCompiledAt = s.now().UTC()
	if err := s.entryStore.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("persist deprecation: %w", err)
	}

	s.recompileDependents(ctx, e)
	return e, nil
}

func (s *PromotionService) recompileDependents(ctx context.Context, e *domain.EntryIR) {
	if s.incremental == nil {
		return
	}
	res, err := s.incremental.RecompileDependents(ctx, e.UserID, []uuid.UUID{e.ID})
	if err != nil {
		s.logger.Warn("dependent recompile failed", zap.String("entry_id", e.ID.String()), zap.Error(err))
		return
	}
	s.logger.Debug("dependents recompiled",
		zap.String("entry_id", e.ID.String()),
		zap.Int("recompiled", res.Recompiled),
		zap.Int("deferred", res.Deferred))
}
