package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	ErrUtteranceEmpty    = errors.New("text is required")
	ErrUserIDMissing     = errors.New("user_id is required")
	ErrInvalidCanonValue = errors.New("invalid canon status")
)

const (
	extractionFailurePenalty = 0.9
	enrichmentFailurePenalty = 0.95
)

// CompileError is a fatal compile failure. The entry must be assumed absent.
type CompileError struct {
	UtteranceID uuid.UUID
	Err         error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile utterance %s: %v", e.UtteranceID, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

type CompileRequest struct {
	UserID          uuid.UUID
	UtteranceID     uuid.UUID
	ThreadID        uuid.UUID
	Text            string
	Timestamp       time.Time
	CanonOverride   *domain.CanonStatus
	PreviousEntryID *uuid.UUID
	RelatedEntryIDs []uuid.UUID
}

// PostCommitHook runs after the primary entry write succeeds. Hook failures
// are logged and never roll back or fail the compile.
type PostCommitHook interface {
	Name() string
	AfterCommit(ctx context.Context, e *domain.EntryIR) error
}

// CompilerService turns utterances into persisted EntryIR.
type CompilerService struct {
	entryStore domain.EntryStore
	symbols    *SymbolTable
	graph      *DependencyGraph
	extractor  domain.EntityExtractor
	resolver   domain.EntityResolver
	enricher   domain.Enricher
	canon      domain.CanonDetector
	embedder   domain.EmbeddingClient
	hooks      []PostCommitHook
	logger     *zap.Logger

	now func() time.Time
}

func NewCompilerService(es domain.EntryStore, symbols *SymbolTable, graph *DependencyGraph, logger *zap.Logger) *CompilerService {
	return &CompilerService{
		entryStore: es,
		symbols:    symbols,
		graph:      graph,
		canon:      NewHeuristicCanonDetector(),
		logger:     logger,
		now:        time.Now,
	}
}

func (s *CompilerService) SetExtractor(x domain.EntityExtractor)       { s.extractor = x }
func (s *CompilerService) SetResolver(r domain.EntityResolver)         { s.resolver = r }
func (s *CompilerService) SetEnricher(e domain.Enricher)               { s.enricher = e }
func (s *CompilerService) SetCanonDetector(d domain.CanonDetector)     { s.canon = d }
func (s *CompilerService) SetEmbeddingClient(c domain.EmbeddingClient) { s.embedder = c }

func (s *CompilerService) AddHook(h PostCommitHook) {
	s.hooks = append(s.hooks, h)
}

// Compile runs the full pipeline for one utterance.
func (s *CompilerService) Compile(ctx context.Context, req CompileRequest) (*domain.EntryIR, error) {
	if req.UserID == uuid.Nil {
		return nil, ErrUserIDMissing
	}
	if req.CanonOverride != nil && !domain.ValidCanonStatus(string(*req.CanonOverride)) {
		return nil, ErrInvalidCanonValue
	}
	content := NormalizeText(req.Text)
	if content == "" {
		return nil, ErrUtteranceEmpty
	}
	if req.UtteranceID == uuid.Nil {
		req.UtteranceID = uuid.New()
	}

	start := s.now()
	ctx, span := tracer.Start(ctx, "CompilerService.Compile")
	span.SetAttributes(attribute.String("utterance_id", req.UtteranceID.String()))
	var err error
	defer func() { endSpan(span, err) }()

	kind := Classify(content)
	confidence := InitialConfidence(kind, content)

	entities, extractOK := s.extractEntities(ctx, req.UserID, content)
	if !extractOK {
		confidence *= extractionFailurePenalty
	}
	emotions, themes, enrichOK := s.enrich(ctx, content, entities)
	if !enrichOK {
		confidence *= enrichmentFailurePenalty
	}
	confidence = clampConfidence(confidence)

	canon := s.determineCanon(ctx, content, req.CanonOverride)

	ts := req.Timestamp
	if ts.IsZero() {
		ts = start
	}
	now := start.UTC()
	entry := &domain.EntryIR{
		ID:                uuid.New(),
		UserID:            req.UserID,
		SourceUtteranceID: req.UtteranceID,
		ThreadID:          req.ThreadID,
		Timestamp:         ts.UTC(),
		KnowledgeType:     kind,
		Canon:             canon,
		Confidence:        confidence,
		CertaintySource:   InferCertaintySource(kind, content),
		Content:           content,
		Entities:          entities,
		Emotions:          emotions,
		Themes:            themes,
		NarrativeLinks: domain.NarrativeLinks{
			PreviousEntryID: req.PreviousEntryID,
			RelatedEntryIDs: req.RelatedEntryIDs,
		},
		CompilerFlags: domain.CompilerFlags{
			CompilationVersion: 1,
			LastCompiledAt:     now,
		},
	}

	if domain.EnforceEpistemicSafety(entry) {
		downgradeTotal.WithLabelValues("safety").Inc()
	}

	if err = s.entryStore.Create(ctx, entry); err != nil {
		compileTotal.WithLabelValues(string(entry.KnowledgeType), "failed").Inc()
		return nil, &CompileError{UtteranceID: req.UtteranceID, Err: err}
	}

	if s.symbols != nil && len(entry.Entities) > 0 {
		res, rerr := s.symbols.ResolveEntitiesForEntry(ctx, entry)
		if rerr != nil {
			s.logger.Warn("symbol resolution failed", zap.String("entry_id", entry.ID.String()), zap.Error(rerr))
		} else {
			for _, w := range res.Warnings {
				s.logger.Debug("entity usage", zap.String("entry_id", entry.ID.String()), zap.String("warning", w))
			}
			if res.Changed {
				if err = s.entryStore.Update(ctx, res.Entry); err != nil {
					compileTotal.WithLabelValues(string(entry.KnowledgeType), "failed").Inc()
					return nil, &CompileError{UtteranceID: req.UtteranceID, Err: err}
				}
				entry = res.Entry
			}
		}
	}

	if s.graph != nil {
		if gerr := s.graph.IndexEntry(ctx, entry); gerr != nil {
			s.logger.Warn("dependency indexing failed", zap.String("entry_id", entry.ID.String()), zap.Error(gerr))
		}
	}

	s.embed(ctx, entry)
	s.runHooks(ctx, entry)

	compileTotal.WithLabelValues(string(entry.KnowledgeType), "ok").Inc()
	compileDuration.Observe(s.now().Sub(start).Seconds())
	span.SetAttributes(
		attribute.String("knowledge_type", string(entry.KnowledgeType)),
		attribute.Float64("confidence", entry.Confidence),
	)
	return entry, nil
}

// extractEntities reports false when a collaborator failed; the entry then
// carries whatever could be recovered, possibly nothing.
func (s *CompilerService) extractEntities(ctx context.Context, userID uuid.UUID, content string) ([]domain.EntityRef, bool) {
	if s.extractor == nil || s.resolver == nil {
		return []domain.EntityRef{}, true
	}
	candidates, err := s.extractor.ExtractEntities(ctx, content)
	if err != nil {
		collaboratorFailures.WithLabelValues("extraction").Inc()
		s.logger.Warn("entity extraction failed", zap.Error(err))
		return []domain.EntityRef{}, false
	}
	if len(candidates) == 0 {
		return []domain.EntityRef{}, true
	}
	resolved, err := s.resolver.ResolveEntities(ctx, userID, candidates)
	if err != nil {
		collaboratorFailures.WithLabelValues("resolution").Inc()
		s.logger.Warn("entity resolution failed", zap.Error(err))
		return []domain.EntityRef{}, false
	}
	return refsFromResolved(resolved), true
}

func (s *CompilerService) enrich(ctx context.Context, content string, refs []domain.EntityRef) ([]domain.EmotionSignal, []domain.ThemeSignal, bool) {
	if s.enricher == nil {
		return []domain.EmotionSignal{}, []domain.ThemeSignal{}, true
	}
	enr, err := s.enricher.EnrichEntry(ctx, content, refs)
	if err != nil || enr == nil {
		collaboratorFailures.WithLabelValues("enrichment").Inc()
		s.logger.Warn("enrichment failed", zap.Error(err))
		return []domain.EmotionSignal{}, []domain.ThemeSignal{}, false
	}
	emotions, themes := enr.Emotions, enr.Themes
	if emotions == nil {
		emotions = []domain.EmotionSignal{}
	}
	if themes == nil {
		themes = []domain.ThemeSignal{}
	}
	return emotions, themes, true
}

func (s *CompilerService) determineCanon(ctx context.Context, content string, override *domain.CanonStatus) domain.CanonMetadata {
	meta, err := s.canon.DetermineCanonStatus(ctx, content, override)
	if err == nil {
		return meta
	}
	collaboratorFailures.WithLabelValues("canon").Inc()
	s.logger.Warn("canon detection failed, defaulting to CANON", zap.Error(err))

	now := s.now().UTC()
	if override != nil {
		return domain.CanonMetadata{Status: *override, Source: domain.CanonSourceUser, Confidence: 1.0, ClassifiedAt: &now, OverriddenAt: &now}
	}
	return domain.CanonMetadata{Status: domain.CanonCanon, Source: domain.CanonSourceSystem, Confidence: 0.5, ClassifiedAt: &now}
}

// embed stores a content embedding for recall. Failures only cost recall.
func (s *CompilerService) embed(ctx context.Context, e *domain.EntryIR) {
	if s.embedder == nil {
		return
	}
	vec, err := s.embedder.Embed(ctx, e.Content)
	if err != nil {
		collaboratorFailures.WithLabelValues("embedding").Inc()
		s.logger.Warn("embedding generation failed", zap.Error(err))
		return
	}
	if err := s.entryStore.UpdateEmbedding(ctx, e.ID, vec); err != nil {
		s.logger.Warn("failed to store embedding", zap.String("entry_id", e.ID.String()), zap.Error(err))
		return
	}
	e.Embedding = vec
}

func (s *CompilerService) runHooks(ctx context.Context, e *domain.EntryIR) {
	for _, h := range s.hooks {
		if err := h.AfterCommit(ctx, e); err != nil {
			collaboratorFailures.WithLabelValues(h.Name()).Inc()
			s.logger.Warn("post-commit hook failed",
				zap.String("hook", h.Name()),
				zap.String("entry_id", e.ID.String()),
				zap.Error(err))
		}
	}
}
