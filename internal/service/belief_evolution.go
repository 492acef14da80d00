package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/Harshitk-cp/lorekeeper/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const beliefKeyPrefixRunes = 64

// BeliefEvolutionService tracks how stated beliefs gain or lose confidence
// over time. It doubles as the post-commit hook that registers new beliefs.
type BeliefEvolutionService struct {
	beliefStore domain.BeliefEvolutionStore
	entryStore  domain.EntryStore
	logger      *zap.Logger
	now         func() time.Time
}

func NewBeliefEvolutionService(bs domain.BeliefEvolutionStore, es domain.EntryStore, logger *zap.Logger) *BeliefEvolutionService {
	return &BeliefEvolutionService{beliefStore: bs, entryStore: es, logger: logger, now: time.Now}
}

func (s *BeliefEvolutionService) Name() string { return "belief_registration" }

func (s *BeliefEvolutionService) AfterCommit(ctx context.Context, e *domain.EntryIR) error {
	return s.RegisterBelief(ctx, e)
}

// RegisterBelief appends a BELIEF entry to its evolution. Other types are ignored.
func (s *BeliefEvolutionService) RegisterBelief(ctx context.Context, e *domain.EntryIR) error {
	if e.KnowledgeType != domain.KnowledgeBelief {
		return nil
	}
	key := BeliefKey(e)

	b, err := s.beliefStore.GetByKey(ctx, e.UserID, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load belief %q: %w", key, err)
		}
		b = &domain.BeliefEvolution{UserID: e.UserID, BeliefKey: key}
	}

	observe(b, e)
	if err := s.beliefStore.Upsert(ctx, b); err != nil {
		return fmt.Errorf("store belief %q: %w", key, err)
	}

	s.logger.Debug("belief registered",
		zap.String("belief_key", key),
		zap.String("trend", string(b.Trend)),
		zap.Int("points", len(b.History)))
	return nil
}

// Rebuild recomputes every evolution for the user from scratch. Keys no
// longer produced by any belief entry are removed.
func (s *BeliefEvolutionService) Rebuild(ctx context.Context, userID uuid.UUID) ([]domain.BeliefEvolution, error) {
	entries, err := s.entryStore.ListByUser(ctx, userID, domain.ListEntriesOpts{})
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	view := domain.ApplyContract(domain.Reflector, entries)

	byKey := make(map[string]*domain.BeliefEvolution)
	var keys []string
	for i := range view.Entries {
		e := &view.Entries[i]
		if e.KnowledgeType != domain.KnowledgeBelief || !domain.IsPatternEligible(e) {
			continue
		}
		key := BeliefKey(e)
		b, ok := byKey[key]
		if !ok {
			b = &domain.BeliefEvolution{UserID: userID, BeliefKey: key}
			byKey[key] = b
			keys = append(keys, key)
		}
		observe(b, e)
	}

	sort.Strings(keys)
	out := make([]domain.BeliefEvolution, 0, len(keys))
	for _, key := range keys {
		b := byKey[key]
		if err := s.beliefStore.Upsert(ctx, b); err != nil {
			return nil, fmt.Errorf("store belief %q: %w", key, err)
		}
		out = append(out, *b)
	}

	// Prune only after every upsert landed, so a failed rebuild keeps the old set.
	if err := s.beliefStore.DeleteExcept(ctx, userID, keys); err != nil {
		return nil, fmt.Errorf("prune stale beliefs: %w", err)
	}

	s.logger.Info("beliefs rebuilt",
		zap.String("user_id", userID.String()),
		zap.Int("entries", view.Metadata.FilteredEntries),
		zap.Int("beliefs", len(out)))
	return out, nil
}

func (s *BeliefEvolutionService) List(ctx context.Context, userID uuid.UUID) ([]domain.BeliefEvolution, error) {
	return s.beliefStore.ListByUser(ctx, userID)
}

// observe records e on b. The latest entry's content becomes the statement.
func observe(b *domain.BeliefEvolution, e *domain.EntryIR) {
	b.Observe(domain.ConfidencePoint{EntryID: e.ID, Confidence: e.Confidence, At: e.Timestamp})
	if last := b.History[len(b.History)-1]; last.EntryID == e.ID {
		b.Statement = e.Content
	}
}

// BeliefKey groups restatements of the same belief: sorted entity names,
// else the first theme, else a normalized content prefix.
func BeliefKey(e *domain.EntryIR) string {
	var names []string
	seen := make(map[string]bool)
	for _, ref := range e.Entities {
		n := domain.SymbolKey(ref.Name)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	if len(names) > 0 {
		sort.Strings(names)
		return "entities:" + strings.Join(names, "|")
	}

	for _, t := range e.Themes {
		if theme := strings.ToLower(strings.TrimSpace(t.Theme)); theme != "" {
			return "theme:" + theme
		}
	}

	content := strings.Join(strings.Fields(strings.ToLower(e.Content)), " ")
	if r := []rune(content); len(r) > beliefKeyPrefixRunes {
		content = string(r[:beliefKeyPrefixRunes])
	}
	return "content:" + content
}
