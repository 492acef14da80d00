package service

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/Harshitk-cp/lorekeeper/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// mockEntryStore implements domain.EntryStore for testing. It is safe for
// the concurrent recompiles run by IncrementalCompiler.
type mockEntryStore struct {
	mu         sync.Mutex
	entries    map[uuid.UUID]*domain.EntryIR
	createErr  error
	updateErr  error
	updates    int
	similarity map[uuid.UUID]float32
}

func newMockEntryStore() *mockEntryStore {
	return &mockEntryStore{
		entries:    make(map[uuid.UUID]*domain.EntryIR),
		similarity: make(map[uuid.UUID]float32),
	}
}

func (m *mockEntryStore) put(e *domain.EntryIR) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e.Clone()
}

func (m *mockEntryStore) get(id uuid.UUID) *domain.EntryIR {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil
	}
	return e.Clone()
}

func (m *mockEntryStore) Create(ctx context.Context, e *domain.EntryIR) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.entries[e.ID] = e.Clone()
	return nil
}

func (m *mockEntryStore) Update(ctx context.Context, e *domain.EntryIR) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; !ok {
		return store.ErrNotFound
	}
	m.updates++
	m.entries[e.ID] = e.Clone()
	return nil
}

func (m *mockEntryStore) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.EntryIR, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.UserID != userID {
		return nil, store.ErrNotFound
	}
	return e.Clone(), nil
}

func (m *mockEntryStore) GetByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]domain.EntryIR, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EntryIR
	for _, id := range ids {
		if e, ok := m.entries[id]; ok && e.UserID == userID {
			out = append(out, *e.Clone())
		}
	}
	return out, nil
}

func (m *mockEntryStore) ListByUser(ctx context.Context, userID uuid.UUID, opts domain.ListEntriesOpts) ([]domain.EntryIR, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EntryIR
	for _, e := range m.entries {
		if e.UserID != userID {
			continue
		}
		if !opts.IncludeDeprecated && e.CompilerFlags.IsDeprecated {
			continue
		}
		if opts.ThreadID != nil && e.ThreadID != *opts.ThreadID {
			continue
		}
		out = append(out, *e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *mockEntryStore) FindSimilar(ctx context.Context, userID uuid.UUID, embedding []float32, limit int) ([]domain.EntryWithScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EntryWithScore
	for id, score := range m.similarity {
		e, ok := m.entries[id]
		if !ok || e.UserID != userID {
			continue
		}
		out = append(out, domain.EntryWithScore{EntryIR: *e.Clone(), Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockEntryStore) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Embedding = embedding
	return nil
}

func (m *mockEntryStore) MarkDirty(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if e, ok := m.entries[id]; ok && e.UserID == userID {
			e.CompilerFlags.IsDirty = true
		}
	}
	return nil
}

func (m *mockEntryStore) ListDirty(ctx context.Context, limit int) ([]domain.EntryIR, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EntryIR
	for _, e := range m.entries {
		if e.CompilerFlags.IsDirty {
			out = append(out, *e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mockSymbolStore implements domain.SymbolStore for testing.
type mockSymbolStore struct {
	mu      sync.Mutex
	scopes  map[string]*domain.SymbolScope
	symbols map[string][]*domain.EntitySymbol
	finds   int
}

func newMockSymbolStore() *mockSymbolStore {
	return &mockSymbolStore{
		scopes:  make(map[string]*domain.SymbolScope),
		symbols: make(map[string][]*domain.EntitySymbol),
	}
}

func scopeRowKey(userID uuid.UUID, scopeID string) string {
	return userID.String() + "|" + scopeID
}

func (m *mockSymbolStore) UpsertScope(ctx context.Context, s *domain.SymbolScope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.scopes[scopeRowKey(s.UserID, s.ScopeID)] = &cp
	return nil
}

func (m *mockSymbolStore) GetScope(ctx context.Context, userID uuid.UUID, scopeID string) (*domain.SymbolScope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scopes[scopeRowKey(userID, scopeID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSymbolStore) UpsertSymbol(ctx context.Context, userID uuid.UUID, s *domain.EntitySymbol) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scopeRowKey(userID, s.ScopeID)
	for i, existing := range m.symbols[k] {
		if existing.ID == s.ID {
			m.symbols[k][i] = s
			return nil
		}
	}
	m.symbols[k] = append(m.symbols[k], s)
	return nil
}

func (m *mockSymbolStore) FindSymbol(ctx context.Context, userID uuid.UUID, scopeID string, name string) (*domain.EntitySymbol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	key := domain.SymbolKey(name)
	for _, s := range m.symbols[scopeRowKey(userID, scopeID)] {
		for _, n := range s.Names() {
			if n == key {
				return s, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

// mockEntityStore implements domain.EntityStore for testing.
type mockEntityStore struct {
	mu       sync.Mutex
	entities map[uuid.UUID]*domain.Entity
	similar  []domain.Entity
}

func newMockEntityStore() *mockEntityStore {
	return &mockEntityStore{entities: make(map[uuid.UUID]*domain.Entity)}
}

func (m *mockEntityStore) Create(ctx context.Context, e *domain.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	m.entities[e.ID] = &cp
	return nil
}

func (m *mockEntityStore) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	if !ok || e.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockEntityStore) FindByNameOrAlias(ctx context.Context, userID uuid.UUID, name string) (*domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entities {
		if e.UserID != userID {
			continue
		}
		if strings.EqualFold(e.Name, name) {
			cp := *e
			return &cp, nil
		}
		for _, a := range e.Aliases {
			if strings.EqualFold(a, name) {
				cp := *e
				return &cp, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockEntityStore) FindByEmbeddingSimilarity(ctx context.Context, userID uuid.UUID, embedding []float32, threshold float32, limit int) ([]domain.Entity, error) {
	return m.similar, nil
}

func (m *mockEntityStore) AddAlias(ctx context.Context, id uuid.UUID, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Aliases = append(e.Aliases, alias)
	return nil
}

// mockDependencyStore implements domain.DependencyStore for testing.
type mockDependencyStore struct {
	mu    sync.Mutex
	edges map[uuid.UUID][]domain.Dependency
	calls int
}

func newMockDependencyStore() *mockDependencyStore {
	return &mockDependencyStore{edges: make(map[uuid.UUID][]domain.Dependency)}
}

// link records that entry depends on dependency.
func (m *mockDependencyStore) link(userID, entry, dependency uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[entry] = append(m.edges[entry], domain.Dependency{
		EntryID:        entry,
		DependencyType: domain.DependencyEntry,
		DependencyID:   dependency,
		UserID:         userID,
	})
}

func (m *mockDependencyStore) ReplaceForEntry(ctx context.Context, entryID uuid.UUID, userID uuid.UUID, deps []domain.Dependency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[entryID] = append([]domain.Dependency(nil), deps...)
	return nil
}

func (m *mockDependencyStore) ListDependents(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]domain.Dependency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Dependency
	for _, deps := range m.edges {
		for _, d := range deps {
			if d.UserID == userID && want[d.DependencyID] {
				out = append(out, d)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID.String() < out[j].EntryID.String() })
	return out, nil
}

// mockBeliefStore implements domain.BeliefEvolutionStore for testing.
type mockBeliefStore struct {
	beliefs map[string]*domain.BeliefEvolution
	err     error
}

func newMockBeliefStore() *mockBeliefStore {
	return &mockBeliefStore{beliefs: make(map[string]*domain.BeliefEvolution)}
}

func (m *mockBeliefStore) Upsert(ctx context.Context, b *domain.BeliefEvolution) error {
	if m.err != nil {
		return m.err
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	cp := *b
	cp.History = append([]domain.ConfidencePoint(nil), b.History...)
	m.beliefs[b.UserID.String()+"|"+b.BeliefKey] = &cp
	return nil
}

func (m *mockBeliefStore) GetByKey(ctx context.Context, userID uuid.UUID, beliefKey string) (*domain.BeliefEvolution, error) {
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.beliefs[userID.String()+"|"+beliefKey]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	cp.History = append([]domain.ConfidencePoint(nil), b.History...)
	return &cp, nil
}

func (m *mockBeliefStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.BeliefEvolution, error) {
	var out []domain.BeliefEvolution
	for _, b := range m.beliefs {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BeliefKey < out[j].BeliefKey })
	return out, nil
}

func (m *mockBeliefStore) DeleteExcept(ctx context.Context, userID uuid.UUID, keep []string) error {
	if m.err != nil {
		return m.err
	}
	for k, b := range m.beliefs {
		if b.UserID == userID && !slices.Contains(keep, b.BeliefKey) {
			delete(m.beliefs, k)
		}
	}
	return nil
}

// mockDiffStore implements domain.NarrativeDiffStore for testing.
type mockDiffStore struct {
	diffs map[string]domain.NarrativeDiff
}

func newMockDiffStore() *mockDiffStore {
	return &mockDiffStore{diffs: make(map[string]domain.NarrativeDiff)}
}

func (m *mockDiffStore) Upsert(ctx context.Context, d *domain.NarrativeDiff) error {
	k := d.FromEntryID.String() + "|" + d.ToEntryID.String() + "|" + d.SubjectID.String() + "|" + string(d.DiffType)
	if prev, ok := m.diffs[k]; ok {
		d.ID = prev.ID
	} else if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.diffs[k] = *d
	return nil
}

func (m *mockDiffStore) ListByUser(ctx context.Context, userID uuid.UUID, subjectID *uuid.UUID, limit int) ([]domain.NarrativeDiff, error) {
	var out []domain.NarrativeDiff
	for _, d := range m.diffs {
		if d.UserID != userID || (subjectID != nil && d.SubjectID != *subjectID) {
			continue
		}
		out = append(out, d)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// stubExtractor returns fixed candidates or a fixed error.
type stubExtractor struct {
	candidates []domain.EntityCandidate
	err        error
}

func (s *stubExtractor) ExtractEntities(ctx context.Context, text string) ([]domain.EntityCandidate, error) {
	return s.candidates, s.err
}

// stubResolver resolves each candidate to a stable id per name.
type stubResolver struct {
	mu  sync.Mutex
	ids map[string]uuid.UUID
	err error
}

func newStubResolver() *stubResolver {
	return &stubResolver{ids: make(map[string]uuid.UUID)}
}

func (s *stubResolver) ResolveEntities(ctx context.Context, userID uuid.UUID, candidates []domain.EntityCandidate) ([]domain.ResolvedEntity, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ResolvedEntity, 0, len(candidates))
	for _, c := range candidates {
		id, ok := s.ids[strings.ToLower(c.Name)]
		if !ok {
			id = uuid.New()
			s.ids[strings.ToLower(c.Name)] = id
		}
		out = append(out, domain.ResolvedEntity{
			ID:          id,
			PrimaryName: c.Name,
			EntityType:  domain.EntityTypeFromLabel(c.Type),
			Confidence:  c.Confidence,
		})
	}
	return out, nil
}

type stubEnricher struct {
	enrichment *domain.Enrichment
	err        error
}

func (s *stubEnricher) EnrichEntry(ctx context.Context, text string, entities []domain.EntityRef) (*domain.Enrichment, error) {
	return s.enrichment, s.err
}

// mockEmbedder is a testify mock for domain.EmbeddingClient.
type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

// recordingHook captures the entries it is handed and returns err.
type recordingHook struct {
	name string
	seen []uuid.UUID
	err  error
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) AfterCommit(ctx context.Context, e *domain.EntryIR) error {
	h.seen = append(h.seen, e.ID)
	return h.err
}

func newEntry(userID uuid.UUID, k domain.KnowledgeType, conf float64, at time.Time) *domain.EntryIR {
	return &domain.EntryIR{
		ID:              uuid.New(),
		UserID:          userID,
		ThreadID:        uuid.New(),
		Timestamp:       at,
		KnowledgeType:   k,
		Canon:           domain.CanonMetadata{Status: domain.CanonCanon, Source: domain.CanonSourceSystem, Confidence: 0.9},
		Confidence:      conf,
		CertaintySource: domain.CertaintyDirectExperience,
		Content:         "entry " + string(k),
		Entities:        []domain.EntityRef{},
		Emotions:        []domain.EmotionSignal{},
		Themes:          []domain.ThemeSignal{},
		CompilerFlags:   domain.CompilerFlags{CompilationVersion: 1},
	}
}

var testEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// testTime returns a timestamp `days` days after a fixed epoch.
func testTime(days int) time.Time {
	return testEpoch.AddDate(0, 0, days)
}
