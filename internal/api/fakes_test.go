package api

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/bootstrap"
	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/Harshitk-cp/lorekeeper/internal/store"
	"github.com/google/uuid"
)

// Map-backed stores, just enough for the router tests to drive real services.

type fakeUsers struct {
	mu     sync.Mutex
	byHash map[string]*domain.User
}

func (f *fakeUsers) Create(ctx context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	cp := *u
	f.byHash[u.APIKeyHash] = &cp
	return nil
}

func (f *fakeUsers) GetByAPIKeyHash(ctx context.Context, hash string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byHash[hash]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type fakeEntries struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*domain.EntryIR
}

func (f *fakeEntries) Create(ctx context.Context, e *domain.EntryIR) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.ID] = e.Clone()
	return nil
}

func (f *fakeEntries) Update(ctx context.Context, e *domain.EntryIR) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[e.ID]; !ok {
		return store.ErrNotFound
	}
	f.entries[e.ID] = e.Clone()
	return nil
}

func (f *fakeEntries) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.EntryIR, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.UserID != userID {
		return nil, store.ErrNotFound
	}
	return e.Clone(), nil
}

func (f *fakeEntries) GetByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]domain.EntryIR, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.EntryIR
	for _, id := range ids {
		if e, ok := f.entries[id]; ok && e.UserID == userID {
			out = append(out, *e.Clone())
		}
	}
	return out, nil
}

func (f *fakeEntries) ListByUser(ctx context.Context, userID uuid.UUID, opts domain.ListEntriesOpts) ([]domain.EntryIR, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.EntryIR
	for _, e := range f.entries {
		if e.UserID != userID || (!opts.IncludeDeprecated && e.CompilerFlags.IsDeprecated) {
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

func (f *fakeEntries) FindSimilar(ctx context.Context, userID uuid.UUID, embedding []float32, limit int) ([]domain.EntryWithScore, error) {
	return nil, nil
}

func (f *fakeEntries) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	return nil
}

func (f *fakeEntries) MarkDirty(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	return nil
}

func (f *fakeEntries) ListDirty(ctx context.Context, limit int) ([]domain.EntryIR, error) {
	return nil, nil
}

type fakeSymbols struct {
	mu      sync.Mutex
	scopes  map[string]*domain.SymbolScope
	symbols map[string][]*domain.EntitySymbol
}

func (f *fakeSymbols) UpsertScope(ctx context.Context, s *domain.SymbolScope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.scopes[s.UserID.String()+"|"+s.ScopeID] = &cp
	return nil
}

func (f *fakeSymbols) GetScope(ctx context.Context, userID uuid.UUID, scopeID string) (*domain.SymbolScope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scopes[userID.String()+"|"+scopeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSymbols) UpsertSymbol(ctx context.Context, userID uuid.UUID, s *domain.EntitySymbol) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := userID.String() + "|" + s.ScopeID
	for i, existing := range f.symbols[k] {
		if existing.ID == s.ID {
			f.symbols[k][i] = s
			return nil
		}
	}
	f.symbols[k] = append(f.symbols[k], s)
	return nil
}

func (f *fakeSymbols) FindSymbol(ctx context.Context, userID uuid.UUID, scopeID, name string) (*domain.EntitySymbol, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := domain.SymbolKey(name)
	for _, s := range f.symbols[userID.String()+"|"+scopeID] {
		for _, n := range s.Names() {
			if n == key {
				return s, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

type fakeEntities struct {
	mu       sync.Mutex
	entities map[uuid.UUID]*domain.Entity
}

func (f *fakeEntities) Create(ctx context.Context, e *domain.Entity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	f.entities[e.ID] = &cp
	return nil
}

func (f *fakeEntities) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entities[id]
	if !ok || e.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEntities) FindByNameOrAlias(ctx context.Context, userID uuid.UUID, name string) (*domain.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entities {
		if e.UserID == userID && strings.EqualFold(e.Name, name) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeEntities) FindByEmbeddingSimilarity(ctx context.Context, userID uuid.UUID, embedding []float32, threshold float32, limit int) ([]domain.Entity, error) {
	return nil, nil
}

func (f *fakeEntities) AddAlias(ctx context.Context, id uuid.UUID, alias string) error {
	return nil
}

type fakeDeps struct {
	mu    sync.Mutex
	edges map[uuid.UUID][]domain.Dependency
}

func (f *fakeDeps) ReplaceForEntry(ctx context.Context, entryID, userID uuid.UUID, deps []domain.Dependency) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edges[entryID] = append([]domain.Dependency(nil), deps...)
	return nil
}

func (f *fakeDeps) ListDependents(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]domain.Dependency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Dependency
	for _, deps := range f.edges {
		for _, d := range deps {
			if d.UserID == userID && want[d.DependencyID] {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

type fakeBeliefs struct {
	mu      sync.Mutex
	beliefs map[string]domain.BeliefEvolution
}

func (f *fakeBeliefs) Upsert(ctx context.Context, b *domain.BeliefEvolution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	f.beliefs[b.UserID.String()+"|"+b.BeliefKey] = *b
	return nil
}

func (f *fakeBeliefs) GetByKey(ctx context.Context, userID uuid.UUID, key string) (*domain.BeliefEvolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.beliefs[userID.String()+"|"+key]
	if !ok {
		return nil, store.ErrNotFound
	}
	b.History = append([]domain.ConfidencePoint(nil), b.History...)
	return &b, nil
}

func (f *fakeBeliefs) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.BeliefEvolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.BeliefEvolution
	for _, b := range f.beliefs {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBeliefs) DeleteExcept(ctx context.Context, userID uuid.UUID, keep []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, b := range f.beliefs {
		if b.UserID == userID && !slices.Contains(keep, b.BeliefKey) {
			delete(f.beliefs, k)
		}
	}
	return nil
}

type fakeDiffs struct {
	mu    sync.Mutex
	diffs []domain.NarrativeDiff
}

func (f *fakeDiffs) Upsert(ctx context.Context, d *domain.NarrativeDiff) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.diffs {
		if existing.FromEntryID == d.FromEntryID && existing.ToEntryID == d.ToEntryID && existing.DiffType == d.DiffType {
			f.diffs[i] = *d
			return nil
		}
	}
	f.diffs = append(f.diffs, *d)
	return nil
}

func (f *fakeDiffs) ListByUser(ctx context.Context, userID uuid.UUID, subjectID *uuid.UUID, limit int) ([]domain.NarrativeDiff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.NarrativeDiff
	for _, d := range f.diffs {
		if d.UserID == userID && (subjectID == nil || d.SubjectID == *subjectID) {
			out = append(out, d)
		}
	}
	return out, nil
}

func newFakeStores() bootstrap.Stores {
	return bootstrap.Stores{
		Users:        &fakeUsers{byHash: map[string]*domain.User{}},
		Entries:      &fakeEntries{entries: map[uuid.UUID]*domain.EntryIR{}},
		Symbols:      &fakeSymbols{scopes: map[string]*domain.SymbolScope{}, symbols: map[string][]*domain.EntitySymbol{}},
		Entities:     &fakeEntities{entities: map[uuid.UUID]*domain.Entity{}},
		Dependencies: &fakeDeps{edges: map[uuid.UUID][]domain.Dependency{}},
		Beliefs:      &fakeBeliefs{beliefs: map[string]domain.BeliefEvolution{}},
		Diffs:        &fakeDiffs{},
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }
