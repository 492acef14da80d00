package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/Harshitk-cp/lorekeeper/internal/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrScopeIDMissing   = errors.New("scope_id is required")
	ErrInvalidScopeType = errors.New("invalid scope type")
	ErrSymbolNameEmpty  = errors.New("canonical_name is required")
	ErrInvalidEntity    = errors.New("invalid entity type")
)

const (
	// maxScopeChain bounds the parent walk.
	maxScopeChain = 64

	defaultSymbolConfidence = 0.5
)

type scopeKey struct {
	userID  uuid.UUID
	scopeID string
}

type scopeNode struct {
	// scope is nil until the node's scope row has been loaded or created.
	scope   *domain.SymbolScope
	symbols map[string]*domain.EntitySymbol
}

// SymbolTable is the scoped entity registry. It owns a process-local cache
// of scopes and symbols; every cache miss falls through to the store.
type SymbolTable struct {
	store       domain.SymbolStore
	entityStore domain.EntityStore
	logger      *zap.Logger

	mu     sync.RWMutex
	scopes map[scopeKey]*scopeNode
	sf     singleflight.Group
}

func NewSymbolTable(ss domain.SymbolStore, es domain.EntityStore, logger *zap.Logger) *SymbolTable {
	return &SymbolTable{
		store:       ss,
		entityStore: es,
		logger:      logger,
		scopes:      make(map[scopeKey]*scopeNode),
	}
}

func (t *SymbolTable) node(k scopeKey) *scopeNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.scopes[k]
	if !ok {
		n = &scopeNode{symbols: make(map[string]*domain.EntitySymbol)}
		t.scopes[k] = n
	}
	return n
}

func (t *SymbolTable) index(userID uuid.UUID, sym *domain.EntitySymbol) {
	n := t.node(scopeKey{userID, sym.ScopeID})
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, key := range sym.Names() {
		n.symbols[key] = sym
	}
}

// EnterScope registers a scope node, persisting it, with an empty symbol map.
func (t *SymbolTable) EnterScope(ctx context.Context, userID uuid.UUID, scopeType domain.ScopeType, scopeID string, parentID *string) (*domain.SymbolScope, error) {
	if scopeID == "" {
		return nil, ErrScopeIDMissing
	}
	if !domain.ValidScopeType(string(scopeType)) {
		return nil, ErrInvalidScopeType
	}

	sc := &domain.SymbolScope{
		ScopeID:       scopeID,
		UserID:        userID,
		ScopeType:     scopeType,
		ParentScopeID: parentID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := t.store.UpsertScope(ctx, sc); err != nil {
		return nil, fmt.Errorf("persist scope %s: %w", scopeID, err)
	}

	n := t.node(scopeKey{userID, scopeID})
	t.mu.Lock()
	n.scope = sc
	t.mu.Unlock()
	return sc, nil
}

// loadScope returns the scope from cache or store, or nil when it does not exist.
func (t *SymbolTable) loadScope(ctx context.Context, userID uuid.UUID, scopeID string) (*domain.SymbolScope, error) {
	k := scopeKey{userID, scopeID}
	t.mu.RLock()
	n, ok := t.scopes[k]
	var cached *domain.SymbolScope
	if ok {
		cached = n.scope
	}
	t.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := t.sf.Do("scope|"+userID.String()+"|"+scopeID, func() (any, error) {
		return t.store.GetScope(ctx, userID, scopeID)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	sc := v.(*domain.SymbolScope)
	n = t.node(k)
	t.mu.Lock()
	n.scope = sc
	t.mu.Unlock()
	return sc, nil
}

// ensureScope creates scopeID if it does not exist yet. Non-global scopes are
// parented to the user's global scope.
func (t *SymbolTable) ensureScope(ctx context.Context, userID uuid.UUID, scopeID string, scopeType domain.ScopeType) error {
	sc, err := t.loadScope(ctx, userID, scopeID)
	if err != nil {
		return err
	}
	if sc != nil {
		return nil
	}

	global := domain.GlobalScopeID(userID)
	if scopeID == global {
		_, err = t.EnterScope(ctx, userID, domain.ScopeGlobal, global, nil)
		return err
	}
	if err := t.ensureScope(ctx, userID, global, domain.ScopeGlobal); err != nil {
		return err
	}
	_, err = t.EnterScope(ctx, userID, scopeType, scopeID, &global)
	return err
}

// DefineSymbol binds sym in scopeID, creating the scope if needed, and
// indexes it by canonical name and every alias.
func (t *SymbolTable) DefineSymbol(ctx context.Context, userID uuid.UUID, scopeID string, sym *domain.EntitySymbol) error {
	if scopeID == "" {
		return ErrScopeIDMissing
	}
	if strings.TrimSpace(sym.CanonicalName) == "" {
		return ErrSymbolNameEmpty
	}
	if sym.EntityType == "" {
		sym.EntityType = domain.DefaultEntityType
	}
	if !domain.ValidEntityType(string(sym.EntityType)) {
		return ErrInvalidEntity
	}
	if sym.CertaintySource == "" {
		sym.CertaintySource = domain.CertaintyInference
	}

	scopeType := domain.ScopeThread
	if scopeID == domain.GlobalScopeID(userID) {
		scopeType = domain.ScopeGlobal
	}
	if err := t.ensureScope(ctx, userID, scopeID, scopeType); err != nil {
		return err
	}

	sym.ScopeID = scopeID
	if err := t.store.UpsertSymbol(ctx, userID, sym); err != nil {
		return fmt.Errorf("persist symbol %q: %w", sym.CanonicalName, err)
	}
	t.index(userID, sym)
	return nil
}

func (t *SymbolTable) lookupLocal(userID uuid.UUID, scopeID, key string) *domain.EntitySymbol {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n, ok := t.scopes[scopeKey{userID, scopeID}]; ok {
		return n.symbols[key]
	}
	return nil
}

func (t *SymbolTable) lookupStore(ctx context.Context, userID uuid.UUID, scopeID, key string) (*domain.EntitySymbol, error) {
	v, err, _ := t.sf.Do("sym|"+userID.String()+"|"+scopeID+"|"+key, func() (any, error) {
		return t.store.FindSymbol(ctx, userID, scopeID, key)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	sym := v.(*domain.EntitySymbol)
	t.index(userID, sym)
	return sym, nil
}

// Resolve looks name up case-insensitively in scopeID, then in each
// ancestor. It returns nil, nil when no scope in the chain binds the name.
func (t *SymbolTable) Resolve(ctx context.Context, userID uuid.UUID, name string, scopeID string) (*domain.EntitySymbol, error) {
	key := domain.SymbolKey(name)
	if key == "" {
		return nil, nil
	}

	visited := make(map[string]bool)
	cur := scopeID
	for depth := 0; cur != "" && depth < maxScopeChain; depth++ {
		if visited[cur] {
			t.logger.Warn("scope chain cycle", zap.String("scope_id", cur), zap.String("user_id", userID.String()))
			return nil, nil
		}
		visited[cur] = true

		if sym := t.lookupLocal(userID, cur, key); sym != nil {
			return sym, nil
		}
		sym, err := t.lookupStore(ctx, userID, cur, key)
		if err != nil {
			return nil, err
		}
		if sym != nil {
			return sym, nil
		}

		sc, err := t.loadScope(ctx, userID, cur)
		if err != nil {
			return nil, err
		}
		if sc == nil || sc.ParentScopeID == nil {
			return nil, nil
		}
		cur = *sc.ParentScopeID
	}
	return nil, nil
}

type ResolutionResult struct {
	Resolved []domain.EntitySymbol `json:"resolved"`
	Entry    *domain.EntryIR       `json:"entry"`
	Warnings []string              `json:"warnings,omitempty"`
	// Changed reports whether Entry differs from the input and must be persisted.
	Changed bool `json:"changed"`
}

// ResolveEntitiesForEntry binds each entity mention of e in the entry's
// thread scope, synthesizing symbols for unknown names, and type-checks each
// usage. The input entry is not modified.
func (t *SymbolTable) ResolveEntitiesForEntry(ctx context.Context, e *domain.EntryIR) (*ResolutionResult, error) {
	ctx, span := tracer.Start(ctx, "SymbolTable.ResolveEntitiesForEntry")
	span.SetAttributes(attribute.Int("entities", len(e.Entities)))
	var err error
	defer func() { endSpan(span, err) }()

	result := &ResolutionResult{Entry: e.Clone()}
	if len(e.Entities) == 0 {
		return result, nil
	}

	scopeID := e.ThreadID.String()
	if err = t.ensureScope(ctx, e.UserID, scopeID, domain.ScopeThread); err != nil {
		return nil, err
	}

	updated := result.Entry
	for i := range updated.Entities {
		ref := &updated.Entities[i]
		if strings.TrimSpace(ref.Name) == "" {
			continue
		}

		var sym *domain.EntitySymbol
		sym, err = t.Resolve(ctx, e.UserID, ref.Name, scopeID)
		if err != nil {
			return nil, err
		}
		if sym == nil {
			sym = t.synthesize(ctx, updated, ref)
			if err = t.DefineSymbol(ctx, e.UserID, scopeID, sym); err != nil {
				return nil, err
			}
		}

		check := domain.TypeCheckEntityUsage(updated, sym)
		result.Warnings = append(result.Warnings, check.Warnings...)
		if check.Status == domain.TypeCheckInvalidLowConfidence {
			before := updated.KnowledgeType
			if domain.DowngradeAssertion(updated, sym) {
				result.Changed = true
				if updated.KnowledgeType != before {
					downgradeTotal.WithLabelValues("symbol").Inc()
				}
			}
		}

		id := sym.ID
		ref.SymbolID = &id
		ref.Restrictions = check.Restrictions
		if ref.Type == "" {
			ref.Type = sym.EntityType
		}
		result.Changed = true
		result.Resolved = append(result.Resolved, *sym)
	}

	// A confidence cap can push a FACT under the floor.
	if domain.EnforceEpistemicSafety(updated) {
		downgradeTotal.WithLabelValues("symbol").Inc()
		result.Changed = true
	}
	return result, nil
}

// synthesize builds a symbol for an unresolved mention. The entity type comes
// from the entity registry when the mention carries a resolved id.
func (t *SymbolTable) synthesize(ctx context.Context, e *domain.EntryIR, ref *domain.EntityRef) *domain.EntitySymbol {
	entityType := domain.DefaultEntityType
	if ref.Type != "" && domain.ValidEntityType(string(ref.Type)) {
		entityType = ref.Type
	}
	if ref.ID != uuid.Nil && t.entityStore != nil {
		ent, err := t.entityStore.GetByID(ctx, ref.ID, e.UserID)
		switch {
		case err == nil && domain.ValidEntityType(string(ent.EntityType)):
			entityType = ent.EntityType
		case err != nil && !errors.Is(err, store.ErrNotFound):
			t.logger.Debug("entity type lookup failed", zap.String("entity_id", ref.ID.String()), zap.Error(err))
		}
	}

	conf := ref.Confidence
	if conf <= 0 {
		conf = defaultSymbolConfidence
	}
	entryID := e.ID
	return &domain.EntitySymbol{
		ID:                  uuid.New(),
		CanonicalName:       strings.TrimSpace(ref.Name),
		EntityType:          entityType,
		Aliases:             []string{},
		Confidence:          conf,
		IntroducedByEntryID: &entryID,
		CertaintySource:     e.CertaintySource,
	}
}
