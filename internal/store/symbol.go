package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SymbolStore struct {
	db *pgxpool.Pool
}

func NewSymbolStore(db *pgxpool.Pool) *SymbolStore {
	return &SymbolStore{db: db}
}

func (s *SymbolStore) UpsertScope(ctx context.Context, sc *domain.SymbolScope) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO symbol_scopes (scope_id, user_id, scope_type, parent_scope_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, scope_id) DO UPDATE
		 SET scope_type = EXCLUDED.scope_type,
		     parent_scope_id = COALESCE(EXCLUDED.parent_scope_id, symbol_scopes.parent_scope_id)
		 RETURNING created_at`,
		sc.ScopeID, sc.UserID, sc.ScopeType, sc.ParentScopeID,
	).Scan(&sc.CreatedAt)
}

func (s *SymbolStore) GetScope(ctx context.Context, userID uuid.UUID, scopeID string) (*domain.SymbolScope, error) {
	sc := &domain.SymbolScope{}
	err := s.db.QueryRow(ctx,
		`SELECT scope_id, user_id, scope_type, parent_scope_id, created_at
		 FROM symbol_scopes WHERE user_id = $1 AND scope_id = $2`,
		userID, scopeID,
	).Scan(&sc.ScopeID, &sc.UserID, &sc.ScopeType, &sc.ParentScopeID, &sc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sc, nil
}

// UpsertSymbol is last-writer-wins on id.
func (s *SymbolStore) UpsertSymbol(ctx context.Context, userID uuid.UUID, sym *domain.EntitySymbol) error {
	if sym.ID == uuid.Nil {
		sym.ID = uuid.New()
	}
	if sym.Aliases == nil {
		sym.Aliases = []string{}
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO entity_symbols (id, user_id, scope_id, canonical_name, entity_type, aliases, confidence,
		                             introduced_by_entry_id, certainty_source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE
		 SET canonical_name = EXCLUDED.canonical_name,
		     entity_type = EXCLUDED.entity_type,
		     aliases = EXCLUDED.aliases,
		     confidence = EXCLUDED.confidence,
		     certainty_source = EXCLUDED.certainty_source,
		     updated_at = NOW()
		 RETURNING created_at, updated_at`,
		sym.ID, userID, sym.ScopeID, sym.CanonicalName, sym.EntityType, sym.Aliases, sym.Confidence,
		sym.IntroducedByEntryID, sym.CertaintySource,
	).Scan(&sym.CreatedAt, &sym.UpdatedAt)
}

func (s *SymbolStore) FindSymbol(ctx context.Context, userID uuid.UUID, scopeID string, name string) (*domain.EntitySymbol, error) {
	sym := &domain.EntitySymbol{}
	err := s.db.QueryRow(ctx,
		`SELECT id, scope_id, canonical_name, entity_type, aliases, confidence, introduced_by_entry_id,
		        certainty_source, created_at, updated_at
		 FROM entity_symbols
		 WHERE user_id = $1 AND scope_id = $2
		   AND (LOWER(canonical_name) = LOWER($3) OR LOWER($3) = ANY(SELECT LOWER(unnest(aliases))))
		 ORDER BY confidence DESC
		 LIMIT 1`,
		userID, scopeID, name,
	).Scan(&sym.ID, &sym.ScopeID, &sym.CanonicalName, &sym.EntityType, &sym.Aliases, &sym.Confidence,
		&sym.IntroducedByEntryID, &sym.CertaintySource, &sym.CreatedAt, &sym.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sym, nil
}
