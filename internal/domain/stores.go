package domain

import (
	"context"

	"github.com/google/uuid"
)

type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*User, error)
}

// EntryStore persists EntryIR. Raw listings are for the contract layer and
// compiler passes; user-facing reads go through ApplyContract.
type EntryStore interface {
	Create(ctx context.Context, e *EntryIR) error
	Update(ctx context.Context, e *EntryIR) error
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*EntryIR, error)
	GetByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]EntryIR, error)
	ListByUser(ctx context.Context, userID uuid.UUID, opts ListEntriesOpts) ([]EntryIR, error)
	FindSimilar(ctx context.Context, userID uuid.UUID, embedding []float32, limit int) ([]EntryWithScore, error)
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	MarkDirty(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error
	ListDirty(ctx context.Context, limit int) ([]EntryIR, error)
}

type SymbolStore interface {
	UpsertScope(ctx context.Context, s *SymbolScope) error
	GetScope(ctx context.Context, userID uuid.UUID, scopeID string) (*SymbolScope, error)
	UpsertSymbol(ctx context.Context, userID uuid.UUID, s *EntitySymbol) error
	// FindSymbol matches name case-insensitively against canonical names and aliases in one scope.
	FindSymbol(ctx context.Context, userID uuid.UUID, scopeID string, name string) (*EntitySymbol, error)
}

type EntityStore interface {
	Create(ctx context.Context, e *Entity) error
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*Entity, error)
	FindByNameOrAlias(ctx context.Context, userID uuid.UUID, name string) (*Entity, error)
	FindByEmbeddingSimilarity(ctx context.Context, userID uuid.UUID, embedding []float32, threshold float32, limit int) ([]Entity, error)
	AddAlias(ctx context.Context, id uuid.UUID, alias string) error
}

type DependencyStore interface {
	// ReplaceForEntry swaps the full outgoing edge set of an entry.
	ReplaceForEntry(ctx context.Context, entryID uuid.UUID, userID uuid.UUID, deps []Dependency) error
	// ListDependents returns the edges pointing at any of ids.
	ListDependents(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]Dependency, error)
}

type BeliefEvolutionStore interface {
	Upsert(ctx context.Context, b *BeliefEvolution) error
	GetByKey(ctx context.Context, userID uuid.UUID, beliefKey string) (*BeliefEvolution, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]BeliefEvolution, error)
	// DeleteExcept removes the user's evolutions whose key is not in keep.
	DeleteExcept(ctx context.Context, userID uuid.UUID, keep []string) error
}

type NarrativeDiffStore interface {
	// Upsert is keyed by (from_entry_id, to_entry_id, subject_id, diff_type).
	Upsert(ctx context.Context, d *NarrativeDiff) error
	ListByUser(ctx context.Context, userID uuid.UUID, subjectID *uuid.UUID, limit int) ([]NarrativeDiff, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) ([]EntityCandidate, error)
}

type EntityResolver interface {
	ResolveEntities(ctx context.Context, userID uuid.UUID, candidates []EntityCandidate) ([]ResolvedEntity, error)
}

type Enricher interface {
	EnrichEntry(ctx context.Context, text string, entities []EntityRef) (*Enrichment, error)
}

type CanonDetector interface {
	DetermineCanonStatus(ctx context.Context, text string, override *CanonStatus) (CanonMetadata, error)
}

// LLMClient is the language-model collaborator. It covers extraction and enrichment.
type LLMClient interface {
	EntityExtractor
	Enricher
}
