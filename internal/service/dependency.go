package service

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	DefaultMaxDependencyDepth = 32
	DefaultMaxAffectedEntries = 1000
)

// AffectedResult is the bounded closure of a dependency traversal. Entries
// includes the seeds. Deferred holds ids reached past the depth or size cap;
// their own dependents have not been explored.
type AffectedResult struct {
	Entries  []uuid.UUID `json:"entries"`
	Deferred []uuid.UUID `json:"deferred,omitempty"`
}

func (r *AffectedResult) Contains(id uuid.UUID) bool {
	for _, e := range r.Entries {
		if e == id {
			return true
		}
	}
	return false
}

// DependencyGraph persists entry edges and answers reverse reachability.
type DependencyGraph struct {
	store  domain.DependencyStore
	logger *zap.Logger

	maxDepth    int
	maxAffected int
}

func NewDependencyGraph(ds domain.DependencyStore, logger *zap.Logger) *DependencyGraph {
	return &DependencyGraph{
		store:       ds,
		logger:      logger,
		maxDepth:    DefaultMaxDependencyDepth,
		maxAffected: DefaultMaxAffectedEntries,
	}
}

func (g *DependencyGraph) SetLimits(maxDepth, maxAffected int) {
	if maxDepth > 0 {
		g.maxDepth = maxDepth
	}
	if maxAffected > 0 {
		g.maxAffected = maxAffected
	}
}

// IndexEntry replaces the persisted outgoing edges of e.
func (g *DependencyGraph) IndexEntry(ctx context.Context, e *domain.EntryIR) error {
	deps := domain.DependenciesFor(e)
	if err := g.store.ReplaceForEntry(ctx, e.ID, e.UserID, deps); err != nil {
		return fmt.Errorf("index dependencies for %s: %w", e.ID, err)
	}
	return nil
}

// GetAffectedEntries walks reverse edges breadth-first from ids, one store
// round-trip per layer. Seeds may be entry or entity ids.
func (g *DependencyGraph) GetAffectedEntries(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (*AffectedResult, error) {
	ctx, span := tracer.Start(ctx, "DependencyGraph.GetAffectedEntries")
	span.SetAttributes(attribute.Int("seeds", len(ids)))
	var err error
	defer func() { endSpan(span, err) }()

	result := &AffectedResult{}
	visited := make(map[uuid.UUID]bool, len(ids))
	admit := func(id uuid.UUID) bool {
		if len(result.Entries) >= g.maxAffected {
			result.Deferred = append(result.Deferred, id)
			return false
		}
		result.Entries = append(result.Entries, id)
		return true
	}

	var frontier []uuid.UUID
	for _, id := range ids {
		if id == uuid.Nil || visited[id] {
			continue
		}
		visited[id] = true
		if admit(id) {
			frontier = append(frontier, id)
		}
	}

	for depth := 1; len(frontier) > 0; depth++ {
		var deps []domain.Dependency
		deps, err = g.store.ListDependents(ctx, userID, frontier)
		if err != nil {
			return nil, fmt.Errorf("list dependents at depth %d: %w", depth, err)
		}

		var next []uuid.UUID
		for _, d := range deps {
			if visited[d.EntryID] {
				continue
			}
			visited[d.EntryID] = true
			if depth > g.maxDepth {
				result.Deferred = append(result.Deferred, d.EntryID)
				continue
			}
			if admit(d.EntryID) {
				next = append(next, d.EntryID)
			}
		}
		frontier = next
	}

	affectedEntries.Observe(float64(len(result.Entries)))
	if len(result.Deferred) > 0 {
		deferredEntries.Add(float64(len(result.Deferred)))
		g.logger.Info("dependency traversal capped",
			zap.String("user_id", userID.String()),
			zap.Int("affected", len(result.Entries)),
			zap.Int("deferred", len(result.Deferred)))
	}
	span.SetAttributes(
		attribute.Int("affected", len(result.Entries)),
		attribute.Int("deferred", len(result.Deferred)),
	)
	return result, nil
}
