package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultIncrementalConcurrency = 4

	recompileOldWeight     = 0.6
	recompileEntityWeight  = 0.3
	recompileEmotionWeight = 0.1
	recompileSignalBonus   = 0.05
)

type IncrementalResult struct {
	Affected   int `json:"affected"`
	Recompiled int `json:"recompiled"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Deferred   int `json:"deferred"`
}

// IncrementalCompiler reruns the cheap passes over entries affected by a
// change. It never reclassifies: knowledge type is fixed after compile.
type IncrementalCompiler struct {
	entryStore domain.EntryStore
	graph      *DependencyGraph
	extractor  domain.EntityExtractor
	resolver   domain.EntityResolver
	enricher   domain.Enricher
	logger     *zap.Logger

	concurrency int
	now         func() time.Time
}

func NewIncrementalCompiler(es domain.EntryStore, graph *DependencyGraph, logger *zap.Logger) *IncrementalCompiler {
	return &IncrementalCompiler{
		entryStore:  es,
		graph:       graph,
		logger:      logger,
		concurrency: DefaultIncrementalConcurrency,
		now:         time.Now,
	}
}

func (c *IncrementalCompiler) SetExtractor(x domain.EntityExtractor) { c.extractor = x }
func (c *IncrementalCompiler) SetResolver(r domain.EntityResolver)   { c.resolver = r }
func (c *IncrementalCompiler) SetEnricher(e domain.Enricher)         { c.enricher = e }

func (c *IncrementalCompiler) SetConcurrency(n int) {
	if n > 0 {
		c.concurrency = n
	}
}

// IncrementalCompile recompiles every entry affected by changedIDs,
// including the changed entries themselves.
func (c *IncrementalCompiler) IncrementalCompile(ctx context.Context, userID uuid.UUID, changedIDs []uuid.UUID) (*IncrementalResult, error) {
	return c.run(ctx, userID, changedIDs, true)
}

// RecompileDependents recompiles what depends on changedIDs but leaves the
// changed entries alone. Used after promotion and deprecation.
func (c *IncrementalCompiler) RecompileDependents(ctx context.Context, userID uuid.UUID, changedIDs []uuid.UUID) (*IncrementalResult, error) {
	return c.run(ctx, userID, changedIDs, false)
}

func (c *IncrementalCompiler) run(ctx context.Context, userID uuid.UUID, changedIDs []uuid.UUID, includeSeeds bool) (*IncrementalResult, error) {
	ctx, span := tracer.Start(ctx, "IncrementalCompiler.Run")
	span.SetAttributes(attribute.Int("changed", len(changedIDs)), attribute.Bool("include_seeds", includeSeeds))
	var err error
	defer func() { endSpan(span, err) }()

	var affected *AffectedResult
	affected, err = c.graph.GetAffectedEntries(ctx, userID, changedIDs)
	if err != nil {
		return nil, err
	}

	result := &IncrementalResult{Deferred: len(affected.Deferred)}
	if len(affected.Deferred) > 0 {
		if err = c.entryStore.MarkDirty(ctx, userID, affected.Deferred); err != nil {
			return nil, fmt.Errorf("mark deferred entries dirty: %w", err)
		}
	}

	ids := affected.Entries
	if !includeSeeds {
		seeds := make(map[uuid.UUID]bool, len(changedIDs))
		for _, id := range changedIDs {
			seeds[id] = true
		}
		ids = ids[:0:0]
		for _, id := range affected.Entries {
			if !seeds[id] {
				ids = append(ids, id)
			}
		}
	}

	var entries []domain.EntryIR
	entries, err = c.entryStore.GetByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("load affected entries: %w", err)
	}
	result.Affected = len(entries)

	var recompiled, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := range entries {
		e := &entries[i]
		g.Go(func() error {
			ok, rerr := c.recompileEntry(gctx, e)
			switch {
			case rerr != nil:
				failed.Add(1)
				recompileTotal.WithLabelValues("failed").Inc()
				c.logger.Warn("incremental recompile failed",
					zap.String("entry_id", e.ID.String()), zap.Error(rerr))
				if derr := c.entryStore.MarkDirty(gctx, e.UserID, []uuid.UUID{e.ID}); derr != nil {
					c.logger.Warn("failed to mark entry dirty", zap.String("entry_id", e.ID.String()), zap.Error(derr))
				}
			case ok:
				recompiled.Add(1)
				recompileTotal.WithLabelValues("recompiled").Inc()
			default:
				skipped.Add(1)
				recompileTotal.WithLabelValues("skipped").Inc()
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Recompiled = int(recompiled.Load())
	result.Skipped = int(skipped.Load())
	result.Failed = int(failed.Load())
	return result, nil
}

// recompileEntry runs the cheap passes over e and persists it. Deprecated
// entries only have their dirty flag cleared. It reports whether the passes ran.
func (c *IncrementalCompiler) recompileEntry(ctx context.Context, e *domain.EntryIR) (bool, error) {
	if e.CompilerFlags.IsDeprecated {
		if !e.CompilerFlags.IsDirty {
			return false, nil
		}
		e.CompilerFlags.IsDirty = false
		return false, c.entryStore.Update(ctx, e)
	}

	oldConfidence := e.Confidence

	if refs, ok := c.reextract(ctx, e); ok {
		e.Entities = carryBindings(e.Entities, refs)
	}

	if c.enricher != nil {
		enr, err := c.enricher.EnrichEntry(ctx, e.Content, e.Entities)
		if err != nil {
			collaboratorFailures.WithLabelValues("enrichment").Inc()
			c.logger.Debug("re-enrichment failed, keeping previous signals", zap.Error(err))
		} else if enr != nil {
			e.Emotions = enr.Emotions
			e.Themes = enr.Themes
		}
	}

	e.Confidence = RecompiledConfidence(oldConfidence, e)
	e.CompilerFlags.CompilationVersion++
	e.CompilerFlags.IsDirty = false
	e.CompilerFlags.LastCompiledAt = c.now().UTC()

	if err := c.entryStore.Update(ctx, e); err != nil {
		return false, err
	}
	if err := c.graph.IndexEntry(ctx, e); err != nil {
		c.logger.Warn("failed to re-index dependencies", zap.String("entry_id", e.ID.String()), zap.Error(err))
	}
	return true, nil
}

func (c *IncrementalCompiler) reextract(ctx context.Context, e *domain.EntryIR) ([]domain.EntityRef, bool) {
	if c.extractor == nil || c.resolver == nil {
		return nil, false
	}
	candidates, err := c.extractor.ExtractEntities(ctx, e.Content)
	if err != nil {
		collaboratorFailures.WithLabelValues("extraction").Inc()
		c.logger.Debug("re-extraction failed, keeping previous entities", zap.Error(err))
		return nil, false
	}
	resolved, err := c.resolver.ResolveEntities(ctx, e.UserID, candidates)
	if err != nil {
		collaboratorFailures.WithLabelValues("resolution").Inc()
		c.logger.Debug("re-resolution failed, keeping previous entities", zap.Error(err))
		return nil, false
	}
	return refsFromResolved(resolved), true
}

// carryBindings keeps symbol bindings and restrictions for entities that
// survive re-extraction.
func carryBindings(old, fresh []domain.EntityRef) []domain.EntityRef {
	byID := make(map[uuid.UUID]domain.EntityRef, len(old))
	for _, r := range old {
		byID[r.ID] = r
	}
	for i := range fresh {
		if prev, ok := byID[fresh[i].ID]; ok {
			fresh[i].SymbolID = prev.SymbolID
			fresh[i].Restrictions = prev.Restrictions
		}
	}
	return fresh
}

// RecompiledConfidence blends the previous confidence with the mean entity
// confidence and small bonuses for emotion and theme signals.
func RecompiledConfidence(old float64, e *domain.EntryIR) float64 {
	entityMean := old
	if len(e.Entities) > 0 {
		var sum float64
		for _, r := range e.Entities {
			sum += r.Confidence
		}
		entityMean = sum / float64(len(e.Entities))
	}

	var emotionBonus, themeBonus float64
	if len(e.Emotions) > 0 {
		emotionBonus = recompileSignalBonus
	}
	if len(e.Themes) > 0 {
		themeBonus = recompileSignalBonus
	}

	return clampConfidence(recompileOldWeight*old + recompileEntityWeight*entityMean +
		recompileEmotionWeight*emotionBonus + themeBonus)
}

func refsFromResolved(resolved []domain.ResolvedEntity) []domain.EntityRef {
	refs := make([]domain.EntityRef, 0, len(resolved))
	for _, r := range resolved {
		refs = append(refs, domain.EntityRef{
			ID:         r.ID,
			Name:       r.PrimaryName,
			Type:       r.EntityType,
			Confidence: r.Confidence,
		})
	}
	return refs
}
