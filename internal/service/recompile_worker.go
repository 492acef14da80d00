package service

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultRecompileInterval  = 5 * time.Minute
	defaultRecompileBatchSize = 100
)

// RecompileWorker drains entries left dirty by capped traversals or failed
// recompiles. Each dirty entry is fed back in as a seed, so a capped closure
// continues from where it stopped.
type RecompileWorker struct {
	entryStore  domain.EntryStore
	incremental *IncrementalCompiler
	logger      *zap.Logger

	interval  time.Duration
	batchSize int
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewRecompileWorker(es domain.EntryStore, ic *IncrementalCompiler, logger *zap.Logger) *RecompileWorker {
	return &RecompileWorker{
		entryStore:  es,
		incremental: ic,
		logger:      logger,
		interval:    defaultRecompileInterval,
		batchSize:   defaultRecompileBatchSize,
		stopCh:      make(chan struct{}),
	}
}

func (w *RecompileWorker) SetInterval(d time.Duration) {
	if d > 0 {
		w.interval = d
	}
}

func (w *RecompileWorker) SetBatchSize(n int) {
	if n > 0 {
		w.batchSize = n
	}
}

func (w *RecompileWorker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("recompile worker started", zap.Duration("interval", w.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				w.RunOnce(ctx)
				cancel()
			case <-w.stopCh:
				w.logger.Info("recompile worker stopped")
				return
			}
		}
	}()
}

func (w *RecompileWorker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

// RunOnce recompiles one batch of dirty entries, grouped by user.
func (w *RecompileWorker) RunOnce(ctx context.Context) *IncrementalResult {
	total := &IncrementalResult{}

	dirty, err := w.entryStore.ListDirty(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list dirty entries", zap.Error(err))
		return total
	}
	if len(dirty) == 0 {
		return total
	}

	byUser := make(map[uuid.UUID][]uuid.UUID)
	var order []uuid.UUID
	for _, e := range dirty {
		if _, ok := byUser[e.UserID]; !ok {
			order = append(order, e.UserID)
		}
		byUser[e.UserID] = append(byUser[e.UserID], e.ID)
	}

	for _, userID := range order {
		result, err := w.incremental.IncrementalCompile(ctx, userID, byUser[userID])
		if err != nil {
			w.logger.Error("recompile failed for user",
				zap.String("user_id", userID.String()),
				zap.Error(err))
			continue
		}
		total.Affected += result.Affected
		total.Recompiled += result.Recompiled
		total.Skipped += result.Skipped
		total.Failed += result.Failed
		total.Deferred += result.Deferred
	}

	w.logger.Info("recompile batch complete",
		zap.Int("dirty", len(dirty)),
		zap.Int("recompiled", total.Recompiled),
		zap.Int("failed", total.Failed),
		zap.Int("deferred", total.Deferred))
	return total
}
