package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/Harshitk-cp/lorekeeper/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotVisible means the entry exists but the requested contract does not admit it.
var ErrNotVisible = errors.New("entry not visible under contract")

// EntryService is the contract-gated read surface over compiled entries.
type EntryService struct {
	entryStore domain.EntryStore
	logger     *zap.Logger
}

func NewEntryService(es domain.EntryStore, logger *zap.Logger) *EntryService {
	return &EntryService{entryStore: es, logger: logger}
}

type ListEntriesRequest struct {
	UserID   uuid.UUID
	Contract domain.SensemakingContract
	ThreadID *uuid.UUID
	Limit    int
}

func (s *EntryService) List(ctx context.Context, req ListEntriesRequest) (*domain.ConstrainedMemoryView, error) {
	entries, err := s.entryStore.ListByUser(ctx, req.UserID, domain.ListEntriesOpts{
		ThreadID: req.ThreadID,
		Limit:    req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	view := domain.ApplyContract(req.Contract, entries)
	return &view, nil
}

// Get returns a single-entry view. Entries the contract filters out are
// reported as ErrNotVisible rather than leaked.
func (s *EntryService) Get(ctx context.Context, userID, id uuid.UUID, c domain.SensemakingContract) (*domain.ConstrainedMemoryView, error) {
	e, err := s.entryStore.GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	view := domain.ApplyContract(c, []domain.EntryIR{*e})
	if len(view.Entries) == 0 {
		return nil, ErrNotVisible
	}
	return &view, nil
}

// Render applies the contract's uncertainty label to an entry's content.
func Render(c domain.SensemakingContract, e *domain.EntryIR) string {
	return domain.FormatOutputWithUncertainty(c, e.Content, e.Confidence)
}

// RenderInference labels derived content with the contract's inference label.
func RenderInference(c domain.SensemakingContract, content string) string {
	return domain.FormatInference(c, content)
}
