package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/Harshitk-cp/lorekeeper/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	entityEmbeddingSimilarityThreshold = 0.85
	defaultCandidateConfidence         = 0.7
)

// EntityResolutionService maps extracted mentions onto the user's entity
// registry: exact name or alias, then embedding similarity, then a new entity.
type EntityResolutionService struct {
	entityStore     domain.EntityStore
	embeddingClient domain.EmbeddingClient
	logger          *zap.Logger
}

func NewEntityResolutionService(es domain.EntityStore, ec domain.EmbeddingClient, logger *zap.Logger) *EntityResolutionService {
	return &EntityResolutionService{
		entityStore:     es,
		embeddingClient: ec,
		logger:          logger,
	}
}

func (s *EntityResolutionService) ResolveEntities(ctx context.Context, userID uuid.UUID, candidates []domain.EntityCandidate) ([]domain.ResolvedEntity, error) {
	seen := make(map[uuid.UUID]bool)
	var out []domain.ResolvedEntity
	for _, c := range candidates {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		entity, err := s.findOrCreateEntity(ctx, userID, name, c)
		if err != nil {
			return nil, err
		}
		if seen[entity.ID] {
			continue
		}
		seen[entity.ID] = true

		conf := c.Confidence
		if conf <= 0 {
			conf = defaultCandidateConfidence
		}
		out = append(out, domain.ResolvedEntity{
			ID:          entity.ID,
			PrimaryName: entity.Name,
			EntityType:  entity.EntityType,
			Confidence:  conf,
		})
	}
	return out, nil
}

func (s *EntityResolutionService) findOrCreateEntity(ctx context.Context, userID uuid.UUID, name string, c domain.EntityCandidate) (*domain.Entity, error) {
	entity, err := s.entityStore.FindByNameOrAlias(ctx, userID, name)
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	entity = &domain.Entity{
		UserID:     userID,
		Name:       name,
		EntityType: domain.EntityTypeFromLabel(c.Type),
		Aliases:    []string{},
		Confidence: c.Confidence,
	}

	if s.embeddingClient != nil {
		emb, embErr := s.embeddingClient.Embed(ctx, name)
		if embErr != nil {
			s.logger.Debug("entity name embedding failed", zap.String("name", name), zap.Error(embErr))
		} else if len(emb) > 0 {
			similar, findErr := s.entityStore.FindByEmbeddingSimilarity(ctx, userID, emb, entityEmbeddingSimilarityThreshold, 1)
			if findErr == nil && len(similar) > 0 {
				if aliasErr := s.entityStore.AddAlias(ctx, similar[0].ID, name); aliasErr != nil {
					s.logger.Warn("failed to record entity alias", zap.String("name", name), zap.Error(aliasErr))
				}
				return &similar[0], nil
			}
			entity.Embedding = emb
		}
	}

	if err := s.entityStore.Create(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}
