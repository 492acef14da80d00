package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

const entityColumns = `id, user_id, name, entity_type, aliases, confidence, created_at, updated_at`

type EntityStore struct {
	db *pgxpool.Pool
}

func NewEntityStore(db *pgxpool.Pool) *EntityStore {
	return &EntityStore{db: db}
}

func scanEntity(row rowScanner, extra ...any) (*domain.Entity, error) {
	e := &domain.Entity{}
	dest := []any{&e.ID, &e.UserID, &e.Name, &e.EntityType, &e.Aliases, &e.Confidence, &e.CreatedAt, &e.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EntityStore) Create(ctx context.Context, e *domain.Entity) error {
	var embedding *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		embedding = &v
	}
	if e.Aliases == nil {
		e.Aliases = []string{}
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO entities (user_id, name, entity_type, aliases, confidence, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, name, entity_type) DO UPDATE
		 SET aliases = ARRAY(SELECT DISTINCT unnest(entities.aliases || EXCLUDED.aliases)),
		     confidence = GREATEST(entities.confidence, EXCLUDED.confidence),
		     embedding = COALESCE(EXCLUDED.embedding, entities.embedding),
		     updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		e.UserID, e.Name, e.EntityType, e.Aliases, e.Confidence, embedding,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

func (s *EntityStore) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.Entity, error) {
	e, err := scanEntity(s.db.QueryRow(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *EntityStore) FindByNameOrAlias(ctx context.Context, userID uuid.UUID, name string) (*domain.Entity, error) {
	e, err := scanEntity(s.db.QueryRow(ctx,
		`SELECT `+entityColumns+`
		 FROM entities
		 WHERE user_id = $1 AND (LOWER(name) = LOWER($2) OR LOWER($2) = ANY(SELECT LOWER(unnest(aliases))))
		 ORDER BY confidence DESC
		 LIMIT 1`,
		userID, name,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *EntityStore) FindByEmbeddingSimilarity(ctx context.Context, userID uuid.UUID, embedding []float32, threshold float32, limit int) ([]domain.Entity, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	vec := pgvector.NewVector(embedding)
	rows, err := s.db.Query(ctx,
		`SELECT `+entityColumns+`, 1 - (embedding <=> $2) AS similarity
		 FROM entities
		 WHERE user_id = $1
		   AND embedding IS NOT NULL
		   AND 1 - (embedding <=> $2) >= $3
		 ORDER BY similarity DESC
		 LIMIT $4`,
		userID, vec, threshold, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		var similarity float32
		e, err := scanEntity(rows, &similarity)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *e)
	}
	return entities, rows.Err()
}

func (s *EntityStore) AddAlias(ctx context.Context, id uuid.UUID, alias string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE entities
		 SET aliases = ARRAY(SELECT DISTINCT unnest(aliases || ARRAY[$2])),
		     updated_at = NOW()
		 WHERE id = $1`,
		id, alias,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
