package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const beliefColumns = `id, user_id, belief_key, statement, history, trend, drift, first_seen, last_seen, updated_at`

type BeliefEvolutionStore struct {
	db *pgxpool.Pool
}

func NewBeliefEvolutionStore(db *pgxpool.Pool) *BeliefEvolutionStore {
	return &BeliefEvolutionStore{db: db}
}

func scanBelief(row rowScanner) (*domain.BeliefEvolution, error) {
	b := &domain.BeliefEvolution{}
	err := row.Scan(&b.ID, &b.UserID, &b.BeliefKey, &b.Statement, &b.History, &b.Trend, &b.Drift,
		&b.FirstSeen, &b.LastSeen, &b.UpdatedAt)
	return b, err
}

// Upsert is keyed by (user_id, belief_key).
func (s *BeliefEvolutionStore) Upsert(ctx context.Context, b *domain.BeliefEvolution) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO belief_evolutions (user_id, belief_key, statement, history, trend, drift, first_seen, last_seen)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, belief_key) DO UPDATE
		 SET statement = EXCLUDED.statement,
		     history = EXCLUDED.history,
		     trend = EXCLUDED.trend,
		     drift = EXCLUDED.drift,
		     first_seen = EXCLUDED.first_seen,
		     last_seen = EXCLUDED.last_seen,
		     updated_at = NOW()
		 RETURNING id, updated_at`,
		b.UserID, b.BeliefKey, b.Statement, b.History, b.Trend, b.Drift, b.FirstSeen, b.LastSeen,
	).Scan(&b.ID, &b.UpdatedAt)
}

func (s *BeliefEvolutionStore) GetByKey(ctx context.Context, userID uuid.UUID, beliefKey string) (*domain.BeliefEvolution, error) {
	b, err := scanBelief(s.db.QueryRow(ctx,
		`SELECT `+beliefColumns+` FROM belief_evolutions WHERE user_id = $1 AND belief_key = $2`,
		userID, beliefKey,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *BeliefEvolutionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.BeliefEvolution, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+beliefColumns+` FROM belief_evolutions WHERE user_id = $1 ORDER BY last_seen DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beliefs []domain.BeliefEvolution
	for rows.Next() {
		b, err := scanBelief(rows)
		if err != nil {
			return nil, err
		}
		beliefs = append(beliefs, *b)
	}
	return beliefs, rows.Err()
}

func (s *BeliefEvolutionStore) DeleteExcept(ctx context.Context, userID uuid.UUID, keep []string) error {
	if keep == nil {
		keep = []string{}
	}
	_, err := s.db.Exec(ctx, `
		DELETE FROM belief_evolutions
		WHERE user_id = $1 AND NOT (belief_key = ANY($2::text[]))`,
		userID, keep)
	return err
}
