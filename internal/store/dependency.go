package store

import (
	"context"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DependencyStore struct {
	db *pgxpool.Pool
}

func NewDependencyStore(db *pgxpool.Pool) *DependencyStore {
	return &DependencyStore{db: db}
}

// ReplaceForEntry swaps an entry's outgoing edges in one transaction.
func (s *DependencyStore) ReplaceForEntry(ctx context.Context, entryID uuid.UUID, userID uuid.UUID, deps []domain.Dependency) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM entry_dependencies WHERE entry_id = $1 AND user_id = $2`,
			entryID, userID,
		); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, d := range deps {
			batch.Queue(
				`INSERT INTO entry_dependencies (entry_id, dependency_type, dependency_id, user_id)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (entry_id, dependency_type, dependency_id) DO NOTHING`,
				entryID, d.DependencyType, d.DependencyID, userID,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *DependencyStore) ListDependents(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]domain.Dependency, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT entry_id, dependency_type, dependency_id, user_id
		 FROM entry_dependencies
		 WHERE user_id = $1 AND dependency_id = ANY($2)`,
		userID, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deps []domain.Dependency
	for rows.Next() {
		var d domain.Dependency
		if err := rows.Scan(&d.EntryID, &d.DependencyType, &d.DependencyID, &d.UserID); err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}
