package store

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NarrativeDiffStore struct {
	db *pgxpool.Pool
}

func NewNarrativeDiffStore(db *pgxpool.Pool) *NarrativeDiffStore {
	return &NarrativeDiffStore{db: db}
}

func (s *NarrativeDiffStore) Upsert(ctx context.Context, d *domain.NarrativeDiff) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO narrative_diffs (user_id, subject_id, subject_name, from_entry_id, to_entry_id, diff_type,
		                              before_value, after_value, magnitude)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (from_entry_id, to_entry_id, subject_id, diff_type) DO UPDATE
		 SET subject_name = EXCLUDED.subject_name,
		     before_value = EXCLUDED.before_value,
		     after_value = EXCLUDED.after_value,
		     magnitude = EXCLUDED.magnitude,
		     detected_at = NOW()
		 RETURNING id, detected_at`,
		d.UserID, d.SubjectID, d.SubjectName, d.FromEntryID, d.ToEntryID, d.DiffType, d.Before, d.After, d.Magnitude,
	).Scan(&d.ID, &d.DetectedAt)
}

func (s *NarrativeDiffStore) ListByUser(ctx context.Context, userID uuid.UUID, subjectID *uuid.UUID, limit int) ([]domain.NarrativeDiff, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, user_id, subject_id, subject_name, from_entry_id, to_entry_id, diff_type,
	                 before_value, after_value, magnitude, detected_at
	          FROM narrative_diffs WHERE user_id = $1`
	args := []any{userID}
	if subjectID != nil {
		args = append(args, *subjectID)
		query += fmt.Sprintf(" AND subject_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY detected_at DESC LIMIT $%d", len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var diffs []domain.NarrativeDiff
	for rows.Next() {
		var d domain.NarrativeDiff
		if err := rows.Scan(&d.ID, &d.UserID, &d.SubjectID, &d.SubjectName, &d.FromEntryID, &d.ToEntryID, &d.DiffType,
			&d.Before, &d.After, &d.Magnitude, &d.DetectedAt); err != nil {
			return nil, err
		}
		diffs = append(diffs, d)
	}
	return diffs, rows.Err()
}
