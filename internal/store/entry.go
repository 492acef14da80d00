package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

const entryColumns = `id, user_id, source_utterance_id, thread_id, ts, knowledge_type, canon, confidence,
	certainty_source, content, entities, emotions, themes, narrative_links, compiler_flags, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner, extra ...any) (*domain.EntryIR, error) {
	e := &domain.EntryIR{}
	dest := []any{
		&e.ID, &e.UserID, &e.SourceUtteranceID, &e.ThreadID, &e.Timestamp, &e.KnowledgeType, &e.Canon, &e.Confidence,
		&e.CertaintySource, &e.Content, &e.Entities, &e.Emotions, &e.Themes, &e.NarrativeLinks, &e.CompilerFlags,
		&e.CreatedAt, &e.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return e, nil
}

func collectEntries(rows pgx.Rows) ([]domain.EntryIR, error) {
	defer rows.Close()
	var entries []domain.EntryIR
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

type EntryStore struct {
	db *pgxpool.Pool
}

func NewEntryStore(db *pgxpool.Pool) *EntryStore {
	return &EntryStore{db: db}
}

// Create upserts the entry by id.
func (s *EntryStore) Create(ctx context.Context, e *domain.EntryIR) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	var embedding *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		embedding = &v
	}
	if e.Entities == nil {
		e.Entities = []domain.EntityRef{}
	}
	if e.Emotions == nil {
		e.Emotions = []domain.EmotionSignal{}
	}
	if e.Themes == nil {
		e.Themes = []domain.ThemeSignal{}
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO entry_ir (id, user_id, source_utterance_id, thread_id, ts, knowledge_type, canon, confidence,
		                       certainty_source, content, entities, emotions, themes, narrative_links, compiler_flags, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (id) DO UPDATE
		 SET knowledge_type = EXCLUDED.knowledge_type,
		     canon = EXCLUDED.canon,
		     confidence = EXCLUDED.confidence,
		     certainty_source = EXCLUDED.certainty_source,
		     content = EXCLUDED.content,
		     entities = EXCLUDED.entities,
		     emotions = EXCLUDED.emotions,
		     themes = EXCLUDED.themes,
		     narrative_links = EXCLUDED.narrative_links,
		     compiler_flags = EXCLUDED.compiler_flags,
		     embedding = COALESCE(EXCLUDED.embedding, entry_ir.embedding),
		     updated_at = NOW()
		 RETURNING created_at, updated_at`,
		e.ID, e.UserID, e.SourceUtteranceID, e.ThreadID, e.Timestamp, e.KnowledgeType, e.Canon, e.Confidence,
		e.CertaintySource, e.Content, e.Entities, e.Emotions, e.Themes, e.NarrativeLinks, e.CompilerFlags, embedding,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (s *EntryStore) Update(ctx context.Context, e *domain.EntryIR) error {
	err := s.db.QueryRow(ctx,
		`UPDATE entry_ir
		 SET knowledge_type = $3, canon = $4, confidence = $5, certainty_source = $6,
		     entities = $7, emotions = $8, themes = $9, narrative_links = $10, compiler_flags = $11,
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING updated_at`,
		e.ID, e.UserID, e.KnowledgeType, e.Canon, e.Confidence, e.CertaintySource,
		e.Entities, e.Emotions, e.Themes, e.NarrativeLinks, e.CompilerFlags,
	).Scan(&e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *EntryStore) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.EntryIR, error) {
	e, err := scanEntry(s.db.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM entry_ir WHERE id = $1 AND user_id = $2`,
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

func (s *EntryStore) GetByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]domain.EntryIR, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+entryColumns+` FROM entry_ir WHERE user_id = $1 AND id = ANY($2) ORDER BY ts`,
		userID, ids,
	)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (s *EntryStore) ListByUser(ctx context.Context, userID uuid.UUID, opts domain.ListEntriesOpts) ([]domain.EntryIR, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}

	if opts.ThreadID != nil {
		args = append(args, *opts.ThreadID)
		conditions = append(conditions, fmt.Sprintf("thread_id = $%d", len(args)))
	}
	if !opts.IncludeDeprecated {
		conditions = append(conditions, "NOT COALESCE((compiler_flags->>'is_deprecated')::boolean, false)")
	}

	query := `SELECT ` + entryColumns + ` FROM entry_ir WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY ts`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return collectEntries(rows)
}

func (s *EntryStore) FindSimilar(ctx context.Context, userID uuid.UUID, embedding []float32, limit int) ([]domain.EntryWithScore, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+entryColumns+`, 1 - (embedding <=> $2) AS score
		 FROM entry_ir
		 WHERE user_id = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		userID, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}
	defer rows.Close()

	var results []domain.EntryWithScore
	for rows.Next() {
		var score float32
		e, err := scanEntry(rows, &score)
		if err != nil {
			return nil, fmt.Errorf("scan similar row: %w", err)
		}
		results = append(results, domain.EntryWithScore{EntryIR: *e, Score: score})
	}
	return results, rows.Err()
}

func (s *EntryStore) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE entry_ir SET embedding = $2 WHERE id = $1`,
		id, pgvector.NewVector(embedding),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EntryStore) MarkDirty(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx,
		`UPDATE entry_ir
		 SET compiler_flags = jsonb_set(compiler_flags, '{is_dirty}', 'true'::jsonb), updated_at = NOW()
		 WHERE user_id = $1 AND id = ANY($2)`,
		userID, ids,
	)
	return err
}

// ListDirty returns dirty entries across all users, oldest first.
func (s *EntryStore) ListDirty(ctx context.Context, limit int) ([]domain.EntryIR, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+entryColumns+` FROM entry_ir
		 WHERE (compiler_flags->>'is_dirty')::boolean
		 ORDER BY updated_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}
