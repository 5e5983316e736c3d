package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"docquiz/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionStore persists question sets as JSONB rows keyed by document ID.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) SaveQuestionSet(ctx context.Context, set domain.QuestionSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal question set: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO question_sets (pdf_id, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (pdf_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		set.PDFID, raw)
	if err != nil {
		return fmt.Errorf("save question set: %w", err)
	}
	return nil
}

func (s *QuestionStore) LoadQuestionSet(ctx context.Context, pdfID string) (domain.QuestionSet, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM question_sets WHERE pdf_id=$1`, pdfID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("load question set: %w", err)
	}
	var set domain.QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("unmarshal question set: %w", err)
	}
	return set, nil
}
