package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"adaptive-assessment-service/internal/domain"
)

// AttemptLog is the durable practice-attempt history behind the mastery
// calculator.
type AttemptLog struct {
	pool *pgxpool.Pool
}

func NewAttemptLog(pool *pgxpool.Pool) *AttemptLog {
	return &AttemptLog{pool: pool}
}

func (l *AttemptLog) AddAttempt(ctx context.Context, studentID, conceptID string, attempt domain.Attempt) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO attempts (student_id, concept_id, is_correct, time_seconds, attempted_at)
		VALUES ($1, $2, $3, $4, $5)`,
		studentID, conceptID, attempt.IsCorrect, attempt.TimeSeconds, attempt.AttemptedAt)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the chronological history; the mastery calculator
// depends on the ordering for its recency weights.
func (l *AttemptLog) ListAttempts(ctx context.Context, studentID, conceptID string) ([]domain.Attempt, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT is_correct, time_seconds, attempted_at
		FROM attempts
		WHERE student_id=$1 AND concept_id=$2
		ORDER BY attempted_at ASC, id ASC`,
		studentID, conceptID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		if err := rows.Scan(&a.IsCorrect, &a.TimeSeconds, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
