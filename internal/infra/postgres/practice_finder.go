package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// PracticeItemFinder resolves a concept to practice items by matching the
// concept's topic against the item bank. A similarity service can replace
// this without touching the path generator.
type PracticeItemFinder struct {
	pool *pgxpool.Pool
}

func NewPracticeItemFinder(pool *pgxpool.Pool) *PracticeItemFinder {
	return &PracticeItemFinder{pool: pool}
}

func (f *PracticeItemFinder) FindItemsForConcept(ctx context.Context, conceptID string, limit int) ([]string, error) {
	rows, err := f.pool.Query(ctx, `
		SELECT i.id
		FROM items i
		JOIN concepts c ON i.data->>'topic' = c.data->>'topic'
		WHERE c.id = $1 AND (i.data->>'active')::boolean
		ORDER BY i.id
		LIMIT $2`,
		conceptID, limit)
	if err != nil {
		return nil, fmt.Errorf("find practice items: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
