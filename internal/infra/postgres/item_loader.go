// Package postgres holds the durable stores: item and concept content as
// JSONB, the attempt log and persisted diagnostic reports.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"adaptive-assessment-service/internal/domain"
)

// ItemLoader loads item JSONB from Postgres. The Redis layer sits in front
// of it; this is the cache-miss path.
type ItemLoader struct {
	pool *pgxpool.Pool
}

func NewItemLoader(pool *pgxpool.Pool) *ItemLoader {
	return &ItemLoader{pool: pool}
}

func (l *ItemLoader) LoadItems(ctx context.Context, jurisdiction string) ([]domain.Item, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM items WHERE jurisdiction=$1`, jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		var item domain.Item
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("unmarshal item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (l *ItemLoader) LoadItem(ctx context.Context, itemID string) (domain.Item, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM items WHERE id=$1`, itemID).Scan(&raw)
	if err != nil {
		return domain.Item{}, fmt.Errorf("load item %s: %w", itemID, err)
	}
	var item domain.Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return domain.Item{}, fmt.Errorf("unmarshal item: %w", err)
	}
	return item, nil
}

// SaveItem upserts one item, keyed columns mirrored out of the JSONB for
// querying.
func (l *ItemLoader) SaveItem(ctx context.Context, item domain.Item) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO items (id, jurisdiction, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET jurisdiction=EXCLUDED.jurisdiction, data=EXCLUDED.data`,
		item.ID, item.Jurisdiction, raw)
	if err != nil {
		return fmt.Errorf("save item %s: %w", item.ID, err)
	}
	return nil
}
