package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"adaptive-assessment-service/internal/domain"
)

// ConceptLoader loads concept JSONB from Postgres.
type ConceptLoader struct {
	pool *pgxpool.Pool
}

func NewConceptLoader(pool *pgxpool.Pool) *ConceptLoader {
	return &ConceptLoader{pool: pool}
}

func (l *ConceptLoader) ListConcepts(ctx context.Context, jurisdiction string) ([]domain.ConceptNode, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM concepts WHERE jurisdiction=$1 ORDER BY id`, jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}
	defer rows.Close()

	var concepts []domain.ConceptNode
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan concept: %w", err)
		}
		var concept domain.ConceptNode
		if err := json.Unmarshal(raw, &concept); err != nil {
			return nil, fmt.Errorf("unmarshal concept: %w", err)
		}
		concepts = append(concepts, concept)
	}
	return concepts, rows.Err()
}

// SaveConcept upserts one concept node.
func (l *ConceptLoader) SaveConcept(ctx context.Context, concept domain.ConceptNode) error {
	raw, err := json.Marshal(concept)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO concepts (id, jurisdiction, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET jurisdiction=EXCLUDED.jurisdiction, data=EXCLUDED.data`,
		concept.ID, concept.Jurisdiction, raw)
	if err != nil {
		return fmt.Errorf("save concept %s: %w", concept.ID, err)
	}
	return nil
}
