package memory

import (
	"context"
	"sync"

	"adaptive-assessment-service/internal/domain"
)

// ConceptRepository is an in-memory concept catalog.
type ConceptRepository struct {
	mu       sync.RWMutex
	concepts []domain.ConceptNode
}

func NewConceptRepository(concepts []domain.ConceptNode) *ConceptRepository {
	return &ConceptRepository{concepts: concepts}
}

func (r *ConceptRepository) ListConcepts(_ context.Context, jurisdiction string) ([]domain.ConceptNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.ConceptNode
	for _, c := range r.concepts {
		if c.Jurisdiction == jurisdiction {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetConcept resolves one concept by id.
func (r *ConceptRepository) GetConcept(_ context.Context, conceptID string) (domain.ConceptNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.concepts {
		if c.ID == conceptID {
			return c, nil
		}
	}
	return domain.ConceptNode{}, domain.ErrConceptNotFound
}
