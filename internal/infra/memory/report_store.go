package memory

import (
	"context"
	"sync"

	"adaptive-assessment-service/internal/domain"
)

// ReportStore keeps diagnostic reports in memory, newest last.
type ReportStore struct {
	mu      sync.RWMutex
	reports []domain.DiagnosticReport
}

func NewReportStore() *ReportStore {
	return &ReportStore{}
}

func (s *ReportStore) SaveReport(_ context.Context, report domain.DiagnosticReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

// LatestReport returns the student's most recently saved report.
func (s *ReportStore) LatestReport(_ context.Context, studentID string) (domain.DiagnosticReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.reports) - 1; i >= 0; i-- {
		if s.reports[i].StudentID == studentID {
			return s.reports[i], nil
		}
	}
	return domain.DiagnosticReport{}, domain.ErrSessionNotFound
}
