package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"adaptive-assessment-service/internal/domain"
)

type reportRow struct {
	bun.BaseModel `bun:"table:diagnostic_reports"`

	SessionID   string    `bun:"session_id,pk"`
	StudentID   string    `bun:"student_id"`
	Data        []byte    `bun:"data,type:jsonb"`
	GeneratedAt time.Time `bun:"generated_at"`
}

// ReportStore persists diagnostic reports so path generation can re-run
// against a past assessment without replaying it.
type ReportStore struct {
	db *bun.DB
}

func NewReportStore(db *bun.DB) *ReportStore {
	return &ReportStore{db: db}
}

func (s *ReportStore) SaveReport(ctx context.Context, report domain.DiagnosticReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	row := &reportRow{
		SessionID:   report.SessionID,
		StudentID:   report.StudentID,
		Data:        raw,
		GeneratedAt: report.GeneratedAt,
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (session_id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("generated_at = EXCLUDED.generated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// LatestReport returns the student's most recent diagnostic report.
func (s *ReportStore) LatestReport(ctx context.Context, studentID string) (domain.DiagnosticReport, error) {
	row := new(reportRow)
	err := s.db.NewSelect().
		Model(row).
		Where("student_id = ?", studentID).
		Order("generated_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DiagnosticReport{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load report: %w", err)
	}
	var report domain.DiagnosticReport
	if err := json.Unmarshal(row.Data, &report); err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return report, nil
}
