package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"adaptive-assessment-service/internal/domain"
	"adaptive-assessment-service/internal/logger"
	"adaptive-assessment-service/internal/selection"
)

// ItemRepository abstracts the item bank (cache/backing store).
type ItemRepository interface {
	// ActiveItems returns active candidates for the jurisdiction, minus the
	// excluded (already administered) ids.
	ActiveItems(ctx context.Context, jurisdiction string, exclude map[string]struct{}) ([]domain.Item, error)
	GetItem(ctx context.Context, itemID string) (domain.Item, error)
	// RecordItemUse bumps the item's exposure counter once per administration.
	RecordItemUse(ctx context.Context, itemID string) error
	// RecordAssessmentStart bumps the jurisdiction's assessment counter,
	// the denominator for exposure rates.
	RecordAssessmentStart(ctx context.Context, jurisdiction string) error
	// TotalAssessments is the current exposure-rate denominator.
	TotalAssessments(ctx context.Context, jurisdiction string) (int, error)
}

// SessionStore abstracts how assessment sessions are stored.
type SessionStore interface {
	Put(ctx context.Context, state *domain.SessionState) error
	Get(ctx context.Context, sessionID string) (*domain.SessionState, error)
}

// ReportStore persists finished diagnostic reports so path generation can
// re-run later. Optional: a nil store disables persistence.
type ReportStore interface {
	SaveReport(ctx context.Context, report domain.DiagnosticReport) error
}

// ResponseOutcome bundles what a single processed response produced.
type ResponseOutcome struct {
	Record      domain.ResponseRecord      `json:"record"`
	Estimate    domain.AbilityEstimate     `json:"estimate"`
	Termination domain.TerminationDecision `json:"termination"`
}

// Service contains the adaptive assessment use cases.
type Service struct {
	items    ItemRepository
	sessions SessionStore
	reports  ReportStore
	selector *selection.Selector
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
}

func NewService(items ItemRepository, sessions SessionStore, reports ReportStore, selector *selection.Selector, log *logger.Logger) *Service {
	return &Service{
		items:    items,
		sessions: sessions,
		reports:  reports,
		selector: selector,
		log:      log,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// NewServiceWithClock is test-only for deterministic ids and timestamps.
func NewServiceWithClock(items ItemRepository, sessions SessionStore, reports ReportStore, selector *selection.Selector, log *logger.Logger, now func() time.Time, newID func() string) *Service {
	s := NewService(items, sessions, reports, selector, log)
	s.now = now
	s.newID = newID
	return s
}

// StartSession creates and persists an INITIALIZED session.
func (s *Service) StartSession(ctx context.Context, studentID string, cfg domain.SessionConfig) (*domain.SessionState, error) {
	state := NewSession(s.newID(), studentID, cfg, s.now())
	if err := s.sessions.Put(ctx, state); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	if err := s.items.RecordAssessmentStart(ctx, state.Config.Jurisdiction); err != nil {
		s.log.Warn("record assessment start failed", "error", err)
	}
	s.log.Info("assessment session started",
		"session_id", state.ID,
		"student_id", studentID,
		"jurisdiction", cfg.Jurisdiction,
	)
	return state, nil
}

// NextQuestion selects the next item for the session. An exhausted
// candidate pool completes the session with the no-content reason and
// returns ErrNoContentAvailable; callers must distinguish this from normal
// termination.
func (s *Service) NextQuestion(ctx context.Context, sessionID string) (*domain.Item, error) {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Status == domain.StatusCompleted {
		return nil, domain.ErrInvalidSessionState
	}

	candidates, err := s.items.ActiveItems(ctx, state.Config.Jurisdiction, state.UsedItemIDs())
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	if len(candidates) == 0 {
		s.log.Warn("candidate pool exhausted", "session_id", state.ID, "questions_asked", state.QuestionsAsked)
		if err := Complete(state, domain.ReasonNoContent, s.now()); err != nil && !errors.Is(err, domain.ErrSessionCompleted) {
			return nil, err
		}
		if err := s.sessions.Put(ctx, state); err != nil {
			return nil, err
		}
		return nil, domain.ErrNoContentAvailable
	}

	total := 0
	if state.Config.ExposureControl {
		total, err = s.items.TotalAssessments(ctx, state.Config.Jurisdiction)
		if err != nil {
			// Exposure control is a fairness bias, not a correctness
			// requirement; selection proceeds unpenalized.
			s.log.Warn("exposure counter unavailable", "error", err)
			total = 0
		}
	}

	item := s.selector.NextItem(selection.Request{
		Candidates:       candidates,
		Theta:            state.CurrentTheta,
		Coverage:         state.Coverage,
		TopicMinimums:    state.Config.TopicMinimums,
		ExposureControl:  state.Config.ExposureControl,
		TotalAssessments: total,
		Randomness:       state.Config.Randomness,
	})
	if item == nil {
		return nil, domain.ErrNoContentAvailable
	}

	if err := s.items.RecordItemUse(ctx, item.ID); err != nil {
		s.log.Warn("record item use failed", "item_id", item.ID, "error", err)
	}
	return item, nil
}

// SubmitResponse records the student's answer, re-estimates ability and
// evaluates the stopping rules, completing the session when they fire.
func (s *Service) SubmitResponse(ctx context.Context, sessionID, itemID, selectedAnswer string, elapsedSeconds float64) (ResponseOutcome, error) {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return ResponseOutcome{}, err
	}

	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return ResponseOutcome{}, err
	}

	record, err := ProcessResponse(state, item, selectedAnswer, elapsedSeconds, s.now())
	if err != nil {
		return ResponseOutcome{}, err
	}

	decision := CheckTermination(state)
	if decision.ShouldTerminate {
		if err := Complete(state, decision.Reason, s.now()); err != nil {
			return ResponseOutcome{}, err
		}
		s.log.Info("assessment terminated",
			"session_id", state.ID,
			"reason", decision.Reason,
			"questions_asked", state.QuestionsAsked,
			"theta", state.CurrentTheta,
			"se", state.CurrentSE,
		)
	}

	if err := s.sessions.Put(ctx, state); err != nil {
		return ResponseOutcome{}, fmt.Errorf("store session: %w", err)
	}

	return ResponseOutcome{
		Record: record,
		Estimate: domain.AbilityEstimate{
			Theta:         state.CurrentTheta,
			StandardError: state.CurrentSE,
		},
		Termination: decision,
	}, nil
}

// Report generates (and persists, when a report store is configured) the
// diagnostic report for a completed session.
func (s *Service) Report(ctx context.Context, sessionID string) (domain.DiagnosticReport, error) {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.DiagnosticReport{}, err
	}

	report, err := GenerateReport(state, s.now())
	if err != nil {
		return domain.DiagnosticReport{}, err
	}

	if s.reports != nil {
		if err := s.reports.SaveReport(ctx, report); err != nil {
			// The report remains valid in memory; persistence is best effort
			// here and retried by the caller's job layer.
			s.log.Warn("persist report failed", "session_id", sessionID, "error", err)
		}
	}
	return report, nil
}

// Session returns the current session snapshot.
func (s *Service) Session(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	return s.sessions.Get(ctx, sessionID)
}
