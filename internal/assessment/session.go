// Package assessment drives the adaptive testing loop: initialize, select,
// record response, re-estimate, check termination, report.
package assessment

import (
	"fmt"
	"math"
	"sort"
	"time"

	"adaptive-assessment-service/internal/domain"
	"adaptive-assessment-service/internal/irt"
)

// Config defaults applied when the caller leaves fields zero.
const (
	DefaultMinQuestions    = 10
	DefaultMaxQuestions    = 20
	DefaultSEThreshold     = 0.3
	DefaultWeakThreshold   = 0.70
	DefaultStrongThreshold = 0.85
)

// Termination criteria keys reported in TerminationDecision.MetCriteria.
const (
	criterionMinQuestions = "min_questions"
	criterionPrecision    = "precision"
	criterionCoverage     = "coverage"
)

// NewSession builds the INITIALIZED state for one assessment attempt:
// theta at the configured start, SE at the infinite-uncertainty sentinel,
// empty history and fresh coverage counters.
func NewSession(id, studentID string, cfg domain.SessionConfig, now time.Time) *domain.SessionState {
	applyConfigDefaults(&cfg)
	return &domain.SessionState{
		ID:           id,
		StudentID:    studentID,
		Config:       cfg,
		CurrentTheta: cfg.StartingTheta,
		CurrentSE:    irt.SentinelSE,
		Responses:    nil,
		Coverage:     domain.NewCoverageState(),
		Status:       domain.StatusInitialized,
		StartedAt:    now,
	}
}

func applyConfigDefaults(cfg *domain.SessionConfig) {
	if cfg.MinQuestions <= 0 {
		cfg.MinQuestions = DefaultMinQuestions
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = DefaultMaxQuestions
	}
	if cfg.MaxQuestions < cfg.MinQuestions {
		cfg.MaxQuestions = cfg.MinQuestions
	}
	if cfg.SEThreshold <= 0 {
		cfg.SEThreshold = DefaultSEThreshold
	}
	if cfg.WeakThreshold <= 0 {
		cfg.WeakThreshold = DefaultWeakThreshold
	}
	if cfg.StrongThreshold <= 0 {
		cfg.StrongThreshold = DefaultStrongThreshold
	}
}

// ProcessResponse appends the audited response record (pre-response
// theta/SE included), re-estimates ability over the entire history, updates
// coverage and advances the question counter. Responses after completion
// are caller-contract violations.
func ProcessResponse(state *domain.SessionState, item domain.Item, selectedAnswer string, elapsedSeconds float64, now time.Time) (domain.ResponseRecord, error) {
	if state.Status == domain.StatusCompleted {
		return domain.ResponseRecord{}, domain.ErrSessionCompleted
	}

	params := item.EffectiveParams()
	correctAnswer := item.CorrectOptionID()
	record := domain.ResponseRecord{
		Sequence:       len(state.Responses) + 1,
		ItemID:         item.ID,
		Topic:          item.Topic,
		Params:         params,
		ThetaBefore:    state.CurrentTheta,
		SEBefore:       state.CurrentSE,
		Information:    irt.ItemInformation(state.CurrentTheta, params),
		SelectedAnswer: selectedAnswer,
		CorrectAnswer:  correctAnswer,
		Correct:        selectedAnswer == correctAnswer,
		ElapsedSeconds: elapsedSeconds,
		AnsweredAt:     now,
	}

	state.Responses = append(state.Responses, record)

	// Full re-estimation over the whole history; incremental updating is a
	// known simplification deferral, not an optimization target.
	estimate := irt.EstimateAbility(state.Responses, state.Config.StartingTheta)
	state.CurrentTheta = estimate.Theta
	state.CurrentSE = estimate.StandardError

	record.ThetaAfter = estimate.Theta
	record.SEAfter = estimate.StandardError
	state.Responses[len(state.Responses)-1] = record

	state.Coverage.RecordItem(item)
	state.QuestionsAsked++
	if state.Status == domain.StatusInitialized {
		state.Status = domain.StatusInProgress
	}
	return record, nil
}

// CheckTermination applies the stopping rules: hard stop at maxQuestions,
// never stop below minQuestions, and otherwise require both the SE
// threshold and every configured topic minimum.
func CheckTermination(state *domain.SessionState) domain.TerminationDecision {
	cfg := state.Config
	met := map[string]bool{
		criterionMinQuestions: state.QuestionsAsked >= cfg.MinQuestions,
		criterionPrecision:    state.CurrentSE <= cfg.SEThreshold,
		criterionCoverage:     coverageSatisfied(state),
	}

	if state.QuestionsAsked >= cfg.MaxQuestions {
		return domain.TerminationDecision{
			ShouldTerminate: true,
			Reason:          domain.ReasonMaxQuestions,
			MetCriteria:     met,
		}
	}
	if !met[criterionMinQuestions] {
		return domain.TerminationDecision{MetCriteria: met}
	}
	if met[criterionPrecision] && met[criterionCoverage] {
		return domain.TerminationDecision{
			ShouldTerminate: true,
			Reason:          domain.ReasonPrecisionReached,
			MetCriteria:     met,
		}
	}
	return domain.TerminationDecision{MetCriteria: met}
}

func coverageSatisfied(state *domain.SessionState) bool {
	for topic, minimum := range state.Config.TopicMinimums {
		if state.Coverage.ByTopic[topic] < minimum {
			return false
		}
	}
	return true
}

// Complete transitions the session to COMPLETED with the given end reason.
// COMPLETED is terminal; a second completion is rejected.
func Complete(state *domain.SessionState, reason string, now time.Time) error {
	if state.Status == domain.StatusCompleted {
		return domain.ErrSessionCompleted
	}
	state.Status = domain.StatusCompleted
	state.EndReason = reason
	state.CompletedAt = &now
	return nil
}

// GenerateReport aggregates per-topic accuracy, maps theta to an estimated
// exam score and buckets readiness. Only valid on a COMPLETED session.
func GenerateReport(state *domain.SessionState, now time.Time) (domain.DiagnosticReport, error) {
	if state.Status != domain.StatusCompleted {
		return domain.DiagnosticReport{}, fmt.Errorf("%w: report requires a completed session, status=%s", domain.ErrInvalidSessionState, state.Status)
	}

	type tally struct{ asked, correct int }
	byTopic := make(map[string]*tally)
	for _, r := range state.Responses {
		t := byTopic[r.Topic]
		if t == nil {
			t = &tally{}
			byTopic[r.Topic] = t
		}
		t.asked++
		if r.Correct {
			t.correct++
		}
	}

	names := make([]string, 0, len(byTopic))
	for topic := range byTopic {
		names = append(names, topic)
	}
	sort.Strings(names)

	topics := make([]domain.TopicPerformance, 0, len(names))
	var weak, strong []string
	for _, topic := range names {
		t := byTopic[topic]
		accuracy := float64(t.correct) / float64(t.asked)
		topics = append(topics, domain.TopicPerformance{
			Topic:    topic,
			Asked:    t.asked,
			Correct:  t.correct,
			Accuracy: accuracy,
		})
		switch {
		case accuracy < state.Config.WeakThreshold:
			weak = append(weak, topic)
		case accuracy >= state.Config.StrongThreshold:
			strong = append(strong, topic)
		}
	}

	score := examScore(state.CurrentTheta)
	report := domain.DiagnosticReport{
		SessionID:          state.ID,
		StudentID:          state.StudentID,
		Theta:              state.CurrentTheta,
		StandardError:      state.CurrentSE,
		ConfidenceLow:      state.CurrentTheta - 1.96*state.CurrentSE,
		ConfidenceHigh:     state.CurrentTheta + 1.96*state.CurrentSE,
		EstimatedExamScore: score,
		Readiness:          readinessFor(score),
		Topics:             topics,
		WeakTopics:         weak,
		StrongTopics:       strong,
		GeneratedAt:        now,
	}
	return report, nil
}

func examScore(theta float64) float64 {
	score := 70 + theta*15
	return math.Max(0, math.Min(100, score))
}

func readinessFor(score float64) domain.Readiness {
	switch {
	case score >= 85:
		return domain.ReadinessExamReady
	case score >= 75:
		return domain.ReadinessReady
	case score >= 60:
		return domain.ReadinessDeveloping
	default:
		return domain.ReadinessNotReady
	}
}
