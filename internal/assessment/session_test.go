package assessment

import (
	"errors"
	"math"
	"testing"
	"time"

	"adaptive-assessment-service/internal/domain"
	"adaptive-assessment-service/internal/irt"
)

var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func bankItem(id, topic string, difficulty domain.Difficulty) domain.Item {
	return domain.Item{
		ID:            id,
		Jurisdiction:  "CA",
		Topic:         topic,
		CognitiveType: "RECALL",
		Difficulty:    difficulty,
		Prompt:        "prompt " + id,
		Options: []domain.Option{
			{ID: "a", Text: "right", Correct: true},
			{ID: "b", Text: "wrong"},
		},
		Active: true,
	}
}

func TestNewSessionAppliesDefaults(t *testing.T) {
	state := NewSession("s1", "stu1", domain.SessionConfig{Jurisdiction: "CA"}, testStart)

	if state.Config.MinQuestions != 10 || state.Config.MaxQuestions != 20 {
		t.Fatalf("question bounds = %d/%d, want 10/20", state.Config.MinQuestions, state.Config.MaxQuestions)
	}
	if state.Config.SEThreshold != 0.3 {
		t.Fatalf("se threshold = %v, want 0.3", state.Config.SEThreshold)
	}
	if state.Config.WeakThreshold != 0.70 || state.Config.StrongThreshold != 0.85 {
		t.Fatalf("report thresholds = %v/%v, want 0.70/0.85", state.Config.WeakThreshold, state.Config.StrongThreshold)
	}
	if state.Status != domain.StatusInitialized {
		t.Fatalf("status = %s, want INITIALIZED", state.Status)
	}
	if state.CurrentSE != irt.SentinelSE {
		t.Fatalf("initial SE = %v, want sentinel %v", state.CurrentSE, irt.SentinelSE)
	}
}

func TestNewSessionMaxBelowMinRaisesMax(t *testing.T) {
	state := NewSession("s1", "stu1", domain.SessionConfig{MinQuestions: 15, MaxQuestions: 5}, testStart)
	if state.Config.MaxQuestions != 15 {
		t.Fatalf("max = %d, want raised to min 15", state.Config.MaxQuestions)
	}
}

func TestProcessResponseAuditsAndAdvances(t *testing.T) {
	state := NewSession("s1", "stu1", domain.SessionConfig{StartingTheta: 0}, testStart)
	item := bankItem("q1", "contracts", domain.DifficultyMedium)

	record, err := ProcessResponse(state, item, "a", 42, testStart.Add(time.Minute))
	if err != nil {
		t.Fatalf("ProcessResponse: %v", err)
	}

	if record.Sequence != 1 || record.ItemID != "q1" || record.Topic != "contracts" {
		t.Fatalf("record identity fields wrong: %+v", record)
	}
	if !record.Correct || record.SelectedAnswer != "a" || record.CorrectAnswer != "a" {
		t.Fatalf("correctness fields wrong: %+v", record)
	}
	if record.ThetaBefore != 0 || record.SEBefore != irt.SentinelSE {
		t.Fatalf("pre-response snapshot wrong: theta=%v se=%v", record.ThetaBefore, record.SEBefore)
	}
	if record.ThetaAfter <= 0 {
		t.Fatalf("theta after a correct answer = %v, want > 0", record.ThetaAfter)
	}
	if record.SEAfter >= irt.SentinelSE {
		t.Fatalf("SE after one informative response = %v, want finite", record.SEAfter)
	}
	if state.Status != domain.StatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", state.Status)
	}
	if state.QuestionsAsked != 1 || state.Coverage.ByTopic["contracts"] != 1 {
		t.Fatalf("counters not advanced: asked=%d coverage=%v", state.QuestionsAsked, state.Coverage.ByTopic)
	}
	if state.Responses[0].ThetaAfter != record.ThetaAfter {
		t.Fatalf("stored record missing post-response estimate")
	}
}

func TestProcessResponseRejectsCompletedSession(t *testing.T) {
	state := NewSession("s1", "stu1", domain.SessionConfig{}, testStart)
	if err := Complete(state, domain.ReasonMaxQuestions, testStart); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	_, err := ProcessResponse(state, bankItem("q1", "torts", domain.DifficultyEasy), "a", 10, testStart)
	if !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("err = %v, want ErrSessionCompleted", err)
	}
}

func TestCheckTerminationNeverBelowMinimum(t *testing.T) {
	state := NewSession("s1", "stu1", domain.SessionConfig{MinQuestions: 10, MaxQuestions: 20, SEThreshold: 0.3}, testStart)
	state.QuestionsAsked = 9
	state.CurrentSE = 0.01 // far past the precision threshold

	decision := CheckTermination(state)
	if decision.ShouldTerminate {
		t.Fatalf("terminated below minimum: %+v", decision)
	}
	if decision.MetCriteria["min_questions"] {
		t.Fatalf("min_questions reported met at 9/10")
	}
	if !decision.MetCriteria["precision"] {
		t.Fatalf("precision not reported met at SE=0.01")
	}
}

func TestCheckTerminationHardStopAtMaximum(t *testing.T) {
	state := NewSession("s1", "stu1", domain.SessionConfig{MinQuestions: 10, MaxQuestions: 20, SEThreshold: 0.3}, testStart)
	state.QuestionsAsked = 20
	state.CurrentSE = 2.5 // precision nowhere near met

	decision := CheckTermination(state)
	if !decision.ShouldTerminate || decision.Reason != domain.ReasonMaxQuestions {
		t.Fatalf("decision = %+v, want max-questions stop", decision)
	}
}

func TestCheckTerminationRequiresCoverage(t *testing.T) {
	state := NewSession("s1", "stu1", domain.SessionConfig{
		MinQuestions:  10,
		MaxQuestions:  20,
		SEThreshold:   0.3,
		TopicMinimums: map[string]int{"contracts": 2, "torts": 2},
	}, testStart)
	state.QuestionsAsked = 12
	state.CurrentSE = 0.25
	state.Coverage.ByTopic["contracts"] = 2
	state.Coverage.ByTopic["torts"] = 1

	decision := CheckTermination(state)
	if decision.ShouldTerminate {
		t.Fatalf("terminated with torts at 1/2 coverage: %+v", decision)
	}

	state.Coverage.ByTopic["torts"] = 2
	decision = CheckTermination(state)
	if !decision.ShouldTerminate || decision.Reason != domain.ReasonPrecisionReached {
		t.Fatalf("decision = %+v, want precision stop once coverage met", decision)
	}
}

func TestCompleteIsTerminal(t *testing.T) {
	state := NewSession("s1", "stu1", domain.SessionConfig{}, testStart)
	end := testStart.Add(20 * time.Minute)
	if err := Complete(state, domain.ReasonPrecisionReached, end); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if state.Status != domain.StatusCompleted || state.EndReason != domain.ReasonPrecisionReached {
		t.Fatalf("state after complete: status=%s reason=%s", state.Status, state.EndReason)
	}
	if state.CompletedAt == nil || !state.CompletedAt.Equal(end) {
		t.Fatalf("completedAt = %v, want %v", state.CompletedAt, end)
	}
	if err := Complete(state, domain.ReasonMaxQuestions, end); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("second complete err = %v, want ErrSessionCompleted", err)
	}
}

func TestGenerateReportRequiresCompletedSession(t *testing.T) {
	state := NewSession("s1", "stu1", domain.SessionConfig{}, testStart)
	if _, err := GenerateReport(state, testStart); !errors.Is(err, domain.ErrInvalidSessionState) {
		t.Fatalf("err = %v, want ErrInvalidSessionState", err)
	}
}

func TestGenerateReportClassifiesTopics(t *testing.T) {
	state := NewSession("s1", "stu1", domain.SessionConfig{}, testStart)
	add := func(topic string, correct bool) {
		state.Responses = append(state.Responses, domain.ResponseRecord{Topic: topic, Correct: correct})
	}
	// contracts 2/2, evidence 3/4, torts 1/3
	add("contracts", true)
	add("contracts", true)
	add("evidence", true)
	add("evidence", true)
	add("evidence", true)
	add("evidence", false)
	add("torts", true)
	add("torts", false)
	add("torts", false)
	state.CurrentTheta = 1.0
	state.CurrentSE = 0.25
	if err := Complete(state, domain.ReasonPrecisionReached, testStart.Add(time.Hour)); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	report, err := GenerateReport(state, testStart.Add(time.Hour))
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}

	if len(report.StrongTopics) != 1 || report.StrongTopics[0] != "contracts" {
		t.Fatalf("strong topics = %v, want [contracts]", report.StrongTopics)
	}
	if len(report.WeakTopics) != 1 || report.WeakTopics[0] != "torts" {
		t.Fatalf("weak topics = %v, want [torts]", report.WeakTopics)
	}
	// evidence at 0.75 lands between the thresholds: neither list.
	if len(report.Topics) != 3 {
		t.Fatalf("topic count = %d, want 3", len(report.Topics))
	}
	if report.Topics[0].Topic != "contracts" || report.Topics[1].Topic != "evidence" || report.Topics[2].Topic != "torts" {
		t.Fatalf("topics not sorted by name: %+v", report.Topics)
	}

	if math.Abs(report.EstimatedExamScore-85) > 1e-9 {
		t.Fatalf("exam score = %v, want 85 for theta=1.0", report.EstimatedExamScore)
	}
	if report.Readiness != domain.ReadinessExamReady {
		t.Fatalf("readiness = %s, want EXAM_READY", report.Readiness)
	}
	if math.Abs(report.ConfidenceLow-(1.0-1.96*0.25)) > 1e-9 || math.Abs(report.ConfidenceHigh-(1.0+1.96*0.25)) > 1e-9 {
		t.Fatalf("confidence interval = [%v, %v]", report.ConfidenceLow, report.ConfidenceHigh)
	}
}

func TestGenerateReportClampsExamScore(t *testing.T) {
	state := NewSession("s1", "stu1", domain.SessionConfig{}, testStart)
	state.Responses = append(state.Responses, domain.ResponseRecord{Topic: "contracts", Correct: true})
	state.CurrentTheta = 3.0
	state.CurrentSE = 0.2
	if err := Complete(state, domain.ReasonPrecisionReached, testStart); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	report, err := GenerateReport(state, testStart)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if report.EstimatedExamScore != 100 {
		t.Fatalf("exam score = %v, want clamped to 100", report.EstimatedExamScore)
	}
}

func TestReadinessBuckets(t *testing.T) {
	cases := []struct {
		score float64
		want  domain.Readiness
	}{
		{90, domain.ReadinessExamReady},
		{85, domain.ReadinessExamReady},
		{80, domain.ReadinessReady},
		{75, domain.ReadinessReady},
		{70, domain.ReadinessDeveloping},
		{60, domain.ReadinessDeveloping},
		{59, domain.ReadinessNotReady},
		{0, domain.ReadinessNotReady},
	}
	for _, tc := range cases {
		if got := readinessFor(tc.score); got != tc.want {
			t.Fatalf("readinessFor(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
