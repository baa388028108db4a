package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"adaptive-assessment-service/internal/domain"
	"adaptive-assessment-service/internal/infra/memory"
	"adaptive-assessment-service/internal/logger"
	"adaptive-assessment-service/internal/mastery"
	"adaptive-assessment-service/internal/path"
	"adaptive-assessment-service/internal/rewards"
)

func newAPITestServer(t *testing.T) (*httptest.Server, *memory.ReportStore, *memory.AttemptRepository) {
	t.Helper()

	concepts := memory.NewConceptRepository([]domain.ConceptNode{
		{ID: "c-basics", Jurisdiction: "CA", Name: "Legal foundations", Topic: "foundations", EstimatedStudyMinutes: 20, AvgCompletionSeconds: 60},
		{ID: "c-offer", Jurisdiction: "CA", Name: "Offer", Topic: "contracts", Prerequisites: []string{"c-basics"}, EstimatedStudyMinutes: 25},
	})
	finder := memory.NewPracticeItemFinder(map[string][]string{
		"c-basics": {"i1", "i2"},
		"c-offer":  {"i3"},
	})
	reports := memory.NewReportStore()
	attempts := memory.NewAttemptRepository()

	now := func() time.Time { return time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC) }
	generator := path.NewGeneratorWithClock(concepts, finder, path.DefaultOptions(), logger.NewNop(), now, func() string { return "path-1" })
	masterySvc := mastery.NewService(attempts, nil, mastery.NewCalculatorWithClock(now), logger.NewNop())
	engine := rewards.NewEngineWithClock(memory.NewRewardLedger(), logger.NewNop(), now)

	handler := NewAPIHandler(generator, masterySvc, engine, concepts, reports, logger.NewNop())
	mux := http.NewServeMux()
	handler.Register(mux)
	return httptest.NewServer(mux), reports, attempts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestGeneratePathEndpoint(t *testing.T) {
	server, reports, _ := newAPITestServer(t)
	defer server.Close()

	err := reports.SaveReport(context.Background(), domain.DiagnosticReport{
		SessionID:  "sess-1",
		StudentID:  "stu1",
		WeakTopics: []string{"contracts"},
	})
	if err != nil {
		t.Fatalf("seed report: %v", err)
	}

	resp := postJSON(t, server.URL+"/api/paths", generatePathRequest{
		StudentID:        "stu1",
		Jurisdiction:     "CA",
		Pace:             domain.PaceMedium,
		DailyGoalMinutes: 30,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var generated domain.LearningPath
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		t.Fatalf("decode path: %v", err)
	}
	if generated.StudentID != "stu1" || len(generated.Steps) == 0 {
		t.Fatalf("path = %+v", generated)
	}
	if generated.Steps[len(generated.Steps)-1].Type != domain.StepAssessment {
		t.Fatalf("path must end with an assessment: %+v", generated.Steps)
	}
}

func TestGeneratePathWithoutReport(t *testing.T) {
	server, _, _ := newAPITestServer(t)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/paths", generatePathRequest{
		StudentID:    "unknown",
		Jurisdiction: "CA",
		Pace:         domain.PaceMedium,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestMasteryEndpoint(t *testing.T) {
	server, _, attempts := newAPITestServer(t)
	defer server.Close()

	for i := 0; i < 4; i++ {
		err := attempts.AddAttempt(context.Background(), "stu1", "c-basics", domain.Attempt{
			IsCorrect:   true,
			TimeSeconds: 60,
			AttemptedAt: time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("seed attempt: %v", err)
		}
	}

	resp, err := http.Get(server.URL + "/api/mastery?studentId=stu1&conceptId=c-basics&jurisdiction=CA")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var score domain.MasteryScore
	if err := json.NewDecoder(resp.Body).Decode(&score); err != nil {
		t.Fatalf("decode score: %v", err)
	}
	if score.Level != domain.LevelMastery {
		t.Fatalf("score = %+v, want mastery for a perfect history", score)
	}

	resp, err = http.Get(server.URL + "/api/mastery?studentId=stu1&conceptId=nope&jurisdiction=CA")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown concept status = %d, want 404", resp.StatusCode)
	}
}

func TestRewardEndpoints(t *testing.T) {
	server, _, _ := newAPITestServer(t)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/rewards/steps", stepCompletionRequest{
		StudentID: "stu1",
		Step:      domain.PathStep{Index: 0, Type: domain.StepPracticeSet},
		Accuracy:  0.95,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("step status = %d, want 200", resp.StatusCode)
	}
	var award rewards.StepAward
	if err := json.NewDecoder(resp.Body).Decode(&award); err != nil {
		t.Fatalf("decode award: %v", err)
	}
	if award.XPAwarded != 38 || award.Level != 1 {
		t.Fatalf("award = %+v, want 38 XP at level 1", award)
	}

	learningPath := domain.LearningPath{
		ID: "path-1",
		Milestones: []domain.Milestone{
			{ID: "milestone-25", RequiredSteps: []int{0}, Reward: domain.RewardBadge},
		},
	}
	check := milestoneCheckRequest{StudentID: "stu1", Path: learningPath, CompletedSteps: []int{0}}

	resp = postJSON(t, server.URL+"/api/rewards/milestones", check)
	defer resp.Body.Close()
	var granted []domain.Reward
	if err := json.NewDecoder(resp.Body).Decode(&granted); err != nil {
		t.Fatalf("decode rewards: %v", err)
	}
	if len(granted) != 1 || granted[0].MilestoneID != "milestone-25" {
		t.Fatalf("granted = %+v", granted)
	}

	// Retrying grants nothing new.
	resp = postJSON(t, server.URL+"/api/rewards/milestones", check)
	defer resp.Body.Close()
	granted = nil
	if err := json.NewDecoder(resp.Body).Decode(&granted); err != nil {
		t.Fatalf("decode retry: %v", err)
	}
	if len(granted) != 0 {
		t.Fatalf("retry granted = %+v, want empty", granted)
	}
}
