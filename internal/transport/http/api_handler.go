package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"adaptive-assessment-service/internal/domain"
	"adaptive-assessment-service/internal/logger"
	"adaptive-assessment-service/internal/mastery"
	"adaptive-assessment-service/internal/path"
	"adaptive-assessment-service/internal/rewards"
)

// ReportSource resolves a student's most recent diagnostic report.
type ReportSource interface {
	LatestReport(ctx context.Context, studentID string) (domain.DiagnosticReport, error)
}

// APIHandler serves the non-realtime endpoints: path generation, mastery
// lookups and reward accrual.
type APIHandler struct {
	paths    *path.Generator
	mastery  *mastery.Service
	rewards  *rewards.Engine
	concepts path.ConceptRepository
	reports  ReportSource
	log      *logger.Logger
}

func NewAPIHandler(paths *path.Generator, masterySvc *mastery.Service, rewardsEng *rewards.Engine, concepts path.ConceptRepository, reports ReportSource, log *logger.Logger) *APIHandler {
	return &APIHandler{
		paths:    paths,
		mastery:  masterySvc,
		rewards:  rewardsEng,
		concepts: concepts,
		reports:  reports,
		log:      log,
	}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/paths", h.handleGeneratePath)
	mux.HandleFunc("/api/mastery", h.handleMastery)
	mux.HandleFunc("/api/rewards/steps", h.handleStepCompletion)
	mux.HandleFunc("/api/rewards/milestones", h.handleMilestones)
}

type generatePathRequest struct {
	StudentID        string      `json:"studentId"`
	Jurisdiction     string      `json:"jurisdiction"`
	Pace             domain.Pace `json:"pace"`
	DailyGoalMinutes int         `json:"dailyGoalMinutes"`
}

func (h *APIHandler) handleGeneratePath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req generatePathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StudentID == "" || req.Jurisdiction == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	report, err := h.reports.LatestReport(r.Context(), req.StudentID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "no diagnostic report for student", http.StatusNotFound)
			return
		}
		h.serverError(w, err)
		return
	}

	generated, err := h.paths.Generate(r.Context(), req.Jurisdiction, report, domain.StudentProfile{
		StudentID:        req.StudentID,
		Theta:            report.Theta,
		Pace:             req.Pace,
		DailyGoalMinutes: req.DailyGoalMinutes,
	})
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, generated)
}

func (h *APIHandler) handleMastery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	studentID, conceptID, jurisdiction := q.Get("studentId"), q.Get("conceptId"), q.Get("jurisdiction")
	if studentID == "" || conceptID == "" || jurisdiction == "" {
		http.Error(w, "missing studentId, conceptId, or jurisdiction", http.StatusBadRequest)
		return
	}

	concepts, err := h.concepts.ListConcepts(r.Context(), jurisdiction)
	if err != nil {
		h.serverError(w, err)
		return
	}
	var concept *domain.ConceptNode
	for i := range concepts {
		if concepts[i].ID == conceptID {
			concept = &concepts[i]
			break
		}
	}
	if concept == nil {
		http.Error(w, "concept not found", http.StatusNotFound)
		return
	}

	score, err := h.mastery.ConceptMastery(r.Context(), studentID, *concept)
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

type stepCompletionRequest struct {
	StudentID string          `json:"studentId"`
	Step      domain.PathStep `json:"step"`
	Accuracy  float64         `json:"accuracy"`
}

func (h *APIHandler) handleStepCompletion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req stepCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StudentID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	award, err := h.rewards.AwardStepCompletion(r.Context(), req.StudentID, req.Step, req.Accuracy)
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, award)
}

type milestoneCheckRequest struct {
	StudentID      string              `json:"studentId"`
	Path           domain.LearningPath `json:"path"`
	CompletedSteps []int               `json:"completedSteps"`
}

func (h *APIHandler) handleMilestones(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req milestoneCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StudentID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	completed := make(map[int]bool, len(req.CompletedSteps))
	for _, idx := range req.CompletedSteps {
		completed[idx] = true
	}

	granted, err := h.rewards.CheckAndUnlockMilestones(r.Context(), req.StudentID, req.Path, completed)
	if err != nil {
		h.serverError(w, err)
		return
	}
	if granted == nil {
		granted = []domain.Reward{}
	}
	writeJSON(w, http.StatusOK, granted)
}

func (h *APIHandler) serverError(w http.ResponseWriter, err error) {
	h.log.Error("api request failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
