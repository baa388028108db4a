// Package http exposes the adaptive assessment over a websocket: one
// connection drives one session through start, question/answer rounds,
// completion and the diagnostic report.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"adaptive-assessment-service/internal/assessment"
	"adaptive-assessment-service/internal/domain"
	"adaptive-assessment-service/internal/logger"
)

type WSHandler struct {
	service  *assessment.Service
	defaults domain.SessionConfig
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *assessment.Service, defaults domain.SessionConfig, log *logger.Logger) *WSHandler {
	return &WSHandler{
		service:  service,
		defaults: defaults,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	ItemID         string  `json:"itemId"`
	OptionID       string  `json:"optionId"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type startedPayload struct {
	SessionID string `json:"sessionId"`
	Min       int    `json:"minQuestions"`
	Max       int    `json:"maxQuestions"`
}

// questionOption is the client-facing option shape: the correct flag never
// leaves the server.
type questionOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type questionPayload struct {
	Sequence int              `json:"sequence"`
	ItemID   string           `json:"itemId"`
	Topic    string           `json:"topic"`
	Prompt   string           `json:"prompt"`
	Options  []questionOption `json:"options"`
}

type answerResult struct {
	ItemID         string  `json:"itemId"`
	Correct        bool    `json:"correct"`
	Theta          float64 `json:"theta"`
	StandardError  float64 `json:"standardError"`
	QuestionsAsked int     `json:"questionsAsked"`
}

type completedPayload struct {
	Reason string `json:"reason"`
}

// ServeWS upgrades the request and runs the assessment conversation. All
// writes happen from this goroutine, so no write coordination is needed.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("studentId")
	if studentID == "" {
		http.Error(w, "missing studentId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()

	cfg := h.defaults
	if jurisdiction := r.URL.Query().Get("jurisdiction"); jurisdiction != "" {
		cfg.Jurisdiction = jurisdiction
	}

	state, err := h.service.StartSession(ctx, studentID, cfg)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	_ = conn.WriteJSON(outboundMessage[startedPayload]{Type: "started", Payload: startedPayload{
		SessionID: state.ID,
		Min:       state.Config.MinQuestions,
		Max:       state.Config.MaxQuestions,
	}})

	if !h.sendNextQuestion(ctx, conn, state.ID) {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			outcome, err := h.service.SubmitResponse(ctx, state.ID, payload.ItemID, payload.OptionID, payload.ElapsedSeconds)
			if err != nil {
				_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			_ = conn.WriteJSON(outboundMessage[answerResult]{Type: "answerResult", Payload: answerResult{
				ItemID:         payload.ItemID,
				Correct:        outcome.Record.Correct,
				Theta:          outcome.Estimate.Theta,
				StandardError:  outcome.Estimate.StandardError,
				QuestionsAsked: outcome.Record.Sequence,
			}})

			if outcome.Termination.ShouldTerminate {
				h.finish(ctx, conn, state.ID, outcome.Termination.Reason)
				return
			}
			if !h.sendNextQuestion(ctx, conn, state.ID) {
				return
			}
		default:
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}
}

// sendNextQuestion selects and sends one item; on an exhausted pool it
// finishes the session instead. Returns whether the conversation continues.
func (h *WSHandler) sendNextQuestion(ctx context.Context, conn *websocket.Conn, sessionID string) bool {
	item, err := h.service.NextQuestion(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNoContentAvailable) {
			h.finish(ctx, conn, sessionID, domain.ReasonNoContent)
			return false
		}
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return false
	}

	state, err := h.service.Session(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return false
	}

	options := make([]questionOption, 0, len(item.Options))
	for _, opt := range item.Options {
		options = append(options, questionOption{ID: opt.ID, Text: opt.Text})
	}
	_ = conn.WriteJSON(outboundMessage[questionPayload]{Type: "question", Payload: questionPayload{
		Sequence: state.QuestionsAsked + 1,
		ItemID:   item.ID,
		Topic:    item.Topic,
		Prompt:   item.Prompt,
		Options:  options,
	}})
	return true
}

func (h *WSHandler) finish(ctx context.Context, conn *websocket.Conn, sessionID, reason string) {
	_ = conn.WriteJSON(outboundMessage[completedPayload]{Type: "completed", Payload: completedPayload{Reason: reason}})

	report, err := h.service.Report(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	_ = conn.WriteJSON(outboundMessage[domain.DiagnosticReport]{Type: "report", Payload: report})
}
