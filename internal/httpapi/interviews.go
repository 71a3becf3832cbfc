package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/interviewer/internal/llm"
)

type startInterviewRequest struct {
	JobDescription string `json:"job_description"`
	Resume         string `json:"resume"`
}

type startInterviewResponse struct {
	InterviewID string    `json:"interview_id"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

type turnRequest struct {
	Input string `json:"input"`
}

type turnResponse struct {
	InterviewID string      `json:"interview_id"`
	Message     llm.Message `json:"message"`
	Tier        string      `json:"tier"`
	ElapsedMS   int64       `json:"elapsed_ms"`
	RemainingMS int64       `json:"remaining_ms"`
}

type historyEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type historyResponse struct {
	InterviewID string         `json:"interview_id"`
	Messages    []historyEntry `json:"messages"`
}

type clockResponse struct {
	InterviewID string `json:"interview_id"`
	ElapsedMS   int64  `json:"elapsed_ms"`
	RemainingMS int64  `json:"remaining_ms"`
	BudgetMS    int64  `json:"budget_ms"`
	Tier        string `json:"tier"`
	Ended       bool   `json:"ended"`
}

func (s *Server) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	var req startInterviewRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	started, err := s.interviews.Start(r.Context(), req.JobDescription, req.Resume)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, startInterviewResponse{
		InterviewID: started.InterviewID,
		DurationMS:  started.Budget.Milliseconds(),
		CreatedAt:   started.CreatedAt,
	})
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req turnRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	reply, err := s.interviews.HandleTurn(r.Context(), id, req.Input)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, turnResponse{
		InterviewID: id,
		Message:     reply.Message,
		Tier:        string(reply.Tier),
		ElapsedMS:   reply.Elapsed.Milliseconds(),
		RemainingMS: reply.Remaining.Milliseconds(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	records, err := s.interviews.History(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	out := historyResponse{InterviewID: id, Messages: make([]historyEntry, 0, len(records))}
	for _, rec := range records {
		out.Messages = append(out.Messages, historyEntry{
			Role:      string(rec.Role),
			Content:   rec.Content,
			CreatedAt: rec.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleClock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.interviews.Clock(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, clockResponse{
		InterviewID: id,
		ElapsedMS:   snap.Elapsed.Milliseconds(),
		RemainingMS: snap.Remaining.Milliseconds(),
		BudgetMS:    snap.Budget.Milliseconds(),
		Tier:        string(snap.Tier),
		Ended:       snap.Ended,
	})
}

func (s *Server) handleEndInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.interviews.End(r.Context(), id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"interview_id": id,
		"status":       "ended",
	})
}

func (s *Server) handleAzureToken(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil || !s.tokens.Configured() {
		respondError(w, http.StatusServiceUnavailable, "speech_not_configured", "azure speech is not configured")
		return
	}
	tok, err := s.tokens.Issue(r.Context())
	if err != nil {
		s.logger.Warn("azure token issuance failed", "err", err)
		respondError(w, http.StatusBadGateway, "speech_token_error", "could not issue speech token")
		return
	}
	respondJSON(w, http.StatusOK, tok)
}
