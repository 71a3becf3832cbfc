package httpapi

import (
	"errors"
	"net/http"

	"github.com/ent0n29/interviewer/internal/azure"
	"github.com/ent0n29/interviewer/internal/interview"
	"github.com/ent0n29/interviewer/internal/llm"
	"github.com/ent0n29/interviewer/internal/prompt"
	"github.com/ent0n29/interviewer/internal/session"
)

// classifyError maps service errors to an HTTP status and a client-facing body.
func classifyError(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, interview.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error(), Code: "interview_not_found"}
	case errors.Is(err, session.ErrInterviewEnded):
		return http.StatusBadRequest, errorResponse{Error: session.EndedMessage, Code: "interview_ended"}
	case errors.Is(err, prompt.ErrInvalidInput):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "invalid_request"}
	case errors.Is(err, llm.ErrBackend):
		resp := errorResponse{Error: "the interviewer model is unavailable, please retry", Code: "model_backend_error"}
		var be *llm.BackendError
		if errors.As(err, &be) {
			resp.Retryable = be.Retryable()
		}
		return http.StatusBadGateway, resp
	case errors.Is(err, azure.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Code: "speech_not_configured"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "internal_error"}
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classifyError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	}
	respondJSON(w, status, body)
}
