package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/interviewer/internal/azure"
	"github.com/ent0n29/interviewer/internal/config"
	"github.com/ent0n29/interviewer/internal/interview"
	"github.com/ent0n29/interviewer/internal/logging"
	"github.com/ent0n29/interviewer/internal/memory"
	"github.com/ent0n29/interviewer/internal/observability"
	"github.com/ent0n29/interviewer/internal/session"
)

// Interviews is the interview lifecycle the API exposes.
type Interviews interface {
	Start(ctx context.Context, jobDescription, resume string) (interview.Started, error)
	Exists(id string) bool
	HandleTurn(ctx context.Context, id, input string) (interview.Reply, error)
	End(ctx context.Context, id string) error
	Clock(ctx context.Context, id string) (session.Snapshot, error)
	History(ctx context.Context, id string) ([]memory.TurnRecord, error)
}

// SpeechTokens issues browser speech tokens.
type SpeechTokens interface {
	Configured() bool
	Issue(ctx context.Context) (azure.Token, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

type Server struct {
	cfg        config.Config
	interviews Interviews
	tokens     SpeechTokens
	metrics    *observability.Metrics
	ready      Pinger
	provider   string
	upgrader   websocket.Upgrader
	logger     *log.Logger
}

// Options carries optional collaborators.
type Options struct {
	Tokens   SpeechTokens
	Ready    Pinger
	Provider string
}

func New(cfg config.Config, interviews Interviews, metrics *observability.Metrics, opts Options) *Server {
	return &Server{
		cfg:        cfg,
		interviews: interviews,
		tokens:     opts.Tokens,
		metrics:    metrics,
		ready:      opts.Ready,
		provider:   opts.Provider,
		logger:     logging.WithPrefix("httpapi"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if s.cfg.AllowAnyOrigin {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Interview-ID"},
			MaxAge:         300,
		}))
	}
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authorize)

		r.Post("/interviews", s.handleStartInterview)
		r.Route("/interviews/{id}", func(r chi.Router) {
			r.Use(s.authorizeInterview)
			r.Post("/turns", s.handleTurn)
			r.Get("/history", s.handleHistory)
			r.Get("/clock", s.handleClock)
			r.Post("/end", s.handleEndInterview)
			r.Get("/ws", s.handleInterviewWS)
		})

		r.With(s.authorizeInterview).Get("/azure/token", s.handleAzureToken)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"llm":         s.provider,
		"store":       string(s.cfg.Store.Backend),
		"duration_ms": s.cfg.InterviewDuration.Milliseconds(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"store":  string(s.cfg.Store.Backend),
	})
}

// authorize enforces APP_API_KEY on every /v1 route when it is configured.
// Browsers cannot set headers on websocket upgrades, so api_key is also
// accepted as a query parameter.
func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		provided := r.Header.Get("X-API-Key")
		if provided == "" {
			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				provided = strings.TrimSpace(token)
			}
		}
		if provided == "" {
			provided = r.URL.Query().Get("api_key")
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(s.cfg.APIKey)) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authorizeInterview requires the request to name a known interview, either
// through the {id} path segment or the X-Interview-ID header.
func (s *Server) authorizeInterview(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := interviewIDFrom(r)
		if id == "" {
			respondError(w, http.StatusBadRequest, "missing_interview_id", "interview id is required")
			return
		}
		if !s.interviews.Exists(id) {
			respondError(w, http.StatusNotFound, "interview_not_found", interview.ErrNotFound.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			return
		}
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func interviewIDFrom(r *http.Request) string {
	if id := strings.TrimSpace(chi.URLParam(r, "id")); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.Header.Get("X-Interview-ID")); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("interview_id"))
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
