// Package api exposes the planner over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/morywal/CalendarApp/internal/adapters/repository"
	service "github.com/morywal/CalendarApp/internal/app"
	"github.com/morywal/CalendarApp/internal/domain/estimate"
	"github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/morywal/CalendarApp/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. *service.Service implements it.
type Dependencies interface {
	StatsProvider

	Schedule(ctx context.Context, userID string) (service.Result, error)
	Enqueue(ctx context.Context, userID, reason string) error
	Preview(ctx context.Context, userID string) ([]model.FreeBlock, model.Horizon, error)
	Blocks(ctx context.Context, userID string) ([]model.ScheduledBlock, error)
	Summary(ctx context.Context, userID string) (service.Summary, error)
	Calendar(ctx context.Context, userID string, w io.Writer) error

	CreateTask(ctx context.Context, t model.Task) (model.Task, error)
	CreateCommitment(ctx context.Context, c model.FixedCommitment) (model.FixedCommitment, error)
	Preferences(ctx context.Context, userID string) (model.Preferences, error)
	PutPreferences(ctx context.Context, userID string, p model.Preferences) error
	Estimate(ctx context.Context, req estimate.Request) (estimate.Result, error)
}

// Server wires HTTP routes for the planner API.
type Server struct {
	deps    Dependencies
	metrics http.Handler
	logger  logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the logger used for unexpected failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:    deps,
		metrics: exposition(),
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.instrument("healthz", s.handleHealth))
	mux.HandleFunc("GET /stats", s.instrument("stats", s.handleStats))
	mux.HandleFunc("POST /estimate", s.instrument("estimate", s.handleEstimate))

	mux.HandleFunc("POST /users/{user}/schedule", s.instrument("schedule", s.handleSchedule))
	mux.HandleFunc("POST /users/{user}/schedule/async", s.instrument("schedule_async", s.handleScheduleAsync))
	mux.HandleFunc("GET /users/{user}/blocks", s.instrument("blocks", s.handleBlocks))
	mux.HandleFunc("GET /users/{user}/free-blocks", s.instrument("free_blocks", s.handleFreeBlocks))
	mux.HandleFunc("GET /users/{user}/calendar.ics", s.instrument("calendar", s.handleCalendar))
	mux.HandleFunc("GET /users/{user}/summary", s.instrument("summary", s.handleSummary))
	mux.HandleFunc("POST /users/{user}/tasks", s.instrument("tasks", s.handleCreateTask))
	mux.HandleFunc("POST /users/{user}/commitments", s.instrument("commitments", s.handleCreateCommitment))
	mux.HandleFunc("GET /users/{user}/preferences", s.instrument("preferences", s.handleGetPreferences))
	mux.HandleFunc("PUT /users/{user}/preferences", s.instrument("preferences", s.handlePutPreferences))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps err onto a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalid):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}

// userID returns the {user} path value or an ErrBadRequest.
func userID(op string, r *http.Request) (string, error) {
	u := strings.TrimSpace(r.PathValue("user"))
	if u == "" {
		return "", WrapKind(op, ErrBadRequest, errors.New("missing user"))
	}
	return u, nil
}

// decode reads a JSON body into v, classifying failures as bad requests.
func decode(op string, w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
