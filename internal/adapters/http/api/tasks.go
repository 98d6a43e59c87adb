package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/morywal/CalendarApp/internal/domain/estimate"
	"github.com/morywal/CalendarApp/internal/domain/types"
)

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_task"
	user, err := userID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req types.Task
	if err := decode(op, w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.fail(w, r, WrapKind(op, ErrBadRequest, errors.New("missing title")))
		return
	}
	if req.EstimatedMinutes < 0 {
		s.fail(w, r, WrapKind(op, ErrBadRequest, errors.New("estimated_minutes must not be negative")))
		return
	}
	task, err := s.deps.CreateTask(r.Context(), req.ToModel(user))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, types.FromTask(task))
}

func (s *Server) handleCreateCommitment(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_commitment"
	user, err := userID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req types.Commitment
	if err := decode(op, w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	switch {
	case strings.TrimSpace(req.Title) == "":
		err = errors.New("missing title")
	case req.Start.IsZero() || req.End.IsZero():
		err = errors.New("start and end are required")
	}
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	c, err := s.deps.CreateCommitment(r.Context(), req.ToModel(user))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, types.FromCommitment(c))
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_preferences"
	user, err := userID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.deps.Preferences(r.Context(), user)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromPreferences(p))
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_preferences"
	user, err := userID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req types.Preferences
	if err := decode(op, w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := req.ToModel()
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := p.Validate(); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := s.deps.PutPreferences(r.Context(), user, p); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	stored, err := s.deps.Preferences(r.Context(), user)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromPreferences(stored))
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	const op = "api.estimate"
	var req types.EstimateRequest
	if err := decode(op, w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.fail(w, r, WrapKind(op, ErrBadRequest, errors.New("missing title")))
		return
	}
	res, err := s.deps.Estimate(r.Context(), estimate.Request{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.EstimateResponse{
		EstimatedMinutes: res.Minutes,
		Source:           string(res.Source),
		Samples:          res.Samples,
	})
}
