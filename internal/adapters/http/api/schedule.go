package api

import (
	"bytes"
	"net/http"

	"github.com/morywal/CalendarApp/internal/domain/types"
)

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	const op = "api.schedule"
	user, err := userID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.Schedule(r.Context(), user)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.ScheduleResponse{
		Blocks:           types.FromBlocks(res.Blocks),
		UnscheduledCount: len(res.Unscheduled),
		Unscheduled:      nonNil(res.Unscheduled),
		Skipped:          nonNil(res.Skipped),
		FreeBlocks:       res.FreeBlocks,
		HorizonStart:     res.Horizon.From,
		HorizonEnd:       res.Horizon.To,
	})
}

func (s *Server) handleScheduleAsync(w http.ResponseWriter, r *http.Request) {
	const op = "api.schedule_async"
	user, err := userID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.deps.Enqueue(r.Context(), user, "api"); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, types.Accepted{Status: "accepted", UserID: user})
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	const op = "api.blocks"
	user, err := userID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	blocks, err := s.deps.Blocks(r.Context(), user)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocks": types.FromBlocks(blocks)})
}

func (s *Server) handleFreeBlocks(w http.ResponseWriter, r *http.Request) {
	const op = "api.free_blocks"
	user, err := userID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	free, h, err := s.deps.Preview(r.Context(), user)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FreeBlocksResponse{
		HorizonStart: h.From,
		HorizonEnd:   h.To,
		FreeBlocks:   types.FromFreeBlocks(free),
	})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	const op = "api.calendar"
	user, err := userID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// Render fully before writing so failures still get a JSON error.
	var buf bytes.Buffer
	if err := s.deps.Calendar(r.Context(), user, &buf); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+user+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.summary"
	user, err := userID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sum, err := s.deps.Summary(r.Context(), user)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	byStatus := make(map[string]int, len(sum.ByStatus))
	for k, v := range sum.ByStatus {
		byStatus[string(k)] = v
	}
	writeJSON(w, http.StatusOK, types.Summary{
		Commitments: sum.Commitments,
		Tasks:       sum.Tasks,
		ByStatus:    byStatus,
		Blocks:      sum.Blocks,
	})
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
