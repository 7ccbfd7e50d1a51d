package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/repcoach/internal/pose"
	"github.com/claude/repcoach/internal/session"
)

// handleFrame applies one keypoint frame to the running session and returns
// the per-frame snapshot. When the frame finishes the session, the record
// is persisted before responding.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	var frame pose.Frame
	if err := json.NewDecoder(r.Body).Decode(&frame); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.manager.Advance(&frame)
	if err != nil {
		writeControlError(w, err)
		return
	}

	if snap.Phase == session.PhaseFinished && !s.saved {
		if err := s.persistRecord(r); err != nil {
			s.log.Error("persisting session", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var plan session.Plan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if plan.UserID == 0 {
		plan.UserID = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.manager.Start(plan, time.Now()); err != nil {
		writeControlError(w, err)
		return
	}
	s.saved = false
	writeJSON(w, http.StatusOK, map[string]any{"status": "started", "sets": len(plan.Sets)})
}

func (s *Server) handleSkipRest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.manager.SkipRest(time.Now()); err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
}

func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.manager.End(time.Now())
	if err != nil {
		writeControlError(w, err)
		return
	}
	if !s.saved {
		if err := s.persistRecord(r); err != nil {
			s.log.Error("persisting session", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleSessionIngest accepts a complete session record from a capture
// station that ran offline and spooled its results.
func (s *Server) handleSessionIngest(w http.ResponseWriter, r *http.Request) {
	var rec session.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if rec.ID == (uuid.UUID{}) || rec.EndedAt.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "record needs an id and an end time"})
		return
	}

	row, sets, err := sessionRows(&rec)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	inserted, err := s.store.InsertSession(r.Context(), row)
	if err != nil {
		s.log.Error("session ingest", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	setCount, err := s.store.InsertSessionSets(r.Context(), sets)
	if err != nil {
		s.log.Error("session ingest sets", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_inserted": inserted,
		"sets_inserted":    setCount,
	})
}

func (s *Server) handleSessionSnapshot(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.manager.Active() {
		writeJSON(w, http.StatusOK, map[string]string{"phase": string(session.PhaseFinished)})
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Last())
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	type exerciseInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	defs := s.registry.List()
	out := make([]exerciseInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, exerciseInfo{ID: d.ID, Name: d.Name, Kind: string(d.Kind)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleQuerySessions(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	rows, err := s.store.QuerySessions(r.Context(), start, end, userIDParam(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	detail, err := s.store.GetSession(r.Context(), id, userIDParam(r))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleQuerySets(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	rows, err := s.store.QuerySessionSets(r.Context(), start, end, userIDParam(r), r.URL.Query().Get("exercise"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	rows, err := s.store.ExerciseStats(r.Context(), start, end, userIDParam(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// persistRecord stores the finished session. Callers hold s.mu.
func (s *Server) persistRecord(r *http.Request) error {
	rec := s.manager.Record()
	if rec == nil {
		return nil
	}
	row, sets, err := sessionRows(rec)
	if err != nil {
		return err
	}
	if _, err := s.store.InsertSession(r.Context(), row); err != nil {
		return err
	}
	if _, err := s.store.InsertSessionSets(r.Context(), sets); err != nil {
		return err
	}
	s.saved = true
	s.log.Info("session persisted", "session_id", rec.ID, "sets", len(sets))
	return nil
}

// writeControlError maps engine control errors onto HTTP statuses: phase
// violations are a conflict, unknown input is a bad request.
func writeControlError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, session.ErrInvalidPhase), errors.Is(err, session.ErrSessionActive):
		status = http.StatusConflict
	case errors.Is(err, session.ErrNoSession):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// parseTimeRange reads start/end query params (RFC 3339 or YYYY-MM-DD),
// defaulting to the last 30 days.
func parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -30)

	if v := r.URL.Query().Get("end"); v != "" {
		t, err := parseFlexTime(v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = t
	}
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := parseFlexTime(v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = t
	}
	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func userIDParam(r *http.Request) int {
	if v := r.URL.Query().Get("user_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil && id > 0 {
			return id
		}
	}
	return 1
}
