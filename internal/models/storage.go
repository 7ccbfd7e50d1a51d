// Package models holds the row types shared between the storage layer and
// its callers.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionRow is a row ready for insertion into the sessions table.
type SessionRow struct {
	ID        uuid.UUID `json:"id"`
	UserID    int       `json:"user_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	SetCount  int       `json:"set_count"`
	TotalReps int       `json:"total_reps"`
	RawJSON   []byte    `json:"-"`
}

// SessionSetRow is a row for the session_sets table; each row references
// its parent session.
type SessionSetRow struct {
	SessionID    uuid.UUID `json:"session_id"`
	UserID       int       `json:"user_id"`
	SetNumber    int       `json:"set_number"`
	ExerciseID   string    `json:"exercise_id"`
	ExerciseName string    `json:"exercise_name"`
	Reps         *int      `json:"reps,omitempty"`
	HoldSeconds  *float64  `json:"hold_seconds,omitempty"`
	Completed    bool      `json:"completed"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	// Detail carries the corrective-feedback history for the set as JSON.
	Detail []byte `json:"detail,omitempty"`
}

// ExerciseStat is one aggregate row of per-exercise session history.
type ExerciseStat struct {
	ExerciseID    string    `json:"exercise_id"`
	ExerciseName  string    `json:"exercise_name"`
	Sets          int       `json:"sets"`
	TotalReps     int       `json:"total_reps"`
	TotalHoldSec  float64   `json:"total_hold_sec"`
	CompletedPct  *float64  `json:"completed_pct,omitempty"`
	LastPerformed time.Time `json:"last_performed"`
}
