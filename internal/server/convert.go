package server

import (
	"encoding/json"
	"fmt"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/session"
)

// sessionRows converts a finished session record into its storage rows.
func sessionRows(rec *session.Record) (models.SessionRow, []models.SessionSetRow, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return models.SessionRow{}, nil, fmt.Errorf("marshaling session record: %w", err)
	}

	row := models.SessionRow{
		ID:        rec.ID,
		UserID:    rec.UserID,
		StartTime: rec.StartedAt,
		EndTime:   rec.EndedAt,
		SetCount:  len(rec.Sets),
		TotalReps: rec.TotalReps(),
		RawJSON:   raw,
	}

	sets := make([]models.SessionSetRow, 0, len(rec.Sets))
	for _, sr := range rec.Sets {
		set := models.SessionSetRow{
			SessionID:    rec.ID,
			UserID:       rec.UserID,
			SetNumber:    sr.SetNumber,
			ExerciseID:   sr.Exercise,
			ExerciseName: sr.ExerciseName,
			Completed:    sr.Completed,
			StartTime:    sr.StartedAt,
			EndTime:      sr.EndedAt,
		}
		if sr.HoldDuration > 0 {
			secs := sr.HoldDuration.Seconds()
			set.HoldSeconds = &secs
		} else {
			reps := sr.Reps
			set.Reps = &reps
		}
		if len(sr.Feedback) > 0 {
			detail, err := json.Marshal(map[string]any{"feedback": sr.Feedback})
			if err != nil {
				return models.SessionRow{}, nil, fmt.Errorf("marshaling set detail: %w", err)
			}
			set.Detail = detail
		}
		sets = append(sets, set)
	}
	return row, sets, nil
}
