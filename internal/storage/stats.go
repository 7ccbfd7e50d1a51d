package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/repcoach/internal/models"
)

// ExerciseStats aggregates per-exercise set history in a time range.
func (db *DB) ExerciseStats(ctx context.Context, start, end time.Time, userID int) ([]models.ExerciseStat, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_id,
		        MAX(exercise_name) AS exercise_name,
		        COUNT(*) AS sets,
		        COALESCE(SUM(reps), 0) AS total_reps,
		        COALESCE(SUM(hold_seconds), 0) AS total_hold_sec,
		        AVG(CASE WHEN completed THEN 100.0 ELSE 0.0 END) AS completed_pct,
		        MAX(end_time) AS last_performed
		 FROM session_sets
		 WHERE start_time >= $1 AND start_time < $2 AND user_id = $3
		 GROUP BY exercise_id
		 ORDER BY last_performed DESC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying exercise stats: %w", err)
	}
	defer rows.Close()

	var result []models.ExerciseStat
	for rows.Next() {
		var s models.ExerciseStat
		if err := rows.Scan(&s.ExerciseID, &s.ExerciseName, &s.Sets,
			&s.TotalReps, &s.TotalHoldSec, &s.CompletedPct, &s.LastPerformed); err != nil {
			return nil, fmt.Errorf("scanning exercise stat: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
