package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repcoach/internal/models"
)

// InsertSession inserts a session row. Returns true if inserted, false if
// duplicate.
func (db *DB) InsertSession(ctx context.Context, row models.SessionRow) (bool, error) {
	tag, err := db.Pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, start_time, end_time, set_count, total_reps, raw_json)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT DO NOTHING`,
		row.ID, row.UserID, row.StartTime, row.EndTime, row.SetCount, row.TotalReps, row.RawJSON)
	if err != nil {
		return false, fmt.Errorf("inserting session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertSessionSets batch-inserts per-set result rows. Returns count
// inserted.
func (db *DB) InsertSessionSets(ctx context.Context, rows []models.SessionSetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO session_sets (session_id, user_id, set_number, exercise_id, exercise_name,
		reps, hold_seconds, completed, start_time, end_time, detail) VALUES `
	args := make([]any, 0, len(rows)*11)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 11
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11,
		))
		args = append(args, r.SessionID, r.UserID, r.SetNumber, r.ExerciseID, r.ExerciseName,
			r.Reps, r.HoldSeconds, r.Completed, r.StartTime, r.EndTime, r.Detail)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting session sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SessionDetail is a session with its per-set results.
type SessionDetail struct {
	models.SessionRow
	Sets []models.SessionSetRow
}

// QuerySessions retrieves sessions in a time range, newest first.
func (db *DB) QuerySessions(ctx context.Context, start, end time.Time, userID int) ([]models.SessionRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, start_time, end_time, set_count, total_reps, raw_json
		 FROM sessions
		 WHERE start_time >= $1 AND start_time < $2 AND user_id = $3
		 ORDER BY start_time DESC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SessionRow
	for rows.Next() {
		var s models.SessionRow
		if err := rows.Scan(&s.ID, &s.UserID, &s.StartTime, &s.EndTime,
			&s.SetCount, &s.TotalReps, &s.RawJSON); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// GetSession retrieves a single session by ID with its set rows.
func (db *DB) GetSession(ctx context.Context, sessionID uuid.UUID, userID int) (*SessionDetail, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, start_time, end_time, set_count, total_reps, raw_json
		 FROM sessions
		 WHERE id = $1 AND user_id = $2`,
		sessionID, userID)

	var s models.SessionRow
	if err := row.Scan(&s.ID, &s.UserID, &s.StartTime, &s.EndTime,
		&s.SetCount, &s.TotalReps, &s.RawJSON); err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	detail := &SessionDetail{SessionRow: s}

	setRows, err := db.Pool.Query(ctx,
		`SELECT session_id, user_id, set_number, exercise_id, exercise_name,
		 reps, hold_seconds, completed, start_time, end_time, detail
		 FROM session_sets
		 WHERE session_id = $1 AND user_id = $2
		 ORDER BY set_number ASC`,
		sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying session sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var r models.SessionSetRow
		if err := setRows.Scan(&r.SessionID, &r.UserID, &r.SetNumber, &r.ExerciseID, &r.ExerciseName,
			&r.Reps, &r.HoldSeconds, &r.Completed, &r.StartTime, &r.EndTime, &r.Detail); err != nil {
			return nil, fmt.Errorf("scanning session set: %w", err)
		}
		detail.Sets = append(detail.Sets, r)
	}
	return detail, setRows.Err()
}

// QuerySessionSets retrieves set rows in a time range with an optional
// exercise filter (partial, case-insensitive).
func (db *DB) QuerySessionSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.SessionSetRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT session_id, user_id, set_number, exercise_id, exercise_name,
		 reps, hold_seconds, completed, start_time, end_time, detail
		 FROM session_sets
		 WHERE start_time >= $1 AND start_time < $2 AND user_id = $3
		   AND ($4 = '' OR exercise_name ILIKE '%' || $4 || '%')
		 ORDER BY start_time DESC, set_number ASC`,
		start, end, userID, exerciseFilter)
	if err != nil {
		return nil, fmt.Errorf("querying session sets: %w", err)
	}
	defer rows.Close()

	var result []models.SessionSetRow
	for rows.Next() {
		var r models.SessionSetRow
		if err := rows.Scan(&r.SessionID, &r.UserID, &r.SetNumber, &r.ExerciseID, &r.ExerciseName,
			&r.Reps, &r.HoldSeconds, &r.Completed, &r.StartTime, &r.EndTime, &r.Detail); err != nil {
			return nil, fmt.Errorf("scanning session set: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
