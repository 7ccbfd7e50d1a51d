package mcp

import (
	"context"
	"time"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/storage"
)

// DataSource abstracts the data layer for MCP tools, so tests can
// substitute a fake for *storage.DB.
type DataSource interface {
	QuerySessions(ctx context.Context, start, end time.Time, userID int) ([]models.SessionRow, error)
	QuerySessionSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.SessionSetRow, error)
	ExerciseStats(ctx context.Context, start, end time.Time, userID int) ([]models.ExerciseStat, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
