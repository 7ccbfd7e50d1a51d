package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/repcoach/internal/exercise"
)

func (h *handlers) recentSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)
	end := time.Now()
	start := end.AddDate(0, 0, -14)

	sessions, err := h.ds.QuerySessions(ctx, start, end, uid)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(sessions)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) exerciseCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	type catalogEntry struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Kind        string  `json:"kind"`
		UpAngle     float64 `json:"up_angle,omitempty"`
		DownAngle   float64 `json:"down_angle,omitempty"`
		HoldSeconds float64 `json:"hold_seconds,omitempty"`
	}

	defs := h.registry.List()
	out := make([]catalogEntry, 0, len(defs))
	for _, d := range defs {
		e := catalogEntry{ID: d.ID, Name: d.Name, Kind: string(d.Kind)}
		switch d.Kind {
		case exercise.KindRep:
			e.UpAngle = d.Rep.ThresholdUp
			e.DownAngle = d.Rep.ThresholdDown
		case exercise.KindHold:
			e.HoldSeconds = d.Hold.Required.Seconds()
		}
		out = append(out, e)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
