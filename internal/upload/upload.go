package upload

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int
	SetsSent      int
}

// spoolRecord is the subset of a session record the uploader needs to
// validate a spool file before sending it. The full record is forwarded
// verbatim; the server owns the complete schema.
type spoolRecord struct {
	ID      uuid.UUID       `json:"id"`
	EndedAt json.RawMessage `json:"ended_at"`
	Sets    json.RawMessage `json:"sets"`
}

// Uploader walks a spool directory of finished session records and POSTs
// each one to the RepCoach server's ingest endpoint. Capture stations that
// run offline write one JSON file per session; this ships them when a
// connection is available.
type Uploader struct {
	client   *Client
	state    *StateDB
	spoolDir string
	dryRun   bool
	log      *slog.Logger
	stats    Stats
}

// New creates a new Uploader.
func New(client *Client, state *StateDB, spoolDir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client:   client,
		state:    state,
		spoolDir: spoolDir,
		dryRun:   dryRun,
		log:      log,
	}
}

// Run uploads every new spool file. Files already recorded in the state
// database with an unchanged size and hash are skipped.
func (u *Uploader) Run() (*Stats, error) {
	files, err := filepath.Glob(filepath.Join(u.spoolDir, "*.json"))
	if err != nil {
		return &u.stats, fmt.Errorf("listing spool dir %s: %w", u.spoolDir, err)
	}
	sort.Strings(files)

	for _, f := range files {
		u.stats.FilesTotal++

		relPath, _ := filepath.Rel(u.spoolDir, f)
		info, err := os.Stat(f)
		if err != nil {
			u.log.Warn("stat failed", "file", f, "error", err)
			u.stats.FilesErrored++
			continue
		}

		hash, err := HashFile(f)
		if err != nil {
			u.log.Warn("hash failed", "file", f, "error", err)
			u.stats.FilesErrored++
			continue
		}

		uploaded, err := u.state.IsUploaded(relPath, info.Size(), hash)
		if err != nil {
			u.log.Warn("state check failed", "file", f, "error", err)
			u.stats.FilesErrored++
			continue
		}
		if uploaded {
			u.stats.FilesSkipped++
			continue
		}

		data, err := os.ReadFile(f)
		if err != nil {
			u.log.Warn("read failed", "file", f, "error", err)
			u.stats.FilesErrored++
			continue
		}

		var rec spoolRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			u.log.Warn("parse failed", "file", f, "error", err)
			u.stats.FilesErrored++
			continue
		}
		if rec.ID == (uuid.UUID{}) {
			u.log.Warn("spool file has no session id, skipping", "file", f)
			u.stats.FilesErrored++
			continue
		}

		var setCount int
		if len(rec.Sets) > 0 {
			var sets []json.RawMessage
			if err := json.Unmarshal(rec.Sets, &sets); err == nil {
				setCount = len(sets)
			}
		}

		if u.dryRun {
			u.log.Info("dry-run: would send session",
				"file", relPath,
				"session_id", rec.ID,
				"sets", setCount,
			)
		} else {
			if err := u.client.SendRecord(data); err != nil {
				u.log.Warn("send failed", "file", f, "error", err)
				u.stats.FilesErrored++
				continue
			}
			if err := u.state.MarkUploaded(relPath, info.Size(), hash); err != nil {
				u.log.Warn("failed to mark uploaded", "file", relPath, "error", err)
			}
		}

		u.stats.FilesUploaded++
		u.stats.SetsSent += setCount
	}

	return &u.stats, nil
}
