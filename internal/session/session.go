// Package session orchestrates a workout: an ordered plan of sets with rest
// intervals between them, driven one keypoint frame at a time. The manager
// assumes a single caller per frame; concurrent callers must serialize
// access externally.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/geometry"
	"github.com/claude/repcoach/internal/pose"
	"github.com/claude/repcoach/internal/smoothing"
)

// Session phase.
type Phase string

const (
	PhaseActive   Phase = "active"
	PhaseRest     Phase = "rest"
	PhaseFinished Phase = "finished"
)

// Control errors. Commands invalid for the current phase are rejected as
// explicit no-ops, never silently applied.
var (
	// ErrInvalidPhase rejects a control command that is not valid in the
	// current session phase.
	ErrInvalidPhase = errors.New("command not valid in current session phase")
	// ErrNoSession rejects frame or control input with no session running.
	ErrNoSession = errors.New("no session in progress")
	// ErrSessionActive rejects starting a session while one is running.
	ErrSessionActive = errors.New("a session is already in progress")
	// ErrUnknownExercise rejects a plan referencing an unregistered
	// exercise.
	ErrUnknownExercise = errors.New("unknown exercise")
	// ErrEmptyPlan rejects a plan with no sets.
	ErrEmptyPlan = errors.New("session plan has no sets")
)

// PlannedSet is one planned set: an exercise, its target, and the rest
// interval that follows it.
type PlannedSet struct {
	Exercise   string        `json:"exercise"`
	TargetReps int           `json:"target_reps,omitempty"`
	TargetHold time.Duration `json:"target_hold,omitempty"`
	Rest       time.Duration `json:"rest"`
}

// Plan is an ordered workout plan for one user.
type Plan struct {
	UserID int          `json:"user_id"`
	Sets   []PlannedSet `json:"sets"`
}

// SetResult is the finalized outcome of one set.
type SetResult struct {
	Exercise     string        `json:"exercise"`
	ExerciseName string        `json:"exercise_name"`
	SetNumber    int           `json:"set_number"`
	Reps         int           `json:"reps,omitempty"`
	HoldDuration time.Duration `json:"hold_duration,omitempty"`
	Completed    bool          `json:"completed"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      time.Time     `json:"ended_at"`
	// Feedback lists the distinct corrective messages emitted during the
	// set, in first-emission order.
	Feedback []string `json:"feedback,omitempty"`
}

// Record is the aggregate handed to the persistence collaborator once the
// session finishes. It is not mutated afterwards.
type Record struct {
	ID        uuid.UUID   `json:"id"`
	UserID    int         `json:"user_id"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   time.Time   `json:"ended_at"`
	Sets      []SetResult `json:"sets"`
}

// TotalReps sums the rep counts across all sets.
func (r *Record) TotalReps() int {
	total := 0
	for _, s := range r.Sets {
		total += s.Reps
	}
	return total
}

// Snapshot is the per-frame output for the rendering collaborator.
type Snapshot struct {
	SessionID uuid.UUID `json:"session_id"`
	Phase     Phase     `json:"phase"`

	Exercise  string `json:"exercise,omitempty"`
	SetNumber int    `json:"set_number,omitempty"`
	TotalSets int    `json:"total_sets,omitempty"`

	Reps       int    `json:"reps"`
	TargetReps int    `json:"target_reps,omitempty"`
	RepPhase   string `json:"rep_phase,omitempty"`

	HoldElapsed  time.Duration `json:"hold_elapsed,omitempty"`
	HoldRequired time.Duration `json:"hold_required,omitempty"`

	RestRemaining time.Duration `json:"rest_remaining,omitempty"`

	Feedback string `json:"feedback,omitempty"`
}

// Config carries the engine tuning threaded from the application
// configuration.
type Config struct {
	MinConfidence  float64
	Filter         smoothing.Config
	GestureFrames  int
	GestureMinConf float64
}

// Manager runs one session at a time over a registry of exercises.
type Manager struct {
	registry *exercise.Registry
	cfg      Config
	log      *slog.Logger

	plan   Plan
	record *Record
	phase  Phase
	setIdx int

	// Per-set state, created at set start and discarded at set end.
	def         *exercise.Definition
	smoother    *smoothing.Smoother
	rep         *engine.RepCounter
	hold        *engine.HoldCounter
	feedback    *engine.Feedback
	setStarted  time.Time
	setMessages []string
	msgSeen     map[string]bool

	restUntil time.Time
	gesture   *pose.GestureDetector

	lastFrame time.Time
	last      Snapshot
}

// NewManager creates an idle manager.
func NewManager(registry *exercise.Registry, cfg Config, log *slog.Logger) *Manager {
	if cfg.GestureFrames < 1 {
		cfg.GestureFrames = 10
	}
	if cfg.GestureMinConf <= 0 {
		cfg.GestureMinConf = 0.5
	}
	return &Manager{registry: registry, cfg: cfg, log: log, phase: PhaseFinished}
}

// Active reports whether a session is in progress.
func (m *Manager) Active() bool {
	return m.record != nil && m.phase != PhaseFinished
}

// Last returns the most recent per-frame snapshot without advancing the
// engine.
func (m *Manager) Last() Snapshot { return m.last }

// Record returns the session record, or nil when none has been started.
// Only call after the session finished; the record is complete then.
func (m *Manager) Record() *Record { return m.record }

// Start begins a new session at now.
func (m *Manager) Start(plan Plan, now time.Time) error {
	if m.Active() {
		return ErrSessionActive
	}
	if len(plan.Sets) == 0 {
		return ErrEmptyPlan
	}
	for _, s := range plan.Sets {
		d, ok := m.registry.Get(s.Exercise)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownExercise, s.Exercise)
		}
		if d.Kind == exercise.KindHold && s.TargetHold <= 0 {
			return fmt.Errorf("%w: set for %q needs a hold target", ErrEmptyPlan, s.Exercise)
		}
		if d.Kind == exercise.KindRep && s.TargetReps <= 0 {
			return fmt.Errorf("%w: set for %q needs a rep target", ErrEmptyPlan, s.Exercise)
		}
	}

	m.plan = plan
	m.record = &Record{ID: uuid.New(), UserID: plan.UserID, StartedAt: now}
	m.setIdx = 0
	m.lastFrame = time.Time{}
	m.startSet(now)
	m.last = m.snapshot(now)
	m.log.Info("session started", "session_id", m.record.ID, "sets", len(plan.Sets), "user_id", plan.UserID)
	return nil
}

// SkipRest truncates the current rest interval. It is only honored while
// resting; anywhere else it is rejected so a stray gesture cannot abandon a
// set.
func (m *Manager) SkipRest(now time.Time) error {
	if !m.Active() {
		return ErrNoSession
	}
	if m.phase != PhaseRest {
		return fmt.Errorf("%w: skip_rest while %s", ErrInvalidPhase, m.phase)
	}
	m.endRest(now)
	m.last = m.snapshot(now)
	return nil
}

// End finalizes the session early, closing out the in-progress set (if any)
// at its current tally, and returns the record.
func (m *Manager) End(now time.Time) (*Record, error) {
	if m.record == nil {
		return nil, ErrNoSession
	}
	if m.phase == PhaseActive {
		m.finalizeSet(now)
	}
	if m.phase != PhaseFinished {
		m.finish(now)
	}
	m.last = m.snapshot(now)
	return m.record, nil
}

// Advance runs one synchronous pass over a frame and returns the snapshot.
// Frames whose timestamp does not advance past the previous frame are
// absorbed: the prior snapshot is returned unchanged.
func (m *Manager) Advance(frame *pose.Frame) (Snapshot, error) {
	if !m.Active() {
		return Snapshot{}, ErrNoSession
	}
	now := frame.Timestamp
	if !m.lastFrame.IsZero() && !now.After(m.lastFrame) {
		return m.last, nil
	}
	m.lastFrame = now

	switch m.phase {
	case PhaseRest:
		m.advanceRest(frame, now)
	case PhaseActive:
		m.advanceSet(frame, now)
	}

	m.last = m.snapshot(now)
	return m.last, nil
}

// --- set lifecycle ---

func (m *Manager) startSet(now time.Time) {
	planned := m.plan.Sets[m.setIdx]
	def, _ := m.registry.Get(planned.Exercise)
	m.def = def

	filter := m.cfg.Filter
	if def.Filter != nil {
		filter = *def.Filter
	}
	m.smoother = smoothing.NewSmoother(filter)
	m.feedback = engine.NewFeedback(def.Feedback)
	m.rep = nil
	m.hold = nil
	switch def.Kind {
	case exercise.KindRep:
		m.rep = engine.NewRepCounter(def.Rep)
	case exercise.KindHold:
		hc := def.Hold
		hc.Required = planned.TargetHold
		m.hold = engine.NewHoldCounter(hc)
	}

	m.setStarted = now
	m.setMessages = nil
	m.msgSeen = make(map[string]bool)
	m.phase = PhaseActive
	m.log.Info("set started", "set", m.setIdx+1, "exercise", def.ID)
}

func (m *Manager) advanceSet(frame *pose.Frame, now time.Time) {
	minConf := m.cfg.MinConfidence
	if m.def.MinConfidence > 0 {
		minConf = m.def.MinConfidence
	}

	angles := geometry.Compute(frame, m.def.Formulas, minConf)
	for name, s := range angles {
		angles[name] = m.smoother.Smooth(s)
	}

	ctx := engine.RuleContext{Angles: angles}
	done := false
	switch {
	case m.rep != nil:
		ctx.Phase = string(m.rep.Phase())
		m.rep.Observe(angles[m.def.Primary])
		done = m.rep.Reps() >= m.plan.Sets[m.setIdx].TargetReps
	case m.hold != nil:
		m.hold.Observe(m.def.FormValid(ctx), now)
		ctx.Phase = string(m.hold.Phase())
		done = m.hold.Done()
	}

	if item, ok := m.feedback.Evaluate(ctx, now); ok {
		if !m.msgSeen[item.Message] {
			m.msgSeen[item.Message] = true
			m.setMessages = append(m.setMessages, item.Message)
		}
		m.last.Feedback = item.Message
	} else {
		m.last.Feedback = ""
	}

	if done {
		m.finalizeSet(now)
		if m.setIdx+1 >= len(m.plan.Sets) {
			m.finish(now)
			return
		}
		m.phase = PhaseRest
		m.restUntil = now.Add(m.plan.Sets[m.setIdx].Rest)
		m.gesture = pose.NewGestureDetector(m.cfg.GestureFrames, m.cfg.GestureMinConf)
		m.log.Info("rest started", "until", m.restUntil)
	}
}

func (m *Manager) advanceRest(frame *pose.Frame, now time.Time) {
	if g, ok := m.gesture.Observe(frame); ok && g == pose.GestureRaisedArm {
		m.log.Info("rest skipped by gesture")
		m.endRest(now)
		return
	}
	if !now.Before(m.restUntil) {
		m.endRest(now)
	}
}

func (m *Manager) endRest(now time.Time) {
	m.gesture = nil
	m.setIdx++
	m.startSet(now)
}

// finalizeSet closes the current set's counters into a SetResult. No phase
// transition skips this.
func (m *Manager) finalizeSet(now time.Time) {
	planned := m.plan.Sets[m.setIdx]
	res := SetResult{
		Exercise:     m.def.ID,
		ExerciseName: m.def.Name,
		SetNumber:    m.setIdx + 1,
		StartedAt:    m.setStarted,
		EndedAt:      now,
		Feedback:     m.setMessages,
	}
	switch {
	case m.rep != nil:
		res.Reps = m.rep.Reps()
		res.Completed = res.Reps >= planned.TargetReps
	case m.hold != nil:
		res.HoldDuration = m.hold.Elapsed()
		res.Completed = m.hold.Phase() == engine.HoldComplete
	}
	m.record.Sets = append(m.record.Sets, res)

	// Per-set engine state is never reused across sets.
	m.rep = nil
	m.hold = nil
	m.smoother = nil
	m.feedback = nil
	m.last.Feedback = ""
	m.log.Info("set finalized", "set", res.SetNumber, "exercise", res.Exercise,
		"reps", res.Reps, "hold", res.HoldDuration, "completed", res.Completed)
}

func (m *Manager) finish(now time.Time) {
	m.phase = PhaseFinished
	m.record.EndedAt = now
	m.log.Info("session finished", "session_id", m.record.ID, "sets", len(m.record.Sets))
}

func (m *Manager) snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		SessionID: m.record.ID,
		Phase:     m.phase,
		TotalSets: len(m.plan.Sets),
		Feedback:  m.last.Feedback,
	}
	if m.phase == PhaseFinished {
		return snap
	}

	planned := m.plan.Sets[m.setIdx]
	snap.SetNumber = m.setIdx + 1
	snap.Exercise = planned.Exercise

	switch m.phase {
	case PhaseRest:
		if rem := m.restUntil.Sub(now); rem > 0 {
			snap.RestRemaining = rem
		}
	case PhaseActive:
		switch {
		case m.rep != nil:
			snap.Reps = m.rep.Reps()
			snap.TargetReps = planned.TargetReps
			snap.RepPhase = string(m.rep.Phase())
		case m.hold != nil:
			snap.HoldElapsed = m.hold.Elapsed()
			snap.HoldRequired = planned.TargetHold
			snap.RepPhase = string(m.hold.Phase())
		}
	}
	return snap
}
