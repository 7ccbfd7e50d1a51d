// Package engine contains the per-set decision logic: the hysteresis and
// debounce repetition counter, the static-hold timer, and the form-feedback
// selector. All engine state is created when a set begins and discarded when
// it ends.
package engine

import (
	"fmt"
	"time"

	"github.com/claude/repcoach/internal/geometry"
)

// Phase is the repetition counter's position relative to the two thresholds.
type Phase string

const (
	// PhaseBetween means neither threshold has been reached yet, or the
	// signal was last seen inside the hysteresis band before reaching one.
	PhaseBetween Phase = "between"
	// PhaseAboveUp means the signal last reached the upper threshold.
	PhaseAboveUp Phase = "above_up"
	// PhaseBelowDown means the signal last reached the lower threshold.
	PhaseBelowDown Phase = "below_down"
)

// Direction selects which threshold arms a rep and which one counts it.
type Direction string

const (
	// Standard counts a rep on reaching the upper threshold after having
	// reached the lower one (squat, pushup: flexion is the small angle).
	Standard Direction = "standard"
	// Inverted counts a rep on reaching the lower threshold after having
	// reached the upper one (bicep curl: flexion is the small angle and is
	// the counted position).
	Inverted Direction = "inverted"
)

// RepConfig is the immutable threshold configuration for one exercise.
type RepConfig struct {
	ThresholdDown    float64       `yaml:"threshold_down"`
	ThresholdUp      float64       `yaml:"threshold_up"`
	HysteresisMargin float64       `yaml:"hysteresis_margin"`
	Debounce         time.Duration `yaml:"debounce"`
	Direction        Direction     `yaml:"direction"`
}

// Validate rejects configurations that would break the hysteresis invariant.
// Invalid configurations are a load-time failure, never clamped.
func (c RepConfig) Validate() error {
	if c.HysteresisMargin < 0 {
		return fmt.Errorf("%w: hysteresis margin %.1f is negative", ErrConfig, c.HysteresisMargin)
	}
	if c.ThresholdUp <= c.ThresholdDown+c.HysteresisMargin {
		return fmt.Errorf("%w: threshold_up %.1f must exceed threshold_down %.1f + margin %.1f",
			ErrConfig, c.ThresholdUp, c.ThresholdDown, c.HysteresisMargin)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("%w: debounce %v is negative", ErrConfig, c.Debounce)
	}
	switch c.Direction {
	case Standard, Inverted:
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrConfig, c.Direction)
	}
	return nil
}

// RepCounter counts full cycles of a smoothed angle signal through both
// thresholds. A rep increments exactly once per cycle; transitions arriving
// within the debounce interval of the previous accepted transition are
// discarded, and oscillation strictly inside the hysteresis band never
// changes phase.
type RepCounter struct {
	cfg RepConfig

	phase  Phase
	armed  bool // the arming threshold has been reached since the last counted rep
	reps   int
	seeded bool
	last   time.Time // timestamp of the last accepted transition
}

// NewRepCounter creates a counter in its pre-seed state. The configuration
// must already be validated.
func NewRepCounter(cfg RepConfig) *RepCounter {
	return &RepCounter{cfg: cfg, phase: PhaseBetween}
}

// Reps returns the completed repetition count.
func (rc *RepCounter) Reps() int { return rc.reps }

// Phase returns the current phase.
func (rc *RepCounter) Phase() Phase { return rc.phase }

// Observe feeds one smoothed sample. Invalid samples leave the counter
// untouched. It returns true when this sample completed a repetition.
func (rc *RepCounter) Observe(sample geometry.AngleSample) bool {
	if !sample.Valid {
		return false
	}

	region := rc.classify(sample.Value)

	// The first classifiable sample seeds the phase without recording a
	// transition time, so seeding can neither count a rep nor arm the
	// debounce window.
	if !rc.seeded {
		rc.seeded = true
		rc.phase = region
		rc.armed = rc.isArming(region)
		return false
	}

	if region == PhaseBetween || region == rc.phase {
		return false
	}

	// Debounce: transitions inside the window are discarded, not queued.
	// The boundary is inclusive so a transition exactly one interval after
	// the previous one is accepted.
	if !rc.last.IsZero() && sample.Timestamp.Sub(rc.last) < rc.cfg.Debounce {
		return false
	}

	rc.phase = region
	rc.last = sample.Timestamp

	if rc.isArming(region) {
		rc.armed = true
		return false
	}
	if rc.armed {
		rc.armed = false
		rc.reps++
		return true
	}
	return false
}

// classify maps an angle to the threshold region it has reached, or
// PhaseBetween when it is inside the hysteresis band.
func (rc *RepCounter) classify(angle float64) Phase {
	switch {
	case angle >= rc.cfg.ThresholdUp:
		return PhaseAboveUp
	case angle <= rc.cfg.ThresholdDown:
		return PhaseBelowDown
	default:
		return PhaseBetween
	}
}

// isArming reports whether reaching the region arms (rather than counts)
// a repetition for the configured direction.
func (rc *RepCounter) isArming(region Phase) bool {
	if rc.cfg.Direction == Inverted {
		return region == PhaseAboveUp
	}
	return region == PhaseBelowDown
}
