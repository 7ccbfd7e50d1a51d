package engine

import (
	"fmt"
	"time"
)

// HoldPhase is the static-hold timer's state.
type HoldPhase string

const (
	// HoldIdle is the pre-set state; entering a valid position starts the
	// countdown.
	HoldIdle HoldPhase = "idle"
	// HoldCountdown is the preparatory delay: the position must stay valid
	// continuously before the timer starts.
	HoldCountdown HoldPhase = "countdown"
	// HoldActive accumulates valid hold time.
	HoldActive HoldPhase = "active"
	// HoldBroken pauses the timer while form is invalid; a grace timer runs.
	HoldBroken HoldPhase = "broken"
	// HoldComplete is terminal and only reached once the required duration
	// has been accumulated.
	HoldComplete HoldPhase = "complete"
)

// BreakPolicy decides what happens when the break grace period expires with
// form still invalid.
type BreakPolicy string

const (
	// BreakFinalize ends the set keeping the accumulated duration.
	BreakFinalize BreakPolicy = "finalize"
	// BreakReset discards the accumulated duration and returns to idle.
	BreakReset BreakPolicy = "reset"
)

// HoldConfig is the immutable timer configuration for a static-hold
// exercise.
type HoldConfig struct {
	// Required is the valid hold duration that completes the set.
	Required time.Duration `yaml:"required"`
	// Countdown is the continuous-validity delay before timing starts.
	Countdown time.Duration `yaml:"countdown"`
	// Grace is how long form may stay broken before the break policy
	// applies.
	Grace time.Duration `yaml:"grace"`
	// Policy applies when Grace expires with form still broken.
	Policy BreakPolicy `yaml:"policy"`
}

// Validate rejects hold configurations that cannot drive the timer.
func (c HoldConfig) Validate() error {
	if c.Required <= 0 {
		return fmt.Errorf("%w: hold requires a positive duration, got %v", ErrConfig, c.Required)
	}
	if c.Countdown < 0 || c.Grace < 0 {
		return fmt.Errorf("%w: countdown %v and grace %v must not be negative", ErrConfig, c.Countdown, c.Grace)
	}
	switch c.Policy {
	case BreakFinalize, BreakReset:
	default:
		return fmt.Errorf("%w: unknown break policy %q", ErrConfig, c.Policy)
	}
	return nil
}

// HoldCounter times an isometric hold. Accumulated duration only grows
// while the phase is active and form is valid; a break shorter than the
// grace period never loses accumulated time.
type HoldCounter struct {
	cfg HoldConfig

	phase       HoldPhase
	phaseStart  time.Time // entry time of the current countdown/broken phase
	lastTick    time.Time // last frame credited while active
	accumulated time.Duration
	done        bool
}

// NewHoldCounter creates an idle counter. The configuration must already be
// validated.
func NewHoldCounter(cfg HoldConfig) *HoldCounter {
	return &HoldCounter{cfg: cfg, phase: HoldIdle}
}

// Phase returns the current phase.
func (h *HoldCounter) Phase() HoldPhase { return h.phase }

// Elapsed returns the accumulated valid hold duration.
func (h *HoldCounter) Elapsed() time.Duration { return h.accumulated }

// Done reports whether the set is over: either the hold completed, or the
// grace period expired under the finalize policy.
func (h *HoldCounter) Done() bool { return h.done }

// Observe feeds one frame's form verdict at the given timestamp.
func (h *HoldCounter) Observe(formValid bool, t time.Time) {
	if h.done {
		return
	}
	switch h.phase {
	case HoldIdle:
		if formValid {
			h.phase = HoldCountdown
			h.phaseStart = t
		}

	case HoldCountdown:
		if !formValid {
			// Form broke before the hold started; the grace period only
			// protects an active hold.
			h.phase = HoldIdle
			return
		}
		if t.Sub(h.phaseStart) >= h.cfg.Countdown {
			h.phase = HoldActive
			h.lastTick = t
		}

	case HoldActive:
		if !formValid {
			h.phase = HoldBroken
			h.phaseStart = t
			return
		}
		h.accumulated += t.Sub(h.lastTick)
		h.lastTick = t
		if h.accumulated >= h.cfg.Required {
			h.phase = HoldComplete
			h.done = true
		}

	case HoldBroken:
		if formValid {
			// Restored within grace: resume without losing accumulated time.
			h.phase = HoldActive
			h.lastTick = t
			return
		}
		if t.Sub(h.phaseStart) >= h.cfg.Grace {
			switch h.cfg.Policy {
			case BreakFinalize:
				// The set ends at the partial duration. The phase stays
				// broken: complete is reserved for reaching the target.
				h.done = true
			case BreakReset:
				h.phase = HoldIdle
				h.accumulated = 0
			}
		}

	case HoldComplete:
		// Terminal.
	}
}
