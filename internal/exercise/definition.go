// Package exercise defines the immutable exercise catalog: which joints an
// exercise watches, how its angles are computed, the thresholds that drive
// its counter, and its form-feedback rules. Definitions are assembled once
// at startup and validated before registration.
package exercise

import (
	"fmt"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/geometry"
	"github.com/claude/repcoach/internal/smoothing"
)

// Kind distinguishes counted from timed exercises.
type Kind string

const (
	// KindRep counts repetitions through the hysteresis state machine.
	KindRep Kind = "rep"
	// KindHold times an isometric hold.
	KindHold Kind = "hold"
)

// Side selects which half of the body an exercise watches.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	// SideBoth averages the two sides when both are measurable and falls
	// back to whichever side is visible.
	SideBoth Side = "both"
)

// Bound is one closed form-validity condition over a named angle. An unset
// end is open; an invalid angle never satisfies a bound.
type Bound struct {
	Angle string
	Min   *float64
	Max   *float64
}

// Satisfied reports whether the bound holds for this frame.
func (b Bound) Satisfied(ctx engine.RuleContext) bool {
	v, ok := ctx.Angle(b.Angle)
	if !ok {
		return false
	}
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil && v > *b.Max {
		return false
	}
	return true
}

// Definition describes one exercise. Definitions are immutable after
// registration; per-set counter state is created elsewhere.
type Definition struct {
	ID   string
	Name string
	Kind Kind
	Side Side

	// Formulas are the named angles computed from every frame.
	Formulas []geometry.Formula
	// Primary names the formula that drives the repetition counter.
	Primary string

	Rep  engine.RepConfig
	Hold engine.HoldConfig
	// Form holds the per-frame validity bounds for hold exercises.
	Form []Bound

	Feedback []engine.Rule

	// MinConfidence overrides the global keypoint confidence floor when
	// positive.
	MinConfidence float64
	// Filter overrides the global smoothing tuning when set.
	Filter *smoothing.Config
}

// Validate checks the definition against the engine's invariants. A failure
// rejects the exercise at registry load; nothing is clamped.
func (d *Definition) Validate() error {
	if d.ID == "" || d.Name == "" {
		return fmt.Errorf("%w: definition needs an id and a name", engine.ErrConfig)
	}

	names := make(map[string]bool, len(d.Formulas))
	for _, f := range d.Formulas {
		if f.Name == "" {
			return fmt.Errorf("%w: %s has an unnamed formula", engine.ErrConfig, d.ID)
		}
		if names[f.Name] {
			return fmt.Errorf("%w: %s defines formula %q twice", engine.ErrConfig, d.ID, f.Name)
		}
		names[f.Name] = true
		if n := len(f.Joints); n != 3 && n != 4 {
			return fmt.Errorf("%w: %s formula %q has %d joints, want 3 or 4", engine.ErrConfig, d.ID, f.Name, n)
		}
		if n := len(f.Mirror); n != 0 && n != len(f.Joints) {
			return fmt.Errorf("%w: %s formula %q mirror has %d joints, want %d", engine.ErrConfig, d.ID, f.Name, n, len(f.Joints))
		}
	}

	switch d.Kind {
	case KindRep:
		if !names[d.Primary] {
			return fmt.Errorf("%w: %s primary formula %q is not defined", engine.ErrConfig, d.ID, d.Primary)
		}
		if err := d.Rep.Validate(); err != nil {
			return fmt.Errorf("%s: %w", d.ID, err)
		}
	case KindHold:
		if err := d.Hold.Validate(); err != nil {
			return fmt.Errorf("%s: %w", d.ID, err)
		}
		if len(d.Form) == 0 {
			return fmt.Errorf("%w: %s has no form bounds to validate the hold", engine.ErrConfig, d.ID)
		}
		for _, b := range d.Form {
			if !names[b.Angle] {
				return fmt.Errorf("%w: %s form bound watches undefined angle %q", engine.ErrConfig, d.ID, b.Angle)
			}
		}
	default:
		return fmt.Errorf("%w: %s has unknown kind %q", engine.ErrConfig, d.ID, d.Kind)
	}

	for _, r := range d.Feedback {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%s: %w", d.ID, err)
		}
		if r.Check == nil && r.Angle != "" && !names[r.Angle] {
			return fmt.Errorf("%w: %s feedback rule %q watches undefined angle %q", engine.ErrConfig, d.ID, r.Message, r.Angle)
		}
	}

	if d.MinConfidence < 0 || d.MinConfidence > 1 {
		return fmt.Errorf("%w: %s min confidence %.2f outside [0,1]", engine.ErrConfig, d.ID, d.MinConfidence)
	}
	return nil
}

// FormValid reports whether every form bound holds for this frame.
func (d *Definition) FormValid(ctx engine.RuleContext) bool {
	for _, b := range d.Form {
		if !b.Satisfied(ctx) {
			return false
		}
	}
	return true
}
