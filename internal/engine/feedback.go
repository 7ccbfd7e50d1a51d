package engine

import (
	"fmt"
	"time"

	"github.com/claude/repcoach/internal/geometry"
)

// RuleContext is what a form-check rule sees for one frame.
type RuleContext struct {
	// Angles holds the frame's smoothed samples keyed by formula name.
	Angles map[string]geometry.AngleSample
	// Phase is the counter phase as a string ("below_down", "active", ...),
	// letting rules fire only in the part of the movement they apply to.
	Phase string
}

// Angle returns the named sample's value if it is valid this frame.
func (c RuleContext) Angle(name string) (float64, bool) {
	s, ok := c.Angles[name]
	if !ok || !s.Valid {
		return 0, false
	}
	return s.Value, true
}

// Rule is one declarative form check: it fires when the watched angle drops
// below Below or rises above Above (an unset bound never fires). Check, when
// set, replaces the bound comparison for exercises needing a bespoke
// predicate.
type Rule struct {
	// Message identifies the corrective message to surface.
	Message string
	// Severity ranks the rule; the highest-severity firing rule wins the
	// frame.
	Severity int
	// Cooldown is the minimum gap between two emissions of this rule.
	Cooldown time.Duration

	Angle  string
	Below  *float64
	Above  *float64
	Phases []string // empty = all phases

	Check func(RuleContext) bool
}

// Fires evaluates the rule against one frame.
func (r Rule) Fires(ctx RuleContext) bool {
	if len(r.Phases) > 0 {
		ok := false
		for _, p := range r.Phases {
			if p == ctx.Phase {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if r.Check != nil {
		return r.Check(ctx)
	}
	v, ok := ctx.Angle(r.Angle)
	if !ok {
		return false
	}
	if r.Below != nil && v < *r.Below {
		return true
	}
	if r.Above != nil && v > *r.Above {
		return true
	}
	return false
}

// Validate rejects rules that could never fire or never rank.
func (r Rule) Validate() error {
	if r.Message == "" {
		return fmt.Errorf("%w: feedback rule without a message", ErrConfig)
	}
	if r.Check == nil && r.Angle == "" {
		return fmt.Errorf("%w: feedback rule %q watches no angle and has no check", ErrConfig, r.Message)
	}
	if r.Check == nil && r.Below == nil && r.Above == nil {
		return fmt.Errorf("%w: feedback rule %q has no bounds", ErrConfig, r.Message)
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("%w: feedback rule %q has negative cooldown", ErrConfig, r.Message)
	}
	return nil
}

// FeedbackItem is one surfaced corrective message.
type FeedbackItem struct {
	Message  string
	Severity int
	At       time.Time
}

// Feedback evaluates an exercise's form rules each frame and surfaces at
// most one message: the highest-severity firing rule, throttled by that
// rule's own cooldown so the display never flickers. Lower-severity firing
// rules are suppressed outright.
type Feedback struct {
	rules    []Rule
	lastEmit map[string]time.Time
}

// NewFeedback creates a feedback selector over the given rules.
func NewFeedback(rules []Rule) *Feedback {
	return &Feedback{rules: rules, lastEmit: make(map[string]time.Time)}
}

// Evaluate runs all rules for one frame. The boolean is false when nothing
// is emitted, either because no rule fired or because the winning rule is
// cooling down.
func (fb *Feedback) Evaluate(ctx RuleContext, t time.Time) (FeedbackItem, bool) {
	var winner *Rule
	for i := range fb.rules {
		r := &fb.rules[i]
		if !r.Fires(ctx) {
			continue
		}
		if winner == nil || r.Severity > winner.Severity {
			winner = r
		}
	}
	if winner == nil {
		return FeedbackItem{}, false
	}

	if last, ok := fb.lastEmit[winner.Message]; ok && t.Sub(last) < winner.Cooldown {
		return FeedbackItem{}, false
	}
	fb.lastEmit[winner.Message] = t
	return FeedbackItem{Message: winner.Message, Severity: winner.Severity, At: t}, true
}
