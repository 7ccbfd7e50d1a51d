package engine

import (
	"testing"
	"time"

	"github.com/claude/repcoach/internal/geometry"
)

func fctx(phase string, angles map[string]float64) RuleContext {
	m := make(map[string]geometry.AngleSample, len(angles))
	for name, v := range angles {
		m[name] = geometry.AngleSample{Name: name, Value: v, Valid: true}
	}
	return RuleContext{Angles: m, Phase: phase}
}

func fptr(v float64) *float64 { return &v }

// TestFeedbackHighestSeverityWins verifies that when several rules fire on
// one frame, only the highest-severity message is surfaced.
func TestFeedbackHighestSeverityWins(t *testing.T) {
	fb := NewFeedback([]Rule{
		{Message: "minor", Severity: 1, Angle: "knee", Above: fptr(100)},
		{Message: "major", Severity: 3, Angle: "back", Below: fptr(160)},
	})
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	item, ok := fb.Evaluate(fctx("between", map[string]float64{"knee": 120, "back": 140}), now)
	if !ok {
		t.Fatal("no feedback emitted")
	}
	if item.Message != "major" {
		t.Errorf("message = %q, want %q", item.Message, "major")
	}
	if item.Severity != 3 {
		t.Errorf("severity = %d, want 3", item.Severity)
	}
}

// TestFeedbackCooldownSuppresses verifies a cooling-down winner yields no
// message at all rather than falling through to a lower-severity rule.
func TestFeedbackCooldownSuppresses(t *testing.T) {
	fb := NewFeedback([]Rule{
		{Message: "minor", Severity: 1, Cooldown: time.Second, Angle: "knee", Above: fptr(100)},
		{Message: "major", Severity: 3, Cooldown: 5 * time.Second, Angle: "back", Below: fptr(160)},
	})
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	angles := map[string]float64{"knee": 120, "back": 140}

	if _, ok := fb.Evaluate(fctx("between", angles), now); !ok {
		t.Fatal("first frame emitted nothing")
	}
	if _, ok := fb.Evaluate(fctx("between", angles), now.Add(time.Second)); ok {
		t.Fatal("cooling-down winner fell through to another rule")
	}
	// Cooldown over: the winner emits again.
	item, ok := fb.Evaluate(fctx("between", angles), now.Add(5*time.Second))
	if !ok || item.Message != "major" {
		t.Errorf("after cooldown got (%q, %v), want (major, true)", item.Message, ok)
	}
}

// TestFeedbackPhaseGate verifies a rule restricted to certain phases stays
// silent outside them.
func TestFeedbackPhaseGate(t *testing.T) {
	fb := NewFeedback([]Rule{
		{Message: "deeper", Severity: 2, Angle: "knee", Above: fptr(110), Phases: []string{"between"}},
	})
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	angles := map[string]float64{"knee": 130}

	if _, ok := fb.Evaluate(fctx("above_up", angles), now); ok {
		t.Fatal("phase-gated rule fired outside its phases")
	}
	if _, ok := fb.Evaluate(fctx("between", angles), now.Add(time.Second)); !ok {
		t.Fatal("phase-gated rule silent inside its phase")
	}
}

// TestFeedbackMissingAngle verifies a rule watching an invalid or absent
// angle does not fire.
func TestFeedbackMissingAngle(t *testing.T) {
	fb := NewFeedback([]Rule{
		{Message: "deeper", Severity: 2, Angle: "knee", Above: fptr(110)},
	})
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	ctx := RuleContext{
		Angles: map[string]geometry.AngleSample{
			"knee": {Name: "knee", Value: 130, Valid: false},
		},
	}
	if _, ok := fb.Evaluate(ctx, now); ok {
		t.Fatal("rule fired on an invalid sample")
	}
	if _, ok := fb.Evaluate(RuleContext{Angles: map[string]geometry.AngleSample{}}, now); ok {
		t.Fatal("rule fired on an absent sample")
	}
}

// TestFeedbackCheckPredicate verifies a bespoke Check replaces the bound
// comparison.
func TestFeedbackCheckPredicate(t *testing.T) {
	fb := NewFeedback([]Rule{
		{
			Message:  "level",
			Severity: 2,
			Check: func(ctx RuleContext) bool {
				l, lok := ctx.Angle("left")
				r, rok := ctx.Angle("right")
				return lok && rok && l-r > 15
			},
		},
	})
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if _, ok := fb.Evaluate(fctx("", map[string]float64{"left": 120, "right": 110}), now); ok {
		t.Fatal("check fired within tolerance")
	}
	if _, ok := fb.Evaluate(fctx("", map[string]float64{"left": 130, "right": 110}), now.Add(time.Second)); !ok {
		t.Fatal("check silent outside tolerance")
	}
}

// TestRuleValidate exercises the rule checks.
func TestRuleValidate(t *testing.T) {
	good := Rule{Message: "m", Angle: "knee", Above: fptr(1)}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	bad := []Rule{
		{Angle: "knee", Above: fptr(1)},            // no message
		{Message: "m"},                             // no angle, no check
		{Message: "m", Angle: "knee"},              // no bounds
		{Message: "m", Angle: "knee", Above: fptr(1), Cooldown: -time.Second},
	}
	for i, r := range bad {
		if err := r.Validate(); err == nil {
			t.Errorf("rule %d accepted", i)
		}
	}
}
