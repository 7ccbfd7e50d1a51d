package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/claude/repcoach/internal/geometry"
)

func repCfg() RepConfig {
	return RepConfig{
		ThresholdDown:    70,
		ThresholdUp:      160,
		HysteresisMargin: 20,
		Debounce:         300 * time.Millisecond,
		Direction:        Standard,
	}
}

func sampleAt(value float64, t time.Time) geometry.AngleSample {
	return geometry.AngleSample{Name: "knee", Value: value, Timestamp: t, Valid: true}
}

// TestRepCounterFullCycle runs a noisy squat-like signal through the counter
// and verifies exactly one rep is counted, on the sample that closes the
// cycle.
func TestRepCounterFullCycle(t *testing.T) {
	rc := NewRepCounter(repCfg())
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	values := []float64{170, 150, 100, 60, 65, 150, 165}
	var counted []int
	for i, v := range values {
		if rc.Observe(sampleAt(v, base.Add(time.Duration(i)*100*time.Millisecond))) {
			counted = append(counted, i)
		}
	}

	if rc.Reps() != 1 {
		t.Fatalf("reps = %d, want 1", rc.Reps())
	}
	if len(counted) != 1 || counted[0] != 6 {
		t.Errorf("rep counted at samples %v, want [6]", counted)
	}
	if rc.Phase() != PhaseAboveUp {
		t.Errorf("phase = %q, want %q", rc.Phase(), PhaseAboveUp)
	}
}

// TestRepCounterSeedDoesNotCount verifies the first classifiable sample only
// seeds the phase: starting at the counting threshold must not produce a rep.
func TestRepCounterSeedDoesNotCount(t *testing.T) {
	rc := NewRepCounter(repCfg())
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if rc.Observe(sampleAt(170, base)) {
		t.Fatal("seeding sample counted a rep")
	}
	if rc.Phase() != PhaseAboveUp {
		t.Errorf("phase = %q, want %q", rc.Phase(), PhaseAboveUp)
	}
	if rc.Reps() != 0 {
		t.Errorf("reps = %d, want 0", rc.Reps())
	}
}

// TestRepCounterBandOscillation verifies that values strictly inside the
// hysteresis band never change phase or count.
func TestRepCounterBandOscillation(t *testing.T) {
	rc := NewRepCounter(repCfg())
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rc.Observe(sampleAt(170, base))
	for i, v := range []float64{140, 90, 120, 75, 155} {
		if rc.Observe(sampleAt(v, base.Add(time.Duration(i+1)*time.Second))) {
			t.Fatalf("in-band value %.0f counted a rep", v)
		}
	}
	if rc.Phase() != PhaseAboveUp {
		t.Errorf("phase = %q, want %q after in-band oscillation", rc.Phase(), PhaseAboveUp)
	}
}

// TestRepCounterDebounceDiscards verifies a transition inside the debounce
// window is discarded entirely, not deferred: the next accepted sample in the
// same region counts instead.
func TestRepCounterDebounceDiscards(t *testing.T) {
	rc := NewRepCounter(repCfg())
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rc.Observe(sampleAt(170, base))                   // seed above
	rc.Observe(sampleAt(60, base.Add(1*time.Second))) // arm (accepted)

	// 100ms after the accepted transition: inside the window.
	if rc.Observe(sampleAt(165, base.Add(1100*time.Millisecond))) {
		t.Fatal("transition inside debounce window counted")
	}
	if rc.Phase() != PhaseBelowDown {
		t.Fatalf("phase = %q, want %q (discarded transition must not change phase)", rc.Phase(), PhaseBelowDown)
	}
	// One full debounce interval after the accepted transition: counts.
	if !rc.Observe(sampleAt(165, base.Add(1300*time.Millisecond))) {
		t.Fatal("transition exactly one debounce interval later did not count")
	}
	if rc.Reps() != 1 {
		t.Errorf("reps = %d, want 1", rc.Reps())
	}
}

// TestRepCounterInverted verifies the inverted direction counts on the lower
// threshold after arming at the upper one, as a bicep curl does.
func TestRepCounterInverted(t *testing.T) {
	cfg := RepConfig{
		ThresholdDown:    30,
		ThresholdUp:      160,
		HysteresisMargin: 5,
		Debounce:         300 * time.Millisecond,
		Direction:        Inverted,
	}
	rc := NewRepCounter(cfg)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rc.Observe(sampleAt(90, base)) // seed in band
	if rc.Observe(sampleAt(170, base.Add(1*time.Second))) {
		t.Fatal("arming at extension counted a rep")
	}
	if !rc.Observe(sampleAt(25, base.Add(2*time.Second))) {
		t.Fatal("contraction after arming did not count")
	}
	// Re-arming and contracting again counts a second rep.
	rc.Observe(sampleAt(170, base.Add(3*time.Second)))
	if !rc.Observe(sampleAt(20, base.Add(4*time.Second))) {
		t.Fatal("second cycle did not count")
	}
	if rc.Reps() != 2 {
		t.Errorf("reps = %d, want 2", rc.Reps())
	}
}

// TestRepCounterMirroredDirectionsAgree drives a standard counter with a
// signal and an inverted counter with its mirror image (reflected about the
// midpoint of the thresholds) and verifies they count identically, rep for
// rep.
func TestRepCounterMirroredDirectionsAgree(t *testing.T) {
	cfg := repCfg()
	std := NewRepCounter(cfg)

	inv := cfg
	inv.Direction = Inverted
	invRC := NewRepCounter(inv)

	// Reflecting x about (70+160)/2 maps the up threshold onto the down
	// threshold and vice versa.
	const mirror = 230.0
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Two full cycles with in-band wobble.
	values := []float64{170, 120, 60, 90, 165, 140, 65, 168}
	for i, v := range values {
		ts := base.Add(time.Duration(i) * time.Second)
		gotStd := std.Observe(sampleAt(v, ts))
		gotInv := invRC.Observe(sampleAt(mirror-v, ts))
		if gotStd != gotInv {
			t.Fatalf("sample %d (%.0f): standard counted %v, inverted counted %v", i, v, gotStd, gotInv)
		}
	}
	if std.Reps() != 2 {
		t.Errorf("standard reps = %d, want 2", std.Reps())
	}
	if invRC.Reps() != std.Reps() {
		t.Errorf("inverted reps = %d, standard = %d, want equal", invRC.Reps(), std.Reps())
	}
}

// TestRepCounterUnarmedDoesNotCount verifies reaching the counting threshold
// twice without re-arming counts only once.
func TestRepCounterUnarmedDoesNotCount(t *testing.T) {
	rc := NewRepCounter(repCfg())
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rc.Observe(sampleAt(100, base)) // seed in band
	rc.Observe(sampleAt(60, base.Add(1*time.Second)))
	if !rc.Observe(sampleAt(170, base.Add(2*time.Second))) {
		t.Fatal("first cycle did not count")
	}
	// Down into the band, back up: no second bottom, no second rep.
	rc.Observe(sampleAt(100, base.Add(3*time.Second)))
	if rc.Observe(sampleAt(170, base.Add(4*time.Second))) {
		t.Fatal("counted a rep without re-arming")
	}
	if rc.Reps() != 1 {
		t.Errorf("reps = %d, want 1", rc.Reps())
	}
}

// TestRepCounterInvalidSample verifies invalid samples are a no-op.
func TestRepCounterInvalidSample(t *testing.T) {
	rc := NewRepCounter(repCfg())
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rc.Observe(sampleAt(170, base))
	rc.Observe(sampleAt(60, base.Add(1*time.Second)))

	bad := geometry.AngleSample{Name: "knee", Value: 170, Timestamp: base.Add(2 * time.Second), Valid: false}
	if rc.Observe(bad) {
		t.Fatal("invalid sample counted a rep")
	}
	if rc.Phase() != PhaseBelowDown {
		t.Errorf("phase = %q, want %q after invalid sample", rc.Phase(), PhaseBelowDown)
	}
}

// TestRepConfigValidate exercises the configuration checks.
func TestRepConfigValidate(t *testing.T) {
	good := repCfg()
	if err := good.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*RepConfig)
	}{
		{"thresholds overlap", func(c *RepConfig) { c.ThresholdUp = 85 }},
		{"band swallowed by margin", func(c *RepConfig) { c.HysteresisMargin = 90 }},
		{"negative margin", func(c *RepConfig) { c.HysteresisMargin = -1 }},
		{"negative debounce", func(c *RepConfig) { c.Debounce = -time.Second }},
		{"unknown direction", func(c *RepConfig) { c.Direction = "sideways" }},
	}
	for _, tc := range cases {
		cfg := repCfg()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: accepted", tc.name)
			continue
		}
		if !errors.Is(err, ErrConfig) {
			t.Errorf("%s: error %v does not wrap ErrConfig", tc.name, err)
		}
	}
}
