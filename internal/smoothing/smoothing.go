// Package smoothing removes high-frequency jitter from angle time series
// with an adaptive one-pole (One Euro) filter: the cutoff frequency rises
// with the signal's rate of change, so fast motion passes with little lag
// while near-static signals are smoothed hard.
package smoothing

import (
	"math"
	"time"

	"github.com/claude/repcoach/internal/geometry"
)

// Config tunes the adaptive filter.
type Config struct {
	// MinCutoff is the cutoff frequency (Hz) applied to a static signal.
	MinCutoff float64 `yaml:"min_cutoff"`
	// MaxCutoff caps the speed-scaled cutoff so a noise spike cannot
	// disable smoothing entirely.
	MaxCutoff float64 `yaml:"max_cutoff"`
	// Beta scales the cutoff with the absolute rate of change.
	Beta float64 `yaml:"beta"`
	// DCutoff is the cutoff used when smoothing the derivative estimate.
	DCutoff float64 `yaml:"d_cutoff"`
}

// DefaultConfig matches the tuning used for joint-angle signals.
func DefaultConfig() Config {
	return Config{MinCutoff: 1.0, MaxCutoff: 10.0, Beta: 0.05, DCutoff: 1.0}
}

// Filter smooths a single named signal. The zero value is unseeded; the
// first valid sample seeds the output exactly.
type Filter struct {
	cfg Config

	seeded bool
	x      float64 // previous filtered value
	dx     float64 // previous filtered derivative
	t      time.Time
}

// NewFilter creates an unseeded filter.
func NewFilter(cfg Config) *Filter {
	return &Filter{cfg: cfg}
}

// Push feeds one raw value and returns the filtered value. Samples whose
// timestamp does not advance past the previous one are rejected: the prior
// filtered value is returned and the filter state is left untouched.
func (f *Filter) Push(x float64, t time.Time) float64 {
	if !f.seeded {
		f.seeded = true
		f.x = x
		f.dx = 0
		f.t = t
		return x
	}

	dt := t.Sub(f.t).Seconds()
	if dt <= 0 {
		return f.x
	}

	aD := alpha(dt, f.cfg.DCutoff)
	dx := (x - f.x) / dt
	dxHat := aD*dx + (1-aD)*f.dx

	cutoff := f.cfg.MinCutoff + f.cfg.Beta*math.Abs(dxHat)
	if f.cfg.MaxCutoff > 0 && cutoff > f.cfg.MaxCutoff {
		cutoff = f.cfg.MaxCutoff
	}

	a := alpha(dt, cutoff)
	xHat := a*x + (1-a)*f.x

	f.x = xHat
	f.dx = dxHat
	f.t = t
	return xHat
}

// Value returns the current filtered value and whether the filter is seeded.
func (f *Filter) Value() (float64, bool) {
	return f.x, f.seeded
}

// alpha converts a cutoff frequency and time step into a blend coefficient
// in (0, 1).
func alpha(dt, cutoff float64) float64 {
	r := 2 * math.Pi * cutoff * dt
	return r / (r + 1)
}

// Smoother owns one Filter per named angle signal. It is created when a set
// starts and discarded when the set ends.
type Smoother struct {
	cfg     Config
	filters map[string]*Filter
}

// NewSmoother creates a smoother with all signals unseeded.
func NewSmoother(cfg Config) *Smoother {
	return &Smoother{cfg: cfg, filters: make(map[string]*Filter)}
}

// Smooth filters one sample. Invalid samples are not fed to the filter: the
// previous filtered value (if any) is carried in the returned sample, which
// stays invalid so downstream decision logic skips the frame.
func (s *Smoother) Smooth(sample geometry.AngleSample) geometry.AngleSample {
	f, ok := s.filters[sample.Name]
	if !ok {
		f = NewFilter(s.cfg)
		s.filters[sample.Name] = f
	}

	if !sample.Valid {
		if v, seeded := f.Value(); seeded {
			sample.Value = v
		}
		return sample
	}

	// Reject out-of-order and duplicate timestamps rather than feeding
	// them to the filter; the frame is treated like an invalid sample.
	if f.seeded && !sample.Timestamp.After(f.t) {
		sample.Value = f.x
		sample.Valid = false
		return sample
	}

	sample.Value = f.Push(sample.Value, sample.Timestamp)
	return sample
}

// Reset discards all per-signal state, returning every filter to unseeded.
func (s *Smoother) Reset() {
	s.filters = make(map[string]*Filter)
}
