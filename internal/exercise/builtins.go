package exercise

import (
	"math"
	"time"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/geometry"
	"github.com/claude/repcoach/internal/pose"
)

// Angle thresholds for the built-in exercises, in degrees.
const (
	squatUpAngle    = 160 // leg near straight, standing
	squatDownAngle  = 90  // thighs parallel
	pushupUpAngle   = 160 // arms extended
	pushupDownAngle = 90  // arms bent to parallel
	curlUpAngle     = 160 // arm extended (arming position)
	curlDownAngle   = 30  // full contraction (counted position)

	hysteresisMargin = 5
	bodyLineMin      = 160 // shoulder-hip-ankle straightness floor
)

const repDebounce = 300 * time.Millisecond

// checks is the static dispatch table for bespoke procedural form checks
// that a declarative angle bound cannot express.
var checks = map[string]func(engine.RuleContext) bool{
	"knee_symmetry": kneeSymmetry,
}

// kneeSymmetry fires when the two knee angles diverge enough to suggest
// uneven loading. Only fires when both sides are measurable.
func kneeSymmetry(ctx engine.RuleContext) bool {
	left, lok := ctx.Angle("left_knee")
	right, rok := ctx.Angle("right_knee")
	if !lok || !rok {
		return false
	}
	return math.Abs(left-right) > 15
}

func f(v float64) *float64 { return &v }

// Builtins returns the stock exercise catalog.
func Builtins() []*Definition {
	return []*Definition{squat(), pushup(), bicepCurl(), plank()}
}

func squat() *Definition {
	return &Definition{
		ID:   "squat",
		Name: "Squat",
		Kind: KindRep,
		Side: SideBoth,
		Formulas: []geometry.Formula{
			{
				Name:   "knee",
				Joints: []pose.Joint{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
				Mirror: []pose.Joint{pose.RightHip, pose.RightKnee, pose.RightAnkle},
			},
			{Name: "left_knee", Joints: []pose.Joint{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle}},
			{Name: "right_knee", Joints: []pose.Joint{pose.RightHip, pose.RightKnee, pose.RightAnkle}},
		},
		Primary: "knee",
		Rep: engine.RepConfig{
			ThresholdDown:    squatDownAngle,
			ThresholdUp:      squatUpAngle,
			HysteresisMargin: hysteresisMargin,
			Debounce:         repDebounce,
			Direction:        engine.Standard,
		},
		Feedback: []engine.Rule{
			{
				Message:  "squat_go_deeper",
				Severity: 5,
				Cooldown: 3 * time.Second,
				Angle:    "knee",
				Above:    f(110),
				Phases:   []string{string(engine.PhaseBetween)},
			},
			{
				Message:  "squat_keep_knees_level",
				Severity: 8,
				Cooldown: 2 * time.Second,
				Check:    checks["knee_symmetry"],
			},
		},
	}
}

func pushup() *Definition {
	return &Definition{
		ID:   "pushup",
		Name: "Push Up",
		Kind: KindRep,
		Side: SideBoth,
		Formulas: []geometry.Formula{
			{
				Name:   "elbow",
				Joints: []pose.Joint{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
				Mirror: []pose.Joint{pose.RightShoulder, pose.RightElbow, pose.RightWrist},
			},
			{
				Name:   "body_line",
				Joints: []pose.Joint{pose.LeftShoulder, pose.LeftHip, pose.LeftAnkle},
				Mirror: []pose.Joint{pose.RightShoulder, pose.RightHip, pose.RightAnkle},
			},
		},
		Primary: "elbow",
		Rep: engine.RepConfig{
			ThresholdDown:    pushupDownAngle,
			ThresholdUp:      pushupUpAngle,
			HysteresisMargin: hysteresisMargin,
			Debounce:         repDebounce,
			Direction:        engine.Standard,
		},
		Feedback: []engine.Rule{
			{
				Message:  "pushup_hips_sagging",
				Severity: 10,
				Cooldown: 2 * time.Second,
				Angle:    "body_line",
				Below:    f(bodyLineMin),
			},
		},
	}
}

func bicepCurl() *Definition {
	return &Definition{
		ID:   "bicep_curl",
		Name: "Bicep Curl",
		Kind: KindRep,
		Side: SideBoth,
		Formulas: []geometry.Formula{
			{
				Name:   "elbow",
				Joints: []pose.Joint{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
				Mirror: []pose.Joint{pose.RightShoulder, pose.RightElbow, pose.RightWrist},
			},
			{
				// Angle between the torso (hip->shoulder) and the upper arm
				// (shoulder->elbow): near 180 with the elbow pinned at the
				// side, dropping as the elbow swings forward.
				Name:   "upper_arm_swing",
				Joints: []pose.Joint{pose.LeftHip, pose.LeftShoulder, pose.LeftShoulder, pose.LeftElbow},
				Mirror: []pose.Joint{pose.RightHip, pose.RightShoulder, pose.RightShoulder, pose.RightElbow},
			},
		},
		Primary: "elbow",
		Rep: engine.RepConfig{
			// Inverted: the extended arm (large angle) arms the rep, the
			// contraction (small angle) counts it.
			ThresholdDown:    curlDownAngle,
			ThresholdUp:      curlUpAngle,
			HysteresisMargin: hysteresisMargin,
			Debounce:         repDebounce,
			Direction:        engine.Inverted,
		},
		Feedback: []engine.Rule{
			{
				Message:  "curl_pin_elbows",
				Severity: 10,
				Cooldown: 2 * time.Second,
				Angle:    "upper_arm_swing",
				Below:    f(155),
			},
		},
	}
}

func plank() *Definition {
	return &Definition{
		ID:   "plank",
		Name: "Plank",
		Kind: KindHold,
		Side: SideBoth,
		Formulas: []geometry.Formula{
			{
				Name:   "body_line",
				Joints: []pose.Joint{pose.LeftShoulder, pose.LeftHip, pose.LeftAnkle},
				Mirror: []pose.Joint{pose.RightShoulder, pose.RightHip, pose.RightAnkle},
			},
			{
				Name:   "elbow",
				Joints: []pose.Joint{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
				Mirror: []pose.Joint{pose.RightShoulder, pose.RightElbow, pose.RightWrist},
			},
		},
		Hold: engine.HoldConfig{
			Required:  30 * time.Second, // default; the session plan overrides per set
			Countdown: 3 * time.Second,
			Grace:     2 * time.Second,
			Policy:    engine.BreakFinalize,
		},
		Form: []Bound{
			{Angle: "body_line", Min: f(bodyLineMin)},
			{Angle: "elbow", Min: f(60), Max: f(120)},
		},
		Feedback: []engine.Rule{
			{
				Message:  "plank_keep_hips_level",
				Severity: 10,
				Cooldown: 2 * time.Second,
				Angle:    "body_line",
				Below:    f(bodyLineMin),
			},
			{
				Message:  "plank_stack_elbows",
				Severity: 6,
				Cooldown: 3 * time.Second,
				Angle:    "elbow",
				Below:    f(60),
				Above:    f(120),
			},
		},
	}
}
