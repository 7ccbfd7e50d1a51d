// Package geometry computes named joint angles from keypoint frames. All
// computation is pure and stateless; unreliable keypoints yield invalid
// samples rather than fabricated values.
package geometry

import (
	"math"
	"time"

	"github.com/claude/repcoach/internal/pose"
)

// AngleSample is one named angle measurement taken from a frame. Valid is
// false when any required joint was missing or below the confidence floor;
// in that case Value carries no meaning.
type AngleSample struct {
	Name      string
	Value     float64
	Timestamp time.Time
	Valid     bool
}

// Formula names an angle derived from a frame. Joints holds either three
// joints (angle at the middle vertex) or four (angle between segments
// joint0->joint1 and joint2->joint3). Mirror optionally holds the
// opposite-side joints; when both sides are measurable their angles are
// averaged, and a single valid side is used alone.
type Formula struct {
	Name      string
	Joints    []pose.Joint
	Mirror    []pose.Joint
	Alignment bool // report deviation from a straight line (180°) instead of the raw angle
}

// Point is a 2D image coordinate.
type Point struct {
	X, Y float64
}

// Angle returns the angle at vertex b formed by points a and c, in degrees
// within [0, 180]. Degenerate (zero-length) bone vectors return 0.
func Angle(a, b, c Point) float64 {
	bax := a.X - b.X
	bay := a.Y - b.Y
	bcx := c.X - b.X
	bcy := c.Y - b.Y

	magBA := math.Hypot(bax, bay)
	magBC := math.Hypot(bcx, bcy)
	if magBA == 0 || magBC == 0 {
		return 0
	}

	cos := (bax*bcx + bay*bcy) / (magBA * magBC)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// SegmentsAngle returns the angle between segments a->b and c->d in degrees
// within [0, 180]. Degenerate segments return 0.
func SegmentsAngle(a, b, c, d Point) float64 {
	ux := b.X - a.X
	uy := b.Y - a.Y
	vx := d.X - c.X
	vy := d.Y - c.Y

	magU := math.Hypot(ux, uy)
	magV := math.Hypot(vx, vy)
	if magU == 0 || magV == 0 {
		return 0
	}

	cos := (ux*vx + uy*vy) / (magU * magV)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// Compute evaluates each formula against the frame and returns the named
// samples. A formula whose required joints (on every measurable side) fall
// below minConfidence yields an invalid sample.
func Compute(f *pose.Frame, formulas []Formula, minConfidence float64) map[string]AngleSample {
	out := make(map[string]AngleSample, len(formulas))
	for _, fm := range formulas {
		out[fm.Name] = evaluate(f, fm, minConfidence)
	}
	return out
}

func evaluate(f *pose.Frame, fm Formula, minConfidence float64) AngleSample {
	sample := AngleSample{Name: fm.Name, Timestamp: f.Timestamp}

	var sum float64
	var n int
	for _, joints := range [][]pose.Joint{fm.Joints, fm.Mirror} {
		if len(joints) == 0 {
			continue
		}
		if v, ok := sideAngle(f, joints, minConfidence); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return sample
	}

	sample.Value = sum / float64(n)
	if fm.Alignment {
		sample.Value = 180 - sample.Value
	}
	sample.Valid = true
	return sample
}

func sideAngle(f *pose.Frame, joints []pose.Joint, minConfidence float64) (float64, bool) {
	for _, j := range joints {
		if !f.Valid(j, minConfidence) {
			return 0, false
		}
	}
	pts := make([]Point, len(joints))
	for i, j := range joints {
		x, y := f.Point(j)
		pts[i] = Point{X: x, Y: y}
	}
	switch len(joints) {
	case 3:
		return Angle(pts[0], pts[1], pts[2]), true
	case 4:
		return SegmentsAngle(pts[0], pts[1], pts[2], pts[3]), true
	default:
		return 0, false
	}
}
