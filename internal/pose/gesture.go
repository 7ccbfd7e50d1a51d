package pose

// Gesture identifies a recognized control gesture.
type Gesture string

// GestureRaisedArm is a wrist held clearly above the shoulder, used to skip
// the remainder of a rest interval.
const GestureRaisedArm Gesture = "raised_arm"

// raisedArmMinOffset is how far (in pixels) the wrist must sit above the
// shoulder before the arm counts as raised. Image Y grows downward.
const raisedArmMinOffset = 50.0

// GestureDetector recognizes control gestures from keypoint frames. A
// gesture is only reported after it has been observed in at least half of
// the last StabilityFrames frames, which suppresses single-frame flicker
// from the pose model.
type GestureDetector struct {
	stabilityFrames int
	minConfidence   float64

	history []Gesture // ring buffer of per-frame detections ("" = none)
	next    int
	filled  bool
}

// NewGestureDetector creates a detector requiring stabilityFrames of history
// and the given keypoint confidence floor.
func NewGestureDetector(stabilityFrames int, minConfidence float64) *GestureDetector {
	if stabilityFrames < 1 {
		stabilityFrames = 1
	}
	return &GestureDetector{
		stabilityFrames: stabilityFrames,
		minConfidence:   minConfidence,
		history:         make([]Gesture, stabilityFrames),
	}
}

// Observe records one frame and returns the stable gesture, if any.
func (d *GestureDetector) Observe(f *Frame) (Gesture, bool) {
	var g Gesture
	if f != nil {
		g = d.detectRaisedArm(f)
	}

	d.history[d.next] = g
	d.next++
	if d.next == len(d.history) {
		d.next = 0
		d.filled = true
	}

	return d.stable()
}

// Reset clears the detection history, e.g. when leaving the rest phase.
func (d *GestureDetector) Reset() {
	for i := range d.history {
		d.history[i] = ""
	}
	d.next = 0
	d.filled = false
}

func (d *GestureDetector) detectRaisedArm(f *Frame) Gesture {
	for _, side := range [][2]Joint{{RightWrist, RightShoulder}, {LeftWrist, LeftShoulder}} {
		wrist, shoulder := side[0], side[1]
		if !f.Valid(wrist, d.minConfidence) || !f.Valid(shoulder, d.minConfidence) {
			continue
		}
		_, wy := f.Point(wrist)
		_, sy := f.Point(shoulder)
		if sy-wy > raisedArmMinOffset {
			return GestureRaisedArm
		}
	}
	return ""
}

// stable returns the majority gesture once the history window is full and
// the gesture appears in at least half of it.
func (d *GestureDetector) stable() (Gesture, bool) {
	if !d.filled {
		return "", false
	}
	counts := make(map[Gesture]int)
	for _, g := range d.history {
		if g != "" {
			counts[g]++
		}
	}
	var best Gesture
	bestN := 0
	for g, n := range counts {
		if n > bestN {
			best, bestN = g, n
		}
	}
	if bestN*2 >= d.stabilityFrames && best != "" {
		return best, true
	}
	return "", false
}
