// Package pose defines the keypoint frame contract between the external
// pose-estimation collaborator and the tracking engine, plus gesture
// detection for hands-free control.
package pose

import "time"

// Joint indexes a body joint in the COCO-17 keypoint taxonomy used by the
// pose model.
type Joint int

const (
	Nose Joint = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

// NumJoints is the fixed keypoint count per frame.
const NumJoints = 17

var jointNames = [NumJoints]string{
	"nose", "left_eye", "right_eye", "left_ear", "right_ear",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_hip", "right_hip",
	"left_knee", "right_knee", "left_ankle", "right_ankle",
}

func (j Joint) String() string {
	if j < 0 || int(j) >= NumJoints {
		return "unknown"
	}
	return jointNames[j]
}

// Keypoint is one estimated joint position in image coordinates (Y grows
// downward) with the model's confidence score.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Frame is one keypoint frame as delivered by the pose collaborator: a
// fixed-order keypoint array plus the capture timestamp.
type Frame struct {
	Timestamp time.Time           `json:"timestamp"`
	Keypoints [NumJoints]Keypoint `json:"keypoints"`
}

// Valid reports whether the given joint meets the confidence floor.
func (f *Frame) Valid(j Joint, minConfidence float64) bool {
	if j < 0 || int(j) >= NumJoints {
		return false
	}
	return f.Keypoints[j].Confidence >= minConfidence
}

// Point returns the joint's image coordinates.
func (f *Frame) Point(j Joint) (x, y float64) {
	kp := f.Keypoints[j]
	return kp.X, kp.Y
}
