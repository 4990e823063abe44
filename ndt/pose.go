package ndt

import (
	"encoding/json"
	"fmt"
)

// poseStampedPayload mirrors the JSON shape the localizer bridge publishes:
// a PoseStamped-style message with the pose either at the top level or
// nested under "pose".
type poseStampedPayload struct {
	Pose *posePayload `json:"pose"`
	posePayload
}

type posePayload struct {
	Position struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		Z float64 `json:"z"`
	} `json:"position"`
	Orientation struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		Z float64 `json:"z"`
	} `json:"orientation"`
}

// DecodePose parses a pose feed payload into a PoseEvent. The orientation
// x/y/z fields carry roll/pitch/yaw in radians directly; this is the
// documented convention of the feed, not a quaternion.
func DecodePose(payload []byte) (PoseEvent, error) {
	var msg poseStampedPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return PoseEvent{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	p := msg.posePayload
	if msg.Pose != nil {
		p = *msg.Pose
	}

	return PoseEvent{
		X:     p.Position.X,
		Y:     p.Position.Y,
		Z:     p.Position.Z,
		Roll:  p.Orientation.X,
		Pitch: p.Orientation.Y,
		Yaw:   p.Orientation.Z,
	}, nil
}
