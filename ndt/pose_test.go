package ndt

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePose_Nested(t *testing.T) {
	payload := []byte(`{
		"header": {"seq": 42},
		"pose": {
			"position": {"x": 1.5, "y": -2.25, "z": 0.75},
			"orientation": {"x": 0.1, "y": 0.2, "z": 0.3, "w": 1}
		}
	}`)

	pose, err := DecodePose(payload)
	require.NoError(t, err)
	assert.Equal(t, 1.5, pose.X)
	assert.Equal(t, -2.25, pose.Y)
	assert.Equal(t, 0.75, pose.Z)
	// orientation x/y/z map straight to roll/pitch/yaw (feed convention)
	assert.Equal(t, 0.1, pose.Roll)
	assert.Equal(t, 0.2, pose.Pitch)
	assert.Equal(t, 0.3, pose.Yaw)
}

func TestDecodePose_TopLevel(t *testing.T) {
	payload := []byte(`{"position":{"x":3},"orientation":{"z":1.0}}`)

	pose, err := DecodePose(payload)
	require.NoError(t, err)
	assert.Equal(t, 3.0, pose.X)
	assert.Equal(t, 1.0, pose.Yaw)
}

func TestDecodePose_Invalid(t *testing.T) {
	_, err := DecodePose([]byte("not json at all"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecodeFailure))
}

func TestPoseEvent_DegreeConversion(t *testing.T) {
	p := PoseEvent{Roll: math.Pi, Pitch: math.Pi / 4, Yaw: math.Pi / 2}
	assert.InDelta(t, 180.0, p.RollDeg(), 1e-9)
	assert.InDelta(t, 45.0, p.PitchDeg(), 1e-9)
	assert.InDelta(t, 90.0, p.YawDeg(), 1e-9)
}
