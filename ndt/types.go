package ndt

import (
	"errors"
	"math"
)

// Severity classifies a line of localizer output
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the lowercase name of the severity
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// ProcState is the lifecycle state of a supervised localizer process
type ProcState int

const (
	ProcNotStarted ProcState = iota
	ProcStarting
	ProcRunning
	ProcStopping
	ProcStopped
	ProcFailed
)

// String returns a human-readable state name
func (s ProcState) String() string {
	switch s {
	case ProcStarting:
		return "starting"
	case ProcRunning:
		return "running"
	case ProcStopping:
		return "stopping"
	case ProcStopped:
		return "stopped"
	case ProcFailed:
		return "failed"
	default:
		return "not-started"
	}
}

// FeedState is the lifecycle state of a pose feed subscription
type FeedState int

const (
	FeedIdle FeedState = iota
	FeedConnecting
	FeedConnected
	FeedError
	FeedStopped
)

// String returns a human-readable state name
func (s FeedState) String() string {
	switch s {
	case FeedConnecting:
		return "connecting"
	case FeedConnected:
		return "connected"
	case FeedError:
		return "error"
	case FeedStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Sentinel errors for supervisor, subscriber, and loader failures
var (
	ErrPathNotFound          = errors.New("working directory not found")
	ErrSpawnFailure          = errors.New("failed to spawn process")
	ErrAlreadyRunning        = errors.New("already running")
	ErrMiddlewareUnavailable = errors.New("message broker unreachable")
	ErrDecodeFailure         = errors.New("pose decode failure")
	ErrUnsupportedFormat     = errors.New("unsupported point cloud format")
)

// LineEvent is one sanitized, classified line of localizer output
type LineEvent struct {
	Text     string
	Severity Severity
}

// ExitEvent is the terminal notification for a supervised process.
// OK is true when the process exited cleanly (exit code 0).
type ExitEvent struct {
	OK  bool
	Err error
}

// PoseEvent is one localization update from the pose feed.
// Position is in meters. Roll/pitch/yaw are radians; the feed publishes
// them directly in the orientation x/y/z slots (field-mapping convention
// of the localizer, not a quaternion).
type PoseEvent struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// RollDeg returns roll converted to degrees
func (p PoseEvent) RollDeg() float64 { return p.Roll * 180 / math.Pi }

// PitchDeg returns pitch converted to degrees
func (p PoseEvent) PitchDeg() float64 { return p.Pitch * 180 / math.Pi }

// YawDeg returns yaw converted to degrees
func (p PoseEvent) YawDeg() float64 { return p.Yaw * 180 / math.Pi }

// FeedStateEvent reports a connection-state transition of the pose feed.
// Err is set for FeedError transitions and for non-fatal decode problems.
type FeedStateEvent struct {
	State FeedState
	Err   error
}

// Point3 is a single point of a point cloud, in meters
type Point3 struct {
	X float64
	Y float64
	Z float64
}
