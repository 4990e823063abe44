package ndt

import (
	"sync"
	"time"
)

// Log ring sizing. The view keeps the most recent maxLogLines; once over,
// the oldest logDropBlock lines are discarded in one cut so the slice is
// not reshuffled on every line.
const (
	maxLogLines  = 1000
	logDropBlock = 100
)

// PoseSnapshot is the consumer-facing pose: meters for position, degrees
// for orientation.
type PoseSnapshot struct {
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Z        float64   `json:"z"`
	RollDeg  float64   `json:"roll"`
	PitchDeg float64   `json:"pitch"`
	YawDeg   float64   `json:"yaw"`
	Received time.Time `json:"received"`
}

// LogLine is one retained terminal line with its severity
type LogLine struct {
	Text     string `json:"text"`
	Severity string `json:"severity"`
}

// StatusSnapshot is the full consumer-owned state at one instant
type StatusSnapshot struct {
	Localizer   string        `json:"localizer"`
	Feed        string        `json:"feed"`
	Pose        *PoseSnapshot `json:"pose,omitempty"`
	PoseCount   int64         `json:"poseCount"`
	LastError   string        `json:"lastError,omitempty"`
	LastExitOK  *bool         `json:"lastExitOk,omitempty"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

// StateTracker is the single consumer-owned state object. It is mutated
// only by the bridge drain loop; HTTP handlers and the publisher read
// copies through the snapshot accessors.
type StateTracker struct {
	mu         sync.RWMutex
	procState  ProcState
	feedState  FeedState
	pose       *PoseSnapshot
	poseCount  int64
	lastError  string
	lastExitOK *bool
	logLines   []LogLine
}

// NewStateTracker creates an empty tracker
func NewStateTracker() *StateTracker {
	return &StateTracker{
		procState: ProcNotStarted,
		feedState: FeedIdle,
	}
}

// SetProcState records the supervisor lifecycle state
func (st *StateTracker) SetProcState(s ProcState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.procState = s
}

// SetFeedState records the subscription lifecycle state
func (st *StateTracker) SetFeedState(s FeedState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.feedState = s
}

// RecordExit stores the terminal process notification
func (st *StateTracker) RecordExit(ev ExitEvent) {
	st.mu.Lock()
	defer st.mu.Unlock()
	ok := ev.OK
	st.lastExitOK = &ok
	if ev.OK {
		st.procState = ProcStopped
	} else {
		st.procState = ProcFailed
		if ev.Err != nil {
			st.lastError = ev.Err.Error()
		}
	}
}

// RecordError stores a non-fatal error for display
func (st *StateTracker) RecordError(err error) {
	if err == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.lastError = err.Error()
}

// UpdatePose stores the latest pose, converting orientation to degrees at
// this boundary.
func (st *StateTracker) UpdatePose(ev PoseEvent) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.pose = &PoseSnapshot{
		X:        ev.X,
		Y:        ev.Y,
		Z:        ev.Z,
		RollDeg:  ev.RollDeg(),
		PitchDeg: ev.PitchDeg(),
		YawDeg:   ev.YawDeg(),
		Received: time.Now(),
	}
	st.poseCount++
}

// AppendLog retains one terminal line, trimming the ring when full
func (st *StateTracker) AppendLog(ev LineEvent) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.logLines = append(st.logLines, LogLine{Text: ev.Text, Severity: ev.Severity.String()})
	if len(st.logLines) > maxLogLines {
		st.logLines = append([]LogLine{}, st.logLines[logDropBlock:]...)
	}
}

// Pose returns the latest pose snapshot, or nil when none has arrived
func (st *StateTracker) Pose() *PoseSnapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.pose == nil {
		return nil
	}
	copy := *st.pose
	return &copy
}

// LogTail returns up to n of the most recent log lines
func (st *StateTracker) LogTail(n int) []LogLine {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if n <= 0 || n > len(st.logLines) {
		n = len(st.logLines)
	}
	tail := make([]LogLine, n)
	copy(tail, st.logLines[len(st.logLines)-n:])
	return tail
}

// LogLen returns the number of retained log lines
func (st *StateTracker) LogLen() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.logLines)
}

// Snapshot returns the full current status
func (st *StateTracker) Snapshot() StatusSnapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()

	snap := StatusSnapshot{
		Localizer:   st.procState.String(),
		Feed:        st.feedState.String(),
		PoseCount:   st.poseCount,
		LastError:   st.lastError,
		GeneratedAt: time.Now(),
	}
	if st.pose != nil {
		pose := *st.pose
		snap.Pose = &pose
	}
	if st.lastExitOK != nil {
		ok := *st.lastExitOK
		snap.LastExitOK = &ok
	}
	return snap
}
