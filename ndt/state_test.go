package ndt

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateTracker(t *testing.T) {
	st := NewStateTracker()
	snap := st.Snapshot()

	assert.Equal(t, "not-started", snap.Localizer)
	assert.Equal(t, "idle", snap.Feed)
	assert.Nil(t, snap.Pose)
	assert.Nil(t, snap.LastExitOK)
	assert.Zero(t, snap.PoseCount)
}

func TestStateTracker_UpdatePoseConvertsDegrees(t *testing.T) {
	st := NewStateTracker()
	st.UpdatePose(PoseEvent{X: 1, Y: 2, Z: 3, Yaw: math.Pi / 2})

	pose := st.Pose()
	require.NotNil(t, pose)
	assert.Equal(t, 1.0, pose.X)
	assert.InDelta(t, 90.0, pose.YawDeg, 1e-9)
	assert.False(t, pose.Received.IsZero())

	assert.Equal(t, int64(1), st.Snapshot().PoseCount)
}

func TestStateTracker_LogRingCap(t *testing.T) {
	st := NewStateTracker()
	for i := 0; i < maxLogLines+1; i++ {
		st.AppendLog(LineEvent{Text: fmt.Sprintf("line-%d", i)})
	}

	// One over the cap drops the oldest block
	assert.Equal(t, maxLogLines+1-logDropBlock, st.LogLen())

	tail := st.LogTail(1)
	require.Len(t, tail, 1)
	assert.Equal(t, fmt.Sprintf("line-%d", maxLogLines), tail[0].Text)
}

func TestStateTracker_LogTail(t *testing.T) {
	st := NewStateTracker()
	st.AppendLog(LineEvent{Text: "a", Severity: SeverityInfo})
	st.AppendLog(LineEvent{Text: "b", Severity: SeverityError})

	tail := st.LogTail(1)
	require.Len(t, tail, 1)
	assert.Equal(t, "b", tail[0].Text)
	assert.Equal(t, "error", tail[0].Severity)

	// Asking for more than retained returns everything
	assert.Len(t, st.LogTail(50), 2)
	// Zero means everything too
	assert.Len(t, st.LogTail(0), 2)
}

func TestStateTracker_RecordExit(t *testing.T) {
	st := NewStateTracker()

	st.RecordExit(ExitEvent{OK: false, Err: assert.AnError})
	snap := st.Snapshot()
	require.NotNil(t, snap.LastExitOK)
	assert.False(t, *snap.LastExitOK)
	assert.Equal(t, "failed", snap.Localizer)
	assert.NotEmpty(t, snap.LastError)

	st.RecordExit(ExitEvent{OK: true})
	snap = st.Snapshot()
	assert.True(t, *snap.LastExitOK)
	assert.Equal(t, "stopped", snap.Localizer)
}

func TestStateTracker_StateTransitions(t *testing.T) {
	st := NewStateTracker()

	st.SetProcState(ProcRunning)
	st.SetFeedState(FeedConnected)

	snap := st.Snapshot()
	assert.Equal(t, "running", snap.Localizer)
	assert.Equal(t, "connected", snap.Feed)
}

func TestStateTracker_SnapshotIsCopy(t *testing.T) {
	st := NewStateTracker()
	st.UpdatePose(PoseEvent{X: 1})

	snap := st.Snapshot()
	snap.Pose.X = 99

	assert.Equal(t, 1.0, st.Pose().X, "mutating a snapshot must not touch tracker state")
}
