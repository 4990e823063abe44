package ndt

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "ndt/kalman_filtered_pose"

func makePosePayload(x, y, z, roll, pitch, yaw float64) []byte {
	return []byte(fmt.Sprintf(
		`{"pose":{"position":{"x":%g,"y":%g,"z":%g},"orientation":{"x":%g,"y":%g,"z":%g}}}`,
		x, y, z, roll, pitch, yaw))
}

func TestSubscriber_StartConnectsOnce(t *testing.T) {
	b := NewBridge(0)
	client := newMockFeedClient()
	s := newSubscriberWithClient(client, testTopic, b)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Equal(t, FeedConnecting, nextFeedState(t, b).State)
	assert.Equal(t, FeedConnected, nextFeedState(t, b).State)
	assert.Equal(t, FeedConnected, s.State())
}

func TestSubscriber_DeliversDecodedPoses(t *testing.T) {
	b := NewBridge(0)
	client := newMockFeedClient()
	s := newSubscriberWithClient(client, testTopic, b)

	require.NoError(t, s.Start())
	defer s.Stop()

	client.simulateMessage(testTopic, makePosePayload(1, 2, 3, 0, 0, math.Pi/2))

	pose := nextPose(t, b)
	assert.Equal(t, 1.0, pose.X)
	assert.Equal(t, 2.0, pose.Y)
	assert.Equal(t, 3.0, pose.Z)
	assert.InDelta(t, 90.0, pose.YawDeg(), 1e-9)
}

func TestSubscriber_BrokerUnreachable(t *testing.T) {
	b := NewBridge(0)
	client := newMockFeedClient()
	client.setConnectError(errors.New("connection refused"))
	s := newSubscriberWithClient(client, testTopic, b)

	err := s.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMiddlewareUnavailable))
	assert.Equal(t, FeedError, s.State())

	assert.Equal(t, FeedConnecting, nextFeedState(t, b).State)
	ev := nextFeedState(t, b)
	assert.Equal(t, FeedError, ev.State)
	assert.Error(t, ev.Err)
}

func TestSubscriber_ConnectTimeoutTearsDownClient(t *testing.T) {
	b := NewBridge(0)
	client := newMockFeedClient()
	client.setConnectHang(true)
	s := newSubscriberWithClient(client, testTopic, b)

	err := s.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMiddlewareUnavailable))
	assert.Contains(t, err.Error(), "timed out")
	assert.NotContains(t, err.Error(), "<nil>")
	assert.False(t, client.IsConnected(), "half-open connection must be torn down")
	assert.Equal(t, FeedError, s.State())
}

func TestSubscriber_SubscribeFailure(t *testing.T) {
	b := NewBridge(0)
	client := newMockFeedClient()
	client.setSubscribeError(errors.New("not authorized"))
	s := newSubscriberWithClient(client, testTopic, b)

	err := s.Start()
	require.Error(t, err)
	assert.Equal(t, FeedError, s.State())
}

func TestSubscriber_DecodeFailureIsNonFatal(t *testing.T) {
	b := NewBridge(0)
	client := newMockFeedClient()
	s := newSubscriberWithClient(client, testTopic, b)

	require.NoError(t, s.Start())
	defer s.Stop()

	nextFeedState(t, b) // connecting
	nextFeedState(t, b) // connected

	client.simulateMessage(testTopic, []byte("{not json"))

	ev := nextFeedState(t, b)
	assert.True(t, errors.Is(ev.Err, ErrDecodeFailure))
	assert.Equal(t, FeedConnected, s.State(), "decode failure must not change subscription state")

	// A good payload afterwards still flows
	client.simulateMessage(testTopic, makePosePayload(5, 0, 0, 0, 0, 0))
	assert.Equal(t, 5.0, nextPose(t, b).X)
}

func TestSubscriber_StopIsIdempotent(t *testing.T) {
	b := NewBridge(0)
	client := newMockFeedClient()
	s := newSubscriberWithClient(client, testTopic, b)

	require.NoError(t, s.Start())

	s.Stop()
	assert.Equal(t, FeedStopped, s.State())
	s.Stop()
	assert.Equal(t, FeedStopped, s.State())
}

func TestSubscriber_SecondStartRejected(t *testing.T) {
	b := NewBridge(0)
	client := newMockFeedClient()
	s := newSubscriberWithClient(client, testTopic, b)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.True(t, errors.Is(s.Start(), ErrAlreadyRunning))
}

func TestSubscriber_StopDuringStartLeavesNoSubscription(t *testing.T) {
	b := NewBridge(0)
	client := newMockFeedClient()
	client.setConnectDelay(50 * time.Millisecond)
	s := newSubscriberWithClient(client, testTopic, b)

	started := make(chan error, 1)
	go func() { started <- s.Start() }()
	time.Sleep(10 * time.Millisecond)
	s.Stop()

	require.NoError(t, <-started)
	// When Stop won the race it was a no-op and Start connected afterwards
	if s.State() == FeedConnected {
		s.Stop()
	}
	assert.Equal(t, FeedStopped, s.State())
	assert.Equal(t, 0, client.liveSubscriptions(), "no subscription may outlive Stop")
	assert.Equal(t, 1, client.maxConcurrentSubs())
}

func TestSubscriber_RestartNeverDoublesSubscription(t *testing.T) {
	b := NewBridge(0)
	client := newMockFeedClient()
	s := newSubscriberWithClient(client, testTopic, b)

	require.NoError(t, s.Start())
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Restart())
	}
	s.Stop()

	assert.Equal(t, 1, client.maxConcurrentSubs(),
		"at most one live subscription per topic at any instant")
}
