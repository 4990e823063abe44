package ndt

// Bridge carries events from the supervisor and subscriber goroutines to the
// single consumer loop. Each event type has its own buffered channel, so
// delivery order is FIFO per source and the consumer never shares mutable
// state with a producer. Sends block when a channel is full rather than
// dropping events.
type Bridge struct {
	lines  chan LineEvent
	exits  chan ExitEvent
	poses  chan PoseEvent
	states chan FeedStateEvent
}

// DefaultBridgeBuffer sizes each event channel. The pose feed runs at ~30 Hz
// and the launcher can burst hundreds of lines at startup, so the buffer
// gives producers headroom between consumer ticks.
const DefaultBridgeBuffer = 256

// NewBridge creates a bridge with the given per-channel buffer size.
// A size of 0 or less falls back to DefaultBridgeBuffer.
func NewBridge(buffer int) *Bridge {
	if buffer <= 0 {
		buffer = DefaultBridgeBuffer
	}
	return &Bridge{
		lines:  make(chan LineEvent, buffer),
		exits:  make(chan ExitEvent, buffer),
		poses:  make(chan PoseEvent, buffer),
		states: make(chan FeedStateEvent, buffer),
	}
}

// PushLine delivers one classified output line
func (b *Bridge) PushLine(ev LineEvent) { b.lines <- ev }

// PushExit delivers the terminal process notification
func (b *Bridge) PushExit(ev ExitEvent) { b.exits <- ev }

// PushPose delivers one pose update
func (b *Bridge) PushPose(ev PoseEvent) { b.poses <- ev }

// PushFeedState delivers a feed connection-state transition
func (b *Bridge) PushFeedState(ev FeedStateEvent) { b.states <- ev }

// Lines is the consumer side of the output line stream
func (b *Bridge) Lines() <-chan LineEvent { return b.lines }

// Exits is the consumer side of the terminal notification stream
func (b *Bridge) Exits() <-chan ExitEvent { return b.exits }

// Poses is the consumer side of the pose stream
func (b *Bridge) Poses() <-chan PoseEvent { return b.poses }

// FeedStates is the consumer side of the connection-state stream
func (b *Bridge) FeedStates() <-chan FeedStateEvent { return b.states }
