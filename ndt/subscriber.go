package ndt

import (
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	// feedPollInterval bounds how often the receive loop wakes to check the
	// connection and the stop flag (~30 Hz).
	feedPollInterval = 33 * time.Millisecond

	// probeTimeout is the liveness-probe budget for the initial broker
	// connect. The probe fails fast instead of queueing a background retry.
	probeTimeout = 5 * time.Second

	subscribeTimeout = 5 * time.Second
)

// Subscriber owns one pose feed subscription over MQTT. Decoded pose events
// and connection-state transitions are delivered through the bridge; the
// receive loop runs on its own goroutine and observes Stop within one poll
// interval.
type Subscriber struct {
	topic  string
	bridge *Bridge

	// newClient builds the MQTT client on Start. Tests swap this for a mock.
	newClient func() mqtt.Client

	// lifecycle serializes Start, Stop, and Restart. The broker probe can
	// take seconds, and a Stop racing an in-flight Start must not leave a
	// live subscription behind.
	lifecycle sync.Mutex

	mu     sync.Mutex
	client mqtt.Client
	state  FeedState
	stop   chan struct{}
	done   chan struct{}
}

// NewSubscriber creates a subscriber for the given broker URI and topic
func NewSubscriber(broker, clientID, topic string, bridge *Bridge) *Subscriber {
	return &Subscriber{
		topic:  topic,
		bridge: bridge,
		state:  FeedIdle,
		newClient: func() mqtt.Client {
			opts := mqtt.NewClientOptions()
			opts.AddBroker(broker)
			opts.SetClientID(clientID)
			opts.SetConnectTimeout(probeTimeout)
			opts.SetKeepAlive(60 * time.Second)
			opts.SetPingTimeout(10 * time.Second)
			opts.SetAutoReconnect(false)
			return mqtt.NewClient(opts)
		},
	}
}

// newSubscriberWithClient wires in a pre-built client, used for testing
// with mock clients.
func newSubscriberWithClient(client mqtt.Client, topic string, bridge *Bridge) *Subscriber {
	return &Subscriber{
		topic:     topic,
		bridge:    bridge,
		state:     FeedIdle,
		newClient: func() mqtt.Client { return client },
	}
}

// Client returns the underlying MQTT client, nil unless connected. The
// publisher reuses it so the service holds one broker connection.
func (s *Subscriber) Client() mqtt.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// State returns the current feed lifecycle state
func (s *Subscriber) State() FeedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start probes the broker, registers the pose subscription, and launches the
// receive loop. It fails fast with ErrMiddlewareUnavailable when the broker
// is unreachable; there is no automatic retry. The Connected transition is
// emitted exactly once per successful Start.
func (s *Subscriber) Start() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.startLocked()
}

// startLocked implements Start; the caller holds the lifecycle mutex.
func (s *Subscriber) startLocked() error {
	s.mu.Lock()
	if s.state == FeedConnecting || s.state == FeedConnected {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.state = FeedConnecting
	s.mu.Unlock()
	s.bridge.PushFeedState(FeedStateEvent{State: FeedConnecting})

	client := s.newClient()

	// Liveness probe: a bounded synchronous connect. A broker that cannot
	// be reached now is reported as unavailable rather than retried.
	token := client.Connect()
	if !token.WaitTimeout(probeTimeout) {
		client.Disconnect(250)
		return s.failStart(fmt.Errorf("%w: connect timed out after %v", ErrMiddlewareUnavailable, probeTimeout))
	}
	if token.Error() != nil {
		return s.failStart(fmt.Errorf("%w: %v", ErrMiddlewareUnavailable, token.Error()))
	}

	subToken := client.Subscribe(s.topic, 0, s.onMessage)
	if !subToken.WaitTimeout(subscribeTimeout) || subToken.Error() != nil {
		client.Disconnect(250)
		err := fmt.Errorf("subscribe %s: %w", s.topic, subToken.Error())
		return s.failStart(err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	s.mu.Lock()
	s.client = client
	s.stop = stop
	s.done = done
	s.state = FeedConnected
	s.mu.Unlock()

	log.Printf("[subscriber] subscribed to %s", s.topic)
	s.bridge.PushFeedState(FeedStateEvent{State: FeedConnected})

	go s.receiveLoop(client, stop, done)
	return nil
}

func (s *Subscriber) failStart(err error) error {
	s.mu.Lock()
	s.state = FeedError
	s.mu.Unlock()
	log.Printf("[subscriber] start failed: %v", err)
	s.bridge.PushFeedState(FeedStateEvent{State: FeedError, Err: err})
	return err
}

// onMessage decodes one inbound payload. Decode failures are non-fatal: the
// subscription stays up and the consumer sees an error-carrying state event
// without a state change.
func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	pose, err := DecodePose(msg.Payload())
	if err != nil {
		log.Printf("[subscriber] dropping undecodable pose on %s: %v", msg.Topic(), err)
		s.bridge.PushFeedState(FeedStateEvent{State: s.State(), Err: err})
		return
	}
	s.bridge.PushPose(pose)
}

// receiveLoop watches the connection at a bounded rate. Message delivery
// itself happens on the MQTT client's callback; this loop exists to observe
// stop requests and broker loss within one poll interval.
func (s *Subscriber) receiveLoop(client mqtt.Client, stop <-chan struct{}, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(feedPollInterval)
	defer ticker.Stop()

	reported := false
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if reported || client.IsConnected() {
				continue
			}
			// A disconnect observed during Stop teardown is not an error.
			s.mu.Lock()
			if s.state != FeedConnected {
				s.mu.Unlock()
				continue
			}
			s.state = FeedError
			s.mu.Unlock()
			reported = true
			err := fmt.Errorf("%w: connection lost", ErrMiddlewareUnavailable)
			log.Printf("[subscriber] %v", err)
			s.bridge.PushFeedState(FeedStateEvent{State: FeedError, Err: err})
		}
	}
}

// Stop unsubscribes best-effort, tears down the connection, and joins the
// receive loop. Idempotent; safe to call from any state. Stop waits for an
// in-flight Start to settle before tearing down.
func (s *Subscriber) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLocked()
}

// stopLocked implements Stop; the caller holds the lifecycle mutex.
func (s *Subscriber) stopLocked() {
	s.mu.Lock()
	if s.state == FeedStopped || s.state == FeedIdle {
		s.mu.Unlock()
		return
	}
	client := s.client
	stop := s.stop
	done := s.done
	s.client = nil
	s.stop = nil
	s.done = nil
	s.state = FeedStopped
	s.mu.Unlock()

	if client != nil {
		if token := client.Unsubscribe(s.topic); token != nil {
			// Best effort; a broker that is already gone cannot unsubscribe.
			_ = token.WaitTimeout(time.Second)
		}
		client.Disconnect(250)
	}
	if stop != nil {
		close(stop)
	}
	if done != nil {
		<-done
	}

	log.Printf("[subscriber] stopped (%s)", s.topic)
	s.bridge.PushFeedState(FeedStateEvent{State: FeedStopped})
}

// Restart tears down the current subscription, waits for the receive loop
// to exit, and starts fresh. The join in Stop guarantees two subscriptions
// are never live on the same topic at once.
func (s *Subscriber) Restart() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.stopLocked()
	s.mu.Lock()
	s.state = FeedIdle
	s.mu.Unlock()
	return s.startLocked()
}
