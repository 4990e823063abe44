package ndt

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mockToken implements mqtt.Token for testing. A pending token never
// completes, like a broker that accepts the TCP connection but stalls the
// handshake.
type mockToken struct {
	err     error
	pending bool
}

func newMockToken(err error) *mockToken { return &mockToken{err: err} }

func (t *mockToken) Wait() bool                     { return !t.pending }
func (t *mockToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *mockToken) Error() error                   { return t.err }
func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.pending {
		close(ch)
	}
	return ch
}

// mockFeedClient implements mqtt.Client for subscriber and publisher tests.
// It tracks how many subscriptions are live at once so tests can assert the
// one-subscription-per-topic invariant across restarts.
type mockFeedClient struct {
	mu             sync.RWMutex
	connected      bool
	connectError   error
	connectDelay   time.Duration
	connectHang    bool
	subscribeError error
	publishError   error
	handlers       map[string]mqtt.MessageHandler
	published      []mockPublished

	liveSubs    int
	maxLiveSubs int
}

type mockPublished struct {
	Topic   string
	Payload []byte
	Retain  bool
}

func newMockFeedClient() *mockFeedClient {
	return &mockFeedClient{
		handlers: make(map[string]mqtt.MessageHandler),
	}
}

func (c *mockFeedClient) setConnectError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectError = err
}

// setConnectDelay makes Connect take the given wall time before completing
func (c *mockFeedClient) setConnectDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectDelay = d
}

// setConnectHang makes Connect return a token that never completes
func (c *mockFeedClient) setConnectHang(hang bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectHang = hang
}

func (c *mockFeedClient) setSubscribeError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribeError = err
}

// simulateMessage delivers a payload to the registered handler for topic
func (c *mockFeedClient) simulateMessage(topic string, payload []byte) {
	c.mu.RLock()
	handler := c.handlers[topic]
	c.mu.RUnlock()
	if handler != nil {
		handler(c, &mockMessage{topic: topic, payload: payload})
	}
}

func (c *mockFeedClient) maxConcurrentSubs() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxLiveSubs
}

func (c *mockFeedClient) liveSubscriptions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.liveSubs
}

func (c *mockFeedClient) publishedMessages() []mockPublished {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]mockPublished, len(c.published))
	copy(out, c.published)
	return out
}

func (c *mockFeedClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *mockFeedClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *mockFeedClient) Connect() mqtt.Token {
	c.mu.Lock()
	delay := c.connectDelay
	c.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectError != nil {
		return newMockToken(c.connectError)
	}
	// A hanging connect still opens the link; the caller is expected to
	// tear it down when the probe gives up.
	c.connected = true
	if c.connectHang {
		return &mockToken{pending: true}
	}
	return newMockToken(nil)
}

func (c *mockFeedClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *mockFeedClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return newMockToken(mqtt.ErrNotConnected)
	}
	if c.publishError != nil {
		return newMockToken(c.publishError)
	}

	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	}
	c.published = append(c.published, mockPublished{Topic: topic, Payload: data, Retain: retained})
	return newMockToken(nil)
}

func (c *mockFeedClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return newMockToken(mqtt.ErrNotConnected)
	}
	if c.subscribeError != nil {
		return newMockToken(c.subscribeError)
	}
	c.handlers[topic] = callback
	c.liveSubs++
	if c.liveSubs > c.maxLiveSubs {
		c.maxLiveSubs = c.liveSubs
	}
	return newMockToken(nil)
}

func (c *mockFeedClient) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	for topic := range filters {
		if token := c.Subscribe(topic, filters[topic], callback); token.Error() != nil {
			return token
		}
	}
	return newMockToken(nil)
}

func (c *mockFeedClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		if _, ok := c.handlers[topic]; ok {
			delete(c.handlers, topic)
			c.liveSubs--
		}
	}
	return newMockToken(nil)
}

func (c *mockFeedClient) AddRoute(topic string, callback mqtt.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = callback
}

func (c *mockFeedClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

// mockMessage implements mqtt.Message for testing
type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 0 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}
