package mqtt

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/envclock/internal/logic"
)

var testTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func testState() logic.State {
	return logic.State{
		Menu:        logic.MenuSetHours,
		Contrast:    20,
		Time:        logic.ClockTime{Hours: 7, Minutes: 5, Seconds: 9},
		Temperature: 21.5,
		Humidity:    40,
	}
}

func TestNewTopics(t *testing.T) {
	assert.Equal(t, Topics{State: "home/hall/state", System: "home/hall/system"}, NewTopics("home/hall"))
	assert.Equal(t, Topics{State: "home/envclock/state", System: "home/envclock/system"}, NewTopics(""))
}

func TestFormatPayloadExactJSON(t *testing.T) {
	payload, err := FormatPayload(StateEvent{Timestamp: testTime, Session: "abc", State: testState()})
	require.NoError(t, err)

	want := `{"clock":{"timestamp":"2026-03-14T09:26:53Z","session":"abc","menu":"set_hours",` +
		`"time":"07:05:09","contrast":20,"temperature":21.5,"humidity":40}}`
	assert.Equal(t, want, string(payload))
}

func TestFormatPayloadFailedSensorIsNull(t *testing.T) {
	s := testState()
	s.Temperature = float32(math.NaN())
	s.Humidity = float32(math.Inf(1))

	payload, err := FormatPayload(StateEvent{Timestamp: testTime, State: s})
	require.NoError(t, err)

	var parsed map[string]map[string]any
	require.NoError(t, json.Unmarshal(payload, &parsed))
	clock := parsed["clock"]
	assert.Contains(t, clock, "temperature")
	assert.Nil(t, clock["temperature"])
	assert.Nil(t, clock["humidity"])
	assert.NotContains(t, clock, "session", "empty session is omitted")
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	payload, err := FormatPayload(StateEvent{Timestamp: testTime.In(loc), State: testState()})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"timestamp":"2026-03-14T09:26:53Z"`)
}

func TestFormatSystemPayload(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: testTime,
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"system":{"timestamp":"2026-03-14T09:26:53Z","event":"SHUTDOWN","reason":"SIGTERM"}}`, string(payload))
}

func TestFormatSystemPayloadOmitsReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: testTime, Event: "RECONNECTED"})
	require.NoError(t, err)
	assert.Equal(t, `{"system":{"timestamp":"2026-03-14T09:26:53Z","event":"RECONNECTED"}}`, string(payload))
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	require.NoError(t, err)
	assert.Equal(t, raw, payload)
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	require.NoError(t, f.PublishState(StateEvent{Timestamp: testTime, State: testState()}))
	require.NoError(t, f.PublishSystem(SystemEvent{Timestamp: testTime, Event: "STARTUP", Retained: true}))
	require.NoError(t, f.PublishSystem(SystemEvent{Timestamp: testTime, Event: "HEARTBEAT"}))

	require.Len(t, f.States, 1)
	assert.Equal(t, 20, f.States[0].State.Contrast)
	require.Len(t, f.Payloads, 1)
	assert.Contains(t, string(f.Payloads[0]), `"menu":"set_hours"`)
	assert.Equal(t, []string{"STARTUP", "HEARTBEAT"}, f.SystemEventNames())
	assert.True(t, f.SystemEvents[0].Retained)
	assert.Len(t, f.SystemPayloads, 2)
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	f.PublishSystemError = errors.New("broker down")

	assert.Error(t, f.PublishState(StateEvent{State: testState()}))
	assert.Error(t, f.PublishSystem(SystemEvent{Event: "STARTUP"}))
	assert.Empty(t, f.States)
	assert.Empty(t, f.SystemEvents)
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Connected = true
	require.NoError(t, f.PublishState(StateEvent{State: testState()}))
	require.NoError(t, f.Close())
	assert.True(t, f.Closed)
	assert.True(t, f.IsConnected())

	f.Reset()
	assert.Empty(t, f.States)
	assert.Empty(t, f.Payloads)
	assert.False(t, f.Closed)
	assert.False(t, f.IsConnected())
}

// fakeToken is a completed paho token.
type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }

type sent struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeConn records publishes and can be toggled offline.
type fakeConn struct {
	mu      sync.Mutex
	open    bool
	sent    []sent
	failAt  int // publish number that fails, 1-based; 0 never
	timeout bool

	// checked runs once after the next IsConnectionOpen call, outside mu.
	checked func()
}

func (c *fakeConn) IsConnectionOpen() bool {
	c.mu.Lock()
	open := c.open
	hook := c.checked
	c.checked = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return open
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeConn) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timeout {
		return &fakeToken{timeout: true}
	}
	if c.failAt > 0 && len(c.sent)+1 == c.failAt {
		c.failAt = 0
		return &fakeToken{err: errors.New("not connected")}
	}
	c.sent = append(c.sent, sent{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return &fakeToken{}
}

func newTestPublisher(c *fakeConn) *RealPublisher {
	p := newPublisher(NewTopics("test"), 8, func() time.Time { return testTime })
	p.conn = c
	return p
}

// A connect that lands while a publish is deciding to buffer must still
// replay that message.
func TestRealPublisherConnectDuringBufferedPublish(t *testing.T) {
	c := &fakeConn{}
	p := newTestPublisher(c)

	replayed := make(chan struct{})
	c.checked = func() {
		c.mu.Lock()
		c.open = true
		c.mu.Unlock()
		go func() {
			p.onConnect()
			close(replayed)
		}()
	}

	require.NoError(t, p.PublishState(StateEvent{State: testState()}))

	select {
	case <-replayed:
	case <-time.After(time.Second):
		t.Fatal("onConnect did not finish")
	}
	assert.Equal(t, 1, c.sentCount())
	assert.Equal(t, 0, p.Buffered())
}

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	c := &fakeConn{open: true}
	p := newTestPublisher(c)

	require.NoError(t, p.PublishState(StateEvent{Timestamp: testTime, State: testState()}))
	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: testTime, Event: "STARTUP", Retained: true}))

	require.Len(t, c.sent, 2)
	assert.Equal(t, "test/state", c.sent[0].topic)
	assert.Equal(t, byte(0), c.sent[0].qos)
	assert.True(t, c.sent[0].retained)
	assert.Equal(t, "test/system", c.sent[1].topic)
	assert.Equal(t, byte(1), c.sent[1].qos)
	assert.True(t, p.IsConnected())
	assert.Zero(t, p.Buffered())
}

func TestRealPublisherBuffersWhileDisconnected(t *testing.T) {
	c := &fakeConn{}
	p := newTestPublisher(c)

	require.NoError(t, p.PublishState(StateEvent{State: testState()}))
	require.NoError(t, p.PublishSystem(SystemEvent{Event: "HEARTBEAT"}))
	assert.Empty(t, c.sent)
	assert.Equal(t, 2, p.Buffered())
	assert.False(t, p.IsConnected())

	c.open = true
	p.onConnect()

	require.Len(t, c.sent, 2, "first connect replays without RECONNECTED")
	assert.Equal(t, "test/state", c.sent[0].topic)
	assert.Equal(t, "test/system", c.sent[1].topic)
	assert.Zero(t, p.Buffered())
}

func TestRealPublisherAnnouncesReconnect(t *testing.T) {
	c := &fakeConn{open: true}
	p := newTestPublisher(c)
	p.onConnect()
	assert.Empty(t, c.sent)

	c.open = false
	require.NoError(t, p.PublishState(StateEvent{State: testState()}))
	c.open = true
	p.onConnect()

	require.Len(t, c.sent, 2)
	assert.Equal(t, `{"system":{"timestamp":"2026-03-14T09:26:53Z","event":"RECONNECTED"}}`, string(c.sent[0].payload))
	assert.Equal(t, "test/state", c.sent[1].topic)
}

func TestRealPublisherReplayFailureRequeues(t *testing.T) {
	c := &fakeConn{}
	p := newTestPublisher(c)
	for i := 0; i < 3; i++ {
		require.NoError(t, p.PublishSystem(SystemEvent{Event: "HEARTBEAT"}))
	}

	c.open = true
	c.failAt = 2
	p.onConnect()

	assert.Len(t, c.sent, 1)
	assert.Equal(t, 2, p.Buffered())
}

func TestRealPublisherErrors(t *testing.T) {
	c := &fakeConn{open: true, failAt: 1}
	p := newTestPublisher(c)
	assert.ErrorContains(t, p.PublishState(StateEvent{State: testState()}), "not connected")

	c.timeout = true
	assert.ErrorContains(t, p.PublishSystem(SystemEvent{Event: "HEARTBEAT"}), "timeout")
}
