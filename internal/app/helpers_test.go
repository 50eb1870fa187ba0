package app

import (
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"planningpoker/internal/config"
	"planningpoker/internal/domain"
	"planningpoker/internal/metrics"
)

const (
	testGrace   = 30 * time.Second
	waitFor     = time.Second
	pollEvery   = 5 * time.Millisecond
	quietPeriod = 50 * time.Millisecond
)

// received is a frame as a client decodes it off the wire
type received struct {
	Type      domain.EventType `json:"type"`
	SessionID string           `json:"sessionId"`
	Payload   json.RawMessage  `json:"payload"`
}

type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []received
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) Send(frame []byte) error {
	var r received
	if err := json.Unmarshal(frame, &r); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, r)
	return nil
}

func (c *fakeConn) GetConnectionID() string {
	return c.id
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) eventsOfType(eventType domain.EventType) []received {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []received
	for _, e := range c.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (c *fakeConn) stateCount() int {
	return len(c.eventsOfType(domain.EventSessionState))
}

// waitStates blocks until the connection received n snapshots and returns the last one
func (c *fakeConn) waitStates(t *testing.T, n int) domain.Snapshot {
	t.Helper()
	require.Eventually(t, func() bool { return c.stateCount() >= n }, waitFor, pollEvery)
	states := c.eventsOfType(domain.EventSessionState)
	require.Len(t, states, n, "unexpected extra snapshot")

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(states[n-1].Payload, &snap))
	return snap
}

type testEnv struct {
	hub   *Hub
	clock *clockwork.FakeClock
	reg   *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClock()
	reg := prometheus.NewRegistry()
	hub := NewHub(config.SessionConfig{ReconnectGracePeriod: testGrace, IDLength: 8}, clock, metrics.New(true, reg), zerolog.Nop())
	t.Cleanup(hub.Close)
	return &testEnv{hub: hub, clock: clock, reg: reg}
}

// metricValue reads an unlabelled counter or gauge, or the sum over all label sets
func (e *testEnv) metricValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := e.reg.Gather()
	require.NoError(t, err)

	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
	}
	return total
}

// commandCount reads poker_commands_total for one command and outcome
func (e *testEnv) commandCount(t *testing.T, command, outcome string) float64 {
	t.Helper()
	families, err := e.reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "poker_commands_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["command"] == command && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

// newRoomWith creates a session owned by alice and joins the given participants in order
func (e *testEnv) newRoomWith(t *testing.T, others ...string) (*Room, map[string]*fakeConn) {
	t.Helper()
	conns := map[string]*fakeConn{"alice": newFakeConn("conn-alice")}

	room, err := e.hub.CreateSession("alice", "Alice", conns["alice"])
	require.NoError(t, err)

	conns["alice"].waitStates(t, 1)
	for i, id := range others {
		e.clock.Advance(time.Millisecond)
		conns[id] = newFakeConn("conn-" + id)
		require.NoError(t, room.Join(id, id, conns[id]))
		// Each joiner only sees snapshots from its own join onwards.
		conns["alice"].waitStates(t, i+2)
	}
	return room, conns
}
