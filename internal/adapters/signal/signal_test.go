package signal

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type stubResolver map[domain.RoomID]domain.MeetingInfo

func (r stubResolver) Resolve(id domain.RoomID) (domain.MeetingInfo, bool) {
	info, ok := r[id]
	return info, ok
}

func newTestController(meetings stubResolver) *SignalWSController {
	coord := app.NewCoordinator(app.NewRegistry(), app.NewSessionRegistry(), meetings, core.PromoteNext)
	return NewSignalWSController(coord, 32768, 54*time.Second)
}

// attach binds a connection with a buffered send channel but no real
// websocket behind it: the write pump is never started, so every frame the
// coordinator emits stays readable from the channel.
func attach(ctl *SignalWSController, id domain.ConnID) *WsSignalConn {
	conn := &WsSignalConn{send: make(chan core.Frame, 32)}
	ctl.Coord.Sessions.Bind(id, &wsPeer{id: id, conn: conn}, nil)
	return conn
}

func drain(conn *WsSignalConn) []map[string]any {
	out := []map[string]any{}
	for {
		select {
		case fr := <-conn.send:
			var v map[string]any
			_ = json.Unmarshal(fr, &v)
			out = append(out, v)
		default:
			return out
		}
	}
}

func eventTypes(events []map[string]any) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		if t, ok := e["type"].(string); ok {
			out = append(out, t)
		}
	}
	return out
}

func TestControllerDefaultsPingPeriod(t *testing.T) {
	ctl := NewSignalWSController(nil, 32768, 0)
	assert.Equal(t, 54*time.Second, ctl.PingPeriod)
}

func TestTrySendBackpressure(t *testing.T) {
	c := &WsSignalConn{send: make(chan core.Frame, 1)}
	require.NoError(t, c.TrySend(core.Frame("a")))
	assert.ErrorIs(t, c.TrySend(core.Frame("b")), ErrBackpressure)
}

func TestTrySendAfterClose(t *testing.T) {
	c := &WsSignalConn{send: make(chan core.Frame, 1), closed: true}
	assert.Error(t, c.TrySend(core.Frame("a")))
}

func TestJoinDispatch(t *testing.T) {
	ctl := newTestController(stubResolver{
		"m1": {ID: "m1", Title: "Standup", AllowShare: true, AllowUnmute: true},
	})
	conn := attach(ctl, "h1")

	ctl.handleSignal("h1", conn, []byte(`{"type":"join","room":"m1","name":"Alice","host":true}`))

	events := drain(conn)
	types := eventTypes(events)
	assert.Contains(t, types, "room:state")
	require.Contains(t, types, "join:result")
	for _, e := range events {
		if e["type"] == "join:result" {
			assert.Equal(t, "admitted", e["status"])
			assert.Equal(t, "host", e["role"])
		}
	}
}

func TestJoinRejectionCarriesReason(t *testing.T) {
	ctl := newTestController(stubResolver{})
	conn := attach(ctl, "g1")

	ctl.handleSignal("g1", conn, []byte(`{"type":"join","room":"nope","name":"Bob"}`))

	events := drain(conn)
	require.Len(t, events, 1)
	assert.Equal(t, "join:result", events[0]["type"])
	assert.Equal(t, "rejected", events[0]["status"])
	assert.Equal(t, domain.ErrMeetingNotFound.Error(), events[0]["reason"])
}

func TestJoinTruncatesNameOnRuneBoundary(t *testing.T) {
	ctl := newTestController(stubResolver{
		"m1": {ID: "m1", AllowShare: true, AllowUnmute: true},
	})
	conn := attach(ctl, "h1")

	name := strings.Repeat("ü", domain.MaxNameLen+5)
	payload, err := json.Marshal(map[string]any{"type": "join", "room": "m1", "name": name, "host": true})
	require.NoError(t, err)
	ctl.handleSignal("h1", conn, payload)

	room, ok := ctl.Coord.Rooms.Get("m1")
	require.True(t, ok)
	participants := room.Snapshot().Participants
	require.Len(t, participants, 1)
	assert.True(t, utf8.ValidString(participants[0].Name))
	assert.Equal(t, domain.MaxNameLen, utf8.RuneCountInString(participants[0].Name))
}

func TestRelayDispatch(t *testing.T) {
	ctl := newTestController(stubResolver{})
	attach(ctl, "a")
	target := attach(ctl, "b")

	ctl.handleSignal("a", nil, []byte(`{"type":"signal","to":"b","data":{"sdp":"v=0"}}`))

	events := drain(target)
	require.Len(t, events, 1)
	assert.Equal(t, "webrtc:signal", events[0]["type"])
	assert.Equal(t, "a", events[0]["from"])
}

func TestPingPong(t *testing.T) {
	ctl := newTestController(stubResolver{})
	conn := attach(ctl, "c1")

	ctl.handleSignal("c1", conn, []byte(`{"type":"ping"}`))

	events := drain(conn)
	require.Len(t, events, 1)
	assert.Equal(t, "pong", events[0]["type"])
}

func TestUnknownTypeIgnored(t *testing.T) {
	ctl := newTestController(stubResolver{})
	conn := attach(ctl, "c1")

	ctl.handleSignal("c1", conn, []byte(`{"type":"warp"}`))
	assert.Empty(t, drain(conn))
}

func TestHostCommandDispatch(t *testing.T) {
	ctl := newTestController(stubResolver{
		"m1": {ID: "m1", AllowShare: true, AllowUnmute: true},
	})
	host := attach(ctl, "h1")
	guest := attach(ctl, "g1")

	ctl.handleSignal("h1", host, []byte(`{"type":"join","room":"m1","name":"Host","host":true}`))
	ctl.handleSignal("g1", guest, []byte(`{"type":"join","room":"m1","name":"Bob"}`))
	drain(host)
	drain(guest)

	ctl.handleSignal("h1", host, []byte(`{"type":"settings","room":"m1","locked":true}`))

	types := eventTypes(drain(guest))
	assert.Contains(t, types, "room:settings")
	room, ok := ctl.Coord.Rooms.Get("m1")
	require.True(t, ok)
	assert.True(t, room.Snapshot().Locked)
}
