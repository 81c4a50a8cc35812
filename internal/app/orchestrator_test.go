package app

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dkeye/Meet/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	frames []core.Frame
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	if c.full {
		return errors.New("backpressure")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() { c.closed = true }

func (c *fakeConn) events(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, f := range c.frames {
		var ev map[string]any
		require.NoError(t, json.Unmarshal(f, &ev))
		if ev["type"] == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeConn) lastOf(t *testing.T, typ string) map[string]any {
	t.Helper()
	evs := c.events(t, typ)
	require.NotEmpty(t, evs, "no %q event captured", typ)
	return evs[len(evs)-1]
}

func rosterIDs(t *testing.T, ev map[string]any) []string {
	t.Helper()
	users, ok := ev["users"].([]any)
	require.True(t, ok, "room-users without users array")
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.(map[string]any)["id"].(string))
	}
	return out
}

func newTestOrch() *Orchestrator {
	return &Orchestrator{
		Registry: NewRegistry(),
		Rooms:    core.NewRoomDirectory(),
		Policy:   DropPolicy{},
	}
}

func connect(o *Orchestrator, sid core.SessionID) *fakeConn {
	conn := &fakeConn{}
	o.Connect(sid, conn, func() {})
	return conn
}

func TestConnectSendsWelcome(t *testing.T) {
	o := newTestOrch()
	conn := connect(o, "c1")
	ev := conn.lastOf(t, "welcome")
	assert.Equal(t, "c1", ev["userId"])
}

func TestJoinNotifiesExistingAndReturnsRoster(t *testing.T) {
	o := newTestOrch()
	c1 := connect(o, "c1")
	c2 := connect(o, "c2")

	require.NoError(t, o.Join("c1", "lobby", "alice"))
	require.NoError(t, o.Join("c2", "lobby", "bob"))

	joined := c1.lastOf(t, "user-connected")
	assert.Equal(t, "c2", joined["userId"])
	assert.Equal(t, "bob", joined["username"])

	roster := c2.lastOf(t, "room-users")
	assert.Equal(t, "lobby", roster["roomId"])
	assert.ElementsMatch(t, []string{"c1", "c2"}, rosterIDs(t, roster))
	// the joiner never gets a user-connected for itself
	assert.Empty(t, c2.events(t, "user-connected"))
}

func TestJoinUnknownSession(t *testing.T) {
	o := newTestOrch()
	err := o.Join("ghost", "lobby", "alice")
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestLeaveBroadcastOrderAndRosterRefresh(t *testing.T) {
	o := newTestOrch()
	c1 := connect(o, "c1")
	connect(o, "c2")
	require.NoError(t, o.Join("c1", "lobby", "alice"))
	require.NoError(t, o.Join("c2", "lobby", "bob"))

	require.True(t, o.Leave("c2"))

	gone := c1.lastOf(t, "user-disconnected")
	assert.Equal(t, "c2", gone["userId"])

	roster := c1.lastOf(t, "room-users")
	assert.Equal(t, []string{"c1"}, rosterIDs(t, roster))

	// survivors' view matches the directory
	room, ok := o.Rooms.Get("lobby")
	require.True(t, ok)
	assert.Equal(t, 1, room.MemberCount())
}

func TestLeaveWhenUnjoinedIsNoop(t *testing.T) {
	o := newTestOrch()
	connect(o, "c1")
	assert.False(t, o.Leave("c1"))
}

func TestEmptyRoomCleanup(t *testing.T) {
	o := newTestOrch()
	connect(o, "c1")
	require.NoError(t, o.Join("c1", "lobby", "alice"))
	o.Leave("c1")

	_, ok := o.Rooms.Get("lobby")
	assert.False(t, ok)

	// a roster query on the dead room is a valid empty answer, not an error
	c2 := connect(o, "c2")
	o.RoomUsers("lobby", "c2")
	roster := c2.lastOf(t, "room-users")
	assert.Empty(t, rosterIDs(t, roster))
}

func TestDisconnectIsIdempotent(t *testing.T) {
	o := newTestOrch()
	c1 := connect(o, "c1")
	connect(o, "c2")
	require.NoError(t, o.Join("c1", "lobby", "alice"))
	require.NoError(t, o.Join("c2", "lobby", "bob"))

	o.Disconnect("c2")
	o.Disconnect("c2")

	assert.Len(t, c1.events(t, "user-disconnected"), 1)
	assert.Equal(t, 1, o.Registry.Count())
	room, ok := o.Rooms.Get("lobby")
	require.True(t, ok)
	assert.Equal(t, 1, room.MemberCount())
}

func TestRejoinMovesBetweenRooms(t *testing.T) {
	o := newTestOrch()
	c1 := connect(o, "c1")
	c2 := connect(o, "c2")
	connect(o, "c3")
	require.NoError(t, o.Join("c1", "x", "alice"))
	require.NoError(t, o.Join("c2", "x", "bob"))
	require.NoError(t, o.Join("c3", "y", "carol"))

	require.NoError(t, o.Join("c2", "y", "bob"))

	// x's survivors saw bob go
	gone := c1.lastOf(t, "user-disconnected")
	assert.Equal(t, "c2", gone["userId"])

	x, ok := o.Rooms.Get("x")
	require.True(t, ok)
	_, inX := x.Member("c2")
	assert.False(t, inX)

	y, ok := o.Rooms.Get("y")
	require.True(t, ok)
	_, inY := y.Member("c2")
	assert.True(t, inY)

	roster := c2.lastOf(t, "room-users")
	assert.Equal(t, "y", roster["roomId"])
	assert.ElementsMatch(t, []string{"c2", "c3"}, rosterIDs(t, roster))

	roomID, ok := o.Registry.RoomOf("c2")
	require.True(t, ok)
	assert.Equal(t, "y", string(roomID))
}

func TestRejoinSameRoomKeepsSingleMembership(t *testing.T) {
	o := newTestOrch()
	c1 := connect(o, "c1")
	require.NoError(t, o.Join("c1", "lobby", "alice"))
	require.NoError(t, o.Join("c1", "lobby", "alice2"))

	room, ok := o.Rooms.Get("lobby")
	require.True(t, ok)
	assert.Equal(t, 1, room.MemberCount())

	roster := c1.lastOf(t, "room-users")
	users := roster["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "alice2", users[0].(map[string]any)["username"])
}

func TestJoinRoomAtCapacity(t *testing.T) {
	o := newTestOrch()
	o.MaxRoomSize = 2
	connect(o, "c1")
	connect(o, "c2")
	c3 := connect(o, "c3")
	require.NoError(t, o.Join("c1", "lobby", "alice"))
	require.NoError(t, o.Join("c2", "lobby", "bob"))

	err := o.Join("c3", "lobby", "carol")
	assert.ErrorIs(t, err, ErrRoomFull)

	room, ok := o.Rooms.Get("lobby")
	require.True(t, ok)
	assert.Equal(t, 2, room.MemberCount())
	assert.Empty(t, c3.events(t, "room-users"))
}

func TestRoomUsersRepliesAndResyncsRoom(t *testing.T) {
	o := newTestOrch()
	c1 := connect(o, "c1")
	c2 := connect(o, "c2")
	require.NoError(t, o.Join("c1", "lobby", "alice"))
	require.NoError(t, o.Join("c2", "lobby", "bob"))

	before := len(c1.events(t, "room-users"))
	o.RoomUsers("lobby", "c2")

	reply := c2.lastOf(t, "room-users")
	assert.ElementsMatch(t, []string{"c1", "c2"}, rosterIDs(t, reply))

	// the rest of the room got the defensive resync too
	assert.Greater(t, len(c1.events(t, "room-users")), before)
	resync := c1.lastOf(t, "room-users")
	assert.ElementsMatch(t, []string{"c1", "c2"}, rosterIDs(t, resync))
}

func TestRosterConvergenceAcrossJoinsAndLeaves(t *testing.T) {
	o := newTestOrch()
	conns := map[core.SessionID]*fakeConn{}
	for _, sid := range []core.SessionID{"c1", "c2", "c3", "c4"} {
		conns[sid] = connect(o, sid)
	}
	require.NoError(t, o.Join("c1", "r", "u1"))
	require.NoError(t, o.Join("c2", "r", "u2"))
	require.NoError(t, o.Join("c3", "r", "u3"))
	require.NoError(t, o.Join("c4", "r", "u4"))
	o.Leave("c2")
	o.Disconnect("c3")

	room, ok := o.Rooms.Get("r")
	require.True(t, ok)
	authoritative := make([]string, 0, room.MemberCount())
	for _, m := range room.MembersSnapshot() {
		authoritative = append(authoritative, string(m.ID))
	}
	require.ElementsMatch(t, []string{"c1", "c4"}, authoritative)

	for _, sid := range []core.SessionID{"c1", "c4"} {
		roster := conns[sid].lastOf(t, "room-users")
		assert.ElementsMatch(t, authoritative, rosterIDs(t, roster), "sid %s drifted", sid)
	}
}

func TestStaleTransportTeardownKeepsReconnectedSession(t *testing.T) {
	o := newTestOrch()
	stale := connect(o, "c1")
	c2 := connect(o, "c2")
	require.NoError(t, o.Join("c1", "lobby", "alice"))
	require.NoError(t, o.Join("c2", "lobby", "bob"))

	// page reload: same client token, new transport
	fresh := &fakeConn{}
	o.Connect("c1", fresh, func() {})

	// the old connection's teardown arrives late and must change nothing
	assert.False(t, o.DisconnectIfCurrent("c1", stale))
	assert.Equal(t, 2, o.Registry.Count())
	room, ok := o.Rooms.Get("lobby")
	require.True(t, ok)
	assert.Equal(t, 2, room.MemberCount())
	assert.Empty(t, c2.events(t, "user-disconnected"))

	// the live transport's teardown still works
	assert.True(t, o.DisconnectIfCurrent("c1", fresh))
	assert.Equal(t, 1, o.Registry.Count())
	gone := c2.lastOf(t, "user-disconnected")
	assert.Equal(t, "c1", gone["userId"])
}

func TestKickPolicyCancelsSlowMember(t *testing.T) {
	o := newTestOrch()
	o.Policy = KickPolicy{}
	connect(o, "c1")
	canceled := false
	slow := &fakeConn{full: true}
	o.Connect("c2", slow, func() { canceled = true })
	require.NoError(t, o.Join("c1", "lobby", "alice"))
	require.NoError(t, o.Join("c2", "lobby", "bob"))

	// any broadcast toward the saturated member trips the policy
	require.NoError(t, o.Join("c1", "lobby", "alice"))
	assert.True(t, canceled)
}
