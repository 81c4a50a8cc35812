package core

import (
	"errors"
	"testing"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureConn struct {
	frames []Frame
	full   bool
}

func (c *captureConn) TrySend(f Frame) error {
	if c.full {
		return errors.New("backpressure")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *captureConn) Close() {}

func session(name string) (MemberSession, *captureConn) {
	conn := &captureConn{}
	user := &domain.User{ID: domain.UserID(name), Username: name}
	return NewMemberSession(domain.NewMember(user), conn), conn
}

func TestRoomAddRemoveMember(t *testing.T) {
	room := NewRoomService("lobby")
	require.Equal(t, domain.RoomID("lobby"), room.ID())
	require.Equal(t, 0, room.MemberCount())

	ms, _ := session("alice")
	room.AddMember("c1", ms)
	require.Equal(t, 1, room.MemberCount())

	got, ok := room.Member("c1")
	require.True(t, ok)
	assert.Equal(t, "alice", got.Meta().User.Username)

	room.RemoveMember("c1")
	assert.Equal(t, 0, room.MemberCount())
	_, ok = room.Member("c1")
	assert.False(t, ok)
}

func TestRoomRemoveUnknownMemberIsNoop(t *testing.T) {
	room := NewRoomService("lobby")
	ms, _ := session("alice")
	room.AddMember("c1", ms)

	room.RemoveMember("nope")
	assert.Equal(t, 1, room.MemberCount())
}

func TestRoomReAddKeepsSinglePosition(t *testing.T) {
	room := NewRoomService("lobby")
	a, _ := session("alice")
	b, _ := session("bob")
	room.AddMember("c1", a)
	room.AddMember("c2", b)
	room.AddMember("c1", a)

	snap := room.MembersSnapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, domain.UserID("alice"), snap[0].ID)
	assert.Equal(t, domain.UserID("bob"), snap[1].ID)
}

func TestRoomSnapshotKeepsInsertionOrder(t *testing.T) {
	room := NewRoomService("lobby")
	for _, name := range []string{"a", "b", "c"} {
		ms, _ := session(name)
		room.AddMember(SessionID(name), ms)
	}
	room.RemoveMember("b")

	snap := room.MembersSnapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, domain.UserID("a"), snap[0].ID)
	assert.Equal(t, domain.UserID("c"), snap[1].ID)
	assert.True(t, snap[0].Connected)
}

func TestRoomBroadcastSkipsSender(t *testing.T) {
	room := NewRoomService("lobby")
	a, aConn := session("alice")
	b, bConn := session("bob")
	room.AddMember("c1", a)
	room.AddMember("c2", b)

	res := room.Broadcast("c1", Frame(`hello`))
	assert.Equal(t, 1, res.SentTo)
	assert.Empty(t, res.Dropped)
	assert.Empty(t, aConn.frames)
	require.Len(t, bConn.frames, 1)
	assert.Equal(t, Frame(`hello`), bConn.frames[0])
}

func TestRoomBroadcastReportsDropped(t *testing.T) {
	room := NewRoomService("lobby")
	a, _ := session("alice")
	b, bConn := session("bob")
	bConn.full = true
	room.AddMember("c1", a)
	room.AddMember("c2", b)

	res := room.Broadcast("c1", Frame(`hello`))
	assert.Equal(t, 0, res.SentTo)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, SessionID("c2"), res.Dropped[0])
}
