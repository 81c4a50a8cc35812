package app

import (
	"testing"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	conn := &fakeConn{}
	user := r.Register("c1", conn, func() {})
	require.NotNil(t, user)
	assert.Equal(t, domain.UserID("c1"), user.ID)
	assert.Equal(t, "guest", user.Username)

	got, ok := r.User("c1")
	require.True(t, ok)
	assert.Same(t, user, got)

	signal, ok := r.SignalOf("c1")
	require.True(t, ok)
	assert.Same(t, conn, signal)

	_, ok = r.User("nope")
	assert.False(t, ok)
}

func TestRegistryReRegisterKeepsIdentity(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", &fakeConn{}, func() {})
	require.NoError(t, r.SetUsername("c1", "alice"))

	fresh := &fakeConn{}
	user := r.Register("c1", fresh, func() {})
	assert.Equal(t, "alice", user.Username)

	signal, ok := r.SignalOf("c1")
	require.True(t, ok)
	assert.Same(t, fresh, signal)
	assert.Equal(t, 1, r.Count())
}

func TestRegistrySetUsernameValidation(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", &fakeConn{}, func() {})

	assert.ErrorIs(t, r.SetUsername("c1", ""), domain.ErrUsernameEmpty)
	assert.ErrorIs(t, r.SetUsername("ghost", "alice"), ErrUnknownSession)
	assert.NoError(t, r.SetUsername("c1", "alice"))
}

func TestRegistryRoomTracking(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", &fakeConn{}, func() {})

	_, ok := r.RoomOf("c1")
	assert.False(t, ok)

	require.True(t, r.UpdateRoom("c1", "lobby"))
	roomID, ok := r.RoomOf("c1")
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("lobby"), roomID)

	r.ClearRoom("c1")
	_, ok = r.RoomOf("c1")
	assert.False(t, ok)

	assert.False(t, r.UpdateRoom("ghost", "lobby"))
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", &fakeConn{}, func() {})
	r.Remove("c1")
	r.Remove("c1")
	assert.Equal(t, 0, r.Count())
}

func TestRegistryCancel(t *testing.T) {
	r := NewRegistry()
	canceled := false
	r.Register("c1", &fakeConn{}, func() { canceled = true })

	assert.True(t, r.Cancel("c1"))
	assert.True(t, canceled)
	assert.False(t, r.Cancel("ghost"))
}

func TestRegistryTouchOnlyReportsRevivals(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", &fakeConn{}, func() {})

	_, revived := r.Touch("c1")
	assert.False(t, revived)

	_, revived = r.Touch("ghost")
	assert.False(t, revived)
}
