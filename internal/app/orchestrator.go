package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrRoomFull       = errors.New("room at capacity")
)

// Orchestrator owns all membership mutations. Every membership-changing
// operation runs under one mutex, so join/leave/disconnect/roster reads are
// atomic with respect to each other across the registry and the directory.
// Broadcasts happen inside the same critical section; the per-connection send
// queues make them fire-and-forget, nothing here waits on a peer.
type Orchestrator struct {
	mu       sync.Mutex
	Registry *Registry
	Rooms    core.RoomDirectory
	Policy   Policy

	// MaxRoomSize caps room membership; zero means unlimited.
	MaxRoomSize int

	// Now is swappable for tests; nil means time.Now.
	Now func() time.Time
}

func (o *Orchestrator) nowTime() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Connect registers the session and tells the client its own id. Clients
// filter rosters and relayed events by id, so they must learn it up front.
func (o *Orchestrator) Connect(sid core.SessionID, signal core.SignalConnection, cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	user := o.Registry.Register(sid, signal, cancel)
	o.trySend(signal, sid, encode(welcomeEvent{Type: "welcome", UserID: user.ID}))
}

// Join puts the connection into roomID, running the full leave procedure
// first if it is already in a room (including the same one). Existing members
// get user-connected, the joiner gets the full roster including itself.
func (o *Orchestrator) Join(sid core.SessionID, roomID domain.RoomID, username string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	signal, ok := o.Registry.SignalOf(sid)
	if !ok {
		return ErrUnknownSession
	}
	if _, joined := o.Registry.RoomOf(sid); joined {
		o.leaveLocked(sid)
	}
	if o.MaxRoomSize > 0 {
		if room, ok := o.Rooms.Get(roomID); ok && room.MemberCount() >= o.MaxRoomSize {
			return ErrRoomFull
		}
	}
	if err := o.Registry.SetUsername(sid, username); err != nil {
		return err
	}

	user, _ := o.Registry.User(sid)
	room := o.Rooms.GetOrCreate(roomID)
	room.AddMember(sid, core.NewMemberSession(domain.NewMember(user), signal))
	o.Registry.UpdateRoom(sid, roomID)

	res := room.Broadcast(sid, encode(userConnectedEvent{Type: "user-connected", UserID: user.ID, Username: user.Username}))
	o.applyPolicy(roomID, res)
	o.trySend(signal, sid, encode(roomUsersEvent{Type: "room-users", RoomID: roomID, Users: room.MembersSnapshot()}))

	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(roomID)).Str("username", username).Msg("joined room")
	return nil
}

// Leave removes the connection from its current room; no-op when unjoined.
func (o *Orchestrator) Leave(sid core.SessionID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.leaveLocked(sid)
}

// Disconnect is leave plus registry removal. The transport may fire multiple
// close signals; the second call finds nothing and does nothing.
func (o *Orchestrator) Disconnect(sid core.SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.leaveLocked(sid)
	o.Registry.Remove(sid)
}

// DisconnectIfCurrent tears the session down only while signal is still its
// registered transport. A reconnect with the same client token swaps the
// transport; the stale connection's teardown must not take the live session
// down with it. Reports whether the teardown happened.
func (o *Orchestrator) DisconnectIfCurrent(sid core.SessionID, signal core.SignalConnection) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	current, ok := o.Registry.SignalOf(sid)
	if !ok || current != signal {
		log.Info().Str("module", "app.orch").Str("sid", string(sid)).Msg("stale transport teardown, session kept")
		return false
	}
	o.leaveLocked(sid)
	o.Registry.Remove(sid)
	return true
}

// leaveLocked implements the contract ordering: broadcast user-disconnected
// to the survivors first, then remove the member, then send them the
// refreshed roster to guard against any missed individual events.
func (o *Orchestrator) leaveLocked(sid core.SessionID) bool {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return false
	}
	o.Registry.ClearRoom(sid)
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return false
	}

	res := room.Broadcast(sid, encode(userDisconnectedEvent{Type: "user-disconnected", UserID: domain.UserID(sid)}))
	o.applyPolicy(roomID, res)
	room.RemoveMember(sid)

	if room.MemberCount() == 0 {
		o.Rooms.Remove(roomID)
		log.Info().Str("module", "app.orch").Str("room", string(roomID)).Msg("removed empty room")
	} else {
		res = room.Broadcast(sid, encode(roomUsersEvent{Type: "room-users", RoomID: roomID, Users: room.MembersSnapshot()}))
		o.applyPolicy(roomID, res)
	}
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("left room")
	return true
}

// RoomUsers answers a roster query and rebroadcasts the roster to the rest
// of the room so any drifted client view resynchronizes. An absent room is a
// valid "no one here" state, not an error.
func (o *Orchestrator) RoomUsers(roomID domain.RoomID, sid core.SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	users := []core.MemberDTO{}
	room, exists := o.Rooms.Get(roomID)
	if exists {
		users = room.MembersSnapshot()
	}
	frame := encode(roomUsersEvent{Type: "room-users", RoomID: roomID, Users: users})
	if signal, ok := o.Registry.SignalOf(sid); ok {
		o.trySend(signal, sid, frame)
	}
	if exists {
		o.applyPolicy(roomID, room.Broadcast(sid, frame))
	}
}

// Heartbeat refreshes the liveness clock; a revived suspect connection is
// flipped back to connected in its room's roster.
func (o *Orchestrator) Heartbeat(sid core.SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if change, ok := o.Registry.Touch(sid); ok {
		o.applyLivenessLocked(change)
	}
}

// MarkStale runs one liveness sweep and surfaces transitions to the rooms.
func (o *Orchestrator) MarkStale(interval time.Duration, suspectAfter, disconnectAfter int) []LivenessChange {
	o.mu.Lock()
	defer o.mu.Unlock()
	changes := o.Registry.SweepLiveness(interval, suspectAfter, disconnectAfter)
	for _, ch := range changes {
		log.Warn().Str("module", "app.liveness").Str("sid", string(ch.SID)).Str("from", ch.From.String()).Str("to", ch.To.String()).Msg("liveness transition")
		o.applyLivenessLocked(ch)
	}
	return changes
}

func (o *Orchestrator) applyLivenessLocked(ch LivenessChange) {
	roomID, ok := o.Registry.RoomOf(ch.SID)
	if !ok {
		return
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return
	}
	ms, ok := room.Member(ch.SID)
	if !ok {
		return
	}
	ms.Meta().Connected = ch.To == StateConnected
	frame := encode(roomUsersEvent{Type: "room-users", RoomID: roomID, Users: room.MembersSnapshot()})
	o.applyPolicy(roomID, room.Broadcast("", frame))
}

func (o *Orchestrator) applyPolicy(roomID domain.RoomID, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, sid := range res.Dropped {
		switch o.Policy.OnBackpressure(roomID, sid) {
		case KickMember:
			log.Warn().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("kicking slow member")
			o.Registry.Cancel(sid)
		case DropFrame:
		}
	}
}

func (o *Orchestrator) trySend(signal core.SignalConnection, sid core.SessionID, frame core.Frame) {
	if err := signal.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("sid", string(sid)).Msg("direct send dropped")
	}
}
