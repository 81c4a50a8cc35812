package core

import "github.com/dkeye/Meet/internal/domain"

// Frame is a marshaled signaling event ready to go on the wire.
type Frame []byte

// SessionID is the opaque per-connection id assigned at transport-connect time.
type SessionID string

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to the orchestrator.
type PublishResult struct {
	SentTo  int
	Dropped []SessionID
}

// MemberDTO is a read-only roster entry for the wire (no transport fields).
type MemberDTO struct {
	ID        domain.UserID `json:"id"`
	Username  string        `json:"username"`
	Connected bool          `json:"isConnected"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	MembersSnapshot() []MemberDTO

	Member(sid SessionID) (MemberSession, bool)
	AddMember(sid SessionID, ms MemberSession)
	RemoveMember(sid SessionID)
	Broadcast(from SessionID, data Frame) PublishResult
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

// RoomDirectory maps room ids to live rooms. Rooms are created implicitly
// on first join and must be removed as soon as they are empty; that removal
// is the membership layer's job, the directory only provides the primitive.
type RoomDirectory interface {
	GetOrCreate(id domain.RoomID) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	Remove(id domain.RoomID)
	List() []RoomInfo
}
