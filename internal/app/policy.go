package app

import (
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	KickMember
)

// Policy decides what to do with a member whose send queue was full during
// a broadcast.
type Policy interface {
	OnBackpressure(room domain.RoomID, sid core.SessionID) BackpressureAction
}

// DropPolicy drops the frame. Signaling events are resyncable: a client that
// missed a delta recovers the full roster via get-room-users.
type DropPolicy struct{}

func (DropPolicy) OnBackpressure(room domain.RoomID, sid core.SessionID) BackpressureAction {
	return DropFrame
}

// KickPolicy tears down members that cannot keep up.
type KickPolicy struct{}

func (KickPolicy) OnBackpressure(room domain.RoomID, sid core.SessionID) BackpressureAction {
	return KickMember
}
