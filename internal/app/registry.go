package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// sessionEntry is the per-connection session state. The RoomID here is the
// single source of truth for "which room is this connection in"; room
// membership is a back-reference kept consistent by the orchestrator.
type sessionEntry struct {
	User     *domain.User
	RoomID   domain.RoomID
	Signal   core.SignalConnection
	LastSeen time.Time
	Liveness LivenessState
	Cancel   context.CancelFunc
}

type Registry struct {
	mu      sync.RWMutex
	entries map[core.SessionID]*sessionEntry

	now func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[core.SessionID]*sessionEntry),
		now:     time.Now,
	}
}

// Register creates a blank session entry for sid. A reconnect with the same
// client token reuses the existing identity and only swaps the transport.
func (r *Registry) Register(sid core.SessionID, signal core.SignalConnection, cancel context.CancelFunc) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sid]; ok {
		e.Signal = signal
		e.Cancel = cancel
		e.LastSeen = r.now()
		e.Liveness = StateConnected
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session re-registered")
		return e.User
	}
	u := &domain.User{ID: domain.UserID(sid), Username: "guest"}
	r.entries[sid] = &sessionEntry{
		User:     u,
		Signal:   signal,
		LastSeen: r.now(),
		Liveness: StateConnected,
		Cancel:   cancel,
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session registered")
	return u
}

func (r *Registry) User(sid core.SessionID) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[sid]; ok {
		return e.User, true
	}
	return nil, false
}

func (r *Registry) SetUsername(sid core.SessionID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sid]
	if !ok {
		return ErrUnknownSession
	}
	if err := e.User.SetUsername(name); err != nil {
		return err
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("username", name).Msg("updated username")
	return nil
}

func (r *Registry) SignalOf(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[sid]; ok && e.Signal != nil {
		return e.Signal, true
	}
	return nil, false
}

func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[sid]
	if !ok || e.RoomID == "" {
		return "", false
	}
	return e.RoomID, true
}

func (r *Registry) UpdateRoom(sid core.SessionID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sid]
	if !ok {
		return false
	}
	e.RoomID = roomID
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(roomID)).Msg("updated room")
	return true
}

func (r *Registry) ClearRoom(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sid]; ok {
		e.RoomID = ""
	}
}

// Touch records a heartbeat. When it revives a suspect connection the
// transition back to connected is returned so the caller can rebroadcast.
func (r *Registry) Touch(sid core.SessionID) (LivenessChange, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sid]
	if !ok {
		return LivenessChange{}, false
	}
	e.LastSeen = r.now()
	if e.Liveness == StateConnected {
		return LivenessChange{}, false
	}
	prev := e.Liveness
	e.Liveness = StateConnected
	return LivenessChange{SID: sid, From: prev, To: StateConnected}, true
}

// SweepLiveness advances every session's liveness state machine against the
// configured thresholds and returns the transitions it made. It never removes
// a session; eviction belongs to the transport close event.
func (r *Registry) SweepLiveness(interval time.Duration, suspectAfter, disconnectAfter int) []LivenessChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var changes []LivenessChange
	for sid, e := range r.entries {
		next := livenessStateFor(now.Sub(e.LastSeen), interval, suspectAfter, disconnectAfter)
		if next == e.Liveness {
			continue
		}
		changes = append(changes, LivenessChange{SID: sid, From: e.Liveness, To: next})
		e.Liveness = next
	}
	return changes
}

// Remove deletes the entry and is idempotent.
func (r *Registry) Remove(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[sid]; !ok {
		return
	}
	delete(r.entries, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session removed")
}

// Cancel tears down the session's transport context, if any.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.entries[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
