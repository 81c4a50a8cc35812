package app

import (
	"encoding/json"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// Relay forwards a targeted signaling message (offer/answer/ice-candidate)
// to targetID, augmented with the sender's identity. The payload is opaque:
// malformed SDP is the negotiating peers' problem, not ours. An unknown
// target is an expected race (it may have just disconnected) and is dropped
// silently; the sender is never told.
func (o *Orchestrator) Relay(kind string, sid core.SessionID, targetID domain.UserID, payload json.RawMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()

	signal, ok := o.Registry.SignalOf(core.SessionID(targetID))
	if !ok {
		log.Debug().Str("module", "app.relay").Str("kind", kind).Str("sid", string(sid)).Str("target", string(targetID)).Msg("target gone, dropping")
		return
	}

	senderID := domain.UserID(sid)
	var frame core.Frame
	switch kind {
	case "offer":
		username := ""
		if user, ok := o.Registry.User(sid); ok {
			username = user.Username
		}
		frame = encode(offerEvent{Type: "offer", SDP: payload, SenderID: senderID, SenderUsername: username})
	case "answer":
		frame = encode(answerEvent{Type: "answer", SDP: payload, SenderID: senderID})
	case "ice-candidate":
		frame = encode(candidateEvent{Type: "ice-candidate", Candidate: payload, SenderID: senderID})
	default:
		log.Warn().Str("module", "app.relay").Str("kind", kind).Msg("unknown relay kind")
		return
	}

	if err := signal.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("kind", kind).Str("target", string(targetID)).Msg("relay dropped")
	}
}

// MediaState records the sender's advertised mute/camera state and fans the
// change out to the rest of its room.
func (o *Orchestrator) MediaState(sid core.SessionID, audio, video *bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return
	}
	if ms, ok := room.Member(sid); ok {
		if audio != nil {
			ms.Meta().Audio = *audio
		}
		if video != nil {
			ms.Meta().Video = *video
		}
	}
	frame := encode(mediaStateEvent{Type: "user-media-state-changed", UserID: domain.UserID(sid), Audio: audio, Video: video})
	o.applyPolicy(roomID, room.Broadcast(sid, frame))
}

// Chat broadcasts a room-wide text message, sender included, with a
// server-assigned timestamp.
func (o *Orchestrator) Chat(sid core.SessionID, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return
	}
	name := ""
	if user, ok := o.Registry.User(sid); ok {
		name = user.Username
	}
	frame := encode(chatEvent{
		Type:       "chat-message",
		SenderID:   domain.UserID(sid),
		SenderName: name,
		Message:    message,
		Timestamp:  o.nowTime().UTC().Format(time.RFC3339),
	})
	o.applyPolicy(roomID, room.Broadcast(sid, frame))
	if signal, ok := o.Registry.SignalOf(sid); ok {
		o.trySend(signal, sid, frame)
	}
}
