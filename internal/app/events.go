package app

import (
	"encoding/json"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// Wire events emitted by the orchestrator. The envelope is flat JSON with a
// "type" discriminator; payload field names follow the client contract.

type welcomeEvent struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
}

type userConnectedEvent struct {
	Type     string        `json:"type"`
	UserID   domain.UserID `json:"userId"`
	Username string        `json:"username"`
}

type userDisconnectedEvent struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
}

type roomUsersEvent struct {
	Type   string           `json:"type"`
	RoomID domain.RoomID    `json:"roomId"`
	Users  []core.MemberDTO `json:"users"`
}

type offerEvent struct {
	Type           string          `json:"type"`
	SDP            json.RawMessage `json:"sdp"`
	SenderID       domain.UserID   `json:"senderId"`
	SenderUsername string          `json:"senderUsername"`
}

type answerEvent struct {
	Type     string          `json:"type"`
	SDP      json.RawMessage `json:"sdp"`
	SenderID domain.UserID   `json:"senderId"`
}

type candidateEvent struct {
	Type      string          `json:"type"`
	Candidate json.RawMessage `json:"candidate"`
	SenderID  domain.UserID   `json:"senderId"`
}

type mediaStateEvent struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
	Audio  *bool         `json:"audio,omitempty"`
	Video  *bool         `json:"video,omitempty"`
}

type chatEvent struct {
	Type       string        `json:"type"`
	SenderID   domain.UserID `json:"senderId"`
	SenderName string        `json:"senderName"`
	Message    string        `json:"message"`
	Timestamp  string        `json:"timestamp"`
}

func encode(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.events").Msg("event marshal")
		return nil
	}
	return b
}
