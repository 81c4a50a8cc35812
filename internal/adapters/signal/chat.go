package signal

import (
	"encoding/json"

	"github.com/dkeye/Meet/internal/core"
	"github.com/rs/zerolog/log"
)

const maxChatMessageLen = 2000

func (ctl *SignalWSController) handleChat(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type chatPayload struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		ctl.sendError(conn, "BAD_PAYLOAD", "malformed chat-message")
		return
	}
	if p.Message == "" || len(p.Message) > maxChatMessageLen {
		ctl.sendError(conn, "BAD_PAYLOAD", "message empty or too long")
		return
	}
	ctl.Orch.Chat(sid, p.Message)
}
