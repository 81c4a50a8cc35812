package signal

import (
	"encoding/json"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// handleRelay covers offer, answer and ice-candidate. Only the envelope is
// validated; sdp/candidate stay opaque bytes all the way through.
func (ctl *SignalWSController) handleRelay(
	kind string,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type relayPayload struct {
		Type      string          `json:"type"`
		TargetID  string          `json:"targetId"`
		SDP       json.RawMessage `json:"sdp"`
		Candidate json.RawMessage `json:"candidate"`
	}
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", kind).Msg("bad relay payload")
		ctl.sendError(conn, "BAD_PAYLOAD", "malformed "+kind)
		return
	}
	if p.TargetID == "" {
		ctl.sendError(conn, "BAD_PAYLOAD", "targetId required")
		return
	}

	payload := p.SDP
	if kind == "ice-candidate" {
		payload = p.Candidate
	}
	if len(payload) == 0 {
		ctl.sendError(conn, "BAD_PAYLOAD", "empty payload")
		return
	}

	ctl.Orch.Relay(kind, sid, domain.UserID(p.TargetID), payload)
}

func (ctl *SignalWSController) handleMediaState(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type mediaPayload struct {
		Type  string `json:"type"`
		Audio *bool  `json:"audio"`
		Video *bool  `json:"video"`
	}
	var p mediaPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad media-state payload")
		ctl.sendError(conn, "BAD_PAYLOAD", "malformed media-state-change")
		return
	}
	if p.Audio == nil && p.Video == nil {
		return
	}
	ctl.Orch.MediaState(sid, p.Audio, p.Video)
}
