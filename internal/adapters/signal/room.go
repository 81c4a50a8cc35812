package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type joinPayload struct {
		Type     string `json:"type"`
		RoomID   string `json:"roomId"`
		Username string `json:"username"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "BAD_PAYLOAD", "malformed join-room")
		return
	}
	if err := domain.ValidateRoomID(domain.RoomID(p.RoomID)); err != nil {
		ctl.sendError(conn, "BAD_PAYLOAD", err.Error())
		return
	}
	if err := domain.ValidateUsername(p.Username); err != nil {
		ctl.sendError(conn, "BAD_PAYLOAD", err.Error())
		return
	}
	if !ctl.Limiter.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("join rate limited")
		ctl.sendError(conn, "RATE_LIMITED", "too many join attempts")
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Msg("join")
	if err := ctl.Orch.Join(sid, domain.RoomID(p.RoomID), p.Username); err != nil {
		switch {
		case errors.Is(err, app.ErrRoomFull):
			ctl.sendError(conn, "FULL_CAPACITY", "room is full")
		default:
			log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("join failed")
			ctl.sendError(conn, "INTERNAL", "join failed")
		}
	}
}

func (ctl *SignalWSController) handleLeave(sid core.SessionID) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	ctl.Orch.Leave(sid)
}

func (ctl *SignalWSController) handleGetRoomUsers(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type payload struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad get-room-users payload")
		ctl.sendError(conn, "BAD_PAYLOAD", "malformed get-room-users")
		return
	}
	if p.RoomID == "" {
		ctl.sendError(conn, "BAD_PAYLOAD", "roomId required")
		return
	}
	ctl.Orch.RoomUsers(domain.RoomID(p.RoomID), sid)
}
