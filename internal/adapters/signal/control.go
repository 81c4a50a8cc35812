package signal

import (
	"github.com/dkeye/Meet/internal/core"
	"github.com/pion/webrtc/v4"
)

func (ctl *SignalWSController) handlePing(sid core.SessionID, conn *WsSignalConn) {
	ctl.Orch.Heartbeat(sid)
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) handleICEServers(conn *WsSignalConn) {
	resp := struct {
		Type       string             `json:"type"`
		ICEServers []webrtc.ICEServer `json:"iceServers"`
	}{
		Type:       "ice-servers",
		ICEServers: ctl.ICE,
	}
	ctl.sendJSON(conn, resp)
}
