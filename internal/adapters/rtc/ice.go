// Package rtc maps configured STUN/TURN entries onto pion types.
// The server never opens peer connections itself; this config is handed to
// browsers so they can build their RTCPeerConnection.
package rtc

import (
	"github.com/dkeye/Meet/internal/config"
	"github.com/pion/webrtc/v4"
)

func DefaultICEServers() []webrtc.ICEServer {
	return []webrtc.ICEServer{
		{
			URLs: []string{"stun:stun.l.google.com:19302"},
		},
	}
}

// ICEServers converts configured entries, falling back to the default STUN
// server when the config names none.
func ICEServers(cfg *config.Config) []webrtc.ICEServer {
	if len(cfg.ICEServers) == 0 {
		return DefaultICEServers()
	}
	out := make([]webrtc.ICEServer, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		ice := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			ice.Credential = s.Credential
		}
		out = append(out, ice)
	}
	return out
}
