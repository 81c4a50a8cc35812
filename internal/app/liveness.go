package app

import (
	"context"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/rs/zerolog/log"
)

// Liveness tracks connections the transport has not yet reported as closed.
// A suspect link is surfaced to the room (isConnected=false in the roster);
// it is never evicted here. Mobile/Wi-Fi links drop briefly all the time and
// hard-failing every missed heartbeat causes user-visible room churn.
type LivenessState int

const (
	StateConnected LivenessState = iota
	StateSuspect
	StateDisconnected
)

func (s LivenessState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateSuspect:
		return "suspect"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

type LivenessChange struct {
	SID  core.SessionID
	From LivenessState
	To   LivenessState
}

// livenessStateFor maps time-since-last-heartbeat onto the
// connected -> suspect -> disconnected ladder.
func livenessStateFor(elapsed, interval time.Duration, suspectAfter, disconnectAfter int) LivenessState {
	if interval <= 0 {
		return StateConnected
	}
	if disconnectAfter > 0 && elapsed >= time.Duration(disconnectAfter)*interval {
		return StateDisconnected
	}
	if suspectAfter > 0 && elapsed >= time.Duration(suspectAfter)*interval {
		return StateSuspect
	}
	return StateConnected
}

// LivenessMonitor periodically sweeps the registry's heartbeat timestamps.
type LivenessMonitor struct {
	Orch            *Orchestrator
	Interval        time.Duration
	SuspectAfter    int
	DisconnectAfter int
}

func (m *LivenessMonitor) Run(ctx context.Context) {
	if m.Interval <= 0 {
		log.Warn().Str("module", "app.liveness").Msg("monitor disabled, no interval")
		return
	}
	t := time.NewTicker(m.Interval)
	defer t.Stop()
	log.Info().Str("module", "app.liveness").Dur("interval", m.Interval).Msg("monitor started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.liveness").Msg("monitor stopped")
			return
		case <-t.C:
			m.Orch.MarkStale(m.Interval, m.SuspectAfter, m.DisconnectAfter)
		}
	}
}
