package session

import (
	"fmt"
	"strings"

	"cube_controller/internal/game"
)

// Phase is the round state machine position.
type Phase string

const (
	PhaseIdle        Phase = "IDLE"
	PhaseWaitBalance Phase = "WAIT_BALANCE"
	PhasePlaying     Phase = "PLAYING"
)

// SessionMode is the training mode the operator selected, if any.
type SessionMode string

const (
	ModeFocus  SessionMode = "focus"
	ModeMemory SessionMode = "memory"
	ModeTime   SessionMode = "time"
)

func ParseSessionMode(s string) (SessionMode, error) {
	switch m := SessionMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeFocus, ModeMemory, ModeTime:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidParams, s)
}

// RoundStats counts finished rounds of the current game.
type RoundStats struct {
	Played    int `json:"played"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// State is a point-in-time copy of the controller. Version increases with
// every change so observers can discard stale copies.
type State struct {
	Version    uint64          `json:"version"`
	Connected  bool            `json:"connected"`
	Phase      Phase           `json:"phase"`
	Starting   bool            `json:"starting"`
	Round      *game.Round     `json:"round,omitempty"`
	Remaining  int             `json:"remaining"`
	Difficulty game.Difficulty `json:"difficulty"`
	Rounds     RoundStats      `json:"rounds"`
	Mode       SessionMode     `json:"mode,omitempty"`
	ElapsedMS  int64           `json:"elapsed_ms"`
	Ping       PingStats       `json:"ping"`
	QueueLen   int             `json:"queue_len"`
}
