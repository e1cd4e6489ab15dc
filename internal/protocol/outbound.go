package protocol

import (
	"fmt"
	"strconv"

	"cube_controller/internal/cube"
	"cube_controller/internal/game"
)

func GameStart() string {
	return CmdGameStart + " type=" + GameTypeSimon
}

// GameStartWith is the operator form carrying explicit parameters.
func GameStartWith(durationMS, remaining int) string {
	return fmt.Sprintf("%s duration=%d remaining=%d", CmdGameStart, durationMS, remaining)
}

func RoundStart(r game.Round) string {
	if r.Kind == game.KindPause {
		return fmt.Sprintf("%s type=%s duration=%d remaining=%d",
			CmdRoundStart, game.KindPause, r.DurationMS, r.Remaining)
	}
	return fmt.Sprintf("%s type=%s from=%s to=%s expected=%s duration=%d remaining=%d",
		CmdRoundStart, game.KindArrow, r.From, r.To, r.Expected(), r.DurationMS, r.Remaining)
}

func DrawShape(face cube.Face, shape, color string) string {
	return CmdDrawShape + " " + face.String() + " " + shape + " " + color
}

func ClearAll() string {
	return CmdClearAll
}

func Beep(freqHz, durMS int) string {
	return fmt.Sprintf("%s freq=%d dur=%d", CmdBeep, freqHz, durMS)
}

func GameEnd() string {
	return CmdGameEnd
}

// SetMode selects a training mode on the peripheral.
func SetMode(mode string) string {
	return CmdSetMode + " mode=" + mode
}

// GameEndSession closes a mode session and reports how long it ran.
func GameEndSession(mode string, durationMS int64) string {
	return fmt.Sprintf("%s mode=%s duration=%d", CmdGameEnd, mode, durationMS)
}

func Ping(seq uint64) string {
	return CmdPing + " " + strconv.FormatUint(seq, 10)
}

func RestartPing() string {
	return CmdRestartPing
}
