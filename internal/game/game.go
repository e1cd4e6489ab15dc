package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cube_controller/internal/cube"
)

const (
	MinRoundMS     = 1200
	MaxRoundMS     = 9000
	DefaultRoundMS = 3000

	MinPauseMS = 2000
	MaxPauseMS = 12000
)

type Kind string

const (
	KindPause Kind = "PAUSE"
	KindArrow Kind = "ARROW"
)

// Mode selects how the cue relates to the face the player must reach.
type Mode string

const (
	ModeNormal   Mode = "NORMAL"
	ModeOpposite Mode = "OPPOSITE"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeNormal, "":
		return ModeNormal, nil
	case ModeOpposite:
		return ModeOpposite, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

type Result string

const (
	Success Result = "SUCCESS"
	Fail    Result = "FAIL"
)

// ParseResult accepts any casing; everything that is not a success is a fail.
func ParseResult(s string) Result {
	if strings.EqualFold(strings.TrimSpace(s), string(Success)) {
		return Success
	}
	return Fail
}

var ErrInvalidRound = errors.New("invalid round")

// Round is one challenge unit. From, To, Mode and Arrow are meaningful only
// for arrow rounds.
type Round struct {
	Kind       Kind
	From       cube.Face
	To         cube.Face
	Mode       Mode
	Arrow      cube.Arrow
	DurationMS int
	Remaining  int
}

// NewArrowRound builds an arrow round, deriving the arrow shape from the faces.
func NewArrowRound(from, to cube.Face, mode Mode, durationMS, remaining int) (Round, error) {
	arrow, err := cube.ArrowFromTo(from, to)
	if err != nil {
		return Round{}, fmt.Errorf("%w: %w", ErrInvalidRound, err)
	}
	if mode == "" {
		mode = ModeNormal
	}
	return Round{
		Kind:       KindArrow,
		From:       from,
		To:         to,
		Mode:       mode,
		Arrow:      arrow,
		DurationMS: durationMS,
		Remaining:  remaining,
	}, nil
}

func NewPauseRound(durationMS, remaining int) Round {
	return Round{Kind: KindPause, DurationMS: durationMS, Remaining: remaining}
}

// Expected is the face the player must end on. The cue always shows To; in
// opposite mode the correct answer is the face across from it.
func (r Round) Expected() cube.Face {
	if r.Mode == ModeOpposite {
		return cube.Opposite(r.To)
	}
	return r.To
}

func (r Round) MarshalJSON() ([]byte, error) {
	view := map[string]any{
		"type":        r.Kind,
		"duration_ms": r.DurationMS,
		"remaining":   r.Remaining,
	}
	if r.Kind == KindArrow {
		view["from"] = r.From
		view["to"] = r.To
		view["mode"] = r.Mode
		view["arrow"] = r.Arrow
		view["expected"] = r.Expected()
	}
	return json.Marshal(view)
}

// Source is the randomness consumed by the difficulty engine and planner.
// *math/rand/v2.Rand satisfies it.
type Source interface {
	Float64() float64
}

func uniform(rnd Source, lo, hi float64) float64 {
	return lo + rnd.Float64()*(hi-lo)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
