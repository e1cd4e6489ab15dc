package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cube_controller/internal/cube"
	"cube_controller/internal/game"
)

// ErrMalformed marks an inbound line missing a required field.
var ErrMalformed = errors.New("malformed line")

// Fields collects the key=value tokens of a line. Keys are lowercased.
func Fields(line string) map[string]string {
	out := make(map[string]string)
	for _, tok := range strings.Fields(line) {
		k, v, ok := strings.Cut(tok, "=")
		if !ok || k == "" {
			continue
		}
		out[strings.ToLower(k)] = v
	}
	return out
}

func faceField(line, key string) (cube.Face, error) {
	raw, ok := Fields(line)[key]
	if !ok || raw == "" {
		return 0, fmt.Errorf("%w: missing %s in %q", ErrMalformed, key, line)
	}
	f, err := cube.ParseFace(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return f, nil
}

// ParseBalance reads the side= field of a ROUND BALANCE line.
func ParseBalance(line string) (cube.Face, error) {
	return faceField(line, "side")
}

// ParseGameStartAck reads the face= field of an OK GAME START line.
func ParseGameStartAck(line string) (cube.Face, error) {
	return faceField(line, "face")
}

// EndRound is a decoded END ROUND event.
type EndRound struct {
	Face    cube.Face
	Result  game.Result
	TimeMS  int
	HasTime bool
	Reason  string
	Legacy  bool
}

// ParseEndRound accepts the legacy "END ROUND <face>" form, which implies
// success, and the keyed "END ROUND face= result= [time=] [reason=]" form.
func ParseEndRound(line string) (EndRound, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, EvtEndRound))
	if rest == "" {
		return EndRound{}, fmt.Errorf("%w: empty END ROUND", ErrMalformed)
	}

	if !strings.Contains(rest, "=") {
		f, err := cube.ParseFace(strings.Fields(rest)[0])
		if err != nil {
			return EndRound{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return EndRound{Face: f, Result: game.Success, Legacy: true}, nil
	}

	f, err := faceField(rest, "face")
	if err != nil {
		return EndRound{}, err
	}
	fields := Fields(rest)
	res, ok := fields["result"]
	if !ok {
		return EndRound{}, fmt.Errorf("%w: missing result in %q", ErrMalformed, line)
	}
	ev := EndRound{Face: f, Result: game.ParseResult(res), Reason: fields["reason"]}
	if raw, ok := fields["time"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return EndRound{}, fmt.Errorf("%w: time=%q", ErrMalformed, raw)
		}
		ev.TimeMS, ev.HasTime = n, true
	}
	return ev, nil
}

// ParsePong reads the sequence number of a PONG line.
func ParsePong(line string) (uint64, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(line, strings.TrimSpace(EvtPong)))
	if raw == "" {
		return 0, fmt.Errorf("%w: PONG without sequence", ErrMalformed)
	}
	seq, err := strconv.ParseUint(strings.Fields(raw)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return seq, nil
}
