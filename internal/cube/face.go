package cube

import (
	"errors"
	"fmt"
	"strings"
)

// Face identifies one of the six cube faces.
type Face uint8

const (
	Top Face = iota
	Bottom
	Left
	Right
	Front
	Back

	faceCount = 6
)

// ErrUnknownFace is returned by ParseFace for names outside the face set.
var ErrUnknownFace = errors.New("unknown face")

var faceNames = [faceCount]string{
	Top:    "TOP",
	Bottom: "BOTTOM",
	Left:   "LEFT",
	Right:  "RIGHT",
	Front:  "FRONT",
	Back:   "BACK",
}

// firmware reports the vertical faces as UP/DOWN
var faceAliases = map[string]Face{
	"UP":   Top,
	"DOWN": Bottom,
}

// Faces lists every face in declaration order.
func Faces() []Face {
	return []Face{Top, Bottom, Left, Right, Front, Back}
}

func (f Face) Valid() bool {
	return f < faceCount
}

// String returns the wire name used by the line protocol.
func (f Face) String() string {
	if !f.Valid() {
		return fmt.Sprintf("FACE(%d)", uint8(f))
	}
	return faceNames[f]
}

// MarshalText lets faces appear by name in JSON snapshots.
func (f Face) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFace, uint8(f))
	}
	return []byte(faceNames[f]), nil
}

func (f *Face) UnmarshalText(b []byte) error {
	parsed, err := ParseFace(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFace resolves a wire name, case-insensitively.
func ParseFace(s string) (Face, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range faceNames {
		if n == name {
			return Face(i), nil
		}
	}
	if f, ok := faceAliases[name]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFace, s)
}

// Opposite returns the face parallel to f on the other side of the cube.
func Opposite(f Face) Face {
	switch f {
	case Top:
		return Bottom
	case Bottom:
		return Top
	case Left:
		return Right
	case Right:
		return Left
	case Front:
		return Back
	case Back:
		return Front
	}
	return f
}

// Adjacent returns the four faces orthogonal to f.
func Adjacent(f Face) [4]Face {
	var out [4]Face
	i := 0
	for _, g := range Faces() {
		if g == f || g == Opposite(f) {
			continue
		}
		out[i] = g
		i++
	}
	return out
}

// IsAdjacent reports whether to shares an edge with from.
func IsAdjacent(from, to Face) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	return to != from && to != Opposite(from)
}
