package cube

import (
	"errors"
	"fmt"
)

// Vec3 is an axis-aligned integer vector; every table entry is a unit vector.
type Vec3 struct {
	X, Y, Z int
}

func (v Vec3) Dot(o Vec3) int {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Neg() Vec3 {
	return Vec3{-v.X, -v.Y, -v.Z}
}

// Cube frame: +X right, +Y up, +Z towards the viewer.
var normals = [faceCount]Vec3{
	Top:    {0, 1, 0},
	Bottom: {0, -1, 0},
	Left:   {-1, 0, 0},
	Right:  {1, 0, 0},
	Front:  {0, 0, 1},
	Back:   {0, 0, -1},
}

// Local display axes per face. right × up == normal for every entry.
var bases = [faceCount]struct{ up, right Vec3 }{
	Top:    {up: Vec3{0, 0, -1}, right: Vec3{1, 0, 0}},
	Bottom: {up: Vec3{0, 0, 1}, right: Vec3{1, 0, 0}},
	Left:   {up: Vec3{0, 1, 0}, right: Vec3{0, 0, 1}},
	Right:  {up: Vec3{0, 1, 0}, right: Vec3{0, 0, -1}},
	Front:  {up: Vec3{0, 1, 0}, right: Vec3{1, 0, 0}},
	Back:   {up: Vec3{0, 1, 0}, right: Vec3{-1, 0, 0}},
}

// Normal returns the outward unit normal of f.
func Normal(f Face) Vec3 {
	return normals[f]
}

// Basis returns the (up, right) axes of the LED matrix mounted on f.
func Basis(f Face) (up, right Vec3) {
	b := bases[f]
	return b.up, b.right
}

// Arrow is the shape drawn on a face to point at a neighbouring face.
type Arrow uint8

const (
	ArrowUp Arrow = iota
	ArrowDown
	ArrowLeft
	ArrowRight
)

var arrowNames = [...]string{
	ArrowUp:    "ARROW_UP",
	ArrowDown:  "ARROW_DOWN",
	ArrowLeft:  "ARROW_LEFT",
	ArrowRight: "ARROW_RIGHT",
}

func (a Arrow) String() string {
	if int(a) >= len(arrowNames) {
		return fmt.Sprintf("ARROW(%d)", uint8(a))
	}
	return arrowNames[a]
}

func (a Arrow) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ErrUnreachable means no arrow on from points at to: to is from or its opposite.
var ErrUnreachable = errors.New("face not reachable by arrow")

// ArrowFromTo projects the normal of to onto the display basis of from.
func ArrowFromTo(from, to Face) (Arrow, error) {
	if !from.Valid() || !to.Valid() {
		return 0, fmt.Errorf("%w: %s -> %s", ErrUnknownFace, from, to)
	}
	n := Normal(to)
	up, right := Basis(from)
	switch {
	case n.Dot(up) == 1:
		return ArrowUp, nil
	case n.Dot(up.Neg()) == 1:
		return ArrowDown, nil
	case n.Dot(right) == 1:
		return ArrowRight, nil
	case n.Dot(right.Neg()) == 1:
		return ArrowLeft, nil
	}
	return 0, fmt.Errorf("%w: %s -> %s", ErrUnreachable, from, to)
}

// MustArrow is ArrowFromTo for callers that drew to from Adjacent(from).
func MustArrow(from, to Face) Arrow {
	a, err := ArrowFromTo(from, to)
	if err != nil {
		panic(err)
	}
	return a
}
