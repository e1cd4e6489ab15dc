package game

import (
	"fmt"
	"math"

	"cube_controller/internal/cube"
)

// Planner picks the next round. It is not safe for concurrent use; the
// session controller serializes calls.
type Planner struct {
	rnd Source
}

func NewPlanner(rnd Source) *Planner {
	return &Planner{rnd: rnd}
}

// Next plans the round that follows a round ending on from. Half of the
// rounds are pauses; the rest point at a random neighbour of from.
func (p *Planner) Next(from cube.Face, remaining, baseMS int) (Round, error) {
	if !from.Valid() {
		return Round{}, fmt.Errorf("%w: %w: %s", ErrInvalidRound, cube.ErrUnknownFace, from)
	}

	if p.rnd.Float64() < 0.5 {
		return NewPauseRound(p.pauseDuration(baseMS), remaining), nil
	}

	adj := cube.Adjacent(from)
	to := adj[pick(p.rnd, len(adj))]

	mode := ModeNormal
	if p.rnd.Float64() < 0.5 {
		mode = ModeOpposite
	}

	return Round{
		Kind:       KindArrow,
		From:       from,
		To:         to,
		Mode:       mode,
		Arrow:      cube.MustArrow(from, to),
		DurationMS: baseMS,
		Remaining:  remaining,
	}, nil
}

func (p *Planner) pauseDuration(baseMS int) int {
	scaled := int(math.Round(float64(baseMS) * (1 + uniform(p.rnd, -0.2, 0.3))))
	upper := clamp(scaled, MinPauseMS, MaxPauseMS)
	return MinPauseMS + pick(p.rnd, upper-MinPauseMS+1)
}

func pick(rnd Source, n int) int {
	i := int(rnd.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
