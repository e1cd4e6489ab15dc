package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"cube_controller/internal/transport"
)

// seqSource replays vals in order and then repeats the last one.
type seqSource struct {
	vals []float64
	i    int
}

func (s *seqSource) Float64() float64 {
	if len(s.vals) == 0 {
		return 0
	}
	if s.i >= len(s.vals) {
		return s.vals[len(s.vals)-1]
	}
	v := s.vals[s.i]
	s.i++
	return v
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestController wires a controller to a connected pipe and runs it
// until the test ends. Pings are only sent by explicit PingTick calls.
func newTestController(t *testing.T, vals ...float64) (*Controller, *transport.Pipe, *fakeClock) {
	t.Helper()
	pipe := transport.NewPipe(true)
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c, err := New(pipe, Options{
		Rand:         &seqSource{vals: vals},
		Now:          clock.Now,
		Logger:       quietLogger(),
		PingInterval: time.Hour,
		PingTTL:      3 * time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(cancel)
	return c, pipe, clock
}

// waitLines polls until the pipe has seen at least n writes.
func waitLines(t *testing.T, pipe *transport.Pipe, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		lines := pipe.Lines()
		if len(lines) >= n {
			return lines
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d lines, got %d: %q", n, len(lines), lines)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// waitIdle waits until the queue has nothing left to write.
func waitIdle(t *testing.T, c *Controller) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.Queue().Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("queue did not drain")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
