package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cube_controller/internal/cube"
	"cube_controller/internal/game"
	"cube_controller/internal/protocol"
	"cube_controller/internal/transport"
)

// Cue tones for the two arrow modes.
const (
	toneNormalHz   = 880
	toneNormalMS   = 150
	toneOppositeHz = 440
	toneOppositeMS = 300
	arrowColor     = protocol.ColorYellow
	targetColor    = protocol.ColorBlue
)

var ErrInvalidParams = errors.New("invalid parameters")

type Options struct {
	Rand            game.Source
	Now             func() time.Time
	Logger          *slog.Logger
	PingInterval    time.Duration
	PingMaxInFlight int
	PingTTL         time.Duration
	JournalSize     int
}

// Controller is the session's single owner of round, difficulty and ping
// state. Every handler runs to completion under one lock, so transport
// events, operator intents and ping ticks never interleave mid-update.
type Controller struct {
	mu      sync.Mutex
	link    transport.Link
	queue   *WriteQueue
	disp    *Dispatcher
	planner *game.Planner
	rnd     game.Source
	now     func() time.Time
	log     *slog.Logger

	connected  bool
	phase      Phase
	starting   bool
	round      *game.Round
	remaining  int
	difficulty game.Difficulty
	rounds     RoundStats
	version    uint64

	mode       SessionMode
	clockStart time.Time
	clockOn    bool
	elapsed    time.Duration
	journal    *journal

	ping         *pingTest
	pingInterval time.Duration

	obsMu     sync.Mutex
	observers map[int]func(State)
	obsSeq    int
}

// New binds a controller to link. The link's write capability is resolved
// once here.
func New(link transport.Link, opts Options) (*Controller, error) {
	write, kind, err := transport.Negotiate(link)
	if err != nil {
		return nil, err
	}
	if opts.Rand == nil {
		r, err := game.NewRand()
		if err != nil {
			return nil, err
		}
		opts.Rand = r
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}
	if opts.PingTTL == 0 {
		opts.PingTTL = DefaultPingTTL
	}

	log := opts.Logger.With("component", "session")
	c := &Controller{
		link:         link,
		planner:      game.NewPlanner(opts.Rand),
		rnd:          opts.Rand,
		now:          opts.Now,
		log:          log,
		connected:    link.Connected(),
		phase:        PhaseIdle,
		difficulty:   game.NewDifficulty(game.DefaultRoundMS),
		ping:         newPingTest(opts.PingMaxInFlight, opts.PingTTL),
		journal:      newJournal(opts.JournalSize),
		pingInterval: opts.PingInterval,
		observers:    make(map[int]func(State)),
	}
	c.queue = NewWriteQueue(write, link.Connected, log.With("component", "writequeue"))
	c.queue.OnWritten(func(line string, err error) {
		e := LineEntry{At: time.Now(), Dir: DirTx, Line: line}
		if err != nil {
			e.Error = err.Error()
		}
		c.journal.add(e)
	})
	c.disp = NewDispatcher(log.With("component", "dispatcher"))
	c.disp.Observe(func(line string) {
		c.journal.add(LineEntry{At: time.Now(), Dir: DirRx, Line: line})
	})
	c.disp.Handle("round_balance", protocol.EvtRoundBalance, c.onRoundBalance)
	c.disp.Handle("end_round", protocol.EvtEndRound, c.onEndRound)
	c.disp.Handle("game_start_ack", protocol.EvtGameStartAck, c.onGameStartAck)
	c.disp.Handle("pong", protocol.EvtPong, c.onPong)
	c.disp.Fallback(func(line string) {
		c.log.Info("peripheral", "line", line)
	})

	link.OnData(c.HandleData)
	link.OnConnectionChange(c.HandleConnectionChange)

	if c.connected {
		PeripheralConnected.Set(1)
	}
	BaseDuration.Set(float64(c.difficulty.BaseDurationMS))
	log.Info("controller ready", "write", kind, "connected", c.connected)
	return c, nil
}

// Run drives the write queue and the packet-test ticker until ctx ends.
func (c *Controller) Run(ctx context.Context) error {
	go c.queue.Run(ctx)

	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.PingTick()
		}
	}
}

// Subscribe registers fn for every state change. fn must not block.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.obsMu.Lock()
	c.obsSeq++
	id := c.obsSeq
	c.observers[id] = fn
	c.obsMu.Unlock()
	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Lines returns recent link traffic, oldest first.
func (c *Controller) Lines() []LineEntry {
	return c.journal.lines()
}

func (c *Controller) snapshot() State {
	s := State{
		Version:    c.version,
		Connected:  c.connected,
		Phase:      c.phase,
		Starting:   c.starting,
		Remaining:  c.remaining,
		Difficulty: c.difficulty,
		Rounds:     c.rounds,
		Ping:       c.ping.stats(),
		QueueLen:   c.queue.Len(),
		Mode:       c.mode,
		ElapsedMS:  c.elapsedMS(),
	}
	if c.round != nil {
		r := *c.round
		s.Round = &r
	}
	return s
}

// update runs fn under the lock and notifies observers afterwards.
func (c *Controller) update(fn func() error) error {
	c.mu.Lock()
	err := fn()
	c.version++
	snap := c.snapshot()
	c.mu.Unlock()

	c.obsMu.Lock()
	obs := make([]func(State), 0, len(c.observers))
	for _, o := range c.observers {
		obs = append(obs, o)
	}
	c.obsMu.Unlock()
	for _, o := range obs {
		o(snap)
	}
	return err
}

// send enqueues without waiting; failures surface in the queue's log.
func (c *Controller) send(line string) error {
	_, err := c.queue.Enqueue(line)
	if err != nil {
		c.log.Warn("enqueue failed", "line", line, "error", err)
	}
	return err
}

// Queue exposes the shared write queue for callers that need to await a
// write, such as operator passthrough.
func (c *Controller) Queue() *WriteQueue {
	return c.queue
}

// ---- transport events ----

func (c *Controller) HandleData(chunk []byte) {
	_ = c.update(func() error {
		c.disp.Feed(chunk)
		return nil
	})
}

// HandleConnectionChange applies link state. A disconnect clears in-flight
// pings, the pending round and unsent lines; streaks survive for the next
// game.
func (c *Controller) HandleConnectionChange(up bool) {
	_ = c.update(func() error {
		c.connected = up
		if up {
			PeripheralConnected.Set(1)
			c.log.Info("link up")
			return nil
		}
		PeripheralConnected.Set(0)
		c.ping.clearInFlight()
		c.finish()
		c.mode = ""
		c.disp.Reset()
		dropped := c.queue.Drop()
		c.log.Warn("link down, session reset", "dropped_lines", dropped)
		return nil
	})
}

// ---- operator intents ----

// StartGame begins an adaptive game. The first round is planned once the
// peripheral reports the face the cube rests on.
func (c *Controller) StartGame(remaining, durationMS int) error {
	if remaining <= 0 || durationMS <= 0 {
		return fmt.Errorf("%w: remaining=%d duration=%d", ErrInvalidParams, remaining, durationMS)
	}
	return c.update(func() error {
		if !c.link.Connected() {
			return ErrNotConnected
		}
		c.difficulty = game.NewDifficulty(durationMS)
		c.remaining = remaining
		c.rounds = RoundStats{}
		c.round = nil
		c.phase = PhaseIdle
		c.starting = true
		c.startClock()
		BaseDuration.Set(float64(c.difficulty.BaseDurationMS))
		c.log.Info("game start", "remaining", remaining, "duration_ms", c.difficulty.BaseDurationMS)
		return c.send(protocol.GameStart())
	})
}

// ManualGameStart is the operator form: parameters are taken as given and
// streaks are untouched.
func (c *Controller) ManualGameStart(durationMS, remaining int) error {
	if remaining <= 0 || durationMS <= 0 {
		return fmt.Errorf("%w: remaining=%d duration=%d", ErrInvalidParams, remaining, durationMS)
	}
	return c.update(func() error {
		if !c.link.Connected() {
			return ErrNotConnected
		}
		c.difficulty.BaseDurationMS = game.NewDifficulty(durationMS).BaseDurationMS
		c.remaining = remaining
		c.round = nil
		c.phase = PhaseIdle
		c.starting = true
		c.startClock()
		BaseDuration.Set(float64(c.difficulty.BaseDurationMS))
		return c.send(protocol.GameStartWith(durationMS, remaining))
	})
}

// ManualRoundStart installs r as the pending round, bypassing the planner.
func (c *Controller) ManualRoundStart(r game.Round) error {
	if r.DurationMS <= 0 || r.Remaining <= 0 {
		return fmt.Errorf("%w: duration=%d remaining=%d", ErrInvalidParams, r.DurationMS, r.Remaining)
	}
	if r.Kind == game.KindArrow {
		checked, err := game.NewArrowRound(r.From, r.To, r.Mode, r.DurationMS, r.Remaining)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
		r = checked
	} else if r.Kind != game.KindPause {
		return fmt.Errorf("%w: round type %q", ErrInvalidParams, r.Kind)
	}
	return c.update(func() error {
		if !c.link.Connected() {
			return ErrNotConnected
		}
		c.round = &r
		c.remaining = r.Remaining
		c.phase = PhaseWaitBalance
		c.starting = false
		return c.send(protocol.RoundStart(r))
	})
}

// SetMode starts a timed session in mode and tells the peripheral.
func (c *Controller) SetMode(mode SessionMode) error {
	mode, err := ParseSessionMode(string(mode))
	if err != nil {
		return err
	}
	return c.update(func() error {
		if !c.link.Connected() {
			return ErrNotConnected
		}
		c.mode = mode
		c.startClock()
		c.log.Info("session mode", "mode", mode)
		return c.send(protocol.SetMode(string(mode)))
	})
}

// EndGame stops the current game, puts difficulty back to its initial
// values and waits until the peripheral has been told. A running mode
// session is closed with its duration.
func (c *Controller) EndGame(ctx context.Context) error {
	var done <-chan error
	err := c.update(func() error {
		c.finish()
		line := protocol.GameEnd()
		if c.mode != "" {
			line = protocol.GameEndSession(string(c.mode), c.elapsedMS())
			c.mode = ""
		}
		c.difficulty = game.NewDifficulty(game.DefaultRoundMS)
		BaseDuration.Set(float64(c.difficulty.BaseDurationMS))

		var err error
		done, err = c.queue.Enqueue(line)
		if err != nil {
			c.log.Warn("enqueue failed", "line", line, "error", err)
		}
		return err
	})
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Command forwards an operator line verbatim.
func (c *Controller) Command(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("%w: command must be a single non-empty line", ErrInvalidParams)
	}
	return c.queue.Send(ctx, line)
}

func (c *Controller) finish() {
	c.phase = PhaseIdle
	c.round = nil
	c.starting = false
	c.remaining = 0
	c.stopClock()
}

func (c *Controller) startClock() {
	c.clockStart = c.now()
	c.clockOn = true
	c.elapsed = 0
}

// stopClock freezes the elapsed time; the last value stays visible until
// the next start.
func (c *Controller) stopClock() {
	if !c.clockOn {
		return
	}
	c.elapsed = c.now().Sub(c.clockStart)
	c.clockOn = false
}

func (c *Controller) elapsedMS() int64 {
	d := c.elapsed
	if c.clockOn {
		d = c.now().Sub(c.clockStart)
	}
	return d.Milliseconds()
}

// ---- inbound lines (called by the dispatcher under c.mu) ----

func (c *Controller) onGameStartAck(line string) {
	face, err := protocol.ParseGameStartAck(line)
	if err != nil {
		c.log.Warn("ignoring game start ack", "line", line, "error", err)
		return
	}
	if !c.starting || c.phase != PhaseIdle {
		c.log.Warn("unexpected game start ack", "line", line, "phase", c.phase)
		return
	}

	next, err := c.planner.Next(face, c.remaining, c.difficulty.BaseDurationMS)
	if err != nil {
		c.log.Warn("cannot plan first round", "face", face, "error", err)
		return
	}
	c.starting = false
	c.beginRound(next)
}

func (c *Controller) onRoundBalance(line string) {
	side, err := protocol.ParseBalance(line)
	if err != nil {
		c.log.Warn("ignoring balance", "line", line, "error", err)
		return
	}
	if c.phase != PhaseWaitBalance || c.round == nil {
		c.log.Warn("unexpected balance", "line", line, "phase", c.phase)
		return
	}

	r := c.round
	if r.Kind == game.KindPause {
		c.phase = PhasePlaying
		_ = c.send(protocol.ClearAll())
		return
	}

	arrow := r.Arrow
	if side != r.From {
		if !cube.IsAdjacent(side, r.To) {
			c.log.Warn("balanced on a face that cannot point at the target", "side", side, "to", r.To)
			return
		}
		arrow = cube.MustArrow(side, r.To)
	}

	c.phase = PhasePlaying
	_ = c.send(protocol.ClearAll())
	_ = c.send(protocol.DrawShape(side, arrow.String(), arrowColor))
	_ = c.send(protocol.DrawShape(r.To, protocol.ShapeCircle, targetColor))
	if r.Mode == game.ModeOpposite {
		_ = c.send(protocol.Beep(toneOppositeHz, toneOppositeMS))
	} else {
		_ = c.send(protocol.Beep(toneNormalHz, toneNormalMS))
	}
}

func (c *Controller) onEndRound(line string) {
	ev, err := protocol.ParseEndRound(line)
	if err != nil {
		c.log.Warn("ignoring end round", "line", line, "error", err)
		return
	}
	if c.phase != PhasePlaying && c.phase != PhaseWaitBalance {
		c.log.Warn("unexpected end round", "line", line, "phase", c.phase)
		return
	}
	if c.round == nil {
		c.log.Warn("end round without pending round", "line", line)
		return
	}

	remaining := max(c.remaining-1, 0)
	difficulty := c.difficulty
	difficulty.Update(ev.Result, c.rnd)

	var next game.Round
	if remaining > 0 {
		next, err = c.planner.Next(ev.Face, remaining, difficulty.BaseDurationMS)
		if err != nil {
			c.log.Warn("cannot plan next round", "face", ev.Face, "error", err)
			return
		}
	}

	c.remaining = remaining
	c.difficulty = difficulty
	c.rounds.Played++
	if ev.Result == game.Success {
		c.rounds.Succeeded++
	} else {
		c.rounds.Failed++
	}
	RoundsTotal.WithLabelValues(string(ev.Result)).Inc()
	BaseDuration.Set(float64(difficulty.BaseDurationMS))
	c.log.Info("round ended",
		"face", ev.Face, "result", ev.Result, "time_ms", ev.TimeMS, "reason", ev.Reason,
		"remaining", remaining, "base_ms", difficulty.BaseDurationMS)

	if remaining == 0 {
		c.finish()
		_ = c.send(protocol.GameEnd())
		return
	}
	c.beginRound(next)
}

func (c *Controller) beginRound(r game.Round) {
	c.round = &r
	c.phase = PhaseWaitBalance
	_ = c.send(protocol.RoundStart(r))
}

func (c *Controller) onPong(line string) {
	seq, err := protocol.ParsePong(line)
	if err != nil {
		c.log.Warn("ignoring pong", "line", line, "error", err)
		return
	}
	rtt, ok := c.ping.pong(seq, c.now())
	if !ok {
		c.log.Debug("pong for unknown ping", "seq", seq)
		return
	}
	PingsTotal.WithLabelValues("received").Inc()
	PingRTT.Observe(float64(rtt) / float64(time.Millisecond))
}

// ---- packet test ----

// StartPingTest resets ping counters and starts pinging on the next tick.
func (c *Controller) StartPingTest() error {
	return c.update(func() error {
		if !c.link.Connected() {
			return ErrNotConnected
		}
		c.ping.restart()
		c.ping.enabled = true
		return c.send(protocol.RestartPing())
	})
}

func (c *Controller) StopPingTest() {
	_ = c.update(func() error {
		c.ping.enabled = false
		return nil
	})
}

func (c *Controller) PingStats() PingStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ping.stats()
}

// PingTick expires stale pings and sends one more if the window allows.
func (c *Controller) PingTick() {
	c.mu.Lock()
	if !c.ping.enabled || !c.link.Connected() {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	_ = c.update(func() error {
		now := c.now()
		if n := c.ping.expire(now); n > 0 {
			PingsTotal.WithLabelValues("expired").Add(float64(n))
		}
		seq, ok := c.ping.nextSeq()
		if !ok {
			return nil
		}
		if err := c.send(protocol.Ping(seq)); err != nil {
			return err
		}
		c.ping.markSent(seq, now)
		PingsTotal.WithLabelValues("sent").Inc()
		return nil
	})
}
