package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cube_controller/internal/cube"
	"cube_controller/internal/game"
	"cube_controller/internal/transport"
)

func mustArrowRound(t *testing.T, from, to cube.Face, mode game.Mode, dur, rem int) game.Round {
	t.Helper()
	r, err := game.NewArrowRound(from, to, mode, dur, rem)
	if err != nil {
		t.Fatalf("NewArrowRound: %v", err)
	}
	return r
}

func TestGameStartAckPlansFirstRound(t *testing.T) {
	// arrow, first neighbour of TOP (LEFT), normal mode
	c, pipe, _ := newTestController(t, 0.9, 0.0, 0.9)

	if err := c.StartGame(3, 3000); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	lines := waitLines(t, pipe, 1)
	if lines[0] != "GAME START type=SIMON" {
		t.Fatalf("first line = %q", lines[0])
	}

	pipe.Deliver([]byte("OK GAME START face=TOP\n"))
	lines = waitLines(t, pipe, 2)

	want := "ROUND START type=ARROW from=TOP to=LEFT expected=LEFT duration=3000 remaining=3"
	if lines[1] != want {
		t.Fatalf("round start = %q, want %q", lines[1], want)
	}
	st := c.State()
	if st.Phase != PhaseWaitBalance {
		t.Fatalf("phase = %s, want %s", st.Phase, PhaseWaitBalance)
	}
	if st.Round == nil || st.Round.From != cube.Top {
		t.Fatalf("round = %+v", st.Round)
	}
	if st.Starting {
		t.Fatalf("still starting after ack")
	}
}

func TestGameStartAckSplitAcrossChunks(t *testing.T) {
	c, pipe, _ := newTestController(t, 0.1, 0.5, 0.5)
	if err := c.StartGame(2, 3000); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	waitLines(t, pipe, 1)

	pipe.Deliver([]byte("OK GAME "))
	if st := c.State(); st.Phase != PhaseIdle {
		t.Fatalf("dispatched before terminator, phase = %s", st.Phase)
	}
	pipe.Deliver([]byte("START face=FRONT\r\n"))
	lines := waitLines(t, pipe, 2)
	if !strings.HasPrefix(lines[1], "ROUND START type=PAUSE") {
		t.Fatalf("round start = %q", lines[1])
	}
}

func TestBalanceDrawsArrowRound(t *testing.T) {
	tests := []struct {
		name string
		mode game.Mode
		beep string
	}{
		{"normal", game.ModeNormal, "BEEP freq=880 dur=150"},
		{"opposite", game.ModeOpposite, "BEEP freq=440 dur=300"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, pipe, _ := newTestController(t)
			r := mustArrowRound(t, cube.Top, cube.Left, tt.mode, 3000, 3)
			if err := c.ManualRoundStart(r); err != nil {
				t.Fatalf("ManualRoundStart: %v", err)
			}
			waitLines(t, pipe, 1)

			pipe.Deliver([]byte("ROUND BALANCE side=TOP\n"))
			lines := waitLines(t, pipe, 5)

			arrow := cube.MustArrow(cube.Top, cube.Left)
			want := []string{
				"CLEAR ALL",
				"DRAW SHAPE TOP " + arrow.String() + " YELLOW",
				"DRAW SHAPE LEFT CIRCLE BLUE",
				tt.beep,
			}
			for i, w := range want {
				if lines[i+1] != w {
					t.Fatalf("line %d = %q, want %q", i+1, lines[i+1], w)
				}
			}
			if st := c.State(); st.Phase != PhasePlaying {
				t.Fatalf("phase = %s, want %s", st.Phase, PhasePlaying)
			}
		})
	}
}

func TestOppositeRoundAnnouncesOppositeFace(t *testing.T) {
	c, pipe, _ := newTestController(t)
	r := mustArrowRound(t, cube.Front, cube.Top, game.ModeOpposite, 2500, 4)
	if err := c.ManualRoundStart(r); err != nil {
		t.Fatalf("ManualRoundStart: %v", err)
	}
	lines := waitLines(t, pipe, 1)
	want := "ROUND START type=ARROW from=FRONT to=TOP expected=BOTTOM duration=2500 remaining=4"
	if lines[0] != want {
		t.Fatalf("got %q, want %q", lines[0], want)
	}
}

func TestBalanceOnOtherAdjacentFaceRedrawsArrow(t *testing.T) {
	c, pipe, _ := newTestController(t)
	r := mustArrowRound(t, cube.Top, cube.Left, game.ModeNormal, 3000, 3)
	if err := c.ManualRoundStart(r); err != nil {
		t.Fatalf("ManualRoundStart: %v", err)
	}
	waitLines(t, pipe, 1)

	pipe.Deliver([]byte("ROUND BALANCE side=FRONT\n"))
	lines := waitLines(t, pipe, 5)

	want := "DRAW SHAPE FRONT " + cube.MustArrow(cube.Front, cube.Left).String() + " YELLOW"
	if lines[2] != want {
		t.Fatalf("arrow line = %q, want %q", lines[2], want)
	}
}

func TestBalanceOnUnreachableFaceIsIgnored(t *testing.T) {
	c, pipe, _ := newTestController(t)
	r := mustArrowRound(t, cube.Top, cube.Left, game.ModeNormal, 3000, 3)
	if err := c.ManualRoundStart(r); err != nil {
		t.Fatalf("ManualRoundStart: %v", err)
	}
	waitLines(t, pipe, 1)

	// RIGHT is across from the target, no arrow can point at it.
	pipe.Deliver([]byte("ROUND BALANCE side=RIGHT\n"))
	waitIdle(t, c)
	if n := len(pipe.Lines()); n != 1 {
		t.Fatalf("expected no draw commands, got %q", pipe.Lines())
	}
	if st := c.State(); st.Phase != PhaseWaitBalance {
		t.Fatalf("phase = %s, want %s", st.Phase, PhaseWaitBalance)
	}
}

func TestBalanceOnPauseRoundOnlyClears(t *testing.T) {
	c, pipe, _ := newTestController(t)
	if err := c.ManualRoundStart(game.NewPauseRound(2500, 2)); err != nil {
		t.Fatalf("ManualRoundStart: %v", err)
	}
	lines := waitLines(t, pipe, 1)
	if lines[0] != "ROUND START type=PAUSE duration=2500 remaining=2" {
		t.Fatalf("round start = %q", lines[0])
	}

	pipe.Deliver([]byte("ROUND BALANCE side=BACK\n"))
	waitLines(t, pipe, 2)
	waitIdle(t, c)
	lines = pipe.Lines()
	if len(lines) != 2 || lines[1] != "CLEAR ALL" {
		t.Fatalf("lines = %q", lines)
	}
	if st := c.State(); st.Phase != PhasePlaying {
		t.Fatalf("phase = %s", st.Phase)
	}
}

func TestLastRoundEndsGame(t *testing.T) {
	c, pipe, _ := newTestController(t, 0.5)
	r := mustArrowRound(t, cube.Top, cube.Left, game.ModeNormal, 3000, 1)
	if err := c.ManualRoundStart(r); err != nil {
		t.Fatalf("ManualRoundStart: %v", err)
	}
	pipe.Deliver([]byte("ROUND BALANCE side=TOP\n"))
	pipe.Deliver([]byte("END ROUND face=LEFT result=SUCCESS time=812\n"))

	lines := waitLines(t, pipe, 6)
	if lines[5] != "GAME END" {
		t.Fatalf("last line = %q, want GAME END", lines[5])
	}

	st := c.State()
	if st.Remaining != 0 {
		t.Fatalf("remaining = %d", st.Remaining)
	}
	if st.Phase != PhaseIdle || st.Round != nil {
		t.Fatalf("phase = %s round = %+v", st.Phase, st.Round)
	}
	if st.Rounds.Played != 1 || st.Rounds.Succeeded != 1 {
		t.Fatalf("rounds = %+v", st.Rounds)
	}
	// 0.5 draws a 10% step plus 2% for a streak of one.
	if st.Difficulty.BaseDurationMS != 2640 || st.Difficulty.SuccessStreak != 1 {
		t.Fatalf("difficulty = %+v", st.Difficulty)
	}
}

func TestEndRoundPlansNextFromEndedFace(t *testing.T) {
	// difficulty step, then a pause round
	c, pipe, _ := newTestController(t, 0.5, 0.1, 0.4, 0.4)
	r := mustArrowRound(t, cube.Top, cube.Left, game.ModeNormal, 3000, 3)
	if err := c.ManualRoundStart(r); err != nil {
		t.Fatalf("ManualRoundStart: %v", err)
	}
	pipe.Deliver([]byte("ROUND BALANCE side=TOP\n"))
	pipe.Deliver([]byte("END ROUND face=LEFT result=SUCCESS\n"))

	lines := waitLines(t, pipe, 6)
	if !strings.HasPrefix(lines[5], "ROUND START type=PAUSE") || !strings.HasSuffix(lines[5], "remaining=2") {
		t.Fatalf("next round = %q", lines[5])
	}
	st := c.State()
	if st.Phase != PhaseWaitBalance || st.Remaining != 2 {
		t.Fatalf("phase = %s remaining = %d", st.Phase, st.Remaining)
	}
	if st.Round == nil || st.Round.DurationMS < game.MinPauseMS || st.Round.DurationMS > 2640 {
		t.Fatalf("round = %+v", st.Round)
	}
}

func TestEndRoundFailLengthensRounds(t *testing.T) {
	c, pipe, _ := newTestController(t, 0.5)
	r := mustArrowRound(t, cube.Top, cube.Left, game.ModeNormal, 3000, 2)
	if err := c.ManualRoundStart(r); err != nil {
		t.Fatalf("ManualRoundStart: %v", err)
	}
	pipe.Deliver([]byte("ROUND BALANCE side=TOP\n"))
	pipe.Deliver([]byte("END ROUND face=LEFT result=FAIL reason=timeout\n"))
	waitLines(t, pipe, 6)

	st := c.State()
	if st.Difficulty.BaseDurationMS != 3360 || st.Difficulty.FailStreak != 1 {
		t.Fatalf("difficulty = %+v", st.Difficulty)
	}
	if st.Rounds.Failed != 1 {
		t.Fatalf("rounds = %+v", st.Rounds)
	}
	if st.Round == nil || st.Round.From != cube.Left || st.Round.DurationMS != 3360 {
		t.Fatalf("next round = %+v", st.Round)
	}
}

func TestLegacyEndRoundCountsAsSuccess(t *testing.T) {
	c, pipe, _ := newTestController(t, 0.5)
	r := mustArrowRound(t, cube.Top, cube.Left, game.ModeNormal, 3000, 1)
	if err := c.ManualRoundStart(r); err != nil {
		t.Fatalf("ManualRoundStart: %v", err)
	}
	// late arrival while still waiting for balance
	pipe.Deliver([]byte("END ROUND LEFT\n"))
	lines := waitLines(t, pipe, 2)
	if lines[1] != "GAME END" {
		t.Fatalf("got %q", lines[1])
	}
	if st := c.State(); st.Rounds.Succeeded != 1 {
		t.Fatalf("rounds = %+v", st.Rounds)
	}
}

func TestEventsInWrongPhaseAreIgnored(t *testing.T) {
	c, pipe, _ := newTestController(t, 0.5)

	pipe.Deliver([]byte("ROUND BALANCE side=TOP\nEND ROUND face=TOP result=SUCCESS\nOK GAME START face=TOP\n"))
	pipe.Deliver([]byte("just chatter from the firmware\n"))
	waitIdle(t, c)

	if lines := pipe.Lines(); len(lines) != 0 {
		t.Fatalf("unexpected writes %q", lines)
	}
	st := c.State()
	if st.Phase != PhaseIdle || st.Rounds.Played != 0 {
		t.Fatalf("state changed: %+v", st)
	}
}

func TestMalformedEndRoundKeepsRound(t *testing.T) {
	c, pipe, _ := newTestController(t)
	r := mustArrowRound(t, cube.Top, cube.Left, game.ModeNormal, 3000, 2)
	if err := c.ManualRoundStart(r); err != nil {
		t.Fatalf("ManualRoundStart: %v", err)
	}
	waitLines(t, pipe, 1)
	pipe.Deliver([]byte("END ROUND face=LEFT\n"))
	waitIdle(t, c)

	st := c.State()
	if st.Round == nil || st.Remaining != 2 || st.Phase != PhaseWaitBalance {
		t.Fatalf("state = %+v", st)
	}
}

func TestEndGame(t *testing.T) {
	c, pipe, _ := newTestController(t, 0.5)
	r := mustArrowRound(t, cube.Top, cube.Left, game.ModeNormal, 3000, 5)
	if err := c.ManualRoundStart(r); err != nil {
		t.Fatalf("ManualRoundStart: %v", err)
	}
	pipe.Deliver([]byte("ROUND BALANCE side=TOP\n"))
	pipe.Deliver([]byte("END ROUND face=LEFT result=SUCCESS\n"))
	waitLines(t, pipe, 6)
	if d := c.State().Difficulty; d.BaseDurationMS != 2640 || d.SuccessStreak != 1 {
		t.Fatalf("difficulty before end = %+v", d)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.EndGame(ctx); err != nil {
		t.Fatalf("EndGame: %v", err)
	}
	// EndGame returns once the line is written
	lines := pipe.Lines()
	if len(lines) != 7 || lines[6] != "GAME END" {
		t.Fatalf("lines = %q", lines)
	}
	st := c.State()
	if st.Phase != PhaseIdle || st.Round != nil || st.Remaining != 0 {
		t.Fatalf("state = %+v", st)
	}
	want := game.NewDifficulty(game.DefaultRoundMS)
	if st.Difficulty != want {
		t.Fatalf("difficulty = %+v, want %+v", st.Difficulty, want)
	}
}

func TestEndGameWrittenBeforeShutdown(t *testing.T) {
	pipe := transport.NewPipe(true)
	c, err := New(pipe, Options{Rand: &seqSource{}, Logger: quietLogger(), PingInterval: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	if err := c.EndGame(shutdownCtx); err != nil {
		t.Fatalf("EndGame: %v", err)
	}
	cancel()

	if lines := pipe.Lines(); len(lines) != 1 || lines[0] != "GAME END" {
		t.Fatalf("lines = %q", lines)
	}
}

func TestEndGameRequiresConnection(t *testing.T) {
	c, pipe, _ := newTestController(t)
	pipe.SetConnected(false)
	if err := c.EndGame(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestElapsedClock(t *testing.T) {
	c, pipe, clock := newTestController(t)
	if err := c.StartGame(3, 3000); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	clock.Advance(1500 * time.Millisecond)
	if got := c.State().ElapsedMS; got != 1500 {
		t.Fatalf("elapsed while running = %d", got)
	}

	if err := c.EndGame(context.Background()); err != nil {
		t.Fatalf("EndGame: %v", err)
	}
	clock.Advance(time.Second)
	if got := c.State().ElapsedMS; got != 1500 {
		t.Fatalf("elapsed after end = %d, want 1500", got)
	}

	// a new start resets it, a disconnect stops it
	if err := c.ManualGameStart(3000, 2); err != nil {
		t.Fatalf("ManualGameStart: %v", err)
	}
	if got := c.State().ElapsedMS; got != 0 {
		t.Fatalf("elapsed after restart = %d", got)
	}
	clock.Advance(700 * time.Millisecond)
	pipe.SetConnected(false)
	clock.Advance(time.Second)
	if got := c.State().ElapsedMS; got != 700 {
		t.Fatalf("elapsed after disconnect = %d, want 700", got)
	}
}

func TestSessionModeRoundTrip(t *testing.T) {
	c, pipe, clock := newTestController(t)
	if err := c.SetMode(ModeMemory); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	lines := waitLines(t, pipe, 1)
	if lines[0] != "SET MODE mode=memory" {
		t.Fatalf("got %q", lines[0])
	}
	if st := c.State(); st.Mode != ModeMemory {
		t.Fatalf("mode = %q", st.Mode)
	}

	clock.Advance(61250 * time.Millisecond)
	if err := c.EndGame(context.Background()); err != nil {
		t.Fatalf("EndGame: %v", err)
	}
	lines = pipe.Lines()
	if lines[1] != "GAME END mode=memory duration=61250" {
		t.Fatalf("got %q", lines[1])
	}
	st := c.State()
	if st.Mode != "" || st.ElapsedMS != 61250 {
		t.Fatalf("state = %+v", st)
	}

	if err := c.SetMode("speed"); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("err = %v, want ErrInvalidParams", err)
	}
	pipe.SetConnected(false)
	if err := c.SetMode(ModeFocus); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestLinesJournal(t *testing.T) {
	c, pipe, _ := newTestController(t)
	pipe.Deliver([]byte("hello from firmware\n"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Command(ctx, "BEEP2"); err != nil {
		t.Fatalf("Command: %v", err)
	}

	pipe.FailWrite = func([]byte) error { return errors.New("gatt busy") }
	_ = c.Command(ctx, "STOP")

	got := c.Lines()
	if len(got) != 3 {
		t.Fatalf("entries = %+v", got)
	}
	if got[0].Dir != DirRx || got[0].Line != "hello from firmware" {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Dir != DirTx || got[1].Line != "BEEP2" || got[1].Error != "" {
		t.Fatalf("second = %+v", got[1])
	}
	if got[2].Dir != DirTx || got[2].Line != "STOP" || got[2].Error != "gatt busy" {
		t.Fatalf("third = %+v", got[2])
	}
}

func TestManualGameStart(t *testing.T) {
	c, pipe, _ := newTestController(t)
	if err := c.ManualGameStart(4000, 6); err != nil {
		t.Fatalf("ManualGameStart: %v", err)
	}
	lines := waitLines(t, pipe, 1)
	if lines[0] != "GAME START duration=4000 remaining=6" {
		t.Fatalf("got %q", lines[0])
	}
	st := c.State()
	if st.Remaining != 6 || st.Difficulty.BaseDurationMS != 4000 || !st.Starting {
		t.Fatalf("state = %+v", st)
	}
}

func TestManualRoundStartRejectsBadRounds(t *testing.T) {
	c, _, _ := newTestController(t)
	bad := []game.Round{
		{Kind: game.KindArrow, From: cube.Top, To: cube.Bottom, DurationMS: 3000, Remaining: 1},
		{Kind: game.KindArrow, From: cube.Top, To: cube.Top, DurationMS: 3000, Remaining: 1},
		{Kind: "SPIN", DurationMS: 3000, Remaining: 1},
		game.NewPauseRound(0, 1),
		game.NewPauseRound(3000, 0),
	}
	for _, r := range bad {
		if err := c.ManualRoundStart(r); !errors.Is(err, ErrInvalidParams) {
			t.Fatalf("round %+v: err = %v, want ErrInvalidParams", r, err)
		}
	}
}

func TestStartGameRequiresConnection(t *testing.T) {
	pipe := transport.NewPipe(false)
	c, err := New(pipe, Options{Rand: &seqSource{}, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.StartGame(3, 3000); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
	if err := c.StartGame(0, 3000); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("err = %v, want ErrInvalidParams", err)
	}
}

func TestDisconnectResetsSession(t *testing.T) {
	c, pipe, _ := newTestController(t, 0.5)
	if err := c.StartPingTest(); err != nil {
		t.Fatalf("StartPingTest: %v", err)
	}
	for range 4 {
		c.PingTick()
	}
	waitLines(t, pipe, 5)
	if got := c.PingStats().InFlight; got != 4 {
		t.Fatalf("in flight = %d, want 4", got)
	}

	r := mustArrowRound(t, cube.Top, cube.Left, game.ModeNormal, 3000, 3)
	if err := c.ManualRoundStart(r); err != nil {
		t.Fatalf("ManualRoundStart: %v", err)
	}
	pipe.Deliver([]byte("ROUND BALANCE side=TOP\nEND ROUND face=LEFT result=SUCCESS\nROUND BAL"))

	pipe.SetConnected(false)

	st := c.State()
	if st.Connected {
		t.Fatalf("still connected")
	}
	if st.Ping.InFlight != 0 || st.Ping.Sent != 4 || st.Ping.Received != 0 {
		t.Fatalf("ping = %+v", st.Ping)
	}
	if st.Phase != PhaseIdle || st.Round != nil {
		t.Fatalf("phase = %s round = %+v", st.Phase, st.Round)
	}
	if st.QueueLen != 0 {
		t.Fatalf("queue len = %d", st.QueueLen)
	}
	if st.Difficulty.SuccessStreak != 1 {
		t.Fatalf("streak lost on disconnect: %+v", st.Difficulty)
	}
	if c.disp.Pending() != 0 {
		t.Fatalf("partial line survived disconnect")
	}

	pipe.SetConnected(true)
	if !c.State().Connected {
		t.Fatalf("not connected after reconnect")
	}
}

func TestPingRoundTripMean(t *testing.T) {
	c, pipe, clock := newTestController(t)
	if err := c.StartPingTest(); err != nil {
		t.Fatalf("StartPingTest: %v", err)
	}
	lines := waitLines(t, pipe, 1)
	if lines[0] != "RESTART PING" {
		t.Fatalf("got %q", lines[0])
	}

	c.PingTick()
	clock.Advance(40 * time.Millisecond)
	pipe.Deliver([]byte("PONG 1\n"))
	c.PingTick()
	clock.Advance(20 * time.Millisecond)
	pipe.Deliver([]byte("PONG 2\n"))
	pipe.Deliver([]byte("PONG 99\n"))

	lines = waitLines(t, pipe, 3)
	if lines[1] != "PING 1" || lines[2] != "PING 2" {
		t.Fatalf("lines = %q", lines)
	}
	s := c.PingStats()
	if s.Sent != 2 || s.Received != 2 || s.InFlight != 0 {
		t.Fatalf("stats = %+v", s)
	}
	if s.AvgRTTMS != 30 || s.LossRate != 0 {
		t.Fatalf("avg = %v loss = %v", s.AvgRTTMS, s.LossRate)
	}
}

func TestPingExpiresStalePings(t *testing.T) {
	c, _, clock := newTestController(t)
	if err := c.StartPingTest(); err != nil {
		t.Fatalf("StartPingTest: %v", err)
	}
	c.PingTick()
	clock.Advance(4 * time.Second)
	c.PingTick()

	s := c.PingStats()
	if s.Sent != 2 || s.Expired != 1 || s.InFlight != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if s.LossRate != 1 {
		t.Fatalf("loss = %v", s.LossRate)
	}
}

func TestPingRespectsInFlightCap(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.StartPingTest(); err != nil {
		t.Fatalf("StartPingTest: %v", err)
	}
	for range DefaultPingMaxInFlight + 3 {
		c.PingTick()
	}
	if s := c.PingStats(); s.Sent != DefaultPingMaxInFlight {
		t.Fatalf("sent = %d, want %d", s.Sent, DefaultPingMaxInFlight)
	}

	c.StopPingTest()
	c.PingTick()
	if s := c.PingStats(); s.Enabled || s.Sent != DefaultPingMaxInFlight {
		t.Fatalf("stats after stop = %+v", s)
	}
}

func TestCommandPassthrough(t *testing.T) {
	c, pipe, _ := newTestController(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.Command(ctx, "BEEP1"); err != nil {
		t.Fatalf("Command: %v", err)
	}
	if lines := pipe.Lines(); len(lines) != 1 || lines[0] != "BEEP1" {
		t.Fatalf("lines = %q", lines)
	}
	if err := c.Command(ctx, "BEEP1\nSTOP"); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("err = %v", err)
	}
	if err := c.Command(ctx, "   "); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("err = %v", err)
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	c, pipe, _ := newTestController(t)

	var got []State
	cancel := c.Subscribe(func(s State) { got = append(got, s) })

	if err := c.ManualRoundStart(game.NewPauseRound(3000, 2)); err != nil {
		t.Fatalf("ManualRoundStart: %v", err)
	}
	pipe.Deliver([]byte("ROUND BALANCE side=TOP\n"))
	cancel()
	pipe.Deliver([]byte("END ROUND face=TOP result=SUCCESS\n"))

	if len(got) != 2 {
		t.Fatalf("notifications = %d, want 2", len(got))
	}
	if got[0].Version >= got[1].Version {
		t.Fatalf("versions not increasing: %d, %d", got[0].Version, got[1].Version)
	}
	if got[1].Phase != PhasePlaying {
		t.Fatalf("last phase = %s", got[1].Phase)
	}
}
