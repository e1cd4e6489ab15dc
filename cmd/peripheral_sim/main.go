package main

import (
	"context"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"cube_controller/internal/logger"
	"cube_controller/internal/protocol"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), false)

	addr := os.Getenv("SIM_ADDR")
	if addr == "" {
		addr = ":8090"
	}
	failRate := 0.2
	if v := os.Getenv("SIM_FAIL_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			failRate = f
		}
	}

	http.HandleFunc("/link", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", "error", err)
			return
		}
		logger.Info("controller attached", "remote", r.RemoteAddr)
		newCube(conn, failRate).serve(r.Context())
		logger.Info("controller detached", "remote", r.RemoteAddr)
	})

	logger.Info("peripheral simulator listening", "addr", addr, "fail_rate", failRate)
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal("listen failed", "error", err)
	}
}

// simCube plays the firmware side of the line protocol.
type simCube struct {
	conn     *websocket.Conn
	failRate float64

	writeMu sync.Mutex
	mu      sync.Mutex
	face    string
	round   int
	buf     strings.Builder
}

func newCube(conn *websocket.Conn, failRate float64) *simCube {
	return &simCube{conn: conn, failRate: failRate, face: "TOP"}
}

func (s *simCube) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer s.conn.Close()

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.buf.Write(msg)
		for {
			pending := s.buf.String()
			i := strings.IndexByte(pending, '\n')
			if i < 0 {
				break
			}
			s.buf.Reset()
			s.buf.WriteString(pending[i+1:])
			s.handle(ctx, strings.TrimSpace(pending[:i]))
		}
	}
}

func (s *simCube) handle(ctx context.Context, line string) {
	if line == "" {
		return
	}
	logger.Debug("rx", "line", line)

	switch {
	case strings.HasPrefix(line, protocol.CmdGameStart):
		s.mu.Lock()
		s.face = "TOP"
		s.round++
		s.mu.Unlock()
		s.send(protocol.EvtGameStartAck + " face=TOP")

	case strings.HasPrefix(line, protocol.CmdRoundStart):
		s.playRound(ctx, protocol.Fields(strings.TrimPrefix(line, protocol.CmdRoundStart)))

	case strings.HasPrefix(line, protocol.CmdGameEnd):
		s.mu.Lock()
		s.round++
		s.mu.Unlock()

	case strings.HasPrefix(line, protocol.CmdPing+" "):
		s.send(strings.TrimSpace(protocol.EvtPong) + " " + strings.TrimSpace(strings.TrimPrefix(line, protocol.CmdPing)))

	case strings.HasPrefix(line, protocol.CmdSetMode):
		s.send("LOG mode " + strings.TrimSpace(strings.TrimPrefix(line, protocol.CmdSetMode)))

	case line == protocol.CmdRestartPing,
		strings.HasPrefix(line, protocol.CmdDrawShape),
		line == protocol.CmdClearAll,
		strings.HasPrefix(line, protocol.CmdBeep):
		// display and audio only

	default:
		s.send("LOG unhandled " + line)
	}
}

// playRound balances on the start face, then ends the round after part of
// its duration. A round superseded by GAME END or a newer round is abandoned.
func (s *simCube) playRound(ctx context.Context, f map[string]string) {
	dur, _ := strconv.Atoi(f["duration"])
	if dur <= 0 {
		dur = 3000
	}

	s.mu.Lock()
	s.round++
	id := s.round
	side := s.face
	if from := f["from"]; from != "" {
		side = from
	}
	s.mu.Unlock()

	end := side
	if exp := f["expected"]; exp != "" {
		end = exp
	}
	result := "SUCCESS"
	if rand.Float64() < s.failRate {
		result = "FAIL"
		end = side
	}
	took := dur/4 + rand.IntN(dur/2+1)

	go func() {
		if !s.sleep(ctx, 300*time.Millisecond) || !s.current(id) {
			return
		}
		s.send(protocol.EvtRoundBalance + " side=" + side)

		if !s.sleep(ctx, time.Duration(took)*time.Millisecond) || !s.current(id) {
			return
		}
		s.mu.Lock()
		s.face = end
		s.mu.Unlock()

		line := protocol.EvtEndRound + " face=" + end + " result=" + result + " time=" + strconv.Itoa(took)
		if result == "FAIL" {
			line += " reason=timeout"
		}
		s.send(line)
	}()
}

func (s *simCube) current(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round == id
}

func (s *simCube) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// send writes one line split across two frames, the way a radio link
// delivers notifications in pieces.
func (s *simCube) send(line string) {
	data := line + "\n"
	cut := 1 + rand.IntN(len(data)-1)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	for _, part := range []string{data[:cut], data[cut:]} {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, []byte(part)); err != nil {
			logger.Warn("tx failed", "error", err)
			return
		}
	}
	logger.Debug("tx", "line", line)
}
