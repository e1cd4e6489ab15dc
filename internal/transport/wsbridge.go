package transport

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	maxChunk = 4096
)

// WSBridge reaches the peripheral through a websocket relay (a BLE/NUS
// gateway or the simulator). Every binary or text message is one chunk of
// the peripheral's byte stream; chunk boundaries carry no meaning.
type WSBridge struct {
	url            string
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	log            *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	onData func([]byte)
	onConn func(bool)

	writeMu   sync.Mutex
	connected atomic.Bool
}

func NewWSBridge(url string, reconnectDelay time.Duration, log *slog.Logger) *WSBridge {
	if log == nil {
		log = slog.Default()
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 2 * time.Second
	}
	return &WSBridge{
		url:            url,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: reconnectDelay,
		log:            log.With("component", "wsbridge", "url", url),
	}
}

func (b *WSBridge) OnData(fn func([]byte)) {
	b.mu.Lock()
	b.onData = fn
	b.mu.Unlock()
}

func (b *WSBridge) OnConnectionChange(fn func(bool)) {
	b.mu.Lock()
	b.onConn = fn
	b.mu.Unlock()
}

func (b *WSBridge) Connected() bool {
	return b.connected.Load()
}

// WriteWithoutResponse sends one buffer as a single text message.
func (b *WSBridge) WriteWithoutResponse(ctx context.Context, p []byte) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return ErrDisconnected
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	conn.SetWriteDeadline(deadline)
	return conn.WriteMessage(websocket.TextMessage, p)
}

// Run dials, pumps and redials until ctx is cancelled.
func (b *WSBridge) Run(ctx context.Context) error {
	for {
		conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Warn("dial failed", "error", err)
		} else {
			b.serve(ctx, conn)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.reconnectDelay):
		}
	}
}

func (b *WSBridge) serve(ctx context.Context, conn *websocket.Conn) {
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	b.connected.Store(true)
	b.log.Info("peripheral connected")
	b.notify(true)

	done := make(chan struct{})
	go b.keepalive(ctx, conn, done)

	b.readPump(conn)
	close(done)

	b.mu.Lock()
	b.conn = nil
	b.mu.Unlock()
	b.connected.Store(false)
	_ = conn.Close()
	b.log.Info("peripheral disconnected")
	b.notify(false)
}

func (b *WSBridge) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxChunk)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.log.Warn("read error", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		b.mu.Lock()
		fn := b.onData
		b.mu.Unlock()
		if fn != nil {
			fn(msg)
		}
	}
}

// keepalive pings the relay and closes the socket when ctx ends so the
// blocked reader returns.
func (b *WSBridge) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			b.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			b.writeMu.Unlock()
			_ = conn.Close()
			return
		case <-ticker.C:
			b.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			b.writeMu.Unlock()
			if err != nil {
				b.log.Warn("ping failed", "error", err)
				_ = conn.Close()
				return
			}
		}
	}
}

func (b *WSBridge) notify(up bool) {
	b.mu.Lock()
	fn := b.onConn
	b.mu.Unlock()
	if fn != nil {
		fn(up)
	}
}
