package transport

import (
	"context"
	"sync"
)

// Pipe is an in-process Link that tests use in place of the radio link.
// Deliver injects inbound chunks, Writes returns what the controller sent.
type Pipe struct {
	mu        sync.Mutex
	connected bool
	onData    func([]byte)
	onConn    func(bool)
	writes    [][]byte

	// FailWrite, when set, decides per write whether it fails.
	FailWrite func(b []byte) error
	// AfterWrite is called with every successful write, outside the lock.
	AfterWrite func(b []byte)
}

func NewPipe(connected bool) *Pipe {
	return &Pipe{connected: connected}
}

func (p *Pipe) OnData(fn func([]byte)) {
	p.mu.Lock()
	p.onData = fn
	p.mu.Unlock()
}

func (p *Pipe) OnConnectionChange(fn func(bool)) {
	p.mu.Lock()
	p.onConn = fn
	p.mu.Unlock()
}

func (p *Pipe) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *Pipe) WriteWithoutResponse(ctx context.Context, b []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return ErrDisconnected
	}
	fail := p.FailWrite
	p.mu.Unlock()

	if fail != nil {
		if err := fail(b); err != nil {
			return err
		}
	}

	cp := append([]byte(nil), b...)
	p.mu.Lock()
	p.writes = append(p.writes, cp)
	after := p.AfterWrite
	p.mu.Unlock()

	if after != nil {
		after(cp)
	}
	return nil
}

// SetConnected flips the link state and notifies the subscriber.
func (p *Pipe) SetConnected(up bool) {
	p.mu.Lock()
	p.connected = up
	fn := p.onConn
	p.mu.Unlock()
	if fn != nil {
		fn(up)
	}
}

// Deliver hands a chunk of inbound bytes to the subscriber.
func (p *Pipe) Deliver(chunk []byte) {
	p.mu.Lock()
	fn := p.onData
	p.mu.Unlock()
	if fn != nil {
		fn(chunk)
	}
}

// Writes returns every written buffer, oldest first.
func (p *Pipe) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}

// Lines returns the written buffers as strings with the terminator removed.
func (p *Pipe) Lines() []string {
	ws := p.Writes()
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		s := string(w)
		if n := len(s); n > 0 && s[n-1] == '\n' {
			s = s[:n-1]
		}
		out = append(out, s)
	}
	return out
}

func (p *Pipe) Reset() {
	p.mu.Lock()
	p.writes = nil
	p.mu.Unlock()
}
