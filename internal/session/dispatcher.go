package session

import (
	"bytes"
	"encoding/hex"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"
)

// maxPending bounds the bytes held while waiting for a terminator.
const maxPending = 4096

type route struct {
	name   string
	prefix string
	fn     func(line string)
}

// Dispatcher turns the inbound byte stream into lines and routes each line
// by prefix. A line is dispatched only once its terminator has arrived, even
// when it spans several chunks. It is not safe for concurrent use.
type Dispatcher struct {
	log      *slog.Logger
	buf      []byte
	routes   []route
	fallback func(line string)
	observe  func(line string)
	// discarding is set after an overflow; input is dropped through the
	// next terminator so the tail of the overlong line is never routed.
	discarding bool
}

func NewDispatcher(log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{log: log}
}

// Handle registers fn for lines starting with prefix. Longer prefixes are
// tried first.
func (d *Dispatcher) Handle(name, prefix string, fn func(line string)) {
	d.routes = append(d.routes, route{name: name, prefix: prefix, fn: fn})
	sort.SliceStable(d.routes, func(i, j int) bool {
		return len(d.routes[i].prefix) > len(d.routes[j].prefix)
	})
}

// Fallback receives lines no route matched.
func (d *Dispatcher) Fallback(fn func(line string)) {
	d.fallback = fn
}

// Observe receives every decoded, non-blank line before it is routed.
func (d *Dispatcher) Observe(fn func(line string)) {
	d.observe = fn
}

// Feed appends a chunk and dispatches every completed line in order.
func (d *Dispatcher) Feed(chunk []byte) {
	if d.discarding {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			return
		}
		d.discarding = false
		chunk = chunk[i+1:]
	}
	d.buf = append(d.buf, chunk...)

	start := 0
	for {
		i := bytes.IndexByte(d.buf[start:], '\n')
		if i < 0 {
			break
		}
		raw := d.buf[start : start+i]
		start += i + 1
		d.line(raw)
	}

	if start > 0 {
		d.buf = append([]byte(nil), d.buf[start:]...)
	}
	if len(d.buf) > maxPending {
		d.log.Warn("discarding unterminated input", "bytes", len(d.buf))
		InboundLines.WithLabelValues("overflow").Inc()
		d.buf = nil
		d.discarding = true
	}
}

// Reset forgets any partial line.
func (d *Dispatcher) Reset() {
	d.buf = nil
	d.discarding = false
}

// Pending reports the number of buffered bytes awaiting a terminator.
func (d *Dispatcher) Pending() int {
	return len(d.buf)
}

func (d *Dispatcher) line(raw []byte) {
	if !utf8.Valid(raw) {
		d.log.Warn("undecodable line", "hex", hex.EncodeToString(raw))
		InboundLines.WithLabelValues("undecodable").Inc()
		return
	}
	line := strings.TrimSpace(string(raw))
	if line == "" {
		return
	}
	if d.observe != nil {
		d.observe(line)
	}

	for _, r := range d.routes {
		if strings.HasPrefix(line, r.prefix) {
			InboundLines.WithLabelValues(r.name).Inc()
			r.fn(line)
			return
		}
	}

	InboundLines.WithLabelValues("unrouted").Inc()
	if d.fallback != nil {
		d.fallback(line)
		return
	}
	d.log.Info("peripheral", "line", line)
}
