package session

import (
	"time"
)

const (
	DefaultPingInterval    = 100 * time.Millisecond
	DefaultPingMaxInFlight = 10
	DefaultPingTTL         = 3 * time.Second
)

// PingStats is the packet-test view exposed to operators.
type PingStats struct {
	Enabled  bool    `json:"enabled"`
	Sent     uint64  `json:"sent"`
	Received uint64  `json:"received"`
	Expired  uint64  `json:"expired"`
	InFlight int     `json:"in_flight"`
	LossRate float64 `json:"loss_rate"`
	AvgRTTMS float64 `json:"avg_rtt_ms"`
}

// pingTest tracks RTT pings. The controller owns it and calls it under its
// lock; it performs no I/O itself.
type pingTest struct {
	maxInFlight int
	ttl         time.Duration

	enabled  bool
	seq      uint64
	pending  map[uint64]time.Time
	sent     uint64
	received uint64
	expired  uint64
	avgRTT   float64
}

func newPingTest(maxInFlight int, ttl time.Duration) *pingTest {
	if maxInFlight <= 0 {
		maxInFlight = DefaultPingMaxInFlight
	}
	return &pingTest{
		maxInFlight: maxInFlight,
		ttl:         ttl,
		pending:     make(map[uint64]time.Time),
	}
}

// restart zeroes the counters and sequence for a fresh run.
func (p *pingTest) restart() {
	p.seq = 0
	p.sent, p.received, p.expired = 0, 0, 0
	p.avgRTT = 0
	clear(p.pending)
}

// expire drops pings older than the TTL and counts them as lost.
func (p *pingTest) expire(now time.Time) int {
	if p.ttl <= 0 {
		return 0
	}
	n := 0
	for seq, at := range p.pending {
		if now.Sub(at) > p.ttl {
			delete(p.pending, seq)
			p.expired++
			n++
		}
	}
	return n
}

// nextSeq returns the sequence for the next ping, or false when the
// in-flight window is full. Nothing is recorded until sent is called.
func (p *pingTest) nextSeq() (uint64, bool) {
	if len(p.pending) >= p.maxInFlight {
		return 0, false
	}
	return p.seq + 1, true
}

func (p *pingTest) markSent(seq uint64, now time.Time) {
	p.seq = seq
	p.pending[seq] = now
	p.sent++
}

// pong settles a ping and folds its RTT into the running mean.
func (p *pingTest) pong(seq uint64, now time.Time) (time.Duration, bool) {
	at, ok := p.pending[seq]
	if !ok {
		return 0, false
	}
	delete(p.pending, seq)
	rtt := now.Sub(at)
	p.received++
	ms := float64(rtt) / float64(time.Millisecond)
	p.avgRTT += (ms - p.avgRTT) / float64(p.received)
	return rtt, true
}

// clearInFlight forgets outstanding pings; counters are kept.
func (p *pingTest) clearInFlight() {
	clear(p.pending)
}

func (p *pingTest) stats() PingStats {
	s := PingStats{
		Enabled:  p.enabled,
		Sent:     p.sent,
		Received: p.received,
		Expired:  p.expired,
		InFlight: len(p.pending),
		AvgRTTMS: p.avgRTT,
	}
	if p.sent > 0 {
		s.LossRate = float64(p.sent-p.received) / float64(p.sent)
	}
	return s
}
