package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cube_controller/internal/transport"
)

const writeTimeout = 10 * time.Second

var (
	ErrNotConnected = errors.New("peripheral not connected")
	ErrDropped      = errors.New("write dropped before sending")
	ErrQueueClosed  = errors.New("write queue closed")
	ErrEmptyLine    = errors.New("empty line")
)

type writeJob struct {
	line []byte
	done chan error
}

// WriteQueue serializes every outbound line onto the link. Lines go out in
// Enqueue order with at most one write in flight; a failed write is logged
// and the next line proceeds. There are no retries.
type WriteQueue struct {
	write     transport.WriteFunc
	connected func() bool
	log       *slog.Logger
	written   func(line string, err error)

	mu      sync.Mutex
	pending []*writeJob
	closed  bool
	wake    chan struct{}
}

func NewWriteQueue(write transport.WriteFunc, connected func() bool, log *slog.Logger) *WriteQueue {
	if log == nil {
		log = slog.Default()
	}
	return &WriteQueue{
		write:     write,
		connected: connected,
		log:       log,
		wake:      make(chan struct{}, 1),
	}
}

// OnWritten registers fn to see every write outcome. Call it before Run.
func (q *WriteQueue) OnWritten(fn func(line string, err error)) {
	q.written = fn
}

// Enqueue appends a line (the terminator is added when missing). The
// returned channel yields the write outcome exactly once. When the link is
// down nothing is queued and ErrNotConnected is returned.
func (q *WriteQueue) Enqueue(line string) (<-chan error, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil, ErrEmptyLine
	}
	if !q.connected() {
		WritesTotal.WithLabelValues("rejected").Inc()
		return nil, ErrNotConnected
	}

	job := &writeJob{line: []byte(line + "\n"), done: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	q.pending = append(q.pending, job)
	WriteQueueDepth.Set(float64(len(q.pending)))
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return job.done, nil
}

// Send enqueues a line and waits for its write to finish.
func (q *WriteQueue) Send(ctx context.Context, line string) error {
	done, err := q.Enqueue(line)
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

// Drop discards every line that has not started writing.
func (q *WriteQueue) Drop() int {
	q.mu.Lock()
	dropped := q.pending
	q.pending = nil
	WriteQueueDepth.Set(0)
	q.mu.Unlock()

	for _, job := range dropped {
		job.done <- ErrDropped
	}
	if n := len(dropped); n > 0 {
		WritesTotal.WithLabelValues("dropped").Add(float64(n))
		q.log.Info("dropped unsent lines", "count", n)
	}
	return len(dropped)
}

func (q *WriteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run is the single writer. It returns when ctx is cancelled; lines still
// pending at that point fail with ErrQueueClosed.
func (q *WriteQueue) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			q.close()
			return
		}
		job := q.next()
		if job == nil {
			select {
			case <-q.wake:
				continue
			case <-ctx.Done():
				q.close()
				return
			}
		}

		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := q.write(wctx, job.line)
		cancel()

		line := strings.TrimSpace(string(job.line))
		if err != nil {
			WritesTotal.WithLabelValues("error").Inc()
			q.log.Warn("write failed", "line", line, "error", err)
		} else {
			WritesTotal.WithLabelValues("ok").Inc()
			q.log.Debug("sent", "line", line)
		}
		if q.written != nil {
			q.written(line, err)
		}
		job.done <- err
	}
}

func (q *WriteQueue) next() *writeJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	job := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	WriteQueueDepth.Set(float64(len(q.pending)))
	return job
}

func (q *WriteQueue) close() {
	q.mu.Lock()
	q.closed = true
	rest := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, job := range rest {
		job.done <- ErrQueueClosed
	}
}
