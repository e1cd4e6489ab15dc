package session

import (
	"sync"
	"time"
)

// DefaultJournalSize is how many recent lines the journal keeps.
const DefaultJournalSize = 300

type Direction string

const (
	DirRx Direction = "rx"
	DirTx Direction = "tx"
)

// LineEntry is one line seen on the link.
type LineEntry struct {
	At    time.Time `json:"at"`
	Dir   Direction `json:"dir"`
	Line  string    `json:"line"`
	Error string    `json:"error,omitempty"`
}

// journal is a fixed-size ring of recent link traffic. Inbound lines are
// added under the controller lock and outbound results from the queue
// worker, so it carries its own mutex.
type journal struct {
	mu      sync.Mutex
	entries []LineEntry
	next    int
	full    bool
}

func newJournal(size int) *journal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	return &journal{entries: make([]LineEntry, size)}
}

func (j *journal) add(e LineEntry) {
	j.mu.Lock()
	j.entries[j.next] = e
	j.next++
	if j.next == len(j.entries) {
		j.next = 0
		j.full = true
	}
	j.mu.Unlock()
}

// lines returns the retained entries, oldest first.
func (j *journal) lines() []LineEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.full {
		return append([]LineEntry(nil), j.entries[:j.next]...)
	}
	out := make([]LineEntry, 0, len(j.entries))
	out = append(out, j.entries[j.next:]...)
	return append(out, j.entries[:j.next]...)
}
