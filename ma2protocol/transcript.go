package ma2protocol

import (
	"sync"
	"time"
)

// Direction marks which side of the wire a transcript entry came from.
type Direction int

const (
	Sent Direction = iota
	Received
)

// String returns ">" for sent and "<" for received lines.
func (d Direction) String() string {
	if d == Sent {
		return ">"
	}
	return "<"
}

// TranscriptEntry is one line of wire traffic.
type TranscriptEntry struct {
	Time      time.Time
	Direction Direction
	Text      string
}

// Transcript is a fixed-capacity ring of recent wire lines. Passwords are
// never recorded.
type Transcript struct {
	mu       sync.RWMutex
	buf      []TranscriptEntry
	capacity int
	pos      int // next write position
	full     bool
}

// NewTranscript creates a transcript holding the last capacity lines.
func NewTranscript(capacity int) *Transcript {
	if capacity <= 0 {
		capacity = DefaultTranscriptSize
	}
	return &Transcript{
		buf:      make([]TranscriptEntry, capacity),
		capacity: capacity,
	}
}

// Record adds a line.
func (t *Transcript) Record(dir Direction, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf[t.pos] = TranscriptEntry{Time: time.Now(), Direction: dir, Text: text}
	t.pos = (t.pos + 1) % t.capacity
	if t.pos == 0 {
		t.full = true
	}
}

// Entries returns all lines in chronological order.
func (t *Transcript) Entries() []TranscriptEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.full {
		result := make([]TranscriptEntry, t.pos)
		copy(result, t.buf[:t.pos])
		return result
	}

	result := make([]TranscriptEntry, t.capacity)
	copy(result, t.buf[t.pos:])
	copy(result[t.capacity-t.pos:], t.buf[:t.pos])
	return result
}
