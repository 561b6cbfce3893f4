package usecase

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"pdfscribe/internal/domain"
)

// EventLogCapacity bounds the diagnostic event log.
const EventLogCapacity = 50

// eventLog keeps the most recent entries; the oldest is evicted first.
type eventLog struct {
	mu       sync.Mutex
	capacity int
	entries  []domain.LogEntry
	now      func() time.Time
}

func newEventLog(capacity int, now func() time.Time) *eventLog {
	if capacity <= 0 {
		capacity = EventLogCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &eventLog{capacity: capacity, entries: make([]domain.LogEntry, 0, capacity), now: now}
}

func (l *eventLog) Append(eventType string, direction domain.Direction, payload json.RawMessage) domain.LogEntry {
	entry := domain.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: l.now(),
		Type:      eventType,
		Direction: direction,
		Payload:   payload,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:l.capacity-1]
	}
	l.entries = append(l.entries, entry)
	return entry
}

// AppendValue marshals v as the payload; unmarshalable values are logged as null.
func (l *eventLog) AppendValue(eventType string, direction domain.Direction, v any) domain.LogEntry {
	payload, err := json.Marshal(v)
	if err != nil {
		payload = json.RawMessage("null")
	}
	return l.Append(eventType, direction, payload)
}

func (l *eventLog) Entries() []domain.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *eventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *eventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}
