package usecase

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"pdfscribe/internal/domain"
)

func TestEventLogEvictsOldest(t *testing.T) {
	t.Parallel()

	log := newEventLog(EventLogCapacity, nil)
	for i := 1; i <= 51; i++ {
		log.Append(fmt.Sprintf("event.%d", i), domain.DirectionIncoming, json.RawMessage(`{}`))
	}

	entries := log.Entries()
	if len(entries) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(entries))
	}
	for i, entry := range entries {
		want := fmt.Sprintf("event.%d", i+2)
		if entry.Type != want {
			t.Fatalf("entry %d: got %s want %s", i, entry.Type, want)
		}
	}
}

func TestEventLogEntriesAreCopies(t *testing.T) {
	t.Parallel()

	log := newEventLog(3, nil)
	log.Append("a", domain.DirectionOutgoing, nil)
	entries := log.Entries()
	entries[0].Type = "mutated"

	if got := log.Entries()[0].Type; got != "a" {
		t.Fatalf("log was mutated through a snapshot: %s", got)
	}
}

func TestEventLogEntryFields(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	log := newEventLog(0, func() time.Time { return at })
	first := log.Append("x", domain.DirectionIncoming, json.RawMessage(`{"a":1}`))
	second := log.Append("x", domain.DirectionIncoming, nil)

	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("expected unique ids, got %q and %q", first.ID, second.ID)
	}
	if !first.Timestamp.Equal(at) || string(first.Payload) != `{"a":1}` {
		t.Fatalf("unexpected entry: %+v", first)
	}
}

func TestEventLogAppendValue(t *testing.T) {
	t.Parallel()

	log := newEventLog(5, nil)
	ok := log.AppendValue("ok", domain.DirectionIncoming, map[string]string{"status": "connected"})
	bad := log.AppendValue("bad", domain.DirectionIncoming, math.Inf(1))

	if string(ok.Payload) != `{"status":"connected"}` {
		t.Fatalf("unexpected payload: %s", ok.Payload)
	}
	if string(bad.Payload) != "null" {
		t.Fatalf("expected null payload, got %s", bad.Payload)
	}

	log.Clear()
	if log.Len() != 0 {
		t.Fatalf("expected empty log")
	}
}
