package audit

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Ledger is an insertion-ordered audit event store keyed by id. Events
// are write-once; there is no update path.
type Ledger struct {
	mu    sync.Mutex
	byID  map[string]*Event
	order []string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{byID: make(map[string]*Event)}
}

// Store records an event and returns its id. An event with an
// already-known id overwrites the stored record without growing the log.
func (l *Ledger) Store(e Event) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.put(e)
	return e.ID
}

func (l *Ledger) put(e Event) {
	if _, exists := l.byID[e.ID]; !exists {
		l.order = append(l.order, e.ID)
	}
	stored := e
	l.byID[e.ID] = &stored
}

// Get returns the event with the given id.
func (l *Ledger) Get(id string) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byID[id]
	if !ok {
		return Event{}, false
	}
	return *e, true
}

// All returns every event in store order.
func (l *Ledger) All() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.byID[id])
	}
	return out
}

// ByActor returns events recorded for the given actor, in store order.
func (l *Ledger) ByActor(actor string) []Event {
	return l.filter(func(e Event) bool { return e.Actor == actor })
}

// ByAction returns events for the given action id, in store order.
func (l *Ledger) ByAction(actionID string) []Event {
	return l.filter(func(e Event) bool { return e.ActionID == actionID })
}

// ByOutcome returns events with the given outcome, in store order.
func (l *Ledger) ByOutcome(o Outcome) []Event {
	return l.filter(func(e Event) bool { return e.Outcome == o })
}

// InRange returns events whose timestamp falls within [start, end].
// Events with unparsable timestamps are excluded.
func (l *Ledger) InRange(start, end time.Time) []Event {
	return l.filter(func(e Event) bool {
		ts, ok := e.when()
		return ok && !ts.Before(start) && !ts.After(end)
	})
}

func (l *Ledger) filter(keep func(Event) bool) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, id := range l.order {
		if e := *l.byID[id]; keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the number of stored events.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// ExportJSONL renders every event as one JSON object per line, in store
// order.
func (l *Ledger) ExportJSONL() string {
	all := l.All()
	lines := make([]string, 0, len(all))
	for _, e := range all {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		lines = append(lines, string(data))
	}
	return strings.Join(lines, "\n")
}

// ImportJSONL loads events from newline-delimited JSON. Best-effort:
// unparsable lines and records without an id are skipped, and the count
// of records actually imported is returned.
func (l *Ledger) ImportJSONL(jsonl string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	imported := 0
	for _, line := range strings.Split(jsonl, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		if e.ID == "" {
			continue
		}
		l.put(e)
		imported++
	}
	return imported
}

// Clear removes all events. Test support.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID = make(map[string]*Event)
	l.order = nil
}
