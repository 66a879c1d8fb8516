package violations

import (
	"sync"
	"time"
)

// Store is an append-only violation store keyed by id. Capture never
// dedupes; Resolve is the only mutation path for a stored record.
// Insertion order is preserved so exports and pattern analysis are
// deterministic.
type Store struct {
	mu    sync.Mutex
	byID  map[string]*Violation
	order []string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Violation)}
}

// Capture stores a violation and returns its id. A violation with an
// already-known id overwrites the stored record without growing the log.
func (s *Store) Capture(v Violation) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(v)
	return v.ID
}

func (s *Store) put(v Violation) {
	if _, exists := s.byID[v.ID]; !exists {
		s.order = append(s.order, v.ID)
	}
	stored := v
	s.byID[v.ID] = &stored
}

// Get returns the violation with the given id.
func (s *Store) Get(id string) (Violation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	if !ok {
		return Violation{}, false
	}
	return *v, true
}

// All returns every violation in capture order.
func (s *Store) All() []Violation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() []Violation {
	out := make([]Violation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// ByType returns violations of the given type, in capture order.
func (s *Store) ByType(t Type) []Violation {
	return s.filter(func(v Violation) bool { return v.Type == t })
}

// BySeverity returns violations of the given severity, in capture order.
func (s *Store) BySeverity(sev Severity) []Violation {
	return s.filter(func(v Violation) bool { return v.Severity == sev })
}

// ByAction returns violations for the given action id, in capture order.
func (s *Store) ByAction(actionID string) []Violation {
	return s.filter(func(v Violation) bool { return v.ActionID == actionID })
}

// Unresolved returns violations without a resolution, in capture order.
func (s *Store) Unresolved() []Violation {
	return s.filter(func(v Violation) bool { return !v.Resolved() })
}

// InRange returns violations whose timestamp falls within [start, end].
// Violations with unparsable timestamps are excluded.
func (s *Store) InRange(start, end time.Time) []Violation {
	return s.filter(func(v Violation) bool {
		ts, ok := v.when()
		return ok && !ts.Before(start) && !ts.After(end)
	})
}

func (s *Store) filter(keep func(Violation) bool) []Violation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Violation
	for _, id := range s.order {
		if v := *s.byID[id]; keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Resolve attaches a resolution to the violation with the given id.
// Returns false if the id is unknown.
func (s *Store) Resolve(id string, r Resolution) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	if !ok {
		return false
	}
	res := r
	v.Resolution = &res
	return true
}

// Stats summarizes the store's contents.
type Stats struct {
	Total      int              `json:"total"`
	Unresolved int              `json:"unresolved"`
	ByType     map[Type]int     `json:"by_type"`
	BySeverity map[Severity]int `json:"by_severity"`
}

// Stats aggregates counts by type and severity. Every known type and
// severity appears in the maps, zero-valued if unseen.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		ByType:     make(map[Type]int, len(Types)),
		BySeverity: make(map[Severity]int, len(Severities)),
	}
	for _, t := range Types {
		st.ByType[t] = 0
	}
	for _, sev := range Severities {
		st.BySeverity[sev] = 0
	}

	for _, id := range s.order {
		v := s.byID[id]
		st.Total++
		st.ByType[v.Type]++
		st.BySeverity[v.Severity]++
		if !v.Resolved() {
			st.Unresolved++
		}
	}
	return st
}

// Clear removes all violations. Test support.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*Violation)
	s.order = nil
}
