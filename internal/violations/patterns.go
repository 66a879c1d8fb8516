package violations

import "sort"

// escalationThreshold is the recurrence count at which a pattern should
// be escalated.
const escalationThreshold = 3

// Pattern is a recurring (action, violation type) pair.
type Pattern struct {
	ActionID        string `json:"action_id"`
	Type            Type   `json:"violation_type"`
	Count           int    `json:"count"`
	FirstOccurrence string `json:"first_occurrence"`
	LastOccurrence  string `json:"last_occurrence"`
	ShouldEscalate  bool   `json:"should_escalate"`
}

// AnalyzePatterns groups violations by (action_id, type), counts
// occurrences, tracks first and last timestamps, and flags patterns seen
// at least three times for escalation. Results are sorted by count
// descending; ties keep first-seen order.
func (s *Store) AnalyzePatterns() []Pattern {
	s.mu.Lock()
	all := s.snapshot()
	s.mu.Unlock()

	type key struct {
		action string
		typ    Type
	}
	index := make(map[key]int)
	var patterns []Pattern

	for _, v := range all {
		k := key{v.ActionID, v.Type}
		if i, ok := index[k]; ok {
			patterns[i].Count++
			patterns[i].LastOccurrence = v.Timestamp
			continue
		}
		index[k] = len(patterns)
		patterns = append(patterns, Pattern{
			ActionID:        v.ActionID,
			Type:            v.Type,
			Count:           1,
			FirstOccurrence: v.Timestamp,
			LastOccurrence:  v.Timestamp,
		})
	}

	for i := range patterns {
		patterns[i].ShouldEscalate = patterns[i].Count >= escalationThreshold
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Count > patterns[j].Count
	})
	return patterns
}
