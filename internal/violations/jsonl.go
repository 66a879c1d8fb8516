package violations

import (
	"encoding/json"
	"strings"
)

// ExportJSONL renders every violation as one JSON object per line, in
// capture order.
func (s *Store) ExportJSONL() string {
	all := s.All()
	lines := make([]string, 0, len(all))
	for _, v := range all {
		data, err := json.Marshal(v)
		if err != nil {
			continue
		}
		lines = append(lines, string(data))
	}
	return strings.Join(lines, "\n")
}

// ImportJSONL loads violations from newline-delimited JSON. Import is
// best-effort: unparsable lines and records without an id are skipped,
// and the count of records actually imported is returned.
func (s *Store) ImportJSONL(jsonl string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	imported := 0
	for _, line := range strings.Split(jsonl, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var v Violation
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			continue
		}
		if v.ID == "" {
			continue
		}
		s.put(v)
		imported++
	}
	return imported
}
