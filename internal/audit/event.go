// Package audit stores enforcement audit events, scores compliance, and
// renders compliance reports.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Outcome is the enforcement result recorded on an audit event.
type Outcome string

const (
	OutcomeAllowed   Outcome = "ALLOWED"
	OutcomeBlocked   Outcome = "BLOCKED"
	OutcomeEscalated Outcome = "ESCALATED"
)

// Provenance links an audit event to the inputs and checkpoints around
// it.
type Provenance struct {
	InputHash    string `json:"input_hash,omitempty"`
	OutputHash   string `json:"output_hash,omitempty"`
	CheckpointID string `json:"checkpoint_id,omitempty"`
}

// Event is one append-only audit record. Events are never mutated after
// creation; every enforcement produces one, including blocked ones.
type Event struct {
	ID         string     `json:"id"`
	Timestamp  string     `json:"timestamp"`
	ActionID   string     `json:"action_id"`
	CAES       string     `json:"caes"`
	Actor      string     `json:"actor"`
	Target     string     `json:"target,omitempty"`
	Outcome    Outcome    `json:"outcome"`
	PolicyRefs []string   `json:"policy_refs"`
	Provenance Provenance `json:"provenance"`
	DurationMS int64      `json:"duration_ms,omitempty"`
}

func (e Event) when() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Hash returns "sha256:<hex>" of the given bytes. Used for the audit
// trail hash and anywhere else the ledger needs a content digest.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}
