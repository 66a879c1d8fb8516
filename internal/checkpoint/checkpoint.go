// Package checkpoint snapshots learning state, validates snapshot
// integrity, guards self-modification, and automates rollback.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hummbl-dev/hummbl-agent-federation/internal/audit"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/learning"
)

// Type classifies why a checkpoint was taken.
type Type string

const (
	TypeManual         Type = "MANUAL"
	TypeAutoPreModify  Type = "AUTO_PRE_MODIFY"
	TypeAutoPeriodic   Type = "AUTO_PERIODIC"
	TypeRollbackMarker Type = "ROLLBACK_MARKER"
)

// State is the snapshotted payload: the learning state blob plus
// provenance hashes.
type State struct {
	LearningState        string `json:"learning_state"`
	ActionSpaceHash      string `json:"action_space_hash,omitempty"`
	GovernancePolicyHash string `json:"governance_policy_hash,omitempty"`
	EpochID              string `json:"epoch_id,omitempty"`
}

// Checkpoint is one recoverable snapshot. parent_id links to the
// checkpoint that was latest at creation time, giving a linear history.
type Checkpoint struct {
	ID          string            `json:"id"`
	CreatedAt   string            `json:"created_at"`
	Type        Type              `json:"type"`
	Description string            `json:"description"`
	State       State             `json:"state"`
	Hash        string            `json:"hash"`
	ParentID    string            `json:"parent_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// RollbackResult reports a rollback attempt. The marker id is set
// whenever a marker was created, including on restore failures.
type RollbackResult struct {
	Success            bool   `json:"success"`
	CheckpointRestored string `json:"checkpoint_restored,omitempty"`
	RollbackMarkerID   string `json:"rollback_marker_id,omitempty"`
	Error              string `json:"error,omitempty"`
}

// ValidationResult reports a checkpoint integrity check.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Manager owns the checkpoint log and the guard table for one learning
// engine. The log is append-only; Latest is the most recently created
// checkpoint, not the newest timestamp.
type Manager struct {
	mu        sync.Mutex
	learning  *learning.Engine
	log       []*Checkpoint
	index     map[string]int
	latest    string
	guards    []Guard
	now       func() time.Time
	newSuffix func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDSuffix overrides the random checkpoint id suffix.
func WithIDSuffix(f func() string) Option {
	return func(m *Manager) { m.newSuffix = f }
}

// NewManager returns a manager over the given learning engine, with the
// default guard table installed.
func NewManager(engine *learning.Engine, opts ...Option) *Manager {
	m := &Manager{
		learning:  engine,
		index:     make(map[string]int),
		guards:    defaultGuards(),
		now:       time.Now,
		newSuffix: func() string { return uuid.NewString()[:4] },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create snapshots the current learning state. The integrity hash
// covers the serialized state payload; the parent link is the previous
// latest checkpoint.
func (m *Manager) Create(t Type, description string, metadata map[string]string) Checkpoint {
	blob := m.learning.Export()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.create(t, description, metadata, blob)
}

func (m *Manager) create(t Type, description string, metadata map[string]string, blob string) Checkpoint {
	state := State{
		LearningState: blob,
		EpochID:       metadata["epoch_id"],
	}

	now := m.now().UTC()
	cp := Checkpoint{
		ID:          fmt.Sprintf("cp-%s-%s-%s", now.Format("2006-01-02"), now.Format("150405"), m.newSuffix()),
		CreatedAt:   now.Format(time.RFC3339),
		Type:        t,
		Description: description,
		State:       state,
		Hash:        hashState(state),
		ParentID:    m.latest,
		Metadata:    metadata,
	}

	m.index[cp.ID] = len(m.log)
	m.log = append(m.log, &cp)
	m.latest = cp.ID
	return cp
}

func hashState(s State) string {
	data, _ := json.Marshal(s)
	return audit.Hash(data)
}

// Get returns the checkpoint with the given id.
func (m *Manager) Get(id string) (Checkpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.index[id]
	if !ok {
		return Checkpoint{}, false
	}
	return *m.log[i], true
}

// All returns every checkpoint, most recently created first.
func (m *Manager) All() []Checkpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Checkpoint, 0, len(m.log))
	for i := len(m.log) - 1; i >= 0; i-- {
		out = append(out, *m.log[i])
	}
	return out
}

// Latest returns the most recently created checkpoint.
func (m *Manager) Latest() (Checkpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == "" {
		return Checkpoint{}, false
	}
	return *m.log[m.index[m.latest]], true
}

// Validate recomputes the checkpoint's integrity hash. A mismatch means
// the stored state no longer matches what was snapshotted.
func (m *Manager) Validate(id string) ValidationResult {
	cp, ok := m.Get(id)
	if !ok {
		return ValidationResult{Valid: false, Error: "Checkpoint not found"}
	}
	if hashState(cp.State) != cp.Hash {
		return ValidationResult{Valid: false, Error: "Checkpoint hash mismatch - state may be corrupted"}
	}
	return ValidationResult{Valid: true}
}

// Rollback restores learning state from the given checkpoint. An
// unknown id fails without creating a marker. For a known id a
// ROLLBACK_MARKER checkpoint is created first so the pre-rollback state
// is itself recoverable, then the learning state is overwritten
// wholesale; if the stored blob fails to parse the failure result still
// reports the marker id.
func (m *Manager) Rollback(id string) RollbackResult {
	currentBlob := m.learning.Export()

	m.mu.Lock()
	i, ok := m.index[id]
	if !ok {
		m.mu.Unlock()
		return RollbackResult{Success: false, Error: fmt.Sprintf("Checkpoint '%s' not found", id)}
	}
	target := *m.log[i]

	marker := m.create(TypeRollbackMarker,
		fmt.Sprintf("Rollback marker before restoring to %s", id),
		map[string]string{"rollback_to": id},
		currentBlob)
	m.mu.Unlock()

	if err := m.learning.Import([]byte(target.State.LearningState)); err != nil {
		return RollbackResult{
			Success:          false,
			Error:            fmt.Sprintf("Error restoring state: %v", err),
			RollbackMarkerID: marker.ID,
		}
	}

	return RollbackResult{
		Success:            true,
		CheckpointRestored: id,
		RollbackMarkerID:   marker.ID,
	}
}
