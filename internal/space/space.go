// Package space models the governed action space: the catalog of actions
// an agent may attempt, the hard (MRCC) and advisory (NCC) constraint
// sets, and the active policy epoch. Spaces are loaded and merged by an
// external config layer; this package only decodes already-read bytes.
package space

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hummbl-dev/hummbl-agent-federation/internal/caes"
)

// Status is an action's static policy standing.
type Status string

const (
	StatusAllowed                  Status = "ALLOWED"
	StatusRestricted               Status = "RESTRICTED"
	StatusForbidden                Status = "FORBIDDEN"
	StatusForbiddenWithoutOverride Status = "FORBIDDEN_WITHOUT_OVERRIDE"
)

// Forbidden reports whether the status blocks the action outright.
func (s Status) Forbidden() bool {
	return s == StatusForbidden || s == StatusForbiddenWithoutOverride
}

// ActionDefinition describes one action in the space. Supplied
// externally; read-only to the governance core.
type ActionDefinition struct {
	ID          string   `json:"id" yaml:"id"`
	CAES        string   `json:"caes" yaml:"caes"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Authority   string   `json:"authority" yaml:"authority"`
	Effect      string   `json:"effect,omitempty" yaml:"effect,omitempty"`
	Requires    []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	Triggers    []string `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	Status      Status   `json:"status" yaml:"status"`
	Timeout     string   `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	EscalatesTo string   `json:"escalates_to,omitempty" yaml:"escalates_to,omitempty"`
}

// ConstraintSet bounds what an actor may do. The MRCC instance is
// enforced (blocking); the NCC instance is advisory only.
type ConstraintSet struct {
	Description           string         `json:"description,omitempty" yaml:"description,omitempty"`
	MaxClassification     string         `json:"max_classification,omitempty" yaml:"max_classification,omitempty"`
	DefaultClassification string         `json:"default_classification,omitempty" yaml:"default_classification,omitempty"`
	MaxScope              string         `json:"max_scope,omitempty" yaml:"max_scope,omitempty"`
	DefaultScope          string         `json:"default_scope,omitempty" yaml:"default_scope,omitempty"`
	MaxEffect             string         `json:"max_effect,omitempty" yaml:"max_effect,omitempty"`
	DefaultEffect         string         `json:"default_effect,omitempty" yaml:"default_effect,omitempty"`
	ForbiddenActions      []string       `json:"forbidden_actions,omitempty" yaml:"forbidden_actions,omitempty"`
	PreferredActions      []string       `json:"preferred_actions,omitempty" yaml:"preferred_actions,omitempty"`
	DiscouragedActions    []string       `json:"discouraged_actions,omitempty" yaml:"discouraged_actions,omitempty"`
	RateLimits            map[string]int `json:"rate_limits,omitempty" yaml:"rate_limits,omitempty"`
}

// ForbidsAction reports whether the action id is in the forbidden list.
func (c ConstraintSet) ForbidsAction(id string) bool {
	for _, f := range c.ForbiddenActions {
		if f == id {
			return true
		}
	}
	return false
}

// DiscouragesAction reports whether the action id is in the discouraged
// list.
func (c ConstraintSet) DiscouragesAction(id string) bool {
	for _, d := range c.DiscouragedActions {
		if d == id {
			return true
		}
	}
	return false
}

// Epoch is a bounded policy regime. Its monotonic properties are named
// invariants that must hold for as long as the epoch is active; violating
// one is always CRITICAL.
type Epoch struct {
	ID                  string   `json:"id" yaml:"id"`
	Started             string   `json:"started,omitempty" yaml:"started,omitempty"`
	PolicyHash          string   `json:"policy_hash,omitempty" yaml:"policy_hash,omitempty"`
	MRCCHash            string   `json:"mrcc_hash,omitempty" yaml:"mrcc_hash,omitempty"`
	MonotonicProperties []string `json:"monotonic_properties" yaml:"monotonic_properties"`
}

// HasProperty reports whether the epoch declares the named monotonic
// property.
func (e *Epoch) HasProperty(name string) bool {
	if e == nil {
		return false
	}
	for _, p := range e.MonotonicProperties {
		if p == name {
			return true
		}
	}
	return false
}

// Space is a full action space document.
type Space struct {
	Version      string             `json:"version" yaml:"version"`
	Description  string             `json:"description,omitempty" yaml:"description,omitempty"`
	Actions      []ActionDefinition `json:"actions" yaml:"actions"`
	MRCC         ConstraintSet      `json:"mrcc" yaml:"mrcc"`
	NCC          ConstraintSet      `json:"ncc" yaml:"ncc"`
	CurrentEpoch *Epoch             `json:"current_epoch,omitempty" yaml:"current_epoch,omitempty"`
}

// Action returns the definition for the given id, or nil if absent.
func (s *Space) Action(id string) *ActionDefinition {
	for i := range s.Actions {
		if s.Actions[i].ID == id {
			return &s.Actions[i]
		}
	}
	return nil
}

// Decode parses an action space document from YAML (or JSON, which YAML
// accepts) bytes and checks its structural invariants.
func Decode(data []byte) (*Space, error) {
	var s Space
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("space: parse document: %w", err)
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Check validates structural invariants: non-empty version, unique action
// ids, known statuses, and parsable CAES codes.
func (s *Space) Check() error {
	if s.Version == "" {
		return fmt.Errorf("space: missing version")
	}
	seen := make(map[string]bool, len(s.Actions))
	for _, a := range s.Actions {
		if a.ID == "" {
			return fmt.Errorf("space: action with empty id")
		}
		if seen[a.ID] {
			return fmt.Errorf("space: duplicate action id %q", a.ID)
		}
		seen[a.ID] = true
		switch a.Status {
		case StatusAllowed, StatusRestricted, StatusForbidden, StatusForbiddenWithoutOverride:
		default:
			return fmt.Errorf("space: action %q has unknown status %q", a.ID, a.Status)
		}
		if _, ok := caes.Parse(a.CAES); !ok {
			return fmt.Errorf("space: action %q has invalid CAES code %q", a.ID, a.CAES)
		}
	}
	return nil
}

// Hash returns "sha256:<hex>" over the space's canonical JSON encoding,
// suitable for Epoch policy_hash provenance.
func (s *Space) Hash() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("space: hash: %w", err)
	}
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:]), nil
}
