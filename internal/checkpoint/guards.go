package checkpoint

import "fmt"

// GuardType classifies a self-modification guard rule.
type GuardType string

const (
	GuardRequireCheckpoint GuardType = "REQUIRE_CHECKPOINT"
	GuardRequireApproval   GuardType = "REQUIRE_APPROVAL"
	GuardRateLimit         GuardType = "RATE_LIMIT"
	GuardForbidden         GuardType = "FORBIDDEN"
)

// GuardAction is what a tripped guard does.
type GuardAction string

const (
	ActionBlock               GuardAction = "BLOCK"
	ActionCheckpointThenAllow GuardAction = "CHECKPOINT_THEN_ALLOW"
	ActionEscalate            GuardAction = "ESCALATE"
	ActionLogOnly             GuardAction = "LOG_ONLY"
)

// Guard is one self-modification rule.
type Guard struct {
	ID        string      `json:"id"`
	GuardType GuardType   `json:"guard_type"`
	Target    string      `json:"target"`
	Condition string      `json:"condition"`
	Action    GuardAction `json:"action"`
	Enabled   bool        `json:"enabled"`
}

// GuardResult is the verdict of a modification check.
type GuardResult struct {
	Allowed            bool        `json:"allowed"`
	Action             GuardAction `json:"action,omitempty"`
	Reason             string      `json:"reason,omitempty"`
	GuardID            string      `json:"guard_id,omitempty"`
	RequiresCheckpoint bool        `json:"requires_checkpoint,omitempty"`
}

func defaultGuards() []Guard {
	return []Guard{
		{
			ID:        "guard-1",
			GuardType: GuardRequireCheckpoint,
			Target:    "learning_state",
			Condition: "any_modification",
			Action:    ActionCheckpointThenAllow,
			Enabled:   true,
		},
		{
			ID:        "guard-2",
			GuardType: GuardForbidden,
			Target:    "autonomy_boundaries",
			Condition: "any_modification",
			Action:    ActionBlock,
			Enabled:   true,
		},
		{
			ID:        "guard-3",
			GuardType: GuardRequireApproval,
			Target:    "mrcc_constraints",
			Condition: "any_modification",
			Action:    ActionEscalate,
			Enabled:   true,
		},
		{
			ID:        "guard-4",
			GuardType: GuardRateLimit,
			Target:    "policy_proposals",
			Condition: "more_than_10_per_hour",
			Action:    ActionBlock,
			Enabled:   true,
		},
	}
}

// CheckModification evaluates the guard table against a modification
// target. The first enabled matching rule of a terminating type wins;
// RATE_LIMIT guards fall through (rate accounting belongs to the
// caller). No matching enabled rule means the modification is allowed
// unconditionally.
func (m *Manager) CheckModification(target string) GuardResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, g := range m.guards {
		if !g.Enabled || g.Target != target {
			continue
		}
		switch g.GuardType {
		case GuardForbidden:
			return GuardResult{
				Allowed: false,
				Action:  ActionBlock,
				Reason:  fmt.Sprintf("Modification of '%s' is forbidden", target),
				GuardID: g.ID,
			}
		case GuardRequireApproval:
			return GuardResult{
				Allowed: false,
				Action:  ActionEscalate,
				Reason:  fmt.Sprintf("Modification of '%s' requires approval", target),
				GuardID: g.ID,
			}
		case GuardRequireCheckpoint:
			return GuardResult{
				Allowed:            true,
				Action:             ActionCheckpointThenAllow,
				Reason:             fmt.Sprintf("Checkpoint required before modifying '%s'", target),
				GuardID:            g.ID,
				RequiresCheckpoint: true,
			}
		}
	}

	return GuardResult{Allowed: true}
}

// Guards returns a copy of the guard table.
func (m *Manager) Guards() []Guard {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Guard(nil), m.guards...)
}

// SetGuardEnabled toggles a guard. Returns false if the id is unknown.
func (m *Manager) SetGuardEnabled(id string, enabled bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.guards {
		if m.guards[i].ID == id {
			m.guards[i].Enabled = enabled
			return true
		}
	}
	return false
}

// HealthProbe is one health check outcome.
type HealthProbe struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// HealthResult summarizes system health. should_rollback trips when at
// least two probes fail.
type HealthResult struct {
	Healthy        bool          `json:"healthy"`
	Checks         []HealthProbe `json:"checks"`
	ShouldRollback bool          `json:"should_rollback"`
}

// HealthCheck runs three probes: learning state validity, checkpoint
// availability, and guard coverage (at least 3 enabled).
func (m *Manager) HealthCheck() HealthResult {
	stateValid := m.learning.Valid()

	m.mu.Lock()
	checkpointCount := len(m.log)
	activeGuards := 0
	for _, g := range m.guards {
		if g.Enabled {
			activeGuards++
		}
	}
	m.mu.Unlock()

	checks := []HealthProbe{
		{Name: "learning_state_valid", Passed: stateValid},
		{
			Name:    "checkpoints_exist",
			Passed:  checkpointCount > 0,
			Message: fmt.Sprintf("%d checkpoints available", checkpointCount),
		},
		{
			Name:    "guards_active",
			Passed:  activeGuards >= 3,
			Message: fmt.Sprintf("%d guards active", activeGuards),
		},
	}

	failed := 0
	for _, c := range checks {
		if !c.Passed {
			failed++
		}
	}
	return HealthResult{
		Healthy:        failed == 0,
		Checks:         checks,
		ShouldRollback: failed >= 2,
	}
}

// AutoRollback rolls back to the latest checkpoint when health has
// degraded enough to demand it. Returns nil when no rollback is needed,
// and a failure result when one is needed but no checkpoint exists.
func (m *Manager) AutoRollback() *RollbackResult {
	health := m.HealthCheck()
	if !health.ShouldRollback {
		return nil
	}

	latest, ok := m.Latest()
	if !ok {
		return &RollbackResult{Success: false, Error: "No checkpoint available for auto-rollback"}
	}

	res := m.Rollback(latest.ID)
	return &res
}
