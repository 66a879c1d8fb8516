package gas

import (
	"fmt"
	"time"

	"github.com/hummbl-dev/hummbl-agent-federation/internal/audit"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/checkpoint"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/enforce"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/learning"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/policy"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/space"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/violations"
)

// Engine is the assembled governance pipeline: one violation store, one
// audit ledger, an enforcer, a learning engine, and a checkpoint
// manager, all sharing a clock. Safe for concurrent use; each component
// guards its own state.
type Engine struct {
	space       *space.Space
	policyRefs  []string
	now         func() time.Time
	store       *violations.Store
	ledger      *audit.Ledger
	enforcer    *enforce.Enforcer
	learner     *learning.Engine
	checkpoints *checkpoint.Manager
}

// New assembles an Engine with the given options. Without an action
// space option the engine starts over an empty space.
func New(opts ...Option) (*Engine, error) {
	cfg := engineConfig{now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}

	sp := cfg.space
	if cfg.spaceDoc != nil {
		decoded, err := space.Decode(cfg.spaceDoc)
		if err != nil {
			return nil, fmt.Errorf("gas: load action space: %w", err)
		}
		sp = decoded
	}
	if sp == nil {
		sp = &space.Space{Version: "0"}
	}

	store := violations.NewStore()
	learner := learning.NewEngine(store, learning.WithClock(cfg.now))

	return &Engine{
		space:       sp,
		policyRefs:  cfg.policyRefs,
		now:         cfg.now,
		store:       store,
		ledger:      audit.NewLedger(),
		enforcer:    enforce.New(store, enforce.WithClock(cfg.now)),
		learner:     learner,
		checkpoints: checkpoint.NewManager(learner, checkpoint.WithClock(cfg.now)),
	}, nil
}

// Space returns the engine's action space.
func (e *Engine) Space() *space.Space { return e.space }

// Violations returns the violation store.
func (e *Engine) Violations() *violations.Store { return e.store }

// Ledger returns the audit ledger.
func (e *Engine) Ledger() *audit.Ledger { return e.ledger }

// Learning returns the learning engine.
func (e *Engine) Learning() *learning.Engine { return e.learner }

// Checkpoints returns the checkpoint manager.
func (e *Engine) Checkpoints() *checkpoint.Manager { return e.checkpoints }

// Validate checks one action without enforcing it.
func (e *Engine) Validate(actionID string, ctx Context) ValidationResult {
	return policy.ValidateAction(actionID, e.space, ctx)
}

// ValidateBatch checks each action independently.
func (e *Engine) ValidateBatch(actionIDs []string, ctx Context) []ValidationResult {
	return policy.ValidateActions(actionIDs, e.space, ctx)
}

// AllowedActions lists the actions currently open under the MRCC.
func (e *Engine) AllowedActions() []ActionDefinition {
	return policy.AllowedActions(e.space)
}

// Enforce runs one enforcement and appends its audit event to the
// ledger. Counters are not touched; pair with RecordResult or use
// EnforceAndRecord.
func (e *Engine) Enforce(actionID string, ctx Context) Result {
	res := e.enforcer.Enforce(actionID, e.config(), ctx)
	e.ledger.Store(res.AuditEvent)
	return res
}

// EnforceAndRecord enforces and counts the result in one step.
func (e *Engine) EnforceAndRecord(actionID string, ctx Context) Result {
	res := e.Enforce(actionID, ctx)
	e.enforcer.RecordResult(res)
	return res
}

// EnforceBatch enforces each action independently, appending every
// audit event to the ledger.
func (e *Engine) EnforceBatch(actionIDs []string, ctx Context) []Result {
	results := make([]Result, 0, len(actionIDs))
	for _, id := range actionIDs {
		results = append(results, e.Enforce(id, ctx))
	}
	return results
}

// EnforceCrossDomain resolves one action across multiple governance
// domains and appends the deciding audit event to the ledger.
func (e *Engine) EnforceCrossDomain(actionID string, domains []DomainPolicy, ctx Context) Result {
	res := e.enforcer.EnforceCrossDomain(actionID, domains, ctx)
	e.ledger.Store(res.AuditEvent)
	return res
}

// RecordResult counts an enforcement into the running totals.
func (e *Engine) RecordResult(r Result) { e.enforcer.RecordResult(r) }

// Summary returns the enforcement counters.
func (e *Engine) Summary() Summary { return e.enforcer.Summary() }

// ResolveViolation closes out a stored violation.
func (e *Engine) ResolveViolation(id string, r Resolution) bool {
	return e.store.Resolve(id, r)
}

// AnalyzePatterns groups stored violations into recurrence patterns.
func (e *Engine) AnalyzePatterns() []Pattern { return e.store.AnalyzePatterns() }

// ComplianceScore scores current compliance from the stores and
// counters.
func (e *Engine) ComplianceScore() Score {
	return audit.ComputeScore(e.store.Stats(), e.enforcer.Summary().Totals, e.ledger.Len())
}

// ComplianceReport builds a full report over [start, end].
func (e *Engine) ComplianceReport(start, end time.Time) Report {
	return audit.GenerateReport(e.ledger, e.store, e.enforcer.Summary().Totals, start, end, e.now())
}

// Learn promotes escalating violation patterns into learning state.
func (e *Engine) Learn() []LearnedPattern { return e.learner.LearnFromViolations() }

// RecordFeedback feeds an operator decision back into action weights.
func (e *Engine) RecordFeedback(actionID string, t FeedbackType, source, reason string) {
	e.learner.RecordFeedback(actionID, t, source, reason)
}

// Propose turns a learned pattern into a policy proposal against the
// engine's action space, or nil when the pattern does not warrant one.
func (e *Engine) Propose(p LearnedPattern) *Proposal {
	return e.learner.GenerateProposal(p, e.space)
}

// Benchmark evaluates the action space against a compliance standard.
func (e *Engine) Benchmark(bt BenchmarkType) BenchmarkResult {
	return e.learner.RunBenchmark(e.space, bt)
}

// Checkpoint snapshots the learning state.
func (e *Engine) Checkpoint(t CheckpointType, description string, metadata map[string]string) Checkpoint {
	return e.checkpoints.Create(t, description, metadata)
}

// Rollback restores learning state from a checkpoint.
func (e *Engine) Rollback(id string) RollbackResult {
	return e.checkpoints.Rollback(id)
}

// CheckModification consults the self-modification guard table.
func (e *Engine) CheckModification(target string) GuardResult {
	return e.checkpoints.CheckModification(target)
}

// HealthCheck probes system health.
func (e *Engine) HealthCheck() HealthResult { return e.checkpoints.HealthCheck() }

// AutoRollback rolls back to the latest checkpoint if health demands
// it; nil when healthy enough.
func (e *Engine) AutoRollback() *RollbackResult { return e.checkpoints.AutoRollback() }

func (e *Engine) config() enforce.Config {
	return enforce.Config{Space: e.space, PolicyRefs: e.policyRefs}
}
