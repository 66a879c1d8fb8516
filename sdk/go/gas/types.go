package gas

import (
	"github.com/hummbl-dev/hummbl-agent-federation/internal/audit"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/checkpoint"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/enforce"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/learning"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/policy"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/space"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/violations"
)

// Re-exported result and input types so embedders only import this
// package.
type (
	Context          = policy.Context
	ValidationResult = policy.Result
	Result           = enforce.Result
	DomainPolicy     = enforce.DomainPolicy
	Summary          = enforce.Summary
	Outcome          = audit.Outcome
	Event            = audit.Event
	Score            = audit.Score
	Report           = audit.Report
	Violation        = violations.Violation
	Resolution       = violations.Resolution
	Pattern          = violations.Pattern
	ActionSpace      = space.Space
	ActionDefinition = space.ActionDefinition
	LearnedPattern   = learning.LearnedPattern
	FeedbackType     = learning.FeedbackType
	Proposal         = learning.Proposal
	BenchmarkType    = learning.BenchmarkType
	BenchmarkResult  = learning.BenchmarkResult
	Checkpoint       = checkpoint.Checkpoint
	CheckpointType   = checkpoint.Type
	RollbackResult   = checkpoint.RollbackResult
	GuardResult      = checkpoint.GuardResult
	HealthResult     = checkpoint.HealthResult
)

// Common outcome and checkpoint constants.
const (
	OutcomeAllowed   = audit.OutcomeAllowed
	OutcomeBlocked   = audit.OutcomeBlocked
	OutcomeEscalated = audit.OutcomeEscalated

	CheckpointManual        = checkpoint.TypeManual
	CheckpointAutoPreModify = checkpoint.TypeAutoPreModify
	CheckpointAutoPeriodic  = checkpoint.TypeAutoPeriodic
)
