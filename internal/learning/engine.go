package learning

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hummbl-dev/hummbl-agent-federation/internal/space"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/violations"
)

// Engine owns the learning state and reads violation history from the
// store. All state transitions go through the engine's mutex, so
// read-then-replace sequences like LearnFromViolations are atomic.
type Engine struct {
	mu    sync.Mutex
	state State
	store *violations.Store
	now   func() time.Time
	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine returns an engine over the given violation store.
func NewEngine(store *violations.Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state = e.initialState()
	return e
}

func (e *Engine) initialState() State {
	types := make(map[violations.Type]float64, len(violations.Types))
	for _, t := range violations.Types {
		types[t] = 0
	}
	return State{
		Version:   "1.0.0",
		UpdatedAt: e.timestamp(),
		Weights: Weights{
			Actions: make(map[string]float64),
			Types:   types,
		},
	}
}

func (e *Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// LearnFromViolations re-analyzes the violation store and promotes every
// escalating pattern into learning state. An existing learned pattern
// with the same (action, violation type) key is replaced by the fresh
// one. Returns the patterns learned in this pass.
func (e *Engine) LearnFromViolations() []LearnedPattern {
	patterns := e.store.AnalyzePatterns()

	e.mu.Lock()
	defer e.mu.Unlock()

	var learned []LearnedPattern
	for _, p := range patterns {
		if !p.ShouldEscalate {
			continue
		}
		learned = append(learned, LearnedPattern{
			ID:              e.newID(),
			PatternType:     patternType(p.Type),
			ActionID:        p.ActionID,
			ViolationType:   p.Type,
			Frequency:       p.Count,
			FirstSeen:       p.FirstOccurrence,
			LastSeen:        p.LastOccurrence,
			Confidence:      e.confidence(p),
			SuggestedAction: suggestedAction(p),
		})
	}

	var kept []LearnedPattern
	for _, existing := range e.state.Patterns {
		replaced := false
		for _, l := range learned {
			if l.ActionID == existing.ActionID && l.ViolationType == existing.ViolationType {
				replaced = true
				break
			}
		}
		if !replaced {
			kept = append(kept, existing)
		}
	}
	e.state.Patterns = append(kept, learned...)
	e.state.UpdatedAt = e.timestamp()

	return learned
}

func patternType(t violations.Type) PatternType {
	switch t {
	case violations.MRCCExceeded, violations.ScopeExceeded:
		return PatternScopeCreep
	case violations.AuthorityMissing:
		return PatternAuthorityMismatch
	case violations.RateLimit:
		return PatternRateAbuse
	case violations.PolicyMismatch:
		return PatternPolicyGap
	default:
		return PatternRecurringViolation
	}
}

// confidence blends frequency (60%) and recency (40%), rounded to two
// decimals. A pattern unseen for 30 days contributes zero recency.
func (e *Engine) confidence(p violations.Pattern) float64 {
	freqScore := math.Min(float64(p.Count)/10, 1)

	recencyScore := 0.0
	if lastSeen, err := time.Parse(time.RFC3339, p.LastOccurrence); err == nil {
		days := e.now().Sub(lastSeen).Hours() / 24
		recencyScore = math.Max(0, 1-days/30)
	}

	return math.Round((freqScore*0.6+recencyScore*0.4)*100) / 100
}

func suggestedAction(p violations.Pattern) SuggestedAction {
	switch {
	case p.Count >= 10:
		return SuggestUpdatePolicy
	case p.Count >= 5:
		return SuggestEscalateToOwner
	case p.Type == violations.RateLimit:
		return SuggestAdjustThreshold
	case p.Type == violations.AuthorityMissing:
		return SuggestAddException
	default:
		return SuggestNoAction
	}
}

// RecordFeedback appends a feedback record and shifts the action's
// tolerance weight by a fixed delta per feedback type, clamped to
// [-1, 1].
func (e *Engine) RecordFeedback(actionID string, t FeedbackType, source, reason string) FeedbackRecord {
	delta := weightAdjustment(t)

	e.mu.Lock()
	defer e.mu.Unlock()

	record := FeedbackRecord{
		ID:               e.newID(),
		Timestamp:        e.timestamp(),
		ActionID:         actionID,
		FeedbackType:     t,
		Source:           source,
		Reason:           reason,
		WeightAdjustment: delta,
	}
	e.state.Feedback = append(e.state.Feedback, record)

	current := e.state.Weights.Actions[actionID]
	e.state.Weights.Actions[actionID] = math.Max(-1, math.Min(1, current+delta))
	e.state.UpdatedAt = e.timestamp()

	return record
}

func weightAdjustment(t FeedbackType) float64 {
	switch t {
	case FeedbackOverrideApproved:
		return 0.1
	case FeedbackOverrideRejected:
		return -0.1
	case FeedbackFalsePositive:
		return 0.2
	case FeedbackTruePositive:
		return -0.2
	default:
		return 0
	}
}

// GenerateProposal turns a learned pattern into a policy proposal, or
// returns nil when confidence is below 0.5, the action is absent from
// the space, or the pattern's suggested action has no proposal shape.
// Generated proposals are appended to learning state as DRAFTs.
func (e *Engine) GenerateProposal(pattern LearnedPattern, sp *space.Space) *Proposal {
	if pattern.Confidence < 0.5 {
		return nil
	}
	action := sp.Action(pattern.ActionID)
	if action == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var proposal Proposal
	switch pattern.SuggestedAction {
	case SuggestUpdatePolicy:
		proposal = Proposal{
			ID:            e.newID(),
			CreatedAt:     e.timestamp(),
			Status:        ProposalDraft,
			ProposalType:  ProposalAdjustClassification,
			ActionID:      action.ID,
			CurrentValue:  action.CAES,
			ProposedValue: decrementClassification(action.CAES),
			Rationale: fmt.Sprintf("Action '%s' has %d violations of type %s. Adjusting classification to reduce friction.",
				action.ID, pattern.Frequency, pattern.ViolationType),
			Evidence: []string{
				fmt.Sprintf("Violation frequency: %d", pattern.Frequency),
				fmt.Sprintf("Pattern type: %s", pattern.PatternType),
				fmt.Sprintf("First seen: %s", pattern.FirstSeen),
				fmt.Sprintf("Last seen: %s", pattern.LastSeen),
			},
			Confidence: pattern.Confidence,
		}
	case SuggestAdjustThreshold:
		proposal = Proposal{
			ID:           e.newID(),
			CreatedAt:    e.timestamp(),
			Status:       ProposalDraft,
			ProposalType: ProposalUpdateMRCC,
			ActionID:     action.ID,
			Rationale: fmt.Sprintf("Rate limit violations for '%s' suggest threshold may be too restrictive.",
				action.ID),
			Evidence: []string{
				fmt.Sprintf("Violation count: %d", pattern.Frequency),
				fmt.Sprintf("Pattern: %s", pattern.PatternType),
			},
			Confidence: pattern.Confidence,
		}
	case SuggestAddException:
		proposal = Proposal{
			ID:           e.newID(),
			CreatedAt:    e.timestamp(),
			Status:       ProposalDraft,
			ProposalType: ProposalAddException,
			ActionID:     action.ID,
			Rationale: fmt.Sprintf("Authority violations for '%s' may warrant an exception for certain actors.",
				action.ID),
			Evidence: []string{
				fmt.Sprintf("Violation count: %d", pattern.Frequency),
				fmt.Sprintf("Pattern: %s", pattern.PatternType),
			},
			Confidence: pattern.Confidence,
		}
	default:
		return nil
	}

	e.state.Proposals = append(e.state.Proposals, proposal)
	e.state.UpdatedAt = e.timestamp()
	return &proposal
}

var classificationRe = regexp.MustCompile(`^C(\d)`)

// decrementClassification lowers the leading C level by one, floor C0.
func decrementClassification(code string) string {
	m := classificationRe.FindStringSubmatch(code)
	if m == nil || m[1] == "0" {
		return code
	}
	return fmt.Sprintf("C%c%s", m[1][0]-1, code[2:])
}

// RunBenchmark evaluates the action space against a compliance standard
// and records the result. Score starts at 100 and loses 20 per HIGH gap,
// 10 per MEDIUM, 5 per LOW, floored at 0.
func (e *Engine) RunBenchmark(sp *space.Space, bt BenchmarkType) BenchmarkResult {
	gaps := identifyGaps(sp, bt)

	e.mu.Lock()
	defer e.mu.Unlock()

	result := BenchmarkResult{
		ID:            e.newID(),
		Timestamp:     e.timestamp(),
		BenchmarkType: bt,
		Standard:      standardName(bt),
		Score:         benchmarkScore(gaps),
		Gaps:          gaps,
	}
	e.state.Benchmarks = append(e.state.Benchmarks, result)
	e.state.UpdatedAt = e.timestamp()
	return result
}

func standardName(bt BenchmarkType) string {
	switch bt {
	case BenchmarkSOC2:
		return "SOC 2 Type II"
	case BenchmarkISO27001:
		return "ISO 27001:2022"
	case BenchmarkNIST:
		return "NIST CSF 2.0"
	default:
		return "Custom Benchmark"
	}
}

func identifyGaps(sp *space.Space, bt BenchmarkType) []Gap {
	var gaps []Gap

	if !sp.CurrentEpoch.HasProperty("audit_cannot_disable") {
		gaps = append(gaps, Gap{
			ControlID:   fmt.Sprintf("%s-AUDIT-01", bt),
			Description: "Audit trail must be immutable and cannot be disabled",
			Severity:    GapHigh,
			Remediation: `Add "audit_cannot_disable" to epoch monotonic properties`,
		})
	}
	if !sp.MRCC.ForbidsAction("expand_autonomy") {
		gaps = append(gaps, Gap{
			ControlID:   fmt.Sprintf("%s-AUTH-01", bt),
			Description: "Autonomy expansion must be explicitly forbidden",
			Severity:    GapHigh,
			Remediation: `Add "expand_autonomy" to MRCC forbidden_actions`,
		})
	}
	if len(sp.MRCC.RateLimits) == 0 {
		gaps = append(gaps, Gap{
			ControlID:   fmt.Sprintf("%s-RATE-01", bt),
			Description: "Rate limits must be defined to prevent abuse",
			Severity:    GapMedium,
			Remediation: "Define rate_limits in MRCC constraints",
		})
	}

	return gaps
}

func benchmarkScore(gaps []Gap) int {
	deductions := 0
	for _, g := range gaps {
		switch g.Severity {
		case GapHigh:
			deductions += 20
		case GapMedium:
			deductions += 10
		case GapLow:
			deductions += 5
		}
	}
	if deductions > 100 {
		return 0
	}
	return 100 - deductions
}

// ProposalsByStatus returns proposals in the given review state.
func (e *Engine) ProposalsByStatus(status ProposalStatus) []Proposal {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Proposal
	for _, p := range e.state.Proposals {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

// UpdateProposalStatus moves a proposal to a new review state. Returns
// false if the id is unknown.
func (e *Engine) UpdateProposalStatus(id string, status ProposalStatus) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.state.Proposals {
		if e.state.Proposals[i].ID == id {
			e.state.Proposals[i].Status = status
			e.state.UpdatedAt = e.timestamp()
			return true
		}
	}
	return false
}

// Snapshot returns a deep copy of the learning state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyState()
}

func (e *Engine) copyState() State {
	s := e.state
	s.Patterns = append([]LearnedPattern(nil), e.state.Patterns...)
	s.Feedback = append([]FeedbackRecord(nil), e.state.Feedback...)
	s.Proposals = make([]Proposal, len(e.state.Proposals))
	for i, p := range e.state.Proposals {
		p.Evidence = append([]string(nil), p.Evidence...)
		s.Proposals[i] = p
	}
	s.Benchmarks = make([]BenchmarkResult, len(e.state.Benchmarks))
	for i, b := range e.state.Benchmarks {
		b.Gaps = append([]Gap(nil), b.Gaps...)
		s.Benchmarks[i] = b
	}
	s.Weights.Actions = make(map[string]float64, len(e.state.Weights.Actions))
	for k, v := range e.state.Weights.Actions {
		s.Weights.Actions[k] = v
	}
	s.Weights.Types = make(map[violations.Type]float64, len(e.state.Weights.Types))
	for k, v := range e.state.Weights.Types {
		s.Weights.Types[k] = v
	}
	return s
}

// Export serializes the learning state as pretty-printed JSON, the blob
// format checkpoints persist.
func (e *Engine) Export() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, err := json.MarshalIndent(e.state, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

// Import replaces the learning state wholesale with the parsed blob.
func (e *Engine) Import(data []byte) error {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("learning: import state: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = s
	return nil
}

// Reset restores the initial empty state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = e.initialState()
}

// Valid reports whether the state is structurally sound: version set,
// weights maps present. Used by checkpoint health probes.
func (e *Engine) Valid() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Version != "" && e.state.Weights.Actions != nil && e.state.Weights.Types != nil
}
