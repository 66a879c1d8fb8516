// Package gas provides in-process governance for Go agent hosts. It
// wires the full pipeline behind one Engine: action validation against
// an action space, enforcement with audit events, violation capture and
// pattern analysis, compliance scoring, learning, and checkpointed
// rollback.
//
// Usage:
//
//	eng, err := gas.New(
//	    gas.WithActionSpaceDocument(spaceYAML),
//	    gas.WithPolicyRefs("org:policy"),
//	)
//	res := eng.EnforceAndRecord("deploy_service", gas.Context{Actor: "agent-7"})
//	if res.Outcome != gas.OutcomeAllowed {
//	    // blocked or escalated; res.AuditEvent is already on the ledger
//	}
//
// The SDK links directly against internal packages for zero-subprocess
// overhead. External users import
// github.com/hummbl-dev/hummbl-agent-federation/sdk/go/gas.
package gas
