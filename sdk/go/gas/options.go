package gas

import (
	"time"

	"github.com/hummbl-dev/hummbl-agent-federation/internal/space"
)

// Option configures an Engine at creation time.
type Option func(*engineConfig)

type engineConfig struct {
	space      *space.Space
	spaceDoc   []byte
	policyRefs []string
	now        func() time.Time
}

// WithActionSpace sets an already-decoded action space.
func WithActionSpace(sp *space.Space) Option {
	return func(c *engineConfig) { c.space = sp }
}

// WithActionSpaceDocument sets the action space from YAML or JSON bytes,
// decoded during New.
func WithActionSpaceDocument(doc []byte) Option {
	return func(c *engineConfig) { c.spaceDoc = doc }
}

// WithPolicyRefs sets the policy references stamped onto audit events.
func WithPolicyRefs(refs ...string) Option {
	return func(c *engineConfig) { c.policyRefs = refs }
}

// WithClock overrides the time source for every component.
func WithClock(now func() time.Time) Option {
	return func(c *engineConfig) { c.now = now }
}
