package ballot

// Option is a set of configurable behaviours. If left empty, defaults
// will be used
type Option func(b *Ballot)

// WithStrictDelegation rejects delegations whose final target has no right to
// vote.
func WithStrictDelegation() Option {
	return func(b *Ballot) {
		b.strictDelegation = true
	}
}
