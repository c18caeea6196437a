// Package ballot implements a delegated voting state machine: a chairperson
// grants rights, voters either vote for a proposal or delegate their weight to
// another voter, and the proposal with the greatest weighted tally wins.
package ballot

import (
	"errors"
	"fmt"

	"github.com/algorand/go-deadlock"
	"github.com/ethereum/go-ethereum/common"
)

// Proposal is a named option with a running weighted tally.
type Proposal struct {
	Name      ProposalName
	VoteCount uint64
}

// Voter is the per address record. Delegate is the zero address until the
// voter delegates.
type Voter struct {
	Weight   uint64
	Voted    bool
	Delegate common.Address
	Vote     uint64
}

// Ballot is the single authoritative state of one vote. It can be viewed as a
// state machine where each voter moves from unregistered (weight 0) to
// registered (weight >= 1) via GrantRight and then to voted, a terminal state,
// via either Vote or Delegate.
//
// Every mutating operation is atomic: preconditions and the delegation chain
// are resolved before anything is written, so a rejected call leaves no trace.
// Calls are serialized by a per instance mutex.
type Ballot struct {
	mu deadlock.Mutex

	chairperson common.Address
	proposals   []Proposal
	voters      map[common.Address]Voter

	strictDelegation bool
}

// New creates a ballot with the given ordered proposals. The chairperson is
// the creator and starts with a weight of 1.
func New(chairperson common.Address, names []ProposalName, opts ...Option) (*Ballot, error) {
	if len(names) == 0 {
		return nil, errors.New("ballot needs at least one proposal")
	}

	b := &Ballot{
		chairperson: chairperson,
		proposals:   make([]Proposal, len(names)),
		voters:      make(map[common.Address]Voter),
	}
	for i, name := range names {
		b.proposals[i] = Proposal{Name: name}
	}
	b.voters[chairperson] = Voter{Weight: 1}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// voter returns the record for addr. Unknown addresses get an explicit zero
// record; nothing is inserted until an operation commits.
func (b *Ballot) voter(addr common.Address) Voter {
	v, ok := b.voters[addr]
	if !ok {
		return Voter{}
	}
	return v
}

// GrantRight gives `to` the right to vote. Only the chairperson may call it and
// only for an address that has neither voted nor already got rights.
func (b *Ballot) GrantRight(caller, to common.Address) (*Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if caller != b.chairperson {
		return nil, revert(ErrUnauthorized, "Only chairperson can give right to vote")
	}
	target := b.voter(to)
	if target.Voted {
		return nil, revert(ErrAlreadyVoted, "The voter already voted")
	}
	if target.Weight != 0 {
		return nil, revert(ErrAlreadyHasRights, "")
	}

	target.Weight = 1
	b.voters[to] = target

	return &Receipt{Changes: []Change{weightChange(to, 0, 1)}}, nil
}

// Delegate hands the caller's weight to `to`, following `to`'s own delegation
// chain to its end. If the final delegate already voted the weight goes
// straight to that proposal's tally.
func (b *Ballot) Delegate(caller, to common.Address) (*Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if to == caller {
		return nil, revert(ErrInvalidDelegate, "Self-delegation is disallowed")
	}
	if to == (common.Address{}) {
		return nil, revert(ErrInvalidDelegate, "Cannot delegate to the zero address")
	}
	sender := b.voter(caller)
	if sender.Voted {
		return nil, revert(ErrAlreadyVoted, "You already voted")
	}
	if sender.Weight == 0 {
		return nil, revert(ErrUnauthorized, "You have no right to vote")
	}

	target, err := b.resolveDelegate(caller, to)
	if err != nil {
		return nil, err
	}
	delegate := b.voter(target)
	if b.strictDelegation && delegate.Weight == 0 {
		return nil, revert(ErrUnauthorized, "Voters cannot delegate to accounts that cannot vote")
	}

	// all checks passed, commit
	receipt := &Receipt{}
	sender.Voted = true
	sender.Delegate = target
	b.voters[caller] = sender

	if delegate.Voted {
		p := &b.proposals[delegate.Vote]
		receipt.Changes = append(receipt.Changes, tallyChange(delegate.Vote, p.VoteCount, p.VoteCount+sender.Weight))
		p.VoteCount += sender.Weight
	} else {
		receipt.Changes = append(receipt.Changes, weightChange(target, delegate.Weight, delegate.Weight+sender.Weight))
		delegate.Weight += sender.Weight
		b.voters[target] = delegate
	}

	return receipt, nil
}

// resolveDelegate walks the delegation chain starting at `to` and returns the
// terminal voter. Each hop lands on a voter that has delegated, so a walk
// longer than the number of known voters can only be a loop.
func (b *Ballot) resolveDelegate(from, to common.Address) (common.Address, error) {
	for hops := 0; ; hops++ {
		next := b.voter(to).Delegate
		if next == (common.Address{}) {
			return to, nil
		}
		if next == from || hops > len(b.voters) {
			return common.Address{}, revert(ErrSelfDelegationCycle, "Found loop in delegation")
		}
		to = next
	}
}

// Vote casts the caller's full weight, including weight delegated to them,
// for the proposal at index.
func (b *Ballot) Vote(caller common.Address, proposal uint64) (*Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sender := b.voter(caller)
	if sender.Weight == 0 {
		return nil, revert(ErrUnauthorized, "Has no right to vote")
	}
	if sender.Voted {
		return nil, revert(ErrAlreadyVoted, "Already voted")
	}
	if proposal >= uint64(len(b.proposals)) {
		return nil, revert(ErrOutOfRange, fmt.Sprintf("proposal %d does not exist, ballot has %d", proposal, len(b.proposals)))
	}

	sender.Voted = true
	sender.Vote = proposal
	b.voters[caller] = sender

	p := &b.proposals[proposal]
	receipt := &Receipt{Changes: []Change{tallyChange(proposal, p.VoteCount, p.VoteCount+sender.Weight)}}
	p.VoteCount += sender.Weight

	return receipt, nil
}

// WinningProposal returns the index of the proposal with the greatest tally.
// Ties go to the lowest index, and with no votes cast it returns 0.
func (b *Ballot) WinningProposal() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.winningProposal()
}

func (b *Ballot) winningProposal() uint64 {
	var (
		winning   uint64
		bestCount uint64
	)
	for i, p := range b.proposals {
		if p.VoteCount > bestCount {
			bestCount = p.VoteCount
			winning = uint64(i)
		}
	}
	return winning
}

// WinnerName returns the name of the winning proposal.
func (b *Ballot) WinnerName() ProposalName {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.proposals[b.winningProposal()].Name
}

// Chairperson returns the address allowed to grant rights.
func (b *Ballot) Chairperson() common.Address {
	return b.chairperson
}

// StrictDelegation reports whether delegations to accounts without rights
// are rejected.
func (b *Ballot) StrictDelegation() bool {
	return b.strictDelegation
}

// Proposal returns the proposal at index.
func (b *Ballot) Proposal(index uint64) (Proposal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index >= uint64(len(b.proposals)) {
		return Proposal{}, revert(ErrOutOfRange, fmt.Sprintf("proposal %d does not exist, ballot has %d", index, len(b.proposals)))
	}
	return b.proposals[index], nil
}

// ProposalCount returns the number of proposals.
func (b *Ballot) ProposalCount() int {
	return len(b.proposals)
}

// Proposals returns a copy of all proposals in index order.
func (b *Ballot) Proposals() []Proposal {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Proposal, len(b.proposals))
	copy(out, b.proposals)
	return out
}

// Voter returns the record for addr, the zero record if it was never touched.
func (b *Ballot) Voter(addr common.Address) Voter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.voter(addr)
}

// Voters returns a copy of every voter record that has been written.
func (b *Ballot) Voters() map[common.Address]Voter {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[common.Address]Voter, len(b.voters))
	for addr, v := range b.voters {
		out[addr] = v
	}
	return out
}
