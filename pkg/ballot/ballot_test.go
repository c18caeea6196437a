package ballot_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ballot/pkg/ballot"
)

var (
	chair = common.HexToAddress("0x777410F6AE513F55c714c6843D66929dc7933280")
	v1    = common.HexToAddress("0x888ebea583209695A27BD9b8f604aB2FfbeF0654")
	v2    = common.HexToAddress("0x0322Fbaef4f28E2854711237C848F6111e725874")
	v3    = common.HexToAddress("0xaa9fc66cc11bf4268e08cf9431bf40ea4d8300a6")
	v4    = common.HexToAddress("0x00000000000000000000000000000000000000a4")
	v5    = common.HexToAddress("0x00000000000000000000000000000000000000a5")
)

func newBallot(t *testing.T, names ...string) *ballot.Ballot {
	t.Helper()
	if len(names) == 0 {
		names = []string{"Proposal 1", "Proposal 2", "Proposal 3"}
	}
	proposals, err := ballot.NamesFromStrings(names)
	require.NoError(t, err)
	b, err := ballot.New(chair, proposals)
	require.NoError(t, err)
	return b
}

func grant(t *testing.T, b *ballot.Ballot, voters ...common.Address) {
	t.Helper()
	for _, v := range voters {
		_, err := b.GrantRight(chair, v)
		require.NoError(t, err)
	}
}

func requireRevert(t *testing.T, err error, kind error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
	var revertErr *ballot.RevertError
	require.True(t, errors.As(err, &revertErr))
}

func TestConstruction(t *testing.T) {
	b := newBallot(t)
	require.Equal(t, chair, b.Chairperson())
	require.Equal(t, uint64(1), b.Voter(chair).Weight)
	require.Equal(t, 3, b.ProposalCount())
	for i, p := range b.Proposals() {
		require.Equal(t, fmt.Sprintf("Proposal %d", i+1), p.Name.String())
		require.Zero(t, p.VoteCount)
	}
	require.Zero(t, b.Voter(v1).Weight)
}

func TestConstructionNeedsProposals(t *testing.T) {
	_, err := ballot.New(chair, nil)
	require.Error(t, err)
}

func TestGrantRight(t *testing.T) {
	b := newBallot(t)
	receipt, err := b.GrantRight(chair, v1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), b.Voter(v1).Weight)
	require.Equal(t, []ballot.Change{{Kind: ballot.WeightChange, Voter: v1, From: 0, To: 1}}, receipt.Changes)
}

func TestGrantRightOnlyChairperson(t *testing.T) {
	b := newBallot(t)
	_, err := b.GrantRight(v1, v2)
	requireRevert(t, err, ballot.ErrUnauthorized)
	require.Contains(t, err.Error(), "Only chairperson can give right to vote")
	require.Zero(t, b.Voter(v2).Weight)
}

func TestGrantRightTwice(t *testing.T) {
	b := newBallot(t)
	grant(t, b, v1)
	_, err := b.GrantRight(chair, v1)
	requireRevert(t, err, ballot.ErrAlreadyHasRights)
	require.Equal(t, uint64(1), b.Voter(v1).Weight)
}

func TestGrantRightAfterVoting(t *testing.T) {
	b := newBallot(t)
	grant(t, b, v1)
	_, err := b.Vote(v1, 0)
	require.NoError(t, err)
	_, err = b.GrantRight(chair, v1)
	requireRevert(t, err, ballot.ErrAlreadyVoted)
	require.Contains(t, err.Error(), "The voter already voted")
}

func TestVote(t *testing.T) {
	b := newBallot(t)
	grant(t, b, v1)
	receipt, err := b.Vote(v1, 1)
	require.NoError(t, err)
	require.Equal(t, []ballot.Change{{Kind: ballot.TallyChange, Proposal: 1, From: 0, To: 1}}, receipt.Changes)

	voter := b.Voter(v1)
	require.True(t, voter.Voted)
	require.Equal(t, uint64(1), voter.Vote)
	require.Equal(t, uint64(1), voter.Weight)

	proposals := b.Proposals()
	require.Zero(t, proposals[0].VoteCount)
	require.Equal(t, uint64(1), proposals[1].VoteCount)
	require.Zero(t, proposals[2].VoteCount)
}

func TestVoteWithoutRight(t *testing.T) {
	b := newBallot(t)
	_, err := b.Vote(v1, 0)
	requireRevert(t, err, ballot.ErrUnauthorized)
	require.Contains(t, err.Error(), "Has no right to vote")
	require.False(t, b.Voter(v1).Voted)
}

func TestVoteTwice(t *testing.T) {
	b := newBallot(t)
	_, err := b.Vote(chair, 0)
	require.NoError(t, err)
	_, err = b.Vote(chair, 1)
	requireRevert(t, err, ballot.ErrAlreadyVoted)
	proposals := b.Proposals()
	require.Equal(t, uint64(1), proposals[0].VoteCount)
	require.Zero(t, proposals[1].VoteCount)
}

func TestVoteOutOfRange(t *testing.T) {
	b := newBallot(t)
	_, err := b.Vote(chair, 3)
	requireRevert(t, err, ballot.ErrOutOfRange)
	require.False(t, b.Voter(chair).Voted)
}

func TestDelegateToSelf(t *testing.T) {
	b := newBallot(t)
	// rejected whatever the caller's state
	for _, caller := range []common.Address{chair, v1} {
		_, err := b.Delegate(caller, caller)
		requireRevert(t, err, ballot.ErrInvalidDelegate)
		require.Contains(t, err.Error(), "Self-delegation is disallowed")
	}
	_, err := b.Vote(chair, 0)
	require.NoError(t, err)
	_, err = b.Delegate(chair, chair)
	requireRevert(t, err, ballot.ErrInvalidDelegate)
}

func TestDelegateWithoutRight(t *testing.T) {
	b := newBallot(t)
	_, err := b.Delegate(v1, v2)
	requireRevert(t, err, ballot.ErrUnauthorized)
	require.Contains(t, err.Error(), "You have no right to vote")
}

func TestDelegateAfterVoting(t *testing.T) {
	b := newBallot(t)
	grant(t, b, v1)
	_, err := b.Vote(chair, 0)
	require.NoError(t, err)
	_, err = b.Delegate(chair, v1)
	requireRevert(t, err, ballot.ErrAlreadyVoted)
	require.Equal(t, uint64(1), b.Voter(v1).Weight)
}

func TestDelegateToUnvotedVoter(t *testing.T) {
	b := newBallot(t)
	grant(t, b, v1, v2)
	receipt, err := b.Delegate(v1, v2)
	require.NoError(t, err)
	require.Equal(t, []ballot.Change{{Kind: ballot.WeightChange, Voter: v2, From: 1, To: 2}}, receipt.Changes)

	require.Equal(t, uint64(2), b.Voter(v2).Weight)
	require.False(t, b.Voter(v2).Voted)
	delegator := b.Voter(v1)
	require.True(t, delegator.Voted)
	require.Equal(t, v2, delegator.Delegate)

	// the accumulated weight is cast in one vote
	_, err = b.Vote(v2, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), b.Proposals()[2].VoteCount)
}

func TestDelegateToVotedVoter(t *testing.T) {
	b := newBallot(t)
	grant(t, b, v1, v2)
	_, err := b.Vote(v1, 1)
	require.NoError(t, err)
	before := b.Voter(v1)

	receipt, err := b.Delegate(v2, v1)
	require.NoError(t, err)
	require.Equal(t, []ballot.Change{{Kind: ballot.TallyChange, Proposal: 1, From: 1, To: 2}}, receipt.Changes)

	require.Equal(t, before, b.Voter(v1))
	require.Equal(t, uint64(2), b.Proposals()[1].VoteCount)
	require.True(t, b.Voter(v2).Voted)
	require.Equal(t, v1, b.Voter(v2).Delegate)
}

func TestDelegateFollowsChain(t *testing.T) {
	b := newBallot(t)
	grant(t, b, v1, v2, v3)
	_, err := b.Delegate(v2, v3)
	require.NoError(t, err)
	// v1 -> v2 resolves to v3 as v2 has already delegated
	_, err = b.Delegate(v1, v2)
	require.NoError(t, err)
	require.Equal(t, v3, b.Voter(v1).Delegate)
	require.Equal(t, uint64(3), b.Voter(v3).Weight)
	require.Equal(t, uint64(1), b.Voter(v2).Weight)
}

func TestDelegationCycleLeavesNoTrace(t *testing.T) {
	b := newBallot(t)
	grant(t, b, v1, v2, v3)
	_, err := b.Delegate(v1, v2)
	require.NoError(t, err)
	_, err = b.Delegate(v2, v3)
	require.NoError(t, err)

	before := b.Voters()
	_, err = b.Delegate(v3, v1)
	requireRevert(t, err, ballot.ErrSelfDelegationCycle)
	require.Contains(t, err.Error(), "Found loop in delegation")
	require.Equal(t, before, b.Voters())
}

func TestDelegateToZeroAddress(t *testing.T) {
	b := newBallot(t)
	_, err := b.Delegate(chair, common.Address{})
	requireRevert(t, err, ballot.ErrInvalidDelegate)
}

func TestStrictDelegation(t *testing.T) {
	names, err := ballot.NamesFromStrings([]string{"A", "B"})
	require.NoError(t, err)

	lenient, err := ballot.New(chair, names)
	require.NoError(t, err)
	_, err = lenient.Delegate(chair, v1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), lenient.Voter(v1).Weight)

	strict, err := ballot.New(chair, names, ballot.WithStrictDelegation())
	require.NoError(t, err)
	_, err = strict.Delegate(chair, v1)
	requireRevert(t, err, ballot.ErrUnauthorized)
	require.False(t, strict.Voter(chair).Voted)
}

func TestWinningProposal(t *testing.T) {
	b := newBallot(t)
	require.Zero(t, b.WinningProposal())
	require.Equal(t, "Proposal 1", b.WinnerName().String())

	// counts [1, 3, 2]
	grant(t, b, v1, v2, v3, v4, v5)
	_, err := b.Delegate(v1, v2)
	require.NoError(t, err)
	_, err = b.Vote(v2, 1) // weight 2
	require.NoError(t, err)
	_, err = b.Vote(v3, 1)
	require.NoError(t, err)
	_, err = b.Vote(chair, 0)
	require.NoError(t, err)
	_, err = b.Vote(v4, 2)
	require.NoError(t, err)
	_, err = b.Vote(v5, 2)
	require.NoError(t, err)

	counts := []uint64{}
	for _, p := range b.Proposals() {
		counts = append(counts, p.VoteCount)
	}
	require.Equal(t, []uint64{1, 3, 2}, counts)
	require.EqualValues(t, 1, b.WinningProposal())
	require.Equal(t, "Proposal 2", b.WinnerName().String())
}

func TestWinningProposalTie(t *testing.T) {
	b := newBallot(t)
	grant(t, b, v1, v2)
	_, err := b.Vote(v1, 2)
	require.NoError(t, err)
	_, err = b.Vote(v2, 1)
	require.NoError(t, err)
	// proposals 1 and 2 are tied, the lower index wins
	require.EqualValues(t, 1, b.WinningProposal())
}

func TestEndToEnd(t *testing.T) {
	b := newBallot(t, "A", "B", "C")
	grant(t, b, v1, v2)
	_, err := b.Vote(v1, 0)
	require.NoError(t, err)
	_, err = b.Delegate(v2, v1)
	require.NoError(t, err)

	require.Equal(t, uint64(1), b.Voter(v1).Weight)
	p, err := b.Proposal(0)
	require.NoError(t, err)
	require.Equal(t, uint64(2), p.VoteCount)
	require.Equal(t, "A", b.WinnerName().String())
}

func TestProposalOutOfRange(t *testing.T) {
	b := newBallot(t)
	_, err := b.Proposal(3)
	requireRevert(t, err, ballot.ErrOutOfRange)
}

// TestRandomScenarios runs seeded random sequences of operations and checks
// that weight is neither created nor destroyed and that voted never resets.
func TestRandomScenarios(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			faker := gofakeit.New(seed)

			names := make([]string, faker.IntRange(1, 5))
			for i := range names {
				names[i] = fmt.Sprintf("%d %s", i, faker.BuzzWord())
			}
			b := newBallot(t, names...)

			addrs := []common.Address{chair}
			for i := 0; i < 8; i++ {
				addrs = append(addrs, common.BytesToAddress([]byte{0xb0, byte(i + 1)}))
			}
			pick := func() common.Address { return addrs[faker.IntRange(0, len(addrs)-1)] }

			granted := uint64(1)
			voted := map[common.Address]bool{}
			for step := 0; step < 60; step++ {
				var err error
				switch faker.IntRange(0, 2) {
				case 0:
					_, err = b.GrantRight(chair, pick())
					if err == nil {
						granted++
					}
				case 1:
					_, err = b.Vote(pick(), uint64(faker.IntRange(0, len(names))))
				case 2:
					_, err = b.Delegate(pick(), pick())
				}
				if err != nil {
					var revertErr *ballot.RevertError
					require.True(t, errors.As(err, &revertErr), "unexpected error %v", err)
				}

				voters := b.Voters()
				var unspent uint64
				for addr, v := range voters {
					if voted[addr] {
						require.True(t, v.Voted, "voted flag was reset for %s", addr)
					}
					if v.Voted {
						voted[addr] = true
						continue
					}
					unspent += v.Weight
				}
				var tallied uint64
				for _, p := range b.Proposals() {
					tallied += p.VoteCount
				}
				require.Equal(t, granted, unspent+tallied)
			}
		})
	}
}

func TestConcurrentOperations(t *testing.T) {
	names := []string{"A", "B", "C"}
	b := newBallot(t, names...)

	addrs := []common.Address{chair}
	for i := 0; i < 12; i++ {
		addrs = append(addrs, common.BytesToAddress([]byte{0xc0, byte(i + 1)}))
	}

	var (
		granted  atomic.Uint64
		tallied  atomic.Uint64
		votedMu  sync.Mutex
		votedBy  = map[common.Address]bool{}
		workers  sync.WaitGroup
		observer sync.WaitGroup
	)
	granted.Store(1)

	done := make(chan struct{})
	observer.Add(1)
	go func() {
		defer observer.Done()
		seen := map[common.Address]bool{}
		for {
			for addr, v := range b.Voters() {
				if seen[addr] && !v.Voted {
					t.Errorf("voted flag was reset for %s", addr)
				}
				if v.Voted {
					seen[addr] = true
				}
			}
			select {
			case <-done:
				return
			default:
			}
		}
	}()

	for w := 0; w < 16; w++ {
		workers.Add(1)
		go func(seed int64) {
			defer workers.Done()
			faker := gofakeit.New(seed)
			pick := func() common.Address { return addrs[faker.IntRange(0, len(addrs)-1)] }

			for step := 0; step < 200; step++ {
				var (
					receipt *ballot.Receipt
					caller  common.Address
					err     error
				)
				switch faker.IntRange(0, 2) {
				case 0:
					receipt, err = b.GrantRight(chair, pick())
					if err == nil {
						granted.Add(1)
					}
				case 1:
					caller = pick()
					receipt, err = b.Vote(caller, uint64(faker.IntRange(0, len(names))))
				case 2:
					caller = pick()
					receipt, err = b.Delegate(caller, pick())
				}
				if err != nil {
					var revertErr *ballot.RevertError
					if !errors.As(err, &revertErr) {
						t.Errorf("unexpected error %v", err)
					}
					continue
				}

				if caller != (common.Address{}) {
					votedMu.Lock()
					votedBy[caller] = true
					votedMu.Unlock()
				}
				for _, c := range receipt.Changes {
					if c.Kind == ballot.TallyChange {
						tallied.Add(c.To - c.From)
					}
				}
			}
		}(int64(w + 1))
	}

	workers.Wait()
	close(done)
	observer.Wait()

	voters := b.Voters()
	var unspent uint64
	for addr, v := range voters {
		if votedBy[addr] {
			require.True(t, v.Voted, "%s voted but is not marked", addr)
		}
		if !v.Voted {
			unspent += v.Weight
		}
	}
	var total uint64
	for _, p := range b.Proposals() {
		total += p.VoteCount
	}
	require.Equal(t, tallied.Load(), total)
	require.Equal(t, granted.Load(), unspent+total)
}
