package ballot

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ChangeKind says which counter a Change touched.
type ChangeKind uint8

const (
	// WeightChange is a change to a voter's weight
	WeightChange ChangeKind = iota + 1
	// TallyChange is a change to a proposal's vote count
	TallyChange
)

func (k ChangeKind) String() string {
	switch k {
	case WeightChange:
		return "weight"
	case TallyChange:
		return "tally"
	default:
		return "unknown"
	}
}

func (k ChangeKind) MarshalText() ([]byte, error) {
	if k != WeightChange && k != TallyChange {
		return nil, fmt.Errorf("unknown change kind %d", k)
	}
	return []byte(k.String()), nil
}

func (k *ChangeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "weight":
		*k = WeightChange
	case "tally":
		*k = TallyChange
	default:
		return fmt.Errorf("unknown change kind %q", text)
	}
	return nil
}

// Change records one counter moving from From to To. Voter is set for weight
// changes, Proposal for tally changes.
type Change struct {
	Kind     ChangeKind     `json:"kind"`
	Voter    common.Address `json:"voter,omitempty"`
	Proposal uint64         `json:"proposal,omitempty"`
	From     uint64         `json:"from"`
	To       uint64         `json:"to"`
}

// Receipt lists the weight and tally changes a successful operation made.
type Receipt struct {
	Changes []Change `json:"changes"`
}

func weightChange(voter common.Address, from, to uint64) Change {
	return Change{Kind: WeightChange, Voter: voter, From: from, To: to}
}

func tallyChange(proposal, from, to uint64) Change {
	return Change{Kind: TallyChange, Proposal: proposal, From: from, To: to}
}

func (c Change) String() string {
	if c.Kind == TallyChange {
		return fmt.Sprintf("tally{proposal %d: %d -> %d}", c.Proposal, c.From, c.To)
	}
	return fmt.Sprintf("weight{%s: %d -> %d}", c.Voter.Hex(), c.From, c.To)
}
