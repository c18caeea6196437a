package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yourusername/ballot/pkg/ballot"
	"github.com/yourusername/ballot/pkg/rpc"
)

func TestCropAddress(t *testing.T) {
	require.Equal(t, "0x7774...3280", cropAddress("0x777410F6AE513F55c714c6843D66929dc7933280"))
	require.Equal(t, "0x01", cropAddress("0x01"))
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"enter", "\n", true},
		{"yes", "y\n", true},
		{"no", "n\n", false},
		{"no uppercase", " N \n", false},
		{"no trailing newline", "n", false},
		{"closed input", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.Equal(t, tt.want, confirm(strings.NewReader(tt.input), &out, "Confirm?"))
			require.Equal(t, "Confirm? (Y/n) ", out.String())
		})
	}

	assumeYes = true
	defer func() { assumeYes = false }()
	require.True(t, confirm(strings.NewReader("n\n"), &bytes.Buffer{}, "Confirm?"))
}

func TestTables(t *testing.T) {
	voter := voterTable(&rpc.VoterResponse{Address: "0xabc", Weight: 2, Voted: true, Delegate: "0xdef", Vote: 1})
	for _, want := range []string{"Address", "0xabc", "Weight", "2", "true", "0xdef"} {
		require.Contains(t, voter, want)
	}

	proposals := proposalsTable([]rpc.ProposalResponse{{Index: 0, Name: "A", VoteCount: 1}, {Index: 1, Name: "B", VoteCount: 3}}, 1)
	require.Contains(t, proposals, "winning")
	require.Equal(t, 1, strings.Count(proposals, "winning"))

	history := historyTable([]rpc.Receipt{
		{Sequence: 2, Operation: "vote", Caller: "0x777410F6AE513F55c714c6843D66929dc7933280", Status: "success",
			Changes: []ballot.Change{{Kind: ballot.TallyChange, Proposal: 1, From: 0, To: 2}}},
		{Sequence: 1, Operation: "delegate", Caller: "0x888ebea583209695A27BD9b8f604aB2FfbeF0654", Status: "reverted", Reason: "Self-delegation is disallowed"},
	})
	require.Contains(t, history, "tally{proposal 1: 0 -> 2}")
	require.Contains(t, history, "Self-delegation is disallowed")
}
