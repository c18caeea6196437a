package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yourusername/ballot/pkg/encoding"
)

var voteAlt bool

func init() {
	voteCmd.Flags().BoolVar(&voteAlt, "alt", false, "sign with ALT_KEY")
	rootCmd.AddCommand(voteCmd)
}

var voteCmd = &cobra.Command{
	Use:   "vote <ballot> <proposal index>",
	Short: "Cast your vote, including any weight delegated to you",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		ballotAddr, err := parseAddress("ballot", args[0])
		if err != nil {
			return err
		}
		index, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid proposal index %q", args[1])
		}
		signer, err := loadSigner(voteAlt)
		if err != nil {
			return err
		}

		client := newClient()
		proposal, err := client.Proposal(ctx, ballotAddr, index)
		if err != nil {
			return err
		}
		before, err := client.Voter(ctx, ballotAddr, signer.Address())
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Voter Information: %s\n", cropAddress(signer.Address().Hex()))
		fmt.Fprintln(out, voterTable(before))
		fmt.Fprintf(out, "Voting to proposal %q\n", proposal.Name)
		if !confirm(cmd.InOrStdin(), out, "Confirm?") {
			fmt.Fprintln(out, "Operation cancelled")
			return nil
		}

		if _, err := send(cmd, signer, &encoding.Operation{
			Type:     encoding.OperationTypeVote,
			Ballot:   ballotAddr,
			Nonce:    nextNonce(),
			Proposal: index,
		}); err != nil {
			return err
		}

		after, err := client.Voter(ctx, ballotAddr, signer.Address())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, voterTable(after))
		return nil
	},
}
