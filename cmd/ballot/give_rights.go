package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/ballot/pkg/encoding"
)

func init() {
	rootCmd.AddCommand(giveRightsCmd)
}

var giveRightsCmd = &cobra.Command{
	Use:   "give-rights <ballot> <voter>",
	Short: "Give a voter the right to vote (chairperson only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		ballotAddr, err := parseAddress("ballot", args[0])
		if err != nil {
			return err
		}
		voter, err := parseAddress("voter", args[1])
		if err != nil {
			return err
		}
		signer, err := loadSigner(false)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Giving voting right to %s on %s\n", voter.Hex(), cropAddress(ballotAddr.Hex()))
		if !confirm(cmd.InOrStdin(), out, "Confirm?") {
			fmt.Fprintln(out, "Operation cancelled")
			return nil
		}

		_, err = send(cmd, signer, &encoding.Operation{
			Type:   encoding.OperationTypeGrantRight,
			Ballot: ballotAddr,
			Nonce:  nextNonce(),
			Target: voter,
		})
		return err
	},
}
