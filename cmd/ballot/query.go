package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	showVoters  bool
	historySize int
)

func init() {
	queryCmd.Flags().BoolVar(&showVoters, "voters", false, "also list every voter")
	queryCmd.Flags().IntVar(&historySize, "history", 0, "also show the last N transactions")
	rootCmd.AddCommand(queryCmd, listCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query <ballot>",
	Short: "Show proposals, tallies and the winner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		ballotAddr, err := parseAddress("ballot", args[0])
		if err != nil {
			return err
		}

		client := newClient()
		chair, err := client.Chairperson(ctx, ballotAddr)
		if err != nil {
			return err
		}
		proposals, err := client.Proposals(ctx, ballotAddr)
		if err != nil {
			return err
		}
		winner, err := client.WinningProposal(ctx, ballotAddr)
		if err != nil {
			return err
		}
		name, err := client.WinnerName(ctx, ballotAddr)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Ballot %s (chairperson %s)\n", ballotAddr.Hex(), cropAddress(chair.Hex()))
		fmt.Fprintln(out, proposalsTable(proposals, winner))
		fmt.Fprintf(out, "Winning proposal: %d. %s\n", winner, name)

		if showVoters {
			voters, err := client.Voters(ctx, ballotAddr)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, votersTable(voters))
		}

		if historySize > 0 {
			receipts, err := client.History(ctx, ballotAddr, historySize)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, historyTable(receipts))
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ballots deployed on the node",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ballots, err := newClient().Ballots(cmd.Context())
		if err != nil {
			return err
		}

		t := newTable("Address", "Chairperson", "Proposals", "Seq")
		for _, b := range ballots {
			t.Row(b.Address, cropAddress(b.Chairperson), fmt.Sprint(b.ProposalCount), fmt.Sprint(b.Sequence))
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}
