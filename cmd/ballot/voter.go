package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(voterCmd)
}

var voterCmd = &cobra.Command{
	Use:   "voter <ballot> <address>",
	Short: "Show a voter's record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ballotAddr, err := parseAddress("ballot", args[0])
		if err != nil {
			return err
		}
		addr, err := parseAddress("voter", args[1])
		if err != nil {
			return err
		}

		v, err := newClient().Voter(cmd.Context(), ballotAddr, addr)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Voter Information: %s\n", cropAddress(v.Address))
		fmt.Fprintln(out, voterTable(v))
		return nil
	},
}
