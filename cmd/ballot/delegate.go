package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/yourusername/ballot/pkg/encoding"
)

var delegateAlt bool

func init() {
	delegateCmd.Flags().BoolVar(&delegateAlt, "alt", false, "sign with ALT_KEY")
	rootCmd.AddCommand(delegateCmd)
}

var delegateCmd = &cobra.Command{
	Use:   "delegate <ballot> <to>",
	Short: "Delegate your vote to another voter",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		ballotAddr, err := parseAddress("ballot", args[0])
		if err != nil {
			return err
		}
		to, err := parseAddress("delegate", args[1])
		if err != nil {
			return err
		}
		signer, err := loadSigner(delegateAlt)
		if err != nil {
			return err
		}

		client := newClient()
		showVoters := func() error {
			for _, addr := range []common.Address{signer.Address(), to} {
				v, err := client.Voter(ctx, ballotAddr, addr)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Voter Information: %s\n", cropAddress(addr.Hex()))
				fmt.Fprintln(out, voterTable(v))
			}
			return nil
		}

		if err := showVoters(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (giver) delegates to %s (receiver)\n", signer.Address().Hex(), to.Hex())
		if !confirm(cmd.InOrStdin(), out, "Confirm?") {
			fmt.Fprintln(out, "Operation cancelled")
			return nil
		}

		if _, err := send(cmd, signer, &encoding.Operation{
			Type:   encoding.OperationTypeDelegate,
			Ballot: ballotAddr,
			Nonce:  nextNonce(),
			Target: to,
		}); err != nil {
			return err
		}
		return showVoters()
	},
}
