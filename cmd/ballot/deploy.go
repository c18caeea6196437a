package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/yourusername/ballot/pkg/ballot"
	"github.com/yourusername/ballot/pkg/encoding"
)

func init() {
	rootCmd.AddCommand(deployCmd)
}

var deployCmd = &cobra.Command{
	Use:   "deploy <proposal>...",
	Short: "Deploy a new ballot with the given proposals",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		names, err := ballot.NamesFromStrings(args)
		if err != nil {
			return err
		}
		signer, err := loadSigner(false)
		if err != nil {
			return err
		}

		nonce := nextNonce()
		addr := crypto.CreateAddress(signer.Address(), nonce)

		fmt.Fprintf(out, "Deployer address: %s\n", cropAddress(signer.Address().Hex()))
		fmt.Fprintln(out, "Proposals:")
		for i, name := range args {
			fmt.Fprintf(out, "  %d. %s\n", i, name)
		}
		if !confirm(cmd.InOrStdin(), out, "Deploy?") {
			fmt.Fprintln(out, "Operation cancelled")
			return nil
		}

		receipt, err := send(cmd, signer, &encoding.Operation{
			Type:      encoding.OperationTypeDeploy,
			Nonce:     nonce,
			Proposals: names,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Ballot contract deployed to %s\n", receipt.Ballot)
		if receipt.Ballot != addr.Hex() {
			logger.Warn().Str("expected", addr.Hex()).Str("got", receipt.Ballot).Msg("deployed address differs from the derived one")
		}
		return nil
	},
}
