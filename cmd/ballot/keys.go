package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/ballot/pkg/keys"
)

var (
	keyLabel string
	showKey  bool
)

func init() {
	keysNewCmd.Flags().StringVar(&keyLabel, "label", "", "label stored with the key")
	keysNewCmd.Flags().BoolVar(&showKey, "show-private-key", false, "print the private key")
	keysCmd.AddCommand(keysNewCmd)
	rootCmd.AddCommand(keysCmd)
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage signing keys",
}

var keysNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a key and save it to the keys directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := keys.GenerateKey()
		if err != nil {
			return err
		}

		keyFile := keys.NewKeyFile(key, keyLabel)
		path, err := keys.SaveKeyFile(cfg.DataDir.KeysDir, keyFile)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Address:  %s\n", keyFile.Address)
		fmt.Fprintf(out, "Key file: %s\n", path)
		if showKey {
			fmt.Fprintf(out, "Private key: %s\n", keyFile.PrivateKey)
		}
		fmt.Fprintf(out, "Sign with it using --from %s\n", keyFile.Address)
		return nil
	},
}
