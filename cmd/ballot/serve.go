package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourusername/ballot/pkg/ballot"
	"github.com/yourusername/ballot/pkg/node"
)

var strictDelegation bool

func init() {
	serveCmd.Flags().BoolVar(&strictDelegation, "strict-delegation", false, "reject delegations to accounts without voting rights")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a ballot node",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []ballot.Option
		if strictDelegation {
			opts = append(opts, ballot.WithStrictDelegation())
		}

		n, err := node.New(cfg, logger, opts...)
		if err != nil {
			return err
		}
		defer n.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info().Str("db", cfg.Database.Path).Str("listen", cfg.Server.ListenAddr).Msg("starting node")
		return n.Run(ctx)
	},
}
