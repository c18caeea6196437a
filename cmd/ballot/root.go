package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yourusername/ballot/pkg/config"
)

var (
	cfgFile   string
	rpcURL    string
	logLevel  string
	assumeYes bool
	fromAddr  string
	txNonce   uint64
	cfg       *config.Config
	logger    zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "ballot",
	Short:         "Delegated voting ballots",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if rpcURL != "" {
			cfg.RPC.URL = rpcURL
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		logger, err = newLogger(cfg.Log)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc-url", "", "node JSON-RPC URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.PersistentFlags().StringVar(&fromAddr, "from", "", "sign with the key file of this address instead of PRIVATE_KEY")
	rootCmd.PersistentFlags().Uint64Var(&txNonce, "nonce", 0, "transaction nonce (default: current time in nanoseconds)")
}

func newLogger(c config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}

	var l zerolog.Logger
	if c.Console {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		l = zerolog.New(os.Stderr)
	}
	return l.Level(level).With().Timestamp().Logger(), nil
}
