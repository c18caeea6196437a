package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/yourusername/ballot/pkg/ballot"
	"github.com/yourusername/ballot/pkg/encoding"
	"github.com/yourusername/ballot/pkg/keys"
	"github.com/yourusername/ballot/pkg/rpc"
	"github.com/yourusername/ballot/pkg/signing"
)

func newClient() *rpc.Client {
	return rpc.NewClient(&cfg.RPC)
}

// loadSigner picks the signing key: the --from key file, else ALT_KEY when
// alt is set, else PRIVATE_KEY
func loadSigner(alt bool) (*signing.Signer, error) {
	if fromAddr != "" {
		addr, err := parseAddress("from", fromAddr)
		if err != nil {
			return nil, err
		}
		keyFile, err := keys.LoadKeyFile(cfg.DataDir.KeysDir, addr)
		if err != nil {
			return nil, err
		}
		key, err := keyFile.Key()
		if err != nil {
			return nil, err
		}
		return signing.NewSigner(key)
	}

	name, raw := "PRIVATE_KEY", cfg.Keys.PrivateKey
	if alt {
		name, raw = "ALT_KEY", cfg.Keys.AltKey
	}
	if raw == "" {
		return nil, fmt.Errorf("%s is not set", name)
	}
	key, err := keys.ParsePrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return signing.NewSigner(key)
}

func parseAddress(what, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s address: %q", what, s)
	}
	return common.HexToAddress(s), nil
}

func nextNonce() uint64 {
	if txNonce != 0 {
		return txNonce
	}
	return uint64(time.Now().UnixNano())
}

// send signs and submits op, then waits for its receipt
func send(cmd *cobra.Command, signer *signing.Signer, op *encoding.Operation) (*rpc.Receipt, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	tx, err := signer.Sign(op)
	if err != nil {
		return nil, err
	}

	client := newClient()
	hash, err := client.SendTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Transaction hash: %s\n", hash.Hex())
	fmt.Fprintln(out, "Waiting for confirmations...")

	receipt, err := client.WaitForReceipt(ctx, hash, cfg.Polling)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("tx", receipt.TxHash).Uint64("sequence", receipt.Sequence).Str("status", receipt.Status).Msg("receipt")

	if err := receipt.Err(); err != nil {
		var revertErr *ballot.RevertError
		if errors.As(err, &revertErr) {
			fmt.Fprintln(out, failStyle.Render("Transaction reverted: "+revertErr.Tag()))
		}
		return receipt, err
	}
	fmt.Fprintln(out, okStyle.Render("Transaction confirmed"))
	return receipt, nil
}
