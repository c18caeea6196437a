// Package rpc is the JSON-RPC client for a ballot node.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/yourusername/ballot/pkg/config"
	"github.com/yourusername/ballot/pkg/encoding"
	"github.com/yourusername/ballot/pkg/signing"
)

// Client talks to a ballot node over JSON-RPC
type Client struct {
	cfg        *config.RPCConfig
	httpClient *http.Client
}

// NewClient creates a new ballot RPC client
func NewClient(cfg *config.RPCConfig) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// URL returns the node endpoint the client talks to
func (c *Client) URL() string {
	return c.cfg.URL
}

// rawResponse is RPCResponse with the result left undecoded
type rawResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	ID     string          `json:"id"`
}

// rpcCall executes a JSON-RPC HTTP request and decodes the result into out
func (c *Client) rpcCall(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}

	// Build JSON-RPC request
	id := uuid.NewString()
	req := RPCRequest{
		JSONRPC: "2.0",
		ID:      json.RawMessage(strconv.Quote(id)),
		Method:  method,
		Params:  params,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	// Create HTTP request
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.User != "" || c.cfg.Password != "" {
		httpReq.SetBasicAuth(c.cfg.User, c.cfg.Password)
	}

	// Execute request
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	// Read response body
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("node rejected credentials (HTTP %d)", resp.StatusCode)
	}

	// Parse JSON-RPC response
	var rpcResp rawResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("failed to parse response (HTTP %d): %w", resp.StatusCode, err)
	}

	// Check for RPC error
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if rpcResp.ID != id {
		return fmt.Errorf("response id %q does not match request id %q", rpcResp.ID, id)
	}

	// a missing result reads as null
	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("failed to parse %s result: %w", method, err)
	}
	return nil
}

// SendTransaction submits a signed transaction and returns its hash
func (c *Client) SendTransaction(ctx context.Context, tx *signing.Transaction) (common.Hash, error) {
	encoded, err := tx.Encode()
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode transaction: %w", err)
	}

	var hash string
	if err := c.rpcCall(ctx, &hash, "ballot_sendTransaction", encoded); err != nil {
		return common.Hash{}, fmt.Errorf("ballot_sendTransaction failed: %w", err)
	}
	return common.HexToHash(hash), nil
}

// GetTransactionReceipt returns the receipt for hash, or nil if the
// transaction has not been processed yet
func (c *Client) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var receipt *Receipt
	if err := c.rpcCall(ctx, &receipt, "ballot_getTransactionReceipt", hash.Hex()); err != nil {
		return nil, fmt.Errorf("ballot_getTransactionReceipt failed: %w", err)
	}
	return receipt, nil
}

// WaitForReceipt polls until the transaction has a receipt
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash, polling config.PollingConfig) (*Receipt, error) {
	for attempt := 1; attempt <= polling.MaxAttempts; attempt++ {
		receipt, err := c.GetTransactionReceipt(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("poll attempt %d failed: %w", attempt, err)
		}
		if receipt != nil {
			return receipt, nil
		}

		if attempt < polling.MaxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(polling.Interval()):
			}
		}
	}

	return nil, fmt.Errorf("timeout: transaction %s has no receipt after %d attempts", hash.Hex(), polling.MaxAttempts)
}

// SubmitAndWait signs op, submits it and waits for the receipt. A reverted
// transaction returns its receipt together with the *ballot.RevertError.
func (c *Client) SubmitAndWait(ctx context.Context, signer *signing.Signer, op *encoding.Operation, polling config.PollingConfig) (*Receipt, error) {
	tx, err := signer.Sign(op)
	if err != nil {
		return nil, err
	}

	hash, err := c.SendTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to submit %s: %w", op.Type, err)
	}

	receipt, err := c.WaitForReceipt(ctx, hash, polling)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm %s: %w", op.Type, err)
	}

	return receipt, receipt.Err()
}

// Chairperson returns the chairperson of a ballot
func (c *Client) Chairperson(ctx context.Context, ballot common.Address) (common.Address, error) {
	var addr string
	if err := c.rpcCall(ctx, &addr, "ballot_chairperson", ballot.Hex()); err != nil {
		return common.Address{}, fmt.Errorf("ballot_chairperson failed: %w", err)
	}
	return common.HexToAddress(addr), nil
}

// ProposalCount returns the number of proposals of a ballot
func (c *Client) ProposalCount(ctx context.Context, ballot common.Address) (int, error) {
	var count int
	if err := c.rpcCall(ctx, &count, "ballot_proposalCount", ballot.Hex()); err != nil {
		return 0, fmt.Errorf("ballot_proposalCount failed: %w", err)
	}
	return count, nil
}

// Proposal returns a single proposal by index
func (c *Client) Proposal(ctx context.Context, ballot common.Address, index uint64) (*ProposalResponse, error) {
	var p ProposalResponse
	if err := c.rpcCall(ctx, &p, "ballot_proposal", ballot.Hex(), index); err != nil {
		return nil, fmt.Errorf("ballot_proposal failed: %w", err)
	}
	return &p, nil
}

// Proposals returns every proposal with its tally
func (c *Client) Proposals(ctx context.Context, ballot common.Address) ([]ProposalResponse, error) {
	var proposals []ProposalResponse
	if err := c.rpcCall(ctx, &proposals, "ballot_proposals", ballot.Hex()); err != nil {
		return nil, fmt.Errorf("ballot_proposals failed: %w", err)
	}
	return proposals, nil
}

// Voter returns the voter record of addr
func (c *Client) Voter(ctx context.Context, ballot, addr common.Address) (*VoterResponse, error) {
	var v VoterResponse
	if err := c.rpcCall(ctx, &v, "ballot_voter", ballot.Hex(), addr.Hex()); err != nil {
		return nil, fmt.Errorf("ballot_voter failed: %w", err)
	}
	return &v, nil
}

// Voters returns every voter record of a ballot
func (c *Client) Voters(ctx context.Context, ballot common.Address) ([]VoterResponse, error) {
	var voters []VoterResponse
	if err := c.rpcCall(ctx, &voters, "ballot_voters", ballot.Hex()); err != nil {
		return nil, fmt.Errorf("ballot_voters failed: %w", err)
	}
	return voters, nil
}

// WinningProposal returns the index of the winning proposal
func (c *Client) WinningProposal(ctx context.Context, ballot common.Address) (uint64, error) {
	var index uint64
	if err := c.rpcCall(ctx, &index, "ballot_winningProposal", ballot.Hex()); err != nil {
		return 0, fmt.Errorf("ballot_winningProposal failed: %w", err)
	}
	return index, nil
}

// WinnerName returns the name of the winning proposal
func (c *Client) WinnerName(ctx context.Context, ballot common.Address) (string, error) {
	var name string
	if err := c.rpcCall(ctx, &name, "ballot_winnerName", ballot.Hex()); err != nil {
		return "", fmt.Errorf("ballot_winnerName failed: %w", err)
	}
	return name, nil
}

// History returns the most recent receipts of a ballot, newest first
func (c *Client) History(ctx context.Context, ballot common.Address, limit int) ([]Receipt, error) {
	var receipts []Receipt
	if err := c.rpcCall(ctx, &receipts, "ballot_history", ballot.Hex(), limit); err != nil {
		return nil, fmt.Errorf("ballot_history failed: %w", err)
	}
	return receipts, nil
}

// Ballots lists every ballot deployed on the node
func (c *Client) Ballots(ctx context.Context) ([]BallotResponse, error) {
	var ballots []BallotResponse
	if err := c.rpcCall(ctx, &ballots, "ballot_list"); err != nil {
		return nil, fmt.Errorf("ballot_list failed: %w", err)
	}
	return ballots, nil
}
