package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/yourusername/ballot/pkg/ballot"
)

// JSON-RPC error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32001
	CodeDuplicate      = -32002
)

// RPCRequest represents a JSON-RPC request
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// RPCResponse represents a JSON-RPC response. A successful response with no
// value must set Result to json.RawMessage("null"), since a nil Result is
// omitted.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// RPCError represents a JSON-RPC error
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error code %d: %s", e.Code, e.Message)
}

// Receipt is the outcome of a processed transaction
type Receipt struct {
	TxHash    string          `json:"txHash"`
	Ballot    string          `json:"ballot"`
	Caller    string          `json:"caller"`
	Operation string          `json:"operation"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Changes   []ballot.Change `json:"changes"`
	Sequence  uint64          `json:"sequence"`
}

// Err rebuilds the revert error of a reverted receipt, nil on success
func (r *Receipt) Err() error {
	if r.Status != "reverted" {
		return nil
	}
	revertErr, err := ballot.ErrorByTag(r.Error, r.Reason)
	if err != nil {
		return fmt.Errorf("transaction %s reverted: %s", r.TxHash, r.Reason)
	}
	return revertErr
}

// ProposalResponse represents one proposal with its tally
type ProposalResponse struct {
	Index     uint64 `json:"index"`
	Name      string `json:"name"`
	VoteCount uint64 `json:"voteCount"`
}

// VoterResponse represents a voter record
type VoterResponse struct {
	Address  string `json:"address"`
	Weight   uint64 `json:"weight"`
	Voted    bool   `json:"voted"`
	Delegate string `json:"delegate"`
	Vote     uint64 `json:"vote"`
}

// BallotResponse summarizes a deployed ballot
type BallotResponse struct {
	Address       string `json:"address"`
	Chairperson   string `json:"chairperson"`
	ProposalCount int    `json:"proposalCount"`
	Sequence      uint64 `json:"sequence"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status       string `json:"status"`
	Ballots      int    `json:"ballots"`
	Operations   int    `json:"operations"`
	LastSequence uint64 `json:"lastSequence"`
	Pending      int    `json:"pending"`
}
