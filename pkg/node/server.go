package node

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourusername/ballot/pkg/ballot"
	"github.com/yourusername/ballot/pkg/config"
	"github.com/yourusername/ballot/pkg/rpc"
	"github.com/yourusername/ballot/pkg/signing"
	"github.com/yourusername/ballot/pkg/storage"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 1000
)

type handlerFunc func(ctx context.Context, params []json.RawMessage) (interface{}, error)

// request is rpc.RPCRequest with the id and params left undecoded
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Server exposes the node over JSON-RPC
type Server struct {
	cfg       config.ServerConfig
	store     *storage.Store
	registry  *Registry
	sequencer *Sequencer

	engine  *gin.Engine
	methods map[string]handlerFunc

	logger zerolog.Logger
}

// NewServer creates the JSON-RPC server. If rpcCfg carries credentials the
// RPC endpoint requires basic auth with them.
func NewServer(cfg config.ServerConfig, rpcCfg config.RPCConfig, store *storage.Store, registry *Registry, sequencer *Sequencer, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		registry:  registry,
		sequencer: sequencer,
		logger:    logger.With().Str("module", "server").Logger(),
	}
	s.methods = map[string]handlerFunc{
		"ballot_sendTransaction":       s.sendTransaction,
		"ballot_getTransactionReceipt": s.getTransactionReceipt,
		"ballot_chairperson":           s.chairperson,
		"ballot_proposalCount":         s.proposalCount,
		"ballot_proposal":              s.proposal,
		"ballot_proposals":             s.proposals,
		"ballot_voter":                 s.voter,
		"ballot_voters":                s.voters,
		"ballot_winningProposal":       s.winningProposal,
		"ballot_winnerName":            s.winnerName,
		"ballot_history":               s.history,
		"ballot_list":                  s.list,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.GET("/health", s.health)

	api := r.Group("/")
	if rpcCfg.User != "" || rpcCfg.Password != "" {
		api.Use(gin.BasicAuth(gin.Accounts{rpcCfg.User: rpcCfg.Password}))
	}
	api.POST("/", s.handleRPC)

	s.engine = r
	return s
}

// Handler returns the http handler serving the node
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("serving JSON-RPC")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) handleRPC(c *gin.Context) {
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		code := rpc.CodeParseError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			// valid JSON, but not a request object
			code = rpc.CodeInvalidRequest
		}
		c.JSON(http.StatusOK, rpc.RPCResponse{
			JSONRPC: "2.0",
			Error:   &rpc.RPCError{Code: code, Message: err.Error()},
		})
		return
	}

	resp := rpc.RPCResponse{JSONRPC: "2.0", ID: req.ID}
	if !validID(req.ID) {
		resp.ID = nil
		resp.Error = &rpc.RPCError{Code: rpc.CodeInvalidRequest, Message: "id must be a string, a number or null"}
		c.JSON(http.StatusOK, resp)
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		resp.Error = &rpc.RPCError{Code: rpc.CodeInvalidRequest, Message: `request must carry jsonrpc "2.0" and a method`}
		c.JSON(http.StatusOK, resp)
		return
	}

	method, ok := s.methods[req.Method]
	if !ok {
		resp.Error = &rpc.RPCError{Code: rpc.CodeMethodNotFound, Message: "method not found: " + req.Method}
		c.JSON(http.StatusOK, resp)
		return
	}

	var params []json.RawMessage
	if len(req.Params) > 0 && !bytes.Equal(req.Params, []byte("null")) {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp.Error = &rpc.RPCError{Code: rpc.CodeInvalidParams, Message: "params must be an array"}
			c.JSON(http.StatusOK, resp)
			return
		}
	}

	result, err := method(c.Request.Context(), params)
	switch {
	case err != nil:
		resp.Error = s.toRPCError(req.Method, err)
	case result == nil:
		resp.Result = json.RawMessage("null")
	default:
		resp.Result = result
	}
	c.JSON(http.StatusOK, resp)
}

// validID accepts the id forms JSON-RPC 2.0 allows: absent, null, a string or
// a number
func validID(id json.RawMessage) bool {
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		return true
	}
	switch c := id[0]; {
	case c == '"', c == '-', c >= '0' && c <= '9':
		return true
	}
	return false
}

func (s *Server) toRPCError(method string, err error) *rpc.RPCError {
	var (
		pErr      *paramError
		revertErr *ballot.RevertError
	)
	switch {
	case errors.As(err, &pErr), errors.Is(err, ErrInvalidTransaction), errors.As(err, &revertErr):
		return &rpc.RPCError{Code: rpc.CodeInvalidParams, Message: err.Error()}
	case errors.Is(err, ErrBallotNotFound):
		return &rpc.RPCError{Code: rpc.CodeNotFound, Message: err.Error()}
	case errors.Is(err, ErrDuplicateTransaction):
		return &rpc.RPCError{Code: rpc.CodeDuplicate, Message: err.Error()}
	}
	s.logger.Error().Err(err).Str("rpc", method).Msg("internal error")
	return &rpc.RPCError{Code: rpc.CodeInternalError, Message: err.Error()}
}

func (s *Server) health(c *gin.Context) {
	resp := rpc.HealthResponse{Status: "ok", Pending: s.sequencer.Pending()}

	var err error
	if resp.Ballots, err = s.store.GetBallotCount(); err == nil {
		if resp.Operations, err = s.store.GetOperationCount(); err == nil {
			resp.LastSequence, err = s.store.GetLastSequence()
		}
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ballotParam(params []json.RawMessage) (*ballot.Ballot, error) {
	addr, err := paramAddress(params, 0)
	if err != nil {
		return nil, err
	}
	return s.registry.Get(addr)
}

func (s *Server) sendTransaction(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	raw, err := paramString(params, 0)
	if err != nil {
		return nil, err
	}
	tx, err := signing.DecodeTransaction(raw)
	if err != nil {
		return nil, errors.Join(ErrInvalidTransaction, err)
	}
	hash, err := s.sequencer.Submit(ctx, tx)
	if err != nil {
		return nil, err
	}
	return hash.Hex(), nil
}

func (s *Server) getTransactionReceipt(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	hash, err := paramHash(params, 0)
	if err != nil {
		return nil, err
	}
	record, err := s.store.GetReceipt(hash.Hex())
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return toReceipt(record)
}

func (s *Server) chairperson(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	b, err := s.ballotParam(params)
	if err != nil {
		return nil, err
	}
	return b.Chairperson().Hex(), nil
}

func (s *Server) proposalCount(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	b, err := s.ballotParam(params)
	if err != nil {
		return nil, err
	}
	return b.ProposalCount(), nil
}

func (s *Server) proposal(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	b, err := s.ballotParam(params)
	if err != nil {
		return nil, err
	}
	index, err := paramUint(params, 1, 0, true)
	if err != nil {
		return nil, err
	}
	p, err := b.Proposal(index)
	if err != nil {
		return nil, err
	}
	return rpc.ProposalResponse{Index: index, Name: p.Name.String(), VoteCount: p.VoteCount}, nil
}

func (s *Server) proposals(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	b, err := s.ballotParam(params)
	if err != nil {
		return nil, err
	}
	proposals := b.Proposals()
	out := make([]rpc.ProposalResponse, len(proposals))
	for i, p := range proposals {
		out[i] = rpc.ProposalResponse{Index: uint64(i), Name: p.Name.String(), VoteCount: p.VoteCount}
	}
	return out, nil
}

func (s *Server) voter(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	b, err := s.ballotParam(params)
	if err != nil {
		return nil, err
	}
	addr, err := paramAddress(params, 1)
	if err != nil {
		return nil, err
	}
	return toVoter(addr, b.Voter(addr)), nil
}

func (s *Server) voters(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	b, err := s.ballotParam(params)
	if err != nil {
		return nil, err
	}
	voters := b.Voters()
	out := make([]rpc.VoterResponse, 0, len(voters))
	for addr, v := range voters {
		out = append(out, toVoter(addr, v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (s *Server) winningProposal(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	b, err := s.ballotParam(params)
	if err != nil {
		return nil, err
	}
	return b.WinningProposal(), nil
}

func (s *Server) winnerName(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	b, err := s.ballotParam(params)
	if err != nil {
		return nil, err
	}
	return b.WinnerName().String(), nil
}

func (s *Server) history(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	addr, err := paramAddress(params, 0)
	if err != nil {
		return nil, err
	}
	limit, err := paramUint(params, 1, defaultHistoryLimit, false)
	if err != nil {
		return nil, err
	}

	records, err := s.store.GetRecentReceipts(addr.Hex(), historyLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]*rpc.Receipt, 0, len(records))
	for _, record := range records {
		r, err := toReceipt(record)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// historyLimit maps a requested history size into [1, maxHistoryLimit]; zero
// means the default
func historyLimit(n uint64) int {
	switch {
	case n == 0:
		return defaultHistoryLimit
	case n > maxHistoryLimit:
		return maxHistoryLimit
	}
	return int(n)
}

func (s *Server) list(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	records, err := s.store.GetAllBallots()
	if err != nil {
		return nil, err
	}
	out := make([]rpc.BallotResponse, len(records))
	for i, r := range records {
		out[i] = rpc.BallotResponse{
			Address:       r.Address,
			Chairperson:   r.Chairperson,
			ProposalCount: r.ProposalCount,
			Sequence:      r.CreatedAtSequence,
		}
	}
	return out, nil
}

func toReceipt(record *storage.ReceiptRecord) (*rpc.Receipt, error) {
	r := &rpc.Receipt{
		TxHash:    record.TxHash,
		Ballot:    record.Ballot,
		Caller:    record.Caller,
		Operation: record.OperationType,
		Status:    record.Status,
		Error:     record.ErrorTag,
		Reason:    record.Reason,
		Sequence:  record.Sequence,
	}
	if err := json.Unmarshal([]byte(record.Changes), &r.Changes); err != nil {
		return nil, err
	}
	return r, nil
}

func toVoter(addr common.Address, v ballot.Voter) rpc.VoterResponse {
	return rpc.VoterResponse{
		Address:  addr.Hex(),
		Weight:   v.Weight,
		Voted:    v.Voted,
		Delegate: v.Delegate.Hex(),
		Vote:     v.Vote,
	}
}
