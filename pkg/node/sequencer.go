package node

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/algorand/go-deadlock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"github.com/yourusername/ballot/pkg/ballot"
	"github.com/yourusername/ballot/pkg/encoding"
	"github.com/yourusername/ballot/pkg/signing"
	"github.com/yourusername/ballot/pkg/storage"
)

var (
	ErrDuplicateTransaction = errors.New("transaction already known")
	ErrInvalidTransaction   = errors.New("invalid transaction")
)

// submission is a verified transaction waiting to be applied
type submission struct {
	tx     *signing.Transaction
	hash   common.Hash
	sender common.Address
	op     *encoding.Operation
}

// Sequencer orders transactions and applies them one at a time. It is the
// only writer of ballot state and of the journal.
type Sequencer struct {
	store    *storage.Store
	registry *Registry

	// inputCh serializes every submitted transaction to a single buffered channel
	inputCh chan submission

	// pending holds hashes that are queued but have no receipt yet
	pendingMu deadlock.Mutex
	pending   map[common.Hash]struct{}

	// sequence is the last sequence number assigned. Only Run touches it.
	sequence uint64

	logger zerolog.Logger
}

// NewSequencer creates a sequencer that resumes numbering after the last
// processed transaction in store
func NewSequencer(store *storage.Store, registry *Registry, queueSize int, logger zerolog.Logger) (*Sequencer, error) {
	last, err := store.GetLastSequence()
	if err != nil {
		return nil, fmt.Errorf("failed to read last sequence: %w", err)
	}
	return &Sequencer{
		store:    store,
		registry: registry,
		inputCh:  make(chan submission, queueSize),
		pending:  make(map[common.Hash]struct{}),
		sequence: last,
		logger:   logger.With().Str("module", "sequencer").Logger(),
	}, nil
}

// Submit verifies tx and queues it. It returns the transaction hash, which is
// the key its receipt will be stored under.
func (s *Sequencer) Submit(ctx context.Context, tx *signing.Transaction) (common.Hash, error) {
	hash := tx.Hash()

	sender, err := tx.Sender()
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	op, err := tx.Operation()
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}

	s.pendingMu.Lock()
	if _, ok := s.pending[hash]; ok {
		s.pendingMu.Unlock()
		return common.Hash{}, ErrDuplicateTransaction
	}
	receipt, err := s.store.GetReceipt(hash.Hex())
	if err != nil {
		s.pendingMu.Unlock()
		return common.Hash{}, fmt.Errorf("failed to check receipt: %w", err)
	}
	if receipt != nil {
		s.pendingMu.Unlock()
		return common.Hash{}, ErrDuplicateTransaction
	}
	s.pending[hash] = struct{}{}
	s.pendingMu.Unlock()

	select {
	case s.inputCh <- submission{tx: tx, hash: hash, sender: sender, op: op}:
	case <-ctx.Done():
		s.clearPending(hash)
		return common.Hash{}, ctx.Err()
	}

	s.logger.Debug().Str("tx", hash.Hex()).Str("op", op.Type.String()).Str("from", sender.Hex()).Msg("queued transaction")
	return hash, nil
}

// Pending returns the number of queued transactions
func (s *Sequencer) Pending() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

// Run is the main loop of the Sequencer. It applies queued transactions in
// order until ctx is cancelled or the store fails.
func (s *Sequencer) Run(ctx context.Context) error {
	for {
		select {
		// catch context cancellation
		case <-ctx.Done():
			return ctx.Err()

		// pull the next transaction from the channel
		case sub := <-s.inputCh:
			err := s.process(sub)
			s.clearPending(sub.hash)
			if err != nil {
				s.logger.Error().Err(err).Str("tx", sub.hash.Hex()).Msg("failed to process transaction")
				return err
			}
		}
	}
}

func (s *Sequencer) clearPending(hash common.Hash) {
	s.pendingMu.Lock()
	delete(s.pending, hash)
	s.pendingMu.Unlock()
}

// process applies one transaction and stores its receipt. A reverted
// operation is not an error here; only storage failures are.
func (s *Sequencer) process(sub submission) error {
	seq := s.sequence + 1

	receipt := &storage.ReceiptRecord{
		TxHash:        sub.hash.Hex(),
		Ballot:        sub.op.Ballot.Hex(),
		Caller:        sub.sender.Hex(),
		OperationType: sub.op.Type.String(),
		Status:        storage.StatusSuccess,
		Sequence:      seq,
	}
	record := &storage.OperationRecord{
		Ballot:        sub.op.Ballot.Hex(),
		Sequence:      seq,
		TxHash:        sub.hash.Hex(),
		Caller:        sub.sender.Hex(),
		OperationType: sub.op.Type.String(),
		Payload:       hex.EncodeToString(sub.tx.Payload),
	}

	var err error
	if sub.op.Type == encoding.OperationTypeDeploy {
		err = s.deploy(sub, receipt, record)
	} else {
		err = s.registry.Commit(sub.op.Ballot, func(b *ballot.Ballot) error {
			result, opErr := apply(b, sub.sender, sub.op)
			if opErr != nil {
				markReverted(receipt, opErr)
				return s.store.ApplyOperation(nil, nil, receipt)
			}
			if err := setChanges(receipt, result); err != nil {
				return err
			}
			return s.store.ApplyOperation(nil, record, receipt)
		})
		switch {
		case errors.Is(err, ErrBallotNotFound):
			receipt.Status = storage.StatusReverted
			receipt.Reason = fmt.Sprintf("no ballot at %s", sub.op.Ballot.Hex())
			err = s.store.ApplyOperation(nil, nil, receipt)
		case errors.Is(err, ErrReplayFailed):
			// the ballot is unusable but the rest of the node is not
			receipt.Status = storage.StatusReverted
			receipt.Reason = err.Error()
			err = s.store.ApplyOperation(nil, nil, receipt)
		}
	}
	if err != nil {
		return err
	}

	s.sequence = seq
	level := zerolog.InfoLevel
	if receipt.Status == storage.StatusReverted {
		level = zerolog.WarnLevel
	}
	s.logger.WithLevel(level).
		Str("tx", receipt.TxHash).
		Uint64("sequence", seq).
		Str("ballot", receipt.Ballot).
		Str("op", receipt.OperationType).
		Str("status", receipt.Status).
		Str("reason", receipt.Reason).
		Msg("processed transaction")
	return nil
}

// deploy creates a ballot at the address derived from the sender and nonce
func (s *Sequencer) deploy(sub submission, receipt *storage.ReceiptRecord, record *storage.OperationRecord) error {
	addr := crypto.CreateAddress(sub.sender, sub.op.Nonce)
	receipt.Ballot = addr.Hex()
	record.Ballot = addr.Hex()

	b, err := ballot.New(sub.sender, sub.op.Proposals, s.registry.opts...)
	if err != nil {
		receipt.Status = storage.StatusReverted
		receipt.Reason = err.Error()
		return s.store.ApplyOperation(nil, nil, receipt)
	}

	err = s.registry.Create(addr, b, func() error {
		return s.store.ApplyOperation(&storage.BallotRecord{
			Address:           addr.Hex(),
			Chairperson:       sub.sender.Hex(),
			ProposalCount:     b.ProposalCount(),
			StrictDelegation:  b.StrictDelegation(),
			CreatedAtSequence: receipt.Sequence,
		}, record, receipt)
	})
	if errors.Is(err, ErrBallotExists) {
		receipt.Status = storage.StatusReverted
		receipt.Reason = fmt.Sprintf("ballot already exists at %s", addr.Hex())
		return s.store.ApplyOperation(nil, nil, receipt)
	}
	return err
}

func markReverted(receipt *storage.ReceiptRecord, err error) {
	receipt.Status = storage.StatusReverted
	receipt.ErrorTag = ballot.TagOf(err)
	receipt.Reason = err.Error()
	var revertErr *ballot.RevertError
	if errors.As(err, &revertErr) {
		receipt.Reason = revertErr.Reason
	}
}

func setChanges(receipt *storage.ReceiptRecord, result *ballot.Receipt) error {
	changes := result.Changes
	if changes == nil {
		changes = []ballot.Change{}
	}
	data, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("failed to encode changes: %w", err)
	}
	receipt.Changes = string(data)
	return nil
}
