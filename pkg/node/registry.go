package node

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/algorand/go-deadlock"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"github.com/yourusername/ballot/pkg/ballot"
	"github.com/yourusername/ballot/pkg/encoding"
	"github.com/yourusername/ballot/pkg/storage"
)

var (
	ErrBallotNotFound = errors.New("ballot not found")
	ErrBallotExists   = errors.New("ballot already exists")
	ErrReplayFailed   = errors.New("ballot cannot be rebuilt from its journal")
)

// Registry hands out ballot instances by address. Instances are cached and
// rebuilt from the journal on a miss, with the delegation rule stored for the
// ballot at deploy time.
//
// mu is held for every load and every commit, so an instance is never
// rebuilt from a journal that is missing an operation still being applied.
// Cache hits skip it.
type Registry struct {
	mu    deadlock.Mutex
	store *storage.Store
	cache *lru.Cache
	opts  []ballot.Option

	logger zerolog.Logger
}

// NewRegistry creates a registry keeping at most size ballots in memory.
// opts are applied to ballots deployed from now on; rebuilt ballots keep the
// options they were deployed with.
func NewRegistry(store *storage.Store, size int, logger zerolog.Logger, opts ...ballot.Option) (*Registry, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create ballot cache: %w", err)
	}
	return &Registry{
		store:  store,
		cache:  cache,
		opts:   opts,
		logger: logger.With().Str("module", "registry").Logger(),
	}, nil
}

// Get returns the instance at addr or ErrBallotNotFound
func (r *Registry) Get(addr common.Address) (*ballot.Ballot, error) {
	if b, ok := r.cache.Get(addr); ok {
		return b.(*ballot.Ballot), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(addr)
}

// Create runs persist and, if it succeeds, registers b at addr. It fails
// with ErrBallotExists if addr is taken.
func (r *Registry) Create(addr common.Address, b *ballot.Ballot, persist func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.store.BallotExists(addr.Hex())
	if err != nil {
		return fmt.Errorf("failed to check ballot: %w", err)
	}
	if exists {
		return ErrBallotExists
	}

	if err := persist(); err != nil {
		return err
	}
	r.cache.Add(addr, b)
	return nil
}

// Commit runs fn against the instance at addr. If fn fails the instance is
// dropped from the cache, since it may hold changes the journal does not.
func (r *Registry) Commit(addr common.Address, fn func(b *ballot.Ballot) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := r.load(addr)
	if err != nil {
		return err
	}
	if err := fn(b); err != nil {
		r.cache.Remove(addr)
		return err
	}
	return nil
}

// Len returns the number of cached instances
func (r *Registry) Len() int {
	return r.cache.Len()
}

// load returns the cached instance or replays the journal. Callers hold mu.
func (r *Registry) load(addr common.Address) (*ballot.Ballot, error) {
	if b, ok := r.cache.Get(addr); ok {
		return b.(*ballot.Ballot), nil
	}

	record, err := r.store.GetBallot(addr.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to read ballot: %w", err)
	}
	if record == nil {
		return nil, ErrBallotNotFound
	}
	ops, err := r.store.GetOperations(addr.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	b, err := Replay(ops, recordOptions(record)...)
	if err != nil {
		r.logger.Error().Err(err).Str("ballot", addr.Hex()).Msg("failed to replay journal")
		return nil, fmt.Errorf("%w: %s: %w", ErrReplayFailed, addr.Hex(), err)
	}

	r.logger.Debug().Str("ballot", addr.Hex()).Int("operations", len(ops)).Msg("rebuilt ballot from journal")
	r.cache.Add(addr, b)
	return b, nil
}

// Replay rebuilds a ballot from its journal. The first entry must be the
// deploy; every later entry must apply cleanly, as only successful operations
// are journaled.
func Replay(ops []*storage.OperationRecord, opts ...ballot.Option) (*ballot.Ballot, error) {
	var b *ballot.Ballot
	for i, rec := range ops {
		op, err := decodeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", rec.Sequence, err)
		}
		caller := common.HexToAddress(rec.Caller)

		if i == 0 {
			if op.Type != encoding.OperationTypeDeploy {
				return nil, fmt.Errorf("journal starts with %s, not deploy", op.Type)
			}
			b, err = ballot.New(caller, op.Proposals, opts...)
			if err != nil {
				return nil, err
			}
			continue
		}

		if _, err := apply(b, caller, op); err != nil {
			return nil, fmt.Errorf("operation %d (%s) no longer applies: %w", rec.Sequence, op.Type, err)
		}
	}
	if b == nil {
		return nil, ErrBallotNotFound
	}
	return b, nil
}

// recordOptions returns the options a stored ballot was deployed with
func recordOptions(record *storage.BallotRecord) []ballot.Option {
	if record.StrictDelegation {
		return []ballot.Option{ballot.WithStrictDelegation()}
	}
	return nil
}

func decodeRecord(rec *storage.OperationRecord) (*encoding.Operation, error) {
	payload, err := hex.DecodeString(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("invalid payload hex: %w", err)
	}
	return encoding.DecodePayload(payload)
}

// apply runs a non deploy operation against b
func apply(b *ballot.Ballot, caller common.Address, op *encoding.Operation) (*ballot.Receipt, error) {
	switch op.Type {
	case encoding.OperationTypeGrantRight:
		return b.GrantRight(caller, op.Target)
	case encoding.OperationTypeVote:
		return b.Vote(caller, op.Proposal)
	case encoding.OperationTypeDelegate:
		return b.Delegate(caller, op.Target)
	default:
		return nil, fmt.Errorf("cannot apply %s to a deployed ballot", op.Type)
	}
}
