// Package node hosts ballot instances: it orders signed transactions, applies
// them, journals the successful ones and serves state over JSON-RPC.
package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/yourusername/ballot/pkg/ballot"
	"github.com/yourusername/ballot/pkg/config"
	"github.com/yourusername/ballot/pkg/storage"
)

// Node wires the store, registry, sequencer and server together
type Node struct {
	store     *storage.Store
	registry  *Registry
	sequencer *Sequencer
	server    *Server

	logger zerolog.Logger
}

// New opens the database at cfg.Database.Path and builds a node on it
func New(cfg *config.Config, logger zerolog.Logger, opts ...ballot.Option) (*Node, error) {
	store, err := storage.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	n, err := NewWithStore(cfg, store, logger, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	return n, nil
}

// NewWithStore builds a node on an already open store
func NewWithStore(cfg *config.Config, store *storage.Store, logger zerolog.Logger, opts ...ballot.Option) (*Node, error) {
	registry, err := NewRegistry(store, cfg.Server.CacheSize, logger, opts...)
	if err != nil {
		return nil, err
	}
	sequencer, err := NewSequencer(store, registry, cfg.Server.QueueSize, logger)
	if err != nil {
		return nil, err
	}

	return &Node{
		store:     store,
		registry:  registry,
		sequencer: sequencer,
		server:    NewServer(cfg.Server, cfg.RPC, store, registry, sequencer, logger),
		logger:    logger.With().Str("module", "node").Logger(),
	}, nil
}

// Handler returns the JSON-RPC handler, for serving it some other way
func (n *Node) Handler() http.Handler {
	return n.server.Handler()
}

// Sequencer returns the node's sequencer
func (n *Node) Sequencer() *Sequencer {
	return n.sequencer
}

// Run runs the sequencer and the server until ctx is cancelled or either
// fails. It returns the first failure.
func (n *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	last, err := n.store.GetLastSequence()
	if err != nil {
		return fmt.Errorf("failed to read last sequence: %w", err)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- n.sequencer.Run(ctx) }()
	go func() { errCh <- n.server.Run(ctx) }()

	n.logger.Info().Uint64("sequence", last).Msg("node started")

	// the first to return stops the other
	err = <-errCh
	cancel()
	if err2 := <-errCh; err == nil || errors.Is(err, context.Canceled) {
		err = err2
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	n.logger.Info().Err(err).Msg("node stopped")
	return err
}

// Close closes the store
func (n *Node) Close() error {
	return n.store.Close()
}
