// Package relay implements the core state-machine driver (spec §4.6): one
// background worker per active network that repeatedly re-derives "where
// the money is" from the blockchain and advances each active chain toward
// its destination. Grounded on the teacher's cooperative-shutdown idiom
// (Design Note §9: "a boolean flag with a sleep-with-cancel on the poll
// interval is sufficient; no async runtime is required") implemented here
// with a stop channel and sync.WaitGroup rather than the teacher's own
// long-running loop, since no example repo runs one; standard library
// primitives are the correct idiom the corpus itself reaches for whenever
// it needs bounded concurrent work (see e.g. the teacher's
// src/chainadapter/rpc package use of sync.Mutex-guarded state).
package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/btcrelay/internal/btcsigner"
	"github.com/yourusername/btcrelay/internal/chainclient"
	"github.com/yourusername/btcrelay/internal/feeoracle"
	"github.com/yourusername/btcrelay/internal/models"
	"github.com/yourusername/btcrelay/internal/relayerr"
	"github.com/yourusername/btcrelay/internal/store"
)

// Engine drives one network's active chains (spec §4.6 "one engine per
// (network, session key)").
type Engine struct {
	store       store.Store
	chainClient chainclient.ChainClient
	feeOracle   feeoracle.FeeOracle
	signer      btcsigner.BitcoinSigner
	network     models.Network
	password    string
	logger      *zap.Logger

	pollInterval    time.Duration
	shutdownTimeout time.Duration
	onCycle         func(CycleSummary)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// CycleSummary is published after each cycle to any registered OnCycle
// callback, letting a control surface push it over a websocket without the
// Engine itself knowing anything about HTTP (spec §4.7 "/api/stream pushes
// engine-cycle summaries").
type CycleSummary struct {
	Network      models.Network
	TipHeight    uint64
	ActiveChains int
}

// Config bundles Engine construction parameters.
type Config struct {
	Store           store.Store
	ChainClient     chainclient.ChainClient
	FeeOracle       feeoracle.FeeOracle
	Signer          btcsigner.BitcoinSigner
	Network         models.Network
	Password        string
	Logger          *zap.Logger
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
	// OnCycle, if set, is invoked synchronously after every cycle with a
	// summary of what it observed.
	OnCycle func(CycleSummary)
}

// NewEngine constructs an Engine for one network. Start must be called to
// begin polling.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		store:           cfg.Store,
		chainClient:     cfg.ChainClient,
		feeOracle:       cfg.FeeOracle,
		signer:          cfg.Signer,
		network:         cfg.Network,
		password:        cfg.Password,
		logger:          cfg.Logger,
		pollInterval:    cfg.PollInterval,
		shutdownTimeout: cfg.ShutdownTimeout,
		onCycle:         cfg.OnCycle,
	}
}

// Start spawns the single polling worker (spec §4.6 "start() spawns a
// single worker").
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return relayerr.NewInvalidInputError("engine is already running")
	}

	e.stopCh = make(chan struct{})
	e.running = true
	e.wg.Add(1)
	go e.run()
	return nil
}

// Stop requests shutdown and joins within ShutdownTimeout (spec §4.6
// "stop() requests shutdown and joins within a bounded timeout", spec §5
// "stop() sets a shutdown flag and joins with a 10s timeout"). Chain
// Client calls already in flight are not interrupted; the worker
// terminates after its current cycle.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	close(e.stopCh)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(e.shutdownTimeout):
		e.logger.Warn("engine shutdown timed out waiting for worker to join")
	}

	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
	return nil
}

// IsRunning reports whether the worker is currently active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Network reports the network this engine instance drives.
func (e *Engine) Network() models.Network {
	return e.network
}

// RunCycleNow runs one reconciliation cycle synchronously, independent of
// the poll ticker, without waiting for the next tick.
func (e *Engine) RunCycleNow() {
	e.runCycle()
}

// FixStatusChain implements spec §6's fix_status operation for a single
// chain: it runs the ordinary reconcile-and-advance step (in case the
// chain's next sweep is simply due), then walks every hop looking for
// stale statuses the normal single-step advance wouldn't touch — hops
// whose downstream address is already funded because a crash swallowed
// the status write for a relay that already landed on chain (spec §6
// line 151). It re-fetches the chain between the two passes since Store
// hands back a clone, not a live reference, and the second pass must see
// whatever the first one just persisted.
func (e *Engine) FixStatusChain(ctx context.Context, chainID int64) error {
	chain, err := e.store.GetChain(chainID)
	if err != nil {
		return err
	}

	tip, err := e.chainClient.TipHeight(ctx)
	if err != nil {
		return err
	}

	r := &reconciler{
		store:       e.store,
		chainClient: e.chainClient,
		feeOracle:   e.feeOracle,
		signer:      e.signer,
		password:    e.password,
		logger:      e.logger,
	}

	if err := r.reconcileAndAdvance(ctx, chain, tip); err != nil {
		return err
	}

	chain, err = e.store.GetChain(chainID)
	if err != nil {
		return err
	}
	return r.correctDrift(ctx, chain)
}

func (e *Engine) run() {
	defer e.wg.Done()
	defer e.recoverPanic()

	e.runCycle()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.runCycle()
		}
	}
}

// recoverPanic implements spec §7's unhandled-panic handling: "terminate
// worker; main process remains so the user can inspect state." A panic
// inside runCycle (a malformed store record, a nil hop lookup, an
// out-of-range index) stops only this network's worker; it must never
// propagate out of the goroutine and bring down the daemon.
func (e *Engine) recoverPanic() {
	if r := recover(); r != nil {
		err := relayerr.NewFatalError("engine worker panicked", fmt.Errorf("%v", r))
		e.logger.Error("engine worker panicked, terminating worker",
			zap.String("network", string(e.network)),
			zap.Any("panic", r),
			zap.String("classification", err.Classification.String()),
			zap.Stack("stacktrace"),
		)
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}
}

// runCycle implements spec §4.6's per-cycle algorithm.
func (e *Engine) runCycle() {
	ctx := context.Background()

	tip, err := e.chainClient.TipHeight(ctx)
	if err != nil {
		e.logger.Warn("failed to read chain tip, skipping cycle", zap.Error(err))
		return
	}

	chains, err := e.store.ListActiveChains(e.network)
	if err != nil {
		e.logger.Error("failed to list active chains", zap.Error(err))
		return
	}

	r := &reconciler{
		store:       e.store,
		chainClient: e.chainClient,
		feeOracle:   e.feeOracle,
		signer:      e.signer,
		password:    e.password,
		logger:      e.logger,
	}

	for _, chain := range chains {
		if err := r.reconcileAndAdvance(ctx, chain, tip); err != nil {
			e.logger.Warn("reconciliation failed, retrying next cycle",
				zap.Int64("chain_id", chain.ID), zap.Error(err))
		}
	}

	if err := e.store.SetTip(e.network, tip, ""); err != nil {
		e.logger.Error("failed to persist tip marker", zap.Error(err))
	}

	if e.onCycle != nil {
		e.onCycle(CycleSummary{Network: e.network, TipHeight: tip, ActiveChains: len(chains)})
	}
}
