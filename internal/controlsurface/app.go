// Package controlsurface implements the HTTP control surface described in
// spec §4.7/§6: a thin net/http handler set translating JSON requests into
// calls against Store/Engine/Vault/BitcoinSigner. It is the one place this
// module drives the engine the way the teacher's dashboard mode drives the
// wallet service without a TTY (see internal/logging.DetectMode).
package controlsurface

import (
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/btcrelay/internal/btcsigner"
	"github.com/yourusername/btcrelay/internal/chainclient"
	"github.com/yourusername/btcrelay/internal/config"
	"github.com/yourusername/btcrelay/internal/feeoracle"
	"github.com/yourusername/btcrelay/internal/models"
	"github.com/yourusername/btcrelay/internal/relay"
	"github.com/yourusername/btcrelay/internal/relayerr"
	"github.com/yourusername/btcrelay/internal/store"
	"github.com/yourusername/btcrelay/internal/utils"
	"github.com/yourusername/btcrelay/internal/vault"
)

// App is the owned application-state struct Design Note §9 calls for in
// place of the source's process-wide mutable engine pointer: control
// surface handlers borrow engines through this struct instead of a global.
type App struct {
	cfg    *config.Config
	store  store.Store
	signer btcsigner.BitcoinSigner
	logger *zap.Logger

	chainClients map[models.Network]chainclient.ChainClient
	feeOracles   map[models.Network]feeoracle.FeeOracle

	mu       sync.Mutex
	engines  map[models.Network]*relay.Engine
	password string // session master password; empty until established

	hub *streamHub
}

// NewApp wires a Chain Client and Fee Oracle pair for both networks (cheap,
// stateless HTTP clients) and seeds the session password from
// RELAY_MASTER_PASSWORD for daemon-mode bootstrapping, per config.go's
// MasterPasswordFromEnv.
func NewApp(cfg *config.Config, st store.Store, signer btcsigner.BitcoinSigner, logger *zap.Logger) *App {
	chainClients := make(map[models.Network]chainclient.ChainClient)
	feeOracles := make(map[models.Network]feeoracle.FeeOracle)
	for _, network := range []models.Network{models.Testnet, models.Mainnet} {
		chainURL, feeURL := cfg.BaseURLsFor(network)
		chainClients[network] = chainclient.NewBlockstreamClient(chainURL, cfg.ChainClientTimeout)
		feeOracles[network] = feeoracle.NewMempoolSpaceOracle(feeURL, cfg.FeeOracleTimeout)
	}
	return newApp(cfg, st, signer, logger, chainClients, feeOracles)
}

// newApp is the lower-level constructor tests use to inject fake Chain
// Clients/Fee Oracles instead of real network-backed ones.
func newApp(cfg *config.Config, st store.Store, signer btcsigner.BitcoinSigner, logger *zap.Logger,
	chainClients map[models.Network]chainclient.ChainClient, feeOracles map[models.Network]feeoracle.FeeOracle) *App {
	a := &App{
		cfg:          cfg,
		store:        st,
		signer:       signer,
		logger:       logger,
		chainClients: chainClients,
		feeOracles:   feeOracles,
		engines:      make(map[models.Network]*relay.Engine),
		hub:          newStreamHub(),
	}

	if pw, ok := config.MasterPasswordFromEnv(); ok {
		a.password = pw
	}

	return a
}

// Authenticate establishes the session master password outside of an HTTP
// request, the way main.go's interactive-mode startup prompt does: the
// first password ever supplied for this store's settings sets the
// verifier, every subsequent one must match it (same rule as
// handlePostNetwork's password branch). Strength is only enforced when
// establishing a new verifier; a later typo against an existing verifier
// fails on mismatch, not on complexity.
func (a *App) Authenticate(password string) error {
	settings, err := a.store.GetSettings()
	if err != nil {
		return err
	}

	if settings.PasswordVerifier == "" {
		if err := utils.ValidatePassword(password); err != nil {
			return relayerr.NewInvalidInputError(err.Error())
		}
		verifier, err := vault.GeneratePasswordVerifier(password)
		if err != nil {
			return err
		}
		settings.PasswordVerifier = verifier
		if err := a.store.SetSettings(settings); err != nil {
			return err
		}
	} else if !vault.VerifyPasswordHash(password, settings.PasswordVerifier) {
		return relayerr.NewDecryptFailedError()
	}

	a.mu.Lock()
	a.password = password
	a.mu.Unlock()
	return nil
}

// activePassword returns the password to use for a key operation: an
// explicit per-request override if given, else the session password
// established from RELAY_MASTER_PASSWORD or a prior /api/network auth.
func (a *App) activePassword(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	a.mu.Lock()
	pw := a.password
	a.mu.Unlock()
	if pw == "" {
		return "", relayerr.NewInvalidInputError("no master password established for this session")
	}
	return pw, nil
}

// engineFor lazily constructs the Engine for network, reusing it on
// subsequent calls (spec §4.6 "one engine per (network, session key)").
func (a *App) engineFor(network models.Network) (*relay.Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.engines[network]; ok {
		return e, nil
	}
	if a.password == "" {
		return nil, relayerr.NewInvalidInputError("cannot start engine before a master password is established")
	}

	e := relay.NewEngine(relay.Config{
		Store:           a.store,
		ChainClient:     a.chainClients[network],
		FeeOracle:       a.feeOracles[network],
		Signer:          a.signer,
		Network:         network,
		Password:        a.password,
		Logger:          a.logger,
		PollInterval:    a.cfg.PollInterval,
		ShutdownTimeout: a.cfg.ShutdownTimeout,
		OnCycle:         a.hub.broadcastCycle,
	})
	a.engines[network] = e
	return e, nil
}

func (a *App) activeNetwork() (models.Network, error) {
	settings, err := a.store.GetSettings()
	if err != nil {
		return "", err
	}
	if !settings.ActiveNetwork.IsValid() {
		return models.Testnet, nil
	}
	return settings.ActiveNetwork, nil
}

// Close stops every running engine and the stream hub, for graceful
// process shutdown.
func (a *App) Close() {
	a.mu.Lock()
	engines := make([]*relay.Engine, 0, len(a.engines))
	for _, e := range a.engines {
		engines = append(engines, e)
	}
	a.mu.Unlock()

	for _, e := range engines {
		if e.IsRunning() {
			_ = e.Stop()
		}
	}
	a.hub.close()
}

// NewHandler builds the full route table (spec §6 "Control surface").
func NewHandler(a *App) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/network", a.handleGetNetwork)
	mux.HandleFunc("POST /api/network", a.handlePostNetwork)

	mux.HandleFunc("GET /api/fees", a.handleGetFees)
	mux.HandleFunc("POST /api/fees/estimate", a.handleEstimateFees)

	mux.HandleFunc("GET /api/chains", a.handleListChains)
	mux.HandleFunc("POST /api/chains", a.handleCreateChain)
	mux.HandleFunc("GET /api/chains/{id}", a.handleGetChain)
	mux.HandleFunc("POST /api/chains/{id}/cancel", a.handleCancelChain)
	mux.HandleFunc("POST /api/chains/{id}/activate", a.handleActivateChain)
	mux.HandleFunc("POST /api/chains/{id}/retry", a.handleRetryChain)
	mux.HandleFunc("POST /api/chains/{id}/fix-status", a.handleFixStatus)
	mux.HandleFunc("POST /api/chains/{id}/export", a.handleExportChain)

	mux.HandleFunc("POST /api/address/validate", a.handleValidateAddress)
	mux.HandleFunc("POST /api/address/balance", a.handleAddressBalance)

	mux.HandleFunc("GET /api/status", a.handleStatus)
	mux.HandleFunc("POST /api/engine/start", a.handleEngineStart)
	mux.HandleFunc("POST /api/engine/stop", a.handleEngineStop)

	mux.HandleFunc("GET /api/stream", a.handleStream)

	return mux
}
