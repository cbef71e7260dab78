package controlsurface

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/yourusername/btcrelay/internal/models"
	"github.com/yourusername/btcrelay/internal/relay"
	"github.com/yourusername/btcrelay/internal/relayerr"
	"github.com/yourusername/btcrelay/internal/store"
	"github.com/yourusername/btcrelay/internal/utils"
	"github.com/yourusername/btcrelay/internal/vault"
)

func chainIDFromPath(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, relayerr.NewInvalidInputError("chain id must be an integer")
	}
	return id, nil
}

func (a *App) handleListChains(w http.ResponseWriter, r *http.Request) {
	network, err := a.activeNetwork()
	if err != nil {
		writeError(w, err)
		return
	}
	chains, err := a.store.ListChains(network)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chains)
}

type createChainRequest struct {
	Name         string `json:"name,omitempty"`
	NumHops      int    `json:"num_hops"`
	FinalAddress string `json:"final_address,omitempty"`
	FeePriority  string `json:"fee_priority,omitempty"`
	DryRun       bool   `json:"dry_run"`
	Password     string `json:"password,omitempty"`
}

type createChainResponse struct {
	Chain  *models.Chain `json:"chain,omitempty"`
	DryRun *dryRunPlan   `json:"dry_run,omitempty"`
}

// dryRunPlan previews the addresses and delay schedule a create_chain call
// would generate without writing anything to the Store, for dry_run=true
// (spec §6 "create with ... dry_run").
type dryRunPlan struct {
	IntakeAddress string   `json:"intake_address"`
	HopAddresses  []string `json:"hop_addresses"`
	FinalAddress  string   `json:"final_address"`
	DelayBlocks   []uint64 `json:"delay_blocks"`
}

// handleCreateChain implements spec §6 "create with {name?, num_hops,
// final_address?, fee_priority, dry_run}": the intake address, every hop
// address and, unless final_address is given, the final address are
// freshly generated via the signer, and every generated key is encrypted
// via the vault before it ever reaches the Store (spec §4.1).
// fee_priority is accepted but not used when creating a chain.
func (a *App) handleCreateChain(w http.ResponseWriter, r *http.Request) {
	var req createChainRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.NumHops < models.MinHops || req.NumHops > models.MaxHops {
		writeError(w, relayerr.NewInvalidInputError("num_hops out of range"))
		return
	}

	network, err := a.activeNetwork()
	if err != nil {
		writeError(w, err)
		return
	}

	if req.FinalAddress != "" {
		if err := utils.ValidateAddress(req.FinalAddress, network); err != nil {
			writeError(w, relayerr.NewInvalidInputError(err.Error()))
			return
		}
	}

	signerImpl := a.signer
	delays := relay.Fibonacci(req.NumHops)

	intakeKey, err := signerImpl.GenerateKey(network)
	if err != nil {
		writeError(w, err)
		return
	}

	hopAddrs := make([]string, req.NumHops)
	hopKeys := make([]string, req.NumHops) // plaintext WIF, encrypted below
	for i := 0; i < req.NumHops; i++ {
		k, err := signerImpl.GenerateKey(network)
		if err != nil {
			writeError(w, err)
			return
		}
		hopAddrs[i] = k.Address
		hopKeys[i] = k.WIF
	}

	finalAddress := req.FinalAddress
	finalGenerated := false
	var finalWIF string
	if finalAddress == "" {
		finalKey, err := signerImpl.GenerateKey(network)
		if err != nil {
			writeError(w, err)
			return
		}
		finalAddress = finalKey.Address
		finalWIF = finalKey.WIF
		finalGenerated = true
	}

	if req.DryRun {
		writeJSON(w, http.StatusOK, createChainResponse{DryRun: &dryRunPlan{
			IntakeAddress: intakeKey.Address,
			HopAddresses:  hopAddrs,
			FinalAddress:  finalAddress,
			DelayBlocks:   delays,
		}})
		return
	}

	password, err := a.activePassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	intakeEnc, err := vault.Encrypt([]byte(intakeKey.WIF), password)
	if err != nil {
		writeError(w, err)
		return
	}

	hops := make([]store.NewHopParams, req.NumHops)
	for i := 0; i < req.NumHops; i++ {
		enc, err := vault.Encrypt([]byte(hopKeys[i]), password)
		if err != nil {
			writeError(w, err)
			return
		}
		hops[i] = store.NewHopParams{Address: hopAddrs[i], EncryptedKey: enc, DelayBlocks: delays[i]}
	}

	var finalEnc string
	if finalGenerated {
		finalEnc, err = vault.Encrypt([]byte(finalWIF), password)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	chain, err := a.store.CreateChain(store.NewChainParams{
		Name:               req.Name,
		Network:            network,
		IntakeAddress:      intakeKey.Address,
		IntakeEncryptedKey: intakeEnc,
		FinalAddress:       finalAddress,
		FinalIsGenerated:   finalGenerated,
		FinalEncryptedKey:  finalEnc,
		Hops:               hops,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := a.store.AppendLog(models.LogEntry{ChainID: chain.ID, Kind: models.EventChainCreated}); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createChainResponse{Chain: chain})
}

type chainDetailResponse struct {
	*models.Chain
	LiveBalances map[string]liveBalance `json:"liveBalances,omitempty"`
}

type liveBalance struct {
	ConfirmedSats   int64 `json:"confirmedSats"`
	UnconfirmedSats int64 `json:"unconfirmedSats"`
}

// handleGetChain returns the chain plus a live balance snapshot of every
// address in it (spec §4.7 "get_chain (with live balance)").
func (a *App) handleGetChain(w http.ResponseWriter, r *http.Request) {
	id, err := chainIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	chain, err := a.store.GetChain(id)
	if err != nil {
		writeError(w, err)
		return
	}

	cc := a.chainClients[chain.Network]
	addrs := append(chain.AddressChain(), chain.FinalAddress)
	balances := make(map[string]liveBalance, len(addrs))
	for _, addr := range addrs {
		bal, err := cc.AddressBalance(r.Context(), addr)
		if err != nil {
			continue // best-effort: live balance is a convenience, not authoritative
		}
		balances[addr] = liveBalance{ConfirmedSats: bal.ConfirmedSats, UnconfirmedSats: bal.UnconfirmedSats}
	}

	writeJSON(w, http.StatusOK, chainDetailResponse{Chain: chain, LiveBalances: balances})
}

func (a *App) handleCancelChain(w http.ResponseWriter, r *http.Request) {
	id, err := chainIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.CancelChain(id); err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.AppendLog(models.LogEntry{ChainID: id, Kind: models.EventChainCancelled}); err != nil {
		writeError(w, err)
		return
	}
	chain, err := a.store.GetChain(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chain)
}

func (a *App) handleActivateChain(w http.ResponseWriter, r *http.Request) {
	id, err := chainIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.ActivateChain(id); err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.AppendLog(models.LogEntry{ChainID: id, Kind: models.EventChainActivated}); err != nil {
		writeError(w, err)
		return
	}

	chain, err := a.store.GetChain(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := a.engineFor(chain.Network); err != nil {
		a.logger.Warn("activated chain but could not prepare engine", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, chain)
}

// handleRetryChain runs the manual "recover stuck chain" procedure (spec
// §4.6 "Manual retry") synchronously and returns its per-step report.
func (a *App) handleRetryChain(w http.ResponseWriter, r *http.Request) {
	id, err := chainIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	chain, err := a.store.GetChain(id)
	if err != nil {
		writeError(w, err)
		return
	}

	engine, err := a.engineFor(chain.Network)
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := engine.Retry(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// handleFixStatus forces a synchronous reconciliation pass for one chain
// and reports its state afterward (spec §4.7 "fix_status
// (force-reconcile)"). A plain reconcile-and-advance only ever sweeps the
// single lowest-funded address, so it won't by itself repair a hop whose
// own relay already landed on chain but whose status write never
// persisted (a crash between Broadcast and the store call); fix_status
// additionally walks every hop and retroactively marks relayed any whose
// downstream address is already funded (spec §6 line 151), not just the
// immediately-funded index.
func (a *App) handleFixStatus(w http.ResponseWriter, r *http.Request) {
	id, err := chainIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	chain, err := a.store.GetChain(id)
	if err != nil {
		writeError(w, err)
		return
	}

	before := chain.Status
	beforeHop := chain.CurrentHop

	engine, err := a.engineFor(chain.Network)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := engine.FixStatusChain(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	after, err := a.store.GetChain(id)
	if err != nil {
		writeError(w, err)
		return
	}

	if after.Status != before || after.CurrentHop != beforeHop {
		_ = a.store.AppendLog(models.LogEntry{ChainID: id, Kind: models.EventStatusCorrected})
	}

	writeJSON(w, http.StatusOK, after)
}

type exportRequest struct {
	Password string `json:"password"`
}

type exportedKey struct {
	HopNumber int    `json:"hop_number,omitempty"`
	Role      string `json:"role"`
	Address   string `json:"address"`
	WIF       string `json:"wif"`
}

// handleExportChain decrypts every signing key in the chain and returns
// their WIF encodings (spec §8 scenario 4 "wrong password on export
// returns DecryptFailed; no plaintext leaks in error text"). Plaintext key
// lifetime is bounded to this handler call; nothing is cached.
func (a *App) handleExportChain(w http.ResponseWriter, r *http.Request) {
	id, err := chainIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	chain, err := a.store.GetChain(id)
	if err != nil {
		writeError(w, err)
		return
	}

	password, err := a.activePassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	keys := make([]exportedKey, 0, chain.TotalHops+2)

	decryptOne := func(role string, hopNumber int, address, encKey string) error {
		secret, err := vault.Decrypt(encKey, password)
		if err != nil {
			return err
		}
		wif := secret.String()
		secret.Close()
		keys = append(keys, exportedKey{HopNumber: hopNumber, Role: role, Address: address, WIF: wif})
		return nil
	}

	if err := decryptOne("intake", -1, chain.IntakeAddress, chain.IntakeEncryptedKey); err != nil {
		writeError(w, err)
		return
	}
	for _, hop := range chain.Hops {
		if err := decryptOne("hop", hop.HopNumber, hop.Address, hop.EncryptedKey); err != nil {
			writeError(w, err)
			return
		}
	}
	if chain.FinalIsGenerated {
		if err := decryptOne("final", -1, chain.FinalAddress, chain.FinalEncryptedKey); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, keys)
}
