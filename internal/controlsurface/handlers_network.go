package controlsurface

import (
	"net/http"

	"github.com/yourusername/btcrelay/internal/models"
	"github.com/yourusername/btcrelay/internal/relayerr"
)

type networkResponse struct {
	Network     models.Network   `json:"network"`
	Available   []models.Network `json:"available"`
	Authenticated bool           `json:"authenticated"`
}

func (a *App) handleGetNetwork(w http.ResponseWriter, r *http.Request) {
	network, err := a.activeNetwork()
	if err != nil {
		writeError(w, err)
		return
	}
	a.mu.Lock()
	authed := a.password != ""
	a.mu.Unlock()
	writeJSON(w, http.StatusOK, networkResponse{
		Network:       network,
		Available:     []models.Network{models.Testnet, models.Mainnet},
		Authenticated: authed,
	})
}

type postNetworkRequest struct {
	Network  models.Network `json:"network"`
	Password string         `json:"password,omitempty"`
}

// handlePostNetwork switches Settings.ActiveNetwork and, if a password is
// supplied, establishes or verifies the session master password (spec §9
// "authentication drift" resolved toward the session-authenticated model):
// the first password ever supplied for this store sets the verifier
// (vault.GeneratePasswordVerifier); every subsequent one must match it.
func (a *App) handlePostNetwork(w http.ResponseWriter, r *http.Request) {
	var req postNetworkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !req.Network.IsValid() {
		writeError(w, relayerr.NewInvalidInputError("network must be testnet or mainnet"))
		return
	}

	if req.Password != "" {
		if err := a.Authenticate(req.Password); err != nil {
			writeError(w, err)
			return
		}
	}

	settings, err := a.store.GetSettings()
	if err != nil {
		writeError(w, err)
		return
	}
	settings.ActiveNetwork = req.Network
	if err := a.store.SetSettings(settings); err != nil {
		writeError(w, err)
		return
	}

	a.handleGetNetwork(w, r)
}
