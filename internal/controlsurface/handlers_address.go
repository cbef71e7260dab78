package controlsurface

import (
	"net/http"

	"github.com/yourusername/btcrelay/internal/relayerr"
	"github.com/yourusername/btcrelay/internal/utils"
)

type validateAddressRequest struct {
	Address string `json:"address"`
}

type validateAddressResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// handleValidateAddress applies the prefix+length boundary check (spec §6).
func (a *App) handleValidateAddress(w http.ResponseWriter, r *http.Request) {
	var req validateAddressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	network, err := a.activeNetwork()
	if err != nil {
		writeError(w, err)
		return
	}

	if err := utils.ValidateAddress(req.Address, network); err != nil {
		writeJSON(w, http.StatusOK, validateAddressResponse{Valid: false, Reason: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, validateAddressResponse{Valid: true})
}

type addressBalanceRequest struct {
	Address string `json:"address"`
}

type addressBalanceResponse struct {
	ConfirmedSats   int64 `json:"confirmedSats"`
	UnconfirmedSats int64 `json:"unconfirmedSats"`
}

func (a *App) handleAddressBalance(w http.ResponseWriter, r *http.Request) {
	var req addressBalanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	network, err := a.activeNetwork()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := utils.ValidateAddress(req.Address, network); err != nil {
		writeError(w, relayerr.NewInvalidInputError(err.Error()))
		return
	}

	bal, err := a.chainClients[network].AddressBalance(r.Context(), req.Address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addressBalanceResponse{
		ConfirmedSats:   bal.ConfirmedSats,
		UnconfirmedSats: bal.UnconfirmedSats,
	})
}
