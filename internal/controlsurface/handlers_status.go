package controlsurface

import (
	"net/http"

	"github.com/yourusername/btcrelay/internal/models"
)

type engineStatus struct {
	Network models.Network `json:"network"`
	Running bool           `json:"running"`
}

type statusResponse struct {
	ActiveNetwork models.Network `json:"active_network"`
	Engines       []engineStatus `json:"engines"`
	ActiveChains  int            `json:"active_chains"`
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	network, err := a.activeNetwork()
	if err != nil {
		writeError(w, err)
		return
	}

	a.mu.Lock()
	engines := make([]engineStatus, 0, len(a.engines))
	for net, e := range a.engines {
		engines = append(engines, engineStatus{Network: net, Running: e.IsRunning()})
	}
	a.mu.Unlock()

	activeChains, err := a.store.ListActiveChains(network)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		ActiveNetwork: network,
		Engines:       engines,
		ActiveChains:  len(activeChains),
	})
}

func (a *App) handleEngineStart(w http.ResponseWriter, r *http.Request) {
	network, err := a.activeNetwork()
	if err != nil {
		writeError(w, err)
		return
	}
	engine, err := a.engineFor(network)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := engine.Start(); err != nil {
		writeError(w, err)
		return
	}
	a.hub.broadcastStarted(network)
	writeJSON(w, http.StatusOK, engineStatus{Network: network, Running: true})
}

func (a *App) handleEngineStop(w http.ResponseWriter, r *http.Request) {
	network, err := a.activeNetwork()
	if err != nil {
		writeError(w, err)
		return
	}
	engine, err := a.engineFor(network)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := engine.Stop(); err != nil {
		writeError(w, err)
		return
	}
	a.hub.broadcastStopped(network)
	writeJSON(w, http.StatusOK, engineStatus{Network: network, Running: false})
}
