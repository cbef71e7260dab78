package store

import (
	"time"

	"github.com/yourusername/btcrelay/internal/models"
)

// document is the single JSON file backing the Store (spec §4.2/§6's
// "single relational database file"). Grounded on the teacher's
// src/chainadapter/storage/file.go FileTxStore, which persists a Go map as
// one JSON document with a rename-based atomic write; here the document
// holds every table named in spec §6 instead of a single map.
type document struct {
	Settings   models.Settings            `json:"settings"`
	Chains     map[int64]*models.Chain    `json:"chains"`
	Log        []*models.LogEntry         `json:"log"`
	TipMarkers map[models.Network]*models.TipMarker `json:"tipMarkers"`

	NextChainID int64 `json:"nextChainId"`
	NextHopID   int64 `json:"nextHopId"`
	NextLogID   int64 `json:"nextLogId"`
}

func newDocument() *document {
	return &document{
		Chains:      make(map[int64]*models.Chain),
		TipMarkers:  make(map[models.Network]*models.TipMarker),
		NextChainID: 1,
		NextHopID:   1,
		NextLogID:   1,
	}
}

// cloneChain returns a deep-enough copy of a chain (including its hops) so
// callers reading a snapshot cannot mutate store-owned state (spec §3
// "Ownership": the Store exclusively owns persisted state).
func cloneChain(c *models.Chain) *models.Chain {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Hops = make([]*models.Hop, len(c.Hops))
	for i, h := range c.Hops {
		hc := *h
		cp.Hops[i] = &hc
	}
	if c.StartedAt != nil {
		t := *c.StartedAt
		cp.StartedAt = &t
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

func now() time.Time { return time.Now().UTC() }
