package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/yourusername/btcrelay/internal/models"
	"github.com/yourusername/btcrelay/internal/relayerr"
)

// FileStore implements Store as a single JSON document, guarded by one
// mutex and written with the temp-file-then-rename pattern from the
// teacher's internal/services/storage.AtomicWriteFile /
// src/chainadapter/storage/file.go FileTxStore.persist(). See DESIGN.md
// for why this stands in for a SQL/embedded-database driver: none appears
// anywhere in the reference corpus, and this is the persistence idiom the
// corpus already uses for exactly this shape of data.
type FileStore struct {
	mu   sync.Mutex
	path string
	doc  *document
}

// Open loads path if it exists, or starts a fresh document.
func Open(path string) (*FileStore, error) {
	fs := &FileStore{path: path}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.doc = newDocument()
			return nil
		}
		return relayerr.NewFatalError("failed to read store file", err)
	}
	if len(data) == 0 {
		s.doc = newDocument()
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return relayerr.NewFatalError("failed to parse store file", err)
	}
	if doc.Chains == nil {
		doc.Chains = make(map[int64]*models.Chain)
	}
	if doc.TipMarkers == nil {
		doc.TipMarkers = make(map[models.Network]*models.TipMarker)
	}
	s.doc = &doc
	return nil
}

// persist must be called with mu held.
func (s *FileStore) persist() error {
	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return relayerr.NewFatalError("failed to create store directory", err)
		}
	}

	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return relayerr.NewFatalError("failed to marshal store document", err)
	}

	tmp, err := os.CreateTemp(dir, ".relay-store-*")
	if err != nil {
		return relayerr.NewFatalError("failed to create temp store file", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return relayerr.NewFatalError("failed to write temp store file", err)
	}
	if err := tmp.Sync(); err != nil {
		return relayerr.NewFatalError("failed to sync temp store file", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		return relayerr.NewFatalError("failed to chmod temp store file", err)
	}
	if err := tmp.Close(); err != nil {
		return relayerr.NewFatalError("failed to close temp store file", err)
	}
	tmp = nil

	if err := os.Rename(tmpPath, s.path); err != nil {
		return relayerr.NewFatalError("failed to rename temp store file", err)
	}
	return nil
}

func (s *FileStore) chainOrNotFound(id int64) (*models.Chain, error) {
	c, ok := s.doc.Chains[id]
	if !ok {
		return nil, relayerr.NewNotFoundError(fmt.Sprintf("chain %d not found", id))
	}
	return c, nil
}

// CreateChain persists a new chain in status pending with densely
// numbered hops [0, total_hops) (spec §3 invariants).
func (s *FileStore) CreateChain(p NewChainParams) (*models.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(p.Hops) < models.MinHops || len(p.Hops) > models.MaxHops {
		return nil, relayerr.NewInvalidInputError(
			fmt.Sprintf("num_hops must be between %d and %d", models.MinHops, models.MaxHops))
	}

	chainID := s.doc.NextChainID
	s.doc.NextChainID++

	hops := make([]*models.Hop, len(p.Hops))
	for i, hp := range p.Hops {
		hopID := s.doc.NextHopID
		s.doc.NextHopID++
		hops[i] = &models.Hop{
			ID:           hopID,
			ChainID:      chainID,
			HopNumber:    i,
			Address:      hp.Address,
			EncryptedKey: hp.EncryptedKey,
			DelayBlocks:  hp.DelayBlocks,
			Status:       models.HopWaiting,
			CreatedAt:    now(),
		}
	}

	chain := &models.Chain{
		ID:                 chainID,
		Name:               p.Name,
		Network:            p.Network,
		Status:             models.ChainPending,
		IntakeAddress:      p.IntakeAddress,
		IntakeEncryptedKey: p.IntakeEncryptedKey,
		FinalAddress:       p.FinalAddress,
		FinalIsGenerated:   p.FinalIsGenerated,
		FinalEncryptedKey:  p.FinalEncryptedKey,
		TotalHops:          len(p.Hops),
		CurrentHop:         0,
		CreatedAt:          now(),
		Hops:               hops,
	}

	s.doc.Chains[chainID] = chain

	if err := s.persist(); err != nil {
		return nil, err
	}
	return cloneChain(chain), nil
}

func (s *FileStore) GetChain(id int64) (*models.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.chainOrNotFound(id)
	if err != nil {
		return nil, err
	}
	return cloneChain(c), nil
}

func (s *FileStore) ListChains(network models.Network) ([]*models.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.Chain
	for _, c := range s.doc.Chains {
		if c.Network == network {
			result = append(result, cloneChain(c))
		}
	}
	return result, nil
}

func (s *FileStore) ListActiveChains(network models.Network) ([]*models.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.Chain
	for _, c := range s.doc.Chains {
		if c.Network == network && c.Status == models.ChainActive {
			result = append(result, cloneChain(c))
		}
	}
	return result, nil
}

func (s *FileStore) DeleteChain(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.chainOrNotFound(id); err != nil {
		return err
	}
	delete(s.doc.Chains, id)

	// Cascade: drop log entries belonging to the deleted chain (spec §3/§6
	// "Foreign-key cascades delete hops and log entries when a chain is
	// deleted"). Hops live embedded in the chain struct so they are
	// already gone.
	kept := s.doc.Log[:0]
	for _, entry := range s.doc.Log {
		if entry.ChainID != id {
			kept = append(kept, entry)
		}
	}
	s.doc.Log = kept

	return s.persist()
}

// ActivateChain transitions pending -> active and stamps StartedAt (spec
// §4.6 chain state machine).
func (s *FileStore) ActivateChain(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.chainOrNotFound(id)
	if err != nil {
		return err
	}
	if c.Status != models.ChainPending {
		return relayerr.NewInvalidInputError(fmt.Sprintf("chain %d is not pending", id))
	}

	t := now()
	c.Status = models.ChainActive
	c.StartedAt = &t

	return s.persist()
}

// CancelChain transitions pending or active -> cancelled (spec §4.6).
func (s *FileStore) CancelChain(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.chainOrNotFound(id)
	if err != nil {
		return err
	}
	if c.Status != models.ChainPending && c.Status != models.ChainActive {
		return relayerr.NewInvalidInputError(fmt.Sprintf("chain %d cannot be cancelled from status %s", id, c.Status))
	}

	c.Status = models.ChainCancelled
	return s.persist()
}

// FailChain transitions active -> failed with an error message (spec §4.6
// "unrecoverable error"). Terminal; callers should exhaust retries via the
// engine's normal per-cycle reconciliation before calling this.
func (s *FileStore) FailChain(id int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.chainOrNotFound(id)
	if err != nil {
		return err
	}
	if c.Status.IsTerminal() {
		return relayerr.NewInvalidInputError(fmt.Sprintf("chain %d is already terminal (%s)", id, c.Status))
	}

	c.Status = models.ChainFailed
	c.Error = reason
	return s.persist()
}

// RecordIntakeSwept implements ReconcileAndAdvance step 5's i*==0 branch.
// amountReceivedSats is the gross balance the intake address held (the
// chain's authoritative "amount received"); hop[0] is credited with the
// net amount the sweep transaction actually sent it, amountReceivedSats
// minus feeSats, matching the original's amount_to_send bookkeeping so
// total_fees_sats stays exact at completion.
func (s *FileStore) RecordIntakeSwept(chainID int64, amountReceivedSats, feeSats int64, txid string, tipHeight uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.chainOrNotFound(chainID)
	if err != nil {
		return err
	}
	hop0 := c.HopByNumber(0)
	if hop0 == nil {
		return relayerr.NewFatalError(fmt.Sprintf("chain %d missing hop 0", chainID), nil)
	}

	c.AmountReceivedSats = amountReceivedSats
	if c.CurrentHop < 0 {
		c.CurrentHop = 0
	}

	t := now()
	hop0.IncomingTxID = txid
	hop0.IncomingAmountSats = amountReceivedSats - feeSats
	hop0.IncomingBlockHeight = tipHeight
	hop0.Status = models.HopPendingRelay
	hop0.RelayAtBlock = tipHeight + hop0.DelayBlocks
	hop0.FundedAt = &t

	return s.persist()
}

// RecordHopRelayed implements ReconcileAndAdvance step 5's i*>0 branch.
func (s *FileStore) RecordHopRelayed(chainID int64, hopNumber int, outgoingTxID string, amountSats, feeSats int64, destHopNumber *int, tipHeight uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.chainOrNotFound(chainID)
	if err != nil {
		return err
	}
	hop := c.HopByNumber(hopNumber)
	if hop == nil {
		return relayerr.NewFatalError(fmt.Sprintf("chain %d missing hop %d", chainID, hopNumber), nil)
	}

	t := now()
	hop.OutgoingTxID = outgoingTxID
	hop.OutgoingAmountSats = amountSats
	hop.OutgoingFeeSats = feeSats
	hop.Status = models.HopRelayed
	hop.RelayedAt = &t

	if destHopNumber != nil {
		dest := c.HopByNumber(*destHopNumber)
		if dest == nil {
			return relayerr.NewFatalError(fmt.Sprintf("chain %d missing destination hop %d", chainID, *destHopNumber), nil)
		}
		dest.IncomingTxID = outgoingTxID
		dest.IncomingAmountSats = amountSats
		dest.IncomingBlockHeight = tipHeight
		dest.Status = models.HopPendingRelay
		dest.RelayAtBlock = tipHeight + dest.DelayBlocks
		fundedAt := now()
		dest.FundedAt = &fundedAt
	}

	if hopNumber+1 > c.CurrentHop {
		c.CurrentHop = hopNumber + 1
	}

	return s.persist()
}

// CorrectHopRelayed implements the drift-correction branch of fix_status:
// hop[hopNumber]'s own address is already empty because its relay
// broadcast reached the chain, but the crash window between Broadcast and
// RecordHopRelayed/RecordIntakeSwept left its status stale. It is a no-op
// if the hop is already relayed.
func (s *FileStore) CorrectHopRelayed(chainID int64, hopNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.chainOrNotFound(chainID)
	if err != nil {
		return err
	}
	hop := c.HopByNumber(hopNumber)
	if hop == nil {
		return relayerr.NewFatalError(fmt.Sprintf("chain %d missing hop %d", chainID, hopNumber), nil)
	}

	if hop.Status != models.HopRelayed {
		hop.Status = models.HopRelayed
		if hop.RelayedAt == nil {
			t := now()
			hop.RelayedAt = &t
		}
	}
	if hopNumber+1 > c.CurrentHop {
		c.CurrentHop = hopNumber + 1
	}

	return s.persist()
}

// CompleteChain implements spec §4.6 "Completion".
func (s *FileStore) CompleteChain(chainID int64, amountSentSats int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.chainOrNotFound(chainID)
	if err != nil {
		return err
	}

	var totalFees int64
	t := now()
	for _, h := range c.Hops {
		totalFees += h.OutgoingFeeSats
		if h.Status != models.HopRelayed {
			h.Status = models.HopRelayed
			if h.RelayedAt == nil {
				h.RelayedAt = &t
			}
		}
	}

	c.Status = models.ChainCompleted
	c.AmountSentSats = amountSentSats
	c.TotalFeesSats = totalFees
	c.CurrentHop = c.TotalHops
	c.CompletedAt = &t

	return s.persist()
}

// MarkHopFailed records a broadcast failure without changing chain status
// (spec §4.6 step 6, §7 BroadcastRejected: "leave state unchanged, retry").
func (s *FileStore) MarkHopFailed(chainID int64, hopNumber int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.chainOrNotFound(chainID)
	if err != nil {
		return err
	}
	hop := c.HopByNumber(hopNumber)
	if hop == nil {
		return relayerr.NewFatalError(fmt.Sprintf("chain %d missing hop %d", chainID, hopNumber), nil)
	}
	hop.Status = models.HopFailed
	return s.persist()
}

// HopsPendingRelay returns pending_relay hops of active chains on network
// whose relay_at_block <= tipHeight (spec §4.2).
func (s *FileStore) HopsPendingRelay(network models.Network, tipHeight uint64) ([]PendingHop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []PendingHop
	for _, c := range s.doc.Chains {
		if c.Network != network || c.Status != models.ChainActive {
			continue
		}
		for _, h := range c.Hops {
			if h.Status == models.HopPendingRelay && h.RelayAtBlock <= tipHeight {
				hc := *h
				result = append(result, PendingHop{ChainID: c.ID, Hop: &hc})
			}
		}
	}
	return result, nil
}

func (s *FileStore) AppendLog(entry models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.doc.NextLogID
	s.doc.NextLogID++
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now()
	}
	s.doc.Log = append(s.doc.Log, &entry)

	return s.persist()
}

func (s *FileStore) ListLog(chainID int64) ([]*models.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.LogEntry
	for _, e := range s.doc.Log {
		if e.ChainID == chainID {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *FileStore) SetTip(network models.Network, height uint64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.TipMarkers[network] = &models.TipMarker{
		Network:   network,
		Height:    height,
		Hash:      hash,
		UpdatedAt: now(),
	}
	return s.persist()
}

func (s *FileStore) GetTip(network models.Network) (*models.TipMarker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tip, ok := s.doc.TipMarkers[network]
	if !ok {
		return &models.TipMarker{Network: network}, nil
	}
	cp := *tip
	return &cp, nil
}

func (s *FileStore) GetSettings() (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Settings, nil
}

func (s *FileStore) SetSettings(settings models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Settings = settings
	return s.persist()
}

var _ Store = (*FileStore)(nil)
