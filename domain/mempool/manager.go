package mempool

import (
	"context"
	"crypto/sha256"
	"sync"
	"time"

	"github.com/chia-network/mempool-core/coins"
	"github.com/chia-network/mempool-core/feetracker"
	"github.com/chia-network/mempool-core/mpoolerrors"
	"github.com/chia-network/mempool-core/pendingcache"
	"github.com/chia-network/mempool-core/timelock"
	"github.com/chia-network/mempool-core/util/lrucache"
	"github.com/chia-network/mempool-core/validate"
)

// Status is the outcome of an admission attempt.
type Status int

const (
	// StatusSuccess means the bundle was admitted.
	StatusSuccess Status = iota
	// StatusPending means the bundle failed for a recoverable reason and
	// was queued in the pending cache for retry on a future peak.
	StatusPending
	// StatusFailed means the bundle was rejected outright.
	StatusFailed
)

// AddResult is the outcome of an admission attempt.
type AddResult struct {
	Cost   uint64
	Status Status
	Err    *mpoolerrors.Error
}

// PeakInfo describes the chain tip the manager is tracking, as reported by
// the block record producer collaborator.
type PeakInfo struct {
	HeaderHash      coins.ID
	Height          uint32
	Timestamp       uint64
	PrevTxBlockHash coins.ID
	IsTxBlock       bool
}

// Manager is the mempool orchestrator: admission, replacement, capacity,
// reorg, and block construction, all serialized behind a single lock as
// the single-writer owner spec.md's concurrency model calls for.
type Manager struct {
	mtx sync.Mutex

	cfg Config
	idx *index

	pending *pendingcache.Cache
	seen    *lrucache.LRUCache

	preValidator *validate.PreValidator
	feeTracker   *feetracker.Tracker

	peak PeakInfo
}

// New constructs a Manager from cfg. The pre-validator worker pool is
// started immediately; call Close to drain it.
func New(cfg Config) *Manager {
	return &Manager{
		cfg:          cfg,
		idx:          newIndex(cfg.Policy.Capacity()),
		pending:      pendingcache.New(cfg.Policy.PendingCacheMaxCost),
		seen:         lrucache.New(cfg.Policy.SeenCacheSize),
		preValidator: validate.NewPreValidator(cfg.ScriptRunner, cfg.SignatureCache, cfg.Policy.WorkerPoolSize),
		feeTracker:   feetracker.New(),
	}
}

// Close stops the pre-validator worker pool, waiting for in-flight work to
// finish.
func (m *Manager) Close() {
	m.preValidator.Close()
}

// SetPeak initializes the manager's notion of the chain tip without running
// a full NewPeak reconciliation, for use during process startup before any
// bundle has been admitted.
func (m *Manager) SetPeak(peak PeakInfo) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.peak = peak
}

// Peak returns the manager's current notion of the chain tip.
func (m *Manager) Peak() PeakInfo {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.peak
}

// Seen reports whether bundleID has recently been run through
// AddSpendBundle's admission pipeline (whether it was admitted, queued as
// pending, or rejected), without re-running the admission pipeline.
// PreValidate does not mark a bundle as seen.
func (m *Manager) Seen(bundleID coins.ID) bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.seen.Has(bundleID)
}

func (m *Manager) markSeen(bundleID coins.ID) {
	m.seen.Add(bundleID, true)
}

// PreValidate runs the off-thread script execution and signature
// verification stage for bundle, returning the normalized conditions ready
// to pass to AddSpendBundle.
func (m *Manager) PreValidate(ctx context.Context, bundle coins.SpendBundle, bundleID coins.ID, costLimit uint64) (coins.Conditions, *mpoolerrors.Error) {
	result, err := m.preValidator.Submit(ctx, validate.Job{
		Bundle:         bundle,
		BundleID:       bundleID,
		CostLimit:      costLimit,
		AdditionalData: m.cfg.AdditionalData,
	})
	if err != nil {
		return coins.Conditions{}, mpoolerrors.Newf(mpoolerrors.Unknown, "pre-validation canceled: %v", err)
	}
	return result.Conditions, result.Err
}

// GetSpendBundle returns the bundle for bundleID, or nil if not admitted.
func (m *Manager) GetSpendBundle(bundleID coins.ID) *coins.SpendBundle {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	item := m.idx.Get(bundleID)
	if item == nil {
		return nil
	}
	b := item.Bundle
	return &b
}

// GetMempoolItem returns the admitted item for bundleID, or nil.
func (m *Manager) GetMempoolItem(bundleID coins.ID) *Item {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.idx.Get(bundleID)
}

// ItemsBySpentCoinIDs returns the bundle ids of every item spending any of
// coinIDs.
func (m *Manager) ItemsBySpentCoinIDs(coinIDs []coins.ID) []coins.ID {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	items := m.idx.ItemsSpendingAny(coinIDs)
	out := make([]coins.ID, len(items))
	for i, it := range items {
		out[i] = it.BundleID
	}
	return out
}

// ItemsByPuzzleHashes returns the bundle ids of every item touching any of
// puzzleHashes.
func (m *Manager) ItemsByPuzzleHashes(puzzleHashes []coins.ID) []coins.ID {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	seen := make(map[coins.ID]bool)
	var out []coins.ID
	for _, ph := range puzzleHashes {
		for _, it := range m.idx.ItemsByPuzzleHash(ph) {
			if !seen[it.BundleID] {
				seen[it.BundleID] = true
				out = append(out, it.BundleID)
			}
		}
	}
	return out
}

// GetMinFeeRate reports the fee-per-cost a candidate of cost c must clear
// to be admitted right now.
func (m *Manager) GetMinFeeRate(cost uint64) float64 {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.idx.GetMinFeeRate(cost)
}

// AddSpendBundle runs the admission pipeline against an already
// pre-validated bundle.
func (m *Manager) AddSpendBundle(ctx context.Context, bundle coins.SpendBundle, conds coins.Conditions, bundleID coins.ID) AddResult {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.addSpendBundleLocked(ctx, bundle, conds, bundleID)
}

func (m *Manager) addSpendBundleLocked(ctx context.Context, bundle coins.SpendBundle, conds coins.Conditions, bundleID coins.ID) AddResult {
	// 1. short-circuit: already admitted.
	if existing := m.idx.Get(bundleID); existing != nil {
		return AddResult{Cost: existing.Cost, Status: StatusSuccess}
	}

	m.markSeen(bundleID)

	// 2. cost ceiling.
	costLimit := m.cfg.Policy.CostLimit()
	if conds.Cost > costLimit {
		return m.failed(mpoolerrors.New(mpoolerrors.BlockCostExceedsMax))
	}

	// 3. input coverage: conds.Spends' coin ids must equal bundle.Removals().
	removals := bundle.Removals()
	removalSet := make(map[coins.ID]coins.Coin, len(removals))
	for _, c := range removals {
		removalSet[c.ID()] = c
	}
	if len(conds.Spends) != len(removals) {
		return m.failed(mpoolerrors.New(mpoolerrors.InvalidSpendBundle))
	}
	for _, sp := range conds.Spends {
		if _, ok := removalSet[sp.CoinID]; !ok {
			return m.failed(mpoolerrors.New(mpoolerrors.InvalidSpendBundle))
		}
	}

	// 4. structural additions checks.
	additions := conds.Additions()
	seenAdditions := make(map[coins.ID]bool, len(additions))
	for _, c := range additions {
		if c.Amount > m.cfg.Policy.MaxCoinAmount {
			return m.failed(mpoolerrors.New(mpoolerrors.CoinAmountExceedsMaximum))
		}
		id := c.ID()
		if seenAdditions[id] {
			return m.failed(mpoolerrors.New(mpoolerrors.DuplicateOutput))
		}
		seenAdditions[id] = true
	}
	if len(removalSet) != len(removals) {
		return m.failed(mpoolerrors.New(mpoolerrors.DoubleSpend))
	}

	// 5. coin resolution, with the ephemeral-coin special case.
	records := make(map[coins.ID]coins.Record, len(removals))
	for _, c := range removals {
		coinID := c.ID()
		record, err := m.cfg.CoinStore.GetCoinRecord(ctx, coinID)
		if err != nil {
			return m.failed(mpoolerrors.Newf(mpoolerrors.Unknown, "coin store: %v", err))
		}
		if record == nil {
			if !seenAdditions[coinID] {
				return m.failed(mpoolerrors.New(mpoolerrors.UnknownUnspent))
			}
			record = &coins.Record{
				Coin:            c,
				ConfirmedHeight: m.peak.Height + 1,
				Timestamp:       m.peak.Timestamp,
			}
		} else if record.Spent() && record.SpentHeight <= m.peak.Height {
			if m.singletonLineageAdvanced(ctx, c) {
				// The coin is spent, but it's a singleton whose lineage has
				// since produced a newer unspent version: this spend is
				// stale rather than dead, so give it a chance to be
				// superseded by a fast-forwarded resubmission targeting the
				// current version instead of killing it outright.
				return m.pendingResult(bundle, conds, bundleID, conds.Cost, mpoolerrors.New(mpoolerrors.DoubleSpend))
			}
			return m.failed(mpoolerrors.New(mpoolerrors.DoubleSpend))
		}
		records[coinID] = *record
	}

	// 6. value balance.
	var totalRemovals, totalAdditions uint64
	for _, c := range removals {
		totalRemovals += c.Amount
	}
	for _, c := range additions {
		totalAdditions += c.Amount
	}
	if totalAdditions > totalRemovals {
		return m.failed(mpoolerrors.New(mpoolerrors.MintingCoin))
	}
	fee := totalRemovals - totalAdditions
	if fee < conds.ReserveFee {
		return m.failed(mpoolerrors.New(mpoolerrors.ReserveFeeConditionFailed))
	}

	// 7. cost sanity.
	if conds.Cost == 0 {
		return m.failed(mpoolerrors.New(mpoolerrors.Unknown))
	}
	feePerCost := float64(fee) / float64(conds.Cost)

	// 8. fee-density gate.
	if m.idx.AtFullCapacity(conds.Cost) {
		if feePerCost < m.cfg.Policy.MinNonzeroFeePerCost {
			return m.failed(mpoolerrors.New(mpoolerrors.InvalidFeeTooCloseToZero))
		}
		if feePerCost <= m.idx.GetMinFeeRate(conds.Cost) {
			return m.pendingResult(bundle, conds, bundleID, conds.Cost, mpoolerrors.New(mpoolerrors.InvalidFeeLowFee))
		}
	}

	// 9. conflict scan.
	removalIDs := make([]coins.ID, 0, len(removals))
	for id := range removalSet {
		removalIDs = append(removalIDs, id)
	}
	conflicts := m.idx.ItemsSpendingAny(removalIDs)

	// 10. puzzle-hash verification.
	for _, c := range removals {
		record := records[c.ID()]
		if record.Coin.PuzzleHash != c.PuzzleHash {
			return m.failed(mpoolerrors.New(mpoolerrors.WrongPuzzleHash))
		}
	}

	// 11. time locks.
	if tlErr := timelock.Check(records, conds, m.peak.Height, m.peak.Timestamp); tlErr != nil {
		if mpoolerrors.IsRecoverableTimeLock(tlErr.Code) {
			return m.pendingResult(bundle, conds, bundleID, conds.Cost, tlErr)
		}
		return m.failed(tlErr)
	}

	// 12. replacement admission.
	item := &Item{
		BundleID:            bundleID,
		Bundle:              bundle,
		Fee:                 fee,
		Cost:                conds.Cost,
		FeePerCost:          feePerCost,
		Conditions:          conds,
		Additions:           additions,
		Removals:            removals,
		SpendDetails:        buildSpendDetails(bundle, conds),
		HeightAdmitted:      m.peak.Height,
		EntryTimestamp:      uint64(time.Now().Unix()),
		AssertHeight:        assertHeightPtr(conds),
		AssertBeforeHeight:  conds.BeforeHeightAbsolute,
		AssertBeforeSeconds: conds.BeforeSecondsAbsolute,
	}
	if len(conflicts) > 0 {
		if !canReplace(conflicts, item, m.cfg.Policy.MinFeeIncrease) {
			return m.pendingResult(bundle, conds, bundleID, conds.Cost, mpoolerrors.New(mpoolerrors.MempoolConflict))
		}
	}

	// 13. commit: remove conflicts, insert the new item.
	for _, c := range conflicts {
		m.removeItem(c, ReasonConflict)
	}
	item.feeBucket = m.feeTracker.AddedToMempool(m.peak.Height, feePerCost)
	m.idx.Add(item)
	m.pending.Remove(bundleID)

	// 14. capacity eviction.
	for m.idx.TotalCost() > m.cfg.Policy.Capacity() {
		lowest := m.idx.LowestFeeItem()
		if lowest == nil {
			break
		}
		m.removeItem(lowest, ReasonPoolFull)
	}

	log.Debugf("admitted bundle %x (pool size: %d, cost: %d)", bundleID, m.idx.Len(), conds.Cost)

	return AddResult{Cost: conds.Cost, Status: StatusSuccess}
}

// singletonLineageAdvanced reports whether spent is a singleton coin whose
// puzzle hash's tracked lineage has already moved on to a newer unspent
// coin, the fast-forward condition a stale-but-still-chained singleton
// spend needs before it's worth retrying instead of discarding outright.
func (m *Manager) singletonLineageAdvanced(ctx context.Context, spent coins.Coin) bool {
	info, err := m.cfg.CoinStore.GetUnspentLineageInfoForPuzzleHash(ctx, spent.PuzzleHash)
	if err != nil || info == nil {
		return false
	}
	return info.CoinID != spent.ID()
}

func assertHeightPtr(conds coins.Conditions) *uint32 {
	if conds.HeightAbsolute == 0 {
		return nil
	}
	h := conds.HeightAbsolute
	return &h
}

func (m *Manager) failed(err *mpoolerrors.Error) AddResult {
	return AddResult{Status: StatusFailed, Err: err}
}

func (m *Manager) pendingResult(bundle coins.SpendBundle, conds coins.Conditions, bundleID coins.ID, cost uint64, err *mpoolerrors.Error) AddResult {
	m.pending.Add(pendingcache.Entry{BundleID: bundleID, Bundle: bundle, Conditions: conds, Cost: cost, LastError: err})
	return AddResult{Status: StatusPending, Err: err}
}

// removeItem removes item from the index and reports its fate to the fee
// tracker: a confirmation if reason is ReasonBlockInclusion (handled by the
// caller via NewBlock instead), otherwise a failure.
func (m *Manager) removeItem(item *Item, reason RemovalReason) {
	m.idx.Remove(item.BundleID)
	if reason != ReasonBlockInclusion {
		m.feeTracker.RemovedFromMempool(int(item.HeightAdmitted), item.feeBucket)
	}
}

// canReplace reports whether candidate satisfies the strict-superset,
// strictly-higher-density, and minimum-absolute-fee-increase rules against
// every item in conflicts.
func canReplace(conflicts []*Item, candidate *Item, minFeeIncrease uint64) bool {
	candidateRemovals := make(map[coins.ID]bool, len(candidate.Removals))
	for _, c := range candidate.Removals {
		candidateRemovals[c.ID()] = true
	}

	var conflictingFees uint64
	for _, c := range conflicts {
		for _, removal := range c.Removals {
			if !candidateRemovals[removal.ID()] {
				return false
			}
		}
		if candidate.FeePerCost <= c.FeePerCost {
			return false
		}
		conflictingFees += c.Fee
	}

	return candidate.Fee >= conflictingFees+minFeeIncrease
}

// CreateBundleFromMempool walks the fee-density index from the highest
// fee_per_cost down, greedily accumulating items while cost and fee stay
// within the policy's bounds, stopping at the first item that would
// violate either. It returns nil if peakHeaderHash does not match the
// manager's current peak or the mempool is empty.
func (m *Manager) CreateBundleFromMempool(peakHeaderHash coins.ID) (*coins.SpendBundle, []coins.Coin, []coins.Coin) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if peakHeaderHash != m.peak.HeaderHash {
		return nil, nil, nil
	}

	costLimit := m.cfg.Policy.CostLimit()
	var costSum, feeSum uint64
	var spends []coins.CoinSpend
	var sigs [][]byte
	var additions, removals []coins.Coin

	m.idx.AscendByFeeDensity(func(item *Item) bool {
		if costSum+item.Cost > costLimit {
			return false
		}
		if feeSum+item.Fee > m.cfg.Policy.MaxCoinAmount {
			return false
		}
		costSum += item.Cost
		feeSum += item.Fee
		spends = append(spends, item.Bundle.Spends...)
		sigs = append(sigs, item.Bundle.AggregatedSignature)
		additions = append(additions, item.Additions...)
		removals = append(removals, item.Removals...)
		return true
	})

	if len(spends) == 0 {
		return nil, nil, nil
	}

	bundle := coins.SpendBundle{Spends: spends, AggregatedSignature: aggregateSignatures(sigs)}
	return &bundle, additions, removals
}

// aggregateSignatures concatenates per-item signatures into a single digest
// placeholder; real BLS aggregation of already-aggregated G2 points is a
// point addition the embedding process's BLS library performs, not a byte
// concatenation. This keeps the interface deterministic for tests that
// don't exercise real signatures.
func aggregateSignatures(sigs [][]byte) []byte {
	h := sha256.New()
	for _, s := range sigs {
		h.Write(s)
	}
	return h.Sum(nil)
}

// NewPeak reconciles the mempool with a new chain tip. When
// blockRemovals is non-nil and matches the fast path's precondition (the
// new peak's previous transaction block is the manager's current peak),
// every item spending one of blockRemovals is dropped as confirmed without
// re-running admission. Otherwise every admitted item is saved and
// re-admitted from scratch in fee-density order (the rebuild path), which
// also correctly handles reorgs.
//
// It returns the bundle ids successfully admitted out of the pending cache
// as a result of this transition.
func (m *Manager) NewPeak(ctx context.Context, peak PeakInfo, blockRemovals []coins.ID) []coins.ID {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	var confirmed []feetracker.ConfirmedItem

	fastPath := blockRemovals != nil && peak.PrevTxBlockHash == m.peak.HeaderHash
	if fastPath {
		for _, coinID := range blockRemovals {
			for _, item := range m.idx.ItemsSpendingCoin(coinID) {
				if m.idx.Has(item.BundleID) {
					confirmed = append(confirmed, feetracker.ConfirmedItem{HeightAdded: item.HeightAdmitted, FeePerCost: item.FeePerCost})
					m.idx.Remove(item.BundleID)
				}
			}
		}
	} else {
		saved := m.snapshotItems()
		m.idx = newIndex(m.cfg.Policy.Capacity())
		m.peak = peak
		for _, item := range saved {
			result := m.addSpendBundleLocked(ctx, item.Bundle, item.Conditions, item.BundleID)
			if result.Status == StatusFailed && result.Err != nil && result.Err.Code == mpoolerrors.DoubleSpend {
				// The coin it spent was actually mined into the new chain:
				// this is a confirmation, not a plain drop.
				confirmed = append(confirmed, feetracker.ConfirmedItem{HeightAdded: item.HeightAdmitted, FeePerCost: item.FeePerCost})
			}
			// A plain success just means the item is still sitting
			// unconfirmed in the rebuilt pool, not that it was mined; any
			// other failure, or a pending retry, drops the item here (a
			// pending one still gets a chance via drainPending below).
		}
	}

	m.peak = peak
	m.feeTracker.NewBlock(peak.Height, confirmed)

	return m.drainPending(ctx)
}

// snapshotItems returns every item currently in the index, ordered by
// fee-density (highest first), so a rebuild re-admits higher-value items
// ahead of lower-value ones when capacity is contested.
func (m *Manager) snapshotItems() []*Item {
	var out []*Item
	m.idx.AscendByFeeDensity(func(item *Item) bool {
		out = append(out, item)
		return true
	})
	return out
}

// drainPending retries every bundle in the pending cache against the
// now-current peak, removing any that succeed.
func (m *Manager) drainPending(ctx context.Context) []coins.ID {
	var admitted []coins.ID
	for _, entry := range m.pending.Drain() {
		result := m.addSpendBundleLocked(ctx, entry.Bundle, entry.Conditions, entry.BundleID)
		if result.Status == StatusSuccess {
			admitted = append(admitted, entry.BundleID)
		} else if result.Status == StatusPending {
			m.pending.Add(entry)
		}
	}
	return admitted
}

