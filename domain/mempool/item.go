package mempool

import "github.com/chia-network/mempool-core/coins"

// SpendDetail is the per-coin-spend breakdown of an admitted item: the coin
// spent, the coins it created, the CLVM cost attributed to that spend
// alone, and whether it carries an aggregate-signature demand. Exposed
// separately from Item's bundle-wide totals so a caller inspecting a
// mempool item (debugging, a block-explorer-style RPC) can attribute cost
// and fee to individual spends instead of only the bundle as a whole.
type SpendDetail struct {
	Coin      coins.Coin
	Additions []coins.Coin
	Cost      uint64
	HasAggSig bool
}

// Item is a single admitted bundle plus the bookkeeping the index and
// manager need: its cost and fee density, the coins it touches, and a copy
// of its absolute height floor and height/seconds ceilings. The manager
// records those time-lock fields on admission and does not read them back.
type Item struct {
	BundleID coins.ID
	Bundle   coins.SpendBundle

	Fee        uint64
	Cost       uint64
	FeePerCost float64

	Conditions   coins.Conditions
	Additions    []coins.Coin
	Removals     []coins.Coin
	SpendDetails []SpendDetail

	HeightAdmitted uint32

	// EntryTimestamp records when this item was admitted, for
	// observability only (debug dumps, age-based eviction heuristics an
	// embedder might add) — never consulted for fee-density ordering.
	EntryTimestamp uint64

	AssertHeight        *uint32
	AssertBeforeHeight  *uint32
	AssertBeforeSeconds *uint64

	// feeBucket is the fee tracker bucket this item was recorded under on
	// admission, needed to report its eventual confirmation or failure
	// against the same bucket.
	feeBucket int

	// seq breaks fee_per_cost ties by admission order, oldest first.
	seq uint64
}

// buildSpendDetails derives the per-spend breakdown from a bundle's
// resolved conditions.
func buildSpendDetails(bundle coins.SpendBundle, conds coins.Conditions) []SpendDetail {
	details := make([]SpendDetail, 0, len(conds.Spends))
	for i, sp := range conds.Spends {
		var coin coins.Coin
		if i < len(bundle.Spends) {
			coin = bundle.Spends[i].Coin
		}
		additions := make([]coins.Coin, 0, len(sp.CreateCoin))
		for _, cc := range sp.CreateCoin {
			additions = append(additions, coins.Coin{ParentID: sp.CoinID, PuzzleHash: cc.PuzzleHash, Amount: cc.Amount})
		}
		details = append(details, SpendDetail{
			Coin:      coin,
			Additions: additions,
			Cost:      sp.Cost,
			HasAggSig: len(sp.AggSigs) > 0,
		})
	}
	return details
}

// RemovalIDs returns the coin ids this item spends.
func (it *Item) RemovalIDs() []coins.ID {
	ids := make([]coins.ID, len(it.Removals))
	for i, c := range it.Removals {
		ids[i] = c.ID()
	}
	return ids
}

// PuzzleHashes returns the distinct puzzle hashes involved in this item's
// spends (for filter queries).
func (it *Item) PuzzleHashes() []coins.ID {
	seen := make(map[coins.ID]bool)
	var out []coins.ID
	for _, c := range it.Removals {
		if !seen[c.PuzzleHash] {
			seen[c.PuzzleHash] = true
			out = append(out, c.PuzzleHash)
		}
	}
	return out
}

// RemovalReason identifies why an item left the mempool, consumed by the
// fee tracker's confirmed/failed bookkeeping.
type RemovalReason int

const (
	// ReasonBlockInclusion means the item's coins were spent in a block
	// that became the new peak: a confirmation.
	ReasonBlockInclusion RemovalReason = iota
	// ReasonConflict means a replacement displaced this item.
	ReasonConflict
	// ReasonPoolFull means capacity eviction dropped this item.
	ReasonPoolFull
)
