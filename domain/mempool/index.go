package mempool

import (
	"github.com/google/btree"

	"github.com/chia-network/mempool-core/coins"
)

// feeOrderLess orders items strictly descending by fee_per_cost, ties
// broken by admission order (oldest first), the ordering the fee-density
// secondary index and block construction both walk.
func feeOrderLess(a, b *Item) bool {
	if a.FeePerCost != b.FeePerCost {
		return a.FeePerCost > b.FeePerCost
	}
	return a.seq < b.seq
}

// index is the in-memory mempool store: the primary bundle_id -> Item map
// plus the secondary indexes spec.md's data model requires. It is not
// safe for concurrent use on its own; the manager serializes all access
// behind a single lock.
type index struct {
	items map[coins.ID]*Item

	bySpentCoin  map[coins.ID]map[coins.ID]bool // coin id -> set of bundle ids
	byPuzzleHash map[coins.ID]map[coins.ID]bool // puzzle hash -> set of bundle ids

	feeOrder *btree.BTreeG[*Item]

	totalCost uint64
	nextSeq   uint64

	capacity uint64
}

func newIndex(capacity uint64) *index {
	return &index{
		items:        make(map[coins.ID]*Item),
		bySpentCoin:  make(map[coins.ID]map[coins.ID]bool),
		byPuzzleHash: make(map[coins.ID]map[coins.ID]bool),
		feeOrder:     btree.NewG(32, feeOrderLess),
		capacity:     capacity,
	}
}

// Get returns the item for bundleID, or nil if absent.
func (idx *index) Get(bundleID coins.ID) *Item {
	return idx.items[bundleID]
}

// Has reports whether bundleID is present.
func (idx *index) Has(bundleID coins.ID) bool {
	_, ok := idx.items[bundleID]
	return ok
}

// Add inserts item into the primary map and every secondary index,
// assigning it the next admission sequence number.
func (idx *index) Add(item *Item) {
	item.seq = idx.nextSeq
	idx.nextSeq++

	idx.items[item.BundleID] = item
	idx.feeOrder.ReplaceOrInsert(item)
	idx.totalCost += item.Cost

	for _, coinID := range item.RemovalIDs() {
		set, ok := idx.bySpentCoin[coinID]
		if !ok {
			set = make(map[coins.ID]bool)
			idx.bySpentCoin[coinID] = set
		}
		set[item.BundleID] = true
	}
	for _, ph := range item.PuzzleHashes() {
		set, ok := idx.byPuzzleHash[ph]
		if !ok {
			set = make(map[coins.ID]bool)
			idx.byPuzzleHash[ph] = set
		}
		set[item.BundleID] = true
	}
}

// Remove deletes bundleID from every index it appears in. It is a no-op if
// bundleID is not present.
func (idx *index) Remove(bundleID coins.ID) *Item {
	item, ok := idx.items[bundleID]
	if !ok {
		return nil
	}

	delete(idx.items, bundleID)
	idx.feeOrder.Delete(item)
	idx.totalCost -= item.Cost

	for _, coinID := range item.RemovalIDs() {
		set := idx.bySpentCoin[coinID]
		delete(set, bundleID)
		if len(set) == 0 {
			delete(idx.bySpentCoin, coinID)
		}
	}
	for _, ph := range item.PuzzleHashes() {
		set := idx.byPuzzleHash[ph]
		delete(set, bundleID)
		if len(set) == 0 {
			delete(idx.byPuzzleHash, ph)
		}
	}

	return item
}

// ItemsSpendingCoin returns every item that spends coinID.
func (idx *index) ItemsSpendingCoin(coinID coins.ID) []*Item {
	set := idx.bySpentCoin[coinID]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Item, 0, len(set))
	for bundleID := range set {
		out = append(out, idx.items[bundleID])
	}
	return out
}

// ItemsSpendingAny returns the union (deduplicated) of every item that
// spends any of coinIDs.
func (idx *index) ItemsSpendingAny(coinIDs []coins.ID) []*Item {
	seen := make(map[coins.ID]bool)
	var out []*Item
	for _, coinID := range coinIDs {
		for bundleID := range idx.bySpentCoin[coinID] {
			if seen[bundleID] {
				continue
			}
			seen[bundleID] = true
			out = append(out, idx.items[bundleID])
		}
	}
	return out
}

// ItemsByPuzzleHash returns every item touching puzzleHash.
func (idx *index) ItemsByPuzzleHash(puzzleHash coins.ID) []*Item {
	set := idx.byPuzzleHash[puzzleHash]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Item, 0, len(set))
	for bundleID := range set {
		out = append(out, idx.items[bundleID])
	}
	return out
}

// Len reports the number of admitted items.
func (idx *index) Len() int {
	return len(idx.items)
}

// TotalCost reports the sum of every admitted item's cost.
func (idx *index) TotalCost() uint64 {
	return idx.totalCost
}

// AtFullCapacity reports whether the pool has no headroom left for a
// candidate of cost c.
func (idx *index) AtFullCapacity(cost uint64) bool {
	return idx.totalCost+cost > idx.capacity
}

// GetMinFeeRate returns the fee-per-cost a candidate of cost c must clear
// to be admitted: zero with headroom to spare, otherwise the density of
// the cheapest items that would need to be evicted to make room. It is
// monotone non-increasing in the pool's available headroom, per spec.md's
// property 4.
func (idx *index) GetMinFeeRate(cost uint64) float64 {
	if !idx.AtFullCapacity(cost) {
		return 0
	}

	needed := idx.totalCost + cost - idx.capacity
	var evicted uint64
	var rate float64
	idx.feeOrder.Descend(func(item *Item) bool {
		if evicted >= needed {
			return false
		}
		evicted += item.Cost
		rate = item.FeePerCost
		return true
	})
	return rate
}

// LowestFeeItem returns the item with the lowest fee_per_cost (among equal
// fee_per_cost, the most recently admitted), for capacity eviction. Returns
// nil if empty.
func (idx *index) LowestFeeItem() *Item {
	var found *Item
	idx.feeOrder.Descend(func(item *Item) bool {
		found = item
		return false
	})
	return found
}

// AscendByFeeDensity walks items highest fee_per_cost first (ties broken
// by oldest admission first), the order block construction needs.
func (idx *index) AscendByFeeDensity(fn func(item *Item) bool) {
	idx.feeOrder.Ascend(fn)
}
