package mempool

import (
	"testing"

	"github.com/chia-network/mempool-core/coins"
)

func newTestItem(id byte, cost uint64, feePerCost float64) *Item {
	return &Item{
		BundleID:   coins.ID{id},
		Cost:       cost,
		FeePerCost: feePerCost,
		Removals:   []coins.Coin{{ParentID: coins.ID{id}, Amount: 1}},
	}
}

func TestIndexAddGetRemove(t *testing.T) {
	idx := newIndex(1000)
	item := newTestItem(1, 100, 5.0)
	idx.Add(item)

	if !idx.Has(item.BundleID) {
		t.Fatalf("expected item to be present after Add")
	}
	if idx.Get(item.BundleID) != item {
		t.Fatalf("Get returned a different item")
	}
	if idx.TotalCost() != 100 {
		t.Fatalf("TotalCost() = %d, want 100", idx.TotalCost())
	}

	idx.Remove(item.BundleID)
	if idx.Has(item.BundleID) {
		t.Fatalf("expected item to be gone after Remove")
	}
	if idx.TotalCost() != 0 {
		t.Fatalf("TotalCost() after Remove = %d, want 0", idx.TotalCost())
	}
}

func TestAscendByFeeDensityWalksHighestFirst(t *testing.T) {
	idx := newIndex(1000)
	idx.Add(newTestItem(1, 10, 1.0))
	idx.Add(newTestItem(2, 10, 5.0))
	idx.Add(newTestItem(3, 10, 3.0))

	var order []float64
	idx.AscendByFeeDensity(func(item *Item) bool {
		order = append(order, item.FeePerCost)
		return true
	})

	want := []float64{5.0, 3.0, 1.0}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestLowestFeeItem(t *testing.T) {
	idx := newIndex(1000)
	idx.Add(newTestItem(1, 10, 1.0))
	idx.Add(newTestItem(2, 10, 5.0))
	idx.Add(newTestItem(3, 10, 3.0))

	lowest := idx.LowestFeeItem()
	if lowest == nil || lowest.FeePerCost != 1.0 {
		t.Fatalf("LowestFeeItem() = %+v, want fee_per_cost 1.0", lowest)
	}
}

func TestAtFullCapacityAndGetMinFeeRate(t *testing.T) {
	idx := newIndex(100)
	idx.Add(newTestItem(1, 60, 1.0))
	idx.Add(newTestItem(2, 30, 2.0))

	if idx.AtFullCapacity(5) {
		t.Fatalf("pool should have headroom for a cost-5 candidate")
	}
	if !idx.AtFullCapacity(20) {
		t.Fatalf("pool should be at capacity for a cost-20 candidate")
	}

	// Admitting a cost-20 candidate needs 10 cost of headroom, which the
	// single cheapest item (fee_per_cost 1.0, cost 60) more than covers.
	rate := idx.GetMinFeeRate(20)
	if rate != 1.0 {
		t.Fatalf("GetMinFeeRate(20) = %v, want 1.0", rate)
	}
}

func TestItemsSpendingAnyDeduplicates(t *testing.T) {
	idx := newIndex(1000)
	coinA := coins.Coin{ParentID: coins.ID{0xA}}
	item := &Item{BundleID: coins.ID{1}, Removals: []coins.Coin{coinA}}
	idx.Add(item)

	got := idx.ItemsSpendingAny([]coins.ID{coinA.ID(), coinA.ID()})
	if len(got) != 1 || got[0].BundleID != item.BundleID {
		t.Fatalf("ItemsSpendingAny = %+v, want exactly one match", got)
	}
}
