package mempool

import (
	"context"
	"testing"

	"github.com/chia-network/mempool-core/coins"
	"github.com/chia-network/mempool-core/coinstore"
)

func testConfig(store coinstore.Store, policy Policy) Config {
	return Config{
		Policy:    policy,
		CoinStore: store,
	}
}

func putCoin(t *testing.T, store *coinstore.MemStore, coin coins.Coin, confirmedHeight uint32) {
	t.Helper()
	store.Put(coins.Record{Coin: coin, ConfirmedHeight: confirmedHeight})
}

func spendFor(coin coins.Coin, additionAmount uint64, salt byte) (coins.SpendBundle, coins.Conditions, coins.ID) {
	spend := coins.CoinSpend{Coin: coin, PuzzleReveal: []byte{salt}, Solution: []byte{salt}}
	bundle := coins.SpendBundle{Spends: []coins.CoinSpend{spend}}

	conds := coins.Conditions{
		Cost: 1000,
		Spends: []coins.SpendConditions{{
			CoinID: coin.ID(),
			CreateCoin: []coins.CreatedCoin{
				{PuzzleHash: coins.ID{0xB, salt}, Amount: additionAmount},
			},
		}},
	}

	return bundle, conds, bundle.ID()
}

func TestAddSpendBundleThenCreateBundleFromMempool(t *testing.T) {
	store := coinstore.NewMemStore()
	coinA := coins.Coin{ParentID: coins.ID{1}, PuzzleHash: coins.ID{1, 1}, Amount: 1000}
	putCoin(t, store, coinA, 5)

	m := New(testConfig(store, DefaultPolicy()))
	defer m.Close()
	peak := PeakInfo{HeaderHash: coins.ID{0xAA}, Height: 10, Timestamp: 1000}
	m.SetPeak(peak)

	bundle, conds, id := spendFor(coinA, 900, 1)
	result := m.AddSpendBundle(context.Background(), bundle, conds, id)
	if result.Status != StatusSuccess {
		t.Fatalf("AddSpendBundle status = %v, err = %v, want StatusSuccess", result.Status, result.Err)
	}

	got := m.GetSpendBundle(id)
	if got == nil {
		t.Fatalf("GetSpendBundle returned nil after admission")
	}

	builtBundle, additions, removals := m.CreateBundleFromMempool(peak.HeaderHash)
	if builtBundle == nil || len(builtBundle.Spends) != 1 {
		t.Fatalf("CreateBundleFromMempool = %+v, want one spend", builtBundle)
	}
	if len(additions) != 1 || additions[0].Amount != 900 {
		t.Fatalf("additions = %+v, want one coin of amount 900", additions)
	}
	if len(removals) != 1 || removals[0].ID() != coinA.ID() {
		t.Fatalf("removals = %+v, want coinA", removals)
	}
}

func TestCreateBundleFromMempoolRejectsStalePeak(t *testing.T) {
	store := coinstore.NewMemStore()
	m := New(testConfig(store, DefaultPolicy()))
	defer m.Close()
	m.SetPeak(PeakInfo{HeaderHash: coins.ID{0xAA}, Height: 10})

	bundle, additions, removals := m.CreateBundleFromMempool(coins.ID{0xBB})
	if bundle != nil || additions != nil || removals != nil {
		t.Fatalf("expected nil result for a stale peak header hash")
	}
}

func TestCapacityEvictionDropsLowestFeeItem(t *testing.T) {
	store := coinstore.NewMemStore()
	coinA := coins.Coin{ParentID: coins.ID{1}, PuzzleHash: coins.ID{1, 1}, Amount: 1000}
	coinB := coins.Coin{ParentID: coins.ID{2}, PuzzleHash: coins.ID{2, 2}, Amount: 1000}
	putCoin(t, store, coinA, 5)
	putCoin(t, store, coinB, 5)

	policy := DefaultPolicy()
	policy.MaxBlockCost = 1500
	policy.LimitFactor = 1 // a cost-1000 bundle must clear the per-bundle cost limit
	policy.MempoolBlockBuffer = 1
	policy.MinNonzeroFeePerCost = 0

	m := New(testConfig(store, policy))
	defer m.Close()
	m.SetPeak(PeakInfo{HeaderHash: coins.ID{0xAA}, Height: 10})

	// Low fee_per_cost: fee 100 / cost 1000 = 0.1
	bundleA, condsA, idA := spendFor(coinA, 900, 1)
	if res := m.AddSpendBundle(context.Background(), bundleA, condsA, idA); res.Status != StatusSuccess {
		t.Fatalf("admitting coinA spend: status=%v err=%v", res.Status, res.Err)
	}

	// Higher fee_per_cost: fee 500 / cost 1000 = 0.5, pushes the pool over
	// its 1500-cost capacity and should evict the first (lower density) item.
	bundleB, condsB, idB := spendFor(coinB, 500, 2)
	if res := m.AddSpendBundle(context.Background(), bundleB, condsB, idB); res.Status != StatusSuccess {
		t.Fatalf("admitting coinB spend: status=%v err=%v", res.Status, res.Err)
	}

	if m.GetMempoolItem(idA) != nil {
		t.Fatalf("expected the lower fee_per_cost item to be evicted")
	}
	if m.GetMempoolItem(idB) == nil {
		t.Fatalf("expected the higher fee_per_cost item to survive")
	}
}

func TestReplacementAboveMinFeeIncreaseSucceeds(t *testing.T) {
	store := coinstore.NewMemStore()
	coinA := coins.Coin{ParentID: coins.ID{1}, PuzzleHash: coins.ID{1, 1}, Amount: 1000}
	putCoin(t, store, coinA, 5)

	policy := DefaultPolicy()
	policy.MinFeeIncrease = 50

	m := New(testConfig(store, policy))
	defer m.Close()
	m.SetPeak(PeakInfo{HeaderHash: coins.ID{0xAA}, Height: 10})

	// fee 100, cost 1000: fee_per_cost 0.1
	bundle1, conds1, id1 := spendFor(coinA, 900, 1)
	if res := m.AddSpendBundle(context.Background(), bundle1, conds1, id1); res.Status != StatusSuccess {
		t.Fatalf("admitting original spend: status=%v err=%v", res.Status, res.Err)
	}

	// fee 200, cost 1000: fee_per_cost 0.2, and 200 >= 100+50 clears the
	// minimum fee increase.
	bundle2, conds2, id2 := spendFor(coinA, 800, 2)
	res := m.AddSpendBundle(context.Background(), bundle2, conds2, id2)
	if res.Status != StatusSuccess {
		t.Fatalf("replacement status=%v err=%v, want StatusSuccess", res.Status, res.Err)
	}
	if m.GetMempoolItem(id1) != nil {
		t.Fatalf("expected the original item to be displaced by the replacement")
	}
	if m.GetMempoolItem(id2) == nil {
		t.Fatalf("expected the replacement to be admitted")
	}
}

func TestReplacementBelowMinFeeIncreaseIsPending(t *testing.T) {
	store := coinstore.NewMemStore()
	coinA := coins.Coin{ParentID: coins.ID{1}, PuzzleHash: coins.ID{1, 1}, Amount: 1000}
	putCoin(t, store, coinA, 5)

	policy := DefaultPolicy()
	policy.MinFeeIncrease = 50

	m := New(testConfig(store, policy))
	defer m.Close()
	m.SetPeak(PeakInfo{HeaderHash: coins.ID{0xAA}, Height: 10})

	bundle1, conds1, id1 := spendFor(coinA, 900, 1)
	if res := m.AddSpendBundle(context.Background(), bundle1, conds1, id1); res.Status != StatusSuccess {
		t.Fatalf("admitting original spend: status=%v err=%v", res.Status, res.Err)
	}

	// fee 120, cost 1000: fee_per_cost 0.12 > 0.1, but 120 < 100+50 fails
	// the absolute minimum fee increase.
	bundle2, conds2, id2 := spendFor(coinA, 880, 2)
	res := m.AddSpendBundle(context.Background(), bundle2, conds2, id2)
	if res.Status != StatusPending {
		t.Fatalf("replacement status=%v err=%v, want StatusPending", res.Status, res.Err)
	}
	if m.GetMempoolItem(id1) == nil {
		t.Fatalf("expected the original item to remain admitted when the replacement is rejected")
	}
}

func TestRecoverableTimeLockIsPendingThenAdmittedOnRetry(t *testing.T) {
	store := coinstore.NewMemStore()
	coinA := coins.Coin{ParentID: coins.ID{1}, PuzzleHash: coins.ID{1, 1}, Amount: 1000}
	putCoin(t, store, coinA, 5)

	m := New(testConfig(store, DefaultPolicy()))
	defer m.Close()
	m.SetPeak(PeakInfo{HeaderHash: coins.ID{0xAA}, Height: 10})

	bundle, conds, id := spendFor(coinA, 900, 1)
	conds.HeightAbsolute = 15

	res := m.AddSpendBundle(context.Background(), bundle, conds, id)
	if res.Status != StatusPending {
		t.Fatalf("status=%v err=%v, want StatusPending", res.Status, res.Err)
	}
	if m.GetMempoolItem(id) != nil {
		t.Fatalf("a pending bundle should not be in the mempool yet")
	}

	admitted := m.NewPeak(context.Background(), PeakInfo{HeaderHash: coins.ID{0xBB}, Height: 16, Timestamp: 1000}, nil)
	found := false
	for _, a := range admitted {
		if a == id {
			found = true
		}
	}
	if !found {
		t.Fatalf("NewPeak returned %v, want it to include the now-eligible bundle", admitted)
	}
	if m.GetMempoolItem(id) == nil {
		t.Fatalf("expected the retried bundle to be admitted after the height floor is reached")
	}
}

func TestNewPeakRebuildDropsMinedItemAndKeepsUnminedItem(t *testing.T) {
	store := coinstore.NewMemStore()
	coinA := coins.Coin{ParentID: coins.ID{1}, PuzzleHash: coins.ID{1, 1}, Amount: 1000}
	coinB := coins.Coin{ParentID: coins.ID{2}, PuzzleHash: coins.ID{2, 2}, Amount: 1000}
	putCoin(t, store, coinA, 5)
	putCoin(t, store, coinB, 5)

	m := New(testConfig(store, DefaultPolicy()))
	defer m.Close()
	m.SetPeak(PeakInfo{HeaderHash: coins.ID{0xAA}, Height: 10})

	bundleA, condsA, idA := spendFor(coinA, 900, 1)
	if res := m.AddSpendBundle(context.Background(), bundleA, condsA, idA); res.Status != StatusSuccess {
		t.Fatalf("admitting coinA spend: status=%v err=%v", res.Status, res.Err)
	}
	bundleB, condsB, idB := spendFor(coinB, 900, 2)
	if res := m.AddSpendBundle(context.Background(), bundleB, condsB, idB); res.Status != StatusSuccess {
		t.Fatalf("admitting coinB spend: status=%v err=%v", res.Status, res.Err)
	}

	// coinA gets mined into the new block; coinB does not, so it should
	// simply remain in the rebuilt pool as a still-unconfirmed success.
	store.MarkSpent(coinA.ID(), 11)

	// A nil blockRemovals forces the rebuild path regardless of
	// PrevTxBlockHash, exercising the loop body against real saved items.
	m.NewPeak(context.Background(), PeakInfo{HeaderHash: coins.ID{0xCC}, Height: 11, Timestamp: 1000}, nil)

	if m.GetMempoolItem(idA) != nil {
		t.Fatalf("expected the mined bundle to be dropped from the rebuilt pool")
	}
	if m.GetMempoolItem(idB) == nil {
		t.Fatalf("expected the still-unspent bundle to survive the rebuild")
	}
}

func TestFatalTimeLockIsNeverRetried(t *testing.T) {
	store := coinstore.NewMemStore()
	coinA := coins.Coin{ParentID: coins.ID{1}, PuzzleHash: coins.ID{1, 1}, Amount: 1000}
	putCoin(t, store, coinA, 5)

	m := New(testConfig(store, DefaultPolicy()))
	defer m.Close()
	m.SetPeak(PeakInfo{HeaderHash: coins.ID{0xAA}, Height: 10})

	ceiling := uint32(10)
	bundle, conds, id := spendFor(coinA, 900, 1)
	conds.BeforeHeightAbsolute = &ceiling

	res := m.AddSpendBundle(context.Background(), bundle, conds, id)
	if res.Status != StatusFailed {
		t.Fatalf("status=%v err=%v, want StatusFailed", res.Status, res.Err)
	}

	m.NewPeak(context.Background(), PeakInfo{HeaderHash: coins.ID{0xBB}, Height: 100, Timestamp: 1000}, nil)
	if m.GetMempoolItem(id) != nil {
		t.Fatalf("a fatally-rejected bundle must never be retried")
	}
}

func TestSeenShortCircuitsReAdmission(t *testing.T) {
	store := coinstore.NewMemStore()
	coinA := coins.Coin{ParentID: coins.ID{1}, PuzzleHash: coins.ID{1, 1}, Amount: 1000}
	putCoin(t, store, coinA, 5)

	m := New(testConfig(store, DefaultPolicy()))
	defer m.Close()
	m.SetPeak(PeakInfo{HeaderHash: coins.ID{0xAA}, Height: 10})

	bundle, conds, id := spendFor(coinA, 900, 1)
	m.AddSpendBundle(context.Background(), bundle, conds, id)

	if !m.Seen(id) {
		t.Fatalf("expected the admitted bundle id to be marked seen")
	}

	res := m.AddSpendBundle(context.Background(), bundle, conds, id)
	if res.Status != StatusSuccess {
		t.Fatalf("re-admitting an already-admitted bundle should short-circuit to success, got %v", res.Status)
	}
}

func TestStaleSingletonSpendWithAdvancedLineageIsPendingNotFailed(t *testing.T) {
	store := coinstore.NewMemStore()
	puzzleHash := coins.ID{0xF, 0xF}
	coinA := coins.Coin{ParentID: coins.ID{1}, PuzzleHash: puzzleHash, Amount: 1000}
	putCoin(t, store, coinA, 5)
	store.MarkSpent(coinA.ID(), 8)

	// The singleton's lineage has already moved on to a coin other than
	// coinA, so coinA's spend is stale but the chain is still live.
	store.PutUnspentLineageInfo(puzzleHash, coinstore.UnspentLineageInfo{
		CoinID:   coins.ID{0x9, 0x9},
		ParentID: coinA.ID(),
	})

	m := New(testConfig(store, DefaultPolicy()))
	defer m.Close()
	m.SetPeak(PeakInfo{HeaderHash: coins.ID{0xAA}, Height: 10})

	bundle, conds, id := spendFor(coinA, 900, 1)
	res := m.AddSpendBundle(context.Background(), bundle, conds, id)
	if res.Status != StatusPending {
		t.Fatalf("status=%v err=%v, want StatusPending for a stale-but-chained singleton spend", res.Status, res.Err)
	}
}

func TestDoubleSpentCoinWithNoAdvancedLineageIsFailed(t *testing.T) {
	store := coinstore.NewMemStore()
	coinA := coins.Coin{ParentID: coins.ID{1}, PuzzleHash: coins.ID{1, 1}, Amount: 1000}
	putCoin(t, store, coinA, 5)
	store.MarkSpent(coinA.ID(), 8)

	m := New(testConfig(store, DefaultPolicy()))
	defer m.Close()
	m.SetPeak(PeakInfo{HeaderHash: coins.ID{0xAA}, Height: 10})

	bundle, conds, id := spendFor(coinA, 900, 1)
	res := m.AddSpendBundle(context.Background(), bundle, conds, id)
	if res.Status != StatusFailed {
		t.Fatalf("status=%v err=%v, want StatusFailed with no tracked lineage", res.Status, res.Err)
	}
}
