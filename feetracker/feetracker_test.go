package feetracker

import "testing"

func TestBucketIndexMonotonic(t *testing.T) {
	tr := New()
	prev := -1
	for _, fr := range []float64{0, 50, 100, 1000, 39_999_999, 40_000_000, 999_999_999} {
		idx := tr.bucketIndex(fr)
		if idx < prev {
			t.Fatalf("bucketIndex(%v) = %d, want >= previous %d", fr, idx, prev)
		}
		prev = idx
	}
}

func TestEstimateFeeWithNoHistoryReportsNoEstimate(t *testing.T) {
	tr := New()
	est := tr.EstimateFee()
	for name, e := range map[string]Estimate{"short": est.Short, "medium": est.Medium, "long": est.Long} {
		if e.Found {
			t.Fatalf("%s horizon reported an estimate with no history: %+v", name, e)
		}
	}
}

func TestRepeatedConfirmationsAtHighFeeProduceAnEstimate(t *testing.T) {
	tr := New()
	height := uint32(1)
	for i := 0; i < 200; i++ {
		bucket := tr.AddedToMempool(height, 5000)
		_ = bucket
		tr.NewBlock(height+1, []ConfirmedItem{{HeightAdded: height, FeePerCost: 5000}})
		height++
	}

	est := tr.EstimateFee()
	if !est.Short.Found {
		t.Fatalf("expected a short-horizon estimate after many fast confirmations at a steady fee rate")
	}
	if est.Short.FeePerCost <= 0 {
		t.Fatalf("expected a positive fee estimate, got %v", est.Short.FeePerCost)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	tr := New()
	height := uint32(1)
	for i := 0; i < 20; i++ {
		tr.AddedToMempool(height, 2000)
		tr.NewBlock(height+1, []ConfirmedItem{{HeightAdded: height, FeePerCost: 2000}})
		height++
	}

	data, err := tr.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	restored, err := RestoreSnapshot(data)
	if err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}

	before := tr.EstimateFee()
	after := restored.EstimateFee()
	if before.Short.Found != after.Short.Found || before.Short.FeePerCost != after.Short.FeePerCost {
		t.Fatalf("restored tracker estimate differs: before=%+v after=%+v", before.Short, after.Short)
	}
}
