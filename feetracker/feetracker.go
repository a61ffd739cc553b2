// Package feetracker implements a three-horizon (short/medium/long)
// Bitcoin-Core-style fee-rate estimator: each horizon buckets observed
// fee-per-cost values geometrically and tracks, with exponential decay, how
// quickly transactions in each bucket actually confirm.
package feetracker

import (
	"github.com/chia-network/mempool-core/logger"
	"github.com/chia-network/mempool-core/logs"
)

var log, _ = logger.Get(logger.SubsystemTags.FEES)

// Estimate is the outcome of a single horizon's fee-rate estimation: either
// a fee-per-cost estimate, or no estimate if there isn't enough history.
type Estimate struct {
	FeePerCost float64 // -1 if Found is false
	Found      bool
}

// Estimates bundles the three horizons' independent estimates.
type Estimates struct {
	Short, Medium, Long Estimate
}

// Tracker is a three-horizon fee-rate estimator.
type Tracker struct {
	buckets []float64

	short  *feeStat
	medium *feeStat
	long   *feeStat

	latestSeenHeight   uint32
	firstRecordedHeight uint32

	log logs.Logger
}

// New constructs a Tracker with freshly initialized, empty bucket history.
func New() *Tracker {
	buckets := buildBuckets()
	return &Tracker{
		buckets: buckets,
		short:   newFeeStat(buckets, shortBlockPeriods, shortScale, shortDecay),
		medium:  newFeeStat(buckets, medBlockPeriods, medScale, medDecay),
		long:    newFeeStat(buckets, longBlockPeriods, longScale, longDecay),
		log:     log,
	}
}

func buildBuckets() []float64 {
	var buckets []float64
	feeRate := minFeeRate
	for feeRate < maxFeeRate {
		buckets = append(buckets, feeRate)
		if feeRate == 0 {
			feeRate = initialStep
		} else {
			feeRate *= stepSize
		}
	}
	buckets = append(buckets, infiniteFeeRate)
	return buckets
}

// bucketIndex returns the bucket a fee-per-cost value falls into.
func (t *Tracker) bucketIndex(feeRate float64) int {
	for i, edge := range t.buckets {
		if edge >= feeRate {
			return i
		}
	}
	return len(t.buckets) - 1
}

// AddedToMempool records that an admitted item, with the given fee rate, is
// now outstanding as of blockHeight. Returns the bucket it was assigned, to
// be passed back to RemovedFromMempool if the item later leaves the pool
// without confirming.
func (t *Tracker) AddedToMempool(blockHeight uint32, feePerCost float64) int {
	t.short.newMempoolTx(blockHeight, feePerCost)
	t.medium.newMempoolTx(blockHeight, feePerCost)
	return t.long.newMempoolTx(blockHeight, feePerCost)
}

// RemovedFromMempool un-counts an item that left the mempool without
// confirming through this tracker (replaced or evicted).
func (t *Tracker) RemovedFromMempool(heightAdded int, bucketIndex int) {
	h := uint32(heightAdded)
	t.short.removeTx(t.latestSeenHeight, h, bucketIndex)
	t.medium.removeTx(t.latestSeenHeight, h, bucketIndex)
	t.long.removeTx(t.latestSeenHeight, h, bucketIndex)
}

// ConfirmedItem describes a mempool item that was just confirmed in a block,
// as far as the fee tracker needs to know.
type ConfirmedItem struct {
	HeightAdded uint32
	FeePerCost  float64
}

// NewBlock advances the tracker to blockHeight, decaying every horizon's
// moving averages and recording the confirmations in confirmed. Calls for a
// height at or before the last one seen (a reorg) are ignored; reconstruct
// the tracker's caller-side state and replay instead.
func (t *Tracker) NewBlock(blockHeight uint32, confirmed []ConfirmedItem) {
	if blockHeight <= t.latestSeenHeight && t.latestSeenHeight != 0 {
		return
	}
	t.latestSeenHeight = blockHeight

	t.short.clearCurrent(blockHeight)
	t.medium.clearCurrent(blockHeight)
	t.long.clearCurrent(blockHeight)

	t.short.updateMovingAverages()
	t.medium.updateMovingAverages()
	t.long.updateMovingAverages()

	for _, item := range confirmed {
		blocksToConfirm := int(blockHeight) - int(item.HeightAdded)
		if blocksToConfirm <= 0 {
			continue
		}
		t.short.txConfirmed(blocksToConfirm, item.FeePerCost)
		t.medium.txConfirmed(blocksToConfirm, item.FeePerCost)
		t.long.txConfirmed(blocksToConfirm, item.FeePerCost)

		// A confirmed item is no longer outstanding: un-count it from the
		// unconfirmed slot it was recorded in, without recording a failure.
		bucket := t.bucketIndex(item.FeePerCost)
		for _, fs := range []*feeStat{t.short, t.medium, t.long} {
			if blocksToConfirm >= len(fs.unconfirmedTxs) {
				if fs.oldUnconfTxs[bucket] > 0 {
					fs.oldUnconfTxs[bucket]--
				}
			} else if slot := int(item.HeightAdded) % len(fs.unconfirmedTxs); fs.unconfirmedTxs[slot][bucket] > 0 {
				fs.unconfirmedTxs[slot][bucket]--
			}
		}
	}

	if t.firstRecordedHeight == 0 && len(confirmed) > 0 {
		t.log.Infof("fee tracker recorded its first confirmations at height %d", blockHeight)
		t.firstRecordedHeight = blockHeight
	}
}

// EstimateFee returns each horizon's current fee-per-cost estimate.
func (t *Tracker) EstimateFee() Estimates {
	toEstimate := func(r estimateResult) Estimate {
		if !r.found || r.median < 0 {
			return Estimate{FeePerCost: -1, Found: false}
		}
		return Estimate{FeePerCost: r.median, Found: true}
	}

	return Estimates{
		Short: toEstimate(t.short.estimateMedianVal(
			shortBlockPeriods*shortScale-shortScale, sufficientFeeTxs, successPct, t.latestSeenHeight)),
		Medium: toEstimate(t.medium.estimateMedianVal(
			medBlockPeriods*medScale-medScale, sufficientFeeTxs, successPct, t.latestSeenHeight)),
		Long: toEstimate(t.long.estimateMedianVal(
			longBlockPeriods*longScale-longScale, sufficientFeeTxs, successPct, t.latestSeenHeight)),
	}
}
