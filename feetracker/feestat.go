package feetracker

import "sort"

// feeStat tracks, for a single confirmation-time horizon, exponentially
// decayed moving averages of how many transactions land in each fee-rate
// bucket and how quickly they confirm. It is an implementation of the
// Bitcoin Core fee estimation algorithm.
type feeStat struct {
	buckets []float64 // ascending fee-per-cost bucket upper edges, shared across horizons

	decay float64
	scale int

	// txCtAvg[bucket] and feeRateAvg[bucket] are decayed once per block via
	// updateMovingAverages; a bucket's estimated median fee rate is
	// feeRateAvg[b] / txCtAvg[b].
	txCtAvg    []float64
	feeRateAvg []float64

	// confirmedAverage[period][bucket] / failedAverage[period][bucket] count,
	// per confirmation-period bucket, how many transactions confirmed (or
	// were evicted) within that many periods.
	confirmedAverage [][]float64
	failedAverage    [][]float64

	// unconfirmedTxs[blockHeight % maxConfirms][bucket] tracks currently
	// outstanding transactions by how long ago they entered the mempool;
	// oldUnconfTxs[bucket] catches anything older than maxConfirms blocks.
	unconfirmedTxs [][]int
	oldUnconfTxs   []int
	maxConfirms    int
}

func newFeeStat(buckets []float64, maxPeriods, scale int, decay float64) *feeStat {
	fs := &feeStat{
		buckets:     buckets,
		decay:       decay,
		scale:       scale,
		maxConfirms: scale * maxPeriods,
	}

	fs.confirmedAverage = make([][]float64, maxPeriods)
	fs.failedAverage = make([][]float64, maxPeriods)
	for i := range fs.confirmedAverage {
		fs.confirmedAverage[i] = make([]float64, len(buckets))
		fs.failedAverage[i] = make([]float64, len(buckets))
	}

	fs.txCtAvg = make([]float64, len(buckets))
	fs.feeRateAvg = make([]float64, len(buckets))

	fs.unconfirmedTxs = make([][]int, fs.maxConfirms)
	for i := range fs.unconfirmedTxs {
		fs.unconfirmedTxs[i] = make([]int, len(buckets))
	}
	fs.oldUnconfTxs = make([]int, len(buckets))

	return fs
}

// bucketIndex returns the index of the lowest bucket edge >= feeRate.
func (fs *feeStat) bucketIndex(feeRate float64) int {
	return sort.Search(len(fs.buckets), func(i int) bool { return fs.buckets[i] >= feeRate })
}

// txConfirmed records that a transaction at the given fee rate confirmed
// after blocksToConfirm blocks.
func (fs *feeStat) txConfirmed(blocksToConfirm int, feeRate float64) {
	if blocksToConfirm < 1 {
		return
	}

	periodsToConfirm := (blocksToConfirm + fs.scale - 1) / fs.scale
	bucketIndex := fs.bucketIndex(feeRate)

	for i := periodsToConfirm; i <= len(fs.confirmedAverage); i++ {
		fs.confirmedAverage[i-1][bucketIndex]++
	}

	fs.txCtAvg[bucketIndex]++
	fs.feeRateAvg[bucketIndex] += feeRate
}

// updateMovingAverages decays every tracked average by one block's worth of
// decay. Called once per processed block, before that block's confirmations
// are recorded.
func (fs *feeStat) updateMovingAverages() {
	for j := range fs.buckets {
		for i := range fs.confirmedAverage {
			fs.confirmedAverage[i][j] *= fs.decay
			fs.failedAverage[i][j] *= fs.decay
		}
		fs.txCtAvg[j] *= fs.decay
		fs.feeRateAvg[j] *= fs.decay
	}
}

// clearCurrent flushes the ring-buffer slot about to be reused for
// blockHeight into the old-unconfirmed overflow bucket.
func (fs *feeStat) clearCurrent(blockHeight uint32) {
	slot := int(blockHeight) % len(fs.unconfirmedTxs)
	for i := range fs.buckets {
		fs.oldUnconfTxs[i] += fs.unconfirmedTxs[slot][i]
		fs.unconfirmedTxs[slot][i] = 0
	}
}

// newMempoolTx records a transaction entering the mempool at blockHeight
// with the given fee rate, returning the bucket it was placed in.
func (fs *feeStat) newMempoolTx(blockHeight uint32, feeRate float64) int {
	bucketIndex := fs.bucketIndex(feeRate)
	slot := int(blockHeight) % len(fs.unconfirmedTxs)
	fs.unconfirmedTxs[slot][bucketIndex]++
	return bucketIndex
}

// removeTx un-counts a transaction that is leaving the mempool (confirmed
// elsewhere or evicted) without confirming through this tracker, recording
// a failure if it has been outstanding for at least one full scale period.
func (fs *feeStat) removeTx(latestSeenHeight, heightAdded uint32, bucketIndex int) {
	blockAgo := int(latestSeenHeight) - int(heightAdded)
	if latestSeenHeight == 0 {
		blockAgo = 0
	}
	if blockAgo < 0 {
		return
	}

	if blockAgo >= len(fs.unconfirmedTxs) {
		if fs.oldUnconfTxs[bucketIndex] > 0 {
			fs.oldUnconfTxs[bucketIndex]--
		}
	} else {
		slot := int(heightAdded) % len(fs.unconfirmedTxs)
		if fs.unconfirmedTxs[slot][bucketIndex] > 0 {
			fs.unconfirmedTxs[slot][bucketIndex]--
		}
	}

	if blockAgo >= fs.scale {
		periodsAgo := blockAgo / fs.scale
		for i := 0; i < len(fs.failedAverage) && i < periodsAgo; i++ {
			fs.failedAverage[i][bucketIndex]++
		}
	}
}

// estimateResult is the outcome of walking a feeStat's buckets looking for
// the lowest fee rate that clears a confidence threshold.
type estimateResult struct {
	found  bool
	median float64 // -1 if no estimate
}

// estimateMedianVal finds the lowest-fee-rate bucket range whose trailing
// success ratio (confirmed within confTarget blocks, versus confirmed+
// failed+still-outstanding) clears successBreakPoint, and returns the
// median observed fee rate within that range.
func (fs *feeStat) estimateMedianVal(confTarget int, sufficientTxVal, successBreakPoint float64, blockHeight uint32) estimateResult {
	nConf := 0.0
	totalNum := 0.0
	extraNum := 0.0
	failNum := 0.0
	periodTarget := (confTarget + fs.scale - 1) / fs.scale
	maxBucketIndex := len(fs.buckets) - 1

	curNearBucket := maxBucketIndex
	bestNearBucket := maxBucketIndex
	curFarBucket := maxBucketIndex
	bestFarBucket := maxBucketIndex

	foundAnswer := false
	bins := len(fs.unconfirmedTxs)
	newBucketRange := true
	passing := true

	for bucket := maxBucketIndex; bucket >= 0; bucket-- {
		if newBucketRange {
			curNearBucket = bucket
			newBucketRange = false
		}
		curFarBucket = bucket

		nConf += fs.confirmedAverage[periodTarget-1][bucket]
		totalNum += fs.txCtAvg[bucket]
		failNum += fs.failedAverage[periodTarget-1][bucket]
		for confCt := confTarget; confCt < fs.maxConfirms; confCt++ {
			idx := ((int(blockHeight)-confCt)%bins + bins) % bins
			extraNum += float64(fs.unconfirmedTxs[idx][bucket])
		}
		extraNum += float64(fs.oldUnconfTxs[bucket])

		if totalNum >= sufficientTxVal/(1-fs.decay) {
			currPct := nConf / (totalNum + failNum + extraNum)

			if currPct < successBreakPoint {
				passing = false
				continue
			}

			foundAnswer = true
			passing = true
			nConf = 0
			totalNum = 0
			failNum = 0
			extraNum = 0
			bestNearBucket = curNearBucket
			bestFarBucket = curFarBucket
			newBucketRange = true
		}
	}
	_ = passing

	median := -1.0
	minBucket := bestNearBucket
	maxBucket := bestFarBucket
	if minBucket > maxBucket {
		minBucket, maxBucket = maxBucket, minBucket
	}

	txSum := 0.0
	for i := minBucket; i <= maxBucket; i++ {
		txSum += fs.txCtAvg[i]
	}

	if foundAnswer && txSum != 0 {
		txSum /= 2
		for i := minBucket; i < maxBucket; i++ {
			if fs.txCtAvg[i] < txSum {
				txSum -= fs.txCtAvg[i]
			} else {
				median = fs.feeRateAvg[i] / fs.txCtAvg[i]
				break
			}
		}
	}

	return estimateResult{found: foundAnswer, median: median}
}
