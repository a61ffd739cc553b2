package feetracker

// Bucket layout and horizon tuning, grounded in the values the Chia fee
// tracker this package reimplements was built with.
const (
	minFeeRate      = 0.0
	initialStep     = 100.0
	maxFeeRate      = 40_000_000.0
	infiniteFeeRate = 1_000_000_000.0
	stepSize        = 1.05

	shortBlockPeriods = 10
	shortScale        = 1
	shortDecay        = 0.962

	medBlockPeriods = 30
	medScale        = 2
	medDecay        = 0.9952

	longBlockPeriods = 120
	longScale        = 5
	longDecay        = 0.99931

	halfSuccessPct     = 0.6
	successPct         = 0.85
	doubleSuccessPct   = 0.95
	sufficientFeeTxs   = 0.1
)
