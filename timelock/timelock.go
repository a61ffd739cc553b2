// Package timelock checks a spend bundle's height/seconds conditions
// against the chain state the bundle would be confirmed against.
package timelock

import (
	"github.com/chia-network/mempool-core/coins"
	"github.com/chia-network/mempool-core/mpoolerrors"
)

// Check validates every absolute and per-spend relative time-lock condition
// in conds against the coins it spends, as they would be confirmed at
// prevTransactionBlockHeight/timestamp. It returns nil on success, or the
// first failing condition's error code.
func Check(
	removalRecords map[coins.ID]coins.Record,
	conds coins.Conditions,
	prevTransactionBlockHeight uint32,
	timestamp uint64,
) *mpoolerrors.Error {
	if prevTransactionBlockHeight < conds.HeightAbsolute {
		return mpoolerrors.New(mpoolerrors.AssertHeightAbsoluteFailed)
	}
	if timestamp < conds.SecondsAbsolute {
		return mpoolerrors.New(mpoolerrors.AssertSecondsAbsoluteFailed)
	}
	if conds.BeforeHeightAbsolute != nil && prevTransactionBlockHeight >= *conds.BeforeHeightAbsolute {
		return mpoolerrors.New(mpoolerrors.AssertBeforeHeightAbsoluteFailed)
	}
	if conds.BeforeSecondsAbsolute != nil && timestamp >= *conds.BeforeSecondsAbsolute {
		return mpoolerrors.New(mpoolerrors.AssertBeforeSecondsAbsoluteFailed)
	}

	for _, spend := range conds.Spends {
		unspent, ok := removalRecords[spend.CoinID]
		if !ok {
			// The admission pipeline resolves every removal before calling
			// Check; a missing record here is a caller bug, not a
			// recoverable condition failure.
			continue
		}

		if spend.BirthHeight != nil && *spend.BirthHeight != unspent.ConfirmedHeight {
			return mpoolerrors.New(mpoolerrors.AssertMyBirthHeightFailed)
		}
		if spend.BirthSeconds != nil && *spend.BirthSeconds != unspent.Timestamp {
			return mpoolerrors.New(mpoolerrors.AssertMyBirthSecondsFailed)
		}
		if spend.HeightRelative != nil && prevTransactionBlockHeight < unspent.ConfirmedHeight+*spend.HeightRelative {
			return mpoolerrors.New(mpoolerrors.AssertHeightRelativeFailed)
		}
		if spend.SecondsRelative != nil && timestamp < unspent.Timestamp+*spend.SecondsRelative {
			return mpoolerrors.New(mpoolerrors.AssertSecondsRelativeFailed)
		}
		if spend.BeforeHeightRelative != nil && prevTransactionBlockHeight >= unspent.ConfirmedHeight+*spend.BeforeHeightRelative {
			return mpoolerrors.New(mpoolerrors.AssertBeforeHeightRelativeFailed)
		}
		if spend.BeforeSecondsRelative != nil && timestamp >= unspent.Timestamp+*spend.BeforeSecondsRelative {
			return mpoolerrors.New(mpoolerrors.AssertBeforeSecondsRelativeFailed)
		}
	}

	return nil
}
