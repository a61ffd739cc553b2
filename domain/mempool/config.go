package mempool

import (
	"github.com/chia-network/mempool-core/coinstore"
	"github.com/chia-network/mempool-core/validate"
)

// Policy houses the consensus-adjacent constants that govern admission,
// capacity, and replacement, mirroring the teacher codebase's split of a
// mempool's tunables into a dedicated Policy struct embedded in Config.
type Policy struct {
	// MaxBlockCost is the maximum CLVM cost a block's transactions may sum
	// to, the basis for both the admission cost ceiling and the pool's
	// effective capacity.
	MaxBlockCost uint64

	// LimitFactor bounds a single bundle's (and a constructed block's)
	// share of MaxBlockCost.
	LimitFactor float64

	// MempoolBlockBuffer is the multiple of MaxBlockCost the pool is
	// willing to hold in total (see Capacity).
	MempoolBlockBuffer uint64

	// MaxCoinAmount bounds any single coin's amount, and the total fee a
	// constructed block may sum to.
	MaxCoinAmount uint64

	// MinNonzeroFeePerCost is the floor fee-per-cost required to admit a
	// bundle once the pool is at capacity.
	MinNonzeroFeePerCost float64

	// MinFeeIncrease is the absolute minimum, in addition to a strictly
	// higher fee-per-cost, a replacement's fee must exceed the sum of the
	// fees of everything it conflicts with.
	MinFeeIncrease uint64

	// SeenCacheSize bounds the recently-seen bundle id de-duplication set.
	SeenCacheSize int

	// SignatureCacheCapacity records the intended size of the pre-validator's
	// verification cache. Nothing in this module reads it: the cache passed
	// in Config.SignatureCache is sized by validate.NewSignatureCache.
	SignatureCacheCapacity int

	// WorkerPoolSize is the number of pre-validation worker goroutines.
	WorkerPoolSize int

	// PendingCacheMaxCost bounds the cumulative CLVM cost of bundles held
	// in the pending cache awaiting a future-satisfied retry.
	PendingCacheMaxCost uint64
}

// DefaultPolicy returns the constants named in the source this package
// reimplements: a 0.5 limit factor, a single block's buffer, and the
// protocol-wide minimum fee increase of 10,000,000 mojo.
func DefaultPolicy() Policy {
	return Policy{
		MaxBlockCost:           11_000_000_000,
		LimitFactor:            0.5,
		MempoolBlockBuffer:     1,
		MaxCoinAmount:          1<<64 - 1,
		MinNonzeroFeePerCost:   0.00001,
		MinFeeIncrease:         10_000_000,
		SeenCacheSize:          10_000,
		SignatureCacheCapacity: 10_000,
		WorkerPoolSize:         2,
		PendingCacheMaxCost:    1_000_000_000,
	}
}

// CostLimit returns the per-bundle and per-constructed-block cost ceiling,
// floor(MaxBlockCost * LimitFactor).
func (p Policy) CostLimit() uint64 {
	return uint64(float64(p.MaxBlockCost) * p.LimitFactor)
}

// Capacity returns the pool's effective capacity, MaxBlockCost *
// MempoolBlockBuffer.
func (p Policy) Capacity() uint64 {
	return p.MaxBlockCost * p.MempoolBlockBuffer
}

// Config is a descriptor containing the memory pool configuration: policy
// constants plus the external collaborators the manager consumes.
type Config struct {
	Policy Policy

	// CoinStore resolves removals to their on-chain record.
	CoinStore coinstore.Store

	// ScriptRunner and SignatureCache back the pre-validator.
	ScriptRunner   validate.ScriptRunner
	SignatureCache *validate.SignatureCache

	// AdditionalData is mixed into AGG_SIG_ME-flavored message pairs.
	AdditionalData []byte
}
