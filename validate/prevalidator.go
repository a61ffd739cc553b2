package validate

import (
	"context"

	"github.com/chia-network/mempool-core/coins"
	"github.com/chia-network/mempool-core/logger"
	"github.com/chia-network/mempool-core/mpoolerrors"
	"github.com/chia-network/mempool-core/util/locks"
	"github.com/chia-network/mempool-core/util/panics"
)

var log, _ = logger.Get(logger.SubsystemTags.VALD)

// defaultWorkers mirrors the two-worker process pool the pipeline this
// package reimplements uses for CLVM execution and signature verification.
const defaultWorkers = 2

// Job is a single bundle awaiting pre-validation.
type Job struct {
	Bundle         coins.SpendBundle
	BundleID       coins.ID
	CostLimit      uint64
	AdditionalData []byte
}

// Result is a completed pre-validation, with either Conditions or Err set.
type Result struct {
	BundleID   coins.ID
	Conditions coins.Conditions
	Err        *mpoolerrors.Error
}

// PreValidator runs ScriptRunner and AggregateVerify on a fixed-size
// worker pool so the caller's admission loop is never blocked on CPU-bound
// CLVM execution or pairing computation.
type PreValidator struct {
	runner ScriptRunner
	cache  *SignatureCache

	jobs  chan preValidatorJob
	wg    *locks.WaitGroup
	spawn func(func())
}

type preValidatorJob struct {
	job    Job
	result chan<- Result
}

// NewPreValidator starts a PreValidator with the given number of workers
// (defaultWorkers if n <= 0).
func NewPreValidator(runner ScriptRunner, cache *SignatureCache, n int) *PreValidator {
	if n <= 0 {
		n = defaultWorkers
	}

	pv := &PreValidator{
		runner: runner,
		cache:  cache,
		jobs:   make(chan preValidatorJob),
		wg:     locks.NewWaitGroup(),
		spawn:  panics.GoroutineWrapperFunc(log),
	}

	for i := 0; i < n; i++ {
		pv.spawn(pv.worker)
	}

	return pv
}

func (pv *PreValidator) worker() {
	for pj := range pv.jobs {
		pj.result <- pv.validate(pj.job)
	}
}

func (pv *PreValidator) validate(job Job) Result {
	defer pv.wg.Done()

	var conds coins.Conditions
	var totalCost uint64

	for _, spend := range job.Bundle.Spends {
		cost, spendConds, err := pv.runner.Run(spend, job.CostLimit-totalCost)
		if err != nil {
			return Result{BundleID: job.BundleID, Err: mpoolerrors.Newf(mpoolerrors.Unknown, "script runner: %v", err)}
		}
		totalCost += cost
		if totalCost > job.CostLimit {
			return Result{BundleID: job.BundleID, Err: mpoolerrors.New(mpoolerrors.BlockCostExceedsMax)}
		}
		spendConds.Cost = cost
		conds.Spends = append(conds.Spends, spendConds)
	}
	conds.Cost = totalCost

	var pairs []coins.AggSigDemand
	for _, sp := range conds.Spends {
		for _, demand := range sp.AggSigs {
			msg := demand.Message
			if demand.Kind == coins.AggSigMe {
				msg = append(append([]byte{}, msg...), job.AdditionalData...)
			}
			pairs = append(pairs, coins.AggSigDemand{PublicKey: demand.PublicKey, Message: msg, Kind: demand.Kind})
		}
	}

	if !AggregateVerify(pairs, job.Bundle.AggregatedSignature, pv.cache) {
		return Result{BundleID: job.BundleID, Err: mpoolerrors.New(mpoolerrors.BadAggregateSignature)}
	}

	return Result{BundleID: job.BundleID, Conditions: conds}
}

// Submit enqueues job for pre-validation and returns its result once a
// worker has processed it, or ctx's error if ctx is canceled first.
func (pv *PreValidator) Submit(ctx context.Context, job Job) (Result, error) {
	pv.wg.Add()
	resultCh := make(chan Result, 1)

	select {
	case pv.jobs <- preValidatorJob{job: job, result: resultCh}:
	case <-ctx.Done():
		pv.wg.Done()
		return Result{}, ctx.Err()
	}

	select {
	case res := <-resultCh:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Close stops accepting new work and waits for in-flight jobs to finish.
func (pv *PreValidator) Close() {
	close(pv.jobs)
	pv.wg.Wait()
}
