// Package coinstore defines the read-only coin lookup interface the
// mempool core consumes, plus a simple in-memory implementation useful for
// tests and embedding processes that keep their UTXO set in memory.
package coinstore

import (
	"context"
	"sync"

	"github.com/chia-network/mempool-core/coins"
)

// UnspentLineageInfo identifies the current unspent coin descending from a
// singleton puzzle hash, for fast-forward rebasing of a pending spend onto
// the latest version of a singleton.
type UnspentLineageInfo struct {
	CoinID         coins.ID
	ParentID       coins.ID
	ParentParentID coins.ID
}

// Store is the read-only coin lookup interface the mempool core consumes.
// No mutation is ever performed through this interface.
type Store interface {
	// GetCoinRecord returns the record for coinID, or nil if it is unknown.
	GetCoinRecord(ctx context.Context, coinID coins.ID) (*coins.Record, error)

	// GetUnspentLineageInfoForPuzzleHash returns the current unspent coin
	// in a singleton's lineage, or nil if none is tracked. Only consulted
	// for fast-forward rebasing.
	GetUnspentLineageInfoForPuzzleHash(ctx context.Context, puzzleHash coins.ID) (*UnspentLineageInfo, error)
}

// MemStore is a Store backed by an in-memory map, safe for concurrent use.
type MemStore struct {
	mu       sync.RWMutex
	records  map[coins.ID]coins.Record
	lineages map[coins.ID]UnspentLineageInfo
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		records:  make(map[coins.ID]coins.Record),
		lineages: make(map[coins.ID]UnspentLineageInfo),
	}
}

// PutUnspentLineageInfo records the current unspent coin in a singleton's
// lineage under its puzzle hash.
func (s *MemStore) PutUnspentLineageInfo(puzzleHash coins.ID, info UnspentLineageInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lineages[puzzleHash] = info
}

// Put inserts or overwrites a coin's record.
func (s *MemStore) Put(r coins.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.Coin.ID()] = r
}

// MarkSpent sets coinID's spent height, if it is known.
func (s *MemStore) MarkSpent(coinID coins.ID, spentHeight uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[coinID]; ok {
		r.SpentHeight = spentHeight
		s.records[coinID] = r
	}
}

// GetCoinRecord implements Store.
func (s *MemStore) GetCoinRecord(_ context.Context, coinID coins.ID) (*coins.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[coinID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// GetUnspentLineageInfoForPuzzleHash implements Store.
func (s *MemStore) GetUnspentLineageInfoForPuzzleHash(_ context.Context, puzzleHash coins.ID) (*UnspentLineageInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.lineages[puzzleHash]
	if !ok {
		return nil, nil
	}
	return &info, nil
}
