// Package pendingcache holds spend bundles that failed admission with a
// recoverable error (most commonly a height or time lock that hasn't been
// reached yet) so they can be retried on the next peak transition.
package pendingcache

import (
	"container/list"

	"github.com/chia-network/mempool-core/coins"
	"github.com/chia-network/mempool-core/mpoolerrors"
)

// Entry is one bundle waiting for another chance at admission. Conditions
// is the already-computed script/signature validation result, cached here
// so a retry on the next peak transition can skip straight back into the
// admission pipeline without re-running the worker pool.
type Entry struct {
	BundleID   coins.ID
	Bundle     coins.SpendBundle
	Conditions coins.Conditions
	Cost       uint64
	LastError  *mpoolerrors.Error
}

// Cache is a FIFO queue bounded by the cumulative CLVM cost of its entries,
// not by entry count.
type Cache struct {
	maxCost uint64

	totalCost uint64
	order     *list.List
	byID      map[coins.ID]*list.Element
}

// New creates a Cache that evicts its oldest entries once the cumulative
// cost of everything queued exceeds maxCost.
func New(maxCost uint64) *Cache {
	return &Cache{
		maxCost: maxCost,
		order:   list.New(),
		byID:    make(map[coins.ID]*list.Element),
	}
}

// Add inserts or replaces the entry for bundleID, evicting the oldest
// entries (FIFO) until the cache is back under its cost bound.
func (c *Cache) Add(e Entry) {
	if existing, ok := c.byID[e.BundleID]; ok {
		c.totalCost -= existing.Value.(*Entry).Cost
		c.order.Remove(existing)
		delete(c.byID, e.BundleID)
	}

	el := c.order.PushBack(&e)
	c.byID[e.BundleID] = el
	c.totalCost += e.Cost

	for c.totalCost > c.maxCost && c.order.Len() > 0 {
		c.evictOldest()
	}
}

func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	entry := front.Value.(*Entry)
	c.totalCost -= entry.Cost
	c.order.Remove(front)
	delete(c.byID, entry.BundleID)
}

// Remove drops bundleID from the cache, if present.
func (c *Cache) Remove(bundleID coins.ID) {
	el, ok := c.byID[bundleID]
	if !ok {
		return
	}
	c.totalCost -= el.Value.(*Entry).Cost
	c.order.Remove(el)
	delete(c.byID, bundleID)
}

// Drain removes and returns every queued entry, oldest first.
func (c *Cache) Drain() []Entry {
	out := make([]Entry, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, *el.Value.(*Entry))
	}
	c.order.Init()
	c.byID = make(map[coins.ID]*list.Element)
	c.totalCost = 0
	return out
}

// Len returns the number of entries currently queued.
func (c *Cache) Len() int {
	return c.order.Len()
}
