package pendingcache

import (
	"testing"

	"github.com/chia-network/mempool-core/coins"
	"github.com/chia-network/mempool-core/mpoolerrors"
)

func TestAddAndDrain(t *testing.T) {
	c := New(1000)
	id1, id2 := coins.ID{1}, coins.ID{2}
	c.Add(Entry{BundleID: id1, Cost: 100, LastError: mpoolerrors.New(mpoolerrors.AssertHeightRelativeFailed)})
	c.Add(Entry{BundleID: id2, Cost: 100, LastError: mpoolerrors.New(mpoolerrors.AssertHeightAbsoluteFailed)})

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	drained := c.Drain()
	if len(drained) != 2 {
		t.Fatalf("Drain() returned %d entries, want 2", len(drained))
	}
	if drained[0].BundleID != id1 || drained[1].BundleID != id2 {
		t.Fatalf("Drain() did not preserve FIFO order: %+v", drained)
	}
	if c.Len() != 0 {
		t.Fatalf("Len() after Drain() = %d, want 0", c.Len())
	}
}

func TestCostBoundEvictsOldest(t *testing.T) {
	c := New(150)
	id1, id2, id3 := coins.ID{1}, coins.ID{2}, coins.ID{3}
	c.Add(Entry{BundleID: id1, Cost: 100})
	c.Add(Entry{BundleID: id2, Cost: 100})
	c.Add(Entry{BundleID: id3, Cost: 100})

	drained := c.Drain()
	if len(drained) != 1 || drained[0].BundleID != id3 {
		t.Fatalf("expected only the newest entry to survive eviction, got %+v", drained)
	}
}

func TestRemove(t *testing.T) {
	c := New(1000)
	id := coins.ID{1}
	c.Add(Entry{BundleID: id, Cost: 10})
	c.Remove(id)
	if c.Len() != 0 {
		t.Fatalf("Len() = %d after Remove, want 0", c.Len())
	}
}
