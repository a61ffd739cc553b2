package validate

import (
	"crypto/sha256"
	"sync"

	"github.com/chia-network/mempool-core/coins"
	"github.com/chia-network/mempool-core/util/lrucache"
)

// signatureCacheCapacity matches the pairing cache size the signature
// verification this package reimplements uses.
const signatureCacheCapacity = 10000

// SignatureCache is a thread-safe bounded cache recording aggregate
// signatures already proven valid. blst's Go bindings don't expose the
// per-(pubkey,message) GT pairing elements the original pairing cache
// multiplies together, so this caches at the coarser grain of "this exact
// (pair set, signature) was already verified" instead. A hit occurs only
// when the identical bundle goes through pre-validation again (for example
// a re-broadcast submitted to PreValidate twice); peak rebuilds and
// pending-cache retries reuse stored conditions and do not verify again.
type SignatureCache struct {
	mu    sync.Mutex
	cache *lrucache.LRUCache
}

// NewSignatureCache creates a SignatureCache with the package's standard
// capacity.
func NewSignatureCache() *SignatureCache {
	return &SignatureCache{cache: lrucache.New(signatureCacheCapacity)}
}

func verificationKey(pairs []coins.AggSigDemand, sig []byte) [32]byte {
	h := sha256.New()
	for _, p := range pairs {
		h.Write(p.PublicKey)
		h.Write(p.Message)
	}
	h.Write(sig)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Get reports whether (pairs, sig) is already known to verify.
func (c *SignatureCache) Get(pairs []coins.AggSigDemand, sig []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.cache.Get(verificationKey(pairs, sig))
	return ok
}

// Put records that (pairs, sig) has been verified as valid.
func (c *SignatureCache) Put(pairs []coins.AggSigDemand, sig []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(verificationKey(pairs, sig), struct{}{})
}
