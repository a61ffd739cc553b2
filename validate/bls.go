package validate

import (
	blst "github.com/supranational/blst/bindings/go"

	"github.com/chia-network/mempool-core/coins"
)

// blsDomainSeparationTag is the ciphersuite the aggregate signature is
// verified under; it must match the one puzzle reveals sign against.
var blsDomainSeparationTag = []byte("BLS_SIG_AUG_SCHEME_MPL_RO_")

// AggregateVerify checks sig against every (pubKey, message) pair, each
// augmented per the AUG scheme (message prefixed with its own public key).
// cache is consulted first for this exact (pairs, sig) combination, and
// populated on a fresh successful verification, so repeated verification of
// an unchanged bundle doesn't redo the pairing computation. It reports false on a
// malformed signature or key as well as on a genuine verification failure.
func AggregateVerify(pairs []coins.AggSigDemand, sig []byte, cache *SignatureCache) bool {
	if len(pairs) == 0 {
		return len(sig) == 0
	}

	if cache != nil && cache.Get(pairs, sig) {
		return true
	}

	var sigPoint blst.P2Affine
	if sigPoint.Uncompress(sig) == nil {
		return false
	}
	if !sigPoint.SigValidate(false) {
		return false
	}

	pubKeys := make([]*blst.P1Affine, len(pairs))
	msgs := make([][]byte, len(pairs))
	for i, p := range pairs {
		var pk blst.P1Affine
		if pk.Uncompress(p.PublicKey) == nil {
			return false
		}
		pubKeys[i] = &pk
		msgs[i] = augmentedMessage(p.PublicKey, p.Message)
	}

	ok := sigPoint.AggregateVerify(true, pubKeys, true, msgs, blsDomainSeparationTag)
	if ok && cache != nil {
		cache.Put(pairs, sig)
	}
	return ok
}

// augmentedMessage prefixes message with pubKey, per the AUG signature
// scheme Chia-style puzzles sign under.
func augmentedMessage(pubKey, message []byte) []byte {
	out := make([]byte, 0, len(pubKey)+len(message))
	out = append(out, pubKey...)
	out = append(out, message...)
	return out
}
