// Package coins defines the coin/UTXO data model the mempool core operates
// on: coins, coin spends, spend bundles, and the conditions a script runner
// reports back after evaluating a spend.
package coins

import (
	"crypto/sha256"
	"encoding/binary"
)

// ID identifies a coin, a spend bundle, or any other content-addressed
// value in this package by its 32-byte hash.
type ID [32]byte

// Coin is a single unspent-transaction-output-equivalent: an amount locked
// behind a puzzle hash, descended from a parent coin.
type Coin struct {
	ParentID   ID
	PuzzleHash ID
	Amount     uint64
}

// ID returns the coin's content-addressed identity,
// H(parent_id || puzzle_hash || amount_be).
func (c Coin) ID() ID {
	buf := make([]byte, 0, 32+32+8)
	buf = append(buf, c.ParentID[:]...)
	buf = append(buf, c.PuzzleHash[:]...)
	var amt [8]byte
	binary.BigEndian.PutUint64(amt[:], c.Amount)
	buf = append(buf, amt[:]...)
	return sha256.Sum256(buf)
}

// Record is the read-only view of a coin the coin store reports back:
// whether it exists, when it was confirmed, and whether (and when) it has
// already been spent.
type Record struct {
	Coin            Coin
	ConfirmedHeight uint32
	SpentHeight     uint32 // 0 if unspent
	IsCoinbase      bool
	Timestamp       uint64 // seconds, confirmation time of ConfirmedHeight
}

// Spent reports whether the coin has already been spent on-chain.
func (r Record) Spent() bool {
	return r.SpentHeight != 0
}

// CoinSpend is one coin being spent: the coin itself, the puzzle revealed
// to unlock it, and the solution passed to that puzzle.
type CoinSpend struct {
	Coin         Coin
	PuzzleReveal []byte
	Solution     []byte
}

// SpendBundle is an ordered list of coin spends plus a single BLS signature
// aggregated over every per-spend message the spends' conditions demand.
type SpendBundle struct {
	Spends              []CoinSpend
	AggregatedSignature []byte // compressed BLS12-381 G2 signature
}

// ID returns the bundle's content-addressed identity.
func (b SpendBundle) ID() ID {
	h := sha256.New()
	for _, s := range b.Spends {
		h.Write(s.Coin.ParentID[:])
		h.Write(s.Coin.PuzzleHash[:])
		var amt [8]byte
		binary.BigEndian.PutUint64(amt[:], s.Coin.Amount)
		h.Write(amt[:])
		h.Write(s.PuzzleReveal)
		h.Write(s.Solution)
	}
	h.Write(b.AggregatedSignature)
	var sum ID
	copy(sum[:], h.Sum(nil))
	return sum
}

// Removals returns the coins this bundle spends, in bundle order.
func (b SpendBundle) Removals() []Coin {
	out := make([]Coin, len(b.Spends))
	for i, s := range b.Spends {
		out[i] = s.Coin
	}
	return out
}

// CreatedCoin is one coin created by a spend's CREATE_COIN condition.
type CreatedCoin struct {
	PuzzleHash ID
	Amount     uint64
	Memo       []byte // optional
}

// AggSigKind distinguishes the fork-ID replay-protection treatment a
// condition's message receives before it's added to the aggregate
// signature's pairing set.
type AggSigKind int

const (
	// AggSigMe means additional_data (the genesis challenge / fork id) is
	// appended to the message, binding the signature to this chain.
	AggSigMe AggSigKind = iota
	// AggSigUnsafe means the message is used exactly as given; the signer
	// takes on the replay risk across chains sharing the same key.
	AggSigUnsafe
)

// AggSigDemand is one (public key, message) pair a spend's aggregate
// signature is required to cover.
type AggSigDemand struct {
	PublicKey []byte // compressed BLS12-381 G1 public key
	Message   []byte
	Kind      AggSigKind
}

// SpendConditions is the per-coin-spend subset of a script runner's
// reported conditions.
type SpendConditions struct {
	CoinID ID // must equal the coin actually being spent

	// Cost is this spend's own CLVM cost, as opposed to Conditions.Cost,
	// which sums every spend's cost across the bundle.
	Cost uint64

	CreateCoin []CreatedCoin
	AggSigs    []AggSigDemand

	// Per-spend relative/absolute height and seconds constraints. A nil
	// pointer means the condition was not asserted.
	BirthHeight           *uint32
	BirthSeconds          *uint64
	HeightRelative        *uint32
	SecondsRelative       *uint64
	BeforeHeightRelative  *uint32
	BeforeSecondsRelative *uint64
}

// Conditions is the normalized output of running a spend bundle's script(s):
// the per-spend breakdown plus bundle-wide aggregate fields.
type Conditions struct {
	Spends []SpendConditions

	ReserveFee uint64
	Cost       uint64

	// Bundle-wide absolute constraints. A zero HeightAbsolute or
	// SecondsAbsolute, or a nil Before* pointer, means not asserted.
	HeightAbsolute        uint32
	SecondsAbsolute       uint64
	BeforeHeightAbsolute  *uint32
	BeforeSecondsAbsolute *uint64
}

// Additions returns every coin created across all spends' conditions.
func (c Conditions) Additions() []Coin {
	var out []Coin
	for _, sp := range c.Spends {
		for _, cc := range sp.CreateCoin {
			out = append(out, Coin{ParentID: sp.CoinID, PuzzleHash: cc.PuzzleHash, Amount: cc.Amount})
		}
	}
	return out
}
