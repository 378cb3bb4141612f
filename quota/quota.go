// Package quota splits a requested mint quantity into free and paid units and
// prices the paid part.
package quota

import (
	"math/big"

	"github.com/vitwit/ticketmint/types"
)

// Split is the free/paid breakdown of a requested quantity.
type Split struct {
	Free uint64 `json:"free"`
	Paid uint64 `json:"paid"`
}

// SplitQuantity divides requested into free and paid units. An unknown
// freeRemaining is treated as no free allowance.
func SplitQuantity(requested uint64, freeRemaining types.Optional[uint64]) Split {
	free, ok := freeRemaining.Get()
	if !ok {
		return Split{Free: 0, Paid: requested}
	}
	if free > requested {
		free = requested
	}
	return Split{Free: free, Paid: requested - free}
}

// Cost returns unitPrice * paid in wei. It returns nil when the price is unknown.
func Cost(paid uint64, unitPrice *big.Int) *big.Int {
	if unitPrice == nil {
		return nil
	}
	return new(big.Int).Mul(unitPrice, new(big.Int).SetUint64(paid))
}

// Quote is a priced split.
type Quote struct {
	Split
	Requested uint64   `json:"requested"`
	Value     *big.Int `json:"value,omitempty"`
}

// NewQuote splits requested and prices the paid units.
func NewQuote(requested uint64, freeRemaining types.Optional[uint64], unitPrice *big.Int) Quote {
	s := SplitQuantity(requested, freeRemaining)
	return Quote{
		Split:     s,
		Requested: requested,
		Value:     Cost(s.Paid, unitPrice),
	}
}

// Clamp bounds a requested quantity to [1, limit]. A zero limit means no upper bound.
func Clamp(requested, limit uint64) uint64 {
	if requested < 1 {
		return 1
	}
	if limit > 0 && requested > limit {
		return limit
	}
	return requested
}
