package market

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"nftescrow/core/types"
)

// Status enumerates the lifecycle of an escrow item. The numeric values are
// part of the read surface and must not be reordered.
type Status uint8

const (
	StatusPending Status = iota
	StatusSuccess
	StatusWithdrawn
	StatusDisrupted
	StatusClosed
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusWithdrawn, StatusDisrupted, StatusClosed:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusWithdrawn:
		return "withdrawn"
	case StatusDisrupted:
		return "disrupted"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// PaymentTypes is the accepted-currency vector of a listing, indexed by
// types.PaymentType.
type PaymentTypes [types.NumPaymentTypes]bool

// Accepts reports whether the vector permits the supplied payment type.
func (p PaymentTypes) Accepts(pt types.PaymentType) bool {
	if !pt.Valid() {
		return false
	}
	return p[pt]
}

// Any reports whether at least one payment type is accepted.
func (p PaymentTypes) Any() bool {
	for _, ok := range p {
		if ok {
			return true
		}
	}
	return false
}

func (p PaymentTypes) String() string {
	parts := make([]string, 0, len(p))
	for i, ok := range p {
		if ok {
			parts = append(parts, types.PaymentType(i).String())
		}
	}
	return strings.Join(parts, ",")
}

// Listing is a seller's open offer for a single asset.
type Listing struct {
	Collection   common.Address
	TokenID      common.Hash
	Seller       common.Address
	Price        *uint256.Int
	PaymentTypes PaymentTypes
	Active       bool
}

// Clone returns a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	clone.Price = cloneAmount(l.Price)
	return &clone
}

// EscrowItem holds custody of one asset and its payment between purchase and
// final settlement. Items are never deleted.
type EscrowItem struct {
	ID              uint64
	Collection      common.Address
	TokenID         common.Hash
	Seller          common.Address
	Buyer           common.Address
	Amount          *uint256.Int
	PaymentType     types.PaymentType
	Status          Status
	SellerConfirmed bool
	BuyerConfirmed  bool
	DisputeRaised   bool
}

// Clone returns a deep copy of the escrow item.
func (e *EscrowItem) Clone() *EscrowItem {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Amount = cloneAmount(e.Amount)
	return &clone
}

// IsParty reports whether addr is the buyer or the seller of the item.
func (e *EscrowItem) IsParty(addr common.Address) bool {
	return e != nil && (addr == e.Buyer || addr == e.Seller)
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
