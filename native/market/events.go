package market

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"nftescrow/core/types"
)

const (
	EventTypeListed          = "market.listed"
	EventTypeRepriced        = "market.repriced"
	EventTypeDelisted        = "market.delisted"
	EventTypePurchased       = "market.purchased"
	EventTypeConfirmed       = "market.confirmed"
	EventTypeDisputed        = "market.disputed"
	EventTypeWithdrawn       = "market.withdrawn"
	EventTypeTransferred     = "market.transferred"
	EventTypeRefunded        = "market.refunded"
	EventTypeDisputeSettled  = "market.dispute_settled"
	EventTypeTreasuryUpdated = "market.treasury_updated"
)

// NewListedEvent returns the payload emitted when an asset goes on sale.
func NewListedEvent(l *Listing) *types.Event { return newListingEvent(EventTypeListed, l) }

// NewRepricedEvent returns the payload emitted when a listing changes price.
func NewRepricedEvent(l *Listing) *types.Event { return newListingEvent(EventTypeRepriced, l) }

// NewDelistedEvent returns the payload emitted when a seller withdraws a listing.
func NewDelistedEvent(l *Listing) *types.Event { return newListingEvent(EventTypeDelisted, l) }

// NewPurchasedEvent returns the payload emitted once a purchase opened an
// escrow item.
func NewPurchasedEvent(e *EscrowItem) *types.Event { return newEscrowEvent(EventTypePurchased, e) }

// NewConfirmedEvent records a delivery confirmation by party.
func NewConfirmedEvent(e *EscrowItem, party common.Address) *types.Event {
	evt := newEscrowEvent(EventTypeConfirmed, e)
	evt.Attributes["party"] = party.Hex()
	return evt
}

// NewDisputedEvent returns the payload emitted when a party raises a dispute.
func NewDisputedEvent(e *EscrowItem, party common.Address) *types.Event {
	evt := newEscrowEvent(EventTypeDisputed, e)
	evt.Attributes["party"] = party.Hex()
	return evt
}

func NewWithdrawnEvent(e *EscrowItem) *types.Event { return newEscrowEvent(EventTypeWithdrawn, e) }

func NewTransferredEvent(e *EscrowItem) *types.Event { return newEscrowEvent(EventTypeTransferred, e) }

func NewRefundedEvent(e *EscrowItem) *types.Event { return newEscrowEvent(EventTypeRefunded, e) }

// NewDisputeSettledEvent records the routing of a disputed item to treasury.
func NewDisputeSettledEvent(e *EscrowItem, treasury common.Address) *types.Event {
	evt := newEscrowEvent(EventTypeDisputeSettled, e)
	evt.Attributes["treasury"] = treasury.Hex()
	return evt
}

// NewTreasuryUpdatedEvent returns the payload emitted when the owner rotates
// the treasury address.
func NewTreasuryUpdatedEvent(previous, treasury common.Address) *types.Event {
	return &types.Event{
		Type: EventTypeTreasuryUpdated,
		Attributes: map[string]string{
			"previous": previous.Hex(),
			"treasury": treasury.Hex(),
		},
	}
}

func newListingEvent(eventType string, l *Listing) *types.Event {
	if l == nil {
		return &types.Event{Type: eventType, Attributes: map[string]string{}}
	}
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"seller":       l.Seller.Hex(),
			"collection":   l.Collection.Hex(),
			"tokenId":      l.TokenID.Hex(),
			"price":        cloneAmount(l.Price).Dec(),
			"paymentTypes": l.PaymentTypes.String(),
		},
	}
}

func newEscrowEvent(eventType string, e *EscrowItem) *types.Event {
	if e == nil {
		return &types.Event{Type: eventType, Attributes: map[string]string{}}
	}
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"escrowId":    strconv.FormatUint(e.ID, 10),
			"buyer":       e.Buyer.Hex(),
			"seller":      e.Seller.Hex(),
			"collection":  e.Collection.Hex(),
			"tokenId":     e.TokenID.Hex(),
			"amount":      cloneAmount(e.Amount).Dec(),
			"paymentType": e.PaymentType.String(),
			"status":      e.Status.String(),
		},
	}
}
