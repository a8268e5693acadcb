package market

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"nftescrow/core/types"
)

// Purchase buys a listed asset for exactly its price in one of the accepted
// currencies. Payment and asset move into marketplace custody and a pending
// escrow item is opened. The new escrow id is returned.
func (e *Engine) Purchase(collection common.Address, id common.Hash, pt types.PaymentType, amount *uint256.Int, buyer common.Address) (uint64, error) {
	if buyer == e.address {
		return 0, ErrCustodyBuyer
	}
	listing, err := e.activeListing(collection, id)
	if err != nil {
		return 0, err
	}
	valid, err := e.sellerStillAuthorizes(listing)
	if err != nil {
		return 0, err
	}
	if !valid {
		return 0, ErrNotOnSale
	}
	if !listing.PaymentTypes.Accepts(pt) {
		return 0, ErrPaymentTypeNotAccepted
	}
	if !cloneAmount(amount).Eq(cloneAmount(listing.Price)) {
		return 0, ErrPriceMismatch
	}
	if err := e.funds.Transfer(pt, buyer, e.address, cloneAmount(amount)); err != nil {
		return 0, translate(err)
	}
	if err := e.assets.Transfer(collection, e.address, listing.Seller, e.address, id); err != nil {
		return 0, translate(err)
	}
	listing.Active = false
	if err := e.state.ListingPut(listing); err != nil {
		return 0, err
	}
	item, err := e.open(listing, buyer, amount, pt)
	if err != nil {
		return 0, err
	}
	e.emit(NewPurchasedEvent(item))
	return item.ID, nil
}

// ReportDeliverySuccess records the caller's confirmation. Once both parties
// have confirmed and no dispute was raised the item moves to SUCCESS. A
// dispute always takes precedence.
func (e *Engine) ReportDeliverySuccess(escrowID uint64, caller common.Address) error {
	if e.busy(escrowID) {
		return ErrTransferInProgress
	}
	item, err := e.loadEscrow(escrowID)
	if err != nil {
		return err
	}
	if !item.IsParty(caller) {
		return ErrNotParty
	}
	switch item.Status {
	case StatusClosed:
		return ErrEscrowClosed
	case StatusWithdrawn:
		return ErrNotPending
	case StatusPending, StatusSuccess, StatusDisrupted:
	default:
		return ErrUnknownStatus
	}
	if caller == item.Seller {
		item.SellerConfirmed = true
	}
	if caller == item.Buyer {
		item.BuyerConfirmed = true
	}
	if item.Status == StatusPending && item.SellerConfirmed && item.BuyerConfirmed && !item.DisputeRaised {
		item.Status = StatusSuccess
	}
	if err := e.state.EscrowPut(item); err != nil {
		return err
	}
	e.emit(NewConfirmedEvent(item, caller))
	return nil
}

// ReportDispute forces the item into DISRUPTED. Allowed until the item is
// closed, including after both parties agreed on success.
func (e *Engine) ReportDispute(escrowID uint64, caller common.Address) error {
	if e.busy(escrowID) {
		return ErrTransferInProgress
	}
	item, err := e.loadEscrow(escrowID)
	if err != nil {
		return err
	}
	if !item.IsParty(caller) {
		return ErrNotParty
	}
	switch item.Status {
	case StatusClosed:
		return ErrEscrowClosed
	case StatusWithdrawn:
		return ErrNotPending
	case StatusDisrupted:
		return nil
	case StatusPending, StatusSuccess:
	default:
		return ErrUnknownStatus
	}
	item.DisputeRaised = true
	item.Status = StatusDisrupted
	if err := e.state.EscrowPut(item); err != nil {
		return err
	}
	e.emit(NewDisputedEvent(item, caller))
	return nil
}

// ReportWithdraw lets the seller abort a pending sale the buyer has not yet
// confirmed.
func (e *Engine) ReportWithdraw(escrowID uint64, caller common.Address) error {
	if e.busy(escrowID) {
		return ErrTransferInProgress
	}
	item, err := e.loadEscrow(escrowID)
	if err != nil {
		return err
	}
	if caller != item.Seller {
		return ErrNotSeller
	}
	switch item.Status {
	case StatusClosed:
		return ErrEscrowClosed
	case StatusSuccess, StatusWithdrawn, StatusDisrupted:
		return ErrNotPending
	case StatusPending:
	default:
		return ErrUnknownStatus
	}
	if item.BuyerConfirmed {
		return ErrBuyerConfirmed
	}
	item.Status = StatusWithdrawn
	if err := e.state.EscrowPut(item); err != nil {
		return err
	}
	e.emit(NewWithdrawnEvent(item))
	return nil
}

// FinalizeSettlement releases an agreed item: the asset goes to the buyer and
// the payment to the seller. The item is closed before either transfer runs.
func (e *Engine) FinalizeSettlement(escrowID uint64, caller common.Address) error {
	if e.busy(escrowID) {
		return ErrTransferInProgress
	}
	item, err := e.loadEscrow(escrowID)
	if err != nil {
		return err
	}
	switch item.Status {
	case StatusClosed:
		return ErrEscrowClosed
	case StatusPending, StatusWithdrawn, StatusDisrupted:
		return ErrNotAgreed
	case StatusSuccess:
	default:
		return ErrUnknownStatus
	}
	if !item.IsParty(caller) {
		return ErrNotParty
	}
	if err := e.release(item, item.Buyer, item.Seller); err != nil {
		return err
	}
	e.emit(NewTransferredEvent(item))
	return nil
}

// SettleWithdrawal unwinds a withdrawn item: the asset returns to the seller
// and the payment to the buyer.
func (e *Engine) SettleWithdrawal(escrowID uint64, caller common.Address) error {
	if e.busy(escrowID) {
		return ErrTransferInProgress
	}
	item, err := e.loadEscrow(escrowID)
	if err != nil {
		return err
	}
	switch item.Status {
	case StatusClosed:
		return ErrEscrowClosed
	case StatusPending, StatusSuccess, StatusDisrupted:
		return ErrNotWithdrawn
	case StatusWithdrawn:
	default:
		return ErrUnknownStatus
	}
	if !item.IsParty(caller) {
		return ErrNotParty
	}
	if err := e.release(item, item.Seller, item.Buyer); err != nil {
		return err
	}
	e.emit(NewRefundedEvent(item))
	return nil
}

// SettleDispute routes a disputed item's asset and payment to the treasury.
// Only the marketplace owner may settle disputes.
func (e *Engine) SettleDispute(escrowID uint64, caller common.Address) error {
	if e.busy(escrowID) {
		return ErrTransferInProgress
	}
	item, err := e.loadEscrow(escrowID)
	if err != nil {
		return err
	}
	switch item.Status {
	case StatusClosed:
		return ErrEscrowClosed
	case StatusPending, StatusSuccess, StatusWithdrawn:
		return ErrNotDisrupted
	case StatusDisrupted:
	default:
		return ErrUnknownStatus
	}
	if caller != e.owner {
		return ErrNotMarketOwner
	}
	treasury, err := e.state.Treasury()
	if err != nil {
		return err
	}
	if treasury == (common.Address{}) {
		return ErrTreasuryNotSet
	}
	if err := e.release(item, treasury, treasury); err != nil {
		return err
	}
	e.emit(NewDisputeSettledEvent(item, treasury))
	return nil
}

// release closes the item, commits that to state, and only then moves the
// held asset and payment out of custody.
func (e *Engine) release(item *EscrowItem, assetTo, paymentTo common.Address) error {
	done, err := e.enter(item.ID)
	if err != nil {
		return err
	}
	defer done()

	item.Status = StatusClosed
	if err := e.state.EscrowPut(item); err != nil {
		return err
	}
	if err := e.adjustHeld(item.PaymentType, item.Amount, false); err != nil {
		return err
	}
	if err := e.assets.Transfer(item.Collection, e.address, e.address, assetTo, item.TokenID); err != nil {
		return translate(err)
	}
	if err := e.funds.Transfer(item.PaymentType, e.address, paymentTo, cloneAmount(item.Amount)); err != nil {
		return translate(err)
	}
	return nil
}
