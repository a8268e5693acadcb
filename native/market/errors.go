package market

import (
	"errors"
	"fmt"

	"nftescrow/native/asset"
	"nftescrow/native/bank"
)

// Error kinds. Every concrete market error wraps exactly one of these.
var (
	ErrAuthorization = errors.New("market: authorization error")
	ErrState         = errors.New("market: state error")
	ErrPayment       = errors.New("market: payment error")
	ErrNotFound      = errors.New("market: not found")
)

var (
	ErrNotOwner       = newError(ErrAuthorization, "sender does not own this asset")
	ErrNotAuthorized  = newError(ErrAuthorization, "marketplace is not authorized for this asset")
	ErrNotSeller      = newError(ErrAuthorization, "sender is not the seller")
	ErrNotParty       = newError(ErrAuthorization, "sender is not a party to this escrow")
	ErrNotMarketOwner = newError(ErrAuthorization, "sender is not the marketplace owner")
	ErrCustodyBuyer   = newError(ErrAuthorization, "marketplace cannot buy its own listings")

	ErrAlreadyListed      = newError(ErrState, "asset is already on sale")
	ErrNotOnSale          = newError(ErrState, "asset is not on sale")
	ErrNoPaymentTypes     = newError(ErrState, "listing accepts no payment type")
	ErrEscrowClosed       = newError(ErrState, "escrow item has been closed")
	ErrNotAgreed          = newError(ErrState, "parties have not agreed on success")
	ErrNotPending         = newError(ErrState, "escrow item is not pending")
	ErrBuyerConfirmed     = newError(ErrState, "buyer has already confirmed delivery")
	ErrNotWithdrawn       = newError(ErrState, "escrow item has not been withdrawn")
	ErrNotDisrupted       = newError(ErrState, "escrow item is not disputed")
	ErrTransferInProgress = newError(ErrState, "escrow transfer in progress")
	ErrUnknownStatus      = newError(ErrState, "unrecognized escrow status")
	ErrTreasuryNotSet     = newError(ErrState, "treasury is not configured")
	ErrInvalidTreasury    = newError(ErrState, "treasury address must not be zero")

	ErrPaymentTypeNotAccepted = newError(ErrPayment, "payment type not accepted")
	ErrPriceMismatch          = newError(ErrPayment, "payment does not match listed price")
	ErrInsufficientFunds      = newError(ErrPayment, "insufficient funds")

	ErrListingNotFound = newError(ErrNotFound, "listing not found")
	ErrEscrowNotFound  = newError(ErrNotFound, "escrow item not found")
	ErrAssetNotFound   = newError(ErrNotFound, "asset does not exist")
)

var errNilState = errors.New("market engine: state not configured")

type marketError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &marketError{kind: kind, msg: msg}
}

func (e *marketError) Error() string { return "market: " + e.msg }

func (e *marketError) Unwrap() error { return e.kind }

// KindOf returns the error kind wrapped by err, or nil when err does not
// originate from the market taxonomy.
func KindOf(err error) error {
	for _, kind := range []error{ErrAuthorization, ErrState, ErrPayment, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// translate maps collaborator failures onto the market taxonomy. Errors that
// already belong to the taxonomy, and anything unrecognised, pass through.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case KindOf(err) != nil:
		return err
	case errors.Is(err, asset.ErrTokenNotFound), errors.Is(err, asset.ErrCollectionNotFound):
		return fmt.Errorf("%w: %v", ErrAssetNotFound, err)
	case errors.Is(err, asset.ErrNotOperator):
		return fmt.Errorf("%w: %v", ErrNotAuthorized, err)
	case errors.Is(err, asset.ErrNotTokenOwner):
		return fmt.Errorf("%w: %v", ErrNotOwner, err)
	case errors.Is(err, bank.ErrInsufficientBalance):
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	case errors.Is(err, bank.ErrUnsupportedPayment):
		return fmt.Errorf("%w: %v", ErrPaymentTypeNotAccepted, err)
	default:
		return err
	}
}
