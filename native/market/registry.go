package market

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// List puts an asset on sale. The caller must own the asset and must have
// authorized the marketplace to move it.
func (e *Engine) List(collection common.Address, id common.Hash, price *uint256.Int, accepted PaymentTypes, caller common.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	// Assets in custody belong to an escrow, never to the marketplace itself.
	if caller == e.address {
		return ErrNotOwner
	}
	if err := e.checkSellerAuthority(collection, id, caller); err != nil {
		return err
	}
	if !accepted.Any() {
		return ErrNoPaymentTypes
	}
	onSale, err := e.IsOnSale(collection, id)
	if err != nil {
		return err
	}
	if onSale {
		return ErrAlreadyListed
	}
	listing := &Listing{
		Collection:   collection,
		TokenID:      id,
		Seller:       caller,
		Price:        cloneAmount(price),
		PaymentTypes: accepted,
		Active:       true,
	}
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(NewListedEvent(listing))
	return nil
}

// Reprice changes the price of an active listing. Only the seller may reprice.
func (e *Engine) Reprice(collection common.Address, id common.Hash, price *uint256.Int, caller common.Address) error {
	listing, err := e.activeListing(collection, id)
	if err != nil {
		return err
	}
	if listing.Seller != caller {
		return ErrNotSeller
	}
	listing.Price = cloneAmount(price)
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(NewRepricedEvent(listing))
	return nil
}

// Delist takes an active listing off sale. Only the seller may delist.
func (e *Engine) Delist(collection common.Address, id common.Hash, caller common.Address) error {
	listing, err := e.activeListing(collection, id)
	if err != nil {
		return err
	}
	if listing.Seller != caller {
		return ErrNotSeller
	}
	listing.Active = false
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(NewDelistedEvent(listing))
	return nil
}

// IsOnSale reports whether the asset has an active listing whose seller still
// owns the asset and still authorizes the marketplace.
func (e *Engine) IsOnSale(collection common.Address, id common.Hash) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	listing, ok, err := e.state.ListingGet(collection, id)
	if err != nil {
		return false, err
	}
	if !ok || !listing.Active {
		return false, nil
	}
	return e.sellerStillAuthorizes(listing)
}

// GetListing returns the last stored listing for the asset, active or not.
func (e *Engine) GetListing(collection common.Address, id common.Hash) (*Listing, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	listing, ok, err := e.state.ListingGet(collection, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrListingNotFound
	}
	return listing.Clone(), nil
}

// Price returns the price of the last stored listing.
func (e *Engine) Price(collection common.Address, id common.Hash) (*uint256.Int, error) {
	listing, err := e.GetListing(collection, id)
	if err != nil {
		return nil, err
	}
	return listing.Price, nil
}

// AcceptedPaymentTypes returns the currency vector of the last stored listing.
func (e *Engine) AcceptedPaymentTypes(collection common.Address, id common.Hash) (PaymentTypes, error) {
	listing, err := e.GetListing(collection, id)
	if err != nil {
		return PaymentTypes{}, err
	}
	return listing.PaymentTypes, nil
}

func (e *Engine) activeListing(collection common.Address, id common.Hash) (*Listing, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	listing, ok, err := e.state.ListingGet(collection, id)
	if err != nil {
		return nil, err
	}
	if !ok || !listing.Active {
		return nil, ErrNotOnSale
	}
	return listing, nil
}

func (e *Engine) checkSellerAuthority(collection common.Address, id common.Hash, caller common.Address) error {
	owner, err := e.assets.TokenOwnerOf(collection, id)
	if err != nil {
		return translate(err)
	}
	if owner != caller {
		return ErrNotOwner
	}
	authorized, err := e.assets.IsOperatorFor(collection, e.address, id)
	if err != nil {
		return translate(err)
	}
	if !authorized {
		return ErrNotAuthorized
	}
	return nil
}

func (e *Engine) sellerStillAuthorizes(listing *Listing) (bool, error) {
	owner, err := e.assets.TokenOwnerOf(listing.Collection, listing.TokenID)
	if err != nil {
		return false, translate(err)
	}
	if owner != listing.Seller {
		return false, nil
	}
	authorized, err := e.assets.IsOperatorFor(listing.Collection, e.address, listing.TokenID)
	if err != nil {
		return false, translate(err)
	}
	return authorized, nil
}
