package market

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"nftescrow/core/types"
)

// open allocates the next escrow id and stores a pending item for it.
func (e *Engine) open(listing *Listing, buyer common.Address, amount *uint256.Int, pt types.PaymentType) (*EscrowItem, error) {
	id, err := e.state.EscrowCount()
	if err != nil {
		return nil, err
	}
	item := &EscrowItem{
		ID:          id,
		Collection:  listing.Collection,
		TokenID:     listing.TokenID,
		Seller:      listing.Seller,
		Buyer:       buyer,
		Amount:      cloneAmount(amount),
		PaymentType: pt,
		Status:      StatusPending,
	}
	if err := e.state.EscrowPut(item); err != nil {
		return nil, err
	}
	if err := e.state.SetEscrowCount(id + 1); err != nil {
		return nil, err
	}
	if err := e.state.SetLatestEscrow(item.Collection, item.TokenID, id); err != nil {
		return nil, err
	}
	if err := e.adjustHeld(pt, item.Amount, true); err != nil {
		return nil, err
	}
	return item, nil
}

func (e *Engine) loadEscrow(id uint64) (*EscrowItem, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	item, ok, err := e.state.EscrowGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEscrowNotFound
	}
	if !item.Status.Valid() {
		return nil, ErrUnknownStatus
	}
	return item, nil
}

// EscrowItem returns a copy of the escrow item.
func (e *Engine) EscrowItem(id uint64) (*EscrowItem, error) {
	item, err := e.loadEscrow(id)
	if err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// TotalEscrowItems returns the number of escrow items ever opened.
func (e *Engine) TotalEscrowItems() (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	return e.state.EscrowCount()
}

// EscrowIDFor returns the most recent escrow item opened for the asset.
func (e *Engine) EscrowIDFor(collection common.Address, id common.Hash) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	escrowID, ok, err := e.state.LatestEscrow(collection, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrEscrowNotFound
	}
	return escrowID, nil
}

// BuyerSellerOf returns the parties of an escrow item.
func (e *Engine) BuyerSellerOf(id uint64) (buyer, seller common.Address, err error) {
	item, err := e.loadEscrow(id)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return item.Buyer, item.Seller, nil
}

// StatusOf returns the current status of an escrow item.
func (e *Engine) StatusOf(id uint64) (Status, error) {
	item, err := e.loadEscrow(id)
	if err != nil {
		return 0, err
	}
	return item.Status, nil
}
