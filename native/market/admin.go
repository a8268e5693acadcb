package market

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"nftescrow/core/types"
)

// SetTreasury replaces the treasury address. Only the marketplace owner may
// call it.
func (e *Engine) SetTreasury(treasury, caller common.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if caller != e.owner {
		return ErrNotMarketOwner
	}
	if treasury == (common.Address{}) {
		return ErrInvalidTreasury
	}
	previous, err := e.state.Treasury()
	if err != nil {
		return err
	}
	if err := e.state.SetTreasury(treasury); err != nil {
		return err
	}
	e.emit(NewTreasuryUpdatedEvent(previous, treasury))
	return nil
}

// Treasury returns the current treasury address, zero when unset.
func (e *Engine) Treasury() (common.Address, error) {
	if err := e.ready(); err != nil {
		return common.Address{}, err
	}
	return e.state.Treasury()
}

// HeldBalance returns the total amount held for open escrow items across all
// currencies.
func (e *Engine) HeldBalance() (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	total := new(uint256.Int)
	for pt := types.PaymentType(0); pt < types.NumPaymentTypes; pt++ {
		held, err := e.state.HeldBalance(pt)
		if err != nil {
			return nil, err
		}
		total.Add(total, held)
	}
	return total, nil
}

// HeldBalanceOf returns the amount held for open escrow items in one currency.
func (e *Engine) HeldBalanceOf(pt types.PaymentType) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !pt.Valid() {
		return nil, ErrPaymentTypeNotAccepted
	}
	return e.state.HeldBalance(pt)
}

// Solvent reports whether the custody balance covers every open item in each
// currency.
func (e *Engine) Solvent() (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	for pt := types.PaymentType(0); pt < types.NumPaymentTypes; pt++ {
		held, err := e.state.HeldBalance(pt)
		if err != nil {
			return false, err
		}
		balance, err := e.funds.BalanceOf(e.address, pt)
		if err != nil {
			return false, err
		}
		if balance.Lt(held) {
			return false, nil
		}
	}
	return true, nil
}

func (e *Engine) adjustHeld(pt types.PaymentType, amount *uint256.Int, increase bool) error {
	held, err := e.state.HeldBalance(pt)
	if err != nil {
		return err
	}
	delta := cloneAmount(amount)
	if increase {
		if _, overflow := held.AddOverflow(held, delta); overflow {
			return fmt.Errorf("market: held balance overflow")
		}
	} else {
		if held.Lt(delta) {
			return fmt.Errorf("market: held balance underflow")
		}
		held.Sub(held, delta)
	}
	return e.state.SetHeldBalance(pt, held)
}
