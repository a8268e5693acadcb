package genesis

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"nftescrow/core/types"
)

// Target is the state surface a genesis spec is applied to.
type Target interface {
	CreateCollection(addr, owner common.Address, name string) error
	Credit(addr common.Address, pt types.PaymentType, amount *uint256.Int) error
	SetTreasury(addr common.Address) error
}

// Apply seeds target with the validated spec. Collections are created first,
// then balances are credited, then the treasury is set.
func Apply(spec *Spec, target Target) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if target == nil {
		return fmt.Errorf("genesis target must not be nil")
	}
	for _, c := range spec.collections {
		if err := target.CreateCollection(c.Address, c.Owner, c.Name); err != nil {
			return fmt.Errorf("create collection %s: %w", c.Address.Hex(), err)
		}
	}
	for _, a := range spec.allocations {
		if err := target.Credit(a.Address, a.PaymentType, a.Amount); err != nil {
			return fmt.Errorf("credit %s: %w", a.Address.Hex(), err)
		}
	}
	if spec.treasury != (common.Address{}) {
		if err := target.SetTreasury(spec.treasury); err != nil {
			return fmt.Errorf("set treasury: %w", err)
		}
	}
	return nil
}
