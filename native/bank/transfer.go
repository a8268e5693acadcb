package bank

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"nftescrow/core/state"
	"nftescrow/core/types"
)

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrUnsupportedPayment  = errors.New("bank: unsupported payment type")
	ErrBalanceOverflow     = errors.New("bank: balance overflow")
)

const balancePrefix = "bank/balance"

// Ledger is the value-transfer primitive: per-address balances for each
// supported payment type, persisted through a state.KV.
type Ledger struct {
	kv state.KV
}

// NewLedger binds a ledger to the provided state.
func NewLedger(kv state.KV) *Ledger {
	return &Ledger{kv: kv}
}

func balanceKey(addr common.Address, pt types.PaymentType) []byte {
	return state.Key(balancePrefix, []byte{byte(pt)}, addr.Bytes())
}

// BalanceOf returns the balance of addr in the given currency.
func (l *Ledger) BalanceOf(addr common.Address, pt types.PaymentType) (*uint256.Int, error) {
	if !pt.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPayment, pt)
	}
	balance := new(uint256.Int)
	if _, err := state.GetRLP(l.kv, balanceKey(addr, pt), balance); err != nil {
		return nil, err
	}
	return balance, nil
}

func (l *Ledger) setBalance(addr common.Address, pt types.PaymentType, amount *uint256.Int) error {
	key := balanceKey(addr, pt)
	if amount.IsZero() {
		return l.kv.Delete(key)
	}
	return state.PutRLP(l.kv, key, amount)
}

// Credit mints amount to addr. Used for genesis allocations and tests.
func (l *Ledger) Credit(addr common.Address, pt types.PaymentType, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	balance, err := l.BalanceOf(addr, pt)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	return l.setBalance(addr, pt, sum)
}

// Transfer moves amount from one address to another.
func (l *Ledger) Transfer(pt types.PaymentType, from, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	fromBalance, err := l.BalanceOf(from, pt)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return fmt.Errorf("%w: have %s, need %s %s", ErrInsufficientBalance, fromBalance.Dec(), amount.Dec(), pt)
	}
	if from == to {
		return nil
	}
	toBalance, err := l.BalanceOf(to, pt)
	if err != nil {
		return err
	}
	credited, overflow := new(uint256.Int).AddOverflow(toBalance, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	if err := l.setBalance(from, pt, new(uint256.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.setBalance(to, pt, credited)
}
