package asset

import (
	"github.com/ethereum/go-ethereum/common"

	"nftescrow/core/state"
)

// AuthorizeOperator grants operator standing permission to move the token.
// Only the token owner may grant.
func (r *Registry) AuthorizeOperator(collection, caller, operator common.Address, id common.Hash) error {
	token, err := r.loadToken(collection, id)
	if err != nil {
		return err
	}
	if caller != token.Owner {
		return ErrNotTokenOwner
	}
	if operator == (common.Address{}) {
		return ErrZeroAddress
	}
	for _, existing := range token.Operators {
		if existing == operator {
			return nil
		}
	}
	token.Operators = append(token.Operators, operator)
	return state.PutRLP(r.kv, tokenKey(collection, id), token)
}

// RevokeOperator withdraws a previously granted permission. Only the token
// owner may revoke.
func (r *Registry) RevokeOperator(collection, caller, operator common.Address, id common.Hash) error {
	token, err := r.loadToken(collection, id)
	if err != nil {
		return err
	}
	if caller != token.Owner {
		return ErrNotTokenOwner
	}
	kept := token.Operators[:0]
	for _, existing := range token.Operators {
		if existing != operator {
			kept = append(kept, existing)
		}
	}
	token.Operators = kept
	return state.PutRLP(r.kv, tokenKey(collection, id), token)
}

// IsOperatorFor reports whether operator may move the token on the owner's
// behalf.
func (r *Registry) IsOperatorFor(collection, operator common.Address, id common.Hash) (bool, error) {
	token, err := r.loadToken(collection, id)
	if err != nil {
		return false, err
	}
	for _, existing := range token.Operators {
		if existing == operator {
			return true, nil
		}
	}
	return false, nil
}

// Transfer moves the token from its owner to to. The caller must be the owner
// or an authorized operator. All operators are cleared on transfer and the
// recipient's receiver, if any, is notified once the state is updated.
func (r *Registry) Transfer(collection, caller, from, to common.Address, id common.Hash) error {
	token, err := r.loadToken(collection, id)
	if err != nil {
		return err
	}
	if token.Owner != from {
		return ErrNotTokenOwner
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if caller != from {
		authorized := false
		for _, existing := range token.Operators {
			if existing == caller {
				authorized = true
				break
			}
		}
		if !authorized {
			return ErrNotOperator
		}
	}
	token.Owner = to
	token.Operators = nil
	if err := state.PutRLP(r.kv, tokenKey(collection, id), token); err != nil {
		return err
	}
	if err := r.adjustHolding(collection, from, -1); err != nil {
		return err
	}
	if err := r.adjustHolding(collection, to, 1); err != nil {
		return err
	}
	if receiver, ok := r.receivers[to]; ok && receiver != nil {
		return receiver.OnAssetReceived(collection, id, from)
	}
	return nil
}
