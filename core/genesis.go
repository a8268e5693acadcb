package core

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nodeerrors "nftescrow/core/errors"
	"nftescrow/core/genesis"
	"nftescrow/core/state"
	"nftescrow/core/types"
)

var genesisMarkerKey = state.Key("core/genesis-applied")

type genesisTarget struct {
	tc    *txContext
	owner common.Address
}

func (g genesisTarget) CreateCollection(addr, owner common.Address, name string) error {
	return g.tc.assets.CreateCollection(addr, owner, name)
}

func (g genesisTarget) Credit(addr common.Address, pt types.PaymentType, amount *uint256.Int) error {
	return g.tc.ledger.Credit(addr, pt, amount)
}

func (g genesisTarget) SetTreasury(addr common.Address) error {
	return g.tc.engine.SetTreasury(addr, g.owner)
}

// ApplyGenesis seeds a fresh ledger from spec. It returns
// ErrGenesisApplied when the ledger was already seeded.
func (n *Node) ApplyGenesis(ctx context.Context, spec *genesis.Spec) error {
	return n.execute(ctx, "genesis", nil, func(tc *txContext) error {
		marker, err := tc.tx.Get(genesisMarkerKey)
		if err != nil {
			return err
		}
		if len(marker) > 0 {
			return nodeerrors.ErrGenesisApplied
		}
		if err := genesis.Apply(spec, genesisTarget{tc: tc, owner: n.cfg.Owner}); err != nil {
			return err
		}
		if err := state.SetStateVersion(tc.tx, state.StateVersion); err != nil {
			return err
		}
		return tc.tx.Put(genesisMarkerKey, []byte{1})
	})
}

// EnsureGenesis applies spec unless the ledger was already seeded.
func (n *Node) EnsureGenesis(ctx context.Context, spec *genesis.Spec) (bool, error) {
	err := n.ApplyGenesis(ctx, spec)
	if errors.Is(err, nodeerrors.ErrGenesisApplied) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
