package core

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel/attribute"

	"nftescrow/core/types"
	"nftescrow/native/asset"
)

func (n *Node) AssetCreateCollection(ctx context.Context, addr, owner common.Address, name string) error {
	attrs := []attribute.KeyValue{addrAttr("asset.collection", addr), addrAttr("asset.owner", owner)}
	return n.execute(ctx, "create_collection", attrs, func(tc *txContext) error {
		return tc.assets.CreateCollection(addr, owner, name)
	})
}

// AssetMint mints the next token of collection to to. Only the collection
// owner may mint.
func (n *Node) AssetMint(ctx context.Context, collection, caller, to common.Address, metadata string) (common.Hash, error) {
	var id common.Hash
	attrs := []attribute.KeyValue{addrAttr("asset.collection", collection), addrAttr("asset.to", to)}
	err := n.execute(ctx, "mint", attrs, func(tc *txContext) error {
		var err error
		id, err = tc.assets.Mint(collection, caller, to, metadata)
		return err
	})
	return id, err
}

func (n *Node) AssetAuthorizeOperator(ctx context.Context, collection, caller, operator common.Address, id common.Hash) error {
	return n.execute(ctx, "authorize_operator", assetAttrs(collection, id, caller), func(tc *txContext) error {
		return tc.assets.AuthorizeOperator(collection, caller, operator, id)
	})
}

func (n *Node) AssetRevokeOperator(ctx context.Context, collection, caller, operator common.Address, id common.Hash) error {
	return n.execute(ctx, "revoke_operator", assetAttrs(collection, id, caller), func(tc *txContext) error {
		return tc.assets.RevokeOperator(collection, caller, operator, id)
	})
}

// AssetTransfer moves a token on behalf of its owner or an operator.
func (n *Node) AssetTransfer(ctx context.Context, collection, caller, from, to common.Address, id common.Hash) error {
	return n.execute(ctx, "asset_transfer", assetAttrs(collection, id, caller), func(tc *txContext) error {
		return tc.assets.Transfer(collection, caller, from, to, id)
	})
}

func (n *Node) AssetOwnerOf(collection common.Address, id common.Hash) (common.Address, error) {
	var owner common.Address
	err := n.view(func(tc *txContext) error {
		var err error
		owner, err = tc.assets.TokenOwnerOf(collection, id)
		return err
	})
	return owner, err
}

func (n *Node) AssetIsOperatorFor(collection, operator common.Address, id common.Hash) (bool, error) {
	var ok bool
	err := n.view(func(tc *txContext) error {
		var err error
		ok, err = tc.assets.IsOperatorFor(collection, operator, id)
		return err
	})
	return ok, err
}

func (n *Node) AssetCollection(addr common.Address) (*asset.Collection, error) {
	var collection *asset.Collection
	err := n.view(func(tc *txContext) error {
		var err error
		collection, err = tc.assets.Collection(addr)
		return err
	})
	return collection, err
}

func (n *Node) BankBalance(addr common.Address, pt types.PaymentType) (*uint256.Int, error) {
	var balance *uint256.Int
	err := n.view(func(tc *txContext) error {
		var err error
		balance, err = tc.ledger.BalanceOf(addr, pt)
		return err
	})
	return balance, err
}
