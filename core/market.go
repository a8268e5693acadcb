package core

import (
	"context"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel/attribute"

	"nftescrow/core/types"
	"nftescrow/native/market"
)

func escrowAttrs(id uint64, caller common.Address) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("market.escrow_id", strconv.FormatUint(id, 10)),
		addrAttr("market.caller", caller),
	}
}

func assetAttrs(collection common.Address, id common.Hash, caller common.Address) []attribute.KeyValue {
	return []attribute.KeyValue{
		addrAttr("market.collection", collection),
		attribute.String("market.token_id", id.Hex()),
		addrAttr("market.caller", caller),
	}
}

func (n *Node) MarketList(ctx context.Context, collection common.Address, id common.Hash, price *uint256.Int, accepted market.PaymentTypes, caller common.Address) error {
	return n.execute(ctx, "list", assetAttrs(collection, id, caller), func(tc *txContext) error {
		return tc.engine.List(collection, id, price, accepted, caller)
	})
}

func (n *Node) MarketReprice(ctx context.Context, collection common.Address, id common.Hash, price *uint256.Int, caller common.Address) error {
	return n.execute(ctx, "reprice", assetAttrs(collection, id, caller), func(tc *txContext) error {
		return tc.engine.Reprice(collection, id, price, caller)
	})
}

func (n *Node) MarketDelist(ctx context.Context, collection common.Address, id common.Hash, caller common.Address) error {
	return n.execute(ctx, "delist", assetAttrs(collection, id, caller), func(tc *txContext) error {
		return tc.engine.Delist(collection, id, caller)
	})
}

// MarketPurchase buys a listed asset and returns the escrow id opened for it.
func (n *Node) MarketPurchase(ctx context.Context, collection common.Address, id common.Hash, pt types.PaymentType, amount *uint256.Int, buyer common.Address) (uint64, error) {
	var escrowID uint64
	err := n.execute(ctx, "purchase", assetAttrs(collection, id, buyer), func(tc *txContext) error {
		var err error
		escrowID, err = tc.engine.Purchase(collection, id, pt, amount, buyer)
		return err
	})
	if err != nil {
		return 0, err
	}
	return escrowID, nil
}

func (n *Node) MarketReportDeliverySuccess(ctx context.Context, escrowID uint64, caller common.Address) error {
	return n.execute(ctx, "report_delivery_success", escrowAttrs(escrowID, caller), func(tc *txContext) error {
		return tc.engine.ReportDeliverySuccess(escrowID, caller)
	})
}

func (n *Node) MarketReportDispute(ctx context.Context, escrowID uint64, caller common.Address) error {
	return n.execute(ctx, "report_dispute", escrowAttrs(escrowID, caller), func(tc *txContext) error {
		return tc.engine.ReportDispute(escrowID, caller)
	})
}

func (n *Node) MarketReportWithdraw(ctx context.Context, escrowID uint64, caller common.Address) error {
	return n.execute(ctx, "report_withdraw", escrowAttrs(escrowID, caller), func(tc *txContext) error {
		return tc.engine.ReportWithdraw(escrowID, caller)
	})
}

func (n *Node) MarketFinalizeSettlement(ctx context.Context, escrowID uint64, caller common.Address) error {
	return n.execute(ctx, "finalize_settlement", escrowAttrs(escrowID, caller), func(tc *txContext) error {
		return tc.engine.FinalizeSettlement(escrowID, caller)
	})
}

func (n *Node) MarketSettleWithdrawal(ctx context.Context, escrowID uint64, caller common.Address) error {
	return n.execute(ctx, "settle_withdrawal", escrowAttrs(escrowID, caller), func(tc *txContext) error {
		return tc.engine.SettleWithdrawal(escrowID, caller)
	})
}

func (n *Node) MarketSettleDispute(ctx context.Context, escrowID uint64, caller common.Address) error {
	return n.execute(ctx, "settle_dispute", escrowAttrs(escrowID, caller), func(tc *txContext) error {
		return tc.engine.SettleDispute(escrowID, caller)
	})
}

func (n *Node) MarketSetTreasury(ctx context.Context, treasury, caller common.Address) error {
	attrs := []attribute.KeyValue{addrAttr("market.treasury", treasury), addrAttr("market.caller", caller)}
	return n.execute(ctx, "set_treasury", attrs, func(tc *txContext) error {
		return tc.engine.SetTreasury(treasury, caller)
	})
}

func (n *Node) MarketIsOnSale(collection common.Address, id common.Hash) (bool, error) {
	var onSale bool
	err := n.view(func(tc *txContext) error {
		var err error
		onSale, err = tc.engine.IsOnSale(collection, id)
		return err
	})
	return onSale, err
}

func (n *Node) MarketGetListing(collection common.Address, id common.Hash) (*market.Listing, error) {
	var listing *market.Listing
	err := n.view(func(tc *txContext) error {
		var err error
		listing, err = tc.engine.GetListing(collection, id)
		return err
	})
	return listing, err
}

func (n *Node) MarketTotalEscrowItems() (uint64, error) {
	var total uint64
	err := n.view(func(tc *txContext) error {
		var err error
		total, err = tc.engine.TotalEscrowItems()
		return err
	})
	return total, err
}

func (n *Node) MarketEscrowIDFor(collection common.Address, id common.Hash) (uint64, error) {
	var escrowID uint64
	err := n.view(func(tc *txContext) error {
		var err error
		escrowID, err = tc.engine.EscrowIDFor(collection, id)
		return err
	})
	return escrowID, err
}

func (n *Node) MarketBuyerSellerOf(escrowID uint64) (buyer, seller common.Address, err error) {
	err = n.view(func(tc *txContext) error {
		var err error
		buyer, seller, err = tc.engine.BuyerSellerOf(escrowID)
		return err
	})
	return buyer, seller, err
}

func (n *Node) MarketStatusOf(escrowID uint64) (market.Status, error) {
	var status market.Status
	err := n.view(func(tc *txContext) error {
		var err error
		status, err = tc.engine.StatusOf(escrowID)
		return err
	})
	return status, err
}

func (n *Node) MarketEscrowItem(escrowID uint64) (*market.EscrowItem, error) {
	var item *market.EscrowItem
	err := n.view(func(tc *txContext) error {
		var err error
		item, err = tc.engine.EscrowItem(escrowID)
		return err
	})
	return item, err
}

// MarketEscrowItems returns up to limit escrow items starting at from, in id
// order. A zero limit returns every remaining item.
func (n *Node) MarketEscrowItems(from, limit uint64) ([]*market.EscrowItem, error) {
	var items []*market.EscrowItem
	err := n.view(func(tc *txContext) error {
		total, err := tc.engine.TotalEscrowItems()
		if err != nil {
			return err
		}
		if from >= total {
			return nil
		}
		end := total
		if limit > 0 && limit < total-from {
			end = from + limit
		}
		for id := from; id < end; id++ {
			item, err := tc.engine.EscrowItem(id)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

func (n *Node) MarketHeldBalance() (*uint256.Int, error) {
	var held *uint256.Int
	err := n.view(func(tc *txContext) error {
		var err error
		held, err = tc.engine.HeldBalance()
		return err
	})
	return held, err
}

func (n *Node) MarketHeldBalanceOf(pt types.PaymentType) (*uint256.Int, error) {
	var held *uint256.Int
	err := n.view(func(tc *txContext) error {
		var err error
		held, err = tc.engine.HeldBalanceOf(pt)
		return err
	})
	return held, err
}

func (n *Node) MarketTreasury() (common.Address, error) {
	var treasury common.Address
	err := n.view(func(tc *txContext) error {
		var err error
		treasury, err = tc.engine.Treasury()
		return err
	})
	return treasury, err
}

// MarketSolvent reports whether custody balances cover every open item.
func (n *Node) MarketSolvent() (bool, error) {
	var solvent bool
	err := n.view(func(tc *txContext) error {
		var err error
		solvent, err = tc.engine.Solvent()
		return err
	})
	return solvent, err
}
