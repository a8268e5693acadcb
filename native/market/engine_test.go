package market

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"nftescrow/core/events"
	"nftescrow/core/state"
	"nftescrow/core/types"
	"nftescrow/native/asset"
	"nftescrow/native/bank"
	"nftescrow/storage"
)

var (
	marketAddr   = common.HexToAddress("0x4a4e7")
	ownerAddr    = common.HexToAddress("0x0e4e4")
	creatorAddr  = common.HexToAddress("0xc4ea7")
	collection   = common.HexToAddress("0xc011ec7")
	sellerAddr   = common.HexToAddress("0x5e11e4")
	buyerAddr    = common.HexToAddress("0xb0e4")
	strangerAddr = common.HexToAddress("0x57a4e")
	treasuryAddr = common.HexToAddress("0x7ea5")
)

type recorder struct {
	events []*types.Event
}

func (r *recorder) Emit(evt events.Event) {
	if payload := events.PayloadOf(evt); payload != nil {
		r.events = append(r.events, payload)
	}
}

func (r *recorder) eventTypes() []string {
	out := make([]string, len(r.events))
	for i, evt := range r.events {
		out[i] = evt.Type
	}
	return out
}

type harness struct {
	t         *testing.T
	engine    *Engine
	assets    *asset.Registry
	ledger    *bank.Ledger
	emitter   *recorder
	receivers map[common.Address]asset.Receiver
	tokenID   common.Hash
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tx := state.NewManager(storage.NewMemDB()).Begin()
	h := &harness{t: t, emitter: &recorder{}, receivers: make(map[common.Address]asset.Receiver)}
	h.assets = asset.NewRegistry(tx, h.receivers)
	h.ledger = bank.NewLedger(tx)
	h.engine = NewEngine(marketAddr, ownerAddr)
	h.engine.SetState(NewStore(tx))
	h.engine.SetAssets(h.assets)
	h.engine.SetFunds(h.ledger)
	h.engine.SetEmitter(h.emitter)

	if err := h.assets.CreateCollection(collection, creatorAddr, "Family"); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	id, err := h.assets.Mint(collection, creatorAddr, sellerAddr, "heirloom")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	h.tokenID = id
	for pt := types.PaymentType(0); pt < types.NumPaymentTypes; pt++ {
		if err := h.ledger.Credit(buyerAddr, pt, uint256.NewInt(1000)); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}
	return h
}

func (h *harness) authorize() {
	h.t.Helper()
	if err := h.assets.AuthorizeOperator(collection, sellerAddr, marketAddr, h.tokenID); err != nil {
		h.t.Fatalf("authorize: %v", err)
	}
}

func (h *harness) list(price uint64, accepted PaymentTypes) {
	h.t.Helper()
	h.authorize()
	if err := h.engine.List(collection, h.tokenID, uint256.NewInt(price), accepted, sellerAddr); err != nil {
		h.t.Fatalf("list: %v", err)
	}
}

func (h *harness) purchase(price uint64) uint64 {
	h.t.Helper()
	h.list(price, PaymentTypes{true, false, false})
	id, err := h.engine.Purchase(collection, h.tokenID, types.PaymentNative, uint256.NewInt(price), buyerAddr)
	if err != nil {
		h.t.Fatalf("purchase: %v", err)
	}
	return id
}

func (h *harness) status(id uint64) Status {
	h.t.Helper()
	status, err := h.engine.StatusOf(id)
	if err != nil {
		h.t.Fatalf("status: %v", err)
	}
	return status
}

func (h *harness) balance(addr common.Address, pt types.PaymentType) uint64 {
	h.t.Helper()
	bal, err := h.ledger.BalanceOf(addr, pt)
	if err != nil {
		h.t.Fatalf("balance: %v", err)
	}
	return bal.Uint64()
}

func (h *harness) ownerOf() common.Address {
	h.t.Helper()
	owner, err := h.assets.TokenOwnerOf(collection, h.tokenID)
	if err != nil {
		h.t.Fatalf("owner: %v", err)
	}
	return owner
}

func TestScenarioAgreedSettlement(t *testing.T) {
	h := newHarness(t)
	h.list(100, PaymentTypes{true, false, false})

	if onSale, _ := h.engine.IsOnSale(collection, h.tokenID); !onSale {
		t.Fatalf("expected asset on sale")
	}
	id, err := h.engine.Purchase(collection, h.tokenID, types.PaymentNative, uint256.NewInt(100), buyerAddr)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if id != 0 {
		t.Fatalf("expected escrow id 0, got %d", id)
	}
	if onSale, _ := h.engine.IsOnSale(collection, h.tokenID); onSale {
		t.Fatalf("asset should no longer be on sale")
	}
	if total, _ := h.engine.TotalEscrowItems(); total != 1 {
		t.Fatalf("expected one escrow item, got %d", total)
	}
	buyer, seller, err := h.engine.BuyerSellerOf(0)
	if err != nil || buyer != buyerAddr || seller != sellerAddr {
		t.Fatalf("unexpected parties %s %s (%v)", buyer.Hex(), seller.Hex(), err)
	}
	if latest, _ := h.engine.EscrowIDFor(collection, h.tokenID); latest != 0 {
		t.Fatalf("unexpected latest escrow %d", latest)
	}
	if h.ownerOf() != marketAddr {
		t.Fatalf("asset should be held by the marketplace")
	}
	if held, _ := h.engine.HeldBalance(); held.Uint64() != 100 {
		t.Fatalf("expected held balance 100, got %s", held.Dec())
	}

	if err := h.engine.ReportDeliverySuccess(0, sellerAddr); err != nil {
		t.Fatalf("seller confirm: %v", err)
	}
	if h.status(0) != StatusPending {
		t.Fatalf("single confirmation must not settle")
	}
	if err := h.engine.ReportDeliverySuccess(0, buyerAddr); err != nil {
		t.Fatalf("buyer confirm: %v", err)
	}
	if h.status(0) != StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", h.status(0))
	}

	if err := h.engine.FinalizeSettlement(0, sellerAddr); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if h.ownerOf() != buyerAddr {
		t.Fatalf("asset should be held by the buyer")
	}
	if h.status(0) != StatusClosed {
		t.Fatalf("expected CLOSED, got %s", h.status(0))
	}
	if got := h.balance(sellerAddr, types.PaymentNative); got != 100 {
		t.Fatalf("seller should receive 100, got %d", got)
	}
	if got := h.balance(buyerAddr, types.PaymentNative); got != 900 {
		t.Fatalf("buyer should hold 900, got %d", got)
	}
	if held, _ := h.engine.HeldBalance(); !held.IsZero() {
		t.Fatalf("held balance should be zero, got %s", held.Dec())
	}
	if err := h.engine.FinalizeSettlement(0, sellerAddr); !errors.Is(err, ErrEscrowClosed) {
		t.Fatalf("expected ErrEscrowClosed, got %v", err)
	}

	want := []string{EventTypeListed, EventTypePurchased, EventTypeConfirmed, EventTypeConfirmed, EventTypeTransferred}
	got := h.emitter.eventTypes()
	if len(got) != len(want) {
		t.Fatalf("unexpected events %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if h.emitter.events[1].Attr("escrowId") != "0" {
		t.Fatalf("purchased event must carry the escrow id")
	}
}

func TestScenarioDisputeOverridesConfirmation(t *testing.T) {
	h := newHarness(t)
	id := h.purchase(100)

	if err := h.engine.ReportDeliverySuccess(id, sellerAddr); err != nil {
		t.Fatalf("seller confirm: %v", err)
	}
	if err := h.engine.ReportDispute(id, buyerAddr); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if h.status(id) != StatusDisrupted {
		t.Fatalf("expected DISRUPTED, got %s", h.status(id))
	}
	for _, party := range []common.Address{buyerAddr, sellerAddr} {
		if err := h.engine.ReportDeliverySuccess(id, party); err != nil {
			t.Fatalf("confirm after dispute: %v", err)
		}
		if h.status(id) != StatusDisrupted {
			t.Fatalf("confirmation must not lift a dispute")
		}
	}
	if err := h.engine.FinalizeSettlement(id, buyerAddr); !errors.Is(err, ErrNotAgreed) {
		t.Fatalf("expected ErrNotAgreed, got %v", err)
	}
	if err := h.engine.ReportDispute(id, sellerAddr); err != nil {
		t.Fatalf("repeat dispute should be a no-op: %v", err)
	}
}

func TestScenarioPriceMismatchCreatesNothing(t *testing.T) {
	h := newHarness(t)
	h.list(100, PaymentTypes{true, false, false})

	for _, amount := range []uint64{99, 101} {
		_, err := h.engine.Purchase(collection, h.tokenID, types.PaymentNative, uint256.NewInt(amount), buyerAddr)
		if !errors.Is(err, ErrPriceMismatch) || !errors.Is(err, ErrPayment) {
			t.Fatalf("expected payment error for %d, got %v", amount, err)
		}
	}
	if total, _ := h.engine.TotalEscrowItems(); total != 0 {
		t.Fatalf("no escrow item should exist, got %d", total)
	}
	if onSale, _ := h.engine.IsOnSale(collection, h.tokenID); !onSale {
		t.Fatalf("listing should remain active")
	}
}

func TestPurchaseRejectsUnacceptedPaymentType(t *testing.T) {
	h := newHarness(t)
	h.list(100, PaymentTypes{false, true, false})

	if _, err := h.engine.Purchase(collection, h.tokenID, types.PaymentNative, uint256.NewInt(100), buyerAddr); !errors.Is(err, ErrPaymentTypeNotAccepted) {
		t.Fatalf("expected ErrPaymentTypeNotAccepted, got %v", err)
	}
	id, err := h.engine.Purchase(collection, h.tokenID, types.PaymentTokenA, uint256.NewInt(100), buyerAddr)
	if err != nil {
		t.Fatalf("purchase with token A: %v", err)
	}
	if held, _ := h.engine.HeldBalanceOf(types.PaymentTokenA); held.Uint64() != 100 {
		t.Fatalf("expected 100 token A held, got %s", held.Dec())
	}
	if held, _ := h.engine.HeldBalanceOf(types.PaymentNative); !held.IsZero() {
		t.Fatalf("native held balance should be zero")
	}
	item, _ := h.engine.EscrowItem(id)
	if item.PaymentType != types.PaymentTokenA {
		t.Fatalf("escrow should record token A payment")
	}
}

func TestPurchaseWithInsufficientFunds(t *testing.T) {
	h := newHarness(t)
	h.list(5000, PaymentTypes{true, false, false})
	if _, err := h.engine.Purchase(collection, h.tokenID, types.PaymentNative, uint256.NewInt(5000), buyerAddr); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestListRequiresOwnershipAndAuthorization(t *testing.T) {
	h := newHarness(t)
	price := uint256.NewInt(100)
	accepted := PaymentTypes{true, false, false}

	if err := h.engine.List(collection, h.tokenID, price, accepted, strangerAddr); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := h.engine.List(collection, h.tokenID, price, accepted, sellerAddr); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := h.engine.List(collection, asset.TokenIDFromIndex(42), price, accepted, sellerAddr); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
	h.authorize()
	if err := h.engine.List(collection, h.tokenID, price, PaymentTypes{}, sellerAddr); !errors.Is(err, ErrNoPaymentTypes) {
		t.Fatalf("expected ErrNoPaymentTypes, got %v", err)
	}
	if err := h.engine.List(collection, h.tokenID, price, accepted, sellerAddr); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := h.engine.List(collection, h.tokenID, price, accepted, sellerAddr); !errors.Is(err, ErrAlreadyListed) {
		t.Fatalf("expected ErrAlreadyListed, got %v", err)
	}
}

func TestRepriceAndDelist(t *testing.T) {
	h := newHarness(t)
	if err := h.engine.Reprice(collection, h.tokenID, uint256.NewInt(5), sellerAddr); !errors.Is(err, ErrNotOnSale) {
		t.Fatalf("expected ErrNotOnSale, got %v", err)
	}
	if err := h.engine.Delist(collection, h.tokenID, sellerAddr); !errors.Is(err, ErrNotOnSale) {
		t.Fatalf("expected ErrNotOnSale, got %v", err)
	}
	if _, err := h.engine.Price(collection, h.tokenID); !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound, got %v", err)
	}

	h.list(100, PaymentTypes{true, true, false})
	if err := h.engine.Reprice(collection, h.tokenID, uint256.NewInt(250), buyerAddr); !errors.Is(err, ErrNotSeller) {
		t.Fatalf("expected ErrNotSeller, got %v", err)
	}
	if err := h.engine.Reprice(collection, h.tokenID, uint256.NewInt(250), sellerAddr); err != nil {
		t.Fatalf("reprice: %v", err)
	}
	if price, _ := h.engine.Price(collection, h.tokenID); price.Uint64() != 250 {
		t.Fatalf("expected price 250, got %s", price.Dec())
	}
	if err := h.engine.Delist(collection, h.tokenID, sellerAddr); err != nil {
		t.Fatalf("delist: %v", err)
	}
	if onSale, _ := h.engine.IsOnSale(collection, h.tokenID); onSale {
		t.Fatalf("asset should not be on sale after delist")
	}
	accepted, err := h.engine.AcceptedPaymentTypes(collection, h.tokenID)
	if err != nil || accepted != (PaymentTypes{true, true, false}) {
		t.Fatalf("last listing should remain readable: %v %v", accepted, err)
	}
}

func TestRevokedAuthorizationTakesListingOffSale(t *testing.T) {
	h := newHarness(t)
	h.list(100, PaymentTypes{true, false, false})
	if err := h.assets.RevokeOperator(collection, sellerAddr, marketAddr, h.tokenID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if onSale, _ := h.engine.IsOnSale(collection, h.tokenID); onSale {
		t.Fatalf("listing must not be on sale once authorization is revoked")
	}
	if _, err := h.engine.Purchase(collection, h.tokenID, types.PaymentNative, uint256.NewInt(100), buyerAddr); !errors.Is(err, ErrNotOnSale) {
		t.Fatalf("expected ErrNotOnSale, got %v", err)
	}
	if got := h.balance(buyerAddr, types.PaymentNative); got != 1000 {
		t.Fatalf("buyer funds must be untouched, got %d", got)
	}
}

func TestConfirmationRequiresParty(t *testing.T) {
	h := newHarness(t)
	id := h.purchase(100)
	if err := h.engine.ReportDeliverySuccess(id, strangerAddr); !errors.Is(err, ErrNotParty) {
		t.Fatalf("expected ErrNotParty, got %v", err)
	}
	if err := h.engine.ReportDispute(id, strangerAddr); !errors.Is(err, ErrNotParty) {
		t.Fatalf("expected ErrNotParty, got %v", err)
	}
	if err := h.engine.ReportDeliverySuccess(99, buyerAddr); !errors.Is(err, ErrEscrowNotFound) {
		t.Fatalf("expected ErrEscrowNotFound, got %v", err)
	}
	if err := h.engine.ReportDeliverySuccess(id, buyerAddr); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := h.engine.ReportDeliverySuccess(id, buyerAddr); err != nil {
		t.Fatalf("repeat confirm should be idempotent: %v", err)
	}
	if h.status(id) != StatusPending {
		t.Fatalf("buyer-only confirmation must stay pending")
	}
}

func TestDisputeAfterSuccessBlocksSettlement(t *testing.T) {
	h := newHarness(t)
	id := h.purchase(100)
	_ = h.engine.ReportDeliverySuccess(id, sellerAddr)
	_ = h.engine.ReportDeliverySuccess(id, buyerAddr)
	if err := h.engine.ReportDispute(id, sellerAddr); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if h.status(id) != StatusDisrupted {
		t.Fatalf("expected DISRUPTED, got %s", h.status(id))
	}
	if err := h.engine.FinalizeSettlement(id, buyerAddr); !errors.Is(err, ErrNotAgreed) {
		t.Fatalf("expected ErrNotAgreed, got %v", err)
	}
}

func TestWithdrawAndRefund(t *testing.T) {
	h := newHarness(t)
	id := h.purchase(100)

	if err := h.engine.ReportWithdraw(id, buyerAddr); !errors.Is(err, ErrNotSeller) {
		t.Fatalf("expected ErrNotSeller, got %v", err)
	}
	if err := h.engine.SettleWithdrawal(id, sellerAddr); !errors.Is(err, ErrNotWithdrawn) {
		t.Fatalf("expected ErrNotWithdrawn, got %v", err)
	}
	if err := h.engine.ReportWithdraw(id, sellerAddr); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if h.status(id) != StatusWithdrawn {
		t.Fatalf("expected WITHDRAWN, got %s", h.status(id))
	}
	if err := h.engine.ReportDispute(id, buyerAddr); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	if err := h.engine.ReportDeliverySuccess(id, buyerAddr); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	if err := h.engine.FinalizeSettlement(id, sellerAddr); !errors.Is(err, ErrNotAgreed) {
		t.Fatalf("expected ErrNotAgreed, got %v", err)
	}
	if err := h.engine.SettleWithdrawal(id, strangerAddr); !errors.Is(err, ErrNotParty) {
		t.Fatalf("expected ErrNotParty, got %v", err)
	}
	if err := h.engine.SettleWithdrawal(id, buyerAddr); err != nil {
		t.Fatalf("settle withdrawal: %v", err)
	}
	if h.ownerOf() != sellerAddr {
		t.Fatalf("asset should return to seller")
	}
	if got := h.balance(buyerAddr, types.PaymentNative); got != 1000 {
		t.Fatalf("buyer should be refunded, got %d", got)
	}
	if h.status(id) != StatusClosed {
		t.Fatalf("expected CLOSED")
	}
}

func TestWithdrawBlockedAfterBuyerConfirms(t *testing.T) {
	h := newHarness(t)
	id := h.purchase(100)
	if err := h.engine.ReportDeliverySuccess(id, buyerAddr); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := h.engine.ReportWithdraw(id, sellerAddr); !errors.Is(err, ErrBuyerConfirmed) {
		t.Fatalf("expected ErrBuyerConfirmed, got %v", err)
	}
}

func TestSettleDisputeRoutesToTreasury(t *testing.T) {
	h := newHarness(t)
	id := h.purchase(100)
	if err := h.engine.ReportDispute(id, buyerAddr); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if err := h.engine.SettleDispute(id, ownerAddr); !errors.Is(err, ErrTreasuryNotSet) {
		t.Fatalf("expected ErrTreasuryNotSet, got %v", err)
	}
	if err := h.engine.SetTreasury(treasuryAddr, ownerAddr); err != nil {
		t.Fatalf("set treasury: %v", err)
	}
	if err := h.engine.SettleDispute(id, buyerAddr); !errors.Is(err, ErrNotMarketOwner) {
		t.Fatalf("expected ErrNotMarketOwner, got %v", err)
	}
	if err := h.engine.SettleDispute(id, ownerAddr); err != nil {
		t.Fatalf("settle dispute: %v", err)
	}
	if h.ownerOf() != treasuryAddr {
		t.Fatalf("asset should be routed to treasury")
	}
	if got := h.balance(treasuryAddr, types.PaymentNative); got != 100 {
		t.Fatalf("treasury should hold the payment, got %d", got)
	}
	if err := h.engine.SettleDispute(id, ownerAddr); !errors.Is(err, ErrEscrowClosed) {
		t.Fatalf("expected ErrEscrowClosed, got %v", err)
	}
}

func TestSetTreasuryRequiresOwner(t *testing.T) {
	h := newHarness(t)
	if err := h.engine.SetTreasury(treasuryAddr, strangerAddr); !errors.Is(err, ErrNotMarketOwner) || !errors.Is(err, ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if treasury, _ := h.engine.Treasury(); treasury != (common.Address{}) {
		t.Fatalf("treasury must be unchanged, got %s", treasury.Hex())
	}
	if err := h.engine.SetTreasury(common.Address{}, ownerAddr); !errors.Is(err, ErrInvalidTreasury) {
		t.Fatalf("expected ErrInvalidTreasury, got %v", err)
	}
	if err := h.engine.SetTreasury(treasuryAddr, ownerAddr); err != nil {
		t.Fatalf("set treasury: %v", err)
	}
	if treasury, _ := h.engine.Treasury(); treasury != treasuryAddr {
		t.Fatalf("unexpected treasury %s", treasury.Hex())
	}
}

func TestRelistAfterSettlementOpensNewEscrow(t *testing.T) {
	h := newHarness(t)
	first := h.purchase(100)
	_ = h.engine.ReportDeliverySuccess(first, sellerAddr)
	_ = h.engine.ReportDeliverySuccess(first, buyerAddr)
	if err := h.engine.FinalizeSettlement(first, buyerAddr); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if err := h.assets.AuthorizeOperator(collection, buyerAddr, marketAddr, h.tokenID); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := h.engine.List(collection, h.tokenID, uint256.NewInt(300), PaymentTypes{true, false, false}, buyerAddr); err != nil {
		t.Fatalf("relist: %v", err)
	}
	if err := h.ledger.Credit(strangerAddr, types.PaymentNative, uint256.NewInt(300)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	second, err := h.engine.Purchase(collection, h.tokenID, types.PaymentNative, uint256.NewInt(300), strangerAddr)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if second != first+1 {
		t.Fatalf("escrow ids must increase, got %d after %d", second, first)
	}
	if latest, _ := h.engine.EscrowIDFor(collection, h.tokenID); latest != second {
		t.Fatalf("latest escrow should be %d, got %d", second, latest)
	}
	if h.status(first) != StatusClosed {
		t.Fatalf("first escrow must remain closed")
	}
}

func TestReentrantSettlementIsRejected(t *testing.T) {
	h := newHarness(t)
	id := h.purchase(100)
	_ = h.engine.ReportDeliverySuccess(id, sellerAddr)
	_ = h.engine.ReportDeliverySuccess(id, buyerAddr)

	var reentrant []error
	h.receivers[buyerAddr] = asset.ReceiverFunc(func(common.Address, common.Hash, common.Address) error {
		reentrant = append(reentrant,
			h.engine.FinalizeSettlement(id, buyerAddr),
			h.engine.ReportDispute(id, buyerAddr),
		)
		status, err := h.engine.StatusOf(id)
		if err != nil || status != StatusClosed {
			t.Errorf("item must already be closed during transfer, got %s (%v)", status, err)
		}
		return nil
	})

	if err := h.engine.FinalizeSettlement(id, sellerAddr); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(reentrant) != 2 {
		t.Fatalf("receiver hook was not invoked")
	}
	for _, err := range reentrant {
		if !errors.Is(err, ErrTransferInProgress) {
			t.Fatalf("expected ErrTransferInProgress, got %v", err)
		}
	}
	if got := h.balance(sellerAddr, types.PaymentNative); got != 100 {
		t.Fatalf("seller must be paid exactly once, got %d", got)
	}
	if err := h.engine.FinalizeSettlement(id, sellerAddr); !errors.Is(err, ErrEscrowClosed) {
		t.Fatalf("expected ErrEscrowClosed, got %v", err)
	}
}

func TestMarketplaceCannotListCustodyAsset(t *testing.T) {
	h := newHarness(t)
	first := h.purchase(100)

	if err := h.assets.AuthorizeOperator(collection, marketAddr, marketAddr, h.tokenID); err != nil {
		t.Fatalf("self authorize: %v", err)
	}
	err := h.engine.List(collection, h.tokenID, uint256.NewInt(50), PaymentTypes{true, false, false}, marketAddr)
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if onSale, _ := h.engine.IsOnSale(collection, h.tokenID); onSale {
		t.Fatalf("custody asset must not be on sale")
	}
	if _, err := h.engine.Purchase(collection, h.tokenID, types.PaymentNative, uint256.NewInt(50), strangerAddr); !errors.Is(err, ErrNotOnSale) {
		t.Fatalf("expected ErrNotOnSale, got %v", err)
	}
	if total, _ := h.engine.TotalEscrowItems(); total != 1 {
		t.Fatalf("expected a single escrow item, got %d", total)
	}
	if h.status(first) != StatusPending {
		t.Fatalf("first escrow should stay pending, got %s", h.status(first))
	}
}

func TestMarketplaceCannotBuy(t *testing.T) {
	h := newHarness(t)
	h.purchase(100)

	second, err := h.assets.Mint(collection, creatorAddr, sellerAddr, "locket")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := h.assets.AuthorizeOperator(collection, sellerAddr, marketAddr, second); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := h.engine.List(collection, second, uint256.NewInt(100), PaymentTypes{true, false, false}, sellerAddr); err != nil {
		t.Fatalf("list: %v", err)
	}

	_, err = h.engine.Purchase(collection, second, types.PaymentNative, uint256.NewInt(100), marketAddr)
	if !errors.Is(err, ErrCustodyBuyer) || !errors.Is(err, ErrAuthorization) {
		t.Fatalf("expected ErrCustodyBuyer, got %v", err)
	}
	if held, _ := h.engine.HeldBalance(); held.Uint64() != 100 {
		t.Fatalf("held balance should stay 100, got %s", held.Dec())
	}
	if got := h.balance(marketAddr, types.PaymentNative); got != 100 {
		t.Fatalf("custody balance should stay 100, got %d", got)
	}
	if solvent, err := h.engine.Solvent(); err != nil || !solvent {
		t.Fatalf("marketplace must stay solvent (%v)", err)
	}
	if onSale, _ := h.engine.IsOnSale(collection, second); !onSale {
		t.Fatalf("second asset should still be on sale")
	}
}
