package asset

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"nftescrow/core/state"
	"nftescrow/storage"
)

var (
	collectionAddr = common.HexToAddress("0xc011ec7")
	creator        = common.HexToAddress("0xc4ea7")
	alice          = common.HexToAddress("0xa11ce")
	bob            = common.HexToAddress("0xb0b")
	market         = common.HexToAddress("0x4a4e7")
)

func newRegistry(t *testing.T, receivers map[common.Address]Receiver) *Registry {
	t.Helper()
	reg := NewRegistry(state.NewManager(storage.NewMemDB()).Begin(), receivers)
	if err := reg.CreateCollection(collectionAddr, creator, "Family"); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	return reg
}

func TestMintAssignsSequentialIDs(t *testing.T) {
	reg := newRegistry(t, nil)
	first, err := reg.Mint(collectionAddr, creator, alice, "first")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	second, err := reg.Mint(collectionAddr, creator, bob, "second")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if first != TokenIDFromIndex(0) || second != TokenIDFromIndex(1) {
		t.Fatalf("unexpected ids %s %s", first.Hex(), second.Hex())
	}
	if first != (common.Hash{}) {
		t.Fatalf("first token should be the zero hash, got %s", first.Hex())
	}
	supply, _ := reg.TotalSupply(collectionAddr)
	if supply != 2 {
		t.Fatalf("expected supply 2, got %d", supply)
	}
	meta, _ := reg.MetadataOf(collectionAddr, second)
	if meta != "second" {
		t.Fatalf("unexpected metadata %q", meta)
	}
	minter, _ := reg.MinterOf(collectionAddr, second)
	if minter != bob {
		t.Fatalf("unexpected minter %s", minter.Hex())
	}
}

func TestMintRequiresCollectionOwner(t *testing.T) {
	reg := newRegistry(t, nil)
	if _, err := reg.Mint(collectionAddr, alice, alice, ""); !errors.Is(err, ErrNotCollectionOwner) {
		t.Fatalf("expected ErrNotCollectionOwner, got %v", err)
	}
}

func TestUnknownTokenIsReported(t *testing.T) {
	reg := newRegistry(t, nil)
	if _, err := reg.TokenOwnerOf(collectionAddr, TokenIDFromIndex(7)); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	if _, err := reg.TokenOwnerOf(common.HexToAddress("0xdead"), TokenIDFromIndex(0)); !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestOperatorLifecycle(t *testing.T) {
	reg := newRegistry(t, nil)
	id, _ := reg.Mint(collectionAddr, creator, alice, "")

	if err := reg.AuthorizeOperator(collectionAddr, bob, market, id); !errors.Is(err, ErrNotTokenOwner) {
		t.Fatalf("expected ErrNotTokenOwner, got %v", err)
	}
	if err := reg.AuthorizeOperator(collectionAddr, alice, market, id); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if ok, _ := reg.IsOperatorFor(collectionAddr, market, id); !ok {
		t.Fatalf("expected market to be operator")
	}
	if err := reg.RevokeOperator(collectionAddr, alice, market, id); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, _ := reg.IsOperatorFor(collectionAddr, market, id); ok {
		t.Fatalf("expected operator to be revoked")
	}
}

func TestTransferByOperatorClearsOperators(t *testing.T) {
	reg := newRegistry(t, nil)
	id, _ := reg.Mint(collectionAddr, creator, alice, "")
	if err := reg.AuthorizeOperator(collectionAddr, alice, market, id); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := reg.Transfer(collectionAddr, bob, alice, bob, id); !errors.Is(err, ErrNotOperator) {
		t.Fatalf("expected ErrNotOperator, got %v", err)
	}
	if err := reg.Transfer(collectionAddr, market, alice, market, id); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	owner, _ := reg.TokenOwnerOf(collectionAddr, id)
	if owner != market {
		t.Fatalf("expected market owner, got %s", owner.Hex())
	}
	if ok, _ := reg.IsOperatorFor(collectionAddr, market, id); ok {
		t.Fatalf("operators should be cleared on transfer")
	}
	aliceCount, _ := reg.BalanceOf(collectionAddr, alice)
	marketCount, _ := reg.BalanceOf(collectionAddr, market)
	if aliceCount != 0 || marketCount != 1 {
		t.Fatalf("unexpected holdings alice=%d market=%d", aliceCount, marketCount)
	}
}

func TestTransferNotifiesReceiver(t *testing.T) {
	var notified []common.Address
	hookErr := errors.New("rejected")
	receivers := map[common.Address]Receiver{
		bob: ReceiverFunc(func(_ common.Address, _ common.Hash, from common.Address) error {
			notified = append(notified, from)
			return nil
		}),
		market: ReceiverFunc(func(common.Address, common.Hash, common.Address) error {
			return hookErr
		}),
	}
	reg := newRegistry(t, receivers)
	id, _ := reg.Mint(collectionAddr, creator, alice, "")

	if err := reg.Transfer(collectionAddr, alice, alice, bob, id); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(notified) != 1 || notified[0] != alice {
		t.Fatalf("unexpected notifications %v", notified)
	}
	if err := reg.Transfer(collectionAddr, bob, bob, market, id); !errors.Is(err, hookErr) {
		t.Fatalf("expected hook error, got %v", err)
	}
}
