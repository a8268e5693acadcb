package market

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"nftescrow/core/state"
	"nftescrow/core/types"
)

const (
	listingPrefix  = "market/listing"
	escrowPrefix   = "market/escrow"
	latestPrefix   = "market/latest"
	heldPrefix     = "market/held"
	counterKeyName = "market/escrow-count"
	treasuryKey    = "market/treasury"
)

// engineState is the persistence surface the engine depends on. Store
// implements it over a transactional key/value view.
type engineState interface {
	ListingGet(collection common.Address, id common.Hash) (*Listing, bool, error)
	ListingPut(*Listing) error
	EscrowGet(id uint64) (*EscrowItem, bool, error)
	EscrowPut(*EscrowItem) error
	EscrowCount() (uint64, error)
	SetEscrowCount(uint64) error
	LatestEscrow(collection common.Address, id common.Hash) (uint64, bool, error)
	SetLatestEscrow(collection common.Address, id common.Hash, escrowID uint64) error
	HeldBalance(pt types.PaymentType) (*uint256.Int, error)
	SetHeldBalance(pt types.PaymentType, amount *uint256.Int) error
	Treasury() (common.Address, error)
	SetTreasury(common.Address) error
}

// Store persists listings, escrow items and admin settings as RLP records.
type Store struct {
	kv state.KV
}

// NewStore binds a store to the supplied key/value view.
func NewStore(kv state.KV) *Store { return &Store{kv: kv} }

func listingKey(collection common.Address, id common.Hash) []byte {
	return state.Key(listingPrefix, collection.Bytes(), id.Bytes())
}

func escrowKey(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return state.Key(escrowPrefix, buf[:])
}

func latestKey(collection common.Address, id common.Hash) []byte {
	return state.Key(latestPrefix, collection.Bytes(), id.Bytes())
}

func heldKey(pt types.PaymentType) []byte {
	return state.Key(heldPrefix, []byte{byte(pt)})
}

func (s *Store) ListingGet(collection common.Address, id common.Hash) (*Listing, bool, error) {
	listing := new(Listing)
	ok, err := state.GetRLP(s.kv, listingKey(collection, id), listing)
	if err != nil || !ok {
		return nil, false, err
	}
	return listing, true, nil
}

func (s *Store) ListingPut(l *Listing) error {
	return state.PutRLP(s.kv, listingKey(l.Collection, l.TokenID), l)
}

func (s *Store) EscrowGet(id uint64) (*EscrowItem, bool, error) {
	item := new(EscrowItem)
	ok, err := state.GetRLP(s.kv, escrowKey(id), item)
	if err != nil || !ok {
		return nil, false, err
	}
	return item, true, nil
}

func (s *Store) EscrowPut(item *EscrowItem) error {
	return state.PutRLP(s.kv, escrowKey(item.ID), item)
}

func (s *Store) EscrowCount() (uint64, error) {
	var count uint64
	if _, err := state.GetRLP(s.kv, state.Key(counterKeyName), &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) SetEscrowCount(count uint64) error {
	return state.PutRLP(s.kv, state.Key(counterKeyName), count)
}

func (s *Store) LatestEscrow(collection common.Address, id common.Hash) (uint64, bool, error) {
	var escrowID uint64
	ok, err := state.GetRLP(s.kv, latestKey(collection, id), &escrowID)
	if err != nil || !ok {
		return 0, false, err
	}
	return escrowID, true, nil
}

func (s *Store) SetLatestEscrow(collection common.Address, id common.Hash, escrowID uint64) error {
	return state.PutRLP(s.kv, latestKey(collection, id), escrowID)
}

func (s *Store) HeldBalance(pt types.PaymentType) (*uint256.Int, error) {
	amount := new(uint256.Int)
	if _, err := state.GetRLP(s.kv, heldKey(pt), amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (s *Store) SetHeldBalance(pt types.PaymentType, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return s.kv.Delete(heldKey(pt))
	}
	return state.PutRLP(s.kv, heldKey(pt), amount)
}

func (s *Store) Treasury() (common.Address, error) {
	var addr common.Address
	if _, err := state.GetRLP(s.kv, state.Key(treasuryKey), &addr); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

func (s *Store) SetTreasury(addr common.Address) error {
	return state.PutRLP(s.kv, state.Key(treasuryKey), addr)
}
