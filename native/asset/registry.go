package asset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"nftescrow/core/state"
)

var (
	ErrCollectionNotFound = errors.New("asset: collection not found")
	ErrCollectionExists   = errors.New("asset: collection already exists")
	ErrNotCollectionOwner = errors.New("asset: caller is not the collection owner")
	ErrTokenNotFound      = errors.New("asset: token id does not exist")
	ErrNotTokenOwner      = errors.New("asset: caller does not own this token")
	ErrNotOperator        = errors.New("asset: caller is not an operator for this token")
	ErrZeroAddress        = errors.New("asset: zero address")
)

const (
	collectionPrefix = "asset/collection"
	tokenPrefix      = "asset/token"
	holdingPrefix    = "asset/holding"
)

// Receiver is notified after a token has been credited to the address it is
// registered for. Returning an error aborts the transfer.
type Receiver interface {
	OnAssetReceived(collection common.Address, tokenID common.Hash, from common.Address) error
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc func(collection common.Address, tokenID common.Hash, from common.Address) error

// OnAssetReceived implements Receiver.
func (f ReceiverFunc) OnAssetReceived(collection common.Address, tokenID common.Hash, from common.Address) error {
	return f(collection, tokenID, from)
}

// Collection describes a deployed asset collection.
type Collection struct {
	Address     common.Address
	Name        string
	Owner       common.Address
	TotalSupply uint64
}

type collectionRecord struct {
	Name        string
	Owner       common.Address
	TotalSupply uint64
}

type tokenRecord struct {
	Owner     common.Address
	Minter    common.Address
	Metadata  string
	Operators []common.Address
}

// Registry manages every asset collection known to the host. It is the
// reference implementation of the ownership system the marketplace consumes.
type Registry struct {
	kv        state.KV
	receivers map[common.Address]Receiver
}

// NewRegistry binds a registry to the provided state. receivers may be nil.
func NewRegistry(kv state.KV, receivers map[common.Address]Receiver) *Registry {
	return &Registry{kv: kv, receivers: receivers}
}

func collectionKey(addr common.Address) []byte {
	return state.Key(collectionPrefix, addr.Bytes())
}

func tokenKey(collection common.Address, id common.Hash) []byte {
	return state.Key(tokenPrefix, collection.Bytes(), id.Bytes())
}

func holdingKey(collection, owner common.Address) []byte {
	return state.Key(holdingPrefix, collection.Bytes(), owner.Bytes())
}

// TokenIDFromIndex returns the sequential token identifier assigned to the
// index-th mint of a collection.
func TokenIDFromIndex(index uint64) common.Hash {
	var id common.Hash
	binary.BigEndian.PutUint64(id[common.HashLength-8:], index)
	return id
}

func (r *Registry) loadCollection(addr common.Address) (*collectionRecord, error) {
	rec := new(collectionRecord)
	ok, err := state.GetRLP(r.kv, collectionKey(addr), rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, addr.Hex())
	}
	return rec, nil
}

func (r *Registry) loadToken(collection common.Address, id common.Hash) (*tokenRecord, error) {
	if _, err := r.loadCollection(collection); err != nil {
		return nil, err
	}
	rec := new(tokenRecord)
	ok, err := state.GetRLP(r.kv, tokenKey(collection, id), rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	return rec, nil
}

func (r *Registry) adjustHolding(collection, owner common.Address, delta int64) error {
	var count uint64
	if _, err := state.GetRLP(r.kv, holdingKey(collection, owner), &count); err != nil {
		return err
	}
	switch {
	case delta < 0 && count < uint64(-delta):
		return fmt.Errorf("asset: holding underflow for %s", owner.Hex())
	case delta < 0:
		count -= uint64(-delta)
	default:
		count += uint64(delta)
	}
	if count == 0 {
		return r.kv.Delete(holdingKey(collection, owner))
	}
	return state.PutRLP(r.kv, holdingKey(collection, owner), count)
}

// CreateCollection deploys a new collection owned by owner.
func (r *Registry) CreateCollection(addr, owner common.Address, name string) error {
	if addr == (common.Address{}) || owner == (common.Address{}) {
		return ErrZeroAddress
	}
	if _, err := r.loadCollection(addr); err == nil {
		return fmt.Errorf("%w: %s", ErrCollectionExists, addr.Hex())
	} else if !errors.Is(err, ErrCollectionNotFound) {
		return err
	}
	rec := &collectionRecord{Name: strings.TrimSpace(name), Owner: owner}
	return state.PutRLP(r.kv, collectionKey(addr), rec)
}

// Collection returns the collection metadata.
func (r *Registry) Collection(addr common.Address) (*Collection, error) {
	rec, err := r.loadCollection(addr)
	if err != nil {
		return nil, err
	}
	return &Collection{Address: addr, Name: rec.Name, Owner: rec.Owner, TotalSupply: rec.TotalSupply}, nil
}

// Mint creates the next token of the collection for to. Only the collection
// owner may mint.
func (r *Registry) Mint(collection, caller, to common.Address, metadata string) (common.Hash, error) {
	rec, err := r.loadCollection(collection)
	if err != nil {
		return common.Hash{}, err
	}
	if caller != rec.Owner {
		return common.Hash{}, ErrNotCollectionOwner
	}
	if to == (common.Address{}) {
		return common.Hash{}, ErrZeroAddress
	}
	id := TokenIDFromIndex(rec.TotalSupply)
	token := &tokenRecord{Owner: to, Minter: to, Metadata: metadata}
	if err := state.PutRLP(r.kv, tokenKey(collection, id), token); err != nil {
		return common.Hash{}, err
	}
	rec.TotalSupply++
	if err := state.PutRLP(r.kv, collectionKey(collection), rec); err != nil {
		return common.Hash{}, err
	}
	if err := r.adjustHolding(collection, to, 1); err != nil {
		return common.Hash{}, err
	}
	return id, nil
}

// TotalSupply returns the number of tokens minted by the collection.
func (r *Registry) TotalSupply(collection common.Address) (uint64, error) {
	rec, err := r.loadCollection(collection)
	if err != nil {
		return 0, err
	}
	return rec.TotalSupply, nil
}

// BalanceOf returns how many tokens of the collection owner holds.
func (r *Registry) BalanceOf(collection, owner common.Address) (uint64, error) {
	if _, err := r.loadCollection(collection); err != nil {
		return 0, err
	}
	var count uint64
	if _, err := state.GetRLP(r.kv, holdingKey(collection, owner), &count); err != nil {
		return 0, err
	}
	return count, nil
}

// TokenOwnerOf returns the current owner of the token.
func (r *Registry) TokenOwnerOf(collection common.Address, id common.Hash) (common.Address, error) {
	token, err := r.loadToken(collection, id)
	if err != nil {
		return common.Address{}, err
	}
	return token.Owner, nil
}

// MinterOf returns the address the token was originally minted to.
func (r *Registry) MinterOf(collection common.Address, id common.Hash) (common.Address, error) {
	token, err := r.loadToken(collection, id)
	if err != nil {
		return common.Address{}, err
	}
	return token.Minter, nil
}

// MetadataOf returns the metadata recorded at mint time.
func (r *Registry) MetadataOf(collection common.Address, id common.Hash) (string, error) {
	token, err := r.loadToken(collection, id)
	if err != nil {
		return "", err
	}
	return token.Metadata, nil
}
