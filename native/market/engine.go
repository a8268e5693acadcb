package market

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"nftescrow/core/events"
	"nftescrow/core/types"
)

// AssetLedger is the capability the engine consumes from the asset ownership
// system. The engine never tracks ownership itself.
type AssetLedger interface {
	TokenOwnerOf(collection common.Address, id common.Hash) (common.Address, error)
	IsOperatorFor(collection, operator common.Address, id common.Hash) (bool, error)
	Transfer(collection, caller, from, to common.Address, id common.Hash) error
}

// ValueTransfer moves payment between addresses in a given currency.
type ValueTransfer interface {
	BalanceOf(addr common.Address, pt types.PaymentType) (*uint256.Int, error)
	Transfer(pt types.PaymentType, from, to common.Address, amount *uint256.Int) error
}

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// Engine implements the listing registry, the escrow ledger and the settlement
// state machine. The marketplace holds custody of assets and payments under
// its own address while an escrow item is open.
type Engine struct {
	state    engineState
	assets   AssetLedger
	funds    ValueTransfer
	emitter  events.Emitter
	address  common.Address
	owner    common.Address
	inFlight map[uint64]struct{}
}

// NewEngine creates an engine acting as address, administered by owner. State
// and collaborators must be configured before use.
func NewEngine(address, owner common.Address) *Engine {
	return &Engine{
		emitter:  events.NoopEmitter{},
		address:  address,
		owner:    owner,
		inFlight: make(map[uint64]struct{}),
	}
}

// SetState configures the persistence backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAssets configures the asset ownership collaborator.
func (e *Engine) SetAssets(assets AssetLedger) { e.assets = assets }

// SetFunds configures the value-transfer primitive.
func (e *Engine) SetFunds(funds ValueTransfer) { e.funds = funds }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Address returns the custody address of the marketplace.
func (e *Engine) Address() common.Address { return e.address }

// Owner returns the fixed marketplace owner.
func (e *Engine) Owner() common.Address { return e.owner }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: event})
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.assets == nil || e.funds == nil {
		return errNilState
	}
	return nil
}

// enter marks an escrow item as having a custody transfer in flight. The
// returned release func must be called once the transfers have returned.
func (e *Engine) enter(id uint64) (func(), error) {
	if _, busy := e.inFlight[id]; busy {
		return nil, ErrTransferInProgress
	}
	e.inFlight[id] = struct{}{}
	return func() { delete(e.inFlight, id) }, nil
}

func (e *Engine) busy(id uint64) bool {
	_, ok := e.inFlight[id]
	return ok
}
