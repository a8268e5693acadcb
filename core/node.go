package core

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	nodeerrors "nftescrow/core/errors"
	"nftescrow/core/events"
	"nftescrow/core/state"
	"nftescrow/core/types"
	"nftescrow/native/asset"
	"nftescrow/native/bank"
	"nftescrow/native/market"
	"nftescrow/observability"
	telemetry "nftescrow/observability/otel"
	"nftescrow/storage"
)

// Receiver is notified when an asset lands on the address it is registered
// for. It runs inside the transaction that moved the asset and may call back
// into the engine; a returned error aborts that transaction.
type Receiver interface {
	OnAssetReceived(engine *market.Engine, collection common.Address, tokenID common.Hash, from common.Address) error
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc func(engine *market.Engine, collection common.Address, tokenID common.Hash, from common.Address) error

// OnAssetReceived implements Receiver.
func (f ReceiverFunc) OnAssetReceived(engine *market.Engine, collection common.Address, tokenID common.Hash, from common.Address) error {
	return f(engine, collection, tokenID, from)
}

// Config carries the identities the node runs the marketplace under.
type Config struct {
	// Address is the marketplace custody address.
	Address common.Address
	// Owner is the fixed marketplace owner allowed to rotate the treasury and
	// settle disputes.
	Owner common.Address
}

// Node hosts the marketplace. Every public operation runs as one serialized
// transaction over the state database: it commits in full or has no effect,
// and its events reach observers only after the commit.
type Node struct {
	db        storage.Database
	manager   *state.Manager
	cfg       Config
	stateMu   sync.Mutex
	emitter   events.Emitter
	receivers map[common.Address]Receiver
	logger    *slog.Logger
	metrics   *observability.MarketMetrics
	otlp      *telemetry.Instruments
	tracer    trace.Tracer
	closed    bool
}

// NewNode creates a node over db. The database is owned by the node and is
// closed by Close.
func NewNode(db storage.Database, cfg Config) (*Node, error) {
	if db == nil {
		return nil, nodeerrors.ErrNilDatabase
	}
	manager := state.NewManager(db)
	tx := manager.Begin()
	err := state.EnsureStateVersion(tx)
	tx.Discard()
	if err != nil {
		return nil, err
	}
	instruments, err := telemetry.NewInstruments(telemetry.Meter())
	if err != nil {
		return nil, err
	}
	return &Node{
		db:        db,
		manager:   manager,
		cfg:       cfg,
		emitter:   events.NoopEmitter{},
		receivers: make(map[common.Address]Receiver),
		logger:    slog.Default(),
		metrics:   observability.Market(),
		otlp:      instruments,
		tracer:    telemetry.Tracer(),
	}, nil
}

// SetEmitter configures the observer receiving committed events. Passing nil
// resets the emitter to a no-op implementation.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if emitter == nil {
		n.emitter = events.NoopEmitter{}
		return
	}
	n.emitter = emitter
}

// SetLogger overrides the logger. Passing nil restores slog.Default().
func (n *Node) SetLogger(logger *slog.Logger) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger
}

// RegisterReceiver installs a receiver hook for addr.
func (n *Node) RegisterReceiver(addr common.Address, receiver Receiver) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if _, exists := n.receivers[addr]; exists {
		return nodeerrors.ErrReceiverPresent
	}
	n.receivers[addr] = receiver
	return nil
}

// MarketAddress returns the custody address of the marketplace.
func (n *Node) MarketAddress() common.Address { return n.cfg.Address }

// Owner returns the marketplace owner.
func (n *Node) Owner() common.Address { return n.cfg.Owner }

// Close releases the database.
func (n *Node) Close() {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	n.db.Close()
}

// txContext bundles the modules bound to one state transaction.
type txContext struct {
	tx     *state.Tx
	engine *market.Engine
	assets *asset.Registry
	ledger *bank.Ledger
}

func (n *Node) newTxContext(tx *state.Tx, emitter events.Emitter) *txContext {
	tc := &txContext{tx: tx, ledger: bank.NewLedger(tx)}
	engine := market.NewEngine(n.cfg.Address, n.cfg.Owner)
	hooks := make(map[common.Address]asset.Receiver, len(n.receivers))
	for addr, receiver := range n.receivers {
		receiver := receiver
		hooks[addr] = asset.ReceiverFunc(func(collection common.Address, id common.Hash, from common.Address) error {
			return receiver.OnAssetReceived(engine, collection, id, from)
		})
	}
	tc.assets = asset.NewRegistry(tx, hooks)
	engine.SetState(market.NewStore(tx))
	engine.SetAssets(tc.assets)
	engine.SetFunds(tc.ledger)
	engine.SetEmitter(emitter)
	tc.engine = engine
	return tc
}

// execute runs fn inside a fresh transaction. Staged writes are committed and
// buffered events flushed only when fn succeeds.
func (n *Node) execute(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(*txContext) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if n.closed {
		return nodeerrors.ErrNodeClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := n.tracer.Start(ctx, "market."+op, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	tx := n.manager.Begin()
	buffer := events.NewBuffer()
	tc := n.newTxContext(tx, buffer)

	err := fn(tc)
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		tx.Discard()
		outcome := outcomeOf(err)
		n.metrics.RecordOperation(op, outcome, time.Since(start))
		n.otlp.RecordOperation(ctx, op, outcome, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		n.logger.Info("market operation rejected", "op", op, "kind", outcome, "error", err.Error())
		return err
	}

	n.metrics.RecordOperation(op, "committed", time.Since(start))
	n.otlp.RecordOperation(ctx, op, "committed", time.Since(start))
	n.publishGauges()
	pending := buffer.Events()
	buffer.Flush(n.emitter)
	span.SetAttributes(attribute.Int("market.events", len(pending)))
	n.logger.Debug("market operation committed", "op", op, "events", len(pending))
	return nil
}

// view runs fn against the committed state. Writes are discarded.
func (n *Node) view(fn func(*txContext) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if n.closed {
		return nodeerrors.ErrNodeClosed
	}
	tx := n.manager.Begin()
	defer tx.Discard()
	return fn(n.newTxContext(tx, events.NoopEmitter{}))
}

func (n *Node) publishGauges() {
	tx := n.manager.Begin()
	defer tx.Discard()
	tc := n.newTxContext(tx, events.NoopEmitter{})
	for pt := types.PaymentType(0); pt < types.NumPaymentTypes; pt++ {
		held, err := tc.engine.HeldBalanceOf(pt)
		if err != nil {
			n.logger.Warn("read held balance", "paymentType", pt.String(), "error", err.Error())
			continue
		}
		n.metrics.SetHeldBalance(pt.String(), held)
	}
	if total, err := tc.engine.TotalEscrowItems(); err == nil {
		n.metrics.SetEscrowCount(total)
	}
}

func outcomeOf(err error) string {
	switch market.KindOf(err) {
	case market.ErrAuthorization:
		return "authorization"
	case market.ErrState:
		return "state"
	case market.ErrPayment:
		return "payment"
	case market.ErrNotFound:
		return "not_found"
	}
	switch {
	case errors.Is(err, asset.ErrTokenNotFound), errors.Is(err, asset.ErrCollectionNotFound):
		return "not_found"
	case errors.Is(err, asset.ErrNotCollectionOwner), errors.Is(err, asset.ErrNotTokenOwner), errors.Is(err, asset.ErrNotOperator):
		return "authorization"
	}
	return "internal"
}

func addrAttr(key string, addr common.Address) attribute.KeyValue {
	return attribute.String(key, strings.ToLower(addr.Hex()))
}
