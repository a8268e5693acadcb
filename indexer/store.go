package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"nftescrow/core/events"
)

const maxListLimit = 500

// Filter narrows an event history query. Zero fields match everything.
type Filter struct {
	Type       string
	EscrowID   *uint64
	Collection string
	AfterSeq   int64
	Limit      int
}

// EventStore persists committed events through gorm. It implements
// events.Emitter so it can be attached to the node's fan-out.
type EventStore struct {
	db     *gorm.DB
	mu     sync.Mutex
	seq    int64
	nowFn  func() time.Time
	logger *slog.Logger
}

// Open connects to dsn: postgres:// and postgresql:// URLs use the postgres
// driver, anything else is treated as a sqlite path or URI.
func Open(dsn string) (*EventStore, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, errors.New("indexer: dsn required")
	}
	var dialector gorm.Dialector
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		dialector = postgres.Open(trimmed)
	} else {
		dialector = sqlite.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("indexer: open: %w", err)
	}
	return NewEventStore(db)
}

// NewEventStore migrates the schema on db and resumes the sequence counter.
func NewEventStore(db *gorm.DB) (*EventStore, error) {
	if db == nil {
		return nil, errors.New("indexer: db required")
	}
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	var last struct{ Max *int64 }
	if err := db.Model(&EventRecord{}).Select("MAX(seq) AS max").Scan(&last).Error; err != nil {
		return nil, fmt.Errorf("indexer: resume sequence: %w", err)
	}
	store := &EventStore{db: db, nowFn: time.Now, logger: slog.Default()}
	if last.Max != nil {
		store.seq = *last.Max
	}
	return store, nil
}

// SetNowFunc overrides the clock. Intended for tests.
func (s *EventStore) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	s.nowFn = now
}

// Emit implements events.Emitter. Persistence failures are logged; the
// event has already been committed to the ledger.
func (s *EventStore) Emit(evt events.Event) {
	if err := s.Record(context.Background(), evt); err != nil {
		s.logger.Error("indexer: record event", "type", evt.EventType(), "error", err.Error())
	}
}

// Record persists a single event.
func (s *EventStore) Record(ctx context.Context, evt events.Event) error {
	payload := events.PayloadOf(evt)
	if payload == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &EventRecord{
		Seq:        s.seq + 1,
		Type:       payload.Type,
		Collection: payload.Attr("collection"),
		TokenID:    payload.Attr("tokenId"),
		Buyer:      payload.Attr("buyer"),
		Seller:     payload.Attr("seller"),
		Attributes: payload.Clone().Attributes,
		CreatedAt:  s.nowFn().UTC(),
	}
	if raw := payload.Attr("escrowId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("indexer: escrow id %q: %w", raw, err)
		}
		record.EscrowID = &id
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return err
	}
	s.seq = record.Seq
	return nil
}

// List returns events matching filter in commit order.
func (s *EventStore) List(ctx context.Context, filter Filter) ([]EventRecord, error) {
	limit := filter.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	query := s.db.WithContext(ctx).Model(&EventRecord{}).Where("seq > ?", filter.AfterSeq)
	if t := strings.TrimSpace(filter.Type); t != "" {
		query = query.Where("type = ?", t)
	}
	if filter.EscrowID != nil {
		query = query.Where("escrow_id = ?", *filter.EscrowID)
	}
	if c := strings.TrimSpace(filter.Collection); c != "" {
		query = query.Where("collection = ?", c)
	}
	var records []EventRecord
	if err := query.Order("seq ASC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Close releases the underlying connection pool.
func (s *EventStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
