package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventRecord is a committed marketplace event persisted for history queries.
type EventRecord struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Seq        int64             `gorm:"uniqueIndex;not null" json:"seq"`
	Type       string            `gorm:"size:64;index" json:"type"`
	EscrowID   *uint64           `gorm:"index" json:"escrowId,omitempty"`
	Collection string            `gorm:"size:42;index" json:"collection,omitempty"`
	TokenID    string            `gorm:"size:66;index" json:"tokenId,omitempty"`
	Buyer      string            `gorm:"size:42;index" json:"buyer,omitempty"`
	Seller     string            `gorm:"size:42;index" json:"seller,omitempty"`
	Attributes map[string]string `gorm:"serializer:json" json:"attributes"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// BeforeCreate assigns a random identifier when none was provided.
func (r *EventRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
