package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/market-backend/pkg/enums"
)

// OutboxEvent is a domain event staged in the same transaction as the state change it
// describes. Payload holds the versioned envelope; the row id doubles as the envelope's
// event id. PublishedAt stays nil until a transport acknowledges the event; a failed
// attempt pushes NextAttemptAt out so the row rests before it is claimed again.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:aggregate_type_enum;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:event_type_enum;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`

	AttemptCount  int        `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string    `gorm:"column:last_error"`
	NextAttemptAt *time.Time `gorm:"column:next_attempt_at"`
	PublishedAt   *time.Time `gorm:"column:published_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
