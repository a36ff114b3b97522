package enums

import (
	"maps"
	"slices"
)

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateOrder
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", value, []OutboxAggregateType{AggregateOrder})
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated   OutboxEventType = "order_created"
	EventOrderUpdated   OutboxEventType = "order_updated"
	EventOrderCompleted OutboxEventType = "order_completed"
	EventOrderRefunded  OutboxEventType = "order_refunded"
	EventOrderCancelled OutboxEventType = "order_cancelled"
)

// eventAggregates binds every event type to the aggregate whose id keys it.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventOrderCreated:   AggregateOrder,
	EventOrderUpdated:   AggregateOrder,
	EventOrderCompleted: AggregateOrder,
	EventOrderRefunded:  AggregateOrder,
	EventOrderCancelled: AggregateOrder,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the aggregate type the event belongs to, or "" for unknown events.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	return eventAggregates[e]
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, slices.Collect(maps.Keys(eventAggregates)))
}
