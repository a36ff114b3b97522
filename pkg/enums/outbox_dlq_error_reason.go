package enums

// OutboxDLQErrorReason records why an outbox event was parked in the dead-letter table.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts marks events whose retry budget ran out.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable marks events that could not be decoded or routed.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonTransportRejected marks events the broker refused outright.
	OutboxDLQReasonTransportRejected OutboxDLQErrorReason = "transport_rejected"
)

var outboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
	OutboxDLQReasonTransportRejected,
}

func (r OutboxDLQErrorReason) IsValid() bool { return known(r, outboxDLQErrorReasons) }

func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	return parse("outbox dlq reason", value, outboxDLQErrorReasons)
}
