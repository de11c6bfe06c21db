package events

import "context"

// Redis channels
const (
	StreamEscrow  = "events:escrow"
	StreamProgram = "events:program"
)

// Event types
const (
	EventEscrowLocked       = "escrow_locked"
	EventEscrowReleased     = "escrow_released"
	EventEscrowRefunded     = "escrow_refunded"
	EventScheduleCreated    = "schedule_created"
	EventScheduleReleased   = "schedule_released"
	EventBatchLocked        = "batch_locked"
	EventBatchReleased      = "batch_released"
	EventProgramInitialized = "program_initialized"
	EventProgramFundsLocked = "program_funds_locked"
	EventPayout             = "payout"
	EventBatchPayout        = "batch_payout"
	EventDepositDetected    = "deposit_detected"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
