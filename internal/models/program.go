package models

import "time"

// PayoutRecord is one entry of the program's append-only payout history.
type PayoutRecord struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

// ProgramData is the singleton payout-pool state.
//
// Invariants: remaining_balance = total_funds - sum(payout_history.amount),
// remaining_balance never negative; program_id and authorized_payout_key are
// immutable after init.
type ProgramData struct {
	ProgramID           string         `json:"program_id"`
	TotalFunds          int64          `json:"total_funds"`
	RemainingBalance    int64          `json:"remaining_balance"`
	AuthorizedPayoutKey string         `json:"authorized_payout_key"`
	PayoutHistory       []PayoutRecord `json:"payout_history"`
	TokenAddress        string         `json:"token_address"`
	CreatedAt           time.Time      `json:"created_at"`
}

// ProgramWithMetadata is the combined view returned by the full-info accessor.
type ProgramWithMetadata struct {
	Program  ProgramData      `json:"program"`
	Metadata *ProgramMetadata `json:"metadata,omitempty"`
}
