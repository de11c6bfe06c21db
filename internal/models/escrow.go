package models

import "time"

// Escrow statuses
const (
	EscrowStatusLocked   = "locked"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

// Valid state transitions: from -> []to. Released and Refunded are terminal.
var ValidEscrowTransitions = map[string][]string{
	EscrowStatusLocked:   {EscrowStatusReleased, EscrowStatusRefunded},
	EscrowStatusReleased: {},
	EscrowStatusRefunded: {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidEscrowTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Escrow is the per-bounty custody record. Amount is in the token's smallest
// unit (nano). Deadline is a unix timestamp; once it passes, anyone may
// trigger a refund to the depositor.
type Escrow struct {
	BountyID  uint64    `json:"bounty_id"`
	Depositor string    `json:"depositor"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Deadline  int64     `json:"deadline"`
	CreatedAt time.Time `json:"created_at"`
}

// EscrowConfig is the singleton admin/token configuration written once by init.
type EscrowConfig struct {
	AdminAddress  string    `json:"admin_address"`
	TokenAddress  string    `json:"token_address"`
	InitializedAt time.Time `json:"initialized_at"`
}

// EscrowWithMetadata is the combined view returned by the full-info accessor.
type EscrowWithMetadata struct {
	Escrow   Escrow          `json:"escrow"`
	Metadata *EscrowMetadata `json:"metadata,omitempty"`
}
