package dto

import (
	"github.com/icedoutskay/grainlify/internal/models"
	"github.com/icedoutskay/grainlify/internal/ton"
)

type WalletAuthRequest struct {
	Address   string    `json:"address"` // raw form: "0:abcdef..."
	Network   string    `json:"network"`
	PublicKey string    `json:"public_key"`
	Proof     ton.Proof `json:"proof"`
}

type InitEscrowRequest struct {
	AdminAddress string `json:"admin_address"`
	TokenAddress string `json:"token_address"`
}

type LockFundsRequest struct {
	BountyID uint64 `json:"bounty_id"`
	Amount   int64  `json:"amount"` // nano
	Deadline int64  `json:"deadline"`
}

type ReleaseFundsRequest struct {
	Contributor string `json:"contributor"`
}

type BatchLockRequest struct {
	Items []struct {
		BountyID uint64 `json:"bounty_id"`
		Amount   int64  `json:"amount"`
		Deadline int64  `json:"deadline"`
	} `json:"items"`
}

type BatchReleaseRequest struct {
	Items []struct {
		BountyID    uint64 `json:"bounty_id"`
		Contributor string `json:"contributor"`
	} `json:"items"`
}

type CreateScheduleRequest struct {
	Amount    int64  `json:"amount"`
	ReleaseAt int64  `json:"release_at"`
	Recipient string `json:"recipient"`
}

type InitProgramRequest struct {
	ProgramID     string `json:"program_id"`
	AuthorizedKey string `json:"authorized_key"`
	TokenAddress  string `json:"token_address"`
}

type LockProgramFundsRequest struct {
	Amount int64 `json:"amount"`
}

type BatchPayoutRequest struct {
	Recipients []string `json:"recipients"`
	Amounts    []int64  `json:"amounts"`
}

type SinglePayoutRequest struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
}

type SetEscrowMetadataRequest = models.EscrowMetadata

type SetProgramMetadataRequest = models.ProgramMetadata
