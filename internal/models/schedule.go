package models

import "time"

// Release types
const (
	ReleaseTypeManual    = "manual"
	ReleaseTypeAutomatic = "automatic"
)

// ReleaseSchedule is a timed partial disbursement from a locked escrow.
// ScheduleID is assigned per bounty, monotonically from 1, and never reused.
// A released schedule is immutable.
type ReleaseSchedule struct {
	BountyID   uint64    `json:"bounty_id"`
	ScheduleID uint64    `json:"schedule_id"`
	Amount     int64     `json:"amount"`
	ReleaseAt  int64     `json:"release_at"`
	Recipient  string    `json:"recipient"`
	Released   bool      `json:"released"`
	ReleasedAt *int64    `json:"released_at,omitempty"`
	ReleasedBy *string   `json:"released_by,omitempty"`
	ReleaseType string   `json:"release_type,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Due reports whether the schedule may be triggered automatically at now.
func (s *ReleaseSchedule) Due(now int64) bool {
	return !s.Released && s.ReleaseAt <= now
}

// ReleaseRecord is one entry of a bounty's append-only release history,
// ordered by the time the release occurred.
type ReleaseRecord struct {
	BountyID    uint64 `json:"bounty_id"`
	ScheduleID  uint64 `json:"schedule_id"`
	Amount      int64  `json:"amount"`
	Recipient   string `json:"recipient"`
	ReleaseType string `json:"release_type"`
	ReleasedAt  int64  `json:"released_at"`
}
