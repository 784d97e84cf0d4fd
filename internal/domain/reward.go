package domain

import "time"

// RemixReward is an append-only ledger row crediting a parent author.
type RemixReward struct {
	ID          string
	UserID      string
	SourceJobID string
	RemixJobID  string
	Amount      int
	CreatedAt   time.Time
}
