package domain

import "context"

// JobRepository defines persistence for generation jobs.
type JobRepository interface {
	// Create inserts the job and fills in its ID and CreatedAt.
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, id string) (*Job, error)
	// List returns matching jobs ordered by (created_at, id).
	List(ctx context.Context, filter JobFilter) ([]Job, error)
	Update(ctx context.Context, id string, patch JobPatch) error
	// Transition applies patch only while the job is still in status from.
	// It reports whether the row was changed.
	Transition(ctx context.Context, id string, from JobStatus, patch JobPatch) (bool, error)
	// PendingUserIDs lists users owning pending jobs that match filter,
	// ordered by user id.
	PendingUserIDs(ctx context.Context, filter JobFilter) ([]string, error)
}

// UserRepository defines access to user balances and counters.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, id string, patch UserPatch) error
}

// ContestEntryRepository defines access to contest entries.
type ContestEntryRepository interface {
	GetByID(ctx context.Context, id string) (*ContestEntry, error)
	SetRemixCount(ctx context.Context, id string, count int) error
}

// RemixRewardRepository appends reward ledger rows.
type RemixRewardRepository interface {
	Create(ctx context.Context, reward *RemixReward) error
	ListByRemixJob(ctx context.Context, remixJobID string) ([]RemixReward, error)
}

// Ledger bundles the stores consumed by the generation core. It is built once
// and passed explicitly to each component.
type Ledger struct {
	Jobs     JobRepository
	Users    UserRepository
	Contests ContestEntryRepository
	Rewards  RemixRewardRepository
}
