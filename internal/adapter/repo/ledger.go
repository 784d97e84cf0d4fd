package repo

import (
	"mediagen/internal/domain"
	"mediagen/internal/infra"
)

// NewLedger wires every Postgres repository onto one executor.
func NewLedger(sql infra.SQLExecutor) domain.Ledger {
	return domain.Ledger{
		Jobs:     NewJobRepository(sql),
		Users:    NewUserRepository(sql),
		Contests: NewContestEntryRepository(sql),
		Rewards:  NewRemixRewardRepository(sql),
	}
}
