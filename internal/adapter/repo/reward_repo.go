package repo

import (
	"context"
	"fmt"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/sqlinline"
)

// RemixRewardRepositoryPG implements domain.RemixRewardRepository.
type RemixRewardRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewRemixRewardRepository(sql infra.SQLExecutor) *RemixRewardRepositoryPG {
	return &RemixRewardRepositoryPG{sql: sql}
}

// Create appends a reward row. remix_job_id is unique, so a second reward for
// the same remix fails instead of double crediting the audit trail.
func (r *RemixRewardRepositoryPG) Create(ctx context.Context, reward *domain.RemixReward) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertRemixReward, reward.UserID, reward.SourceJobID, reward.RemixJobID, reward.Amount)
	if err := row.Scan(&reward.ID, &reward.CreatedAt); err != nil {
		return fmt.Errorf("insert remix reward: %w", err)
	}
	return nil
}

func (r *RemixRewardRepositoryPG) ListByRemixJob(ctx context.Context, remixJobID string) ([]domain.RemixReward, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectRemixRewardsByRemixJob, remixJobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RemixReward
	for rows.Next() {
		var rw domain.RemixReward
		if err := rows.Scan(&rw.ID, &rw.UserID, &rw.SourceJobID, &rw.RemixJobID, &rw.Amount, &rw.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rw)
	}
	return out, rows.Err()
}

var _ domain.RemixRewardRepository = (*RemixRewardRepositoryPG)(nil)
