package repo

import (
	"context"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/sqlinline"
)

// ContestEntryRepositoryPG implements domain.ContestEntryRepository.
type ContestEntryRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewContestEntryRepository(sql infra.SQLExecutor) *ContestEntryRepositoryPG {
	return &ContestEntryRepositoryPG{sql: sql}
}

func (r *ContestEntryRepositoryPG) GetByID(ctx context.Context, id string) (*domain.ContestEntry, error) {
	var e domain.ContestEntry
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectContestEntry, id).Scan(&e.ID, &e.RemixCount); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *ContestEntryRepositoryPG) SetRemixCount(ctx context.Context, id string, count int) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateContestEntryRemixCount, id, count)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.ContestEntryRepository = (*ContestEntryRepositoryPG)(nil)
