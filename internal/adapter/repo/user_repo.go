package repo

import (
	"context"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// GetByID fetches a user's balance and counters.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectUser, id).Scan(&u.ID, &u.Balance, &u.RemixCount); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Update writes the non-nil fields of patch.
func (r *UserRepositoryPG) Update(ctx context.Context, id string, patch domain.UserPatch) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateUser, id, patch.Balance, patch.RemixCount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
