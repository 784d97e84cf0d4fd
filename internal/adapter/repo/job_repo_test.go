package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagen/internal/domain"
)

type execCall struct {
	query string
	args  []any
}

type stubExecutor struct {
	tag     pgconn.CommandTag
	err     error
	row     func(dest ...any) error
	execs   []execCall
	rows    []execCall
	queries []execCall
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, execCall{query: query, args: args})
	return s.tag, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.rows = append(s.rows, execCall{query: query, args: args})
	return stubRow{scan: s.row}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.queries = append(s.queries, execCall{query: query, args: args})
	return nil, errors.New("not implemented")
}

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

func TestJobTransitionReportsApplied(t *testing.T) {
	exec := &stubExecutor{tag: pgconn.NewCommandTag("UPDATE 1")}
	jobs := NewJobRepository(exec)

	applied, err := jobs.Transition(context.Background(), "job-1", domain.JobStatusPending, domain.CompletedPatch("https://x/img.png", time.Now()))
	require.NoError(t, err)
	assert.True(t, applied)

	require.Len(t, exec.execs, 1)
	args := exec.execs[0].args
	require.Len(t, args, 8)
	assert.Equal(t, "job-1", args[0])
	assert.Equal(t, "pending", args[7])
	status, ok := args[1].(*string)
	require.True(t, ok)
	assert.Equal(t, "completed", *status)
}

func TestJobTransitionNotApplied(t *testing.T) {
	exec := &stubExecutor{tag: pgconn.NewCommandTag("UPDATE 0")}
	jobs := NewJobRepository(exec)

	applied, err := jobs.Transition(context.Background(), "job-1", domain.JobStatusPending, domain.FailedPatch("boom", time.Now()))
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestJobUpdateMissingRow(t *testing.T) {
	exec := &stubExecutor{tag: pgconn.NewCommandTag("UPDATE 0")}
	jobs := NewJobRepository(exec)

	taskID := "task-1"
	err := jobs.Update(context.Background(), "missing", domain.JobPatch{TaskID: &taskID})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJobCreatePassesOptionalCost(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	exec := &stubExecutor{row: func(dest ...any) error {
		*dest[0].(*string) = "job-42"
		*dest[1].(*time.Time) = created
		return nil
	}}
	jobs := NewJobRepository(exec)

	job := &domain.Job{UserID: "u1", Prompt: "cat", Model: "nanobanana", Cost: mo.Some(3)}
	require.NoError(t, jobs.Create(context.Background(), job))
	assert.Equal(t, "job-42", job.ID)
	assert.Equal(t, created, job.CreatedAt)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, domain.MediaTypeImage, job.MediaType)

	args := exec.rows[0].args
	cost, ok := args[5].(*int)
	require.True(t, ok)
	require.NotNil(t, cost)
	assert.Equal(t, 3, *cost)
	assert.Equal(t, []byte("[]"), args[8])

	legacy := &domain.Job{UserID: "u1", Prompt: "cat", Model: "nanobanana"}
	require.NoError(t, jobs.Create(context.Background(), legacy))
	assert.Nil(t, exec.rows[1].args[5].(*int))
}

func TestJobGetByIDNotFound(t *testing.T) {
	jobs := NewJobRepository(&stubExecutor{})

	_, err := jobs.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserUpdatePassesNilFields(t *testing.T) {
	exec := &stubExecutor{tag: pgconn.NewCommandTag("UPDATE 1")}
	users := NewUserRepository(exec)

	balance := 7
	require.NoError(t, users.Update(context.Background(), "u1", domain.UserPatch{Balance: &balance}))
	args := exec.execs[0].args
	assert.Equal(t, &balance, args[1])
	assert.Nil(t, args[2].(*int))
}

func TestJobListPassesKeysetCursor(t *testing.T) {
	exec := &stubExecutor{}
	jobs := NewJobRepository(exec)
	at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	_, _ = jobs.List(context.Background(), domain.JobFilter{UserID: "u1", Status: domain.JobStatusPending})
	_, _ = jobs.List(context.Background(), domain.JobFilter{
		UserID: "u1",
		Status: domain.JobStatusPending,
		After:  &domain.JobCursor{CreatedAt: at, ID: "job-9"},
		Limit:  25,
	})

	require.Len(t, exec.queries, 2)
	first := exec.queries[0].args
	require.Len(t, first, 6)
	assert.Nil(t, first[4].(*time.Time))
	assert.Equal(t, "", first[5])
	assert.Equal(t, defaultListLimit, first[3])

	second := exec.queries[1].args
	cursor, ok := second[4].(*time.Time)
	require.True(t, ok)
	require.NotNil(t, cursor)
	assert.True(t, at.Equal(*cursor))
	assert.Equal(t, "job-9", second[5])
	assert.Equal(t, 25, second[3])
}

func TestPendingUserIDsPassesUserCursor(t *testing.T) {
	exec := &stubExecutor{}
	jobs := NewJobRepository(exec)

	_, _ = jobs.PendingUserIDs(context.Background(), domain.JobFilter{AfterUserID: "u42", Limit: 10})

	require.Len(t, exec.queries, 1)
	args := exec.queries[0].args
	require.Len(t, args, 3)
	assert.Equal(t, 10, args[1])
	assert.Equal(t, "u42", args[2])
}
