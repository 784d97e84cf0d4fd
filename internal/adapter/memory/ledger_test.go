package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagen/internal/domain"
)

func TestTransitionOnlyFromExpectedStatus(t *testing.T) {
	store := NewStore()
	ledger := store.Ledger()
	ctx := context.Background()

	job := &domain.Job{UserID: "u1", Model: "flux", Prompt: "p"}
	require.NoError(t, ledger.Jobs.Create(ctx, job))
	require.NotEmpty(t, job.ID)
	assert.Equal(t, domain.JobStatusPending, job.Status)

	applied, err := ledger.Jobs.Transition(ctx, job.ID, domain.JobStatusPending, domain.FailedPatch("boom", time.Now()))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = ledger.Jobs.Transition(ctx, job.ID, domain.JobStatusPending, domain.CompletedPatch("https://x", time.Now()))
	require.NoError(t, err)
	assert.False(t, applied)

	stored, ok := store.Job(job.ID)
	require.True(t, ok)
	assert.Equal(t, domain.JobStatusFailed, stored.Status)
	assert.Equal(t, "boom", stored.ErrorMessage)
	assert.Empty(t, stored.ResultURL)
}

func TestListAndPendingUsers(t *testing.T) {
	store := NewStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store.PutJob(domain.Job{ID: "a", UserID: "u1", Status: domain.JobStatusPending, CreatedAt: base})
	store.PutJob(domain.Job{ID: "b", UserID: "u2", Status: domain.JobStatusPending, CreatedAt: base.Add(time.Minute)})
	store.PutJob(domain.Job{ID: "c", UserID: "u1", Status: domain.JobStatusCompleted, CreatedAt: base.Add(2 * time.Minute)})
	store.PutJob(domain.Job{ID: "d", UserID: "u3", Status: domain.JobStatusPending, CreatedAt: base.Add(time.Hour)})
	ledger := store.Ledger()
	ctx := context.Background()

	jobs, err := ledger.Jobs.List(ctx, domain.JobFilter{UserID: "u1", Status: domain.JobStatusPending})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].ID)

	ids, err := ledger.Jobs.PendingUserIDs(ctx, domain.JobFilter{CreatedBefore: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, ids)
}

func TestStoredJobsAreCopies(t *testing.T) {
	store := NewStore()
	ledger := store.Ledger()
	ctx := context.Background()

	job := &domain.Job{UserID: "u1", InputImages: []string{"https://x/a.png"}}
	require.NoError(t, ledger.Jobs.Create(ctx, job))
	job.InputImages[0] = "mutated"

	got, err := ledger.Jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/a.png"}, got.InputImages)
}

func TestListResumesAfterCursor(t *testing.T) {
	store := NewStore()
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store.PutJob(domain.Job{ID: "a", UserID: "u2", Status: domain.JobStatusPending, CreatedAt: at})
	store.PutJob(domain.Job{ID: "b", UserID: "u1", Status: domain.JobStatusPending, CreatedAt: at})
	store.PutJob(domain.Job{ID: "c", UserID: "u3", Status: domain.JobStatusPending, CreatedAt: at.Add(time.Second)})
	ledger := store.Ledger()
	ctx := context.Background()

	jobs, err := ledger.Jobs.List(ctx, domain.JobFilter{After: &domain.JobCursor{CreatedAt: at, ID: "a"}})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "b", jobs[0].ID)
	assert.Equal(t, "c", jobs[1].ID)

	ids, err := ledger.Jobs.PendingUserIDs(ctx, domain.JobFilter{AfterUserID: "u1", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, ids)
}
