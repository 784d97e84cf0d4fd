package generation

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagen/internal/adapter/memory"
	"mediagen/internal/domain"
)

func newFinalizerFixture(t *testing.T) (*memory.Store, *Finalizer) {
	t.Helper()
	store := memory.NewStore()
	store.PutUser(domain.User{ID: "author", Balance: 10})
	store.PutUser(domain.User{ID: "parent-author", Balance: 5})
	store.PutJob(domain.Job{ID: "parent", UserID: "parent-author", Model: "nanobanana", Status: domain.JobStatusCompleted})
	store.PutJob(domain.Job{ID: "job", UserID: "author", Model: "nanobanana", Status: domain.JobStatusPending, Cost: mo.Some(3)})
	return store, NewFinalizer(store.Ledger(), zerolog.Nop())
}

func TestFinalizeIsIdempotent(t *testing.T) {
	store, f := newFinalizerFixture(t)
	s := Settlement{JobID: "job", UserID: "author", ResultURL: "https://cdn/r.png", Model: "nanobanana", Cost: 3, ParentID: "parent"}

	first, err := f.Finalize(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Settled: true, Debited: 3, Reward: 1}, first)

	second, err := f.Finalize(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, second.Settled)

	author, _ := store.User("author")
	assert.Equal(t, 7, author.Balance)
	parentAuthor, _ := store.User("parent-author")
	assert.Equal(t, 6, parentAuthor.Balance)
	assert.Equal(t, 1, parentAuthor.RemixCount)
	parent, _ := store.Job("parent")
	assert.Equal(t, 1, parent.RemixCount)
	assert.Len(t, store.Rewards(), 1)

	job, _ := store.Job("job")
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, "https://cdn/r.png", job.ResultURL)
	assert.NotNil(t, job.CompletedAt)
}

func TestFinalizeFloorsBalanceAtZero(t *testing.T) {
	store, f := newFinalizerFixture(t)
	store.PutUser(domain.User{ID: "author", Balance: 2})

	out, err := f.Finalize(context.Background(), Settlement{JobID: "job", UserID: "author", ResultURL: "u", Model: "nanobanana", Cost: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Debited)
	author, _ := store.User("author")
	assert.Equal(t, 0, author.Balance)
}

func TestFinalizeNoSelfReward(t *testing.T) {
	store, f := newFinalizerFixture(t)
	store.PutJob(domain.Job{ID: "own-parent", UserID: "author", Status: domain.JobStatusCompleted})

	out, err := f.Finalize(context.Background(), Settlement{JobID: "job", UserID: "author", ResultURL: "u", Model: "nanobanana", Cost: 3, ParentID: "own-parent"})
	require.NoError(t, err)
	assert.Zero(t, out.Reward)
	assert.Empty(t, store.Rewards())
	parent, _ := store.Job("own-parent")
	assert.Zero(t, parent.RemixCount)
	author, _ := store.User("author")
	assert.Equal(t, 7, author.Balance)
}

func TestFinalizeRewardScalesForPremiumRemix(t *testing.T) {
	cases := []struct {
		cost   int
		reward int
	}{
		{cost: 10, reward: 2},
		{cost: 6, reward: 3},
	}
	for _, tc := range cases {
		store, f := newFinalizerFixture(t)
		out, err := f.Finalize(context.Background(), Settlement{
			JobID: "job", UserID: "author", ResultURL: "u", Model: "nanobanana-pro", Cost: tc.cost, ParentID: "parent",
		})
		require.NoError(t, err)
		assert.Equal(t, tc.reward, out.Reward)
		rewards := store.Rewards()
		require.Len(t, rewards, 1)
		assert.Equal(t, domain.RemixReward{
			ID: rewards[0].ID, UserID: "parent-author", SourceJobID: "parent", RemixJobID: "job",
			Amount: tc.reward, CreatedAt: rewards[0].CreatedAt,
		}, rewards[0])
	}
}

func TestFinalizeContestEntryBranchHasNoMoney(t *testing.T) {
	store, f := newFinalizerFixture(t)
	store.PutContestEntry(domain.ContestEntry{ID: "entry", RemixCount: 4})

	out, err := f.Finalize(context.Background(), Settlement{
		JobID: "job", UserID: "author", ResultURL: "u", Model: "nanobanana", Cost: 3, ParentID: "parent", ContestEntryID: "entry",
	})
	require.NoError(t, err)
	assert.Zero(t, out.Reward)
	entry, _ := store.ContestEntry("entry")
	assert.Equal(t, 5, entry.RemixCount)
	assert.Empty(t, store.Rewards())
	parentAuthor, _ := store.User("parent-author")
	assert.Equal(t, 5, parentAuthor.Balance)
}

func TestFinalizeUnknownUserSkipsDebit(t *testing.T) {
	store, f := newFinalizerFixture(t)
	store.PutJob(domain.Job{ID: "ghost-job", UserID: "ghost", Status: domain.JobStatusPending})

	out, err := f.Finalize(context.Background(), Settlement{JobID: "ghost-job", UserID: "ghost", ResultURL: "u", Model: "flux", Cost: 4})
	require.NoError(t, err)
	assert.True(t, out.Settled)
	assert.Zero(t, out.Debited)
	job, _ := store.Job("ghost-job")
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
}

func TestFinalizeDoesNotReviveFailedJob(t *testing.T) {
	store, f := newFinalizerFixture(t)
	store.PutJob(domain.Job{ID: "job", UserID: "author", Status: domain.JobStatusFailed, ErrorMessage: "generation timed out"})

	out, err := f.Finalize(context.Background(), Settlement{JobID: "job", UserID: "author", ResultURL: "late", Model: "nanobanana", Cost: 3})
	require.NoError(t, err)
	assert.False(t, out.Settled)
	job, _ := store.Job("job")
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	author, _ := store.User("author")
	assert.Equal(t, 10, author.Balance)
}

func TestFinalizeMissingJob(t *testing.T) {
	_, f := newFinalizerFixture(t)
	_, err := f.Finalize(context.Background(), Settlement{JobID: "nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
