package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagen/internal/domain"
)

func TestPollerReturnsURLAfterPending(t *testing.T) {
	provider := &fakeProvider{statuses: []domain.TaskStatus{
		{State: domain.TaskPending},
		{State: domain.TaskPending},
		{State: domain.TaskSuccess, URL: "https://cdn/out.png"},
	}}
	p := NewPoller(provider, time.Millisecond, time.Second, zerolog.Nop())

	url, err := p.Wait(context.Background(), domain.KindGenericJob, "t")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/out.png", url)
	assert.Equal(t, 3, provider.pollCount())
}

func TestPollerRaisesProviderReason(t *testing.T) {
	provider := &fakeProvider{statuses: []domain.TaskStatus{{State: domain.TaskFailed, Reason: "nsfw"}}}
	p := NewPoller(provider, time.Millisecond, time.Second, zerolog.Nop())

	_, err := p.Wait(context.Background(), domain.KindSingleTask, "t")
	var failed *domain.TaskFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "nsfw", failed.Reason)
}

func TestPollerTimesOut(t *testing.T) {
	provider := &fakeProvider{}
	p := NewPoller(provider, 5*time.Millisecond, 20*time.Millisecond, zerolog.Nop())

	_, err := p.Wait(context.Background(), domain.KindGenericJob, "t")
	assert.ErrorIs(t, err, domain.ErrTaskTimeout)
	assert.Greater(t, provider.pollCount(), 1)
}

func TestPollerTreatsPollErrorsAsTransient(t *testing.T) {
	provider := &fakeProvider{
		pollErrs: []error{errors.New("connection refused"), nil},
		statuses: []domain.TaskStatus{{}, {State: domain.TaskSuccess, URL: "u"}},
	}
	p := NewPoller(provider, time.Millisecond, time.Second, zerolog.Nop())

	url, err := p.Wait(context.Background(), domain.KindGenericJob, "t")
	require.NoError(t, err)
	assert.Equal(t, "u", url)
}

func TestPollerStopsOnCancel(t *testing.T) {
	provider := &fakeProvider{}
	p := NewPoller(provider, 10*time.Millisecond, time.Minute, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	_, err := p.Wait(ctx, domain.KindGenericJob, "t")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	polls := provider.pollCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, polls, provider.pollCount(), "no checks after cancellation")
}
