package generation

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mediagen/internal/domain"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultTaskTimeout  = 300000 * time.Millisecond
)

// Poller drives one provider task to a terminal state.
type Poller struct {
	provider domain.Provider
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewPoller(provider domain.Provider, interval, timeout time.Duration, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	return &Poller{provider: provider, interval: interval, timeout: timeout, logger: logger}
}

// Wait polls taskID until it succeeds, fails, or the per-task timeout passes.
// It returns the result URL, a *domain.TaskFailedError, or domain.ErrTaskTimeout.
//
// Cancelling ctx only stops local polling. The remote task keeps running.
func (p *Poller) Wait(ctx context.Context, kind domain.ProviderKind, taskID string) (string, error) {
	start := time.Now()
	for attempt := 1; ; attempt++ {
		status, err := p.provider.PollOnce(ctx, kind, taskID)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if err != nil {
			p.logger.Warn().Err(err).Str("task_id", taskID).Int("attempt", attempt).Msg("poll failed, retrying")
			status = domain.TaskStatus{State: domain.TaskPending}
		}

		switch status.State {
		case domain.TaskSuccess:
			return status.URL, nil
		case domain.TaskFailed:
			return "", &domain.TaskFailedError{Reason: status.Reason}
		}

		if time.Since(start) > p.timeout {
			return "", domain.ErrTaskTimeout
		}
		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}
