package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"mediagen/internal/domain"
	"mediagen/internal/observability"
)

const (
	reasonMissingTaskID    = "missing task id"
	reasonUnsupportedModel = "unsupported model"

	defaultSweepBatch = 100
)

// Report counts what one sweep looked at and what it changed.
type Report struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
}

func (r *Report) add(o Report) {
	r.Checked += o.Checked
	r.Updated += o.Updated
}

// Recovery re-drives jobs left pending, for example after a restart.
type Recovery struct {
	ledger    domain.Ledger
	registry  *Registry
	provider  domain.Provider
	finalizer *Finalizer
	logger    zerolog.Logger
	batch     int
	now       func() time.Time
}

func NewRecovery(ledger domain.Ledger, registry *Registry, provider domain.Provider, finalizer *Finalizer, logger zerolog.Logger) *Recovery {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if finalizer == nil {
		finalizer = NewFinalizer(ledger, logger)
	}
	return &Recovery{
		ledger:    ledger,
		registry:  registry,
		provider:  provider,
		finalizer: finalizer,
		logger:    logger,
		batch:     defaultSweepBatch,
		now:       time.Now,
	}
}

// Sweep checks every pending job of userID once.
func (r *Recovery) Sweep(ctx context.Context, userID string) (Report, error) {
	if userID == "" {
		return Report{}, fmt.Errorf("%w: user_id is required", domain.ErrInvalidRequest)
	}
	return r.sweep(ctx, domain.JobFilter{UserID: userID, Status: domain.JobStatusPending})
}

// SweepAll sweeps every user with pending jobs older than grace, leaving
// younger jobs to the requests still driving them. Users are visited in
// pages of batch ids until a short page comes back.
func (r *Recovery) SweepAll(ctx context.Context, grace time.Duration) (Report, error) {
	cutoff := r.now().Add(-grace)
	var (
		total Report
		after string
	)
	for {
		users, err := r.ledger.Jobs.PendingUserIDs(ctx, domain.JobFilter{CreatedBefore: cutoff, AfterUserID: after, Limit: r.batch})
		if err != nil {
			return total, fmt.Errorf("list pending users: %w", err)
		}
		for _, userID := range users {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			rep, err := r.sweep(ctx, domain.JobFilter{UserID: userID, Status: domain.JobStatusPending, CreatedBefore: cutoff})
			total.add(rep)
			if err != nil {
				r.logger.Error().Err(err).Str("user_id", userID).Msg("sweep user failed")
			}
		}
		if len(users) < r.batch {
			return total, nil
		}
		after = users[len(users)-1]
	}
}

// sweep walks every job matching filter in (created_at, id) pages until a
// short page comes back.
func (r *Recovery) sweep(ctx context.Context, filter domain.JobFilter) (Report, error) {
	ctx, span := observability.StartSpan(ctx, "recovery.sweep", attribute.String("user.id", filter.UserID))
	defer span.End()

	filter.Limit = r.batch
	var rep Report
	for {
		jobs, err := r.ledger.Jobs.List(ctx, filter)
		if err != nil {
			observability.Fail(span, err)
			return rep, fmt.Errorf("list pending jobs: %w", err)
		}
		for _, job := range jobs {
			rep.Checked++
			updated, err := r.reconcile(ctx, job)
			if err != nil {
				r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("reconcile job")
				continue
			}
			if updated {
				rep.Updated++
			}
		}
		if len(jobs) < r.batch {
			break
		}
		if err := ctx.Err(); err != nil {
			observability.Fail(span, err)
			return rep, err
		}
		cursor := jobs[len(jobs)-1].Cursor()
		filter.After = &cursor
	}
	span.SetAttributes(attribute.Int("checked", rep.Checked), attribute.Int("updated", rep.Updated))
	return rep, nil
}

// reconcile polls a pending job once and applies what it finds.
func (r *Recovery) reconcile(ctx context.Context, job domain.Job) (bool, error) {
	if job.TaskID == "" {
		return r.markFailed(ctx, job.ID, reasonMissingTaskID)
	}
	entry, err := r.registry.Lookup(job.Model)
	if err != nil {
		return r.markFailed(ctx, job.ID, reasonUnsupportedModel)
	}

	status, err := r.provider.PollOnce(ctx, entry.Kind, job.TaskID)
	if err != nil {
		return false, fmt.Errorf("poll task %s: %w", job.TaskID, err)
	}

	switch status.State {
	case domain.TaskSuccess:
		cost, err := r.registry.settlementCost(job)
		if err != nil {
			return false, err
		}
		out, err := r.finalizer.Finalize(ctx, Settlement{
			JobID:          job.ID,
			UserID:         job.UserID,
			ResultURL:      status.URL,
			Model:          job.Model,
			Cost:           cost,
			ParentID:       job.ParentID,
			ContestEntryID: job.ContestEntryID,
		})
		if err != nil {
			return false, err
		}
		return out.Settled, nil
	case domain.TaskFailed:
		reason := status.Reason
		if reason == "" {
			reason = "generation failed"
		}
		return r.markFailed(ctx, job.ID, reason)
	default:
		return false, nil
	}
}

func (r *Recovery) markFailed(ctx context.Context, jobID, reason string) (bool, error) {
	applied, err := r.ledger.Jobs.Transition(ctx, jobID, domain.JobStatusPending, domain.FailedPatch(reason, r.now().UTC()))
	if err != nil {
		return false, fmt.Errorf("mark job failed: %w", err)
	}
	return applied, nil
}
