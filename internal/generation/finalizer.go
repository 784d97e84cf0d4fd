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

// Settlement names everything the finalizer needs to settle one job.
type Settlement struct {
	JobID          string
	UserID         string
	ResultURL      string
	Model          string
	Cost           int
	ParentID       string
	ContestEntryID string
}

// Outcome reports what a Finalize call changed.
type Outcome struct {
	// Settled is true only for the call that moved the job to completed.
	Settled bool
	Debited int
	Reward  int
}

// Finalizer applies the side effects of a successful job exactly once.
type Finalizer struct {
	ledger domain.Ledger
	logger zerolog.Logger
	now    func() time.Time
}

func NewFinalizer(ledger domain.Ledger, logger zerolog.Logger) *Finalizer {
	return &Finalizer{ledger: ledger, logger: logger, now: time.Now}
}

// Finalize completes the job and settles it. Calling it again for the same job
// is a no-op. Only errors before the job is marked completed are returned;
// later bookkeeping failures are logged.
func (f *Finalizer) Finalize(ctx context.Context, s Settlement) (Outcome, error) {
	ctx, span := observability.StartSpan(ctx, "generation.finalize", attribute.String("job.id", s.JobID))
	defer span.End()

	out, err := f.finalize(ctx, s)
	observability.Fail(span, err)
	span.SetAttributes(attribute.Bool("settled", out.Settled), attribute.Int("debited", out.Debited))
	return out, err
}

func (f *Finalizer) finalize(ctx context.Context, s Settlement) (Outcome, error) {
	job, err := f.ledger.Jobs.GetByID(ctx, s.JobID)
	if err != nil {
		return Outcome{}, fmt.Errorf("finalize %s: load job: %w", s.JobID, err)
	}
	if job.Status == domain.JobStatusCompleted {
		return Outcome{}, nil
	}

	applied, err := f.ledger.Jobs.Transition(ctx, s.JobID, domain.JobStatusPending, domain.CompletedPatch(s.ResultURL, f.now().UTC()))
	if err != nil {
		return Outcome{}, fmt.Errorf("finalize %s: complete job: %w", s.JobID, err)
	}
	if !applied {
		// Another caller settled it first, or it already failed.
		return Outcome{}, nil
	}

	out := Outcome{Settled: true}
	log := f.logger.With().Str("job_id", s.JobID).Str("user_id", s.UserID).Logger()

	debited, err := f.debit(ctx, s.UserID, s.Cost)
	if err != nil {
		log.Error().Err(err).Int("cost", s.Cost).Msg("finalize: debit skipped")
	}
	out.Debited = debited

	switch {
	case s.ContestEntryID != "":
		if err := f.bumpContestEntry(ctx, s.ContestEntryID); err != nil {
			log.Error().Err(err).Str("contest_entry_id", s.ContestEntryID).Msg("finalize: contest bookkeeping failed")
		}
	case s.ParentID != "":
		reward, err := f.rewardParent(ctx, s)
		if err != nil {
			log.Error().Err(err).Str("parent_id", s.ParentID).Msg("finalize: remix reward failed")
		}
		out.Reward = reward
	}

	log.Info().Int("debited", out.Debited).Int("reward", out.Reward).Msg("job settled")
	return out, nil
}

// debit floors the balance at zero and returns the amount actually taken.
func (f *Finalizer) debit(ctx context.Context, userID string, cost int) (int, error) {
	user, err := f.ledger.Users.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load user: %w", err)
	}
	balance := max(0, user.Balance-cost)
	if err := f.ledger.Users.Update(ctx, userID, domain.UserPatch{Balance: &balance}); err != nil {
		return 0, fmt.Errorf("update balance: %w", err)
	}
	return user.Balance - balance, nil
}

func (f *Finalizer) bumpContestEntry(ctx context.Context, id string) error {
	entry, err := f.ledger.Contests.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load contest entry: %w", err)
	}
	return f.ledger.Contests.SetRemixCount(ctx, id, entry.RemixCount+1)
}

// rewardParent credits the parent author unless they remixed their own job.
// The steps run in order and stop at the first failure; the returned amount is
// non-zero only once the balance credit landed.
func (f *Finalizer) rewardParent(ctx context.Context, s Settlement) (int, error) {
	parent, err := f.ledger.Jobs.GetByID(ctx, s.ParentID)
	if err != nil {
		return 0, fmt.Errorf("load parent job: %w", err)
	}
	if parent.UserID == "" || parent.UserID == s.UserID {
		return 0, nil
	}

	remixes := parent.RemixCount + 1
	if err := f.ledger.Jobs.Update(ctx, parent.ID, domain.JobPatch{RemixCount: &remixes}); err != nil {
		return 0, fmt.Errorf("update parent remix count: %w", err)
	}

	author, err := f.ledger.Users.GetByID(ctx, parent.UserID)
	if err != nil {
		return 0, fmt.Errorf("load parent author: %w", err)
	}
	amount := rewardFor(s.Model, s.Cost)
	balance := author.Balance + amount
	authorRemixes := author.RemixCount + 1
	if err := f.ledger.Users.Update(ctx, author.ID, domain.UserPatch{Balance: &balance, RemixCount: &authorRemixes}); err != nil {
		return 0, fmt.Errorf("credit parent author: %w", err)
	}

	reward := &domain.RemixReward{
		UserID:      author.ID,
		SourceJobID: parent.ID,
		RemixJobID:  s.JobID,
		Amount:      amount,
	}
	if err := f.ledger.Rewards.Create(ctx, reward); err != nil {
		return amount, fmt.Errorf("append remix reward: %w", err)
	}
	return amount, nil
}
