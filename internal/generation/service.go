package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"
	"go.opentelemetry.io/otel/attribute"

	"mediagen/internal/domain"
	"mediagen/internal/observability"
)

const (
	DefaultOverallTimeout = 300000 * time.Millisecond

	// TestPrompt short-circuits generation into a simulated success.
	TestPrompt   = "test"
	TestImageURL = "https://placehold.co/1024x1024/png?text=test"
	testDelay    = 2 * time.Second
)

// GenerateRequest is one inbound generation.
type GenerateRequest struct {
	Request
	UserID         string
	ParentID       string
	ContestEntryID string
	// RequestID ties the job's log lines and span to the inbound request.
	RequestID string
}

// Result is what a successful generation returns. Prompt echoes the
// caller's text; the job row stores its normalized form.
type Result struct {
	JobID     string
	URL       string
	Prompt    string
	Model     string
	MediaType domain.MediaType
	Cost      int
}

// Options wires a Service.
type Options struct {
	Ledger         domain.Ledger
	Registry       *Registry
	Provider       domain.Provider
	PollInterval   time.Duration
	TaskTimeout    time.Duration
	OverallTimeout time.Duration
	Logger         zerolog.Logger
}

// Service runs the create, poll and settle sequence for each request.
type Service struct {
	ledger    domain.Ledger
	router    *Router
	provider  domain.Provider
	poller    *Poller
	finalizer *Finalizer
	overall   time.Duration
	testDelay time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(opts Options) *Service {
	overall := opts.OverallTimeout
	if overall <= 0 {
		overall = DefaultOverallTimeout
	}
	return &Service{
		ledger:    opts.Ledger,
		router:    NewRouter(opts.Registry),
		provider:  opts.Provider,
		poller:    NewPoller(opts.Provider, opts.PollInterval, opts.TaskTimeout, opts.Logger),
		finalizer: NewFinalizer(opts.Ledger, opts.Logger),
		overall:   overall,
		testDelay: testDelay,
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// Router exposes the model routing table.
func (s *Service) Router() *Router { return s.router }

// Finalizer exposes the settlement step so recovery can share it.
func (s *Service) Finalizer() *Finalizer { return s.finalizer }

// Generate validates and admits req, then drives its job to a terminal state.
// The work is detached from ctx cancellation so a disconnecting client does
// not orphan a running task.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (Result, error) {
	ctx, span := observability.StartSpan(ctx, "generation.generate",
		attribute.String("model", req.Model),
		attribute.String("user.id", req.UserID),
		attribute.String("request.id", req.RequestID),
	)
	defer span.End()

	res, err := s.generate(ctx, req)
	observability.Fail(span, err)
	if res.JobID != "" {
		span.SetAttributes(attribute.String("job.id", res.JobID))
	}
	return res, err
}

func (s *Service) generate(ctx context.Context, req GenerateRequest) (Result, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if strings.TrimSpace(req.Prompt) == "" {
		return Result{}, fmt.Errorf("%w: prompt is required", domain.ErrInvalidRequest)
	}
	if req.UserID == "" {
		return Result{}, fmt.Errorf("%w: user_id is required", domain.ErrInvalidRequest)
	}
	route, err := s.router.Route(req.Request)
	if err != nil {
		return Result{}, err
	}

	if req.Prompt == TestPrompt {
		return s.simulate(ctx, route)
	}

	cost := route.Entry.PriceFor(route.Resolution)
	if err := s.admit(ctx, req.UserID, cost); err != nil {
		return Result{}, err
	}

	job := &domain.Job{
		UserID:         req.UserID,
		Prompt:         normalizePrompt(req.Prompt),
		Model:          route.Entry.Model,
		MediaType:      route.Entry.MediaType,
		Status:         domain.JobStatusPending,
		Cost:           mo.Some(cost),
		AspectRatio:    strings.TrimSpace(req.AspectRatio),
		Resolution:     route.Resolution,
		InputImages:    cleanImages(req.Images, route.Entry.MaxImages),
		ParentID:       strings.TrimSpace(req.ParentID),
		ContestEntryID: strings.TrimSpace(req.ContestEntryID),
	}
	if err := s.ledger.Jobs.Create(ctx, job); err != nil {
		return Result{}, fmt.Errorf("create job: %w", err)
	}

	log := s.logger.With().
		Str("job_id", job.ID).
		Str("model", job.Model).
		Str("request_id", req.RequestID).
		Logger()
	log.Info().Str("user_id", job.UserID).Int("cost", cost).Msg("generation started")

	work := context.WithoutCancel(ctx)
	url, err := s.race(work, job.ID, route)
	if err != nil {
		s.fail(work, job.ID, err)
		log.Warn().Err(err).Msg("generation failed")
		return Result{}, err
	}

	outcome, err := s.finalizer.Finalize(work, Settlement{
		JobID:          job.ID,
		UserID:         job.UserID,
		ResultURL:      url,
		Model:          job.Model,
		Cost:           cost,
		ParentID:       job.ParentID,
		ContestEntryID: job.ContestEntryID,
	})
	if err != nil {
		// The result exists; the sweep can settle the job later.
		log.Error().Err(err).Msg("finalize failed")
	} else {
		log.Info().Bool("settled", outcome.Settled).Int("debited", outcome.Debited).Msg("generation completed")
	}

	return Result{
		JobID:     job.ID,
		URL:       url,
		Prompt:    req.Prompt,
		Model:     job.Model,
		MediaType: job.MediaType,
		Cost:      cost,
	}, nil
}

func (s *Service) simulate(ctx context.Context, route Route) (Result, error) {
	timer := time.NewTimer(s.testDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-timer.C:
	}
	return Result{
		URL:       TestImageURL,
		Prompt:    TestPrompt,
		Model:     route.Entry.Model,
		MediaType: route.Entry.MediaType,
	}, nil
}

func (s *Service) admit(ctx context.Context, userID string, cost int) error {
	user, err := s.ledger.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.Balance < cost {
		return fmt.Errorf("%w: balance %d, cost %d", domain.ErrInsufficientBalance, user.Balance, cost)
	}
	return nil
}

type taskResult struct {
	url string
	err error
}

// race runs create and poll against the overall timeout. Whichever finishes
// first wins; a late task result is dropped.
func (s *Service) race(ctx context.Context, jobID string, route Route) (string, error) {
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan taskResult, 1)
	go func() {
		url, err := s.runTask(taskCtx, jobID, route)
		done <- taskResult{url: url, err: err}
	}()

	timer := time.NewTimer(s.overall)
	defer timer.Stop()
	select {
	case res := <-done:
		return res.url, res.err
	case <-timer.C:
		return "", domain.ErrTaskTimeout
	}
}

func (s *Service) runTask(ctx context.Context, jobID string, route Route) (string, error) {
	createCtx, span := observability.StartSpan(ctx, "provider.create_task",
		attribute.String("job.id", jobID),
		attribute.String("provider.kind", string(route.Kind)),
	)
	taskID, err := s.provider.CreateTask(createCtx, route.Kind, route.Input)
	observability.Fail(span, err)
	span.End()
	if err != nil {
		return "", err
	}
	if err := s.ledger.Jobs.Update(ctx, jobID, domain.JobPatch{TaskID: &taskID}); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Str("task_id", taskID).Msg("persist task id failed")
	}

	pollCtx, span := observability.StartSpan(ctx, "provider.wait_task",
		attribute.String("job.id", jobID),
		attribute.String("task.id", taskID),
	)
	defer span.End()
	url, err := s.poller.Wait(pollCtx, route.Kind, taskID)
	observability.Fail(span, err)
	return url, err
}

// fail marks a still-pending job failed. The job never leaves a terminal state.
func (s *Service) fail(ctx context.Context, jobID string, cause error) {
	if _, err := s.ledger.Jobs.Transition(ctx, jobID, domain.JobStatusPending, domain.FailedPatch(failureMessage(cause), s.now().UTC())); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("mark job failed")
	}
}

func failureMessage(err error) string {
	var failed *domain.TaskFailedError
	switch {
	case errors.As(err, &failed):
		if failed.Reason != "" {
			return failed.Reason
		}
		return "generation failed"
	case errors.Is(err, domain.ErrTaskTimeout):
		return domain.ErrTaskTimeout.Error()
	default:
		return err.Error()
	}
}
