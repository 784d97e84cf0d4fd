package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/mo"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/sqlinline"
)

const defaultListLimit = 100

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new job record and fills in the generated id.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	images, err := json.Marshal(nonNilStrings(job.InputImages))
	if err != nil {
		return fmt.Errorf("encode input images: %w", err)
	}
	status := job.Status
	if status == "" {
		status = domain.JobStatusPending
	}
	mediaType := job.MediaType
	if mediaType == "" {
		mediaType = domain.MediaTypeImage
	}
	var cost *int
	if v, ok := job.Cost.Get(); ok {
		cost = &v
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertJob,
		job.UserID,
		job.Prompt,
		job.Model,
		string(mediaType),
		string(status),
		cost,
		job.AspectRatio,
		job.Resolution,
		images,
		job.ParentID,
		job.ContestEntryID,
	)
	if err := row.Scan(&job.ID, &job.CreatedAt); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	job.Status = status
	job.MediaType = mediaType
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectJob, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// List returns jobs matching filter in (created_at, id) order, resuming
// after filter.After when set.
func (r *JobRepositoryPG) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	var (
		afterTime *time.Time
		afterID   string
	)
	if filter.After != nil {
		at := filter.After.CreatedAt
		afterTime, afterID = &at, filter.After.ID
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListJobs,
		filter.UserID,
		string(filter.Status),
		nullableTime(filter.CreatedBefore),
		limitOrDefault(filter.Limit),
		afterTime,
		afterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Update applies patch unconditionally.
func (r *JobRepositoryPG) Update(ctx context.Context, id string, patch domain.JobPatch) error {
	args := append([]any{id}, patchArgs(patch)...)
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateJob, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Transition applies patch only while the job is in status from.
func (r *JobRepositoryPG) Transition(ctx context.Context, id string, from domain.JobStatus, patch domain.JobPatch) (bool, error) {
	args := append([]any{id}, patchArgs(patch)...)
	args = append(args, string(from))
	tag, err := r.sql.Exec(ctx, sqlinline.QTransitionJob, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// PendingUserIDs lists owners of pending jobs by user id, past filter.AfterUserID.
func (r *JobRepositoryPG) PendingUserIDs(ctx context.Context, filter domain.JobFilter) ([]string, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectPendingUserIDs,
		nullableTime(filter.CreatedBefore),
		limitOrDefault(filter.Limit),
		filter.AfterUserID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job        domain.Job
		mediaType  string
		status     string
		cost       *int
		images     []byte
		finishedAt *time.Time
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Prompt,
		&job.Model,
		&mediaType,
		&status,
		&cost,
		&job.AspectRatio,
		&job.Resolution,
		&images,
		&job.ParentID,
		&job.ContestEntryID,
		&job.TaskID,
		&job.ResultURL,
		&job.ErrorMessage,
		&job.RemixCount,
		&job.CreatedAt,
		&finishedAt,
	); err != nil {
		return nil, err
	}
	job.MediaType = domain.MediaType(mediaType)
	job.Status = domain.JobStatus(status)
	job.CompletedAt = finishedAt
	if cost != nil {
		job.Cost = mo.Some(*cost)
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &job.InputImages); err != nil {
			return nil, fmt.Errorf("decode input images: %w", err)
		}
	}
	return &job, nil
}

func patchArgs(p domain.JobPatch) []any {
	var status *string
	if p.Status != nil {
		s := string(*p.Status)
		status = &s
	}
	return []any{status, p.TaskID, p.ResultURL, p.ErrorMessage, p.RemixCount, p.CompletedAt}
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
