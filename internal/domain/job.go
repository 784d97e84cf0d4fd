package domain

import (
	"time"

	"github.com/samber/mo"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// MediaType is the kind of asset a job produces.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Job is one user-initiated generation request tracked from creation through settlement.
//
// Cost is fixed when the job is created. Legacy rows written before cost was
// persisted carry no value, which is why it is optional.
type Job struct {
	ID             string
	UserID         string
	Prompt         string
	Model          string
	MediaType      MediaType
	Status         JobStatus
	Cost           mo.Option[int]
	AspectRatio    string
	Resolution     string
	InputImages    []string
	ParentID       string
	ContestEntryID string
	TaskID         string
	ResultURL      string
	ErrorMessage   string
	RemixCount     int
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// IsTerminal reports whether the job has left the pending state.
func (j Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// JobPatch is a partial update; nil fields are left untouched.
type JobPatch struct {
	Status       *JobStatus
	TaskID       *string
	ResultURL    *string
	ErrorMessage *string
	RemixCount   *int
	CompletedAt  *time.Time
}

// JobFilter selects jobs. Zero values are ignored.
type JobFilter struct {
	UserID        string
	Status        JobStatus
	CreatedBefore time.Time
	// After resumes List strictly past this (created_at, id) position.
	After *JobCursor
	// AfterUserID resumes PendingUserIDs strictly past this user id.
	AfterUserID string
	Limit       int
}

// JobCursor is a keyset position in the (created_at, id) ordering of jobs.
type JobCursor struct {
	CreatedAt time.Time
	ID        string
}

// Cursor returns the keyset position of j.
func (j Job) Cursor() JobCursor {
	return JobCursor{CreatedAt: j.CreatedAt, ID: j.ID}
}

// Before reports whether c sorts strictly before j.
func (c JobCursor) Before(j Job) bool {
	if j.CreatedAt.Equal(c.CreatedAt) {
		return c.ID < j.ID
	}
	return c.CreatedAt.Before(j.CreatedAt)
}

// CompletedPatch builds the patch applied when a job succeeds.
func CompletedPatch(resultURL string, at time.Time) JobPatch {
	status := JobStatusCompleted
	return JobPatch{Status: &status, ResultURL: &resultURL, CompletedAt: &at}
}

// FailedPatch builds the patch applied when a job fails.
func FailedPatch(reason string, at time.Time) JobPatch {
	status := JobStatusFailed
	return JobPatch{Status: &status, ErrorMessage: &reason, CompletedAt: &at}
}
