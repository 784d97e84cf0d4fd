package domain

import "context"

// ProviderKind is the wire-protocol family a remote provider follows.
type ProviderKind string

const (
	// KindSingleTask creates a task and reports progress through a success flag.
	KindSingleTask ProviderKind = "single-task"
	// KindGenericJob wraps provider input in a job envelope and returns a JSON result string.
	KindGenericJob ProviderKind = "generic-job"
)

// TaskState is the normalized outcome of a single status check.
type TaskState string

const (
	TaskPending TaskState = "pending"
	TaskSuccess TaskState = "success"
	TaskFailed  TaskState = "failed"
)

// TaskStatus is what one poll observed. URL is set on success, Reason on failure.
type TaskStatus struct {
	State  TaskState
	URL    string
	Reason string
}

// TaskInput is a routed, provider-specific request.
type TaskInput struct {
	ProviderModel string
	Params        map[string]any
}

// Provider is the transport to the remote generation service.
type Provider interface {
	CreateTask(ctx context.Context, kind ProviderKind, input TaskInput) (string, error)
	// PollOnce performs one status check and never sleeps.
	PollOnce(ctx context.Context, kind ProviderKind, taskID string) (TaskStatus, error)
}
