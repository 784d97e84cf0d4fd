package generation

import (
	"context"
	"sync"

	"mediagen/internal/domain"
)

type fakeProvider struct {
	mu        sync.Mutex
	taskID    string
	createErr error
	statuses  []domain.TaskStatus
	pollErrs  []error
	created   []domain.TaskInput
	kinds     []domain.ProviderKind
	polls     int
}

func (f *fakeProvider) CreateTask(_ context.Context, kind domain.ProviderKind, input domain.TaskInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, input)
	f.kinds = append(f.kinds, kind)
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.taskID == "" {
		return "task-1", nil
	}
	return f.taskID, nil
}

// PollOnce replays statuses in order and repeats the last one.
func (f *fakeProvider) PollOnce(_ context.Context, _ domain.ProviderKind, _ string) (domain.TaskStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.polls
	f.polls++
	if i < len(f.pollErrs) && f.pollErrs[i] != nil {
		return domain.TaskStatus{}, f.pollErrs[i]
	}
	if len(f.statuses) == 0 {
		return domain.TaskStatus{State: domain.TaskPending}, nil
	}
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

func (f *fakeProvider) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func (f *fakeProvider) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}
