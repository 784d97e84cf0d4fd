package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnsupportedModel    = errors.New("unsupported model")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrProviderCreate      = errors.New("provider task creation failed")
	ErrTaskTimeout         = errors.New("generation timed out")
)

// TaskFailedError carries the reason reported by a provider for a terminal failure.
type TaskFailedError struct {
	Reason string
}

func (e *TaskFailedError) Error() string {
	if e.Reason == "" {
		return "generation failed"
	}
	return fmt.Sprintf("generation failed: %s", e.Reason)
}

// ProviderCreateError wraps ErrProviderCreate with the provider supplied message.
func ProviderCreateError(msg string) error {
	if msg == "" {
		return ErrProviderCreate
	}
	return fmt.Errorf("%w: %s", ErrProviderCreate, msg)
}
