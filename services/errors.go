package services

import (
	"errors"
	"fmt"

	"revisitly-backend/models"

	"github.com/google/uuid"
)

// ErrAlreadyDispatched means the relationship's thank-you was sent by an
// earlier or concurrent call.
var ErrAlreadyDispatched = errors.New("follow-up already dispatched")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "unauthorized"
	}
	return "unauthorized: " + e.Reason
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// UpstreamError wraps a failure of the store or a provider.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// SentNotRecordedError reports a message that reached the provider but whose
// audit row could not be written.
type SentNotRecordedError struct {
	RelationshipID uuid.UUID
	Type           models.EmailType
	Err            error
}

func (e *SentNotRecordedError) Error() string {
	return fmt.Sprintf("%s for %s sent but not recorded: %v", e.Type, e.RelationshipID, e.Err)
}

func (e *SentNotRecordedError) Unwrap() error {
	return e.Err
}

func upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}
