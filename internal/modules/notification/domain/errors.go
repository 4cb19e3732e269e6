package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrPreferencesNotFound   = errors.New("notification preferences not found")
	ErrDeliveryNotPending    = errors.New("no pending delivery entry for channel")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrValidation            = errors.New("validation failed")
	ErrSubscriptionGone      = errors.New("push subscription is no longer valid")
	ErrChannelNotImplemented = errors.New("delivery channel not implemented")
	ErrChannelDisabled       = errors.New("channel disabled by recipient preferences")
	ErrVAPIDNotConfigured    = errors.New("VAPID public key not configured")
)

// ValidationError describes the first offending field of a rejected input.
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

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
