package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)

var (
	ErrConversationNotFound = fmt.Errorf("conversation %w", ErrNotFound)
	ErrMessageNotFound      = fmt.Errorf("message %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)

	ErrNotParticipant  = fmt.Errorf("not a participant of this conversation: %w", ErrForbidden)
	ErrParticipantLeft = fmt.Errorf("participant has left this conversation: %w", ErrForbidden)

	ErrDuplicateParticipant = fmt.Errorf("user is already a participant: %w", ErrConflict)
)

// ValidationError rejects malformed input and names the offending field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Msg
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

var (
	ErrEmptyMessage             = invalid("body", "message needs a body or at least one attachment")
	ErrInsufficientParticipants = invalid("user_ids", "a conversation needs at least one other participant")
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
