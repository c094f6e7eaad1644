package conversation

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("conversation not found")
	ErrCorrupt      = errors.New("conversation record is corrupt")
	ErrValidation   = errors.New("validation error")
	ErrStorageFault = errors.New("storage fault")
)

// ValidationError reports data that must never reach storage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ErrValidation.Error()
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s (%s): %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageFaultError is returned when a log could not be read from or
// persisted to the backend.
type StorageFaultError struct {
	ConversationID string
	Op             string
	Err            error
}

func (e *StorageFaultError) Error() string {
	if e == nil {
		return ErrStorageFault.Error()
	}
	return fmt.Sprintf("%s: %s conversation %q: %v", ErrStorageFault, e.Op, e.ConversationID, e.Err)
}

func (e *StorageFaultError) Is(target error) bool { return target == ErrStorageFault }

func (e *StorageFaultError) Unwrap() error { return e.Err }
