package nutrition

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("invalid food record")
	// ErrUnresolvedReference matches every *UnresolvedReferenceError.
	ErrUnresolvedReference = errors.New("unresolved reference")
	// ErrPrecondition matches every *PreconditionError.
	ErrPrecondition = errors.New("precondition failed")
)

// ValidationError reports malformed or inconsistent food record input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// UnresolvedReferenceError reports an entry whose food or serving label
// could not be found. Index is the entry position, or -1 when unknown.
type UnresolvedReferenceError struct {
	Index        int
	FoodItemID   string
	ServingLabel string
	Reason       string
}

func (e *UnresolvedReferenceError) Error() string {
	msg := fmt.Sprintf("%s: food %q", ErrUnresolvedReference, e.FoodItemID)
	if e.ServingLabel != "" {
		msg += fmt.Sprintf(" serving %q", e.ServingLabel)
	}
	if e.Index >= 0 {
		msg += fmt.Sprintf(" (entry %d)", e.Index)
	}
	return msg + ": " + e.Reason
}

func (e *UnresolvedReferenceError) Is(target error) bool { return target == ErrUnresolvedReference }

// PreconditionError reports an entry rejected before resolution.
type PreconditionError struct {
	Index  int
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: entry %d: %s: %s", ErrPrecondition, e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrPrecondition, e.Field, e.Reason)
}

func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }
