package e57go

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/e57go/resource"
	"github.com/hupe1980/e57go/schema"
)

var (
	// ErrInvalidArgument is returned for capacity mismatches, missing buffers
	// and out of domain values.
	ErrInvalidArgument = errors.New("e57: invalid argument")

	// ErrIndexOutOfRange is returned when a dataset, image, group or record
	// index lies beyond the known count.
	ErrIndexOutOfRange = errors.New("e57: index out of range")

	// ErrSchemaMismatch is returned when a requested field, projection or
	// image format does not exist for the dataset or has the wrong type.
	ErrSchemaMismatch = errors.New("e57: schema mismatch")

	// ErrInvalidGroupOrdering is returned when written groups overlap or are
	// not in ascending start order.
	ErrInvalidGroupOrdering = errors.New("e57: invalid group ordering")

	// ErrSessionClosed is returned for operations on a finalized session.
	ErrSessionClosed = errors.New("e57: session closed")

	// ErrNonSequentialWrite is returned when an image write does not start at
	// the blob's write cursor.
	ErrNonSequentialWrite = errors.New("e57: non-sequential write")

	// ErrStorageFault wraps failures of the storage and codec layers.
	// Storage faults are never retried.
	ErrStorageFault = errors.New("e57: underlying storage fault")
)

// FieldError describes a field that failed validation.
//
// It unwraps to ErrSchemaMismatch or ErrInvalidArgument.
type FieldError struct {
	Field  schema.FieldID
	Reason string
	kind   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %s: %s", e.kind, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.kind }

func schemaMismatch(id schema.FieldID, format string, args ...any) error {
	return &FieldError{Field: id, Reason: fmt.Sprintf(format, args...), kind: ErrSchemaMismatch}
}

func invalidField(id schema.FieldID, format string, args ...any) error {
	return &FieldError{Field: id, Reason: fmt.Sprintf(format, args...), kind: ErrInvalidArgument}
}

// IndexError reports an index outside [0, Count).
//
// It unwraps to ErrIndexOutOfRange.
type IndexError struct {
	Kind  string
	Index int64
	Count int64
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %s index %d, have %d", ErrIndexOutOfRange, e.Kind, e.Index, e.Count)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// GroupOrderError reports a group that starts before the previous one ends.
//
// It unwraps to ErrInvalidGroupOrdering.
type GroupOrderError struct {
	// Group is the position of the offending group in the table.
	Group   int64
	PrevEnd int64
	Start   int64
}

func (e *GroupOrderError) Error() string {
	return fmt.Sprintf("%s: group %d starts at %d, previous group ends at %d",
		ErrInvalidGroupOrdering, e.Group, e.Start, e.PrevEnd)
}

func (e *GroupOrderError) Unwrap() error { return ErrInvalidGroupOrdering }

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

var facadeErrors = []error{
	ErrInvalidArgument,
	ErrIndexOutOfRange,
	ErrSchemaMismatch,
	ErrInvalidGroupOrdering,
	ErrSessionClosed,
	ErrNonSequentialWrite,
	ErrStorageFault,
}

// translateError maps errors of the storage packages onto the facade
// taxonomy. Both the facade sentinel and the cause match errors.Is.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range facadeErrors {
		if errors.Is(err, target) {
			return err
		}
	}

	// Cancellation belongs to the caller.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// A single page larger than the memory budget can never be admitted.
	if errors.Is(err, resource.ErrExceedsLimit) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return fmt.Errorf("%w: %w", ErrStorageFault, err)
}
