// Package store holds the submission state: one record per submission id,
// moving IN_PROGRESS -> DONE or IN_PROGRESS -> FAILED and never back.
//
// Every operation is atomic with respect to every other operation on the same
// id. TryBeginProcessing is the de-duplication guard: of any number of
// concurrent callers for one id, exactly one observes true.
package store

import (
	"context"
	"errors"

	"github.com/Lllllllleong/formsummary/internal/models"
)

var (
	ErrEmptyID = errors.New("store: submission id is empty")
	// ErrNotFound is returned when finalizing an id that was never begun.
	ErrNotFound = errors.New("store: submission not found")
	// ErrInvalidTransition is returned when finalizing a record that already
	// left IN_PROGRESS. It signals a programming error in the caller.
	ErrInvalidTransition = errors.New("store: invalid status transition")
)

// Store is the single source of truth for submission lifecycle records.
type Store interface {
	// TryBeginProcessing creates an IN_PROGRESS record when none exists and
	// reports whether the caller should dispatch work for id.
	TryBeginProcessing(ctx context.Context, id string) (bool, error)
	// Complete moves an IN_PROGRESS record to DONE with result.
	Complete(ctx context.Context, id, result string) error
	// Fail moves an IN_PROGRESS record to FAILED with message.
	Fail(ctx context.Context, id, message string) error
	// Get returns a snapshot of the record and whether it exists.
	Get(ctx context.Context, id string) (models.Submission, bool, error)
}
