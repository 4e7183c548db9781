package registry

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrUnauthorized indicates the caller lacks the required role
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidArgument indicates an empty, zero or out-of-range input
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPaused indicates a mutating call was made while the registry is paused
	ErrPaused = errors.New("registry is paused")

	// ErrReentrancyDetected indicates a nested call into a guarded operation
	ErrReentrancyDetected = errors.New("reentrant call detected")

	// ErrContentNotFound indicates a content was not found
	ErrContentNotFound = errors.New("content not found")

	// ErrProposalNotFound indicates a proposal was not found
	ErrProposalNotFound = errors.New("proposal not found")

	// ErrInsufficientPayment indicates the paid amount is below the content price
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrAlreadyRated indicates the caller has already rated the content
	ErrAlreadyRated = errors.New("content already rated")

	// ErrAlreadyVoted indicates the caller has already voted on the proposal
	ErrAlreadyVoted = errors.New("already voted")

	// ErrAlreadyExecuted indicates the proposal has already been executed
	ErrAlreadyExecuted = errors.New("proposal already executed")

	// ErrTransferFailed indicates the ledger rejected a transfer
	ErrTransferFailed = errors.New("transfer failed")
)

// ContentError represents an error related to content operations
type ContentError struct {
	ContentID uint64
	Op        string
	Err       error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content operation %s failed for content %d: %v", e.Op, e.ContentID, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// ProposalError represents an error related to governance proposal operations
type ProposalError struct {
	ProposalID uint64
	Op         string
	Err        error
}

func (e *ProposalError) Error() string {
	return fmt.Sprintf("proposal operation %s failed for proposal %d: %v", e.Op, e.ProposalID, e.Err)
}

func (e *ProposalError) Unwrap() error {
	return e.Err
}

// ValidationError wraps request validation failures. It matches
// ErrInvalidArgument with errors.Is.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrInvalidArgument, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is() to match against ErrInvalidArgument
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalidArgument(format string, args ...interface{}) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}
