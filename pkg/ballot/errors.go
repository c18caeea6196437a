package ballot

import (
	"errors"
	"fmt"
)

// Failure kinds. Every rejected operation returns a *RevertError whose Kind is
// one of these, so callers can match with errors.Is.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrAlreadyVoted        = errors.New("already voted")
	ErrAlreadyHasRights    = errors.New("already has rights")
	ErrInvalidDelegate     = errors.New("invalid delegate")
	ErrSelfDelegationCycle = errors.New("self delegation cycle")
	ErrOutOfRange          = errors.New("proposal index out of range")
)

var tags = map[string]error{
	"Unauthorized":        ErrUnauthorized,
	"AlreadyVoted":        ErrAlreadyVoted,
	"AlreadyHasRights":    ErrAlreadyHasRights,
	"InvalidDelegate":     ErrInvalidDelegate,
	"SelfDelegationCycle": ErrSelfDelegationCycle,
	"OutOfRange":          ErrOutOfRange,
}

// RevertError is returned when an operation is rejected. Reason carries the
// human readable revert string and may be empty.
type RevertError struct {
	Kind   error
	Reason string
}

func revert(kind error, reason string) *RevertError {
	return &RevertError{Kind: kind, Reason: reason}
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("reverted: %s", e.Kind)
	}
	return fmt.Sprintf("reverted: %s: %s", e.Kind, e.Reason)
}

func (e *RevertError) Unwrap() error {
	return e.Kind
}

// Tag returns the stable name of the failure kind, used on the wire.
func (e *RevertError) Tag() string {
	return TagOf(e.Kind)
}

// TagOf returns the tag for a failure kind, or "" if err is not one.
func TagOf(err error) string {
	for tag, kind := range tags {
		if errors.Is(err, kind) {
			return tag
		}
	}
	return ""
}

// ErrorByTag rebuilds a *RevertError from a tag received over the wire.
func ErrorByTag(tag, reason string) (*RevertError, error) {
	kind, ok := tags[tag]
	if !ok {
		return nil, fmt.Errorf("unknown failure tag: %q", tag)
	}
	return revert(kind, reason), nil
}
