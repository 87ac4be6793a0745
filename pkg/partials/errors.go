package partials

import (
	"errors"
	"fmt"
)

var (
	// ErrContainerNotFound matches the Err of a Result whose page has no element with the requested id.
	ErrContainerNotFound = errors.New(ReasonContainerNotFound)
	// ErrFetchFailure matches the Err of a Result whose fragment could not be retrieved.
	ErrFetchFailure = errors.New(ReasonFetchFailure)
	// ErrBodyTooLarge is returned by HTTPFetcher when a body exceeds MaxBytes.
	ErrBodyTooLarge = errors.New("response body too large")
)

// StatusError reports a fetch that completed with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d", e.StatusCode)
}
