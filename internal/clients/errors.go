package clients

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRemoteService   = errors.New("remote service error")
	ErrSerialization   = errors.New("serialization error")
	ErrNetwork         = errors.New("network error")
)

// RemoteServiceError is returned for any non-2xx response. Body holds at most
// the first maxErrorBody bytes of the response.
type RemoteServiceError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *RemoteServiceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %s returned status %d", ErrRemoteService, e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s returned status %d: %s", ErrRemoteService, e.Operation, e.StatusCode, e.Body)
}

func (e *RemoteServiceError) Unwrap() error {
	return ErrRemoteService
}
