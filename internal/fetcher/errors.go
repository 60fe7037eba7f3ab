package fetcher

import (
	"errors"
	"fmt"
)

// ErrFetchFailed marks every failed prediction request.
var ErrFetchFailed = errors.New("fetcher: prediction request failed")

// FetchError describes a failed request. StatusCode is 0 when no response
// was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetchFailed}
	}
	return []error{ErrFetchFailed, e.Err}
}
