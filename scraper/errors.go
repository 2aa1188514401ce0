package scraper

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload means neither the JSON nor the HTML strategy could make
// sense of a search response.
var ErrMalformedPayload = errors.New("malformed search payload")

// ErrScanInProgress is returned to synchronous scan callers while another scan runs.
var ErrScanInProgress = errors.New("scan already running")

// FetchError is a transient failure for one page or detail fetch: network,
// timeout, HTTP status or unreadable body.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d (the site may be blocking automated requests)", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AccessBlockedError means the catalog answered with a challenge or login
// wall. It needs a human, not a retry.
type AccessBlockedError struct {
	URL    string
	Marker string
}

func (e *AccessBlockedError) Error() string {
	return fmt.Sprintf("access blocked at %s: response contains %q (captcha or login wall, manual intervention required)", e.URL, e.Marker)
}

func IsAccessBlocked(err error) bool {
	var blocked *AccessBlockedError
	return errors.As(err, &blocked)
}
