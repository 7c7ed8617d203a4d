package cli

import "errors"

// Returned when the daemon rejects or fails a lifecycle request. The
// daemon's message follows it.
var ErrRequest = errors.New("request failed")
