package async

import "errors"

// ErrTimeout is returned by AwaitWithTimeout when the deadline passes before
// the underlying function completes.
var ErrTimeout = errors.New("async: timed out waiting for future completion")
