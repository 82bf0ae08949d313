package clinic

import "errors"

// ErrNotFound is returned when a clinic id is unknown.
var ErrNotFound = errors.New("clinic: not found")
