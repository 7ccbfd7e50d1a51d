package engine

import "errors"

// ErrConfig marks an exercise configuration that violates an engine
// invariant. It is fatal at registry load time; values are never silently
// clamped.
var ErrConfig = errors.New("invalid exercise config")
