package store

import "errors"

// ErrReadOnly is returned by write operations routed through a
// ReadOnlyStore while the application is in read-only mode.
var ErrReadOnly = errors.New("store is in read-only mode")

// ErrConflict is returned when a write violates a data constraint,
// such as deleting a venue that hazards still reference or registering
// an email twice. Handlers map it to HTTP 409.
var ErrConflict = errors.New("conflicting records exist")
