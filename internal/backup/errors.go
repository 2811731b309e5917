package backup

import "errors"

// Sentinel errors classifying engine failures. Callers test them with
// errors.Is; anything not matching one of these is an uncategorized
// filesystem failure.
var (
	// ErrNotFound indicates a named backup or transfer source is missing.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a destination or restore target is
	// present and overwriting was not permitted.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidArgument indicates an absolute or traversing name, an
	// archive outside the backup directory, or an unsafe restore path.
	ErrInvalidArgument = errors.New("invalid argument")
)
