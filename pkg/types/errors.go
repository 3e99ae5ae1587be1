package types

import "errors"

// Domain errors shared across packages
var (
	// Search result errors
	ErrMissingFileInfo = errors.New("file path is required")
	ErrInvalidRange    = errors.New("invalid line range")
	ErrInvalidDistance = errors.New("distance must be between 0 and 1")

	// ErrSkipped reports that a job was not started because admission
	// control or the project state rejected it. It is not a failure.
	ErrSkipped = errors.New("indexing job skipped")
)
