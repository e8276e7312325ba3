package mock

import "errors"

// Mock package errors.
var (
	// ErrPathExists is returned when adding a path the daemon already holds.
	ErrPathExists = errors.New("path already exists")

	// ErrPathNotFound is returned when changing or removing an unknown path.
	ErrPathNotFound = errors.New("path not found")

	// ErrNoConnection is returned when no client connected in time.
	ErrNoConnection = errors.New("no client connected")
)
