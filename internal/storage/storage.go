package storage

import "errors"

var (
	ErrPreferenceNotFound = errors.New("preference not found")
	ErrContextCancelled   = errors.New("context cancelled")

	ErrHandleReleased = errors.New("media handle released")
)
