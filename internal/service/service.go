package service

import "errors"

var (
	ErrMissingOrInvalidEnd = errors.New("end time must be filled")
	ErrEndNotAfterStart    = errors.New("end time must be greater than start time")
	ErrDurationExceeded    = errors.New("clip duration exceeded")
	ErrNetwork             = errors.New("failed to create clip")
	ErrURLParse            = errors.New("invalid youtube url")

	ErrSubmitInProgress = errors.New("clip is already processing")
	ErrLifecycleClosed  = errors.New("clip view closed")
	ErrResultNotFound   = errors.New("clip not ready")

	ErrSessionNotFound  = errors.New("session not found")
	ErrTooManySessions  = errors.New("too many sessions")
	ErrInvalidToken     = errors.New("invalid token")

	ErrTimeout = errors.New("timeout exceeded")
)
