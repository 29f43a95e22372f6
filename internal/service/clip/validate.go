package clip

import (
	"errors"
	"fmt"

	"github.com/GintGld/clipper/internal/lib/timecode"
	"github.com/GintGld/clipper/internal/models"
	"github.com/GintGld/clipper/internal/service"
)

// Validate checks a candidate clip range.
//
// Rules are applied in order and the first failure is returned:
// negative end, end not after start, length above maxDuration.
// Start itself has no upper bound.
func Validate(start, end, maxDuration timecode.Seconds) (models.ClipRange, error) {
	if end < 0 {
		return models.ClipRange{}, service.ErrMissingOrInvalidEnd
	}
	if end <= start {
		return models.ClipRange{}, service.ErrEndNotAfterStart
	}
	// end >= 0 here, so end-maxDuration cannot wrap
	// while end-start can for a very negative start
	if start < end-maxDuration {
		return models.ClipRange{}, service.ErrDurationExceeded
	}

	return models.ClipRange{Start: start, End: end}, nil
}

// KindOf maps error to the kind reported to users.
func KindOf(err error) models.ErrorKind {
	switch {
	case errors.Is(err, service.ErrMissingOrInvalidEnd):
		return models.KindMissingOrInvalidEnd
	case errors.Is(err, service.ErrEndNotAfterStart):
		return models.KindEndNotAfterStart
	case errors.Is(err, service.ErrDurationExceeded):
		return models.KindDurationExceeded
	case errors.Is(err, service.ErrURLParse):
		return models.KindURLParse
	default:
		return models.KindNetwork
	}
}

func validationMessage(err error, maxDuration timecode.Seconds) string {
	switch KindOf(err) {
	case models.KindMissingOrInvalidEnd:
		return "End time must be filled"
	case models.KindEndNotAfterStart:
		return "End time must be greater than start time"
	case models.KindDurationExceeded:
		return fmt.Sprintf("Clip cannot be longer than %d seconds", maxDuration)
	}
	return err.Error()
}
