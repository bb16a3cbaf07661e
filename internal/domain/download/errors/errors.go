// Package errors contains domain-specific errors for the download domain
package errors

import (
	"fmt"
	"time"

	pkgerrors "github.com/Conte777/MediaFlow/pkg/errors"
)

// Domain errors for download operations
var (
	ErrExtraction         = pkgerrors.NewInternalError("failed to read media metadata")
	ErrEmptyOrMissingFile = pkgerrors.NewInternalError("download produced an empty or missing file")
	ErrDelivery           = pkgerrors.NewInternalError("file delivery failed")
	ErrFileTooBig         = pkgerrors.NewConflictError("file is too big for both transports")
	ErrDownloadInFlight   = pkgerrors.NewConflictError("another download is already running for this chat")
	ErrNoFallback         = pkgerrors.NewNotFoundError("fallback transport is not configured")
	ErrNoFormats          = pkgerrors.NewNotFoundError("no downloadable formats")
)

// DurationExceededError is a policy rejection, not a fault: the media is
// longer than the configured ceiling.
type DurationExceededError struct {
	Actual time.Duration
	Limit  time.Duration
}

func (e *DurationExceededError) Error() string {
	return fmt.Sprintf("media duration %s exceeds limit %s", e.Actual, e.Limit)
}
