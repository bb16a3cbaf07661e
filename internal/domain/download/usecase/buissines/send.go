package buissines

import (
	"context"
	"fmt"
	"strings"

	dlerrors "github.com/Conte777/MediaFlow/internal/domain/download/errors"
)

// Error substrings that mean "the transport refused the file for its
// size". Matched case-insensitively against the whole error chain.
var tooBigMarkers = []string{
	"request entity too large",
	"entity too large",
	"file is too big",
	"file too big",
	"too large",
}

// deliverFile tries the primary Bot API sender first and retries any
// failure through the MTProto fallback when one is configured. Size
// classification only decides how a double failure is reported: either
// side matching the markers turns the outcome into ErrFileTooBig.
func (uc *UseCase) deliverFile(ctx context.Context, chatID int64, path, caption string, onProgress func(pct int)) error {
	if uc.sender == nil {
		uc.logger.Error().Msg("Primary FileSender is not set")
		return fmt.Errorf("%w: no sender wired", dlerrors.ErrDelivery)
	}

	primaryErr := uc.sender.SendFile(ctx, chatID, path, caption, onProgress)
	if primaryErr == nil {
		return nil
	}

	uc.logger.Warn().
		Err(primaryErr).
		Int64("chat_id", chatID).
		Str("file", path).
		Msg("Primary transport failed, trying MTProto fallback")

	if uc.fallback == nil || !uc.fallback.Enabled() {
		return fmt.Errorf("%w: %v", dlerrors.ErrDelivery, primaryErr)
	}

	fb, err := uc.fallback.Acquire(ctx)
	if err != nil {
		uc.logger.Error().Err(err).Msg("Fallback transport unavailable")
		return fmt.Errorf("%w: %v", dlerrors.ErrDelivery, primaryErr)
	}

	gate := newProgressGate(onProgress)
	fbErr := fb.SendFile(ctx, chatID, path, caption, gate.update)
	if fbErr == nil {
		gate.complete()
		return nil
	}

	if isTooBigError(primaryErr) || isTooBigError(fbErr) {
		return fmt.Errorf("%w: %v", dlerrors.ErrFileTooBig, fbErr)
	}
	return fmt.Errorf("%w: %v", dlerrors.ErrDelivery, fbErr)
}

// isTooBigError classifies transport errors by message because both
// transports surface the size limit as text, not as typed errors
func isTooBigError(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range tooBigMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
