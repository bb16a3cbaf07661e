// Package deps contains interface definitions for the download domain dependencies
package deps

import (
	"context"

	"github.com/Conte777/MediaFlow/internal/domain/download/entities"
)

// MediaProber resolves metadata for a URL without downloading any bytes
type MediaProber interface {
	// Probe returns metadata for the URL, or a wrapped extraction error
	Probe(ctx context.Context, url string) (*entities.MediaInfo, error)
}

// MediaFetcher performs the actual transfer into the job workspace
type MediaFetcher interface {
	// Fetch downloads the requested format into req.OutDir and returns the
	// path of the resulting file. hook is invoked from the engine's own
	// goroutine; callers must not do UI work in it directly.
	Fetch(ctx context.Context, req entities.FetchRequest, hook func(entities.FetchProgress)) (string, error)
}

// FileSender delivers a local file to a chat as a document.
// onProgress receives a completed percentage; on success it must
// eventually be invoked with 100.
type FileSender interface {
	SendFile(ctx context.Context, chatID int64, filePath, caption string, onProgress func(pct int)) error
}

// FallbackSenderSource hands out the lazily-initialized fallback transport.
// Acquire must be safe for concurrent first use: only one session
// initialization may run, late callers reuse it.
type FallbackSenderSource interface {
	// Enabled reports whether fallback credentials are configured at all
	Enabled() bool

	// Acquire returns the shared fallback sender, establishing the session
	// on first use
	Acquire(ctx context.Context) (FileSender, error)
}

// StatusNotifier updates the single in-flight status message of a job.
// Implementations must tolerate being called with the same text twice and
// must swallow edit failures: status updates are advisory.
type StatusNotifier interface {
	Notify(ctx context.Context, text string)
}
