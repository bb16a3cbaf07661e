package ytdlp

import (
	"go.uber.org/fx"

	"github.com/Conte777/MediaFlow/internal/domain/download/deps"
)

// Module provides the yt-dlp adapter for fx dependency injection
var Module = fx.Module("ytdlp",
	fx.Provide(
		NewClient,
		func(c *Client) deps.MediaProber { return c },
		func(c *Client) deps.MediaFetcher { return c },
	),
)
