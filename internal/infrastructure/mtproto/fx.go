package mtproto

import (
	"context"

	"go.uber.org/fx"

	"github.com/Conte777/MediaFlow/internal/domain/download/deps"
)

// Module provides the MTProto fallback uploader for fx dependency injection
var Module = fx.Module("mtproto",
	fx.Provide(
		NewUploader,
		func(u *Uploader) deps.FallbackSenderSource { return u },
	),
	fx.Invoke(registerHooks),
)

func registerHooks(lc fx.Lifecycle, u *Uploader) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return u.Close(ctx)
		},
	})
}
