// Package app contains application bootstrap
package app

import (
	"go.uber.org/fx"

	"github.com/Conte777/MediaFlow/config"
	"github.com/Conte777/MediaFlow/internal/domain"
	"github.com/Conte777/MediaFlow/internal/infrastructure"
)

// CreateApp creates fx application with all modules
func CreateApp() fx.Option {
	return fx.Options(
		// Configuration
		fx.Provide(config.Out),

		// Infrastructure (logger, telegram bot, mtproto fallback, yt-dlp)
		infrastructure.Module,

		// Domain (download conversation flow)
		domain.Module,
	)
}
