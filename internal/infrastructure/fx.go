// Package infrastructure aggregates infrastructure modules
package infrastructure

import (
	"go.uber.org/fx"

	"github.com/Conte777/MediaFlow/internal/infrastructure/logger"
	"github.com/Conte777/MediaFlow/internal/infrastructure/mtproto"
	"github.com/Conte777/MediaFlow/internal/infrastructure/telegram"
	"github.com/Conte777/MediaFlow/internal/infrastructure/ytdlp"
)

// Module combines all infrastructure modules
var Module = fx.Options(
	logger.Module,
	telegram.Module,
	mtproto.Module,
	ytdlp.Module,
)
