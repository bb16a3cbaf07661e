// Package download contains the download domain module
package download

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	telegramDelivery "github.com/Conte777/MediaFlow/internal/domain/download/delivery/telegram"
	"github.com/Conte777/MediaFlow/internal/domain/download/usecase/buissines"
	"github.com/Conte777/MediaFlow/internal/infrastructure/telegram"
)

// Module provides download domain components for fx dependency injection
var Module = fx.Module("download",
	// UseCase
	fx.Provide(buissines.NewUseCase),

	// Delivery - Telegram (needs raw bot from infrastructure)
	fx.Provide(provideTelegramHandlers),
	fx.Provide(telegramDelivery.NewRouter),

	// Wire cyclic dependency and register routes
	fx.Invoke(wireAndRegister),
)

// provideTelegramHandlers creates Telegram handlers with raw bot
func provideTelegramHandlers(uc *buissines.UseCase, bot *telegram.Bot, logger zerolog.Logger) *telegramDelivery.Handlers {
	return telegramDelivery.NewHandlers(uc, bot.Raw(), logger)
}

// wireAndRegister resolves cyclic dependency and registers routes
func wireAndRegister(
	uc *buissines.UseCase,
	handlers *telegramDelivery.Handlers,
	router *telegramDelivery.Router,
	bot *telegram.Bot,
) {
	// Handlers implements deps.FileSender
	// This resolves the cyclic dependency: UseCase -> FileSender <- Handlers -> UseCase
	uc.SetSender(handlers)

	// Register Telegram routes and the link capture handler
	router.RegisterRoutes(bot)
}
