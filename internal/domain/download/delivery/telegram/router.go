// Package telegram contains Telegram delivery layer
package telegram

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/rs/zerolog"

	"github.com/Conte777/MediaFlow/internal/domain/download/consts"
	infratelegram "github.com/Conte777/MediaFlow/internal/infrastructure/telegram"
)

// Router registers Telegram bot handlers
type Router struct {
	handlers *Handlers
	logger   zerolog.Logger
}

// NewRouter creates new Telegram router
func NewRouter(handlers *Handlers, logger zerolog.Logger) *Router {
	return &Router{
		handlers: handlers,
		logger:   logger,
	}
}

// RegisterRoutes registers all update handlers on the bot.
// Plain messages fall through to the link capture handler.
func (r *Router) RegisterRoutes(bot *infratelegram.Bot) {
	raw := bot.Raw()

	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, r.handlers.HandleStart)
	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/help", tgbot.MatchTypeExact, r.handlers.HandleHelp)
	raw.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, consts.CallbackPrefix, tgbot.MatchTypePrefix, r.handlers.HandleCallback)

	bot.SetDefaultHandler(r.handlers.HandleMessage)

	r.logger.Info().Msg("All Telegram handlers registered successfully")
}
