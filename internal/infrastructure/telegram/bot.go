// Package telegram contains Telegram bot infrastructure
package telegram

import (
	"context"
	"fmt"
	"sync/atomic"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
)

// Bot wraps the Telegram bot for infrastructure layer
type Bot struct {
	bot    *tgbot.Bot
	logger zerolog.Logger

	// Plain messages go to a handler installed later by the domain
	// router; they carry the links users want downloaded.
	fallback atomic.Value // tgbot.HandlerFunc
}

// NewBot creates a new Telegram bot wrapper
func NewBot(token string, logger zerolog.Logger) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	b := &Bot{logger: logger}

	opts := []tgbot.Option{
		tgbot.WithDefaultHandler(b.defaultHandler),
	}

	bot, err := tgbot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	b.bot = bot

	logger.Info().Msg("Telegram bot created successfully")

	return b, nil
}

// Raw returns the underlying telegram bot for handler registration
func (b *Bot) Raw() *tgbot.Bot {
	return b.bot
}

// SetDefaultHandler installs the handler for updates no route matched
func (b *Bot) SetDefaultHandler(h tgbot.HandlerFunc) {
	b.fallback.Store(h)
}

// Start starts the bot (blocking call)
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info().Msg("Starting Telegram bot...")
	b.bot.Start(ctx)
	b.logger.Info().Msg("Telegram bot stopped")
	return nil
}

// Stop stops the bot
func (b *Bot) Stop() error {
	b.logger.Info().Msg("Stopping Telegram bot...")
	return nil
}

// defaultHandler delegates unrouted updates to the installed handler
func (b *Bot) defaultHandler(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	if h, ok := b.fallback.Load().(tgbot.HandlerFunc); ok && h != nil {
		h(ctx, bot, update)
		return
	}

	if update.Message == nil || update.Message.Text == "" {
		return
	}

	_, _ = bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   "🤖 Отправьте ссылку на видео или напишите /help для справки.",
	})
}
