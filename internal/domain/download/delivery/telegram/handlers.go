// Package telegram contains Telegram delivery handlers
package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/Conte777/MediaFlow/internal/domain/download/consts"
	"github.com/Conte777/MediaFlow/internal/domain/download/dto"
	"github.com/Conte777/MediaFlow/internal/domain/download/usecase/buissines"
)

// Constants for Telegram API
const (
	RequestTimeout = 30 * time.Second
	// Document uploads move real bytes and may run for minutes
	UploadTimeout = 30 * time.Minute
)

// urlPattern captures the first http(s) link in a message
var urlPattern = regexp.MustCompile(`https?://\S+`)

// Handlers contains Telegram update handlers
// Implements deps.FileSender as the primary Bot API transport
type Handlers struct {
	uc     *buissines.UseCase
	bot    *tgbot.Bot
	logger zerolog.Logger
}

// NewHandlers creates new Telegram handlers
func NewHandlers(uc *buissines.UseCase, bot *tgbot.Bot, logger zerolog.Logger) *Handlers {
	return &Handlers{
		uc:     uc,
		bot:    bot,
		logger: logger.With().Str("component", "telegram_handlers").Logger(),
	}
}

// SendFile implements deps.FileSender via the Bot API document upload.
// The Bot API gives no upload progress, so onProgress fires once on success.
func (h *Handlers) SendFile(ctx context.Context, chatID int64, filePath, caption string, onProgress func(pct int)) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file for upload: %w", err)
	}
	defer f.Close()

	msgCtx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	_, err = h.bot.SendDocument(msgCtx, &tgbot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: filepath.Base(filePath), Data: f},
		Caption:  caption,
	})
	if err != nil {
		return fmt.Errorf("failed to send document: %w", err)
	}

	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// HandleStart handles /start command
func (h *Handlers) HandleStart(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	h.logCommand(chatID, "/start", "processing")

	reply, err := h.uc.HandleStart(ctx, chatID)
	if err != nil {
		h.logError(chatID, "/start", err)
		h.sendText(ctx, chatID, "❌ Произошла ошибка при обработке команды /start")
		return
	}

	h.sendReply(ctx, chatID, reply)
	h.logCommand(chatID, "/start", "success")
}

// HandleHelp handles /help command
func (h *Handlers) HandleHelp(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	h.logCommand(chatID, "/help", "processing")

	reply, err := h.uc.HandleHelp(ctx)
	if err != nil {
		h.logError(chatID, "/help", err)
		h.sendText(ctx, chatID, "❌ Произошла ошибка при обработке команды /help")
		return
	}

	h.sendReply(ctx, chatID, reply)
	h.logCommand(chatID, "/help", "success")
}

// HandleMessage handles plain text messages: anything carrying a link
// starts a new conversation
func (h *Handlers) HandleMessage(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	chatID := update.Message.Chat.ID
	url := extractURL(update.Message.Text)
	if url == "" {
		h.sendText(ctx, chatID, "🤖 Пришлите ссылку на видео или напишите /help для справки.")
		return
	}

	reply, err := h.uc.HandleLink(ctx, chatID, url)
	if err != nil {
		h.logError(chatID, "link", err)
		h.sendText(ctx, chatID, "❌ Произошла ошибка, попробуйте ещё раз")
		return
	}

	h.sendReply(ctx, chatID, reply)
}

// HandleCallback dispatches inline keyboard presses
func (h *Handlers) HandleCallback(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	// Ack first so the button stops spinning regardless of the outcome
	h.answerCallback(ctx, cb.ID)

	msg := cb.Message.Message
	if msg == nil {
		h.logger.Warn().Str("data", cb.Data).Msg("Callback without accessible message")
		return
	}
	chatID := msg.Chat.ID

	h.logger.Debug().Int64("chat_id", chatID).Str("data", cb.Data).Msg("Processing callback")

	switch {
	case cb.Data == consts.CallbackCancel:
		h.dispatchEdit(ctx, chatID, msg.ID, func() (*dto.Reply, error) {
			return h.uc.HandleCancel(ctx, chatID)
		})

	case cb.Data == consts.CallbackBackToType:
		h.dispatchEdit(ctx, chatID, msg.ID, func() (*dto.Reply, error) {
			return h.uc.HandleBack(ctx, chatID)
		})

	case strings.HasPrefix(cb.Data, consts.CallbackFormatPrefix):
		formatID := strings.TrimPrefix(cb.Data, consts.CallbackFormatPrefix)
		h.startDownload(ctx, chatID, msg.ID, formatID)

	case strings.HasPrefix(cb.Data, consts.CallbackPrefix+"type:"):
		token := strings.TrimPrefix(cb.Data, consts.CallbackPrefix+"type:")
		h.dispatchEdit(ctx, chatID, msg.ID, func() (*dto.Reply, error) {
			return h.uc.HandleTypeSelected(ctx, chatID, token)
		})

	default:
		h.logger.Warn().Int64("chat_id", chatID).Str("data", cb.Data).Msg("Unknown callback token")
	}
}

// startDownload runs the download job, reusing the keyboard message as
// the job's live status message
func (h *Handlers) startDownload(ctx context.Context, chatID int64, messageID int, formatID string) {
	h.editText(ctx, chatID, messageID, "⬇️ Начинаю загрузку...", nil)

	notifier := &statusMessage{
		bot:       h.bot,
		chatID:    chatID,
		messageID: messageID,
		logger:    h.logger,
	}

	reply, err := h.uc.HandleFormatSelected(ctx, chatID, formatID, notifier)
	if err != nil {
		h.logError(chatID, "download", err)
		h.editText(ctx, chatID, messageID, "❌ Произошла ошибка, попробуйте ещё раз", nil)
		return
	}

	h.editText(ctx, chatID, messageID, reply.Text, replyMarkup(reply))
}

// dispatchEdit runs a usecase call and replaces the keyboard message
// with its reply
func (h *Handlers) dispatchEdit(ctx context.Context, chatID int64, messageID int, call func() (*dto.Reply, error)) {
	reply, err := call()
	if err != nil {
		h.logError(chatID, "callback", err)
		h.editText(ctx, chatID, messageID, "❌ Произошла ошибка, попробуйте ещё раз", nil)
		return
	}

	h.editText(ctx, chatID, messageID, reply.Text, replyMarkup(reply))
}

func (h *Handlers) sendReply(ctx context.Context, chatID int64, reply *dto.Reply) {
	msgCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	_, err := h.bot.SendMessage(msgCtx, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        reply.Text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: replyMarkup(reply),
	})
	if err != nil {
		h.logger.Error().Int64("chat_id", chatID).Err(err).Msg("Failed to send reply")
	}
}

func (h *Handlers) sendText(ctx context.Context, chatID int64, text string) {
	h.sendReply(ctx, chatID, &dto.Reply{Text: text})
}

func (h *Handlers) editText(ctx context.Context, chatID int64, messageID int, text string, markup models.ReplyMarkup) {
	msgCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	_, err := h.bot.EditMessageText(msgCtx, &tgbot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: markup,
	})
	if err != nil {
		h.logger.Warn().Int64("chat_id", chatID).Int("message_id", messageID).Err(err).Msg("Failed to edit message")
	}
}

func (h *Handlers) answerCallback(ctx context.Context, callbackID string) {
	msgCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	_, err := h.bot.AnswerCallbackQuery(msgCtx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
	})
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to answer callback query")
	}
}

// logCommand logs successful commands
func (h *Handlers) logCommand(chatID int64, command, result string) {
	h.logger.Info().Int64("chat_id", chatID).Str("command", command).Str("result", result).Msg("Telegram command processed")
}

// logError logs command errors
func (h *Handlers) logError(chatID int64, command string, err error) {
	h.logger.Error().Int64("chat_id", chatID).Str("command", command).Err(err).Msg("Telegram command failed")
}

// extractURL returns the first http(s) link in the text, "" when absent
func extractURL(text string) string {
	return urlPattern.FindString(text)
}

// statusMessage implements deps.StatusNotifier over one editable message.
// Edit failures are logged and swallowed: progress is advisory.
type statusMessage struct {
	bot       *tgbot.Bot
	chatID    int64
	messageID int
	logger    zerolog.Logger
}

func (s *statusMessage) Notify(ctx context.Context, text string) {
	msgCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	_, err := s.bot.EditMessageText(msgCtx, &tgbot.EditMessageTextParams{
		ChatID:    s.chatID,
		MessageID: s.messageID,
		Text:      text,
	})
	if err != nil {
		s.logger.Debug().Int64("chat_id", s.chatID).Err(err).Msg("Status edit skipped")
	}
}
