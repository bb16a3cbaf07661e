package telegram

import (
	"github.com/go-telegram/bot/models"

	"github.com/Conte777/MediaFlow/internal/domain/download/consts"
	"github.com/Conte777/MediaFlow/internal/domain/download/dto"
	"github.com/Conte777/MediaFlow/internal/domain/download/entities"
)

// kbType builds the video/audio choice keyboard
func kbType() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "🎬 Видео", CallbackData: consts.CallbackTypeVideo},
			},
			{
				{Text: "🎧 Аудио (mp3)", CallbackData: consts.CallbackTypeAudioMP3},
				{Text: "🎧 Аудио (оригинал)", CallbackData: consts.CallbackTypeAudioOrg},
			},
			{
				{Text: "❌ Отмена", CallbackData: consts.CallbackCancel},
			},
		},
	}
}

// kbFormats builds the quality keyboard, one row per menu entry
func kbFormats(menu []entities.MenuEntry) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(menu)+1)
	for _, entry := range menu {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: entry.Label, CallbackData: consts.CallbackFormatPrefix + entry.ID},
		})
	}

	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "⬅️ Назад", CallbackData: consts.CallbackBackToType},
		{Text: "❌ Отмена", CallbackData: consts.CallbackCancel},
	})

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// replyMarkup maps a usecase reply to its inline keyboard, nil for none
func replyMarkup(reply *dto.Reply) models.ReplyMarkup {
	switch reply.Keyboard {
	case dto.KeyboardType:
		return kbType()
	case dto.KeyboardFormats:
		return kbFormats(reply.Menu)
	default:
		return nil
	}
}
