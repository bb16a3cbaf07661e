// Package buissines contains business logic for the download domain
package buissines

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/MediaFlow/config"
	"github.com/Conte777/MediaFlow/internal/domain/download/deps"
	"github.com/Conte777/MediaFlow/internal/domain/download/dto"
	"github.com/Conte777/MediaFlow/internal/domain/download/entities"
	dlerrors "github.com/Conte777/MediaFlow/internal/domain/download/errors"
	"github.com/Conte777/MediaFlow/internal/domain/download/formats"
	"github.com/Conte777/MediaFlow/internal/domain/download/workspace"
)

// UseCase contains business logic for the download conversation
type UseCase struct {
	prober   deps.MediaProber
	fetcher  deps.MediaFetcher
	fallback deps.FallbackSenderSource
	sender   deps.FileSender
	logger   zerolog.Logger

	downloadsDir string
	maxDuration  time.Duration

	// Conversation sessions, one per chat. Sessions are transient and
	// die with the conversation.
	sessionsMu sync.RWMutex
	sessions   map[int64]*entities.Session

	// Per-chat download locks. A held lock means a job is running for
	// that chat and new jobs must be rejected, not queued.
	locks sync.Map // int64 -> *sync.Mutex
}

// NewUseCase creates a new UseCase instance
// Note: sender is not passed here to break cyclic dependency
// Use SetSender after creating TelegramHandlers
func NewUseCase(prober deps.MediaProber, fetcher deps.MediaFetcher, fallback deps.FallbackSenderSource, cfg *config.DownloadsConfig, logger zerolog.Logger) *UseCase {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		logger.Warn().Err(err).Str("dir", cfg.Dir).Msg("Could not prepare downloads directory")
	}

	return &UseCase{
		prober:       prober,
		fetcher:      fetcher,
		fallback:     fallback,
		logger:       logger.With().Str("component", "download_usecase").Logger(),
		downloadsDir: cfg.Dir,
		maxDuration:  time.Duration(cfg.MaxDurationSeconds) * time.Second,
		sessions:     make(map[int64]*entities.Session),
	}
}

// SetSender sets the primary FileSender after construction
// This is called by fx.Invoke to resolve cyclic dependency
func (uc *UseCase) SetSender(sender deps.FileSender) {
	uc.sender = sender
}

// HandleStart handles /start command
func (uc *UseCase) HandleStart(ctx context.Context, chatID int64) (*dto.Reply, error) {
	uc.logger.Info().Int64("chat_id", chatID).Msg("User started bot")

	message := `👋 <b>Привет!</b>

Пришлите мне ссылку на видео, и я скачаю его для вас.

Можно выбрать качество видео или вытащить только звук (mp3 или исходная дорожка).

<b>Команды:</b>
/help - показать справку`

	return &dto.Reply{Text: message}, nil
}

// HandleHelp handles /help command
func (uc *UseCase) HandleHelp(ctx context.Context) (*dto.Reply, error) {
	message := `📚 <b>Справка:</b>

1. Пришлите ссылку на видео.
2. Выберите, что скачать: видео или аудио.
3. Выберите качество из списка.

Большие файлы отправляются дольше обычного.

<b>Команды:</b>
/start - начать работу с ботом
/help - показать эту справку`

	return &dto.Reply{Text: message}, nil
}

// HandleLink handles a captured media URL. A new link always replaces
// whatever conversation was in progress for the chat.
func (uc *UseCase) HandleLink(ctx context.Context, chatID int64, url string) (*dto.Reply, error) {
	uc.logger.Info().Int64("chat_id", chatID).Str("url", url).Msg("Captured media link")

	uc.sessionsMu.Lock()
	uc.sessions[chatID] = &entities.Session{
		ChatID: chatID,
		URL:    url,
		State:  entities.StateWaitingType,
	}
	uc.sessionsMu.Unlock()

	return &dto.Reply{
		Text:     "🔗 Ссылка принята. Что скачать?",
		Keyboard: dto.KeyboardType,
	}, nil
}

// HandleCancel handles the cancel button
func (uc *UseCase) HandleCancel(ctx context.Context, chatID int64) (*dto.Reply, error) {
	uc.sessionsMu.Lock()
	delete(uc.sessions, chatID)
	uc.sessionsMu.Unlock()

	uc.logger.Info().Int64("chat_id", chatID).Msg("Conversation cancelled")

	return &dto.Reply{Text: "❌ Отменено. Пришлите новую ссылку."}, nil
}

// HandleBack returns the conversation to the type choice
func (uc *UseCase) HandleBack(ctx context.Context, chatID int64) (*dto.Reply, error) {
	session := uc.getSession(chatID)
	if session == nil {
		return uc.expiredReply(), nil
	}

	uc.sessionsMu.Lock()
	session.State = entities.StateWaitingType
	session.Kind = ""
	session.AudioMode = entities.AudioModeNone
	session.Menu = nil
	uc.sessionsMu.Unlock()

	return &dto.Reply{
		Text:     "🔗 Что скачать?",
		Keyboard: dto.KeyboardType,
	}, nil
}

// HandleTypeSelected handles the video/audio choice: probes the URL,
// enforces the duration ceiling and builds the format menu.
func (uc *UseCase) HandleTypeSelected(ctx context.Context, chatID int64, token string) (*dto.Reply, error) {
	session := uc.getSession(chatID)
	if session == nil {
		return uc.expiredReply(), nil
	}

	uc.sessionsMu.RLock()
	state := session.State
	uc.sessionsMu.RUnlock()
	if state == entities.StateDownloading {
		return uc.expiredReply(), nil
	}

	kind, mode, err := parseTypeToken(token)
	if err != nil {
		uc.logger.Warn().Int64("chat_id", chatID).Str("token", token).Msg("Unknown type token")
		return uc.expiredReply(), nil
	}

	info, err := uc.prober.Probe(ctx, session.URL)
	if err != nil {
		uc.logger.Error().Err(err).Int64("chat_id", chatID).Str("url", session.URL).Msg("Metadata probe failed")
		return &dto.Reply{Text: "❌ Не удалось получить информацию по ссылке. Проверьте её и попробуйте ещё раз."}, nil
	}

	if reply := uc.checkDuration(info); reply != nil {
		uc.clearSession(chatID)
		return reply, nil
	}

	var menu []entities.MenuEntry
	if kind == entities.KindVideo {
		menu = formats.BuildVideoMenu(info, formats.DefaultMenuLimit)
	} else {
		menu = formats.BuildAudioMenu(info, formats.DefaultMenuLimit)
	}

	if len(menu) == 0 {
		uc.logger.Warn().Err(dlerrors.ErrNoFormats).Int64("chat_id", chatID).Str("url", session.URL).Str("kind", string(kind)).Msg("No matching formats")
		uc.clearSession(chatID)
		return &dto.Reply{Text: "❌ Не нашлось подходящих форматов для этой ссылки."}, nil
	}

	uc.sessionsMu.Lock()
	session.Kind = kind
	session.AudioMode = mode
	session.State = entities.StateWaitingFormat
	session.Menu = menu
	uc.sessionsMu.Unlock()

	return &dto.Reply{
		Text:     "🎚 Выберите качество:",
		Keyboard: dto.KeyboardFormats,
		Menu:     menu,
	}, nil
}

// HandleFormatSelected runs the download job for the chosen format and
// delivers the file. notifier receives progress text for the chat's
// status message.
func (uc *UseCase) HandleFormatSelected(ctx context.Context, chatID int64, formatID string, notifier deps.StatusNotifier) (*dto.Reply, error) {
	session := uc.getSession(chatID)
	if session == nil {
		return uc.expiredReply(), nil
	}

	// Handlers run concurrently, so Back may be mutating the session
	// right now. Snapshot the fields under the lock before deciding.
	uc.sessionsMu.RLock()
	state := session.State
	menu := session.Menu
	uc.sessionsMu.RUnlock()

	if state != entities.StateWaitingFormat {
		return uc.expiredReply(), nil
	}

	entry := findEntry(menu, formatID)
	if entry == nil {
		uc.logger.Warn().Int64("chat_id", chatID).Str("format_id", formatID).Msg("Format not in menu")
		return uc.expiredReply(), nil
	}

	lock := uc.chatLock(chatID)
	if !lock.TryLock() {
		uc.logger.Info().Err(dlerrors.ErrDownloadInFlight).Int64("chat_id", chatID).Msg("Download already in flight, rejecting")
		return &dto.Reply{Text: "⏳ Уже идёт загрузка для этого чата. Дождитесь её окончания."}, nil
	}
	defer lock.Unlock()

	uc.sessionsMu.Lock()
	url := session.URL
	mode := session.AudioMode
	session.State = entities.StateDownloading
	uc.sessionsMu.Unlock()

	// A new link may arrive while the job runs and must survive this
	// job's cleanup.
	defer uc.clearSessionIfDownloading(session)

	return uc.runJob(ctx, chatID, url, entry, mode, notifier)
}

// runJob executes one download end to end: workspace, fetch, deliver
func (uc *UseCase) runJob(ctx context.Context, chatID int64, url string, entry *entities.MenuEntry, mode entities.AudioMode, notifier deps.StatusNotifier) (*dto.Reply, error) {
	dir, err := workspace.Create(uc.downloadsDir, chatID)
	if err != nil {
		uc.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to create job workspace")
		return &dto.Reply{Text: "❌ Внутренняя ошибка, попробуйте позже."}, nil
	}
	defer workspace.Destroy(dir)

	pump := newStatusPump(ctx, notifier)
	defer pump.stop()

	uc.logger.Info().
		Int64("chat_id", chatID).
		Str("url", url).
		Str("format_id", entry.ID).
		Str("audio_mode", string(mode)).
		Msg("Starting download job")

	req := entities.FetchRequest{
		URL:      url,
		FormatID: entry.ID,
		OutDir:   dir,
		ToMP3:    mode == entities.AudioModeMP3,
	}

	path, err := uc.fetcher.Fetch(ctx, req, func(p entities.FetchProgress) {
		pump.push(downloadStatusText(p))
	})
	if err != nil {
		uc.logger.Error().Err(err).Int64("chat_id", chatID).Str("url", url).Msg("Download failed")
		return &dto.Reply{Text: uc.diagnose(err)}, nil
	}

	pump.push("📤 Отправка файла...")

	caption := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := uc.deliverFile(ctx, chatID, path, caption, func(pct int) {
		pump.push(fmt.Sprintf("📤 Отправка: %d%%", pct))
	}); err != nil {
		uc.logger.Error().Err(err).Int64("chat_id", chatID).Str("file", path).Msg("Delivery failed")
		return &dto.Reply{Text: uc.diagnose(err)}, nil
	}

	uc.logger.Info().Int64("chat_id", chatID).Str("file", path).Msg("Download job finished")
	return &dto.Reply{Text: "✅ Готово!"}, nil
}

// checkDuration rejects media longer than the configured ceiling
func (uc *UseCase) checkDuration(info *entities.MediaInfo) *dto.Reply {
	if uc.maxDuration <= 0 || info.Duration <= 0 {
		return nil
	}

	actual := time.Duration(info.Duration * float64(time.Second))
	if actual <= uc.maxDuration {
		return nil
	}

	err := &dlerrors.DurationExceededError{Actual: actual, Limit: uc.maxDuration}
	uc.logger.Info().Err(err).Msg("Rejecting long media")

	return &dto.Reply{Text: fmt.Sprintf(
		"⏱ Слишком длинное видео: %s при лимите %s.",
		formatDuration(actual), formatDuration(uc.maxDuration),
	)}
}

// diagnose maps job errors to user-facing diagnostics
func (uc *UseCase) diagnose(err error) string {
	var durErr *dlerrors.DurationExceededError
	switch {
	case errors.As(err, &durErr):
		return fmt.Sprintf("⏱ Слишком длинное видео: %s при лимите %s.",
			formatDuration(durErr.Actual), formatDuration(durErr.Limit))
	case errors.Is(err, dlerrors.ErrFileTooBig):
		return "❌ Файл слишком большой, его не удалось отправить ни одним способом."
	case errors.Is(err, dlerrors.ErrEmptyOrMissingFile):
		return "❌ Загрузка не дала файла. Попробуйте другой формат."
	case errors.Is(err, dlerrors.ErrExtraction):
		return "❌ Не удалось получить информацию по ссылке. Проверьте её и попробуйте ещё раз."
	case errors.Is(err, dlerrors.ErrDelivery):
		return "❌ Не удалось отправить файл. Попробуйте позже."
	default:
		return "❌ Ошибка при скачивании. Попробуйте позже."
	}
}

func (uc *UseCase) getSession(chatID int64) *entities.Session {
	uc.sessionsMu.RLock()
	defer uc.sessionsMu.RUnlock()
	return uc.sessions[chatID]
}

func (uc *UseCase) clearSession(chatID int64) {
	uc.sessionsMu.Lock()
	delete(uc.sessions, chatID)
	uc.sessionsMu.Unlock()
}

// clearSessionIfDownloading drops the session only if it is still the
// one this job owns. A newer captured link has already replaced it.
func (uc *UseCase) clearSessionIfDownloading(owned *entities.Session) {
	uc.sessionsMu.Lock()
	defer uc.sessionsMu.Unlock()

	if cur := uc.sessions[owned.ChatID]; cur == owned && cur.State == entities.StateDownloading {
		delete(uc.sessions, owned.ChatID)
	}
}

func (uc *UseCase) chatLock(chatID int64) *sync.Mutex {
	v, _ := uc.locks.LoadOrStore(chatID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (uc *UseCase) expiredReply() *dto.Reply {
	return &dto.Reply{Text: "🤷 Сессия не найдена или устарела. Пришлите ссылку заново."}
}

// parseTypeToken maps a type callback token to kind and audio mode
func parseTypeToken(token string) (entities.MediaKind, entities.AudioMode, error) {
	switch token {
	case "video":
		return entities.KindVideo, entities.AudioModeNone, nil
	case "audio_mp3":
		return entities.KindAudio, entities.AudioModeMP3, nil
	case "audio_orig":
		return entities.KindAudio, entities.AudioModeOriginal, nil
	default:
		return "", "", fmt.Errorf("unknown media type token: %q", token)
	}
}

func findEntry(menu []entities.MenuEntry, id string) *entities.MenuEntry {
	for i := range menu {
		if menu[i].ID == id {
			return &menu[i]
		}
	}
	return nil
}

func downloadStatusText(p entities.FetchProgress) string {
	if p.Status == entities.ProgressFinished {
		return "⚙️ Обработка файла..."
	}
	if pct := p.Percent(); pct >= 0 {
		return fmt.Sprintf("⬇️ Загрузка: %d%%", pct)
	}
	return "⬇️ Загрузка..."
}

// formatDuration renders durations the way users read them, without
// fractional seconds
func formatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}
