// Package mtproto provides the large-file delivery path over the MTProto
// API using the gotd/td library
package mtproto

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/styling"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Conte777/MediaFlow/config"
	"github.com/Conte777/MediaFlow/internal/domain/download/deps"
	dlerrors "github.com/Conte777/MediaFlow/internal/domain/download/errors"
)

// Uploader implements deps.FallbackSenderSource over a lazily started
// MTProto bot session
type Uploader struct {
	// Telegram client instance
	client *telegram.Client

	// API credentials
	apiID    int
	apiHash  string
	botToken string

	// Session storage
	sessionStorage *FileSessionStorage

	// Connection state
	connected     bool
	disconnecting bool
	mu            sync.Mutex
	cancelFunc    context.CancelFunc
	runDone       chan struct{} // Signals when client.Run() completes

	// Logger
	logger zerolog.Logger

	// API client for making requests
	api *tg.Client

	// Rate limiter for API calls
	rateLimiter *rate.Limiter
}

// NewUploader creates the fallback uploader. Credentials may be absent,
// in which case the fallback stays disabled and Acquire always fails.
func NewUploader(cfg *config.MTProtoConfig, botCfg *config.TelegramConfig, logger zerolog.Logger) (*Uploader, error) {
	u := &Uploader{
		apiID:       cfg.APIID,
		apiHash:     cfg.APIHash,
		botToken:    botCfg.BotToken,
		logger:      logger.With().Str("component", "mtproto_uploader").Logger(),
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 10), // 10 requests per second
	}

	if !cfg.FallbackEnabled() {
		u.logger.Info().Msg("MTProto credentials not set, large-file fallback disabled")
		return u, nil
	}

	sessionStorage, err := NewFileSessionStorage(cfg.SessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create session storage: %w", err)
	}
	u.sessionStorage = sessionStorage

	return u, nil
}

// Enabled reports whether the fallback path is configured
func (u *Uploader) Enabled() bool {
	return u.apiID != 0 && u.apiHash != ""
}

// Acquire returns a connected sender, starting the MTProto session on
// first use. Concurrent callers share the one connection attempt.
func (u *Uploader) Acquire(ctx context.Context) (deps.FileSender, error) {
	if !u.Enabled() {
		return nil, dlerrors.ErrNoFallback
	}

	if err := u.connect(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

// connect starts the gotd client and authorizes as a bot. Modeled after
// a long-lived Run goroutine signalled through ready/err channels.
func (u *Uploader) connect(ctx context.Context) error {
	u.mu.Lock()
	if u.connected {
		u.mu.Unlock()
		u.logger.Debug().Msg("already connected")
		return nil
	}
	if u.disconnecting {
		u.mu.Unlock()
		return fmt.Errorf("disconnect in progress, cannot connect")
	}
	// Keep the lock to prevent concurrent connection attempts
	defer u.mu.Unlock()

	u.logger.Info().Msg("connecting to Telegram over MTProto")
	if u.sessionStorage != nil && u.sessionStorage.SessionExists() {
		u.logger.Debug().Msg("stored session found, will try to reuse it")
	}

	u.client = telegram.NewClient(u.apiID, u.apiHash, telegram.Options{
		SessionStorage: u.sessionStorage,
	})

	// The run context must outlive Acquire's ctx: the session serves
	// later uploads too and is only torn down by Close.
	clientCtx, cancel := context.WithCancel(context.Background())
	u.cancelFunc = cancel

	readyChan := make(chan struct{})
	errChan := make(chan error, 1)
	started := make(chan struct{})
	u.runDone = make(chan struct{})

	go func() {
		defer close(u.runDone) // Signal when Run() completes
		close(started)
		err := u.client.Run(clientCtx, func(ctx context.Context) error {
			u.api = u.client.API()

			status, err := u.client.Auth().Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to check auth status: %w", err)
			}

			if !status.Authorized {
				u.logger.Info().Msg("not authorized, performing bot login")
				if _, err := u.client.Auth().Bot(ctx, u.botToken); err != nil {
					u.logger.Error().Err(err).Msg("bot authorization failed")
					u.dropStaleSession(err)
					return fmt.Errorf("bot authorization failed: %w", err)
				}
			} else {
				u.logger.Info().Msg("session restored from storage")
			}

			u.connected = true
			u.logger.Info().Msg("successfully connected to Telegram")

			close(readyChan)

			// Keep connection alive
			<-ctx.Done()
			return ctx.Err()
		})
		// Always send error to channel, even if nil
		select {
		case errChan <- err:
		default:
		}
	}()

	// Ensure goroutine has started
	<-started

	// Wait for connection to be fully ready or error
	select {
	case <-readyChan:
		return nil
	case err := <-errChan:
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// dropStaleSession removes the stored session when the server has
// revoked it, so the next connect attempt starts a clean authorization
func (u *Uploader) dropStaleSession(err error) {
	if u.sessionStorage == nil {
		return
	}
	if !tgerr.Is(err, "SESSION_REVOKED") && !tgerr.Is(err, "AUTH_KEY_UNREGISTERED") {
		return
	}

	u.logger.Warn().Msg("stored session rejected by server, deleting session file")
	if delErr := u.sessionStorage.DeleteSession(); delErr != nil {
		u.logger.Warn().Err(delErr).Msg("failed to delete stale session")
	}
}

// SendFile uploads the file in chunks and sends it as a document
func (u *Uploader) SendFile(ctx context.Context, chatID int64, filePath, caption string, onProgress func(pct int)) error {
	u.mu.Lock()
	api := u.api
	ok := u.connected && api != nil
	u.mu.Unlock()
	if !ok {
		return fmt.Errorf("mtproto uploader not connected")
	}

	// Apply rate limiting
	if err := u.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	peer, err := u.resolvePeer(ctx, chatID)
	if err != nil {
		return err
	}

	u.logger.Info().Int64("chat_id", chatID).Str("file", filepath.Base(filePath)).Msg("uploading file over MTProto")

	up := uploader.NewUploader(api).WithProgress(&uploadProgress{notify: onProgress})
	f, err := up.FromPath(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	doc := message.UploadedDocument(f, styling.Plain(caption)).
		Filename(filepath.Base(filePath)).
		ForceFile(true)

	sender := message.NewSender(api)
	if _, err := sender.To(peer).Media(ctx, doc); err != nil {
		u.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send uploaded file")
		return fmt.Errorf("failed to send file: %w", err)
	}

	u.logger.Info().Int64("chat_id", chatID).Msg("file delivered over MTProto")
	return nil
}

// resolvePeer turns a private-chat ID into an input peer. Bots may call
// users.getUsers with a zero access hash for users that already talked
// to them.
func (u *Uploader) resolvePeer(ctx context.Context, chatID int64) (tg.InputPeerClass, error) {
	users, err := u.api.UsersGetUsers(ctx, []tg.InputUserClass{
		&tg.InputUser{UserID: chatID},
	})
	if err != nil {
		u.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to resolve user, using bare peer")
		return &tg.InputPeerUser{UserID: chatID}, nil
	}

	for _, usr := range users {
		if user, ok := usr.(*tg.User); ok && user.ID == chatID {
			return &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}, nil
		}
	}

	return &tg.InputPeerUser{UserID: chatID}, nil
}

// Close stops the MTProto session with graceful shutdown.
// Multiple calls are safe and return nil if already disconnected.
func (u *Uploader) Close(ctx context.Context) error {
	u.mu.Lock()

	// Check if already disconnecting
	if u.disconnecting {
		u.mu.Unlock()
		u.logger.Debug().Msg("disconnect already in progress")
		return nil
	}

	// Check if already disconnected
	if !u.connected {
		u.mu.Unlock()
		u.logger.Debug().Msg("already disconnected")
		return nil
	}

	u.logger.Info().Msg("disconnecting from Telegram")

	u.disconnecting = true
	cancelFunc := u.cancelFunc
	runDone := u.runDone
	u.mu.Unlock()

	if cancelFunc != nil {
		cancelFunc()

		// Wait for client.Run() goroutine to actually finish
		if runDone != nil {
			select {
			case <-runDone:
				u.logger.Debug().Msg("client stopped gracefully")
			case <-ctx.Done():
				u.logger.Warn().Msg("disconnect timeout reached while waiting for client shutdown")
			}
		}
	}

	// Clean up state
	u.mu.Lock()
	u.client = nil
	u.api = nil
	u.connected = false
	u.cancelFunc = nil
	u.runDone = nil
	u.disconnecting = false
	u.mu.Unlock()

	u.logger.Info().Msg("successfully disconnected from Telegram")
	return nil
}

// uploadProgress adapts gotd's chunk callback to a percent callback
type uploadProgress struct {
	notify func(pct int)
}

func (p *uploadProgress) Chunk(ctx context.Context, state uploader.ProgressState) error {
	if p.notify == nil || state.Total <= 0 {
		return nil
	}
	p.notify(int(state.Uploaded * 100 / state.Total))
	return nil
}

// Ensure Uploader satisfies the domain contracts
var (
	_ deps.FallbackSenderSource = (*Uploader)(nil)
	_ deps.FileSender           = (*Uploader)(nil)
)
