package buissines

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/MediaFlow/config"
	"github.com/Conte777/MediaFlow/internal/domain/download/deps"
	"github.com/Conte777/MediaFlow/internal/domain/download/dto"
	"github.com/Conte777/MediaFlow/internal/domain/download/entities"
)

// mockProber implements deps.MediaProber
type mockProber struct {
	info *entities.MediaInfo
	err  error
}

func (m *mockProber) Probe(ctx context.Context, url string) (*entities.MediaInfo, error) {
	return m.info, m.err
}

// mockFetcher implements deps.MediaFetcher
type mockFetcher struct {
	mu      sync.Mutex
	err     error
	started chan struct{}
	release chan struct{}
	lastReq entities.FetchRequest
}

func (m *mockFetcher) Fetch(ctx context.Context, req entities.FetchRequest, hook func(entities.FetchProgress)) (string, error) {
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()

	if m.started != nil {
		close(m.started)
	}
	if m.release != nil {
		<-m.release
	}
	if m.err != nil {
		return "", m.err
	}

	if hook != nil {
		hook(entities.FetchProgress{Status: entities.ProgressDownloading, Downloaded: 50, Total: 100})
		hook(entities.FetchProgress{Status: entities.ProgressFinished, Downloaded: 100, Total: 100})
	}

	path := filepath.Join(req.OutDir, "clip [abc].mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// mockSender implements deps.FileSender
type mockSender struct {
	mu    sync.Mutex
	err   error
	calls int
	paths []string
}

func (m *mockSender) SendFile(ctx context.Context, chatID int64, filePath, caption string, onProgress func(pct int)) error {
	m.mu.Lock()
	m.calls++
	m.paths = append(m.paths, filePath)
	m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// mockFallback implements deps.FallbackSenderSource
type mockFallback struct {
	enabled    bool
	acquireErr error
	sender     *mockSender
}

func (m *mockFallback) Enabled() bool { return m.enabled }

func (m *mockFallback) Acquire(ctx context.Context) (deps.FileSender, error) {
	if m.acquireErr != nil {
		return nil, m.acquireErr
	}
	return m.sender, nil
}

// mockNotifier implements deps.StatusNotifier
type mockNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (m *mockNotifier) Notify(ctx context.Context, text string) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
}

func testMediaInfo(duration float64) *entities.MediaInfo {
	return &entities.MediaInfo{
		ID:       "abc",
		Title:    "clip",
		Duration: duration,
		Formats: []entities.MediaFormat{
			{FormatID: "v720", Ext: "mp4", VCodec: "h264", ACodec: "aac", Height: 720, Filesize: 30 << 20},
			{FormatID: "a1", Ext: "m4a", VCodec: "none", ACodec: "aac", ABR: 128, Filesize: 3 << 20},
		},
	}
}

func newTestUseCase(t *testing.T, prober *mockProber, fetcher *mockFetcher, sender *mockSender, fallback *mockFallback) *UseCase {
	t.Helper()

	cfg := &config.DownloadsConfig{
		Dir:                t.TempDir(),
		MaxDurationSeconds: 600,
	}

	uc := NewUseCase(prober, fetcher, fallback, cfg, zerolog.Nop())
	uc.SetSender(sender)
	return uc
}

func TestHandleLinkStartsConversation(t *testing.T) {
	uc := newTestUseCase(t, &mockProber{}, &mockFetcher{}, &mockSender{}, &mockFallback{})

	reply, err := uc.HandleLink(context.Background(), 42, "https://example.com/v")
	require.NoError(t, err)
	require.Equal(t, dto.KeyboardType, reply.Keyboard)

	session := uc.getSession(42)
	require.NotNil(t, session)
	require.Equal(t, entities.StateWaitingType, session.State)
	require.Equal(t, "https://example.com/v", session.URL)
}

func TestHandleLinkReplacesPreviousSession(t *testing.T) {
	uc := newTestUseCase(t, &mockProber{info: testMediaInfo(60)}, &mockFetcher{}, &mockSender{}, &mockFallback{})
	ctx := context.Background()

	_, err := uc.HandleLink(ctx, 42, "https://example.com/first")
	require.NoError(t, err)
	_, err = uc.HandleTypeSelected(ctx, 42, "video")
	require.NoError(t, err)

	_, err = uc.HandleLink(ctx, 42, "https://example.com/second")
	require.NoError(t, err)

	session := uc.getSession(42)
	require.Equal(t, "https://example.com/second", session.URL)
	require.Equal(t, entities.StateWaitingType, session.State)
}

func TestHandleTypeSelectedBuildsVideoMenu(t *testing.T) {
	uc := newTestUseCase(t, &mockProber{info: testMediaInfo(60)}, &mockFetcher{}, &mockSender{}, &mockFallback{})
	ctx := context.Background()

	_, err := uc.HandleLink(ctx, 42, "https://example.com/v")
	require.NoError(t, err)

	reply, err := uc.HandleTypeSelected(ctx, 42, "video")
	require.NoError(t, err)
	require.Equal(t, dto.KeyboardFormats, reply.Keyboard)
	require.Len(t, reply.Menu, 1)
	require.Equal(t, "v720", reply.Menu[0].ID)

	session := uc.getSession(42)
	require.Equal(t, entities.StateWaitingFormat, session.State)
	require.Equal(t, entities.KindVideo, session.Kind)
}

func TestHandleTypeSelectedRejectsLongMedia(t *testing.T) {
	uc := newTestUseCase(t, &mockProber{info: testMediaInfo(3600)}, &mockFetcher{}, &mockSender{}, &mockFallback{})
	ctx := context.Background()

	_, err := uc.HandleLink(ctx, 42, "https://example.com/v")
	require.NoError(t, err)

	reply, err := uc.HandleTypeSelected(ctx, 42, "video")
	require.NoError(t, err)
	require.Contains(t, reply.Text, "1h0m0s")
	require.Contains(t, reply.Text, "10m0s")

	// Session is gone, conversation must restart
	require.Nil(t, uc.getSession(42))
}

func TestHandleTypeSelectedNoFormats(t *testing.T) {
	info := &entities.MediaInfo{ID: "abc", Title: "clip", Duration: 60}
	uc := newTestUseCase(t, &mockProber{info: info}, &mockFetcher{}, &mockSender{}, &mockFallback{})
	ctx := context.Background()

	_, err := uc.HandleLink(ctx, 42, "https://example.com/v")
	require.NoError(t, err)

	reply, err := uc.HandleTypeSelected(ctx, 42, "audio_mp3")
	require.NoError(t, err)
	require.Contains(t, reply.Text, "❌")
	require.Nil(t, uc.getSession(42))
}

func TestHandleTypeSelectedProbeFailure(t *testing.T) {
	uc := newTestUseCase(t, &mockProber{err: errors.New("boom")}, &mockFetcher{}, &mockSender{}, &mockFallback{})
	ctx := context.Background()

	_, err := uc.HandleLink(ctx, 42, "https://example.com/v")
	require.NoError(t, err)

	reply, err := uc.HandleTypeSelected(ctx, 42, "video")
	require.NoError(t, err)
	require.Contains(t, reply.Text, "❌")
}

func TestHandleTypeSelectedWithoutSession(t *testing.T) {
	uc := newTestUseCase(t, &mockProber{info: testMediaInfo(60)}, &mockFetcher{}, &mockSender{}, &mockFallback{})

	reply, err := uc.HandleTypeSelected(context.Background(), 42, "video")
	require.NoError(t, err)
	require.Contains(t, reply.Text, "🤷")
}

func TestHandleFormatSelectedHappyPath(t *testing.T) {
	fetcher := &mockFetcher{}
	sender := &mockSender{}
	uc := newTestUseCase(t, &mockProber{info: testMediaInfo(60)}, fetcher, sender, &mockFallback{})
	ctx := context.Background()

	_, err := uc.HandleLink(ctx, 42, "https://example.com/v")
	require.NoError(t, err)
	_, err = uc.HandleTypeSelected(ctx, 42, "video")
	require.NoError(t, err)

	reply, err := uc.HandleFormatSelected(ctx, 42, "v720", &mockNotifier{})
	require.NoError(t, err)
	require.Equal(t, "✅ Готово!", reply.Text)
	require.Equal(t, 1, sender.calls)

	// Job finished, session and workspace are gone
	require.Nil(t, uc.getSession(42))
	require.NoFileExists(t, sender.paths[0])
}

func TestHandleFormatSelectedAudioMP3(t *testing.T) {
	fetcher := &mockFetcher{}
	uc := newTestUseCase(t, &mockProber{info: testMediaInfo(60)}, fetcher, &mockSender{}, &mockFallback{})
	ctx := context.Background()

	_, err := uc.HandleLink(ctx, 42, "https://example.com/v")
	require.NoError(t, err)
	_, err = uc.HandleTypeSelected(ctx, 42, "audio_mp3")
	require.NoError(t, err)

	_, err = uc.HandleFormatSelected(ctx, 42, "a1", &mockNotifier{})
	require.NoError(t, err)
	require.True(t, fetcher.lastReq.ToMP3)
}

func TestHandleFormatSelectedUnknownFormat(t *testing.T) {
	uc := newTestUseCase(t, &mockProber{info: testMediaInfo(60)}, &mockFetcher{}, &mockSender{}, &mockFallback{})
	ctx := context.Background()

	_, err := uc.HandleLink(ctx, 42, "https://example.com/v")
	require.NoError(t, err)
	_, err = uc.HandleTypeSelected(ctx, 42, "video")
	require.NoError(t, err)

	reply, err := uc.HandleFormatSelected(ctx, 42, "nope", &mockNotifier{})
	require.NoError(t, err)
	require.Contains(t, reply.Text, "🤷")
}

func TestHandleFormatSelectedRejectsConcurrentJob(t *testing.T) {
	fetcher := &mockFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	uc := newTestUseCase(t, &mockProber{info: testMediaInfo(60)}, fetcher, &mockSender{}, &mockFallback{})
	ctx := context.Background()

	_, err := uc.HandleLink(ctx, 42, "https://example.com/v")
	require.NoError(t, err)
	_, err = uc.HandleTypeSelected(ctx, 42, "video")
	require.NoError(t, err)

	done := make(chan *dto.Reply, 1)
	go func() {
		reply, _ := uc.HandleFormatSelected(ctx, 42, "v720", &mockNotifier{})
		done <- reply
	}()
	<-fetcher.started

	// Second start for the same chat while job is running: the session
	// moved to downloading, so the new press reads as expired.
	reply, err := uc.HandleFormatSelected(ctx, 42, "v720", &mockNotifier{})
	require.NoError(t, err)
	require.Contains(t, reply.Text, "🤷")

	close(fetcher.release)
	select {
	case reply := <-done:
		require.Equal(t, "✅ Готово!", reply.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("first job did not finish")
	}
}

func TestNewLinkDuringDownloadSurvivesCleanup(t *testing.T) {
	fetcher := &mockFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	uc := newTestUseCase(t, &mockProber{info: testMediaInfo(60)}, fetcher, &mockSender{}, &mockFallback{})
	ctx := context.Background()

	_, err := uc.HandleLink(ctx, 42, "https://example.com/first")
	require.NoError(t, err)
	_, err = uc.HandleTypeSelected(ctx, 42, "video")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = uc.HandleFormatSelected(ctx, 42, "v720", &mockNotifier{})
	}()
	<-fetcher.started

	_, err = uc.HandleLink(ctx, 42, "https://example.com/second")
	require.NoError(t, err)

	close(fetcher.release)
	<-done

	// The finished job must not have wiped the newer conversation
	session := uc.getSession(42)
	require.NotNil(t, session)
	require.Equal(t, "https://example.com/second", session.URL)
}

func TestHandleCancelClearsSession(t *testing.T) {
	uc := newTestUseCase(t, &mockProber{}, &mockFetcher{}, &mockSender{}, &mockFallback{})
	ctx := context.Background()

	_, err := uc.HandleLink(ctx, 42, "https://example.com/v")
	require.NoError(t, err)

	reply, err := uc.HandleCancel(ctx, 42)
	require.NoError(t, err)
	require.Contains(t, reply.Text, "Отменено")
	require.Nil(t, uc.getSession(42))
}

func TestHandleBackReturnsToTypeChoice(t *testing.T) {
	uc := newTestUseCase(t, &mockProber{info: testMediaInfo(60)}, &mockFetcher{}, &mockSender{}, &mockFallback{})
	ctx := context.Background()

	_, err := uc.HandleLink(ctx, 42, "https://example.com/v")
	require.NoError(t, err)
	_, err = uc.HandleTypeSelected(ctx, 42, "video")
	require.NoError(t, err)

	reply, err := uc.HandleBack(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, dto.KeyboardType, reply.Keyboard)

	session := uc.getSession(42)
	require.Equal(t, entities.StateWaitingType, session.State)
	require.Nil(t, session.Menu)
}

func TestHandleBackConcurrentWithFormatPick(t *testing.T) {
	uc := newTestUseCase(t, &mockProber{info: testMediaInfo(60)}, &mockFetcher{}, &mockSender{}, &mockFallback{})
	ctx := context.Background()

	_, err := uc.HandleLink(ctx, 42, "https://example.com/v")
	require.NoError(t, err)
	_, err = uc.HandleTypeSelected(ctx, 42, "video")
	require.NoError(t, err)

	// Back presses and format picks arrive on separate handler
	// goroutines; the session fields they touch must stay synchronized.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = uc.HandleBack(ctx, 42)
			_, _ = uc.HandleTypeSelected(ctx, 42, "video")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = uc.HandleFormatSelected(ctx, 42, "nope", &mockNotifier{})
		}
	}()
	wg.Wait()

	require.NotNil(t, uc.getSession(42))
}

func TestHandleFormatSelectedBusyLock(t *testing.T) {
	uc := newTestUseCase(t, &mockProber{info: testMediaInfo(60)}, &mockFetcher{}, &mockSender{}, &mockFallback{})
	ctx := context.Background()

	_, err := uc.HandleLink(ctx, 42, "https://example.com/v")
	require.NoError(t, err)
	_, err = uc.HandleTypeSelected(ctx, 42, "video")
	require.NoError(t, err)

	// Simulate a job holding the chat lock
	lock := uc.chatLock(42)
	lock.Lock()
	defer lock.Unlock()

	reply, err := uc.HandleFormatSelected(ctx, 42, "v720", &mockNotifier{})
	require.NoError(t, err)
	require.Contains(t, reply.Text, "⏳")
}

func TestParseTypeToken(t *testing.T) {
	kind, mode, err := parseTypeToken("video")
	require.NoError(t, err)
	require.Equal(t, entities.KindVideo, kind)
	require.Equal(t, entities.AudioModeNone, mode)

	kind, mode, err = parseTypeToken("audio_mp3")
	require.NoError(t, err)
	require.Equal(t, entities.KindAudio, kind)
	require.Equal(t, entities.AudioModeMP3, mode)

	kind, mode, err = parseTypeToken("audio_orig")
	require.NoError(t, err)
	require.Equal(t, entities.KindAudio, kind)
	require.Equal(t, entities.AudioModeOriginal, mode)

	_, _, err = parseTypeToken("banana")
	require.Error(t, err)
}
