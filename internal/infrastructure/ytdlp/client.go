// Package ytdlp wraps the external yt-dlp binary behind the domain's
// prober/fetcher interfaces
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Conte777/MediaFlow/config"
	"github.com/Conte777/MediaFlow/internal/domain/download/entities"
	dlerrors "github.com/Conte777/MediaFlow/internal/domain/download/errors"
)

// Output naming template handed to yt-dlp; the resolver mirrors it when
// the engine does not report a final path.
const outputTemplate = "%(title).200s [%(id)s].%(ext)s"

// Progress lines are prefixed so they can be told apart from the final
// info JSON on the same stream.
const progressTemplate = "download:" + progressLinePrefix +
	"%(progress.status)s|%(progress.downloaded_bytes)s|%(progress.total_bytes)s|%(progress.total_bytes_estimate)s"

// Bounded retry/timeout policy applied on every fetch. The engine is not
// left on its defaults: transient network, fragment and extractor faults
// get a fixed retry budget and a bounded socket timeout.
var retryPolicyArgs = []string{
	"--retries", "10",
	"--fragment-retries", "10",
	"--file-access-retries", "5",
	"--extractor-retries", "5",
	"--socket-timeout", "20",
}

// Client shells out to yt-dlp for metadata and downloads
type Client struct {
	binPath     string
	cookiesFile string
	logger      zerolog.Logger
}

// NewClient creates a yt-dlp client from downloads config
func NewClient(cfg *config.DownloadsConfig, logger zerolog.Logger) *Client {
	bin := cfg.YTDLPPath
	if bin == "" {
		bin = "yt-dlp"
	}

	return &Client{
		binPath:     bin,
		cookiesFile: cfg.CookiesFile,
		logger:      logger.With().Str("component", "ytdlp").Logger(),
	}
}

// Probe resolves metadata for the URL without downloading any bytes
func (c *Client) Probe(ctx context.Context, url string) (*entities.MediaInfo, error) {
	args := []string{"-J", "--no-playlist", "--no-warnings"}
	args = c.appendCookies(args)
	args = append(args, url)

	cmd := exec.CommandContext(ctx, c.binPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug().Str("url", url).Msg("Probing media metadata")

	if err := cmd.Run(); err != nil {
		c.logger.Warn().Str("url", url).Str("stderr", tail(stderr.String())).Err(err).Msg("Metadata probe failed")
		return nil, fmt.Errorf("%w: %v", dlerrors.ErrExtraction, err)
	}

	var info entities.MediaInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("%w: bad metadata json: %v", dlerrors.ErrExtraction, err)
	}

	c.logger.Debug().
		Str("url", url).
		Str("media_id", info.ID).
		Float64("duration", info.Duration).
		Int("format_count", len(info.Formats)).
		Msg("Metadata resolved")

	return &info, nil
}

// Fetch downloads the requested format into req.OutDir and returns the
// resolved output file. hook runs in the stdout reader goroutine.
func (c *Client) Fetch(ctx context.Context, req entities.FetchRequest, hook func(entities.FetchProgress)) (string, error) {
	if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	args := []string{
		"-f", req.FormatID,
		"-o", filepath.Join(req.OutDir, outputTemplate),
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"--print-json",
		"--progress-template", progressTemplate,
		"--merge-output-format", "mp4",
	}
	args = append(args, retryPolicyArgs...)
	if req.ToMP3 {
		args = append(args, "-x", "--audio-format", "mp3")
	}
	args = c.appendCookies(args)
	args = append(args, req.URL)

	cmd := exec.CommandContext(ctx, c.binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open yt-dlp stdout: %w", err)
	}

	c.logger.Info().
		Str("url", req.URL).
		Str("format_id", req.FormatID).
		Bool("to_mp3", req.ToMP3).
		Msg("Starting download")

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	// Progress lines and the final info JSON share stdout; the prefix
	// added by progressTemplate keeps them apart.
	var lastJSON []byte
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if p, ok := parseProgressLine(line); ok {
			if hook != nil {
				hook(p)
			}
			continue
		}
		if strings.HasPrefix(line, "{") {
			lastJSON = []byte(line)
		}
	}

	if err := cmd.Wait(); err != nil {
		c.logger.Error().
			Str("url", req.URL).
			Str("format_id", req.FormatID).
			Str("stderr", tail(stderr.String())).
			Err(err).
			Msg("Download failed")
		return "", fmt.Errorf("download failed: %w", err)
	}

	var info fetchInfo
	if len(lastJSON) > 0 {
		// A broken trailer is not fatal; the resolver can still scan the dir
		if err := json.Unmarshal(lastJSON, &info); err != nil {
			c.logger.Warn().Err(err).Msg("Could not parse download report json")
		}
	}
	if req.ToMP3 {
		info.Ext = "mp3"
	}

	path, err := resolveOutputFile(req.OutDir, &info)
	if err != nil {
		return "", err
	}

	c.logger.Info().Str("url", req.URL).Str("file", path).Msg("Download finished")
	return path, nil
}

func (c *Client) appendCookies(args []string) []string {
	if c.cookiesFile == "" {
		return args
	}
	return append(args, "--cookies", c.cookiesFile)
}

// tail keeps the last part of yt-dlp's stderr for log context
func tail(s string) string {
	s = strings.TrimSpace(s)
	const max = 400
	if len(s) <= max {
		return s
	}
	return "…" + s[len(s)-max:]
}
