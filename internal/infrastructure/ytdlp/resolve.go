package ytdlp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	dlerrors "github.com/Conte777/MediaFlow/internal/domain/download/errors"
)

// fetchInfo is the subset of yt-dlp's final info JSON the resolver needs
type fetchInfo struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Ext                string        `json:"ext"`
	Filepath           string        `json:"filepath"`
	RequestedDownloads []requestedDL `json:"requested_downloads"`
}

type requestedDL struct {
	Filepath string `json:"filepath"`
}

// resolveOutputFile locates the produced file. The engine's own report is
// trusted first: the top-level filepath, then requested_downloads newest
// last. Failing that the expected name is rendered from the template, and
// as a last resort the directory is scanned for the media id.
func resolveOutputFile(dir string, info *fetchInfo) (string, error) {
	if info != nil {
		if isUsableFile(info.Filepath) {
			return info.Filepath, nil
		}

		for i := len(info.RequestedDownloads) - 1; i >= 0; i-- {
			if p := info.RequestedDownloads[i].Filepath; isUsableFile(p) {
				return p, nil
			}
		}

		if info.ID != "" && info.Title != "" && info.Ext != "" {
			p := filepath.Join(dir, expectedFilename(info.Title, info.ID, info.Ext))
			if isUsableFile(p) {
				return p, nil
			}
		}

		if info.ID != "" {
			if p := scanForID(dir, info.ID); p != "" {
				return p, nil
			}
		}
	}

	return "", fmt.Errorf("%w: no output in %s", dlerrors.ErrEmptyOrMissingFile, dir)
}

// expectedFilename mirrors the output template, including its 200-rune
// title cap.
func expectedFilename(title, id, ext string) string {
	runes := []rune(title)
	if len(runes) > 200 {
		title = string(runes[:200])
	}
	return fmt.Sprintf("%s [%s].%s", title, id, ext)
}

// scanForID picks the largest finished file in dir whose name carries the
// media id. Partial fragments and empty files are skipped.
func scanForID(dir, id string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	marker := "[" + id + "]"

	var best string
	var bestSize int64
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), marker) {
			continue
		}

		p := filepath.Join(dir, e.Name())
		if !isUsableFile(p) {
			continue
		}

		fi, err := e.Info()
		if err != nil {
			continue
		}
		if fi.Size() > bestSize {
			best = p
			bestSize = fi.Size()
		}
	}

	return best
}

func isUsableFile(path string) bool {
	if path == "" || strings.HasSuffix(path, ".part") {
		return false
	}

	fi, err := os.Stat(path)
	if err != nil {
		return false
	}

	return fi.Mode().IsRegular() && fi.Size() > 0
}
