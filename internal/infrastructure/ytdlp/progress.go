package ytdlp

import (
	"strconv"
	"strings"

	"github.com/Conte777/MediaFlow/internal/domain/download/entities"
)

const progressLinePrefix = "dl:"

// parseProgressLine decodes one progress-template line. The template
// emits "dl:STATUS|DOWNLOADED|TOTAL|ESTIMATE" where missing numbers come
// through as the literal "NA".
func parseProgressLine(line string) (entities.FetchProgress, bool) {
	if !strings.HasPrefix(line, progressLinePrefix) {
		return entities.FetchProgress{}, false
	}

	parts := strings.Split(strings.TrimPrefix(line, progressLinePrefix), "|")
	if len(parts) != 4 {
		return entities.FetchProgress{}, false
	}

	p := entities.FetchProgress{
		Status:     parts[0],
		Downloaded: parseBytes(parts[1]),
		Total:      parseBytes(parts[2]),
	}
	if p.Total == 0 {
		p.Total = parseBytes(parts[3])
	}

	return p, true
}

func parseBytes(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "NA" || s == "None" {
		return 0
	}

	// yt-dlp prints byte counters as floats in some templates
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return int64(f)
	}
	return 0
}
