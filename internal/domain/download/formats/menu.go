// Package formats builds the selectable format menus from raw media metadata
package formats

import (
	"fmt"
	"sort"

	"github.com/Conte777/MediaFlow/internal/domain/download/entities"
)

// DefaultMenuLimit caps the number of entries presented to the user
const DefaultMenuLimit = 6

// BuildAudioMenu collapses the audio-only encodings into an ordered menu.
// Entries are sorted by descending (bitrate, filesize); entries without a
// usable format id are dropped. An empty menu is a valid outcome.
func BuildAudioMenu(info *entities.MediaInfo, limit int) []entities.MenuEntry {
	if info == nil {
		return nil
	}

	var menu []entities.MenuEntry
	for _, f := range info.Formats {
		if !f.IsAudioOnly() {
			continue
		}
		if f.FormatID == "" {
			continue
		}

		menu = append(menu, entities.MenuEntry{
			ID:       f.FormatID,
			Label:    audioLabel(f),
			Kind:     entities.KindAudio,
			Bitrate:  f.ABR,
			Filesize: f.Size(),
		})
	}

	sort.SliceStable(menu, func(i, j int) bool {
		if menu[i].Bitrate != menu[j].Bitrate {
			return menu[i].Bitrate > menu[j].Bitrate
		}
		return menu[i].Filesize > menu[j].Filesize
	})

	if limit > 0 && len(menu) > limit {
		menu = menu[:limit]
	}
	return menu
}

// BuildVideoMenu collapses the video encodings into one entry per height,
// ordered by descending height. Within a height the entry that already
// carries audio wins, tie-broken by larger file size. A chosen silent entry
// is paired with the best audio-only track as a composite
// "<videoID>+<audioID>" selector, marked in the label.
func BuildVideoMenu(info *entities.MediaInfo, limit int) []entities.MenuEntry {
	if info == nil {
		return nil
	}

	bestAudio := bestSilentAudio(info.Formats)

	byHeight := make(map[int]entities.MediaFormat)
	for _, f := range info.Formats {
		if !f.HasVideo() || f.Height == 0 || f.FormatID == "" {
			continue
		}

		cur, ok := byHeight[f.Height]
		if !ok || videoScoreLess(cur, f) {
			byHeight[f.Height] = f
		}
	}

	heights := make([]int, 0, len(byHeight))
	for h := range byHeight {
		heights = append(heights, h)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(heights)))

	var menu []entities.MenuEntry
	for _, h := range heights {
		f := byHeight[h]

		id := f.FormatID
		suffix := ""
		if !f.HasAudio() && bestAudio != nil {
			id = f.FormatID + "+" + bestAudio.FormatID
			suffix = " +audio"
		}

		menu = append(menu, entities.MenuEntry{
			ID:       id,
			Label:    videoLabel(f, suffix),
			Kind:     entities.KindVideo,
			Height:   h,
			Filesize: f.Size(),
		})

		if limit > 0 && len(menu) >= limit {
			break
		}
	}
	return menu
}

// bestSilentAudio picks the audio-only track with the highest bitrate
func bestSilentAudio(fmts []entities.MediaFormat) *entities.MediaFormat {
	var best *entities.MediaFormat
	for i := range fmts {
		f := fmts[i]
		if !f.IsAudioOnly() || f.FormatID == "" {
			continue
		}
		if best == nil || f.ABR > best.ABR {
			best = &fmts[i]
		}
	}
	return best
}

// videoScoreLess reports whether candidate b beats current a within one
// height: has-audio first, then larger file size
func videoScoreLess(a, b entities.MediaFormat) bool {
	aAudio, bAudio := a.HasAudio(), b.HasAudio()
	if aAudio != bAudio {
		return bAudio
	}
	return b.Size() > a.Size()
}

func audioLabel(f entities.MediaFormat) string {
	ext := f.Ext
	if ext == "" {
		ext = "audio"
	}
	abr := "?"
	if f.ABR > 0 {
		abr = fmt.Sprintf("%d", int(f.ABR))
	}
	return fmt.Sprintf("🎧 %s %s kbps (~%s)", ext, abr, approxMB(f.Size()))
}

func videoLabel(f entities.MediaFormat, suffix string) string {
	ext := f.Ext
	if ext == "" {
		ext = "video"
	}
	return fmt.Sprintf("🎬 %dp %s%s (~%s)", f.Height, ext, suffix, approxMB(f.Size()))
}

// approxMB renders a byte count as a rough megabyte figure, "?" when unknown
func approxMB(n int64) string {
	if n <= 0 {
		return "?"
	}
	mb := n / 1_000_000
	if mb < 1 {
		mb = 1
	}
	return fmt.Sprintf("%d MB", mb)
}
