package entities

// MediaFormat is one encoding reported by the extraction engine
type MediaFormat struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Height         int     `json:"height"`
	ABR            float64 `json:"abr"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
}

// HasVideo reports whether the format carries a video track
func (f MediaFormat) HasVideo() bool {
	return f.VCodec != "" && f.VCodec != "none"
}

// HasAudio reports whether the format carries an audio track
func (f MediaFormat) HasAudio() bool {
	return f.ACodec != "" && f.ACodec != "none"
}

// IsAudioOnly reports whether the engine explicitly marked the format as
// video-less. A missing vcodec does not count: storyboard and thumbnail
// entries often omit the field entirely.
func (f MediaFormat) IsAudioOnly() bool {
	return f.VCodec == "none" && f.HasAudio()
}

// Size returns the reported file size, falling back to the engine's estimate
func (f MediaFormat) Size() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return f.FilesizeApprox
}

// MediaInfo is the metadata the extraction engine reports for a URL
type MediaInfo struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Duration float64       `json:"duration"`
	Formats  []MediaFormat `json:"formats"`
}

// FetchRequest describes one download job handed to the engine
type FetchRequest struct {
	URL      string
	FormatID string
	OutDir   string
	ToMP3    bool
}

// Fetch progress status tags reported by the engine
const (
	ProgressDownloading = "downloading"
	ProgressFinished    = "finished"
)

// FetchProgress is one progress callback payload from the engine.
// The callback runs in the engine's reader goroutine, not in the
// conversation handler.
type FetchProgress struct {
	Status     string
	Downloaded int64
	Total      int64
}

// Percent returns the completed percentage, or -1 when the total is unknown
func (p FetchProgress) Percent() int {
	if p.Total <= 0 {
		return -1
	}
	return int(p.Downloaded * 100 / p.Total)
}
