// Package entities contains domain entities
package entities

// SessionState represents the conversation FSM state
type SessionState string

const (
	StateIdle          SessionState = "idle"
	StateWaitingType   SessionState = "waiting_type"
	StateWaitingFormat SessionState = "waiting_format"
	StateDownloading   SessionState = "downloading"
)

// MediaKind represents the user's top-level choice
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

// AudioMode selects between mp3 transcoding and the original audio container
type AudioMode string

const (
	AudioModeNone     AudioMode = "none"
	AudioModeMP3      AudioMode = "mp3"
	AudioModeOriginal AudioMode = "original"
)

// Session represents the per-chat conversation state.
// It lives only for the duration of one conversation and is discarded on
// completion, cancellation or error.
type Session struct {
	ChatID    int64
	URL       string
	Kind      MediaKind
	AudioMode AudioMode
	State     SessionState
	Menu      []MenuEntry
}

// MenuEntry is one selectable line of the format menu.
// ID may be a composite "<videoID>+<audioID>" selector meaning
// "merge these two streams".
type MenuEntry struct {
	ID       string
	Label    string
	Kind     MediaKind
	Height   int
	Bitrate  float64
	Filesize int64
}
