// Package consts contains callback token constants for the download domain
package consts

// Callback tokens carried in inline keyboard buttons, namespace "dl".
// Format selectors are appended to CallbackFormatPrefix verbatim.
const (
	CallbackPrefix       = "dl:"
	CallbackTypeVideo    = "dl:type:video"
	CallbackTypeAudioMP3 = "dl:type:audio_mp3"
	CallbackTypeAudioOrg = "dl:type:audio_orig"
	CallbackFormatPrefix = "dl:fmt:"
	CallbackBackToType   = "dl:back:type"
	CallbackCancel       = "dl:cancel"
)
