package persona

import "time"

// ImageSize is the advertised output frame size, per spec.md §6.
type ImageSize struct {
	Width  int
	Height int
}

// Config enumerates the recognized engine options from spec.md §6.
type Config struct {
	APIKey string
	WSURL  string

	ClientConnectMaxRetries int
	ClientReconnectDelay    time.Duration

	PersonaConfigID string
	ImageSize       ImageSize

	TTSAudioPassthrough bool
	ExtraFramesLat      int

	// OjinMode is read from OJIN_MODE by the excluded "environment
	// loading" collaborator and passed through here, per spec.md §6.
	OjinMode string

	// StallWatchdog, when positive, is passed to the playback clock as its
	// stall deadline, so the clock's Stalled() reports a stall during
	// Speaking. The engine does not poll Stalled() and does not cancel the
	// interaction when it trips. A zero value (the default) disables it.
	StallWatchdog time.Duration
}

// DefaultConfig returns the recognized defaults from spec.md §6.
func DefaultConfig() Config {
	return Config{
		ClientConnectMaxRetries: 3,
		ClientReconnectDelay:    3 * time.Second,
		ImageSize:               ImageSize{Width: 1920, Height: 1080},
		ExtraFramesLat:          15,
	}
}
