package persona

// Upstream frame contract, from the excluded TTS/VAD/LLM collaborators into
// the engine, per spec.md §6.

// TTSAudioRawFrame carries one chunk of raw TTS audio awaiting resampling
// and submission to the persona server.
type TTSAudioRawFrame struct {
	Audio       []byte
	SampleRate  int
	NumChannels int // always 1
}

// Downstream frame contract, produced by the engine for the excluded
// audio/video device transport, per spec.md §6.

// OutputImageRawFrame is one 40 ms tick's worth of video.
type OutputImageRawFrame struct {
	Image  []byte
	Width  int
	Height int
	Format string // "RGB"
}

// OutputAudioRawFrame is one 40 ms tick's worth of 16 kHz mono PCM.
type OutputAudioRawFrame struct {
	Audio       []byte
	SampleRate  int // 16000
	NumChannels int // 1
}
