package persona

import (
	"fmt"

	"github.com/journee-live/ojin-persona-client/internal/pfsm"
	"github.com/journee-live/ojin-persona-client/internal/serverclient"
)

// PushTTSAudio implements the Audio Ingress Pipeline (C5), per spec.md §4.5:
// resample the incoming chunk to 16 kHz mono, immediately forward it as an
// InteractionInput carrying the current lookahead index, and signal the FSM
// that speaking has begun. No client-side batching is performed; the
// server is expected to accept arbitrarily small chunks.
func (e *Engine) PushTTSAudio(frame TTSAudioRawFrame) error {
	if e.fsm.Is(pfsm.Initializing) {
		logf("ingress: dropping TTS audio received before PersonaInitialized")
		return nil
	}

	r, err := e.resamplerFor(frame.SampleRate)
	if err != nil {
		return fmt.Errorf("persona: ingress: %w", err)
	}
	pcm, err := r.Process(frame.Audio)
	if err != nil {
		return fmt.Errorf("persona: ingress: resample: %w", err)
	}

	// Idle -> Speaking on the first accepted frame; a no-op if already
	// Speaking. No server acknowledgement is awaited per spec.md §4.7.
	e.fsm.Set(pfsm.Speaking)

	lookahead := e.playedFrameIdx() + e.cfg.ExtraFramesLat
	sendErr := e.dialer.Send(serverclient.Message{
		Type:            serverclient.TypeInteractionInput,
		AudioInt16Bytes: pcm,
		Params: &serverclient.InputParams{
			ClientFrameIndex: lookahead,
		},
	})
	if sendErr != nil {
		return fmt.Errorf("persona: ingress: send: %w", sendErr)
	}

	if e.cfg.TTSAudioPassthrough {
		e.sink.EmitAudio(OutputAudioRawFrame{
			Audio:       frame.Audio,
			SampleRate:  frame.SampleRate,
			NumChannels: 1,
		})
	}
	return nil
}

// playedFrameIdx reads the clock's played_frame_idx, or 0 before the clock
// has started (no lookahead anchor exists yet, matching spec.md's
// `extra_frames_lat = 0` boundary case of "legal, playback must still
// function").
func (e *Engine) playedFrameIdx() int {
	if e.clock == nil {
		return 0
	}
	return e.clock.PlayedFrameIdx()
}
