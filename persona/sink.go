package persona

// Sink is the downstream collaborator named in spec.md §6: the excluded
// audio/video device transport and windowed display transport, and the
// "emit upstream" gating path, collapsed into one interface the engine
// calls into. EmitPersonaInitialized and EmitEnd fire both upstream and
// downstream per spec.md §4.7/§4.8, so a single Sink implementation is
// expected to fan them out if the two directions differ.
type Sink interface {
	// EmitImage is called once per 25 fps tick once the session reaches
	// Idle.
	EmitImage(OutputImageRawFrame)
	// EmitAudio is called once per 25 fps tick, in lockstep after
	// EmitImage, per spec.md §4.6's ordering guarantee.
	EmitAudio(OutputAudioRawFrame)
	// EmitPersonaInitialized fires exactly once per session, when
	// Initializing -> Idle completes.
	EmitPersonaInitialized()
	// EmitEnd fires on any fatal error (§7) or on Stop.
	EmitEnd()
}
