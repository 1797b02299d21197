// Package persona implements the top-level Persona Streaming Engine: the
// orchestrator wiring the Resampler, Server Client Adapter, Idle Frame
// Cache, Speech Jitter Buffer, Playback Clock, Persona FSM, Connect/Retry
// Supervisor, Message Dispatcher, and Interrupt Protocol (spec.md §2,
// C1-C10) into one session.
package persona

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/journee-live/ojin-persona-client/internal/idlecache"
	"github.com/journee-live/ojin-persona-client/internal/pfsm"
	"github.com/journee-live/ojin-persona-client/internal/playback"
	"github.com/journee-live/ojin-persona-client/internal/resample"
	"github.com/journee-live/ojin-persona-client/internal/serverclient"
	"github.com/journee-live/ojin-persona-client/internal/speechqueue"
)

// Engine is one persona streaming session. Not safe for concurrent calls to
// PushTTSAudio/StartInterruption from multiple goroutines — per spec.md §5
// each is expected to be driven from its own single caller, matching the
// single-owner-per-structure concurrency model.
type Engine struct {
	cfg Config

	dialer ServerDialer
	fsm    *pfsm.Machine
	idle   *idlecache.Cache
	speech *speechqueue.Queue
	clock  *playback.Clock
	sink   Sink

	mu            sync.Mutex
	resampler     *resample.Resampler
	resamplerRate int

	mirrored bool

	initOnce sync.Once
	endOnce  sync.Once

	clockOnce sync.Once
	clockDone chan struct{}
}

// New constructs an Engine ready to Run. dialer is normally
// serverclient.New(cfg.WSURL, cfg.APIKey, cfg.OjinMode, cfg.PersonaConfigID);
// tests may substitute a fake satisfying ServerDialer.
func New(cfg Config, dialer ServerDialer, sink Sink) *Engine {
	return &Engine{
		cfg:       cfg,
		dialer:    dialer,
		fsm:       pfsm.New(),
		idle:      idlecache.New(),
		speech:    speechqueue.New(),
		sink:      sink,
		clockDone: make(chan struct{}),
	}
}

// Run connects (with bounded retry per spec.md §4.8), then runs the Message
// Dispatcher until the connection ends, ctx is cancelled, or a fatal error
// occurs. A connect failure (after retries) or a receive failure returns a
// non-nil error after End has been emitted through Sink; a fatal server
// error emits End and returns nil; a cancelled ctx returns ctx's error
// without emitting End.
func (e *Engine) Run(ctx context.Context) error {
	retryCfg := serverclient.RetryConfig{
		MaxRetries: e.cfg.ClientConnectMaxRetries,
		Delay:      e.cfg.ClientReconnectDelay,
	}
	if retryCfg.MaxRetries < 1 {
		retryCfg = serverclient.DefaultRetryConfig()
	}

	if err := serverclient.ConnectFuncWithRetry(ctx, e.dialer.Connect, retryCfg); err != nil {
		logf("connect failed after retries: %v", err)
		e.emitEnd()
		return fmt.Errorf("persona: connect: %w", err)
	}
	defer e.dialer.Close()

	return e.dispatchLoop(ctx)
}

// Stop ends the session cooperatively: the playback clock is stopped and an
// End frame is emitted, matching spec.md §5's cancellation requirement that
// every task's shutdown handler be idempotent.
func (e *Engine) Stop() {
	if e.clock != nil {
		e.clock.Stop()
	}
	_ = e.dialer.Close()
	e.emitEnd()
}

// Stats exposes the playback clock's diagnostic counters (spec.md §9
// supplemented FPS/lookahead tracking). Returns the zero value before the
// clock has started.
func (e *Engine) Stats() playback.Stats {
	if e.clock == nil {
		return playback.Stats{}
	}
	return e.clock.Stats()
}

func (e *Engine) emitPersonaInitializedOnce() {
	e.initOnce.Do(func() {
		e.sink.EmitPersonaInitialized()
	})
}

func (e *Engine) emitEnd() {
	e.endOnce.Do(func() {
		e.sink.EmitEnd()
	})
}

// startClockOnce spawns the Playback Clock the first time the session
// reaches Idle, per spec.md §4.7 ("spawn the Playback Clock").
func (e *Engine) startClockOnce() {
	e.clockOnce.Do(func() {
		var opts []playback.Option
		if e.cfg.StallWatchdog > 0 {
			opts = append(opts, playback.WithStallWatchdog(e.cfg.StallWatchdog))
		}
		e.clock = playback.New(e.fsm, e.idle, e.speech, &sinkAdapter{sink: e.sink, size: e.cfg.ImageSize}, e, opts...)
		go func() {
			defer close(e.clockDone)
			e.clock.Run()
		}()
	})
}

// OnSpeechBurstComplete implements playback.SpeakingDoneNotifier. The FSM
// transition itself is already performed by the clock; this hook exists so
// the dispatcher side (interaction-handle bookkeeping, stats) can react to
// burst completion without polling the clock.
func (e *Engine) OnSpeechBurstComplete() {
	logf("speech burst complete, played_frame_idx=%d", e.clock.PlayedFrameIdx())
}

func (e *Engine) resamplerFor(sourceRate int) (*resample.Resampler, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resampler != nil && e.resamplerRate == sourceRate {
		return e.resampler, nil
	}
	r, err := resample.New(sourceRate)
	if err != nil {
		return nil, err
	}
	e.resampler = r
	e.resamplerRate = sourceRate
	return r, nil
}

// sinkAdapter adapts persona.Sink to playback.Sink, attaching the
// configured image size and the fixed 16 kHz/mono audio format spec.md §6
// mandates for every downstream frame.
type sinkAdapter struct {
	sink Sink
	size ImageSize
}

func (a *sinkAdapter) EmitImage(image []byte) {
	a.sink.EmitImage(OutputImageRawFrame{
		Image:  image,
		Width:  a.size.Width,
		Height: a.size.Height,
		Format: "RGB",
	})
}

func (a *sinkAdapter) EmitAudio(audio []byte) {
	a.sink.EmitAudio(OutputAudioRawFrame{
		Audio:       audio,
		SampleRate:  resample.TargetRate,
		NumChannels: 1,
	})
}

const logPrefix = "[persona]"

func logf(format string, args ...any) {
	log.Printf(logPrefix+" "+format, args...)
}
