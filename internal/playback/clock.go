// Package playback implements the Playback Clock (C6): a single cooperative
// task ticking at exactly 25 Hz that selects an idle or speech frame each
// tick and emits it downstream, per spec.md §4.6.
package playback

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/journee-live/ojin-persona-client/internal/idlecache"
	"github.com/journee-live/ojin-persona-client/internal/pfsm"
	"github.com/journee-live/ojin-persona-client/internal/speechqueue"
)

// FPS is the fixed playback cadence.
const FPS = 25

// TickInterval is one playback tick (40 ms at 25 fps).
const TickInterval = time.Second / FPS

// spinWindow is how far ahead of each deadline the clock switches from
// sleeping to a tight monotonic spin, per spec.md §4.6 step 1. Sleeping the
// whole way risks the scheduler waking us late; spinning the whole way
// burns a full core. The hybrid keeps CPU near zero while absorbing
// scheduler jitter.
const spinWindow = 5 * time.Millisecond

// starvationRetryDelay is how long a starvation tick sleeps before
// re-checking the speech queue, per spec.md §4.6 step 3.
const starvationRetryDelay = 5 * time.Millisecond

// SilenceFrame is one tick's worth of 16kHz mono 16-bit silence (40ms = 640
// samples = 1280 bytes), substituted whenever a frame carries no audio.
var SilenceFrame = make([]byte, 1280)

// Sink receives one image+audio pair per tick, in that order, per spec.md
// §4.6's ordering guarantee. It is the excluded "output sink" collaborator
// (audio device transport / windowed display transport).
type Sink interface {
	EmitImage(image []byte)
	EmitAudio(audio []byte)
}

// SpeakingDoneNotifier is notified when the last speech frame of a burst is
// consumed, so the caller (the engine's dispatcher side) can drive the
// Speaking->Idle FSM transition described in spec.md §4.7.
type SpeakingDoneNotifier interface {
	OnSpeechBurstComplete()
}

// Clock is the playback clock. current_frame_idx/played_frame_idx/the tick
// counters are mutated only from the single goroutine running Run, per
// spec.md §5's single-owner rule, but are read from other goroutines (the
// ingress pipeline's lookahead calculation, Stats() callers, an external
// watchdog) — those fields are atomics for that reason, the same way the
// teacher's transport.go keeps hot cross-goroutine counters in
// atomic.Int64/atomic.Uint64 rather than behind a mutex.
type Clock struct {
	fsm    *pfsm.Machine
	idle   *idlecache.Cache
	speech *speechqueue.Queue
	sink   Sink
	done   SpeakingDoneNotifier
	now    func() time.Time // injected for deterministic tests

	startTimestamp        time.Time
	currentFrameIdx       atomic.Int64
	playedFrameIdx        atomic.Int64
	numSpeechFramesPlayed atomic.Int64

	stallWatchdog         bool
	stallWatchdogDeadline time.Duration
	progressMu            sync.Mutex
	lastProgress          time.Time

	framesPlayed    atomic.Int64
	starvationTicks atomic.Int64

	stop chan struct{}
}

// Stats is a diagnostic snapshot of the clock's progress, supplementing
// spec.md with the FPS/lookahead tracking the original implementation logs
// periodically after SessionReady.
type Stats struct {
	FramesPlayed    int
	StarvationTicks int
	CurrentFrameIdx int
	PlayedFrameIdx  int
}

// Stats returns a snapshot of the clock's counters.
func (c *Clock) Stats() Stats {
	return Stats{
		FramesPlayed:    int(c.framesPlayed.Load()),
		StarvationTicks: int(c.starvationTicks.Load()),
		CurrentFrameIdx: int(c.currentFrameIdx.Load()),
		PlayedFrameIdx:  int(c.playedFrameIdx.Load()),
	}
}

// Option configures optional Clock behavior.
type Option func(*Clock)

// WithStallWatchdog enables the optional safety net from spec.md §9: after
// deadline with no speech-frame progress during Speaking, Stalled() reports
// true. Clock itself only exposes Stalled(); it sends nothing and changes no
// FSM state when the deadline passes.
func WithStallWatchdog(deadline time.Duration) Option {
	return func(c *Clock) {
		c.stallWatchdog = true
		c.stallWatchdogDeadline = deadline
	}
}

// New returns a Clock ready to Run once the session reaches Idle for the
// first time.
func New(fsm *pfsm.Machine, idle *idlecache.Cache, speech *speechqueue.Queue, sink Sink, done SpeakingDoneNotifier, opts ...Option) *Clock {
	c := &Clock{
		fsm:    fsm,
		idle:   idle,
		speech: speech,
		sink:   sink,
		done:   done,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stop ends the Run loop after its current tick.
func (c *Clock) Stop() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

// CurrentFrameIdx returns the monotonic tick counter.
func (c *Clock) CurrentFrameIdx() int { return int(c.currentFrameIdx.Load()) }

// PlayedFrameIdx returns the frame index the server should assume the
// client is about to display.
func (c *Clock) PlayedFrameIdx() int { return int(c.playedFrameIdx.Load()) }

// NumSpeechFramesPlayed returns the count of speech frames played during
// the current Speaking burst (reset to 0 on Idle entry).
func (c *Clock) NumSpeechFramesPlayed() int { return int(c.numSpeechFramesPlayed.Load()) }

// ResetSpeechProgress clears the speech-frame-played counter. Called when
// entering Idle (including via the interrupt protocol, per spec.md §4.10
// step 5) so a starvation tick isn't mistakenly inferred on the next burst.
func (c *Clock) ResetSpeechProgress() {
	c.numSpeechFramesPlayed.Store(0)
}

// Stalled reports whether the stall watchdog (if enabled) has tripped:
// more than stallWatchdogDeadline has elapsed with no speech-frame progress
// while Speaking. Safe to call from any goroutine.
func (c *Clock) Stalled() bool {
	if !c.stallWatchdog || !c.fsm.Is(pfsm.Speaking) {
		return false
	}
	c.progressMu.Lock()
	last := c.lastProgress
	c.progressMu.Unlock()
	return c.now().Sub(last) > c.stallWatchdogDeadline
}

func (c *Clock) markProgress(t time.Time) {
	c.progressMu.Lock()
	c.lastProgress = t
	c.progressMu.Unlock()
}

// Run executes the tick loop until Stop is called. Intended to run in its
// own goroutine, started once when the session first enters Idle.
func (c *Clock) Run() {
	c.startTimestamp = c.now()
	c.markProgress(c.startTimestamp)
	for {
		select {
		case <-c.stop:
			return
		default:
		}
		c.tick()
	}
}

// tick executes exactly one scheduling cycle: sleep-then-spin to the
// deadline, advance current_frame_idx, select a frame, emit it. A
// starvation tick rolls current_frame_idx back and retries after a short
// delay instead of advancing, per spec.md §4.6 step 3.
func (c *Clock) tick() {
	deadline := c.startTimestamp.Add(time.Duration(c.currentFrameIdx.Load()+1) * TickInterval)
	c.sleepUntil(deadline)

	c.currentFrameIdx.Add(1)

	if c.selectAndEmit() {
		return
	}

	// Starvation tick: stall the clock rather than advance past a gap.
	c.currentFrameIdx.Add(-1)
	c.starvationTicks.Add(1)
	select {
	case <-c.stop:
	case <-time.After(starvationRetryDelay):
	}
}

// selectAndEmit implements spec.md §4.6 step 3's frame-selection policy.
// It returns false only for a starvation tick (head speech frame not yet
// due, mid-utterance); in every other case it emits a frame and returns
// true.
func (c *Clock) selectAndEmit() bool {
	current := c.currentFrameIdx.Load()
	if head, ok := c.speech.PeekFront(); ok && int64(head.FrameIdx) <= current {
		frame, _ := c.speech.PopFront()
		audio := frame.Audio
		if len(audio) == 0 {
			audio = SilenceFrame
		}
		c.sink.EmitImage(frame.Image)
		c.sink.EmitAudio(audio)
		c.playedFrameIdx.Store(int64(frame.FrameIdx))
		c.numSpeechFramesPlayed.Add(1)
		c.framesPlayed.Add(1)
		c.markProgress(c.now())

		if frame.IsFinal && c.speech.Len() == 0 {
			c.fsm.Set(pfsm.Idle)
			c.numSpeechFramesPlayed.Store(0)
			if c.done != nil {
				c.done.OnSpeechBurstComplete()
			}
		}
		return true
	}

	if c.numSpeechFramesPlayed.Load() > 0 && c.fsm.Is(pfsm.Speaking) {
		return false // starvation tick
	}

	// Idle, just-finished-initializing, or pre-first-speech.
	played := c.playedFrameIdx.Add(1)
	frame, err := c.idle.Get(int(played))
	if err != nil {
		log.Printf("[clock] idle cache lookup failed at %d: %v", played, err)
		return true
	}
	c.sink.EmitImage(frame.Image)
	c.sink.EmitAudio(SilenceFrame)
	c.framesPlayed.Add(1)
	return true
}

// sleepUntil implements the hybrid sleep-then-spin wait from spec.md §4.6
// step 1: sleep until spinWindow before the deadline, then busy-wait on the
// monotonic clock. Returns immediately if deadline has already passed.
func (c *Clock) sleepUntil(deadline time.Time) {
	sleepUntil := deadline.Add(-spinWindow)
	if d := sleepUntil.Sub(c.now()); d > 0 {
		select {
		case <-c.stop:
			return
		case <-time.After(d):
		}
	}
	for c.now().Before(deadline) {
		select {
		case <-c.stop:
			return
		default:
		}
	}
}
