package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/journee-live/ojin-persona-client/internal/idlecache"
	"github.com/journee-live/ojin-persona-client/internal/pfsm"
	"github.com/journee-live/ojin-persona-client/internal/speechqueue"
)

type recordingSink struct {
	mu     sync.Mutex
	images [][]byte
	audios [][]byte
}

func (s *recordingSink) EmitImage(image []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, image)
}

func (s *recordingSink) EmitAudio(audio []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audios = append(s.audios, audio)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) OnSpeechBurstComplete() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
}

func newIdleCache(t *testing.T, n int) *idlecache.Cache {
	t.Helper()
	c := idlecache.New()
	for i := 0; i < n; i++ {
		require.NoError(t, c.Append([]byte{byte(i)}))
	}
	c.Finalize(true)
	return c
}

func TestClockPlaysIdleFramesWhenNoSpeechQueued(t *testing.T) {
	fsm := pfsm.New()
	fsm.Set(pfsm.Idle)
	idle := newIdleCache(t, 10)
	speech := speechqueue.New()
	sink := &recordingSink{}

	c := New(fsm, idle, speech, sink, nil)
	for i := 0; i < 5; i++ {
		c.selectAndEmit()
	}
	require.Equal(t, 5, sink.count())
	require.Equal(t, 5, c.PlayedFrameIdx())
}

func TestClockPlaysSpeechFramesInOrderThenReturnsToIdle(t *testing.T) {
	fsm := pfsm.New()
	fsm.Set(pfsm.Speaking)
	idle := newIdleCache(t, 10)
	speech := speechqueue.New()
	speech.PushBack(speechqueue.VideoFrame{FrameIdx: 1, Image: []byte("f1"), Audio: []byte("a1")})
	speech.PushBack(speechqueue.VideoFrame{FrameIdx: 2, Image: []byte("f2"), Audio: []byte("a2"), IsFinal: true})
	sink := &recordingSink{}
	notifier := &countingNotifier{}

	c := New(fsm, idle, speech, sink, notifier)
	c.currentFrameIdx.Store(5) // both speech frames are already due

	require.True(t, c.selectAndEmit())
	require.True(t, c.selectAndEmit())

	require.Equal(t, [][]byte{[]byte("f1"), []byte("f2")}, sink.images)
	require.True(t, fsm.Is(pfsm.Idle))
	require.Equal(t, 1, notifier.calls)
	require.Equal(t, 0, c.NumSpeechFramesPlayed())
}

func TestClockStarvationTickDoesNotAdvancePlayedFrame(t *testing.T) {
	fsm := pfsm.New()
	fsm.Set(pfsm.Speaking)
	idle := newIdleCache(t, 10)
	speech := speechqueue.New()
	// Queue a frame far in the future: not yet due.
	speech.PushBack(speechqueue.VideoFrame{FrameIdx: 1000, Image: []byte("future")})
	sink := &recordingSink{}

	c := New(fsm, idle, speech, sink, nil)
	c.currentFrameIdx.Store(1)
	c.numSpeechFramesPlayed.Store(3) // already mid-burst

	require.False(t, c.selectAndEmit())
	require.Equal(t, 0, sink.count())
	require.Equal(t, 0, c.PlayedFrameIdx())
}

func TestClockSubstitutesSilenceWhenSpeechFrameHasNoAudio(t *testing.T) {
	fsm := pfsm.New()
	fsm.Set(pfsm.Speaking)
	idle := newIdleCache(t, 10)
	speech := speechqueue.New()
	speech.PushBack(speechqueue.VideoFrame{FrameIdx: 0, Image: []byte("f")})
	sink := &recordingSink{}

	c := New(fsm, idle, speech, sink, nil)
	require.True(t, c.selectAndEmit())
	require.Equal(t, SilenceFrame, sink.audios[0])
}

func TestClockStalledReportsAfterWatchdogDeadline(t *testing.T) {
	fsm := pfsm.New()
	fsm.Set(pfsm.Speaking)
	idle := newIdleCache(t, 10)
	speech := speechqueue.New()
	sink := &recordingSink{}

	fakeNow := time.Now()
	c := New(fsm, idle, speech, sink, nil, WithStallWatchdog(100*time.Millisecond))
	c.now = func() time.Time { return fakeNow }
	c.lastProgress = fakeNow

	require.False(t, c.Stalled())
	fakeNow = fakeNow.Add(200 * time.Millisecond)
	require.True(t, c.Stalled())
}

func TestClockRunStopsPromptly(t *testing.T) {
	fsm := pfsm.New()
	fsm.Set(pfsm.Idle)
	idle := newIdleCache(t, 10)
	speech := speechqueue.New()
	sink := &recordingSink{}

	c := New(fsm, idle, speech, sink, nil)
	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()
	time.Sleep(120 * time.Millisecond)
	c.Stop()
	c.Stop() // idempotent

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	require.True(t, sink.count() > 0)
}
