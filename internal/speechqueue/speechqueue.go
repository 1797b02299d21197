// Package speechqueue is the speech jitter buffer: a strictly FIFO-ordered
// queue of server-produced VideoFrames awaiting playback. Ordering is
// preserved exactly as frames are pushed (server emission order); the
// playback clock never reorders.
package speechqueue

import (
	"sync"

	"github.com/gammazero/deque"
)

// VideoFrame is a server-produced, audio-bundled video frame.
type VideoFrame struct {
	FrameIdx int
	Image    []byte
	Audio    []byte // may be empty; caller substitutes silence
	IsFinal  bool
}

// Queue is a FIFO written by the Message Dispatcher and the interrupt
// protocol (both of which may run on goroutines distinct from each other)
// and drained by the Playback Clock's own goroutine. The underlying
// gammazero/deque.Deque isn't concurrency-safe on its own, so a mutex
// guards every access, the same way idlecache.Cache and pfsm.Machine guard
// their state.
type Queue struct {
	mu sync.Mutex
	d  deque.Deque[VideoFrame]
}

// New returns an empty speech queue.
func New() *Queue {
	return &Queue{}
}

// PushBack enqueues a frame at the tail, preserving arrival order.
func (q *Queue) PushBack(f VideoFrame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.d.PushBack(f)
}

// PeekFront returns the head frame without removing it. ok is false when
// the queue is empty.
func (q *Queue) PeekFront() (f VideoFrame, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.d.Len() == 0 {
		return VideoFrame{}, false
	}
	return q.d.Front(), true
}

// PopFront removes and returns the head frame. ok is false when the queue
// is empty.
func (q *Queue) PopFront() (f VideoFrame, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.d.Len() == 0 {
		return VideoFrame{}, false
	}
	return q.d.PopFront(), true
}

// Clear discards all buffered frames. Called by the interrupt protocol
// after the FSM has entered Interrupting and before it returns to Idle.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.d.Len() > 0 {
		q.d.PopFront()
	}
}

// Len reports the number of buffered frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.d.Len()
}
