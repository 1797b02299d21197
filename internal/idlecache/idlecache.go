// Package idlecache holds the precomputed idle-animation frames captured
// during session initialization and answers ping-pong-mirrored lookups for
// the playback clock.
package idlecache

import (
	"errors"
	"sync"
)

// ErrNotBuilding is returned by Append after the cache has been finalized.
var ErrNotBuilding = errors.New("idlecache: cache is not accepting frames")

// ErrEmpty is returned by Get when no frames have been appended.
var ErrEmpty = errors.New("idlecache: cache is empty")

// Frame is a single idle-loop frame. Immutable once inserted.
type Frame struct {
	FrameIdx int
	Image    []byte
}

// Cache is the idle loop: an ordered, write-once sequence of Frames,
// read many times via mirrored lookup once finalized. Append is only valid
// before Finalize is called; Get is only meaningful after.
//
// Not safe for concurrent Append calls; Get is safe to call concurrently
// with other Gets once finalized (single-writer-then-many-readers).
type Cache struct {
	mu       sync.RWMutex
	frames   []Frame
	building bool
	mirrored bool
}

// New returns a Cache ready to accept frames via Append.
func New() *Cache {
	return &Cache{building: true}
}

// Append adds the next idle frame in insertion order. Valid only while the
// cache is building (i.e. before Finalize).
func (c *Cache) Append(image []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.building {
		return ErrNotBuilding
	}
	c.frames = append(c.frames, Frame{FrameIdx: len(c.frames), Image: image})
	return nil
}

// Finalize stops accepting frames and records whether lookups should mirror
// (ping-pong) or plainly wrap. There is no Reset: restarting a session takes
// a fresh Cache from New — the cache itself never un-finalizes.
func (c *Cache) Finalize(mirrored bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.building = false
	c.mirrored = mirrored
}

// Len returns the number of frames captured during Initializing.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// Get returns the idle Frame for a logical (unbounded, monotonic) index,
// applying ping-pong mirroring per spec when the cache was finalized with
// mirrored=true, or plain wraparound otherwise.
func (c *Cache) Get(logicalIndex int) (Frame, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := len(c.frames)
	if n == 0 {
		return Frame{}, ErrEmpty
	}
	idx := MirrorIndex(logicalIndex, n, c.mirrored)
	return c.frames[idx], nil
}

// MirrorIndex turns an unbounded logical index into a bounded physical
// index into a sequence of length n.
//
// When mirrored is true the playback period is 2n: index k<n maps to k
// itself, and index k>=n maps to 2n-1-k, producing the palindromic
// 0,1,...,n-1,n-1,...,0 ping-pong sequence described in spec.md §4.3.
// When mirrored is false the period is plain n (wraparound).
//
// n must be > 0; callers are expected to check Len()/ErrEmpty first.
func MirrorIndex(logicalIndex, n int, mirrored bool) int {
	if !mirrored {
		return mod(logicalIndex, n)
	}
	period := 2 * n
	k := mod(logicalIndex, period)
	if k < n {
		return k
	}
	return period - 1 - k
}

// mod is a floor-style modulo that handles negative logicalIndex inputs
// safely, even though the playback clock never produces them in practice.
func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
