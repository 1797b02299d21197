// Package resample converts arbitrary-rate mono 16-bit PCM into the 16 kHz
// mono 16-bit PCM the persona server expects (spec.md §4.1, C1). It wraps
// go-audio-resampler, which the pack's telephony bridge (blitss-sip-tg-bridge)
// already depends on for exactly this kind of sample-rate conversion.
package resample

import (
	"encoding/binary"
	"fmt"

	resampler "github.com/tphakala/go-audio-resampler"
)

// TargetRate is the sample rate the persona server requires.
const TargetRate = 16000

// Resampler converts mono 16-bit PCM at SourceRate to TargetRate. It keeps
// no state between calls beyond the underlying filter's own memory, so a
// single Resampler may be reused across an entire session as the source
// rate stays fixed (re-create it if the source rate changes mid-session).
type Resampler struct {
	sourceRate int
	conv       *resampler.Resampler
}

// New returns a Resampler converting from sourceRate to TargetRate. If
// sourceRate already equals TargetRate, Process is a passthrough copy.
func New(sourceRate int) (*Resampler, error) {
	if sourceRate <= 0 {
		return nil, fmt.Errorf("resample: invalid source rate %d", sourceRate)
	}
	if sourceRate == TargetRate {
		return &Resampler{sourceRate: sourceRate}, nil
	}
	conv, err := resampler.New(sourceRate, TargetRate, 1)
	if err != nil {
		return nil, fmt.Errorf("resample: create converter %dHz->%dHz: %w", sourceRate, TargetRate, err)
	}
	return &Resampler{sourceRate: sourceRate, conv: conv}, nil
}

// Process converts pcm (little-endian int16 mono samples) to 16 kHz mono
// 16-bit PCM, preserving integer-sample alignment at the output boundary:
// the returned slice length is always a multiple of 2 bytes.
func (r *Resampler) Process(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}
	if r.conv == nil {
		out := make([]byte, len(pcm))
		copy(out, pcm)
		return out, nil
	}

	in := bytesToInt16(pcm)
	out, err := r.conv.Resample(in)
	if err != nil {
		return nil, fmt.Errorf("resample: process %d samples: %w", len(in), err)
	}
	return int16ToBytes(out), nil
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

func int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}
