package audio

import (
	"context"
	"sync/atomic"
)

// handoff moves sample blocks from the real-time capture callback to the
// cooperative side. The callback side never allocates, blocks or logs: it
// only borrows a preallocated block, copies into it and queues it.
type handoff struct {
	free    chan []float32
	filled  chan []float32
	dropped atomic.Uint64
}

func newHandoff(depth, blockSize int) *handoff {
	h := &handoff{
		free:   make(chan []float32, depth),
		filled: make(chan []float32, depth),
	}
	for i := 0; i < depth; i++ {
		h.free <- make([]float32, blockSize)
	}
	return h
}

// process is the PortAudio stream callback.
func (h *handoff) process(in []float32) {
	select {
	case buf := <-h.free:
		n := copy(buf[:cap(buf)], in)
		select {
		case h.filled <- buf[:n]:
		default:
			h.free <- buf
			h.dropped.Add(1)
		}
	default:
		h.dropped.Add(1)
	}
}

// pump copies queued blocks out as mono sample slices until ctx is done.
// Delivery to out never blocks; a slow consumer loses blocks.
func (h *handoff) pump(ctx context.Context, channels int, out chan<- []float32) {
	for {
		select {
		case <-ctx.Done():
			return
		case buf := <-h.filled:
			samples := downmixInterleaved(buf, channels, len(buf)/channels)
			h.free <- buf[:cap(buf)]

			select {
			case out <- samples:
			case <-ctx.Done():
				return
			default:
				h.dropped.Add(1)
			}
		}
	}
}

// downmixInterleaved averages interleaved frames into a new mono slice.
func downmixInterleaved(input []float32, channels, frames int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(input))
		copy(out, input)
		return out
	}

	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		base := f * channels
		for c := 0; c < channels; c++ {
			sum += input[base+c]
		}
		out[f] = sum / float32(channels)
	}
	return out
}
