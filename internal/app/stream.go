package app

import (
	"context"
	"errors"

	"github.com/petems/memorylens/internal/pcm"
)

// streamAudio opens the listen path's own microphone handle and sends one
// binary PCM frame per captured block. Frames are dropped while the listen
// channel is not open.
func (a *App) streamAudio(ctx context.Context, epoch uint64, conn Conn) {
	samples := make(chan []float32, 8)
	if err := a.audio.Start(ctx, a.cfg.AudioDevice(), a.cfg.Audio.SampleRate, samples); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		a.mu.Lock()
		if a.currentLocked(epoch) {
			a.log.Warn().Err(err).Msg("Microphone unavailable for live captions")
			a.status.Notice(LevelWarn, "Microphone unavailable: live captions disabled")
		}
		a.mu.Unlock()
		return
	}

	// A permission prompt may resolve after the session ended; the handle
	// is released through ctx in that case.
	if !a.current(epoch) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case block := <-samples:
			conn.Send(pcm.EncodeFrame(block))
		}
	}
}
