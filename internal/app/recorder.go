package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petems/memorylens/internal/api"
	"github.com/petems/memorylens/internal/config"
	"github.com/petems/memorylens/internal/detection"
	"github.com/petems/memorylens/internal/pcm"
	"github.com/petems/memorylens/internal/permissions"
)

type recState int

const (
	recWaiting recState = iota // waiting for a face
	recRecording
	recFinalizing
)

// recorder is the utterance capture state. It is guarded by App.mu and only
// the controller mutates it.
type recorder struct {
	state    recState
	seq      uint64 // never reset; identifies the current recording
	disabled bool   // microphone unavailable for the rest of the session

	cancel  context.CancelFunc
	silence *time.Timer
	pending []float32 // samples short of a full chunk
	data    []byte    // buffered PCM
	voiced  bool
}

// reset prepares the recorder for a new session. A flush still running from
// the previous session keeps it in recFinalizing until it completes.
func (r *recorder) reset() {
	r.disabled = false
	if r.state == recRecording {
		r.release()
		r.state = recWaiting
	}
}

func (r *recorder) stopTimer() {
	if r.silence != nil {
		r.silence.Stop()
		r.silence = nil
	}
}

func (r *recorder) release() {
	r.stopTimer()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.pending = nil
	r.data = nil
	r.voiced = false
}

func (a *App) chunkSamples() int {
	n := pcm.BytesInDuration(a.cfg.Audio.SampleRate, a.cfg.Recording.ChunkInterval.D()) / pcm.BytesPerSample
	if n <= 0 {
		n = a.cfg.Audio.SampleRate / 2
	}
	return n
}

// startRecordingLocked opens a fresh microphone handle when a face is in
// view and no recording is in progress.
func (a *App) startRecordingLocked(epoch uint64) {
	if a.rec.state != recWaiting || a.rec.disabled || a.faces.Len() == 0 {
		return
	}

	a.rec.seq++
	seq := a.rec.seq
	a.rec.state = recRecording
	a.rec.pending = nil
	a.rec.data = nil
	a.rec.voiced = false

	ctx, cancel := context.WithCancel(context.Background())
	a.rec.cancel = cancel

	a.log.Info().Uint64("recording", seq).Msg("Recording started")
	a.status.SetRecording()

	go a.capture(ctx, epoch, seq)
}

func (a *App) capture(ctx context.Context, epoch, seq uint64) {
	samples := make(chan []float32, 8)
	if err := a.audio.Start(ctx, a.cfg.AudioDevice(), a.cfg.Audio.SampleRate, samples); err != nil {
		a.captureFailed(ctx, epoch, seq, err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case block := <-samples:
			a.addSamples(epoch, seq, block)
		}
	}
}

func (a *App) captureFailed(ctx context.Context, epoch, seq uint64, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ctx.Err() != nil || !a.currentLocked(epoch) || a.rec.seq != seq {
		return
	}

	a.rec.release()
	a.rec.state = recWaiting
	a.rec.disabled = true

	msg := "Microphone unavailable: memories will not be recorded"
	if errors.Is(err, permissions.ErrDenied) {
		msg = "Microphone access denied: memories will not be recorded"
	}
	a.log.Warn().Err(err).Uint64("recording", seq).Msg("Recorder disabled")
	a.status.SetActive()
	a.status.Notice(LevelWarn, msg)
}

// addSamples groups captured samples into chunks. Chunks before the first
// voiced one are not kept; every voiced chunk pushes the silence deadline.
func (a *App) addSamples(epoch, seq uint64, block []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.currentLocked(epoch) || a.rec.seq != seq || a.rec.state != recRecording {
		return
	}

	size := a.chunkSamples()
	a.rec.pending = append(a.rec.pending, block...)
	for len(a.rec.pending) >= size {
		a.addChunkLocked(epoch, seq, a.rec.pending[:size])
		a.rec.pending = append(a.rec.pending[:0], a.rec.pending[size:]...)
	}
}

func (a *App) addChunkLocked(epoch, seq uint64, chunk []float32) {
	threshold := a.cfg.Recording.VoiceThreshold
	voiced := threshold <= 0 || pcm.RMS(chunk) >= threshold
	if !voiced && !a.rec.voiced {
		return
	}

	a.rec.data = pcm.AppendInt16LE(a.rec.data, chunk)
	if !voiced {
		return
	}
	a.rec.voiced = true

	a.rec.stopTimer()
	a.rec.silence = time.AfterFunc(a.cfg.Recording.SilenceTimeout.D(), func() {
		a.silenceElapsed(epoch, seq)
	})
}

func (a *App) silenceElapsed(epoch, seq uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.currentLocked(epoch) || a.rec.seq != seq || a.rec.state != recRecording {
		return
	}
	a.finalizeLocked("silence", a.sampler.latest())
}

// recording is one finalized utterance and what was in view when it ended.
type recording struct {
	seq    uint64
	reason string
	data   []byte
	faces  detection.Set
	frame  string
}

// finalizeLocked ends the current recording and hands it to a flush
// goroutine. The detection set and frame are captured now, not when the
// transcript comes back.
func (a *App) finalizeLocked(reason, frame string) {
	if a.rec.voiced && len(a.rec.pending) > 0 {
		a.rec.data = pcm.AppendInt16LE(a.rec.data, a.rec.pending)
	}
	rec := recording{
		seq:    a.rec.seq,
		reason: reason,
		data:   a.rec.data,
		faces:  a.faces.Snapshot(),
		frame:  frame,
	}
	a.rec.release()
	a.rec.state = recFinalizing

	a.log.Info().
		Uint64("recording", rec.seq).
		Str("reason", reason).
		Int("bytes", len(rec.data)).
		Int("faces", len(rec.faces)).
		Msg("Recording finalized")
	a.status.SetProcessing()

	a.flushes.Add(1)
	go func() {
		defer a.flushes.Done()
		a.flush(rec)
		a.flushDone(rec)
	}()
}

// flush transcribes and stores one recording. Failures are reported and
// never retried.
func (a *App) flush(rec recording) {
	log := a.base.With().Uint64("recording", rec.seq).Logger()

	if len(rec.data) < a.cfg.Recording.MinBytes {
		log.Debug().Int("bytes", len(rec.data)).Msg("Recording too short, discarded")
		return
	}

	wav := pcm.WAV(rec.data, a.cfg.Audio.SampleRate)
	text, err := a.backend.Transcribe(a.flushCtx, wav, "recording.wav")
	if err != nil {
		log.Error().Err(err).Msg("Transcription failed")
		a.status.Notice(LevelError, "Transcription failed")
		return
	}
	if text == "" {
		log.Debug().Msg("No speech in recording")
		return
	}

	personID := a.attribute(rec.faces)
	_, err = a.backend.AddMemory(a.flushCtx, api.MemoryInput{
		PersonID:    personID,
		Transcript:  text,
		ImageBase64: rec.frame,
	})
	if err != nil {
		log.Error().Err(err).Msg("Saving memory failed")
		a.status.Notice(LevelError, "Saving memory failed")
		return
	}

	log.Info().Str("person_id", personID).Int("chars", len(text)).Msg("Memory saved")
	a.status.Notice(LevelSuccess, memorySavedNotice(rec.faces, personID))
}

// attribute picks the person a transcript is linked to.
func (a *App) attribute(faces detection.Set) string {
	if a.cfg.Recording.Attribution == config.AttributionBest {
		return faces.BestPersonID()
	}
	return faces.UnambiguousPersonID()
}

func memorySavedNotice(faces detection.Set, personID string) string {
	if personID == "" {
		return "Memory saved"
	}
	for _, f := range faces {
		if f.PersonID == personID {
			return fmt.Sprintf("Memory saved for %s", f.Name)
		}
	}
	return "Memory saved"
}

func (a *App) flushDone(rec recording) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rec.seq != rec.seq || a.rec.state != recFinalizing {
		return
	}
	a.rec.state = recWaiting

	epoch := a.epoch
	if !a.currentLocked(epoch) {
		return
	}
	a.status.SetActive()
	a.startRecordingLocked(epoch)
}
