// Package app is the session controller. A single toggle starts and stops
// recognition; while active the controller samples camera frames onto the
// recognition channel, streams microphone PCM onto the listen channel, keeps
// the latest detection set, and records utterances that are transcribed,
// attributed and stored as memories.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/petems/memorylens/internal/api"
	"github.com/petems/memorylens/internal/audio"
	"github.com/petems/memorylens/internal/camera"
	"github.com/petems/memorylens/internal/channel"
	"github.com/petems/memorylens/internal/config"
	"github.com/petems/memorylens/internal/detection"
	"github.com/rs/zerolog"
)

// Phase of the session lifecycle.
type Phase int

const (
	Idle Phase = iota
	Starting
	Active
	Stopping
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Active:
		return "active"
	case Stopping:
		return "stopping"
	}
	return "unknown"
}

// Level of an operator notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetActive()
	SetRecording()
	SetProcessing()
	SetError()
	ShowFaces(faces detection.Set)
	ShowTranscript(text string)
	Notice(level Level, msg string)
}

// Backend is the request/response side of the recognition service used by
// the recorder.
type Backend interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
	AddMemory(ctx context.Context, in api.MemoryInput) (*api.MemoryResult, error)
}

// Conn is one realtime channel as the controller uses it.
type Conn interface {
	Connect()
	Send(payload []byte) bool
	Close()
	State() channel.State
}

// Dialer creates a realtime channel. The controller creates a fresh pair on
// every start.
type Dialer func(opts channel.Options, handler channel.Handler) Conn

// DialChannel is the production Dialer.
func DialChannel(opts channel.Options, handler channel.Handler) Conn {
	return channel.New(opts, handler)
}

type Config struct {
	Audio         audio.Capture
	Camera        camera.Source
	Backend       Backend
	Dial          Dialer // Optional - defaults to DialChannel
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

type App struct {
	audio   audio.Capture
	camera  camera.Source
	backend Backend
	dial    Dialer
	cfg     *config.Config
	base    zerolog.Logger
	status  StatusUpdater

	// flushCtx bounds recorder uploads; Shutdown cancels it once its own
	// deadline passes.
	flushCtx    context.Context
	flushCancel context.CancelFunc
	flushes     sync.WaitGroup

	faces detection.State

	mu         sync.Mutex
	phase      Phase
	epoch      uint64
	sessionID  string
	log        zerolog.Logger
	cancel     context.CancelFunc
	sampler    *sampler
	recognizer Conn
	listener   Conn
	transcript string
	rec        recorder
}

func New(cfg Config) *App {
	dial := cfg.Dial
	if dial == nil {
		dial = DialChannel
	}
	status := cfg.StatusUpdater
	if status == nil {
		status = nopStatus{}
	}
	flushCtx, flushCancel := context.WithCancel(context.Background())
	return &App{
		audio:       cfg.Audio,
		camera:      cfg.Camera,
		backend:     cfg.Backend,
		dial:        dial,
		cfg:         cfg.Config,
		base:        cfg.Logger,
		log:         cfg.Logger,
		status:      status,
		flushCtx:    flushCtx,
		flushCancel: flushCancel,
	}
}

// Toggle starts an idle session or stops an active one. Toggles that arrive
// while a start or stop is in progress are ignored.
func (a *App) Toggle() {
	switch a.Phase() {
	case Idle:
		a.Start()
	case Active:
		a.Stop()
	default:
		a.base.Debug().Msg("Toggle ignored during transition")
	}
}

// Start begins a recognition session. Sampling starts immediately; frames
// are dropped until the recognition channel opens.
func (a *App) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != Idle {
		a.log.Debug().Stringer("phase", a.phase).Msg("Start ignored")
		return
	}

	a.phase = Starting
	a.epoch++
	epoch := a.epoch
	a.sessionID = uuid.NewString()
	a.log = a.base.With().Str("session", a.sessionID).Logger()
	a.log.Info().Msg("Starting session")

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.transcript = ""
	a.faces.Clear()
	a.rec.reset()

	rt := a.cfg.Realtime
	a.recognizer = a.dial(channel.Options{
		Name:           "recognition",
		URL:            a.cfg.RecognitionURL(),
		MessageType:    websocket.TextMessage,
		ReconnectDelay: rt.ReconnectDelay.D(),
		WriteTimeout:   rt.WriteTimeout.D(),
		Logger:         a.log,
	}, func(msg json.RawMessage) { a.handleDetections(epoch, msg) })
	a.listener = a.dial(channel.Options{
		Name:           "listen",
		URL:            a.cfg.ListenURL(),
		MessageType:    websocket.BinaryMessage,
		ReconnectDelay: rt.ReconnectDelay.D(),
		WriteTimeout:   rt.WriteTimeout.D(),
		Logger:         a.log,
	}, func(msg json.RawMessage) { a.handleListenEvent(epoch, msg) })

	a.recognizer.Connect()
	a.sampler = startSampler(samplerConfig{
		source:   a.camera,
		conn:     a.recognizer,
		interval: a.cfg.Sampler.Interval.D(),
		log:      a.log,
		onDenied: func(err error) { a.cameraDenied(epoch, err) },
	})

	a.listener.Connect()
	go a.streamAudio(ctx, epoch, a.listener)

	a.phase = Active
	a.status.SetActive()
}

// Stop ends the session: the sampler stops, both channels close without
// reconnecting, an in-progress recording is finalized, the microphone is
// released and the detection set and live transcript are cleared. Stopping
// an idle session is a no-op.
func (a *App) Stop() {
	a.mu.Lock()
	if a.phase != Active {
		a.mu.Unlock()
		return
	}
	a.log.Info().Msg("Stopping session")
	a.phase = Stopping
	a.epoch++
	smp, recognizer, listener := a.sampler, a.recognizer, a.listener
	a.sampler, a.recognizer, a.listener = nil, nil, nil
	a.mu.Unlock()

	smp.stop()
	recognizer.Close()
	listener.Close()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rec.state == recRecording {
		a.finalizeLocked("session stopped", smp.latest())
	}
	a.rec.stopTimer()
	a.cancel()
	a.cancel = nil

	a.faces.Clear()
	a.transcript = ""
	a.phase = Idle
	a.status.ShowFaces(nil)
	a.status.ShowTranscript("")
	a.status.SetIdle()
	a.log.Info().Msg("Session stopped")
	a.log = a.base
}

// Shutdown stops the session and waits for in-flight recordings to be
// stored. Uploads still running when ctx expires are cancelled.
func (a *App) Shutdown(ctx context.Context) error {
	a.Stop()

	done := make(chan struct{})
	go func() {
		a.flushes.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		a.flushCancel()
		<-done
		return ctx.Err()
	}
}

func (a *App) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// SessionID identifies the current session; empty while idle.
func (a *App) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == Idle {
		return ""
	}
	return a.sessionID
}

// Faces returns the current detection set in render order.
func (a *App) Faces() detection.Set {
	return a.faces.Snapshot().Sorted()
}

// Transcript returns the latest live caption.
func (a *App) Transcript() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcript
}

// Recording reports whether an utterance is being captured.
func (a *App) Recording() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec.state == recRecording
}

func (a *App) ListDevices() ([]audio.AudioDevice, error) {
	return a.audio.ListDevices()
}

// SetDevice selects the microphone for the next session.
func (a *App) SetDevice(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != Idle {
		return fmt.Errorf("cannot change device while a session is %s", a.phase)
	}

	return a.cfg.SetDeviceID(id)
}

// currentLocked reports whether epoch still belongs to the active session.
func (a *App) currentLocked(epoch uint64) bool {
	return epoch == a.epoch && a.phase == Active
}

func (a *App) current(epoch uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentLocked(epoch)
}

func (a *App) cameraDenied(epoch uint64, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.currentLocked(epoch) {
		return
	}
	a.log.Warn().Err(err).Msg("Camera unavailable")
	a.status.SetError()
	a.status.Notice(LevelWarn, "Camera unavailable: face recognition disabled")
}

type nopStatus struct{}

func (nopStatus) SetIdle()                {}
func (nopStatus) SetActive()              {}
func (nopStatus) SetRecording()           {}
func (nopStatus) SetProcessing()          {}
func (nopStatus) SetError()               {}
func (nopStatus) ShowFaces(detection.Set) {}
func (nopStatus) ShowTranscript(string)   {}
func (nopStatus) Notice(Level, string)    {}
