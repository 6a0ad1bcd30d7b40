package app

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/petems/memorylens/internal/api"
	"github.com/petems/memorylens/internal/audio"
	"github.com/petems/memorylens/internal/camera"
	"github.com/petems/memorylens/internal/channel"
	"github.com/petems/memorylens/internal/detection"
)

// fakeCapture hands out independent handles and broadcasts fed samples to
// every open one.
type fakeCapture struct {
	mu      sync.Mutex
	err     error
	gate    chan struct{} // when set, Start blocks until closed
	starts  int
	handles map[int]chan<- []float32
	next    int
}

func (f *fakeCapture) Start(ctx context.Context, deviceID string, sampleRate int, out chan<- []float32) error {
	f.mu.Lock()
	f.starts++
	gate, err := f.gate, f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	f.mu.Lock()
	if f.handles == nil {
		f.handles = make(map[int]chan<- []float32)
	}
	id := f.next
	f.next++
	f.handles[id] = out
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.handles, id)
		f.mu.Unlock()
	}()
	return nil
}

func (f *fakeCapture) ListDevices() ([]audio.AudioDevice, error) {
	return []audio.AudioDevice{{ID: "default", Name: "Default", Default: true}}, nil
}

func (f *fakeCapture) Close() error {
	return nil
}

func (f *fakeCapture) open() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

func (f *fakeCapture) startCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// feed delivers a copy of samples to every open handle.
func (f *fakeCapture) feed(samples []float32) {
	f.mu.Lock()
	outs := make([]chan<- []float32, 0, len(f.handles))
	for _, out := range f.handles {
		outs = append(outs, out)
	}
	f.mu.Unlock()

	for _, out := range outs {
		block := make([]float32, len(samples))
		copy(block, samples)
		out <- block
	}
}

type fakeCamera struct {
	mu    sync.Mutex
	frame []byte
}

func (c *fakeCamera) Snapshot(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame == nil {
		return nil, camera.ErrNotReady
	}
	return c.frame, nil
}

type fakeConn struct {
	name    string
	handler channel.Handler

	mu              sync.Mutex
	connects        int
	closes          int
	sent            [][]byte
	sentAfterClosed int
}

func (c *fakeConn) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
}

func (c *fakeConn) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closes > 0 {
		c.sentAfterClosed++
		return false
	}
	c.sent = append(c.sent, payload)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
}

func (c *fakeConn) State() channel.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closes > 0 {
		return channel.Disconnected
	}
	return channel.Open
}

func (c *fakeConn) deliver(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	c.handler(raw)
}

func (c *fakeConn) deliverRaw(raw string) {
	c.handler(json.RawMessage(raw))
}

func (c *fakeConn) sends() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) counts() (connects, closes, afterClose int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects, c.closes, c.sentAfterClosed
}

// fakeDialer records every channel the controller creates, by name.
type fakeDialer struct {
	mu    sync.Mutex
	conns map[string][]*fakeConn
}

func (d *fakeDialer) dial(opts channel.Options, handler channel.Handler) Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conns == nil {
		d.conns = make(map[string][]*fakeConn)
	}
	c := &fakeConn{name: opts.Name, handler: handler}
	d.conns[opts.Name] = append(d.conns[opts.Name], c)
	return c
}

func (d *fakeDialer) last(name string) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	conns := d.conns[name]
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

func (d *fakeDialer) count(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns[name])
}

type fakeBackend struct {
	mu          sync.Mutex
	transcript  string
	err         error
	block       chan struct{} // when set, Transcribe waits for it or ctx
	transcribes int
	audio       [][]byte
	memories    []api.MemoryInput
}

func (b *fakeBackend) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	b.mu.Lock()
	b.transcribes++
	b.audio = append(b.audio, audio)
	block, text, err := b.block, b.transcript, b.err
	b.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return text, err
}

func (b *fakeBackend) AddMemory(ctx context.Context, in api.MemoryInput) (*api.MemoryResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.memories = append(b.memories, in)
	return &api.MemoryResult{Status: "success", MemoryID: "m1"}, nil
}

func (b *fakeBackend) transcribeCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transcribes
}

func (b *fakeBackend) saved() []api.MemoryInput {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]api.MemoryInput, len(b.memories))
	copy(out, b.memories)
	return out
}

type notice struct {
	level Level
	msg   string
}

type fakeStatus struct {
	mu         sync.Mutex
	last       string
	faces      detection.Set
	transcript string
	notices    []notice
}

func (s *fakeStatus) set(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = state
}

func (s *fakeStatus) SetIdle()       { s.set("idle") }
func (s *fakeStatus) SetActive()     { s.set("active") }
func (s *fakeStatus) SetRecording()  { s.set("recording") }
func (s *fakeStatus) SetProcessing() { s.set("processing") }
func (s *fakeStatus) SetError()      { s.set("error") }

func (s *fakeStatus) ShowFaces(faces detection.Set) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faces = faces
}

func (s *fakeStatus) ShowTranscript(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = text
}

func (s *fakeStatus) Notice(level Level, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, notice{level, msg})
}

func (s *fakeStatus) state() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *fakeStatus) allNotices() []notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notice, len(s.notices))
	copy(out, s.notices)
	return out
}
