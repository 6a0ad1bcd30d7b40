package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"github.com/petems/memorylens/internal/config"
	"github.com/petems/memorylens/internal/permissions"
)

// queueDepth is the number of preallocated blocks shared between the
// real-time callback and the pump goroutine.
const queueDepth = 16

type portAudioCapture struct {
	cfg config.AudioConfig
	log zerolog.Logger

	mu      sync.Mutex
	streams map[*portaudio.Stream]struct{}
	closed  bool
}

// New creates a new PortAudio-based audio capture
func New(cfg config.AudioConfig, log zerolog.Logger) (Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioCapture{
		cfg:     cfg,
		log:     log.With().Str("component", "audio").Logger(),
		streams: make(map[*portaudio.Stream]struct{}),
	}, nil
}

func (p *portAudioCapture) Start(ctx context.Context, deviceID string, sampleRate int, out chan<- []float32) error {
	if err := permissions.Check(permissions.Microphone); err != nil {
		return err
	}

	device, err := findDevice(deviceID)
	if err != nil {
		return err
	}

	channels := p.cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	if device.MaxInputChannels > 0 && channels > device.MaxInputChannels {
		channels = device.MaxInputChannels
	}
	frames := p.cfg.BlockSize
	if frames <= 0 {
		frames = 512
	}

	h := newHandoff(queueDepth, frames*channels)

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: frames,
	}, h.process)
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		stream.Stop()
		stream.Close()
		return errors.New("audio capture closed")
	}
	p.streams[stream] = struct{}{}
	p.mu.Unlock()

	p.log.Debug().Str("device", device.Name).Int("channels", channels).Int("frames", frames).Msg("Microphone opened")

	go func() {
		h.pump(ctx, channels, out)
		p.release(stream)
		p.log.Debug().Str("device", device.Name).Uint64("dropped", h.dropped.Load()).Msg("Microphone released")
	}()

	return nil
}

func (p *portAudioCapture) release(stream *portaudio.Stream) {
	p.mu.Lock()
	_, ok := p.streams[stream]
	delete(p.streams, stream)
	p.mu.Unlock()

	if ok {
		stream.Stop()
		stream.Close()
	}
}

func (p *portAudioCapture) ListDevices() ([]AudioDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]AudioDevice, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, AudioDevice{
				ID:      d.Name,
				Name:    d.Name,
				Default: d == defaultDevice,
			})
		}
	}

	return result, nil
}

func (p *portAudioCapture) Close() error {
	p.mu.Lock()
	p.closed = true
	streams := p.streams
	p.streams = make(map[*portaudio.Stream]struct{})
	p.mu.Unlock()

	for s := range streams {
		s.Stop()
		s.Close()
	}
	return portaudio.Terminate()
}

func findDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == deviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", deviceID)
}
