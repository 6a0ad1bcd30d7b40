package audio

import "context"

// Capture opens microphone handles. Every Start call opens an independent
// handle, so the streaming path and the recorder can hold the device at the
// same time. Cancelling ctx releases the handle.
type Capture interface {
	Start(ctx context.Context, deviceID string, sampleRate int, out chan<- []float32) error
	ListDevices() ([]AudioDevice, error)
	Close() error
}

// AudioDevice represents an audio input device
type AudioDevice struct {
	ID      string
	Name    string
	Default bool
}
