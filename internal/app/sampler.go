package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petems/memorylens/internal/camera"
	"github.com/petems/memorylens/internal/permissions"
	"github.com/rs/zerolog"
)

type samplerConfig struct {
	source   camera.Source
	conn     Conn
	interval time.Duration
	log      zerolog.Logger
	onDenied func(error)
}

// sampler pushes one still per tick onto the recognition channel.
type sampler struct {
	samplerConfig

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	frame   atomic.Pointer[string]
	sent    atomic.Uint64
	skipped atomic.Uint64
}

func startSampler(cfg samplerConfig) *sampler {
	if cfg.interval <= 0 {
		cfg.interval = 300 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &sampler{
		samplerConfig: cfg,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *sampler) run() {
	defer close(s.done)

	if err := permissions.Check(permissions.Camera); err != nil {
		if s.onDenied != nil {
			s.onDenied(err)
		}
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	failing := false
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			err := s.tick()
			switch {
			case err == nil:
				failing = false
			case errors.Is(err, camera.ErrNotReady), errors.Is(err, context.Canceled):
			case !failing:
				// Logged once per failure streak.
				s.log.Warn().Err(err).Msg("Frame capture failed")
				failing = true
			}
		}
	}
}

func (s *sampler) tick() error {
	img, err := s.source.Snapshot(s.ctx)
	if err != nil {
		s.skipped.Add(1)
		return err
	}
	frame := camera.DataURL(img)
	s.frame.Store(&frame)
	if s.conn.Send([]byte(frame)) {
		s.sent.Add(1)
	}
	return nil
}

// stop cancels the ticker and any in-flight capture and returns once the
// sampling goroutine has exited. Safe to call more than once.
func (s *sampler) stop() {
	s.once.Do(s.cancel)
	<-s.done
}

// latest is the most recently captured frame as a data URL, or "".
func (s *sampler) latest() string {
	if p := s.frame.Load(); p != nil {
		return *p
	}
	return ""
}
