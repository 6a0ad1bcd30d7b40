package commands

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petems/memorylens/internal/api"
	"github.com/petems/memorylens/internal/app"
	"github.com/petems/memorylens/internal/audio"
	"github.com/petems/memorylens/internal/camera"
	"github.com/petems/memorylens/internal/console"
	"github.com/petems/memorylens/internal/hotkey"
	"github.com/petems/memorylens/internal/tray"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var headless bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start MemoryLens",
	Long: `Start MemoryLens and begin a recognition session.

By default a tray icon toggles the session. With --headless the status is
printed to the terminal; SIGUSR1 toggles the session and SIGINT/SIGTERM quit.
The configured global hotkey toggles the session in both modes.

Frames are read from the configured camera source: a still file kept current
by an external capture tool, or an IP camera snapshot URL.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		capture, err := audio.New(cfg.Audio, log)
		if err != nil {
			return err
		}
		defer capture.Close()

		cam, err := camera.New(cfg.Camera, cfg.API.Timeout.D())
		if err != nil {
			return err
		}

		deps := app.Config{
			Audio:   capture,
			Camera:  cam,
			Backend: api.New(cfg.API.URL, cfg.API.Timeout.D(), log),
			Config:  cfg,
			Logger:  log,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info().Str("api", cfg.API.URL).Str("realtime", cfg.Realtime.URL).Msg("MemoryLens starting...")
		if headless {
			return runHeadless(ctx, deps)
		}
		return runTray(ctx, deps)
	},
}

func init() {
	runCmd.Flags().BoolVar(&headless, "headless", false, "print status to the terminal instead of showing a tray icon")
}

func runTray(ctx context.Context, deps app.Config) error {
	trayUI := tray.New(nil, cfg, log, version, commit) // App reference set below
	deps.StatusUpdater = trayUI
	application := app.New(deps)
	trayUI.SetApp(application)

	hk := registerHotkey(application)
	defer hk.Close()

	application.Start()

	// Tray UI must run on the main thread
	return trayUI.Run(ctx, func() {
		shutdown(application)
	})
}

func runHeadless(ctx context.Context, deps app.Config) error {
	deps.StatusUpdater = console.New(os.Stdout, cfg.TranscriptShown())
	application := app.New(deps)

	hk := registerHotkey(application)
	defer hk.Close()

	application.Start()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		toggles := make(chan os.Signal, 1)
		notifyToggle(toggles)
		defer signal.Stop(toggles)
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-toggles:
				application.Toggle()
			}
		}
	})
	g.Go(func() error {
		<-gCtx.Done()
		return shutdown(application)
	})
	return g.Wait()
}

// registerHotkey binds the configured global hotkey to the session toggle.
// A platform without hotkey support only loses the shortcut.
func registerHotkey(application *app.App) io.Closer {
	accel := cfg.PlatformHotkey()
	if accel == "" {
		return nopCloser{}
	}

	hkManager, err := hotkey.New()
	if err != nil {
		log.Warn().Err(err).Msg("Global hotkey unavailable")
		return nopCloser{}
	}

	if err := hkManager.Register(accel, hotkey.OnPress(func() { go application.Toggle() })); err != nil {
		log.Warn().Err(err).Str("hotkey", accel).Msg("Failed to register hotkey")
		hkManager.Close()
		return nopCloser{}
	}
	log.Info().Str("hotkey", accel).Msg("Hotkey registered")
	return hkManager
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func shutdown(application *app.App) error {
	log.Info().Msg("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Shutdown error")
		return err
	}
	return nil
}
