package tray

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/petems/memorylens/internal/app"
	"github.com/petems/memorylens/internal/config"
	"github.com/petems/memorylens/internal/detection"
	"github.com/petems/memorylens/internal/logging"
	"github.com/rs/zerolog"
)

const transcriptWidth = 60

type UI struct {
	app     *app.App
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger

	mu             sync.Mutex
	ready          bool
	status         string
	faces          detection.Set
	transcript     string
	lastTranscript string

	// Menu items
	mStartStop      *systray.MenuItem
	mFaces          *systray.MenuItem
	mTranscript     *systray.MenuItem
	mNotice         *systray.MenuItem
	mShowTranscript *systray.MenuItem
	mCopy           *systray.MenuItem
	mDevices        *systray.MenuItem
}

// Status update methods for the app to call
func (u *UI) SetIdle() {
	u.updateStatus("idle")
}

func (u *UI) SetActive() {
	u.updateStatus("active")
}

func (u *UI) SetRecording() {
	u.updateStatus("recording")
}

func (u *UI) SetProcessing() {
	u.updateStatus("processing")
}

func (u *UI) SetError() {
	u.updateStatus("error")
}

func (u *UI) ShowFaces(faces detection.Set) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.faces = faces
	if !u.ready {
		return
	}
	tip := facesTooltip(faces)
	systray.SetTooltip(tip)
	u.mFaces.SetTitle(tip)
}

func (u *UI) ShowTranscript(text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.transcript = text
	if text != "" {
		u.lastTranscript = text
	}
	if u.ready {
		u.renderTranscriptLocked()
	}
}

func (u *UI) Notice(level app.Level, msg string) {
	switch level {
	case app.LevelError:
		u.log.Error().Msg(msg)
	case app.LevelWarn:
		u.log.Warn().Msg(msg)
	default:
		u.log.Info().Msg(msg)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.ready {
		u.mNotice.SetTitle(noticeTitle(level, msg))
		u.mNotice.Show()
	}
}

func New(application *app.App, cfg *config.Config, log zerolog.Logger, version, commit string) *UI {
	return &UI{
		app:     application,
		cfg:     cfg,
		version: version,
		commit:  commit,
		log:     log.With().Str("component", "tray").Logger(),
		status:  "idle",
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

// Run blocks on the tray event loop until Quit is chosen or ctx is
// cancelled. onExit runs on the way out.
func (u *UI) Run(ctx context.Context, onExit func()) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, func() {
		if onExit != nil {
			onExit()
		}
	})
	return nil
}

func (u *UI) onReady() {
	u.mu.Lock()
	defer u.mu.Unlock()

	systray.SetTooltip("MemoryLens")

	// Build menu
	u.mStartStop = systray.AddMenuItem(toggleTitle(app.Idle), "Start or end a recognition session")
	u.mFaces = systray.AddMenuItem(facesTooltip(nil), "Faces in view")
	u.mFaces.Disable()
	u.mTranscript = systray.AddMenuItem("", "Live transcript")
	u.mTranscript.Disable()
	u.mNotice = systray.AddMenuItem("", "Last notice")
	u.mNotice.Disable()
	u.mNotice.Hide()
	systray.AddSeparator()

	u.mShowTranscript = systray.AddMenuItemCheckbox("Show Live Transcript", "Show captions while a session runs", u.cfg.TranscriptShown())
	u.mCopy = systray.AddMenuItem("Copy Last Transcript", "Copy the last caption to the clipboard")
	if clipboard.Unsupported {
		u.mCopy.Disable()
	}

	u.mDevices = systray.AddMenuItem("Microphone", "Select audio device")
	u.buildDeviceMenu()

	systray.AddSeparator()
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About MemoryLens")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.ready = true
	u.applyStatusLocked()
	u.renderTranscriptLocked()

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mStartStop.ClickedCh:
			go u.app.Toggle()
		case <-u.mShowTranscript.ClickedCh:
			u.toggleShowTranscript()
		case <-u.mCopy.ClickedCh:
			u.copyLastTranscript()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) buildDeviceMenu() {
	devices, err := u.app.ListDevices()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		u.mDevices.Disable()
		return
	}

	deviceItems := make(map[string]*systray.MenuItem)

	for _, dev := range devices {
		item := u.mDevices.AddSubMenuItem(dev.Name, "")
		if selectedDevice(u.cfg.AudioDevice(), dev.ID, dev.Default) {
			item.Check()
		}
		deviceItems[dev.ID] = item

		go func(deviceID, deviceName string, menuItem *systray.MenuItem) {
			for range menuItem.ClickedCh {
				if err := u.app.SetDevice(deviceID); err != nil {
					u.Notice(app.LevelWarn, "End the session before changing microphone")
					continue
				}
				for id, itm := range deviceItems {
					if id != deviceID {
						itm.Uncheck()
					}
				}
				menuItem.Check()
				u.log.Info().Str("device", deviceName).Msg("Changed audio device")
			}
		}(dev.ID, dev.Name, item)
	}
}

// selectedDevice reports whether a device should be checked. The system
// default is checked while no device is configured.
func selectedDevice(configured, id string, isDefault bool) bool {
	if configured == "" || configured == "default" {
		return isDefault
	}
	return configured == id
}

func (u *UI) toggleShowTranscript() {
	u.mu.Lock()
	defer u.mu.Unlock()

	show := !u.cfg.TranscriptShown()
	if err := u.cfg.SetShowTranscript(show); err != nil {
		u.log.Error().Err(err).Msg("Failed to save config")
	}
	if show {
		u.mShowTranscript.Check()
	} else {
		u.mShowTranscript.Uncheck()
	}
	u.renderTranscriptLocked()
	u.log.Info().Bool("show_transcript", show).Msg("Changed live transcript display")
}

func (u *UI) copyLastTranscript() {
	u.mu.Lock()
	text := u.lastTranscript
	u.mu.Unlock()

	if text == "" {
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		u.log.Error().Err(err).Msg("Clipboard write failed")
		return
	}
	u.log.Info().Int("chars", len(text)).Msg("Copied transcript")
}

func (u *UI) openLogs() {
	path := logging.Path()
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		u.log.Error().Err(err).Str("path", path).Msg("Failed to open logs")
		return
	}
	go cmd.Wait()
}

func (u *UI) showAbout() {
	u.Notice(app.LevelInfo, fmt.Sprintf("MemoryLens %s (%s)", u.version, u.commit))
}

func (u *UI) renderTranscriptLocked() {
	if !u.cfg.TranscriptShown() || u.transcript == "" {
		u.mTranscript.Hide()
		return
	}
	u.mTranscript.SetTitle(transcriptLine(u.transcript, transcriptWidth))
	u.mTranscript.Show()
}

// updateStatus sets the tray title with camera emoji and status indicator
func (u *UI) updateStatus(status string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = status
	if u.ready {
		u.applyStatusLocked()
	}
}

func (u *UI) applyStatusLocked() {
	systray.SetTitle(fmt.Sprintf("📷 %s", emojiForStatus(u.status)))
	phase := app.Active
	if u.status == "idle" {
		phase = app.Idle
	}
	u.mStartStop.SetTitle(toggleTitle(phase))
	if phase == app.Idle {
		u.mNotice.Hide()
		u.mFaces.SetTitle(facesTooltip(nil))
	}
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "active":
		return "🟢" // Green - watching
	case "recording":
		return "🔴" // Red - recording an utterance
	case "processing":
		return "🟡" // Yellow - storing a memory
	case "idle":
		return "⚫️" // Black - session off
	case "error":
		return "⚪️" // White - error
	default:
		return "⚫️"
	}
}

func toggleTitle(phase app.Phase) string {
	if phase == app.Idle {
		return "Start MemoryLens"
	}
	return "End Session"
}

// facesTooltip lists faces left to right.
func facesTooltip(faces detection.Set) string {
	if len(faces) == 0 {
		return "No faces in view"
	}
	names := faces.Sorted().Names()
	return fmt.Sprintf("In view: %s", strings.Join(names, ", "))
}

// transcriptLine keeps the tail of a caption, which is the part being spoken.
func transcriptLine(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= width {
		return text
	}
	return "…" + string(r[len(r)-width+1:])
}

func noticeTitle(level app.Level, msg string) string {
	switch level {
	case app.LevelSuccess:
		return "✅ " + msg
	case app.LevelWarn:
		return "⚠️ " + msg
	case app.LevelError:
		return "❌ " + msg
	}
	return "ℹ️ " + msg
}
