// Package console renders session status as styled lines on a terminal. It
// is the headless counterpart of the tray.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/petems/memorylens/internal/app"
	"github.com/petems/memorylens/internal/detection"
)

// Theme defines the color scheme.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Success lipgloss.Color
	Warn    lipgloss.Color
	Error   lipgloss.Color
}

var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Success: lipgloss.Color("#3fb950"),
	Warn:    lipgloss.Color("#d29922"),
	Error:   lipgloss.Color("#f85149"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Label   lipgloss.Style
	Dim     lipgloss.Style
	Known   lipgloss.Style
	Unknown lipgloss.Style
	Success lipgloss.Style
	Warn    lipgloss.Style
	Error   lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Label:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Dim:     lipgloss.NewStyle().Foreground(t.Dim),
		Known:   lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		Unknown: lipgloss.NewStyle().Foreground(t.Dim).Italic(true),
		Success: lipgloss.NewStyle().Foreground(t.Success),
		Warn:    lipgloss.NewStyle().Foreground(t.Warn),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

// Console writes one line per status change. Repeated identical face lists
// are not reprinted.
type Console struct {
	styles         Styles
	showTranscript bool
	now            func() time.Time

	mu        sync.Mutex
	w         io.Writer
	lastFaces string
	lastText  string
}

func New(w io.Writer, showTranscript bool) *Console {
	return &Console{
		styles:         NewStyles(DefaultTheme),
		showTranscript: showTranscript,
		now:            time.Now,
		w:              w,
	}
}

func (c *Console) SetIdle()       { c.state("idle", c.styles.Dim) }
func (c *Console) SetActive()     { c.state("watching", c.styles.Label) }
func (c *Console) SetRecording()  { c.state("recording", c.styles.Error) }
func (c *Console) SetProcessing() { c.state("saving memory", c.styles.Warn) }
func (c *Console) SetError()      { c.state("error", c.styles.Error) }

func (c *Console) ShowFaces(faces detection.Set) {
	line := c.renderFaces(faces)

	c.mu.Lock()
	defer c.mu.Unlock()
	if line == c.lastFaces {
		return
	}
	c.lastFaces = line
	c.printLocked("faces", line)
}

func (c *Console) ShowTranscript(text string) {
	if !c.showTranscript {
		return
	}
	text = strings.TrimSpace(text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if text == "" || text == c.lastText {
		c.lastText = text
		return
	}
	c.lastText = text
	c.printLocked("heard", c.styles.Dim.Render("“"+text+"”"))
}

func (c *Console) Notice(level app.Level, msg string) {
	style := c.styles.Label
	switch level {
	case app.LevelSuccess:
		style = c.styles.Success
	case app.LevelWarn:
		style = c.styles.Warn
	case app.LevelError:
		style = c.styles.Error
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.printLocked("notice", style.Render(msg))
}

func (c *Console) state(name string, style lipgloss.Style) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "idle" {
		c.lastFaces = ""
		c.lastText = ""
	}
	c.printLocked("status", style.Render(name))
}

func (c *Console) renderFaces(faces detection.Set) string {
	if len(faces) == 0 {
		return c.styles.Dim.Render("none")
	}
	parts := make([]string, 0, len(faces))
	for _, f := range faces.Sorted() {
		if !f.Known() {
			parts = append(parts, c.styles.Unknown.Render(detection.Unknown))
			continue
		}
		part := c.styles.Known.Render(f.Name)
		if f.Similarity != nil {
			part += c.styles.Dim.Render(fmt.Sprintf(" %.0f%%", *f.Similarity*100))
		}
		if f.LastMet != "" {
			part += c.styles.Dim.Render(" · last met " + f.LastMet)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

func (c *Console) printLocked(label, body string) {
	ts := c.styles.Dim.Render(c.now().Format("15:04:05"))
	fmt.Fprintf(c.w, "%s %s %s\n", ts, c.styles.Label.Render(fmt.Sprintf("%-6s", label)), body)
}
