package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/petems/memorylens/internal/api"
)

// WritePeople prints the registered people.
func WritePeople(w io.Writer, people []api.Person, now time.Time) {
	s := NewStyles(DefaultTheme)
	if len(people) == 0 {
		fmt.Fprintln(w, s.Dim.Render("No people registered yet."))
		return
	}
	for _, p := range people {
		fmt.Fprintf(w, "%s  %s  %s\n",
			s.Known.Render(p.Name),
			s.Dim.Render(p.ID),
			s.Dim.Render("added "+api.Relative(p.CreatedAt.Time, now)))
	}
}

// WriteMemories prints one person's memories as cards, newest first as the
// service returns them.
func WriteMemories(w io.Writer, memories []api.Memory, now time.Time) {
	s := NewStyles(DefaultTheme)
	if len(memories) == 0 {
		fmt.Fprintln(w, s.Dim.Render("No memories yet."))
		return
	}

	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(DefaultTheme.Dim).
		Padding(0, 1).
		Width(72)

	for _, m := range memories {
		var b strings.Builder
		b.WriteString(s.Label.Render(api.Relative(m.Timestamp.Time, now)))
		if m.EmotionalTone != "" {
			b.WriteString(s.Dim.Render("  " + m.EmotionalTone))
		}
		b.WriteString("\n")
		if m.Summary != "" {
			b.WriteString(m.Summary)
			b.WriteString("\n")
		}
		if len(m.KeyTopics) > 0 {
			b.WriteString(s.Dim.Render("#" + strings.Join(m.KeyTopics, " #")))
			b.WriteString("\n")
		}
		if m.FollowUpSuggestion != "" {
			b.WriteString(s.Success.Render("→ " + m.FollowUpSuggestion))
			b.WriteString("\n")
		}
		b.WriteString(s.Dim.Render("“" + m.Transcript + "”"))
		fmt.Fprintln(w, card.Render(b.String()))
	}
}
