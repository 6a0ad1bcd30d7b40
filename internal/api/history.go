package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Timestamp accepts RFC 3339 and the service's zone-less ISO timestamps,
// which are UTC.
type Timestamp struct {
	time.Time
}

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = ts
		return nil
	}
	for _, layout := range zonelessLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = ts
			return nil
		}
	}
	return fmt.Errorf("api: unrecognized timestamp %q", s)
}

// Person is a registered identity.
type Person struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	CreatedAt Timestamp `json:"created_at"`
}

// Memory is one stored conversation.
type Memory struct {
	ID                 string    `json:"_id"`
	PersonID           string    `json:"person_id"`
	Transcript         string    `json:"transcript"`
	Summary            string    `json:"summary"`
	KeyTopics          []string  `json:"key_topics"`
	EmotionalTone      string    `json:"emotional_tone"`
	FollowUpSuggestion string    `json:"follow_up_suggestion,omitempty"`
	Timestamp          Timestamp `json:"timestamp"`
}

// People lists registered people.
func (c *Client) People(ctx context.Context) ([]Person, error) {
	var out []Person
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/people")
	if err := check("list people", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// PersonMemories lists the memories stored for one person.
func (c *Client) PersonMemories(ctx context.Context, personID string) ([]Memory, error) {
	if personID == "" {
		return nil, fmt.Errorf("%w: person id is required", ErrInvalidInput)
	}
	var out []Memory
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/people/" + url.PathEscape(personID) + "/memories")
	if err := check("list memories", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// Relative renders t relative to now the way the history view does: minutes,
// hours and days up to a week, then the date.
func Relative(t, now time.Time) string {
	d := now.Sub(t)
	days := int(d.Hours() / 24)
	switch {
	case days > 7:
		return t.Format("Jan 2, 2006")
	case days >= 1:
		return plural(days, "day") + " ago"
	case d >= time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	case d >= time.Minute:
		return plural(int(d.Minutes()), "minute") + " ago"
	}
	return "Just now"
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
