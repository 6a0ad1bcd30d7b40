// Package detection holds the face records reported by the recognition
// service for the most recent sampled frame.
package detection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Unknown is the name the service reports for an unmatched face.
const Unknown = "Unknown"

// ErrNotDetectionList is returned by Parse for payloads that are not a JSON
// array, such as the service's per-frame {"error": ...} reply.
var ErrNotDetectionList = errors.New("detection: payload is not a list")

// BBox is a face bounding box in pixels, ordered top, right, bottom, left.
type BBox [4]int

func (b BBox) Top() int    { return b[0] }
func (b BBox) Right() int  { return b[1] }
func (b BBox) Bottom() int { return b[2] }
func (b BBox) Left() int   { return b[3] }

// Width and Height are measured from the box edges.
func (b BBox) Width() int  { return b.Right() - b.Left() }
func (b BBox) Height() int { return b.Bottom() - b.Top() }

// Record is one detected face.
type Record struct {
	BBox          BBox     `json:"bbox"`
	Name          string   `json:"name"`
	PersonID      string   `json:"person_id,omitempty"`
	Similarity    *float64 `json:"similarity,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	LastMet       string   `json:"last_met,omitempty"`
	EmotionalTone string   `json:"emotional_tone,omitempty"`
}

// Known reports whether the face was matched to a registered person.
func (r Record) Known() bool {
	return r.Name != "" && r.Name != Unknown
}

// Key is a render key derived from the box geometry.
func (r Record) Key() string {
	return fmt.Sprintf("%d-%d-%d-%d", r.BBox[0], r.BBox[1], r.BBox[2], r.BBox[3])
}

// Set is the complete list of faces for one frame.
type Set []Record

// Parse decodes one detection channel message.
func Parse(raw []byte) (Set, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotDetectionList
	}
	var set Set
	if err := json.Unmarshal(trimmed, &set); err != nil {
		return nil, fmt.Errorf("detection: %w", err)
	}
	return set, nil
}

// Sorted returns a copy ordered by the right edge of each box, ascending.
// Ties keep arrival order.
func (s Set) Sorted() Set {
	out := make(Set, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BBox.Right() < out[j].BBox.Right()
	})
	return out
}

// Known returns the recognized faces in render order.
func (s Set) Known() Set {
	var out Set
	for _, r := range s.Sorted() {
		if r.Known() {
			out = append(out, r)
		}
	}
	return out
}

// Names lists face names in render order.
func (s Set) Names() []string {
	sorted := s.Sorted()
	names := make([]string, len(sorted))
	for i, r := range sorted {
		names[i] = r.Name
	}
	return names
}
