package app

import (
	"encoding/json"
	"fmt"

	"github.com/petems/memorylens/internal/detection"
)

// handleDetections applies one recognition channel reply. Each list replaces
// the detection set wholesale; anything else is dropped.
func (a *App) handleDetections(epoch uint64, msg json.RawMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.currentLocked(epoch) {
		return
	}

	set, err := detection.Parse(msg)
	if err != nil {
		a.log.Debug().Err(err).RawJSON("payload", msg).Msg("Dropped recognition reply")
		return
	}

	prev := a.faces.Replace(set)
	if len(prev) != len(set) {
		a.log.Debug().Int("faces", len(set)).Strs("names", set.Names()).Msg("Faces changed")
	}
	a.status.ShowFaces(set.Sorted())

	if len(set) == 0 {
		if a.rec.state == recRecording {
			a.finalizeLocked("faces left", a.sampler.latest())
		}
		return
	}
	a.startRecordingLocked(epoch)
}

type listenEvent struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Name     string `json:"name"`
	PersonID string `json:"person_id"`
}

// handleListenEvent applies one listen channel event.
func (a *App) handleListenEvent(epoch uint64, msg json.RawMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.currentLocked(epoch) {
		return
	}

	var ev listenEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		a.log.Debug().Err(err).Msg("Dropped listen event")
		return
	}

	switch ev.Type {
	case "transcript":
		a.transcript = ev.Text
		a.status.ShowTranscript(ev.Text)
	case "identity_update":
		a.log.Info().Str("name", ev.Name).Str("person_id", ev.PersonID).Msg("Identity updated")
		a.status.Notice(LevelSuccess, fmt.Sprintf("Identity updated: %s", ev.Name))
	default:
		a.log.Debug().Str("type", ev.Type).Msg("Ignored listen event")
	}
}
