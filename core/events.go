package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventScoreSubmitted  EventType = "score_submitted"
	EventScoreEvicted    EventType = "score_evicted"
	EventPresetSubmitted EventType = "preset_submitted"
)

// Event represents an immutable domain event.
type Event struct {
	Type     EventType      `json:"type"`
	Time     time.Time      `json:"time"`
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Score    int64          `json:"score,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewScoreSubmitted(e ScoreEntry) Event {
	return Event{Type: EventScoreSubmitted, Time: time.Now().UTC(), ID: e.ID, Name: e.Name, Score: e.Score}
}

func NewScoreEvicted(e ScoreEntry) Event {
	return Event{Type: EventScoreEvicted, Time: time.Now().UTC(), ID: e.ID, Name: e.Name, Score: e.Score}
}

func NewPresetSubmitted(p InstructorPreset) Event {
	return Event{Type: EventPresetSubmitted, Time: time.Now().UTC(), ID: p.ID, Name: p.Name}
}
