package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeScoreUpdated uint32 = iota + 1
	TypeGoalCelebrated
	TypeLoopFault
	TypeSettingsChanged
	TypeWiFiChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ScoreUpdated follows every score fetch.
type ScoreUpdated struct {
	State  string    `json:"state"`
	Score  int       `json:"score"`
	Warmup int       `json:"warmup"`
	Err    string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

func (e ScoreUpdated) Type() uint32 { return TypeScoreUpdated }

// GoalCelebrated is published after the celebration script finished.
type GoalCelebrated struct {
	Previous int       `json:"previous"`
	Current  int       `json:"current"`
	At       time.Time `json:"at"`
}

func (e GoalCelebrated) Type() uint32 { return TypeGoalCelebrated }

// LoopFault is a scheduler iteration that failed or panicked.
type LoopFault struct {
	Err   string    `json:"error"`
	Panic bool      `json:"panic"`
	At    time.Time `json:"at"`
}

func (e LoopFault) Type() uint32 { return TypeLoopFault }

// SettingsChanged follows a button action or a config reload.
type SettingsChanged struct {
	Source     string    `json:"source"` // "button" | "file" | "score"
	Brightness float64   `json:"brightness"`
	Colour     int       `json:"colour"`
	Routine    string    `json:"routine"`
	Restart    bool      `json:"restart"`
	At         time.Time `json:"at"`
}

func (e SettingsChanged) Type() uint32 { return TypeSettingsChanged }

// WiFiChanged reports station association changes.
type WiFiChanged struct {
	Connected bool      `json:"connected"`
	SSID      string    `json:"ssid,omitempty"`
	At        time.Time `json:"at"`
}

func (e WiFiChanged) Type() uint32 { return TypeWiFiChanged }
