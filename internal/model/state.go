package model

import (
	"time"

	"focusflow/backend/internal/flow"
	"focusflow/backend/internal/session"
)

// DurationSettings holds a user's default duration per session type, in
// seconds. New users start from the canonical defaults.
type DurationSettings struct {
	ClassicSeconds    int `json:"classicSeconds"`
	DeepFocusSeconds  int `json:"deepFocusSeconds"`
	QuickTaskSeconds  int `json:"quickTaskSeconds"`
	ShortBreakSeconds int `json:"shortBreakSeconds"`
	LongBreakSeconds  int `json:"longBreakSeconds"`
}

func DefaultDurationSettings() DurationSettings {
	return DurationSettings{
		ClassicSeconds:    session.TypeClassic.DefaultSeconds(),
		DeepFocusSeconds:  session.TypeDeepFocus.DefaultSeconds(),
		QuickTaskSeconds:  session.TypeQuickTask.DefaultSeconds(),
		ShortBreakSeconds: session.TypeShortBreak.DefaultSeconds(),
		LongBreakSeconds:  session.TypeLongBreak.DefaultSeconds(),
	}
}

// For returns the configured duration for a session type.
func (d DurationSettings) For(t session.Type) int {
	switch t {
	case session.TypeClassic:
		return d.ClassicSeconds
	case session.TypeDeepFocus:
		return d.DeepFocusSeconds
	case session.TypeQuickTask:
		return d.QuickTaskSeconds
	case session.TypeShortBreak:
		return d.ShortBreakSeconds
	case session.TypeLongBreak:
		return d.LongBreakSeconds
	default:
		return t.DefaultSeconds()
	}
}

// Positive reports whether every configured duration is usable.
func (d DurationSettings) Positive() bool {
	return d.ClassicSeconds > 0 && d.DeepFocusSeconds > 0 && d.QuickTaskSeconds > 0 &&
		d.ShortBreakSeconds > 0 && d.LongBreakSeconds > 0
}

// TimerState is one user's persisted scheduling state: the active session
// instance (nil when idle), the active flow run (nil when none), the
// duration settings, and the version incremented on every mutation for
// multi-device conflict detection.
type TimerState struct {
	UserID    string            `json:"userId"`
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Active    *session.Instance `json:"active,omitempty"`
	Run       *flow.Run         `json:"run,omitempty"`
	Durations DurationSettings  `json:"durations"`
}
