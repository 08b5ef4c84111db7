package session

import "time"

// Type identifies a kind of timed session.
type Type string

const (
	TypeClassic    Type = "classic"
	TypeDeepFocus  Type = "deep_focus"
	TypeQuickTask  Type = "quick_task"
	TypeShortBreak Type = "short_break"
	TypeLongBreak  Type = "long_break"
)

var defaultSeconds = map[Type]int{
	TypeClassic:    25 * 60,
	TypeDeepFocus:  50 * 60,
	TypeQuickTask:  10 * 60,
	TypeShortBreak: 5 * 60,
	TypeLongBreak:  15 * 60,
}

// Types returns every known session type.
func Types() []Type {
	return []Type{TypeClassic, TypeDeepFocus, TypeQuickTask, TypeShortBreak, TypeLongBreak}
}

// Valid reports whether t is a known session type.
func (t Type) Valid() bool {
	_, ok := defaultSeconds[t]
	return ok
}

// DefaultSeconds returns the canonical duration for the type, zero if unknown.
func (t Type) DefaultSeconds() int {
	return defaultSeconds[t]
}

// IsBreak reports whether the type is a rest period rather than focus work.
func (t Type) IsBreak() bool {
	return t == TypeShortBreak || t == TypeLongBreak
}

// Status describes where an instance is in its lifecycle.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Active reports whether the status counts against the one-active-session rule.
func (s Status) Active() bool {
	return s == StatusRunning || s == StatusPaused
}

// Terminal reports whether the status ends an instance's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Instance is a single in-progress or finished timer run. Remaining time is
// always derived from wall-clock arithmetic over these fields, never from a
// ticking counter, so an instance reloaded after the app was suspended or the
// process restarted reports correct values immediately.
type Instance struct {
	ID                     string        `json:"id"`
	Type                   Type          `json:"sessionType"`
	PlannedDurationSeconds int           `json:"plannedDurationSeconds"`
	Status                 Status        `json:"status"`
	StartedAt              time.Time     `json:"startedAt"`
	PausedAccumulated      time.Duration `json:"pausedAccumulatedNs"`
	PauseStartedAt         *time.Time    `json:"pauseStartedAt,omitempty"`
	LinkedTaskID           string        `json:"linkedTaskId,omitempty"`
}

// ElapsedActive is the time the instance has spent running as of now,
// excluding all paused spans including a pause still in progress. Kept in
// duration space; truncation to whole seconds happens exactly once, in the
// reporting methods below. Constant while the instance is paused.
func (i *Instance) ElapsedActive(now time.Time) time.Duration {
	if i.StartedAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(i.StartedAt) - i.PausedAccumulated
	if i.Status == StatusPaused && i.PauseStartedAt != nil {
		elapsed -= now.Sub(*i.PauseStartedAt)
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// ElapsedActiveSeconds is ElapsedActive truncated to whole seconds.
func (i *Instance) ElapsedActiveSeconds(now time.Time) int {
	return int(i.ElapsedActive(now) / time.Second)
}

// RemainingSeconds is the planned duration minus elapsed active time,
// floored at zero. Pure; safe to call at any polling frequency.
func (i *Instance) RemainingSeconds(now time.Time) int {
	remaining := i.PlannedDurationSeconds - i.ElapsedActiveSeconds(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Record is the immutable historical fact written when an instance reaches a
// terminal state. DurationSeconds is actual elapsed active time, not planned.
type Record struct {
	ID              string    `json:"id"`
	Type            Type      `json:"sessionType"`
	DurationSeconds int       `json:"durationSeconds"`
	Completed       bool      `json:"completed"`
	FocusQuality    *int      `json:"focusQuality,omitempty"`
	LinkedTaskID    string    `json:"linkedTaskId,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
