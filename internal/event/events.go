// Package event carries the domain notifications the backend publishes
// after state changes commit. Subscribers run synchronously; delivery to
// devices (sounds, haptics, banners) belongs to the mobile app.
package event

import (
	"focusflow/backend/internal/flow"
	"focusflow/backend/internal/session"
)

// Event is implemented by everything published on the Bus.
type Event interface {
	// Kind returns the event type identifier.
	Kind() string
}

// SessionStarted is published when a session instance begins, standalone or
// as a flow step.
type SessionStarted struct {
	UserID                 string
	SessionID              string
	SessionType            session.Type
	PlannedDurationSeconds int
	LinkedTaskID           string
}

func (e SessionStarted) Kind() string { return "session_started" }

// SessionCompleted is published once the completion record is durable.
type SessionCompleted struct {
	UserID string
	Record session.Record
}

func (e SessionCompleted) Kind() string { return "session_completed" }

// SessionCancelled is published once the cancellation record is durable.
type SessionCancelled struct {
	UserID string
	Record session.Record
}

func (e SessionCancelled) Kind() string { return "session_cancelled" }

// FlowStepAdvanced is published when a run moves on to its next step.
type FlowStepAdvanced struct {
	UserID     string
	RunID      string
	FlowID     string
	StepIndex  int
	StepsTotal int
	StepType   session.Type
}

func (e FlowStepAdvanced) Kind() string { return "flow_step_advanced" }

// FlowCompleted is published when the last step of a run finishes.
type FlowCompleted struct {
	UserID string
	Record flow.CompletionRecord
}

func (e FlowCompleted) Kind() string { return "flow_completed" }

// FlowEnded is published when a run is abandoned before its last step.
type FlowEnded struct {
	UserID string
	Record flow.CompletionRecord
}

func (e FlowEnded) Kind() string { return "flow_ended" }

// StreakMilestone is published when a completion pushes the current streak
// onto one of the celebrated thresholds.
type StreakMilestone struct {
	UserID string
	Days   int
}

func (e StreakMilestone) Kind() string { return "streak_milestone" }

var milestones = []int{3, 7, 14, 30, 60, 100}

// IsMilestone reports whether a streak length is one of the celebrated
// thresholds.
func IsMilestone(days int) bool {
	for _, m := range milestones {
		if m == days {
			return true
		}
	}
	return false
}
