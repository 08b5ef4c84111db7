package flow

import (
	"errors"
	"fmt"
	"time"

	"focusflow/backend/internal/session"
)

var (
	// ErrEmptyDefinition is returned when a definition carries no steps.
	ErrEmptyDefinition = errors.New("flow definition has no steps")

	// ErrInvalidStep is returned for a step with an unknown session type or
	// a negative duration.
	ErrInvalidStep = errors.New("invalid flow step")

	// ErrReadonlyDefinition is returned on attempts to edit or delete a
	// builtin definition.
	ErrReadonlyDefinition = errors.New("builtin flow definition is readonly")

	// ErrFlowConflict is returned by Start while another run is active.
	ErrFlowConflict = errors.New("another flow run is already active")

	// ErrNoActiveFlow is returned by run operations when no run is active.
	ErrNoActiveFlow = errors.New("no active flow run")
)

// Step is one entry in a flow definition. DurationSeconds zero means the
// session type's canonical default.
type Step struct {
	Type            session.Type `json:"type"`
	DurationSeconds int          `json:"durationSeconds"`
}

// Definition is an ordered template of sessions. Builtin definitions ship
// with the app and cannot be edited or deleted.
type Definition struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Builtin bool   `json:"builtin"`
	Steps   []Step `json:"steps"`
}

func (d *Definition) Validate() error {
	if len(d.Steps) == 0 {
		return ErrEmptyDefinition
	}
	for i, step := range d.Steps {
		if !step.Type.Valid() {
			return fmt.Errorf("step %d type %q: %w", i, step.Type, ErrInvalidStep)
		}
		if step.DurationSeconds < 0 {
			return fmt.Errorf("step %d duration %d: %w", i, step.DurationSeconds, ErrInvalidStep)
		}
	}
	return nil
}

// EnsureEditable rejects writes against a builtin definition.
func (d *Definition) EnsureEditable() error {
	if d.Builtin {
		return fmt.Errorf("flow %s: %w", d.ID, ErrReadonlyDefinition)
	}
	return nil
}

// TotalSeconds is the planned length of the whole flow.
func (d *Definition) TotalSeconds() int {
	total := 0
	for _, step := range d.Steps {
		if step.DurationSeconds > 0 {
			total += step.DurationSeconds
		} else {
			total += step.Type.DefaultSeconds()
		}
	}
	return total
}

type RunStatus string

const (
	RunActive    RunStatus = "active"
	RunPaused    RunStatus = "paused"
	RunCompleted RunStatus = "completed"
	RunEnded     RunStatus = "ended"
)

func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunEnded
}

// Run tracks progress through a definition. CurrentStepIndex is the step the
// user is on (zero-based); CompletedStepCount only moves on Advance, so a
// cancelled step leaves both where they were.
type Run struct {
	ID                 string    `json:"id"`
	FlowID             string    `json:"flowId"`
	CurrentStepIndex   int       `json:"currentStepIndex"`
	CompletedStepCount int       `json:"completedStepCount"`
	Status             RunStatus `json:"status"`
}

// CompletionRecord is the immutable outcome of a finished run, successful or
// not.
type CompletionRecord struct {
	ID             string    `json:"id"`
	FlowID         string    `json:"flowId"`
	StepsTotal     int       `json:"stepsTotal"`
	StepsCompleted int       `json:"stepsCompleted"`
	Success        bool      `json:"success"`
	CompletedAt    time.Time `json:"completedAt"`
}
