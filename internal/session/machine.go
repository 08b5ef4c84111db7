package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

var (
	// ErrSessionConflict is returned by Start while another instance is
	// running or paused.
	ErrSessionConflict = errors.New("another session is already active")

	// ErrInvalidState is returned when an operation is attempted from a
	// status that does not permit it.
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrUnknownType is returned by Start for a session type that is not
	// part of the reference data.
	ErrUnknownType = errors.New("unknown session type")

	// ErrInvalidRating is returned by Complete for a focus quality rating
	// outside 1..10.
	ErrInvalidRating = errors.New("focus quality must be between 1 and 10")
)

// Machine owns the lifecycle of at most one active session instance and
// enforces the single-active-session rule. All time arithmetic goes through
// the injected clock so tests can drive it deterministically.
type Machine struct {
	clk    clock.Clock
	active *Instance
}

func NewMachine(clk clock.Clock) *Machine {
	return &Machine{clk: clk}
}

// Restore rehydrates a persisted running or paused instance, typically after
// a process restart. A nil instance clears the machine back to idle.
func (m *Machine) Restore(inst *Instance) error {
	if inst == nil {
		m.active = nil
		return nil
	}
	if !inst.Status.Active() {
		return fmt.Errorf("restore %s instance: %w", inst.Status, ErrInvalidState)
	}
	m.active = inst
	return nil
}

// Active returns the running or paused instance, nil when idle.
func (m *Machine) Active() *Instance {
	return m.active
}

// Start creates and runs a new instance. plannedSeconds <= 0 selects the
// type's canonical default duration.
func (m *Machine) Start(t Type, plannedSeconds int, linkedTaskID string) (*Instance, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("start %q: %w", t, ErrUnknownType)
	}
	if m.active != nil {
		return nil, fmt.Errorf("start %s while %s is %s: %w", t, m.active.Type, m.active.Status, ErrSessionConflict)
	}
	if plannedSeconds <= 0 {
		plannedSeconds = t.DefaultSeconds()
	}

	inst := &Instance{
		ID:                     uuid.NewString(),
		Type:                   t,
		PlannedDurationSeconds: plannedSeconds,
		Status:                 StatusRunning,
		StartedAt:              m.clk.Now().UTC(),
		LinkedTaskID:           linkedTaskID,
	}
	m.active = inst
	return inst, nil
}

// Pause marks the running instance paused and remembers when the pause
// began. The pause span is folded into PausedAccumulated on Resume.
func (m *Machine) Pause() (*Instance, error) {
	inst := m.active
	if inst == nil || inst.Status != StatusRunning {
		return nil, fmt.Errorf("pause: %w", ErrInvalidState)
	}
	now := m.clk.Now().UTC()
	inst.Status = StatusPaused
	inst.PauseStartedAt = &now
	return inst, nil
}

// Resume folds the finished pause span into the accumulated total, at full
// precision, and puts the instance back in the running state.
func (m *Machine) Resume() (*Instance, error) {
	inst := m.active
	if inst == nil || inst.Status != StatusPaused {
		return nil, fmt.Errorf("resume: %w", ErrInvalidState)
	}
	now := m.clk.Now().UTC()
	if inst.PauseStartedAt != nil {
		inst.PausedAccumulated += now.Sub(*inst.PauseStartedAt)
		inst.PauseStartedAt = nil
	}
	inst.Status = StatusRunning
	return inst, nil
}

// Complete finishes the active instance, successfully, from either the
// running or paused state. Callers may complete early; natural completion is
// simply a call made once RemainingSeconds has reached zero. The optional
// focus quality rating is attached to the emitted record.
func (m *Machine) Complete(focusQuality *int) (*Record, error) {
	inst := m.active
	if inst == nil {
		return nil, fmt.Errorf("complete: %w", ErrInvalidState)
	}
	if focusQuality != nil && (*focusQuality < 1 || *focusQuality > 10) {
		return nil, fmt.Errorf("complete with quality %d: %w", *focusQuality, ErrInvalidRating)
	}

	now := m.clk.Now().UTC()
	record := newRecord(inst, now, true)
	record.FocusQuality = focusQuality
	inst.Status = StatusCompleted
	m.active = nil
	return record, nil
}

// Cancel abandons the active instance at any remaining time. The emitted
// record carries the elapsed active time so far and Completed=false.
func (m *Machine) Cancel() (*Record, error) {
	inst := m.active
	if inst == nil {
		return nil, fmt.Errorf("cancel: %w", ErrInvalidState)
	}

	now := m.clk.Now().UTC()
	record := newRecord(inst, now, false)
	inst.Status = StatusCancelled
	m.active = nil
	return record, nil
}

// SwitchTask reassigns the opaque linked task id on the active instance.
// Whether to warn the user first is the UI's concern, not validated here.
func (m *Machine) SwitchTask(linkedTaskID string) (*Instance, error) {
	inst := m.active
	if inst == nil {
		return nil, fmt.Errorf("switch task: %w", ErrInvalidState)
	}
	inst.LinkedTaskID = linkedTaskID
	return inst, nil
}

// Remaining reports seconds left on the active instance, zero when idle.
func (m *Machine) Remaining() int {
	if m.active == nil {
		return 0
	}
	return m.active.RemainingSeconds(m.clk.Now().UTC())
}

func newRecord(inst *Instance, now time.Time, completed bool) *Record {
	elapsed := inst.PlannedDurationSeconds - inst.RemainingSeconds(now)
	return &Record{
		ID:              uuid.NewString(),
		Type:            inst.Type,
		DurationSeconds: elapsed,
		Completed:       completed,
		LinkedTaskID:    inst.LinkedTaskID,
		Timestamp:       now,
	}
}
