package flow

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"focusflow/backend/internal/session"
)

// Orchestrator advances a run through its definition by driving the session
// machine: each step becomes one session instance. At most one run is active
// at a time, mirroring the machine's single-session rule.
type Orchestrator struct {
	clk     clock.Clock
	machine *session.Machine
	def     *Definition
	run     *Run
}

func NewOrchestrator(clk clock.Clock, machine *session.Machine) *Orchestrator {
	return &Orchestrator{clk: clk, machine: machine}
}

// Run returns the active run, nil when none.
func (o *Orchestrator) Run() *Run {
	return o.run
}

// Definition returns the definition behind the active run, nil when none.
func (o *Orchestrator) Definition() *Definition {
	return o.def
}

// Restore rehydrates a persisted run and its definition after a restart.
// Passing nil for both clears the orchestrator.
func (o *Orchestrator) Restore(def *Definition, run *Run) error {
	if def == nil && run == nil {
		o.def, o.run = nil, nil
		return nil
	}
	if def == nil || run == nil {
		return fmt.Errorf("restore run without definition: %w", session.ErrInvalidState)
	}
	if err := def.Validate(); err != nil {
		return err
	}
	if run.Status.Terminal() {
		return fmt.Errorf("restore %s run: %w", run.Status, session.ErrInvalidState)
	}
	if run.CurrentStepIndex < 0 || run.CurrentStepIndex >= len(def.Steps) {
		return fmt.Errorf("restore run at step %d of %d: %w", run.CurrentStepIndex, len(def.Steps), session.ErrInvalidState)
	}
	o.def, o.run = def, run
	return nil
}

// Start begins a run at step zero and starts that step's session.
func (o *Orchestrator) Start(def *Definition) (*Run, *session.Instance, error) {
	if err := def.Validate(); err != nil {
		return nil, nil, err
	}
	if o.run != nil && !o.run.Status.Terminal() {
		return nil, nil, fmt.Errorf("start flow %s: %w", def.ID, ErrFlowConflict)
	}
	if o.machine.Active() != nil {
		return nil, nil, fmt.Errorf("start flow %s: %w", def.ID, session.ErrSessionConflict)
	}

	run := &Run{
		ID:     uuid.NewString(),
		FlowID: def.ID,
		Status: RunActive,
	}
	o.def, o.run = def, run
	inst, err := o.startStep(0)
	if err != nil {
		o.def, o.run = nil, nil
		return nil, nil, err
	}
	return run, inst, nil
}

// Advance is called after the current step's session has completed. It
// starts the next step's session, or finishes the run when the completed
// step was the last one. Exactly one of the returns is non-nil on success.
func (o *Orchestrator) Advance() (*session.Instance, *CompletionRecord, error) {
	if o.run == nil || o.run.Status.Terminal() {
		return nil, nil, fmt.Errorf("advance: %w", ErrNoActiveFlow)
	}
	if o.machine.Active() != nil {
		return nil, nil, fmt.Errorf("advance while step session is active: %w", session.ErrInvalidState)
	}

	o.run.CompletedStepCount++
	if o.run.CompletedStepCount >= len(o.def.Steps) {
		o.run.Status = RunCompleted
		record := o.completionRecord(true)
		o.def, o.run = nil, nil
		return nil, record, nil
	}

	o.run.CurrentStepIndex = o.run.CompletedStepCount
	o.run.Status = RunActive
	inst, err := o.startStep(o.run.CurrentStepIndex)
	if err != nil {
		return nil, nil, err
	}
	return inst, nil, nil
}

// Pause suspends the run. Mid-step it pauses the session too; between steps
// (after a cancelled step) only the run state changes.
func (o *Orchestrator) Pause() (*Run, error) {
	if o.run == nil || o.run.Status.Terminal() {
		return nil, fmt.Errorf("pause flow: %w", ErrNoActiveFlow)
	}
	if o.run.Status == RunPaused {
		return nil, fmt.Errorf("pause flow: %w", session.ErrInvalidState)
	}
	if inst := o.machine.Active(); inst != nil && inst.Status == session.StatusRunning {
		if _, err := o.machine.Pause(); err != nil {
			return nil, err
		}
	}
	o.run.Status = RunPaused
	return o.run, nil
}

// Continue resumes a paused step session, or starts the current step fresh
// when there is none (a paused gap or a cancelled step).
func (o *Orchestrator) Continue() (*session.Instance, error) {
	if o.run == nil || o.run.Status.Terminal() {
		return nil, fmt.Errorf("continue flow: %w", ErrNoActiveFlow)
	}

	if inst := o.machine.Active(); inst != nil {
		if inst.Status != session.StatusPaused {
			return nil, fmt.Errorf("continue flow with running session: %w", session.ErrInvalidState)
		}
		resumed, err := o.machine.Resume()
		if err != nil {
			return nil, err
		}
		o.run.Status = RunActive
		return resumed, nil
	}

	inst, err := o.startStep(o.run.CurrentStepIndex)
	if err != nil {
		return nil, err
	}
	o.run.Status = RunActive
	return inst, nil
}

// End abandons the run. Any in-flight step session is cancelled and its
// record returned alongside the unsuccessful completion record.
func (o *Orchestrator) End() (*session.Record, *CompletionRecord, error) {
	if o.run == nil || o.run.Status.Terminal() {
		return nil, nil, fmt.Errorf("end flow: %w", ErrNoActiveFlow)
	}

	var sessionRecord *session.Record
	if o.machine.Active() != nil {
		record, err := o.machine.Cancel()
		if err != nil {
			return nil, nil, err
		}
		sessionRecord = record
	}

	o.run.Status = RunEnded
	record := o.completionRecord(false)
	o.def, o.run = nil, nil
	return sessionRecord, record, nil
}

func (o *Orchestrator) startStep(idx int) (*session.Instance, error) {
	step := o.def.Steps[idx]
	return o.machine.Start(step.Type, step.DurationSeconds, "")
}

func (o *Orchestrator) completionRecord(success bool) *CompletionRecord {
	return &CompletionRecord{
		ID:             uuid.NewString(),
		FlowID:         o.run.FlowID,
		StepsTotal:     len(o.def.Steps),
		StepsCompleted: o.run.CompletedStepCount,
		Success:        success,
		CompletedAt:    o.clk.Now().UTC(),
	}
}
