package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/benbjohnson/clock"

	apperrors "focusflow/backend/internal/errors"
	"focusflow/backend/internal/event"
	"focusflow/backend/internal/flow"
	"focusflow/backend/internal/model"
	"focusflow/backend/internal/repository"
	"focusflow/backend/internal/session"
	"focusflow/backend/internal/stats"
)

// TimerService owns every mutation of a user's timer state. Each command runs
// the same dance: open a transaction, load and rehydrate the state row,
// reconcile an expired running session against the wall clock, check the
// client's base version, apply the operation, persist, commit, then publish
// the collected events.
type TimerService struct {
	states  *repository.StateRepository
	records *repository.RecordStore
	flows   *repository.FlowRepository
	bus     *event.Bus
	clk     clock.Clock
}

// StateView is the JSON shape every timer endpoint answers with. Remaining
// seconds are computed against ServerTime, so clients can render immediately
// without trusting their own clock.
type StateView struct {
	UserID     string                 `json:"userId"`
	Session    *SessionView           `json:"session,omitempty"`
	Flow       *FlowView              `json:"flow,omitempty"`
	Durations  model.DurationSettings `json:"durations"`
	Version    int                    `json:"version"`
	UpdatedAt  time.Time              `json:"updatedAt"`
	ServerTime time.Time              `json:"serverTime"`
}

type SessionView struct {
	ID                     string    `json:"id"`
	Type                   string    `json:"sessionType"`
	Status                 string    `json:"status"`
	PlannedDurationSeconds int       `json:"plannedDurationSeconds"`
	RemainingSeconds       int       `json:"remainingSeconds"`
	StartedAt              time.Time `json:"startedAt"`
	LinkedTaskID           string    `json:"linkedTaskId,omitempty"`
}

type FlowView struct {
	RunID              string `json:"runId"`
	FlowID             string `json:"flowId"`
	FlowName           string `json:"flowName"`
	Status             string `json:"status"`
	CurrentStepIndex   int    `json:"currentStepIndex"`
	CompletedStepCount int    `json:"completedStepCount"`
	StepsTotal         int    `json:"stepsTotal"`
}

type StartInput struct {
	BaseVersion            int
	SessionType            session.Type
	PlannedDurationSeconds int
	LinkedTaskID           string
}

type UpdateSettingsInput struct {
	BaseVersion int
	Durations   model.DurationSettings
}

// timerContext carries one command's working set: the loaded state row, the
// rehydrated machine and orchestrator, and the events to publish after commit.
type timerContext struct {
	state       *model.TimerState
	machine     *session.Machine
	orch        *flow.Orchestrator
	events      []event.Event
	completions int
}

func NewTimerService(
	states *repository.StateRepository,
	records *repository.RecordStore,
	flows *repository.FlowRepository,
	bus *event.Bus,
	clk clock.Clock,
) *TimerService {
	return &TimerService{
		states:  states,
		records: records,
		flows:   flows,
		bus:     bus,
		clk:     clk,
	}
}

// GetState reconciles and returns the user's timer state. A running session
// whose planned duration elapsed while the app was suspended is completed
// here, and an active flow run moves on to its next step, before the view is
// built.
func (s *TimerService) GetState(ctx context.Context, userID string) (*StateView, *apperrors.APIError) {
	now := s.clk.Now().UTC()
	tx, err := s.states.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	tc, apiErr := s.getStateForUpdate(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, apiErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Internal("failed to commit transaction")
	}
	s.publishEvents(ctx, tc)

	view := s.toStateView(tc, now)
	return &view, nil
}

// Start begins a standalone session. The planned duration falls back to the
// user's configured default for the type when the client sends none.
func (s *TimerService) Start(ctx context.Context, userID string, input StartInput) (*StateView, *apperrors.APIError) {
	now := s.clk.Now().UTC()
	tx, err := s.states.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	tc, apiErr := s.getStateForUpdate(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := s.ensureVersion(input.BaseVersion, tc, now); apiErr != nil {
		return nil, apiErr
	}

	if tc.orch.Run() != nil {
		return nil, apperrors.Conflict("flow_conflict", "a flow run is in progress", nil)
	}

	planned := input.PlannedDurationSeconds
	if planned <= 0 {
		planned = tc.state.Durations.For(input.SessionType)
	}
	inst, startErr := tc.machine.Start(input.SessionType, planned, input.LinkedTaskID)
	if startErr != nil {
		return nil, toAPIError(startErr)
	}
	tc.events = append(tc.events, event.SessionStarted{
		UserID:                 userID,
		SessionID:              inst.ID,
		SessionType:            inst.Type,
		PlannedDurationSeconds: inst.PlannedDurationSeconds,
		LinkedTaskID:           inst.LinkedTaskID,
	})

	return s.persistAndRespond(ctx, tx, tc, now)
}

// Pause suspends the running session. Inside a flow run it suspends the run
// as a whole.
func (s *TimerService) Pause(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	now := s.clk.Now().UTC()
	tx, err := s.states.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	tc, apiErr := s.getStateForUpdate(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := s.ensureVersion(baseVersion, tc, now); apiErr != nil {
		return nil, apiErr
	}

	if tc.orch.Run() != nil {
		if _, pauseErr := tc.orch.Pause(); pauseErr != nil {
			return nil, toAPIError(pauseErr)
		}
	} else if _, pauseErr := tc.machine.Pause(); pauseErr != nil {
		return nil, toAPIError(pauseErr)
	}

	return s.persistAndRespond(ctx, tx, tc, now)
}

// Resume continues a paused session. Inside a flow run it also restarts the
// current step when the previous attempt was cancelled.
func (s *TimerService) Resume(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	now := s.clk.Now().UTC()
	tx, err := s.states.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	tc, apiErr := s.getStateForUpdate(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := s.ensureVersion(baseVersion, tc, now); apiErr != nil {
		return nil, apiErr
	}

	if tc.orch.Run() != nil {
		if apiErr := s.continueFlowStep(tc); apiErr != nil {
			return nil, apiErr
		}
	} else if _, resumeErr := tc.machine.Resume(); resumeErr != nil {
		return nil, toAPIError(resumeErr)
	}

	return s.persistAndRespond(ctx, tx, tc, now)
}

// Complete finishes the running or paused session and appends its record.
// Inside a flow run the completed step advances the run.
func (s *TimerService) Complete(ctx context.Context, userID string, baseVersion int, focusQuality *int) (*StateView, *apperrors.APIError) {
	now := s.clk.Now().UTC()
	tx, err := s.states.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	tc, apiErr := s.getStateForUpdate(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := s.ensureVersion(baseVersion, tc, now); apiErr != nil {
		return nil, apiErr
	}

	record, completeErr := tc.machine.Complete(focusQuality)
	if completeErr != nil {
		return nil, toAPIError(completeErr)
	}
	if err := s.records.InsertSessionRecordTx(ctx, tx, userID, record); err != nil {
		return nil, apperrors.Internal("failed to record session")
	}
	tc.events = append(tc.events, event.SessionCompleted{UserID: userID, Record: *record})
	tc.completions++

	if tc.orch.Run() != nil {
		if apiErr := s.advanceFlow(ctx, tx, tc); apiErr != nil {
			return nil, apiErr
		}
	}

	return s.persistAndRespond(ctx, tx, tc, now)
}

// Cancel abandons the running or paused session and appends its record. A
// flow run stays at the current step; Resume or flow continue restarts it.
func (s *TimerService) Cancel(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	now := s.clk.Now().UTC()
	tx, err := s.states.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	tc, apiErr := s.getStateForUpdate(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := s.ensureVersion(baseVersion, tc, now); apiErr != nil {
		return nil, apiErr
	}

	record, cancelErr := tc.machine.Cancel()
	if cancelErr != nil {
		return nil, toAPIError(cancelErr)
	}
	if err := s.records.InsertSessionRecordTx(ctx, tx, userID, record); err != nil {
		return nil, apperrors.Internal("failed to record session")
	}
	tc.events = append(tc.events, event.SessionCancelled{UserID: userID, Record: *record})

	return s.persistAndRespond(ctx, tx, tc, now)
}

// SwitchTask reassigns the linked task of the active session without touching
// its timing. An empty id detaches the task.
func (s *TimerService) SwitchTask(ctx context.Context, userID string, baseVersion int, linkedTaskID string) (*StateView, *apperrors.APIError) {
	now := s.clk.Now().UTC()
	tx, err := s.states.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	tc, apiErr := s.getStateForUpdate(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := s.ensureVersion(baseVersion, tc, now); apiErr != nil {
		return nil, apiErr
	}

	if _, switchErr := tc.machine.SwitchTask(linkedTaskID); switchErr != nil {
		return nil, toAPIError(switchErr)
	}

	return s.persistAndRespond(ctx, tx, tc, now)
}

// UpdateSettings replaces the user's per-type default durations. The active
// session, if any, keeps the planned duration it started with.
func (s *TimerService) UpdateSettings(ctx context.Context, userID string, input UpdateSettingsInput) (*StateView, *apperrors.APIError) {
	if !input.Durations.Positive() {
		return nil, apperrors.BadRequest("invalid_duration", "all durations must be positive seconds")
	}

	now := s.clk.Now().UTC()
	tx, err := s.states.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	tc, apiErr := s.getStateForUpdate(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := s.ensureVersion(input.BaseVersion, tc, now); apiErr != nil {
		return nil, apiErr
	}

	tc.state.Durations = input.Durations

	return s.persistAndRespond(ctx, tx, tc, now)
}

// StartFlow begins a run of the named definition at its first step.
func (s *TimerService) StartFlow(ctx context.Context, userID string, baseVersion int, flowID string) (*StateView, *apperrors.APIError) {
	now := s.clk.Now().UTC()
	tx, err := s.states.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	tc, apiErr := s.getStateForUpdate(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := s.ensureVersion(baseVersion, tc, now); apiErr != nil {
		return nil, apiErr
	}

	def, defErr := s.flows.GetByIDTx(ctx, tx, userID, flowID)
	if errors.Is(defErr, repository.ErrNotFound) {
		return nil, apperrors.NotFound("flow_not_found", "flow not found")
	}
	if defErr != nil {
		return nil, apperrors.Internal("failed to load flow definition")
	}

	_, inst, startErr := tc.orch.Start(def)
	if startErr != nil {
		return nil, toAPIError(startErr)
	}
	tc.events = append(tc.events, event.SessionStarted{
		UserID:                 userID,
		SessionID:              inst.ID,
		SessionType:            inst.Type,
		PlannedDurationSeconds: inst.PlannedDurationSeconds,
	})

	return s.persistAndRespond(ctx, tx, tc, now)
}

// PauseFlow suspends the active run and its current step session.
func (s *TimerService) PauseFlow(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	now := s.clk.Now().UTC()
	tx, err := s.states.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	tc, apiErr := s.getStateForUpdate(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := s.ensureVersion(baseVersion, tc, now); apiErr != nil {
		return nil, apiErr
	}

	if _, pauseErr := tc.orch.Pause(); pauseErr != nil {
		return nil, toAPIError(pauseErr)
	}

	return s.persistAndRespond(ctx, tx, tc, now)
}

// ContinueFlow resumes a paused run, restarting the current step when its
// session was cancelled.
func (s *TimerService) ContinueFlow(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	now := s.clk.Now().UTC()
	tx, err := s.states.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	tc, apiErr := s.getStateForUpdate(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := s.ensureVersion(baseVersion, tc, now); apiErr != nil {
		return nil, apiErr
	}

	if apiErr := s.continueFlowStep(tc); apiErr != nil {
		return nil, apiErr
	}

	return s.persistAndRespond(ctx, tx, tc, now)
}

// EndFlow abandons the active run. An in-flight step session is cancelled and
// recorded, and the run's unsuccessful completion record is appended.
func (s *TimerService) EndFlow(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	now := s.clk.Now().UTC()
	tx, err := s.states.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	tc, apiErr := s.getStateForUpdate(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, apiErr
	}
	if apiErr := s.ensureVersion(baseVersion, tc, now); apiErr != nil {
		return nil, apiErr
	}

	sessionRecord, flowRecord, endErr := tc.orch.End()
	if endErr != nil {
		return nil, toAPIError(endErr)
	}
	if sessionRecord != nil {
		if err := s.records.InsertSessionRecordTx(ctx, tx, userID, sessionRecord); err != nil {
			return nil, apperrors.Internal("failed to record session")
		}
		tc.events = append(tc.events, event.SessionCancelled{UserID: userID, Record: *sessionRecord})
	}
	if err := s.records.InsertFlowRecordTx(ctx, tx, userID, flowRecord); err != nil {
		return nil, apperrors.Internal("failed to record flow")
	}
	tc.events = append(tc.events, event.FlowEnded{UserID: userID, Record: *flowRecord})

	return s.persistAndRespond(ctx, tx, tc, now)
}

// SessionHistory lists session records, newest first, or the records inside
// [from, to] oldest first when both bounds are given.
func (s *TimerService) SessionHistory(ctx context.Context, userID string, limit int, from, to *time.Time) ([]session.Record, *apperrors.APIError) {
	if from != nil && to != nil {
		records, err := s.records.ListSessionRecordsRange(ctx, userID, *from, *to)
		if err != nil {
			return nil, apperrors.Internal("failed to get history")
		}
		return records, nil
	}
	if from != nil || to != nil {
		return nil, apperrors.BadRequest("invalid_range", "from and to must be supplied together")
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	records, err := s.records.ListSessionRecords(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to get history")
	}
	return records, nil
}

// FlowHistory lists flow completion records, newest first.
func (s *TimerService) FlowHistory(ctx context.Context, userID string, limit int) ([]flow.CompletionRecord, *apperrors.APIError) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	records, err := s.records.ListFlowRecords(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to get history")
	}
	return records, nil
}

// getStateForUpdate loads the state row, rehydrates the session machine and
// flow orchestrator, and reconciles an expired running session before the
// command proper looks at anything.
func (s *TimerService) getStateForUpdate(ctx context.Context, tx *sql.Tx, userID string, now time.Time) (*timerContext, *apperrors.APIError) {
	state, err := s.states.GetStateTx(ctx, tx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("state_not_found", "timer state not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get state")
	}

	tc := &timerContext{state: state, machine: session.NewMachine(s.clk)}
	if err := tc.machine.Restore(state.Active); err != nil {
		return nil, apperrors.Internal("failed to restore session")
	}
	tc.orch = flow.NewOrchestrator(s.clk, tc.machine)
	if state.Run != nil {
		def, defErr := s.flows.GetByIDTx(ctx, tx, userID, state.Run.FlowID)
		if defErr != nil {
			return nil, apperrors.Internal("failed to load flow definition")
		}
		if restoreErr := tc.orch.Restore(def, state.Run); restoreErr != nil {
			return nil, apperrors.Internal("failed to restore flow run")
		}
	}

	if apiErr := s.normalizeExpiredSession(ctx, tx, tc, now); apiErr != nil {
		return nil, apiErr
	}
	return tc, nil
}

// normalizeExpiredSession completes a running session whose remaining time
// reached zero while nobody was looking, records it, and advances an active
// flow run one step. The next step starts at now, with its full duration, so
// a long suspension never burns through more than one step.
func (s *TimerService) normalizeExpiredSession(ctx context.Context, tx *sql.Tx, tc *timerContext, now time.Time) *apperrors.APIError {
	inst := tc.machine.Active()
	if inst == nil || inst.Status != session.StatusRunning || tc.machine.Remaining() > 0 {
		return nil
	}

	record, err := tc.machine.Complete(nil)
	if err != nil {
		return apperrors.Internal("failed to close expired session")
	}
	if err := s.records.InsertSessionRecordTx(ctx, tx, tc.state.UserID, record); err != nil {
		return apperrors.Internal("failed to record session")
	}
	tc.events = append(tc.events, event.SessionCompleted{UserID: tc.state.UserID, Record: *record})
	tc.completions++

	if run := tc.orch.Run(); run != nil && run.Status == flow.RunActive {
		if apiErr := s.advanceFlow(ctx, tx, tc); apiErr != nil {
			return apiErr
		}
	}

	return s.persist(ctx, tx, tc, now)
}

// advanceFlow moves the run past its just-completed step: either the next
// step's session starts, or the run finishes and its record is appended.
func (s *TimerService) advanceFlow(ctx context.Context, tx *sql.Tx, tc *timerContext) *apperrors.APIError {
	def := tc.orch.Definition()
	runID := tc.orch.Run().ID

	next, flowRecord, err := tc.orch.Advance()
	if err != nil {
		return apperrors.Internal("failed to advance flow")
	}

	if flowRecord != nil {
		if err := s.records.InsertFlowRecordTx(ctx, tx, tc.state.UserID, flowRecord); err != nil {
			return apperrors.Internal("failed to record flow")
		}
		tc.events = append(tc.events, event.FlowCompleted{UserID: tc.state.UserID, Record: *flowRecord})
		return nil
	}

	tc.events = append(tc.events,
		event.FlowStepAdvanced{
			UserID:     tc.state.UserID,
			RunID:      runID,
			FlowID:     def.ID,
			StepIndex:  tc.orch.Run().CurrentStepIndex,
			StepsTotal: len(def.Steps),
			StepType:   next.Type,
		},
		event.SessionStarted{
			UserID:                 tc.state.UserID,
			SessionID:              next.ID,
			SessionType:            next.Type,
			PlannedDurationSeconds: next.PlannedDurationSeconds,
		},
	)
	return nil
}

// continueFlowStep resumes the paused step session or starts the current step
// fresh, emitting a start event only when a new instance begins.
func (s *TimerService) continueFlowStep(tc *timerContext) *apperrors.APIError {
	hadSession := tc.machine.Active() != nil
	inst, err := tc.orch.Continue()
	if err != nil {
		return toAPIError(err)
	}
	if !hadSession {
		tc.events = append(tc.events, event.SessionStarted{
			UserID:                 tc.state.UserID,
			SessionID:              inst.ID,
			SessionType:            inst.Type,
			PlannedDurationSeconds: inst.PlannedDurationSeconds,
		})
	}
	return nil
}

func (s *TimerService) ensureVersion(baseVersion int, tc *timerContext, now time.Time) *apperrors.APIError {
	if baseVersion <= 0 || baseVersion == tc.state.Version {
		return nil
	}
	return apperrors.ConflictWithState(s.toStateView(tc, now))
}

// persist snapshots the machine and orchestrator back into the state row and
// bumps the version.
func (s *TimerService) persist(ctx context.Context, tx *sql.Tx, tc *timerContext, now time.Time) *apperrors.APIError {
	tc.state.Active = tc.machine.Active()
	tc.state.Run = tc.orch.Run()
	tc.state.UpdatedAt = now
	tc.state.Version++
	if err := s.states.UpdateStateTx(ctx, tx, tc.state); err != nil {
		return apperrors.Internal("failed to update state")
	}
	return nil
}

func (s *TimerService) persistAndRespond(ctx context.Context, tx *sql.Tx, tc *timerContext, now time.Time) (*StateView, *apperrors.APIError) {
	if apiErr := s.persist(ctx, tx, tc, now); apiErr != nil {
		return nil, apiErr
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Internal("failed to commit transaction")
	}
	s.publishEvents(ctx, tc)

	view := s.toStateView(tc, now)
	return &view, nil
}

// publishEvents fires the command's events once the transaction is durable,
// then checks whether the completions pushed the streak onto a milestone.
func (s *TimerService) publishEvents(ctx context.Context, tc *timerContext) {
	for _, ev := range tc.events {
		s.bus.Publish(ev)
	}
	s.checkStreakMilestone(ctx, tc.state.UserID, tc.completions)
}

// checkStreakMilestone publishes StreakMilestone when this command's
// completions landed the first completed session of a UTC day and the
// trailing streak sits exactly on a celebrated threshold. Later completions
// on the same day stay quiet.
func (s *TimerService) checkStreakMilestone(ctx context.Context, userID string, inserted int) {
	if inserted == 0 {
		return
	}
	records, err := s.records.AllSessionRecords(ctx, userID)
	if err != nil {
		return
	}
	streak := stats.CurrentStreak(records, time.UTC)
	if !event.IsMilestone(streak) {
		return
	}

	var latest time.Time
	for _, r := range records {
		if r.Completed && r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}
	day := latest.UTC().Format("2006-01-02")
	completions := 0
	for _, r := range records {
		if r.Completed && r.Timestamp.UTC().Format("2006-01-02") == day {
			completions++
		}
	}
	if completions == inserted {
		s.bus.Publish(event.StreakMilestone{UserID: userID, Days: streak})
	}
}

func (s *TimerService) toStateView(tc *timerContext, now time.Time) StateView {
	view := StateView{
		UserID:     tc.state.UserID,
		Durations:  tc.state.Durations,
		Version:    tc.state.Version,
		UpdatedAt:  tc.state.UpdatedAt,
		ServerTime: now,
	}

	if inst := tc.machine.Active(); inst != nil {
		view.Session = &SessionView{
			ID:                     inst.ID,
			Type:                   string(inst.Type),
			Status:                 string(inst.Status),
			PlannedDurationSeconds: inst.PlannedDurationSeconds,
			RemainingSeconds:       inst.RemainingSeconds(now),
			StartedAt:              inst.StartedAt,
			LinkedTaskID:           inst.LinkedTaskID,
		}
	}

	if run := tc.orch.Run(); run != nil {
		def := tc.orch.Definition()
		view.Flow = &FlowView{
			RunID:              run.ID,
			FlowID:             run.FlowID,
			FlowName:           def.Name,
			Status:             string(run.Status),
			CurrentStepIndex:   run.CurrentStepIndex,
			CompletedStepCount: run.CompletedStepCount,
			StepsTotal:         len(def.Steps),
		}
	}

	return view
}

// toAPIError maps the core packages' sentinel errors onto HTTP error codes.
func toAPIError(err error) *apperrors.APIError {
	switch {
	case errors.Is(err, session.ErrSessionConflict):
		return apperrors.Conflict("session_conflict", err.Error(), nil)
	case errors.Is(err, flow.ErrFlowConflict):
		return apperrors.Conflict("flow_conflict", err.Error(), nil)
	case errors.Is(err, flow.ErrNoActiveFlow):
		return apperrors.Conflict("no_active_flow", err.Error(), nil)
	case errors.Is(err, flow.ErrReadonlyDefinition):
		return apperrors.Conflict("readonly_flow", err.Error(), nil)
	case errors.Is(err, session.ErrInvalidState):
		return apperrors.Conflict("invalid_state", err.Error(), nil)
	case errors.Is(err, session.ErrUnknownType):
		return apperrors.BadRequest("invalid_session_type", err.Error())
	case errors.Is(err, session.ErrInvalidRating):
		return apperrors.BadRequest("invalid_rating", err.Error())
	case errors.Is(err, flow.ErrEmptyDefinition), errors.Is(err, flow.ErrInvalidStep):
		return apperrors.BadRequest("invalid_flow", err.Error())
	default:
		return apperrors.Internal("operation failed")
	}
}
