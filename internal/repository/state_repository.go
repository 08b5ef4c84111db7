package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"focusflow/backend/internal/flow"
	"focusflow/backend/internal/model"
	"focusflow/backend/internal/session"
)

const timerStateColumns = `user_id, version, updated_at,
	        session_id, session_type, session_planned_seconds, session_status,
	        session_started_at, session_paused_ns, session_pause_started_at,
	        session_linked_task_id,
	        flow_run_id, flow_id, flow_step_index, flow_completed_steps, flow_status,
	        classic_seconds, deep_focus_seconds, quick_task_seconds,
	        short_break_seconds, long_break_seconds`

// StateRepository persists one timer_states row per user: the active session
// instance and flow run flattened into nullable columns, plus settings and
// the optimistic concurrency version.
type StateRepository struct {
	db *sql.DB
}

func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

func (r *StateRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

func (r *StateRepository) CreateInitialState(ctx context.Context, userID string) error {
	defaults := model.DefaultDurationSettings()
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO timer_states (
			user_id, version, updated_at,
			classic_seconds, deep_focus_seconds, quick_task_seconds,
			short_break_seconds, long_break_seconds
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID,
		1,
		formatTime(time.Now()),
		defaults.ClassicSeconds,
		defaults.DeepFocusSeconds,
		defaults.QuickTaskSeconds,
		defaults.ShortBreakSeconds,
		defaults.LongBreakSeconds,
	)
	if err != nil {
		return fmt.Errorf("create initial state: %w", err)
	}
	return nil
}

func (r *StateRepository) GetState(ctx context.Context, userID string) (*model.TimerState, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+timerStateColumns+` FROM timer_states WHERE user_id = ?`,
		userID,
	)
	return scanTimerState(row)
}

func (r *StateRepository) GetStateTx(ctx context.Context, tx *sql.Tx, userID string) (*model.TimerState, error) {
	row := tx.QueryRowContext(
		ctx,
		`SELECT `+timerStateColumns+` FROM timer_states WHERE user_id = ?`,
		userID,
	)
	return scanTimerState(row)
}

func (r *StateRepository) UpdateStateTx(ctx context.Context, tx *sql.Tx, state *model.TimerState) error {
	var (
		sessionID, sessionType, sessionStatus interface{}
		sessionPlanned, sessionPaused         interface{}
		sessionStartedAt, pauseStartedAt      interface{}
		linkedTaskID                          interface{}
	)
	if inst := state.Active; inst != nil {
		sessionID = inst.ID
		sessionType = string(inst.Type)
		sessionPlanned = inst.PlannedDurationSeconds
		sessionStatus = string(inst.Status)
		sessionStartedAt = formatTime(inst.StartedAt)
		sessionPaused = int64(inst.PausedAccumulated)
		pauseStartedAt = formatTimePtr(inst.PauseStartedAt)
		linkedTaskID = inst.LinkedTaskID
	}

	var (
		flowRunID, flowID, flowStatus interface{}
		flowStepIndex, flowCompleted  interface{}
	)
	if run := state.Run; run != nil {
		flowRunID = run.ID
		flowID = run.FlowID
		flowStepIndex = run.CurrentStepIndex
		flowCompleted = run.CompletedStepCount
		flowStatus = string(run.Status)
	}

	_, err := tx.ExecContext(
		ctx,
		`UPDATE timer_states
		 SET version = ?,
		     updated_at = ?,
		     session_id = ?,
		     session_type = ?,
		     session_planned_seconds = ?,
		     session_status = ?,
		     session_started_at = ?,
		     session_paused_ns = ?,
		     session_pause_started_at = ?,
		     session_linked_task_id = ?,
		     flow_run_id = ?,
		     flow_id = ?,
		     flow_step_index = ?,
		     flow_completed_steps = ?,
		     flow_status = ?,
		     classic_seconds = ?,
		     deep_focus_seconds = ?,
		     quick_task_seconds = ?,
		     short_break_seconds = ?,
		     long_break_seconds = ?
		 WHERE user_id = ?`,
		state.Version,
		formatTime(state.UpdatedAt),
		sessionID,
		sessionType,
		sessionPlanned,
		sessionStatus,
		sessionStartedAt,
		sessionPaused,
		pauseStartedAt,
		linkedTaskID,
		flowRunID,
		flowID,
		flowStepIndex,
		flowCompleted,
		flowStatus,
		state.Durations.ClassicSeconds,
		state.Durations.DeepFocusSeconds,
		state.Durations.QuickTaskSeconds,
		state.Durations.ShortBreakSeconds,
		state.Durations.LongBreakSeconds,
		state.UserID,
	)
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	return nil
}

func scanTimerState(s scanner) (*model.TimerState, error) {
	state := model.TimerState{}
	var (
		updatedAt string

		sessionID, sessionType, sessionStatus    sql.NullString
		sessionStartedAt, pauseStartedAt, taskID sql.NullString
		sessionPlanned, sessionPaused            sql.NullInt64

		flowRunID, flowID, flowStatus sql.NullString
		flowStepIndex, flowCompleted  sql.NullInt64
	)

	err := s.Scan(
		&state.UserID,
		&state.Version,
		&updatedAt,
		&sessionID,
		&sessionType,
		&sessionPlanned,
		&sessionStatus,
		&sessionStartedAt,
		&sessionPaused,
		&pauseStartedAt,
		&taskID,
		&flowRunID,
		&flowID,
		&flowStepIndex,
		&flowCompleted,
		&flowStatus,
		&state.Durations.ClassicSeconds,
		&state.Durations.DeepFocusSeconds,
		&state.Durations.QuickTaskSeconds,
		&state.Durations.ShortBreakSeconds,
		&state.Durations.LongBreakSeconds,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan state: %w", err)
	}

	parsedUpdatedAt, parseErr := parseTime(updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parse state updated_at: %w", parseErr)
	}
	state.UpdatedAt = parsedUpdatedAt

	if sessionID.Valid {
		inst := session.Instance{
			ID:                     sessionID.String,
			Type:                   session.Type(sessionType.String),
			PlannedDurationSeconds: int(sessionPlanned.Int64),
			Status:                 session.Status(sessionStatus.String),
			PausedAccumulated:      time.Duration(sessionPaused.Int64),
			LinkedTaskID:           taskID.String,
		}
		startedAt, parseErr := parseTime(sessionStartedAt.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse state session_started_at: %w", parseErr)
		}
		inst.StartedAt = startedAt
		if pauseStartedAt.Valid {
			pausedAt, parseErr := parseTime(pauseStartedAt.String)
			if parseErr != nil {
				return nil, fmt.Errorf("parse state session_pause_started_at: %w", parseErr)
			}
			inst.PauseStartedAt = &pausedAt
		}
		state.Active = &inst
	}

	if flowRunID.Valid {
		state.Run = &flow.Run{
			ID:                 flowRunID.String,
			FlowID:             flowID.String,
			CurrentStepIndex:   int(flowStepIndex.Int64),
			CompletedStepCount: int(flowCompleted.Int64),
			Status:             flow.RunStatus(flowStatus.String),
		}
	}

	return &state, nil
}
