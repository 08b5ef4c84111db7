package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"focusflow/backend/internal/flow"
	"focusflow/backend/internal/session"
)

// RecordStore is the append-only history of finished sessions and flow runs.
// Records never change once written, so the store exposes inserts and reads
// only.
type RecordStore struct {
	db *sql.DB
}

func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

func (r *RecordStore) InsertSessionRecordTx(ctx context.Context, tx *sql.Tx, userID string, record *session.Record) error {
	var focusQuality interface{}
	if record.FocusQuality != nil {
		focusQuality = *record.FocusQuality
	}

	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO session_records (
			id, user_id, session_type, duration_seconds, completed,
			focus_quality, linked_task_id, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		userID,
		string(record.Type),
		record.DurationSeconds,
		boolToInt(record.Completed),
		focusQuality,
		record.LinkedTaskID,
		formatTime(record.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert session record: %w", err)
	}
	return nil
}

func (r *RecordStore) GetSessionRecord(ctx context.Context, userID, id string) (*session.Record, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, session_type, duration_seconds, completed, focus_quality,
		        linked_task_id, recorded_at
		 FROM session_records
		 WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	return scanSessionRecord(row)
}

// ListSessionRecords returns the newest records first, capped at limit.
func (r *RecordStore) ListSessionRecords(ctx context.Context, userID string, limit int) ([]session.Record, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, session_type, duration_seconds, completed, focus_quality,
		        linked_task_id, recorded_at
		 FROM session_records
		 WHERE user_id = ?
		 ORDER BY recorded_at DESC
		 LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list session records: %w", err)
	}
	return collectSessionRecords(rows)
}

// ListSessionRecordsRange returns records in [from, to], oldest first.
func (r *RecordStore) ListSessionRecordsRange(ctx context.Context, userID string, from, to time.Time) ([]session.Record, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, session_type, duration_seconds, completed, focus_quality,
		        linked_task_id, recorded_at
		 FROM session_records
		 WHERE user_id = ? AND recorded_at >= ? AND recorded_at <= ?
		 ORDER BY recorded_at ASC`,
		userID,
		formatTime(from),
		formatTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list session records range: %w", err)
	}
	return collectSessionRecords(rows)
}

// AllSessionRecords returns the user's full history, oldest first. Streak
// and recommendation math needs the whole timeline.
func (r *RecordStore) AllSessionRecords(ctx context.Context, userID string) ([]session.Record, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, session_type, duration_seconds, completed, focus_quality,
		        linked_task_id, recorded_at
		 FROM session_records
		 WHERE user_id = ?
		 ORDER BY recorded_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list all session records: %w", err)
	}
	return collectSessionRecords(rows)
}

// ListSessionRecordsByType returns every record of one session type, oldest
// first.
func (r *RecordStore) ListSessionRecordsByType(ctx context.Context, userID string, t session.Type) ([]session.Record, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, session_type, duration_seconds, completed, focus_quality,
		        linked_task_id, recorded_at
		 FROM session_records
		 WHERE user_id = ? AND session_type = ?
		 ORDER BY recorded_at ASC`,
		userID,
		string(t),
	)
	if err != nil {
		return nil, fmt.Errorf("list session records by type: %w", err)
	}
	return collectSessionRecords(rows)
}

func (r *RecordStore) InsertFlowRecordTx(ctx context.Context, tx *sql.Tx, userID string, record *flow.CompletionRecord) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO flow_records (
			id, user_id, flow_id, steps_total, steps_completed, success, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		userID,
		record.FlowID,
		record.StepsTotal,
		record.StepsCompleted,
		boolToInt(record.Success),
		formatTime(record.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert flow record: %w", err)
	}
	return nil
}

// ListFlowRecords returns the newest flow outcomes first, capped at limit.
func (r *RecordStore) ListFlowRecords(ctx context.Context, userID string, limit int) ([]flow.CompletionRecord, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, flow_id, steps_total, steps_completed, success, completed_at
		 FROM flow_records
		 WHERE user_id = ?
		 ORDER BY completed_at DESC
		 LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list flow records: %w", err)
	}
	defer rows.Close()

	records := make([]flow.CompletionRecord, 0, limit)
	for rows.Next() {
		var record flow.CompletionRecord
		var success int
		var completedAt string
		if err := rows.Scan(
			&record.ID,
			&record.FlowID,
			&record.StepsTotal,
			&record.StepsCompleted,
			&success,
			&completedAt,
		); err != nil {
			return nil, fmt.Errorf("scan flow record: %w", err)
		}
		record.Success = success != 0
		parsed, parseErr := parseTime(completedAt)
		if parseErr != nil {
			return nil, fmt.Errorf("parse flow record completed_at: %w", parseErr)
		}
		record.CompletedAt = parsed
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flow records: %w", err)
	}
	return records, nil
}

func collectSessionRecords(rows *sql.Rows) ([]session.Record, error) {
	defer rows.Close()

	records := make([]session.Record, 0, 16)
	for rows.Next() {
		record, err := scanSessionRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session records: %w", err)
	}
	return records, nil
}

func scanSessionRecord(s scanner) (*session.Record, error) {
	var record session.Record
	var sessionType string
	var completed int
	var focusQuality sql.NullInt64
	var recordedAt string

	err := s.Scan(
		&record.ID,
		&sessionType,
		&record.DurationSeconds,
		&completed,
		&focusQuality,
		&record.LinkedTaskID,
		&recordedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session record: %w", err)
	}

	record.Type = session.Type(sessionType)
	record.Completed = completed != 0
	if focusQuality.Valid {
		value := int(focusQuality.Int64)
		record.FocusQuality = &value
	}

	parsed, err := parseTime(recordedAt)
	if err != nil {
		return nil, fmt.Errorf("parse session record recorded_at: %w", err)
	}
	record.Timestamp = parsed

	return &record, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
