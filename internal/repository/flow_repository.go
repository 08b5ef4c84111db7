package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"focusflow/backend/internal/flow"
)

// FlowRepository persists flow definitions. Steps are stored as a JSON
// array in a TEXT column. Builtin templates have a NULL user_id and are
// visible to everyone; update and delete statements exclude them.
type FlowRepository struct {
	db *sql.DB
}

func NewFlowRepository(db *sql.DB) *FlowRepository {
	return &FlowRepository{db: db}
}

func (r *FlowRepository) Create(ctx context.Context, userID string, def *flow.Definition) error {
	steps, err := json.Marshal(def.Steps)
	if err != nil {
		return fmt.Errorf("encode flow steps: %w", err)
	}

	now := formatTime(time.Now())
	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO flow_definitions (id, user_id, name, builtin, steps, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		def.ID,
		userID,
		def.Name,
		boolToInt(def.Builtin),
		string(steps),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("create flow definition: %w", err)
	}
	return nil
}

const flowDefinitionByID = `SELECT id, name, builtin, steps
 FROM flow_definitions
 WHERE id = ? AND (builtin = 1 OR user_id = ?)`

// GetByID returns a builtin definition or one owned by the user.
func (r *FlowRepository) GetByID(ctx context.Context, userID, id string) (*flow.Definition, error) {
	row := r.db.QueryRowContext(ctx, flowDefinitionByID, id, userID)
	return scanFlowDefinition(row)
}

// GetByIDTx is GetByID inside an open transaction.
func (r *FlowRepository) GetByIDTx(ctx context.Context, tx *sql.Tx, userID, id string) (*flow.Definition, error) {
	row := tx.QueryRowContext(ctx, flowDefinitionByID, id, userID)
	return scanFlowDefinition(row)
}

// List returns the builtin templates followed by the user's own flows.
func (r *FlowRepository) List(ctx context.Context, userID string) ([]flow.Definition, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, name, builtin, steps
		 FROM flow_definitions
		 WHERE builtin = 1 OR user_id = ?
		 ORDER BY builtin DESC, name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list flow definitions: %w", err)
	}
	defer rows.Close()

	defs := make([]flow.Definition, 0, 8)
	for rows.Next() {
		def, scanErr := scanFlowDefinition(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		defs = append(defs, *def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flow definitions: %w", err)
	}
	return defs, nil
}

// UpdateTx rewrites a user-owned definition. Builtin rows never match, so
// callers see ErrNotFound when they try to edit one.
func (r *FlowRepository) UpdateTx(ctx context.Context, tx *sql.Tx, userID string, def *flow.Definition) error {
	steps, err := json.Marshal(def.Steps)
	if err != nil {
		return fmt.Errorf("encode flow steps: %w", err)
	}

	result, err := tx.ExecContext(
		ctx,
		`UPDATE flow_definitions
		 SET name = ?, steps = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND builtin = 0`,
		def.Name,
		string(steps),
		formatTime(time.Now()),
		def.ID,
		userID,
	)
	if err != nil {
		return fmt.Errorf("update flow definition: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update flow definition: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTx removes a user-owned definition. Builtin rows never match.
func (r *FlowRepository) DeleteTx(ctx context.Context, tx *sql.Tx, userID, id string) error {
	result, err := tx.ExecContext(
		ctx,
		`DELETE FROM flow_definitions WHERE id = ? AND user_id = ? AND builtin = 0`,
		id,
		userID,
	)
	if err != nil {
		return fmt.Errorf("delete flow definition: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete flow definition: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanFlowDefinition(s scanner) (*flow.Definition, error) {
	var def flow.Definition
	var builtin int
	var steps string

	err := s.Scan(&def.ID, &def.Name, &builtin, &steps)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan flow definition: %w", err)
	}

	def.Builtin = builtin != 0
	if err := json.Unmarshal([]byte(steps), &def.Steps); err != nil {
		return nil, fmt.Errorf("decode flow steps for %s: %w", def.ID, err)
	}
	return &def, nil
}
