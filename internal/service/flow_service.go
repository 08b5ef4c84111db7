package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	apperrors "focusflow/backend/internal/errors"
	"focusflow/backend/internal/flow"
	"focusflow/backend/internal/repository"
)

// FlowService manages flow definitions: the readonly builtin templates and
// the user's own. Run lifecycle lives on TimerService because a run shares
// the timer state row and its version counter.
type FlowService struct {
	flows  *repository.FlowRepository
	states *repository.StateRepository
}

type FlowInput struct {
	Name  string
	Steps []flow.Step
}

func NewFlowService(flows *repository.FlowRepository, states *repository.StateRepository) *FlowService {
	return &FlowService{flows: flows, states: states}
}

// List returns the builtin templates followed by the user's flows.
func (s *FlowService) List(ctx context.Context, userID string) ([]flow.Definition, *apperrors.APIError) {
	defs, err := s.flows.List(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list flows")
	}
	return defs, nil
}

// Get returns one builtin or user-owned definition.
func (s *FlowService) Get(ctx context.Context, userID, id string) (*flow.Definition, *apperrors.APIError) {
	def, err := s.flows.GetByID(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("flow_not_found", "flow not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get flow")
	}
	return def, nil
}

// Create stores a new user-owned definition.
func (s *FlowService) Create(ctx context.Context, userID string, input FlowInput) (*flow.Definition, *apperrors.APIError) {
	def := &flow.Definition{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(input.Name),
		Steps: input.Steps,
	}
	if def.Name == "" {
		return nil, apperrors.BadRequest("invalid_flow", "flow name is required")
	}
	if err := def.Validate(); err != nil {
		return nil, toAPIError(err)
	}

	if err := s.flows.Create(ctx, userID, def); err != nil {
		return nil, apperrors.Internal("failed to create flow")
	}
	return def, nil
}

// Update rewrites a user-owned definition. Builtins are readonly and a
// definition with an active run cannot change under it.
func (s *FlowService) Update(ctx context.Context, userID, id string, input FlowInput) (*flow.Definition, *apperrors.APIError) {
	def := &flow.Definition{
		ID:    id,
		Name:  strings.TrimSpace(input.Name),
		Steps: input.Steps,
	}
	if def.Name == "" {
		return nil, apperrors.BadRequest("invalid_flow", "flow name is required")
	}
	if err := def.Validate(); err != nil {
		return nil, toAPIError(err)
	}

	existing, apiErr := s.Get(ctx, userID, id)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := existing.EnsureEditable(); err != nil {
		return nil, toAPIError(err)
	}

	tx, err := s.states.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	if apiErr := s.ensureNotRunning(ctx, tx, userID, id); apiErr != nil {
		return nil, apiErr
	}
	if err := s.flows.UpdateTx(ctx, tx, userID, def); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("flow_not_found", "flow not found")
		}
		return nil, apperrors.Internal("failed to update flow")
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Internal("failed to commit transaction")
	}
	return def, nil
}

// Delete removes a user-owned definition under the same guards as Update.
func (s *FlowService) Delete(ctx context.Context, userID, id string) *apperrors.APIError {
	existing, apiErr := s.Get(ctx, userID, id)
	if apiErr != nil {
		return apiErr
	}
	if err := existing.EnsureEditable(); err != nil {
		return toAPIError(err)
	}

	tx, err := s.states.BeginTx(ctx)
	if err != nil {
		return apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	if apiErr := s.ensureNotRunning(ctx, tx, userID, id); apiErr != nil {
		return apiErr
	}
	if err := s.flows.DeleteTx(ctx, tx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("flow_not_found", "flow not found")
		}
		return apperrors.Internal("failed to delete flow")
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return apperrors.Internal("failed to commit transaction")
	}
	return nil
}

// ensureNotRunning blocks writes against a definition the user's current run
// points at; the persisted run would desync from its steps otherwise.
func (s *FlowService) ensureNotRunning(ctx context.Context, tx *sql.Tx, userID, id string) *apperrors.APIError {
	state, err := s.states.GetStateTx(ctx, tx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Internal("failed to get state")
	}
	if state.Run != nil && state.Run.FlowID == id {
		return apperrors.Conflict("flow_in_use", "flow has an active run", nil)
	}
	return nil
}
