package convo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"coupon-bot/internal/repo"
)

// Store persists one state row per user.
type Store interface {
	GetState(ctx context.Context, userID int64) (*repo.StateRecord, error)
	PutState(ctx context.Context, userID int64, step, payload string) error
	DeleteState(ctx context.Context, userID int64) error
}

// Machine reads and writes the typed conversation state of users.
type Machine struct {
	store  Store
	logger *slog.Logger
}

// NewMachine constructs a state machine over the given store.
func NewMachine(store Store, logger *slog.Logger) *Machine {
	return &Machine{store: store, logger: logger.With("component", "convo")}
}

// Get returns the user's active state, or nil when the user is idle. A
// stored step that cannot be decoded is cleared and reported as idle.
func (m *Machine) Get(ctx context.Context, userID int64) (State, error) {
	rec, err := m.store.GetState(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	state, err := Decode(Step(rec.Step), rec.Payload)
	if err != nil {
		m.logger.Warn("discarding unreadable state", "user_id", userID, "step", rec.Step, "error", err)
		if clearErr := m.Clear(ctx, userID); clearErr != nil {
			return nil, clearErr
		}
		return nil, nil
	}
	return state, nil
}

// Set replaces the user's state.
func (m *Machine) Set(ctx context.Context, userID int64, s State) error {
	step, payload, err := Encode(s)
	if err != nil {
		return err
	}
	if err := m.store.PutState(ctx, userID, string(step), payload); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

// Clear returns the user to idle.
func (m *Machine) Clear(ctx context.Context, userID int64) error {
	if err := m.store.DeleteState(ctx, userID); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}
