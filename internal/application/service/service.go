package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/event"
	"github.com/garyjia/expense-approval/internal/domain/policy"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ErrValidation is returned when a request is malformed or violates a business rule
var ErrValidation = errors.New("validation failed")

// Publisher delivers committed events; satisfied by dispatcher.Dispatcher
type Publisher interface {
	Publish(ctx context.Context, events []*event.Event)
}

// userReader is the slice of port.UserRepository every service needs to identify the caller
type userReader interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// loadActor resolves the calling user and checks the capability
func loadActor(ctx context.Context, users userReader, actorID string, capability policy.Capability) (*entity.User, error) {
	if actorID == "" {
		return nil, fmt.Errorf("%w: missing caller identity", policy.ErrForbidden)
	}
	actor, err := users.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if actor == nil {
		return nil, fmt.Errorf("%w: user %s", approval.ErrNotFound, actorID)
	}
	if err := policy.Require(actor.Role, capability); err != nil {
		return nil, err
	}
	return actor, nil
}
