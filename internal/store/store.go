package store

import (
	"context"
	"errors"

	"hashpaste/internal/model"
)

// ErrNotFound is returned when a paste doesn't exist or has expired.
var ErrNotFound = errors.New("paste not found")

// Store persists pastes. Implementations are safe for concurrent use.
type Store interface {
	// Create stores p under p.ID unless that id is taken.
	// It reports false, without error, on a collision.
	Create(ctx context.Context, p model.Paste) (bool, error)
	// Get returns the paste with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (model.Paste, error)
	// Count returns the number of live pastes.
	Count(ctx context.Context) (int, error)
	Close() error
}
