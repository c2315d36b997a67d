package storage

import (
	"context"
	"io"

	"github.com/swapfy/terminal/internal/history"
)

// AttemptCache is the hot path for terminal swap attempts: a capped
// recent list plus live pub/sub fan-out.
type AttemptCache interface {
	// Record stores one terminal attempt and publishes it.
	Record(ctx context.Context, a *history.Attempt) error

	// Recent returns up to limit attempts, newest first.
	Recent(ctx context.Context, limit int64) ([]*history.Attempt, error)

	// Ping checks if the cache is reachable.
	Ping(ctx context.Context) error

	io.Closer
}

// AttemptStore is the durable archive for terminal swap attempts.
type AttemptStore interface {
	// InsertAttempt archives one terminal attempt.
	InsertAttempt(ctx context.Context, a *history.Attempt) error

	// Ping checks if the store is reachable.
	Ping(ctx context.Context) error

	io.Closer
}
