// Package repository stores schedule runs and their assignments.
package repository

import (
	"context"

	"github.com/okian/slotmatch/internal/domain/types"
)

// Store provides read/write access to schedule runs.
type Store interface {
	// Save inserts the schedule or replaces the one with the same ID.
	Save(ctx context.Context, s types.Schedule) error

	// Get returns the schedule with id.
	// Returns ErrNotFound if the schedule is unknown.
	Get(ctx context.Context, id string) (types.Schedule, error)

	// List returns up to limit schedules, newest submission first.
	// Returns ErrInvalidLimit if limit < 1.
	List(ctx context.Context, limit int) ([]types.Schedule, error)

	// Count returns the number of stored schedules.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}
