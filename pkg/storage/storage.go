package storage

import (
	"context"

	"github.com/enviromon/enviromon/pkg/model"
)

// Store defines the persistence layer for readings and alerts.
type Store interface {
	// SaveReading persists a reading and its derived alerts as one
	// transaction. Either everything is durable or nothing is.
	SaveReading(ctx context.Context, reading *model.Reading, alerts []model.Alert) error

	// ListReadings returns persisted readings, newest first.
	ListReadings(ctx context.Context, limit, offset int) ([]model.Reading, error)

	// ListAlerts returns persisted alerts, newest first.
	ListAlerts(ctx context.Context, limit, offset int) ([]model.Alert, error)

	// Close releases resources.
	Close() error
}
