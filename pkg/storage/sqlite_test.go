package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/enviromon/enviromon/pkg/model"
	"github.com/enviromon/enviromon/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_SaveReading(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	reading := &model.Reading{Temperature: 31.5, Humidity: 18.2, Light: 40, Distance: 5}
	alerts := []model.Alert{
		{Message: "High temperature: 31.5°C"},
		{Message: "Low humidity: 18.2%"},
	}

	err := db.SaveReading(ctx, reading, alerts)
	require.NoError(t, err)
	assert.NotZero(t, reading.ID)
	assert.False(t, reading.Timestamp.IsZero())
	for _, a := range alerts {
		assert.NotZero(t, a.ID)
		assert.Equal(t, reading.Timestamp, a.Timestamp)
	}
}

func TestSQLite_SaveReading_NoAlerts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	reading := &model.Reading{Temperature: 22.0, Humidity: 45.0, Light: 60}
	require.NoError(t, db.SaveReading(ctx, reading, nil))

	alerts, err := db.ListAlerts(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestSQLite_ListReadings_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r := &model.Reading{
			Temperature: 20.0 + float64(i),
			Humidity:    50.0,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.SaveReading(ctx, r, nil))
	}

	readings, err := db.ListReadings(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, 24.0, readings[0].Temperature)
	assert.Equal(t, 23.0, readings[1].Temperature)
	assert.Equal(t, 22.0, readings[2].Temperature)

	// Offset into the older rows
	readings, err = db.ListReadings(ctx, 3, 3)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 21.0, readings[0].Temperature)
	assert.Equal(t, 20.0, readings[1].Temperature)
}

func TestSQLite_ListAlerts_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		r := &model.Reading{
			Temperature: 35.0,
			Humidity:    50.0,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		}
		alerts := []model.Alert{{Message: "High temperature: 35°C", Timestamp: r.Timestamp}}
		require.NoError(t, db.SaveReading(ctx, r, alerts))
	}

	alerts, err := db.ListAlerts(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.True(t, alerts[0].Timestamp.After(alerts[1].Timestamp))
}

func TestSQLite_SaveReading_Atomic(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	reading := &model.Reading{Temperature: 31.5, Humidity: 18.2, Light: 40, Distance: 5}
	alerts := []model.Alert{
		{Message: "High temperature: 31.5°C"},
		{Message: "Low humidity: 18.2%"},
		{Message: "Motion detected: 5 cm"},
	}
	require.NoError(t, db.SaveReading(ctx, reading, alerts))

	readings, err := db.ListReadings(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, readings, 1)

	stored, err := db.ListAlerts(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestWithBusyRetry_BusyTwiceThenSuccess(t *testing.T) {
	calls := 0
	err := storage.WithBusyRetry(3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBusyRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := storage.WithBusyRetry(3, time.Millisecond, func() error {
		calls++
		return errors.New("database table is locked")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBusyRetry_NonBusyFailsImmediately(t *testing.T) {
	calls := 0
	err := storage.WithBusyRetry(3, time.Millisecond, func() error {
		calls++
		return errors.New("UNIQUE constraint failed")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsBusy(t *testing.T) {
	assert.True(t, storage.IsBusy(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, storage.IsBusy(errors.New("database table is locked")))
	assert.False(t, storage.IsBusy(errors.New("no such table: sensor_data")))
	assert.False(t, storage.IsBusy(nil))
}
