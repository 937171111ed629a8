package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/enviromon/enviromon/pkg/model"

	_ "modernc.org/sqlite"
)

const (
	// saveAttempts bounds retries of the reading+alerts transaction when
	// the database reports transient contention.
	saveAttempts = 3
	// busyRetryDelay is the fixed wait between contended attempts.
	busyRetryDelay = 500 * time.Millisecond
)

// SQLite implements the Store interface using an SQLite database.
type SQLite struct {
	db         *sql.DB
	retryDelay time.Duration
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, retryDelay: busyRetryDelay}, nil
}

// SaveReading persists a reading and its alerts atomically, retrying the
// whole transaction on transient contention. A persistent failure leaves
// nothing behind: each failed attempt is rolled back before the next one
// starts.
func (s *SQLite) SaveReading(ctx context.Context, reading *model.Reading, alerts []model.Alert) error {
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now().UTC()
	}

	err := WithBusyRetry(saveAttempts, s.retryDelay, func() error {
		return s.saveReadingTx(ctx, reading, alerts)
	})
	if err != nil {
		return fmt.Errorf("save reading: %w", err)
	}
	return nil
}

func (s *SQLite) saveReadingTx(ctx context.Context, reading *model.Reading, alerts []model.Alert) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sensor_data (temperature, humidity, light, distance, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		reading.Temperature, reading.Humidity, reading.Light, reading.Distance, reading.Timestamp,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert reading: %w", err)
	}

	readingID, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("reading id: %w", err)
	}

	alertIDs := make([]int64, len(alerts))
	for i := range alerts {
		if alerts[i].Timestamp.IsZero() {
			alerts[i].Timestamp = reading.Timestamp
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO alerts (message, timestamp) VALUES (?, ?)`,
			alerts[i].Message, alerts[i].Timestamp,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert alert: %w", err)
		}
		if alertIDs[i], err = res.LastInsertId(); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("alert id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	// Only expose generated IDs once the transaction is durable.
	reading.ID = readingID
	for i := range alerts {
		alerts[i].ID = alertIDs[i]
	}
	return nil
}

func (s *SQLite) ListReadings(ctx context.Context, limit, offset int) ([]model.Reading, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, temperature, humidity, light, distance, timestamp
		 FROM sensor_data ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var readings []model.Reading
	for rows.Next() {
		var r model.Reading
		if err := rows.Scan(&r.ID, &r.Temperature, &r.Humidity, &r.Light, &r.Distance, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan reading row: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func (s *SQLite) ListAlerts(ctx context.Context, limit, offset int) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message, timestamp
		 FROM alerts ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.Message, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
