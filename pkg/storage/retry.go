package storage

import (
	"strings"
	"time"
)

// IsBusy reports whether an error looks like transient SQLite contention
// (SQLITE_BUSY / SQLITE_LOCKED). modernc surfaces these both as coded
// errors and as plain "database is locked" strings depending on the call
// path, so matching on the message covers both.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") || strings.Contains(msg, "locked")
}

// WithBusyRetry runs fn up to attempts times, sleeping delay between
// attempts that failed with transient contention. Non-busy errors abort
// immediately; the last busy error is returned when attempts run out.
func WithBusyRetry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !IsBusy(err) {
			return err
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
