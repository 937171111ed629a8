package model

import (
	"fmt"
	"math"
	"time"
)

// Reading represents a single validated environmental sensor sample.
type Reading struct {
	ID          int64     `json:"id,omitempty" db:"id"`
	Temperature float64   `json:"temperature" db:"temperature"`
	Humidity    float64   `json:"humidity" db:"humidity"`
	Light       int64     `json:"light" db:"light"`
	Distance    int64     `json:"distance" db:"distance"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
}

// Validate checks the reading invariants: temperature and humidity must be
// finite, light and distance must be non-negative.
func (r *Reading) Validate() error {
	if math.IsNaN(r.Temperature) || math.IsInf(r.Temperature, 0) {
		return fmt.Errorf("temperature is not finite: %v", r.Temperature)
	}
	if math.IsNaN(r.Humidity) || math.IsInf(r.Humidity, 0) {
		return fmt.Errorf("humidity is not finite: %v", r.Humidity)
	}
	if r.Light < 0 {
		return fmt.Errorf("light is negative: %d", r.Light)
	}
	if r.Distance < 0 {
		return fmt.Errorf("distance is negative: %d", r.Distance)
	}
	return nil
}

func (r *Reading) String() string {
	return fmt.Sprintf("Temp: %g °C, Hum: %g %%, Light: %d %%, Dist: %d cm",
		r.Temperature, r.Humidity, r.Light, r.Distance)
}

// Alert is a derived notification triggered by a reading crossing a
// static threshold.
type Alert struct {
	ID        int64     `json:"id,omitempty" db:"id"`
	Message   string    `json:"message" db:"message"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// Thresholds holds the static alert limits. Loaded once at startup and
// read-only for the process lifetime.
type Thresholds struct {
	TempHigh      float64 `json:"temp_high" yaml:"temp_high" mapstructure:"temp_high"`
	HumidityLow   float64 `json:"humidity_low" yaml:"humidity_low" mapstructure:"humidity_low"`
	DistanceClose int64   `json:"distance_close" yaml:"distance_close" mapstructure:"distance_close"`
}

// DefaultThresholds returns the stock alert limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TempHigh:      30.0,
		HumidityLow:   20.0,
		DistanceClose: 10,
	}
}
