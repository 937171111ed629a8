// Package alerts derives threshold alerts from sensor readings and
// dispatches them to external notifiers.
package alerts

import (
	"context"
	"fmt"

	"github.com/enviromon/enviromon/pkg/model"
)

// Metric identifies which threshold rule produced an alert.
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
	MetricMotion      Metric = "motion"
)

// Event is one triggered threshold rule. It carries the persisted alert
// row plus the raw value and limit for notifiers.
type Event struct {
	Metric    Metric      `json:"metric"`
	Value     float64     `json:"value"`
	Threshold float64     `json:"threshold"`
	Alert     model.Alert `json:"alert"`
}

// Notifier pushes an alert event to an external system.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an event. Implementations must be safe for concurrent use.
	Send(ctx context.Context, event Event) error
}

// Derive evaluates the threshold rules against a reading. It is pure and
// deterministic; the result order follows the rule order below. Rules are
// independent, so a single reading can trigger all of them.
//
// A distance of zero means "no object in front of the sensor", not an
// object at zero range, so it never counts as motion.
func Derive(r *model.Reading, th model.Thresholds) []Event {
	var events []Event

	if r.Temperature > th.TempHigh {
		events = append(events, Event{
			Metric:    MetricTemperature,
			Value:     r.Temperature,
			Threshold: th.TempHigh,
			Alert: model.Alert{
				Message:   fmt.Sprintf("High temperature: %g°C", r.Temperature),
				Timestamp: r.Timestamp,
			},
		})
	}

	if r.Humidity < th.HumidityLow {
		events = append(events, Event{
			Metric:    MetricHumidity,
			Value:     r.Humidity,
			Threshold: th.HumidityLow,
			Alert: model.Alert{
				Message:   fmt.Sprintf("Low humidity: %g%%", r.Humidity),
				Timestamp: r.Timestamp,
			},
		})
	}

	if r.Distance > 0 && r.Distance < th.DistanceClose {
		events = append(events, Event{
			Metric:    MetricMotion,
			Value:     float64(r.Distance),
			Threshold: float64(th.DistanceClose),
			Alert: model.Alert{
				Message:   fmt.Sprintf("Motion detected: %d cm", r.Distance),
				Timestamp: r.Timestamp,
			},
		})
	}

	return events
}

// Records extracts the persistable alert rows from a list of events,
// preserving order.
func Records(events []Event) []model.Alert {
	if len(events) == 0 {
		return nil
	}
	records := make([]model.Alert, len(events))
	for i, e := range events {
		records[i] = e.Alert
	}
	return records
}
