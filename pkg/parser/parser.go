// Package parser turns raw status lines from the serial bridge into
// validated readings. The wire format is fixed and has no schema
// negotiation, so any shape deviation is a hard parse failure.
package parser

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/enviromon/enviromon/pkg/model"
)

// fieldCount is the number of comma-separated fields in a status line:
// temperature, humidity, light, distance.
const fieldCount = 4

// upstreamErrorPrefix marks a line that is an error payload from the
// bridge rather than sensor data.
const upstreamErrorPrefix = `{"error":`

// ErrorKind classifies a parse failure.
type ErrorKind string

const (
	// ErrWrongFieldCount means the line did not split into exactly four fields.
	ErrWrongFieldCount ErrorKind = "wrong_field_count"
	// ErrNumericFormat means a field's numeric substring did not parse.
	ErrNumericFormat ErrorKind = "numeric_format"
	// ErrOutOfRange means the parsed values violate the reading invariants.
	ErrOutOfRange ErrorKind = "out_of_range"
	// ErrUpstream means the line was an error payload from the bridge.
	ErrUpstream ErrorKind = "upstream_error"
)

// ParseError is a typed, line-scoped parse failure. It is always
// recoverable: the caller skips the line and carries on.
type ParseError struct {
	Kind   ErrorKind
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: %s: %s", e.Kind, e.Detail)
}

// PublicMessage returns the user-facing error string for API responses.
func (e *ParseError) PublicMessage() string {
	switch e.Kind {
	case ErrOutOfRange:
		return "Invalid sensor values"
	case ErrUpstream:
		return e.Detail
	default:
		return "Invalid data format"
	}
}

// ParseLine parses one trimmed status line into a Reading.
//
// Expected shape (one layer of enclosing quotes optional):
//
//	Temp: 31.5 C, Hum: 18.2 %, Light: 40 %, Dist: 5 cm
//
// The returned error is always a *ParseError.
func ParseLine(line string) (*model.Reading, error) {
	if strings.HasPrefix(line, upstreamErrorPrefix) {
		return nil, upstreamError(line)
	}

	if len(line) >= 2 && line[0] == '"' && line[len(line)-1] == '"' {
		line = line[1 : len(line)-1]
	}

	fields := strings.Split(line, ", ")
	if len(fields) != fieldCount {
		return nil, &ParseError{
			Kind:   ErrWrongFieldCount,
			Detail: fmt.Sprintf("expected %d fields, got %d", fieldCount, len(fields)),
		}
	}

	values := make([]float64, fieldCount)
	for i, field := range fields {
		v, err := parseField(field)
		if err != nil {
			return nil, &ParseError{
				Kind:   ErrNumericFormat,
				Detail: fmt.Sprintf("field %d %q: %v", i, field, err),
			}
		}
		values[i] = v
	}

	reading := &model.Reading{
		Temperature: values[0],
		Humidity:    values[1],
		Light:       int64(values[2]),
		Distance:    int64(values[3]),
		Timestamp:   time.Now().UTC(),
	}

	// NaN light/distance truncate to garbage integers, so range-check the
	// floats before trusting the truncation.
	if math.IsNaN(values[2]) || math.IsNaN(values[3]) {
		return nil, &ParseError{Kind: ErrOutOfRange, Detail: "light or distance is NaN"}
	}
	if err := reading.Validate(); err != nil {
		return nil, &ParseError{Kind: ErrOutOfRange, Detail: err.Error()}
	}

	return reading, nil
}

// parseField extracts the numeric substring from one labeled field such as
// "Temp: 31.5 C": drop the label before ": ", then drop the unit after the
// first space.
func parseField(field string) (float64, error) {
	value := field
	if _, rest, ok := strings.Cut(field, ": "); ok {
		value = rest
	}
	value, _, _ = strings.Cut(value, " ")
	return strconv.ParseFloat(value, 64)
}

func upstreamError(line string) *ParseError {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(line), &payload); err != nil || payload.Error == "" {
		return &ParseError{Kind: ErrUpstream, Detail: "malformed upstream error payload"}
	}
	return &ParseError{Kind: ErrUpstream, Detail: payload.Error}
}
