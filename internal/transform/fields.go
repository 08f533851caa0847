package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
)

// eventField copies one optional event field into the canonical event,
// coercing it to the field's declared type
type eventField struct {
	name  string
	apply func(out *domain.CanonicalEvent, value interface{}) error
}

var eventFields = []eventField{
	stringField("event_id", func(e *domain.CanonicalEvent) **string { return &e.EventID }),
	stringField("event_type", func(e *domain.CanonicalEvent) **string { return &e.EventType }),
	stringField("event_name", func(e *domain.CanonicalEvent) **string { return &e.EventName }),
	stringField("event_version", func(e *domain.CanonicalEvent) **string { return &e.EventVersion }),
	numberField("event_timestamp", func(e *domain.CanonicalEvent) **json.Number { return &e.EventTimestamp }),
	stringField("app_version", func(e *domain.CanonicalEvent) **string { return &e.AppVersion }),
	{name: "event_data", apply: copyEventData},
}

// copyEventFields applies the coercion table to every field present in event.
// Absent fields stay nil; nothing is defaulted.
func copyEventFields(event map[string]interface{}, out *domain.CanonicalEvent) error {
	for _, field := range eventFields {
		value, ok := event[field.name]
		if !ok {
			continue
		}
		if err := field.apply(out, value); err != nil {
			return fmt.Errorf("failed to copy %s: %w", field.name, err)
		}
	}
	return nil
}

func stringField(name string, target func(*domain.CanonicalEvent) **string) eventField {
	return eventField{
		name: name,
		apply: func(out *domain.CanonicalEvent, value interface{}) error {
			s, ok, err := coerceString(value)
			if err != nil || !ok {
				return err
			}
			*target(out) = &s
			return nil
		},
	}
}

func numberField(name string, target func(*domain.CanonicalEvent) **json.Number) eventField {
	return eventField{
		name: name,
		apply: func(out *domain.CanonicalEvent, value interface{}) error {
			if n, ok := coerceNumber(value); ok {
				*target(out) = &n
			}
			return nil
		},
	}
}

func copyEventData(out *domain.CanonicalEvent, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	out.EventData = raw
	return nil
}

// coerceString renders a decoded JSON value as a string. Null is treated as absent.
func coerceString(value interface{}) (string, bool, error) {
	switch v := value.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case json.Number:
		return v.String(), true, nil
	case bool:
		return strconv.FormatBool(v), true, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", false, err
		}
		return string(raw), true, nil
	}
}

// coerceNumber converts a decoded JSON value to a number. Values with no finite
// numeric reading are reported as absent.
func coerceNumber(value interface{}) (json.Number, bool) {
	switch v := value.(type) {
	case json.Number:
		// the literal is kept verbatim unless it overflows float64
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil || math.IsInf(f, 0) {
			return "", false
		}
		return v, true
	case float64:
		return formatFloat(v)
	case bool:
		if v {
			return json.Number("1"), true
		}
		return json.Number("0"), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return "", false
		}
		return formatFloat(f)
	default:
		return "", false
	}
}

func formatFloat(f float64) (json.Number, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	if math.Abs(f) < 1e21 {
		return json.Number(strconv.FormatFloat(f, 'f', -1, 64)), true
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64)), true
}
