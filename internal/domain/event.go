package domain

import "encoding/json"

// ProcessingStatus classifies a successfully transformed event
type ProcessingStatus string

const (
	StatusOK             ProcessingStatus = "ok"
	StatusSchemaMismatch ProcessingStatus = "schema_mismatch"
	StatusUnregistered   ProcessingStatus = "unregistered"
)

// ValidationError describes a single schema violation of a raw event
type ValidationError struct {
	Field   string `json:"field"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ProcessingResult is attached to every canonical event's metadata
type ProcessingResult struct {
	Status           ProcessingStatus  `json:"status"`
	ValidationErrors []ValidationError `json:"validation_errors,omitempty"`
}

// APIMetadata carries the request fields stamped on events sent through the ingestion API
type APIMetadata struct {
	RequestID        json.RawMessage `json:"request_id,omitempty"`
	RequestTimeEpoch json.RawMessage `json:"request_time_epoch,omitempty"`
}

// Metadata describes how and when an event was processed
type Metadata struct {
	IngestionID         string           `json:"ingestion_id"`
	ProcessingTimestamp int64            `json:"processing_timestamp"`
	ProcessingResult    ProcessingResult `json:"processing_result"`
	API                 *APIMetadata     `json:"api,omitempty"`
}

// CanonicalEvent is the normalized event emitted for every accepted record.
// Optional fields are nil when the raw event did not carry them.
type CanonicalEvent struct {
	EventID         *string         `json:"event_id,omitempty"`
	EventType       *string         `json:"event_type,omitempty"`
	EventName       *string         `json:"event_name,omitempty"`
	EventVersion    *string         `json:"event_version,omitempty"`
	EventTimestamp  *json.Number    `json:"event_timestamp,omitempty"`
	AppVersion      *string         `json:"app_version,omitempty"`
	EventData       json.RawMessage `json:"event_data,omitempty"`
	ApplicationID   string          `json:"application_id"`
	ApplicationName *string         `json:"application_name,omitempty"`
	Metadata        Metadata        `json:"metadata"`
}
