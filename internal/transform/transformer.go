package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
)

// ErrStructural is returned for records missing the application id or the event object
var ErrStructural = errors.New("record is missing application_id or event")

const (
	apiValidatedFlag    = "aws_ga_api_validated_flag"
	apiRequestID        = "aws_ga_api_requestId"
	apiRequestTimeEpoch = "aws_ga_api_requestTimeEpoch"
)

// IngestionContext identifies the invocation a record was delivered in
type IngestionContext struct {
	// InvocationID is the delivery invocation's request id, empty when unknown
	InvocationID string
}

// Option configures a Transformer
type Option func(*Transformer)

// WithClock overrides the clock used for processing timestamps
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) {
		t.now = now
	}
}

// Transformer turns raw telemetry records into canonical events
type Transformer struct {
	directory Directory
	validator Validator
	now       func() time.Time
	log       *zap.Logger
}

func NewTransformer(directory Directory, validator Validator, log *zap.Logger, opts ...Option) *Transformer {
	t := &Transformer{
		directory: directory,
		validator: validator,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform processes one record. It never fails: any error yields a
// ProcessingFailed outcome carrying the original payload.
func (t *Transformer) Transform(ctx context.Context, raw []byte, recordID string, ingestion IngestionContext) domain.Outcome {
	event, err := t.transform(ctx, raw, recordID, ingestion)
	if err == nil {
		var data []byte
		data, err = json.Marshal(event)
		if err == nil {
			return domain.Outcome{
				RecordID: recordID,
				Result:   domain.ResultOK,
				Data:     append(data, '\n'),
				Status:   event.Metadata.ProcessingResult.Status,
				Event:    event,
			}
		}
		err = fmt.Errorf("failed to encode canonical event: %w", err)
	}

	t.log.Error("Failed to process record",
		zap.String("record_id", recordID),
		zap.Error(err))

	return domain.Outcome{
		RecordID: recordID,
		Result:   domain.ResultProcessingFailed,
		Data:     raw,
		Err:      err,
	}
}

func (t *Transformer) transform(ctx context.Context, raw []byte, recordID string, ingestion IngestionContext) (*domain.CanonicalEvent, error) {
	input, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	rawApplicationID, ok := input["application_id"]
	if !ok || rawApplicationID == nil {
		return nil, ErrStructural
	}
	event, ok := input["event"].(map[string]interface{})
	if !ok {
		return nil, ErrStructural
	}
	applicationID, _, err := coerceString(rawApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to read application_id: %w", err)
	}

	metadata := domain.Metadata{
		IngestionID:         ingestionID(ingestion, recordID),
		ProcessingTimestamp: t.now().Unix(),
	}
	metadata.API, err = extractAPIMetadata(input)
	if err != nil {
		return nil, err
	}

	app, registered, err := t.directory.Get(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up application %s: %w", applicationID, err)
	}

	canonical := &domain.CanonicalEvent{ApplicationID: applicationID}

	if !registered {
		metadata.ProcessingResult = domain.ProcessingResult{Status: domain.StatusUnregistered}
	} else {
		result, err := t.validator.Validate(input)
		if err != nil {
			return nil, err
		}
		if result.Valid {
			metadata.ProcessingResult = domain.ProcessingResult{Status: domain.StatusOK}
		} else {
			metadata.ProcessingResult = domain.ProcessingResult{
				Status:           domain.StatusSchemaMismatch,
				ValidationErrors: result.Errors,
			}
			t.log.Debug("Event failed schema validation",
				zap.String("record_id", recordID),
				zap.String("application_id", applicationID),
				zap.Int("validation_errors", len(result.Errors)))
		}
		name := app.ApplicationName
		canonical.ApplicationName = &name
	}

	if err := copyEventFields(event, canonical); err != nil {
		return nil, err
	}
	canonical.Metadata = metadata

	return canonical, nil
}

func decodeObject(raw []byte) (map[string]interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var input map[string]interface{}
	if err := decoder.Decode(&input); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if input == nil {
		return nil, ErrStructural
	}
	return input, nil
}

// ingestionID is stable for a given invocation and record, and random otherwise
func ingestionID(ingestion IngestionContext, recordID string) string {
	if ingestion.InvocationID == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(ingestion.InvocationID+"/"+recordID)).String()
}

// extractAPIMetadata moves the fields stamped by the ingestion API out of the
// payload and into event metadata
func extractAPIMetadata(input map[string]interface{}) (*domain.APIMetadata, error) {
	if !truthy(input[apiValidatedFlag]) {
		return nil, nil
	}

	api := &domain.APIMetadata{}
	if value := input[apiRequestID]; truthy(value) {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to copy api request id: %w", err)
		}
		api.RequestID = raw
		delete(input, apiRequestID)
	}
	if value := input[apiRequestTimeEpoch]; truthy(value) {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to copy api request time: %w", err)
		}
		api.RequestTimeEpoch = raw
		delete(input, apiRequestTimeEpoch)
	}
	delete(input, apiValidatedFlag)

	return api, nil
}

func truthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}
