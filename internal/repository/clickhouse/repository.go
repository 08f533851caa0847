package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/domain"
	"github.com/awslabs/game-analytics-pipeline/internal/repository"
)

// Repository implements EventRepository for ClickHouse
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a new ClickHouse repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema creates the canonical events table. Redelivered records share an
// ingestion id and collapse through the ReplacingMergeTree engine.
func (r *Repository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS canonical_events (
		ingestion_id String,
		application_id LowCardinality(String),
		application_name String,
		event_id String,
		event_type LowCardinality(String),
		event_name LowCardinality(String),
		event_version String,
		event_timestamp Nullable(Float64),
		app_version String,
		event_data String,
		processing_status LowCardinality(String),
		validation_errors String,
		processing_timestamp Int64,
		api_request_id String,
		inserted_at DateTime64(3) DEFAULT now64(3),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	PRIMARY KEY (application_id, ingestion_id)
	ORDER BY (application_id, ingestion_id)
	PARTITION BY toYYYYMM(toDateTime(processing_timestamp))
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create canonical_events table: %w", err)
	}

	r.log.Info("ClickHouse schema initialized successfully")
	return nil
}

// InsertBatch writes the storable events of a batch in one insert
func (r *Repository) InsertBatch(ctx context.Context, events []*domain.CanonicalEvent) (repository.InsertResult, error) {
	rows, rejected := buildRows(events, uint64(time.Now().UnixNano()))
	result := repository.InsertResult{Rejected: rejected}

	for i, err := range rejected {
		r.log.Warn("Rejecting event that cannot be stored",
			zap.String("ingestion_id", events[i].Metadata.IngestionID),
			zap.Error(err))
	}

	if len(rows) == 0 {
		return result, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO canonical_events")
	if err != nil {
		return repository.InsertResult{}, fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			return repository.InsertResult{}, fmt.Errorf("failed to append event to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return repository.InsertResult{}, fmt.Errorf("failed to send batch: %w", err)
	}

	result.Inserted = len(rows)
	return result, nil
}

// buildRows flattens every storable event and reports the others by batch index
func buildRows(events []*domain.CanonicalEvent, version uint64) ([][]interface{}, map[int]error) {
	rows := make([][]interface{}, 0, len(events))
	var rejected map[int]error
	for i, event := range events {
		row, err := eventRow(event, version)
		if err != nil {
			if rejected == nil {
				rejected = make(map[int]error)
			}
			rejected[i] = err
			continue
		}
		rows = append(rows, row)
	}
	return rows, rejected
}

// eventRow flattens a canonical event into canonical_events column order.
// Absent optional strings are stored empty.
func eventRow(event *domain.CanonicalEvent, version uint64) ([]interface{}, error) {
	var timestamp *float64
	if event.EventTimestamp != nil {
		f, err := event.EventTimestamp.Float64()
		if err != nil {
			return nil, fmt.Errorf("failed to convert event_timestamp: %w", err)
		}
		timestamp = &f
	}

	eventData := "{}"
	if len(event.EventData) > 0 {
		eventData = string(event.EventData)
	}

	validationErrors := "[]"
	if errs := event.Metadata.ProcessingResult.ValidationErrors; len(errs) > 0 {
		raw, err := json.Marshal(errs)
		if err != nil {
			return nil, fmt.Errorf("failed to encode validation errors: %w", err)
		}
		validationErrors = string(raw)
	}

	var requestID string
	if api := event.Metadata.API; api != nil && len(api.RequestID) > 0 {
		if err := json.Unmarshal(api.RequestID, &requestID); err != nil {
			requestID = string(api.RequestID)
		}
	}

	return []interface{}{
		event.Metadata.IngestionID,
		event.ApplicationID,
		deref(event.ApplicationName),
		deref(event.EventID),
		deref(event.EventType),
		deref(event.EventName),
		deref(event.EventVersion),
		timestamp,
		deref(event.AppVersion),
		eventData,
		string(event.Metadata.ProcessingResult.Status),
		validationErrors,
		event.Metadata.ProcessingTimestamp,
		requestID,
		time.Now(),
		version,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}

// groupedQuery returns the grouping select expression, GROUP BY and ORDER BY clauses
func groupedQuery(groupBy string) (selectField, groupByClause, orderBy string, err error) {
	switch groupBy {
	case "status":
		return "processing_status", "GROUP BY processing_status", "ORDER BY total_count DESC", nil
	case "hour":
		return "formatDateTime(toStartOfHour(toDateTime(processing_timestamp)), '%Y-%m-%d %H:00:00')",
			"GROUP BY toStartOfHour(toDateTime(processing_timestamp))",
			"ORDER BY group_value ASC", nil
	case "day":
		return "formatDateTime(toStartOfDay(toDateTime(processing_timestamp)), '%Y-%m-%d')",
			"GROUP BY toStartOfDay(toDateTime(processing_timestamp))",
			"ORDER BY group_value ASC", nil
	default:
		return "", "", "", fmt.Errorf("unsupported group_by value: %s (supported: status, hour, day)", groupBy)
	}
}

// GetIngestionStats counts the canonical events of an application processed within a time range
func (r *Repository) GetIngestionStats(ctx context.Context, query repository.StatsQuery) (*repository.StatsResult, error) {
	result := &repository.StatsResult{
		Groups: []repository.StatsGroupResult{},
	}

	whereClause := "WHERE application_id = ? AND processing_timestamp >= ? AND processing_timestamp <= ?"
	args := []interface{}{query.ApplicationID, query.From, query.To}

	overallQuery := fmt.Sprintf(`
		SELECT count() as total_count
		FROM canonical_events FINAL
		%s
	`, whereClause)

	row := r.client.Conn().QueryRow(ctx, overallQuery, args...)
	if err := row.Scan(&result.TotalCount); err != nil {
		return nil, fmt.Errorf("failed to query ingestion totals: %w", err)
	}

	if query.GroupBy == "" {
		return result, nil
	}

	selectField, groupByClause, orderBy, err := groupedQuery(query.GroupBy)
	if err != nil {
		return nil, err
	}

	statement := fmt.Sprintf(`
		SELECT
			%s as group_value,
			count() as total_count
		FROM canonical_events FINAL
		%s
		%s
		%s
	`, selectField, whereClause, groupByClause, orderBy)

	rows, err := r.client.Conn().Query(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grouped ingestion stats: %w", err)
	}
	defer func(rows driver.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Error("Failed to close grouped ingestion stats rows", zap.Error(err))
		}
	}(rows)

	for rows.Next() {
		var group repository.StatsGroupResult
		if err := rows.Scan(&group.GroupValue, &group.TotalCount); err != nil {
			return nil, fmt.Errorf("failed to scan grouped ingestion stats row: %w", err)
		}
		result.Groups = append(result.Groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grouped ingestion stats rows: %w", err)
	}

	return result, nil
}
