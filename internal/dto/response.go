package dto

import "github.com/awslabs/game-analytics-pipeline/internal/domain"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"from is required"`
}

// GetRemoteConfigsResponse maps each active remote config name to its value for the user
type GetRemoteConfigsResponse struct {
	UserID  string                          `json:"user_id" example:"user_123"`
	Configs map[string]domain.ResolvedValue `json:"configs"`
}

// StatsGroupData represents the event count of a single group
type StatsGroupData struct {
	GroupValue string `json:"group_value" example:"ok"`
	TotalCount uint64 `json:"total_count" example:"1500"`
}

// GetIngestionStatsResponse represents the ingestion statistics query response
type GetIngestionStatsResponse struct {
	ApplicationID string           `json:"application_id" example:"a1b2c3"`
	From          int64            `json:"from" example:"1723475612"`
	To            int64            `json:"to" example:"1723562012"`
	TotalCount    uint64           `json:"total_count" example:"5000"`
	GroupBy       string           `json:"group_by,omitempty" example:"status"`
	Groups        []StatsGroupData `json:"groups,omitempty"`
}
