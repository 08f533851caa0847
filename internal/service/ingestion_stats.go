package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/dto"
	"github.com/awslabs/game-analytics-pipeline/internal/repository"
)

// maxHourlyRangeSeconds caps the time range of hourly grouped queries at 90 days
const maxHourlyRangeSeconds = 90 * 24 * 3600

// IngestionStatsService reports how events of an application were processed
type IngestionStatsService struct {
	repository repository.EventRepository
	log        *zap.Logger
}

// NewIngestionStatsService creates a new ingestion statistics service
func NewIngestionStatsService(repo repository.EventRepository, log *zap.Logger) *IngestionStatsService {
	return &IngestionStatsService{
		repository: repo,
		log:        log,
	}
}

// GetIngestionStats retrieves canonical event counts from the repository
func (s *IngestionStatsService) GetIngestionStats(ctx context.Context, req *dto.GetIngestionStatsRequest) (*dto.GetIngestionStatsResponse, error) {
	if req.From > req.To {
		s.log.Warn("Invalid time range for ingestion stats",
			zap.Int64("from", req.From),
			zap.Int64("to", req.To),
			zap.String("application_id", req.ApplicationID))
		return nil, fmt.Errorf("%w: from timestamp must be less than or equal to to timestamp", ErrInvalidRequest)
	}

	if req.GroupBy != "" {
		validGroupBy := map[string]bool{"status": true, "hour": true, "day": true}
		if !validGroupBy[req.GroupBy] {
			s.log.Warn("Invalid group_by value",
				zap.String("group_by", req.GroupBy))
			return nil, fmt.Errorf("%w: invalid group_by value: %s (supported: status, hour, day)", ErrInvalidRequest, req.GroupBy)
		}

		rangeSeconds := req.To - req.From
		if req.GroupBy == "hour" && rangeSeconds > maxHourlyRangeSeconds {
			s.log.Warn("Large time range for hourly grouping",
				zap.Int64("range_days", rangeSeconds/(24*3600)))
			return nil, fmt.Errorf("%w: time range too large for hourly grouping (max 90 days, got %d days)", ErrInvalidRequest, rangeSeconds/(24*3600))
		}
	}

	query := repository.StatsQuery{
		ApplicationID: req.ApplicationID,
		From:          req.From,
		To:            req.To,
		GroupBy:       req.GroupBy,
	}

	s.log.Info("Querying ingestion stats",
		zap.String("application_id", req.ApplicationID),
		zap.Int64("from", req.From),
		zap.Int64("to", req.To),
		zap.String("group_by", req.GroupBy))

	result, err := s.repository.GetIngestionStats(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestion stats from repository: %w", err)
	}

	response := &dto.GetIngestionStatsResponse{
		ApplicationID: req.ApplicationID,
		From:          req.From,
		To:            req.To,
		TotalCount:    result.TotalCount,
		GroupBy:       req.GroupBy,
		Groups:        make([]dto.StatsGroupData, 0, len(result.Groups)),
	}

	for _, group := range result.Groups {
		response.Groups = append(response.Groups, dto.StatsGroupData{
			GroupValue: group.GroupValue,
			TotalCount: group.TotalCount,
		})
	}

	return response, nil
}
