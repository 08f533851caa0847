package dto

// GetRemoteConfigsRequest represents a remote config resolution request
type GetRemoteConfigsRequest struct {
	UserID        string `form:"-" binding:"required,max=256" example:"user_123"`
	ApplicationID string `form:"application_id" binding:"max=128" example:"a1b2c3"`
	Country       string `form:"country" binding:"max=64" example:"FR"`
}

// GetIngestionStatsRequest represents an ingestion statistics query request
type GetIngestionStatsRequest struct {
	ApplicationID string `form:"-" binding:"required" example:"a1b2c3"`
	From          int64  `form:"from" binding:"required" example:"1723475612"`
	To            int64  `form:"to" binding:"required" example:"1723562012"`
	GroupBy       string `form:"group_by" example:"status"`
}
