package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/awslabs/game-analytics-pipeline/internal/dto"
	"github.com/awslabs/game-analytics-pipeline/internal/repository"
	"github.com/awslabs/game-analytics-pipeline/internal/service"
)

type Handler struct {
	remoteConfigService service.RemoteConfigServicer
	statsService        service.IngestionStatsServicer
	router              *gin.Engine
	log                 *zap.Logger
}

// NewHandler creates the HTTP API. The ingestion stats route is only served when statsService is set.
func NewHandler(remoteConfigService service.RemoteConfigServicer, statsService service.IngestionStatsServicer, log *zap.Logger) *Handler {
	h := &Handler{
		remoteConfigService: remoteConfigService,
		statsService:        statsService,
		router:              gin.Default(),
		log:                 log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	h.router.GET("/remote-configs/:user_id", h.getRemoteConfigs)
	if h.statsService != nil {
		h.router.GET("/applications/:application_id/ingestion-stats", h.getIngestionStats)
	}
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// getRemoteConfigs handles GET /remote-configs/:user_id
// @Summary Resolve remote configs for a user
// @Description Resolve every active remote config, applying audience overrides and assigning the user to running A/B tests
// @Tags remote-configs
// @Produce json
// @Param user_id path string true "User identifier" example:"user_123"
// @Param application_id query string false "Restrict to one application" example:"a1b2c3"
// @Param country query string false "User country, matched against audience conditions" example:"FR"
// @Success 200 {object} dto.GetRemoteConfigsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /remote-configs/{user_id} [get]
func (h *Handler) getRemoteConfigs(c *gin.Context) {
	req := dto.GetRemoteConfigsRequest{UserID: c.Param("user_id")}

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid remote configs request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	response, err := h.remoteConfigService.GetRemoteConfigs(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to resolve remote configs",
			zap.Error(err),
			zap.String("user_id", req.UserID),
			zap.String("application_id", req.ApplicationID))
		h.writeError(c, err)
		return
	}

	h.log.Info("Remote configs resolved",
		zap.String("user_id", req.UserID),
		zap.Int("config_count", len(response.Configs)))

	c.JSON(http.StatusOK, response)
}

// getIngestionStats handles GET /applications/:application_id/ingestion-stats
// @Summary Get ingestion statistics
// @Description Count canonical events of an application, optionally grouped by processing status, hour, or day
// @Tags ingestion-stats
// @Produce json
// @Param application_id path string true "Application identifier" example:"a1b2c3"
// @Param from query int true "Start timestamp (Unix epoch)" example:"1723475612"
// @Param to query int true "End timestamp (Unix epoch)" example:"1723562012"
// @Param group_by query string false "Field to group by (status, hour, day)" Enums(status, hour, day) example:"status"
// @Success 200 {object} dto.GetIngestionStatsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /applications/{application_id}/ingestion-stats [get]
func (h *Handler) getIngestionStats(c *gin.Context) {
	req := dto.GetIngestionStatsRequest{ApplicationID: c.Param("application_id")}

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid ingestion stats request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	response, err := h.statsService.GetIngestionStats(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to get ingestion stats",
			zap.Error(err),
			zap.String("application_id", req.ApplicationID),
			zap.Int64("from", req.From),
			zap.Int64("to", req.To))
		h.writeError(c, err)
		return
	}

	h.log.Info("Ingestion stats retrieved",
		zap.String("application_id", req.ApplicationID),
		zap.Uint64("total_count", response.TotalCount))

	c.JSON(http.StatusOK, response)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case repository.IsDependencyError(err):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "dependency_error",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}
