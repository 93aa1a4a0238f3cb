package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-tag-detector/internal/broadcast"
	"go-tag-detector/internal/config"
	"go-tag-detector/internal/detector"
	apperrors "go-tag-detector/internal/errors"
	"go-tag-detector/internal/logger"
	"go-tag-detector/internal/repository"
	"go-tag-detector/internal/service"
	"go-tag-detector/pkg/models"
)

// Dependencies are the components the HTTP routes serve. Everything but
// Service is optional.
type Dependencies struct {
	Service       service.TagDetectionService
	Hub           *broadcast.WebsocketHub
	History       repository.DetectionRepository
	Metrics       *broadcast.MetricsCollector
	DetectorStats detector.PoolStatsReporter
}

func NewHandler(deps Dependencies, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.POST("/single_image_tag_detection", analyzeSingleImage(deps.Service, cfg))
	if deps.Hub != nil {
		r.GET("/tag_detections", gin.WrapH(deps.Hub))
	}
	if deps.History != nil {
		r.GET("/tag_detections/history", listHistory(deps.History, cfg))
		r.GET("/tag_detections/history/:id", getHistoryEntry(deps.History))
	}
	if deps.Metrics != nil {
		r.GET("/metrics", metrics(deps.Metrics, deps.DetectorStats))
	}

	return r
}

func analyzeSingleImage(s service.TagDetectionService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.AnalysisTimeout)
		defer cancel()

		// Log request start
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
		}).Info("Processing single image tag detection request")

		var req models.AnalyzeSingleImageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"ip": c.ClientIP(),
			}).Error("Invalid request format")
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		resp, err := s.AnalyzeSingleImage(ctx, req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && !apperrors.IsType(err, apperrors.ErrorTypeTimeout) {
				err = apperrors.NewTimeoutError("tag detection timed out", err)
			}
			respondError(c, determineStatusCode(err), "tag detection failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"request_id":         resp.RequestID,
			"success":            resp.Success,
			"detections":         resp.TagDetections.Len(),
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Single image tag detection finished")

		if !resp.Success {
			c.JSON(apperrors.NewImageLoadError(resp.Message, nil).StatusCode, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func listHistory(history repository.DetectionRepository, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := cfg.HistoryLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				respondError(c, http.StatusBadRequest, "invalid limit", apperrors.NewValidationError("limit must be a positive integer", err))
				return
			}
			limit = min(n, cfg.HistoryLimit)
		}

		var (
			entries []models.HistoryEntry
			err     error
		)
		if raw := c.Query("tag_id"); raw != "" {
			tagID, convErr := strconv.Atoi(raw)
			if convErr != nil || tagID < 0 {
				respondError(c, http.StatusBadRequest, "invalid tag_id", apperrors.NewValidationError("tag_id must be a non-negative integer", convErr))
				return
			}
			entries, err = history.ListByTag(c.Request.Context(), tagID, limit)
		} else {
			entries, err = history.ListRecent(c.Request.Context(), limit)
		}
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to read history", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
	}
}

func getHistoryEntry(history repository.DetectionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid id", apperrors.NewValidationError("id must be an integer", err))
			return
		}

		entry, err := history.GetDetections(c.Request.Context(), id)
		if errors.Is(err, repository.ErrDetectionNotFound) {
			respondError(c, http.StatusNotFound, "history entry not found", apperrors.NewNotFoundError(fmt.Sprintf("no entry %d", id), err))
			return
		}
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to read history", err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

func metrics(collector *broadcast.MetricsCollector, pool detector.PoolStatsReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := collector.GetMetrics()
		if pool != nil {
			stats := pool.PoolStats()
			body["detector_pool"] = gin.H{
				"total_jobs":     stats.TotalJobs,
				"completed_jobs": stats.CompletedJobs,
				"active_workers": stats.ActiveWorkers,
			}
		}
		c.JSON(http.StatusOK, body)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
