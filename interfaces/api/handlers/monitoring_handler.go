package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"course-video-service/domain/ports"
	"course-video-service/pkg/logger"
	"course-video-service/pkg/utils"
)

// HealthCheck คืน error เมื่อ dependency ใช้งานไม่ได้
type HealthCheck func(ctx context.Context) error

// MonitoringHandler health และสถานะ queue
type MonitoringHandler struct {
	jobQueue ports.JobQueuePort
	checks   map[string]HealthCheck
}

func NewMonitoringHandler(jobQueue ports.JobQueuePort, checks map[string]HealthCheck) *MonitoringHandler {
	return &MonitoringHandler{
		jobQueue: jobQueue,
		checks:   checks,
	}
}

// HealthCheck GET /health
func (h *MonitoringHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(fiber.Map, len(names))
	healthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			logger.WarnContext(ctx, "Health check failed", "check", name, "error", err)
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	status := "ok"
	code := fiber.StatusOK
	if !healthy {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": results,
	})
}

// GetQueueStatus GET /api/v1/monitoring/queue
func (h *MonitoringHandler) GetQueueStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if h.jobQueue == nil {
		return utils.ServiceUnavailableResponse(c, "Job queue not available")
	}

	status, err := h.jobQueue.GetQueueStatus(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to get queue status", "error", err)
		return utils.ServiceUnavailableResponse(c, "Job queue not available")
	}

	return utils.SuccessResponse(c, fiber.Map{
		"driver":     status.Driver,
		"stream":     status.StreamName,
		"pending":    status.PendingJobs,
		"ackPending": status.AckPending,
		"consumers":  status.Consumers,
	})
}
