package services

import (
	"context"
	"time"

	"paritybit-setup/internal/env"
	"paritybit-setup/internal/models"
)

// Server backs the HTTP status endpoints.
type Server struct {
	status    *StatusService
	startTime time.Time
}

/**
 * Create the status server backend
 * @param {*StatusService} status - live status source
 * @returns {*Server} New server instance
 */
func NewServer(status *StatusService) *Server {
	return &Server{
		status:    status,
		startTime: time.Now(),
	}
}

func (s *Server) Check(ctx context.Context) models.StatusReport {
	return s.status.Status(ctx)
}

func (s *Server) LastOutcome() (*models.RunOutcome, error) {
	return s.status.LastOutcome()
}

/**
 * Build the readiness response
 * @returns {models.HealthResponse} Version, uptime and request counters
 * @description
 * - Reads the persisted outcome only, no systemctl queries
 */
func (s *Server) GetHealthz() models.HealthResponse {
	uptime := time.Since(s.startTime)

	response := models.HealthResponse{
		Version:   env.Version,
		StartTime: s.startTime.Format(time.RFC3339),
		Status:    "UP",
		Uptime:    uptime.Round(time.Second).String(),
		Metrics: models.Metrics{
			TotalRequests: GetTotalRequestCount(),
			ErrorRequests: GetTotalErrorCount(),
		},
	}
	if last, err := s.status.LastOutcome(); err == nil {
		response.Metrics.LastRunID = last.RunID
		response.Metrics.LastRunSucceeded = last.Succeeded()
	}
	return response
}
