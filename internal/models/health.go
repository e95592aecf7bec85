package models

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Version   string  `json:"version" example:"1.0.0"`
	StartTime string  `json:"startTime" example:"2024-01-01T10:00:00Z"`
	Status    string  `json:"status" example:"UP"`
	Uptime    string  `json:"uptime" example:"1h30m45s"`
	Metrics   Metrics `json:"metrics"`
}

// Metrics summarises the status server and the last provisioning run.
type Metrics struct {
	TotalRequests    int64  `json:"totalRequests" example:"1000"`
	ErrorRequests    int64  `json:"errorRequests" example:"5"`
	LastRunID        string `json:"lastRunId,omitempty" example:"0f8fad5b-d9cb-469f-a165-70867728950e"`
	LastRunSucceeded bool   `json:"lastRunSucceeded" example:"true"`
}
