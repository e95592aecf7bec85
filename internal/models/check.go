package models

import (
	"time"
)

/**
 * Marker and output files the workers leave in the workspace
 * @property {string} latestMarker - newest completion marker, empty when none was found
 * @property {time.Time} markerTime - modification time of latestMarker
 * @property {int} markerCount - number of completion markers
 * @property {int} resultsEntries - top-level entries of the results artifact, -1 when unreadable
 * @property {bool} resultsPresent - results artifact exists
 * @property {int} deadEndpoints - entries of the dead-endpoint record, -1 when unreadable
 * @property {bool} deadEndpointsPresent - dead-endpoint record exists
 * @property {[]string} problems - files that exist but could not be parsed
 */
type ArtifactsReport struct {
	LatestMarker         string     `json:"latestMarker,omitempty" yaml:"latestMarker,omitempty"`
	MarkerTime           *time.Time `json:"markerTime,omitempty" yaml:"markerTime,omitempty"`
	MarkerCount          int        `json:"markerCount" yaml:"markerCount"`
	ResultsPresent       bool       `json:"resultsPresent" yaml:"resultsPresent"`
	ResultsEntries       int        `json:"resultsEntries" yaml:"resultsEntries"`
	DeadEndpointsPresent bool       `json:"deadEndpointsPresent" yaml:"deadEndpointsPresent"`
	DeadEndpoints        int        `json:"deadEndpoints" yaml:"deadEndpoints"`
	Problems             []string   `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// StatusReport is the live view served by `status` and GET /api/v1/status.
type StatusReport struct {
	Timestamp     time.Time       `json:"timestamp" yaml:"timestamp"`
	OverallStatus string          `json:"overallStatus" yaml:"overallStatus"`
	Services      []ServiceState  `json:"services" yaml:"services"`
	Proxy         *ProxyProbe     `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Artifacts     ArtifactsReport `json:"artifacts" yaml:"artifacts"`
	LastRun       *RunOutcome     `json:"lastRun,omitempty" yaml:"lastRun,omitempty"`
}

const (
	OverallHealthy  = "healthy"
	OverallDegraded = "degraded"
)
