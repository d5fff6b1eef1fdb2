// Package health reports whether the default provider is reachable.
package health

import (
	"time"

	"github.com/vietddude/fluxgen/internal/core/domain"
)

// SystemStatus represents the overall health state of the service.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ProviderHealth is the result of the last provider probe.
type ProviderHealth struct {
	BaseURL    string                 `json:"base_url,omitempty"`
	Configured bool                   `json:"configured"`
	Status     SystemStatus           `json:"status"`
	Models     int                    `json:"models"`
	Latency    time.Duration          `json:"latency"`
	CheckedAt  time.Time              `json:"checked_at"`
	Diagnosis  *domain.ErrorDiagnosis `json:"diagnosis,omitempty"`
}

// Report contains the full health report.
type Report struct {
	SystemStatus SystemStatus   `json:"system_status"`
	Provider     ProviderHealth `json:"provider"`
	Sessions     int            `json:"sessions"`
}
