package domain

import "errors"

// ErrClientNotReady is returned when the generation client could not be
// built, usually because the API key or base URL is missing.
var ErrClientNotReady = errors.New("generation client not ready: api key or base url missing")

type Category string

const (
	CategoryProviderFault     Category = "provider_fault"
	CategoryAuthentication    Category = "authentication"
	CategoryRateLimited       Category = "rate_limited"
	CategoryModelUnavailable  Category = "model_unavailable"
	CategoryNetwork           Category = "network"
	CategoryInvalidParameters Category = "invalid_parameters"
	CategoryContentPolicy     Category = "content_policy"
	CategoryClientNotReady    Category = "client_not_ready"
	CategoryUnknown           Category = "unknown"
)

// Categories lists every category in classification order.
var Categories = []Category{
	CategoryProviderFault,
	CategoryAuthentication,
	CategoryRateLimited,
	CategoryModelUnavailable,
	CategoryNetwork,
	CategoryInvalidParameters,
	CategoryContentPolicy,
	CategoryClientNotReady,
	CategoryUnknown,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ErrorDiagnosis is the structured classification of one failure.
type ErrorDiagnosis struct {
	Pattern     string         `json:"pattern"`
	Category    Category       `json:"category"`
	Severity    Severity       `json:"severity"`
	Retryable   bool           `json:"retryable"`
	Remediation []string       `json:"remediation"`
	RawMessage  string         `json:"raw_message"`
	Context     map[string]any `json:"context,omitempty"`
}
