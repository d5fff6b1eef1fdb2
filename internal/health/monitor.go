package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/fluxgen/internal/core/domain"
	"github.com/vietddude/fluxgen/internal/diagnose"
)

// Prober checks the provider by listing its models.
type Prober interface {
	ListModels(ctx context.Context) ([]string, error)
}

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

// Monitor probes the default provider, at most once per cache interval.
type Monitor struct {
	prober   Prober
	baseURL  string
	sessions SessionCounter
	cacheFor time.Duration
	now      func() time.Time

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport *ProviderHealth
}

// NewMonitor creates a monitor. prober may be nil when no default provider
// is configured; the provider is then reported as unconfigured.
func NewMonitor(prober Prober, baseURL string, sessions SessionCounter) *Monitor {
	return &Monitor{
		prober:   prober,
		baseURL:  baseURL,
		sessions: sessions,
		cacheFor: 10 * time.Second,
		now:      time.Now,
	}
}

// CheckHealth returns the current report.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	provider := m.checkProvider(ctx)

	report := Report{
		SystemStatus: provider.Status,
		Provider:     provider,
	}
	if m.sessions != nil {
		report.Sessions = m.sessions.Len()
	}
	return report
}

func (m *Monitor) checkProvider(ctx context.Context) ProviderHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit probes to avoid spending provider quota
	if m.lastReport != nil && m.now().Sub(m.lastCheck) < m.cacheFor {
		return *m.lastReport
	}

	h := ProviderHealth{
		BaseURL: m.baseURL,
		Status:  StatusHealthy,
	}
	if m.prober != nil {
		h.Configured = true
		start := m.now()
		models, err := m.prober.ListModels(ctx)
		h.Latency = m.now().Sub(start)
		if err != nil {
			diag := diagnose.ClassifyError(err, map[string]any{"operation": "health_probe"})
			h.Diagnosis = &diag
			h.Status = statusFor(diag)
		} else {
			h.Models = len(models)
		}
	}
	h.CheckedAt = m.now()

	m.lastCheck = h.CheckedAt
	m.lastReport = &h
	return h
}

// statusFor: transient failures degrade, anything needing an operator is
// critical.
func statusFor(d domain.ErrorDiagnosis) SystemStatus {
	if d.Retryable {
		return StatusDegraded
	}
	return StatusCritical
}
