package dispatch

import (
	"time"

	"github.com/vietddude/fluxgen/internal/core/domain"
)

// Action is what the dispatcher does after a failed attempt.
type Action int

const (
	ActionAbort Action = iota
	ActionRetry
	ActionFallback
	ActionSimplify
)

func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionSimplify:
		return "simplify"
	default:
		return "abort"
	}
}

// Decision is the policy result for one failed attempt.
type Decision struct {
	Action  Action
	Delay   time.Duration
	Request domain.GenerationRequest
}

// Decide applies the retry policy to the failed attempt at index attempt
// (zero-based). tried holds the models already used by this dispatch.
func (d *Dispatcher) Decide(
	attempt int,
	diag domain.ErrorDiagnosis,
	current domain.GenerationRequest,
	tried map[string]bool,
) Decision {
	if attempt >= d.cfg.MaxAttempts-1 {
		return Decision{Action: ActionAbort}
	}

	// Fallback and simplification change the request, so they apply even
	// when the diagnosis says the old request is not worth retrying.
	var recovery *Decision
	switch diag.Category {
	case domain.CategoryModelUnavailable:
		if model, ok := d.fallbackFor(current.Model, tried); ok {
			recovery = &Decision{
				Action:  ActionFallback,
				Delay:   d.backoff.Default(attempt),
				Request: current.WithModel(model),
			}
		}
	case domain.CategoryInvalidParameters:
		if simpler, ok := current.Simplified(); ok {
			recovery = &Decision{
				Action:  ActionSimplify,
				Delay:   d.backoff.Default(attempt),
				Request: simpler,
			}
		}
	}

	if !diag.Retryable && recovery == nil {
		return Decision{Action: ActionAbort}
	}
	if recovery != nil {
		return *recovery
	}

	switch diag.Category {
	case domain.CategoryProviderFault:
		return Decision{Action: ActionRetry, Delay: d.backoff.ProviderFault(attempt), Request: current}
	case domain.CategoryRateLimited:
		return Decision{Action: ActionRetry, Delay: d.backoff.RateLimited(attempt), Request: current}
	default:
		return Decision{Action: ActionRetry, Delay: d.backoff.Default(attempt), Request: current}
	}
}

// fallbackFor returns the first configured fallback model that differs
// from current and has not been tried yet.
func (d *Dispatcher) fallbackFor(current string, tried map[string]bool) (string, bool) {
	for _, m := range d.cfg.FallbackModels {
		if m == "" || m == current || tried[m] {
			continue
		}
		return m, true
	}
	return "", false
}
