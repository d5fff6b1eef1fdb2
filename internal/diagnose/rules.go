package diagnose

import "github.com/vietddude/fluxgen/internal/core/domain"

// Rule maps a set of case-insensitive keywords to a diagnosis.
type Rule struct {
	Pattern     string
	Category    domain.Category
	Severity    domain.Severity
	Retryable   bool
	Remediation []string
	Keywords    []string
}

// DefaultRules returns the built-in rule table. Order matters: the first
// matching rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Pattern:   "provider_500",
			Category:  domain.CategoryProviderFault,
			Severity:  domain.SeverityHigh,
			Retryable: true,
			Remediation: []string{
				"The provider failed internally; the request will be retried automatically",
				"Switch to a more stable model such as flux.schnell",
				"Shorten or simplify the prompt",
				"Try again in a few minutes",
			},
			// Status codes only count next to a status marker, so that keys and
			// request IDs containing the digits do not match.
			Keywords: []string{
				"http 500", "status code: 500", "status 500", "error 500", "500 internal",
				"unexpected provider error", "internal server error",
				"http 502", "status code: 502", "status 502", "error 502", "bad gateway",
				"http 503", "status code: 503", "status 503", "error 503", "service unavailable",
			},
		},
		{
			Pattern:   "auth_failed",
			Category:  domain.CategoryAuthentication,
			Severity:  domain.SeverityCritical,
			Retryable: false,
			Remediation: []string{
				"Check that the API key is correct and has not expired",
				"Make sure the key has access to image generation",
				"Verify the base URL belongs to the provider that issued the key",
			},
			Keywords: []string{
				"401", "403", "unauthorized", "forbidden",
				"invalid api key", "incorrect api key",
			},
		},
		{
			Pattern:   "rate_limit",
			Category:  domain.CategoryRateLimited,
			Severity:  domain.SeverityMedium,
			Retryable: true,
			Remediation: []string{
				"Wait before sending the next request",
				"Generate fewer images per request",
				"Check the account quota with the provider",
			},
			Keywords: []string{"429", "rate limit", "too many requests", "quota exceeded"},
		},
		{
			Pattern:   "model_missing",
			Category:  domain.CategoryModelUnavailable,
			Severity:  domain.SeverityHigh,
			Retryable: false,
			Remediation: []string{
				"Pick another model from the catalog",
				"Check the custom model ID for typos",
				"Ask the provider which models the key can use",
			},
			Keywords: []string{"404", "model not found", "invalid model", "does not exist"},
		},
		{
			Pattern:   "network",
			Category:  domain.CategoryNetwork,
			Severity:  domain.SeverityMedium,
			Retryable: true,
			Remediation: []string{
				"Check the network connection",
				"Verify the base URL is reachable",
				"Check proxy or firewall settings",
			},
			Keywords: []string{
				"timeout", "timed out", "connection", "dns", "ssl", "tls",
				"no such host", "eof",
			},
		},
		{
			Pattern:   "bad_request",
			Category:  domain.CategoryInvalidParameters,
			Severity:  domain.SeverityHigh,
			Retryable: false,
			Remediation: []string{
				"Reduce the number of images to 1",
				"Use the default size 1024x1024",
				"Remove special characters from the prompt",
			},
			Keywords: []string{"400", "bad request", "validation error", "invalid parameter"},
		},
		{
			Pattern:   "content_policy",
			Category:  domain.CategoryContentPolicy,
			Severity:  domain.SeverityMedium,
			Retryable: false,
			Remediation: []string{
				"Rephrase the prompt without sensitive content",
				"Describe the scene in more neutral terms",
			},
			Keywords: []string{"content policy", "inappropriate", "blocked", "safety system"},
		},
		{
			Pattern:   "client_not_ready",
			Category:  domain.CategoryClientNotReady,
			Severity:  domain.SeverityCritical,
			Retryable: false,
			Remediation: []string{
				"Save an API key and base URL in the settings",
				"Run the connectivity test after saving the settings",
			},
			Keywords: []string{"client not ready", "client not initialized"},
		},
	}
}

var genericRemediation = []string{
	"Try the request again",
	"Switch to another model",
	"Simplify the prompt",
	"Run the connectivity test to check the provider",
}
