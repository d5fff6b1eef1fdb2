// Package diagnose turns raw provider error text into structured diagnoses.
//
// Matching is keyword based because upstream error text is not stable. The
// rule table is plain data: rules are tried in order and the first one with a
// matching keyword wins.
package diagnose

import (
	"strings"

	"github.com/vietddude/fluxgen/internal/core/domain"
)

// MaxRawMessage is the number of runes kept from the original message.
const MaxRawMessage = 500

const patternUnmatched = "unmatched"

// Classifier classifies messages against a fixed rule table.
type Classifier struct {
	rules []compiledRule
}

type compiledRule struct {
	Rule
	keywords []string
}

// New builds a classifier. Rules with an unknown category or without a
// usable keyword are dropped.
func New(rules []Rule) *Classifier {
	c := &Classifier{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		if !r.Category.Valid() {
			continue
		}
		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) == 0 {
			continue
		}
		c.rules = append(c.rules, compiledRule{Rule: r, keywords: keywords})
	}
	return c
}

var defaultClassifier = New(DefaultRules())

// Default returns the classifier built from DefaultRules.
func Default() *Classifier {
	return defaultClassifier
}

// Classify classifies raw with the default rule table.
func Classify(raw string, ctx map[string]any) domain.ErrorDiagnosis {
	return defaultClassifier.Classify(raw, ctx)
}

// ClassifyError classifies err with the default rule table.
func ClassifyError(err error, ctx map[string]any) domain.ErrorDiagnosis {
	return defaultClassifier.ClassifyError(err, ctx)
}

// ClassifyError stringifies err and classifies it.
func (c *Classifier) ClassifyError(err error, ctx map[string]any) domain.ErrorDiagnosis {
	if err == nil {
		return c.Classify("", ctx)
	}
	return c.Classify(err.Error(), ctx)
}

// Classify returns the diagnosis of the first matching rule, or an unknown
// diagnosis when nothing matches. It never panics.
func (c *Classifier) Classify(raw string, ctx map[string]any) (d domain.ErrorDiagnosis) {
	defer func() {
		if r := recover(); r != nil {
			d = unknown(raw, ctx)
		}
	}()

	lower := strings.ToLower(raw)
	for _, r := range c.rules {
		for _, k := range r.keywords {
			if strings.Contains(lower, k) {
				return build(r.Rule, raw, ctx)
			}
		}
	}
	return unknown(raw, ctx)
}

// Rules returns a copy of the rule table in match order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = r.Rule
	}
	return out
}

func build(r Rule, raw string, ctx map[string]any) domain.ErrorDiagnosis {
	remediation := r.Remediation
	if len(remediation) == 0 {
		remediation = genericRemediation
	}
	return domain.ErrorDiagnosis{
		Pattern:     r.Pattern,
		Category:    r.Category,
		Severity:    r.Severity,
		Retryable:   r.Retryable,
		Remediation: append([]string(nil), remediation...),
		RawMessage:  truncate(raw, MaxRawMessage),
		Context:     copyContext(ctx),
	}
}

func unknown(raw string, ctx map[string]any) domain.ErrorDiagnosis {
	return domain.ErrorDiagnosis{
		Pattern:     patternUnmatched,
		Category:    domain.CategoryUnknown,
		Severity:    domain.SeverityMedium,
		Retryable:   true,
		Remediation: append([]string(nil), genericRemediation...),
		RawMessage:  truncate(raw, MaxRawMessage),
		Context:     copyContext(ctx),
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func copyContext(ctx map[string]any) map[string]any {
	if len(ctx) == 0 {
		return nil
	}
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}

// ForCategory builds a diagnosis of the given category from the default
// table, for failures detected before any provider call. Extra remediation
// lines are placed first.
func ForCategory(category domain.Category, raw string, ctx map[string]any, extra ...string) domain.ErrorDiagnosis {
	d := unknown(raw, ctx)
	for _, r := range defaultClassifier.rules {
		if r.Category == category {
			d = build(r.Rule, raw, ctx)
			break
		}
	}
	if len(extra) > 0 {
		d.Remediation = append(append([]string(nil), extra...), d.Remediation...)
	}
	return d
}
