package domain

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	MaxPromptLength = 4000
	MinImageCount   = 1
	MaxImageCount   = 4

	DefaultSize = "1024x1024"
)

// Sizes lists the image sizes a request may ask for.
var Sizes = []string{"512x512", "1024x1024"}

// GenerationRequest holds the parameters of one image generation call.
// It is passed by value; fallback attempts work on copies.
type GenerationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Count  int    `json:"n"`
	Size   string `json:"size"`

	// Extra is forwarded as-is for custom models (style, strength, ...).
	Extra map[string]any `json:"extra,omitempty"`
}

// ValidationError describes the first parameter that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

// Validate checks the request against the provider limits.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return &ValidationError{Field: "model", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return &ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	if n := utf8.RuneCountInString(r.Prompt); n > MaxPromptLength {
		return &ValidationError{
			Field:  "prompt",
			Reason: fmt.Sprintf("is %d characters, limit is %d", n, MaxPromptLength),
		}
	}
	if r.Count < MinImageCount || r.Count > MaxImageCount {
		return &ValidationError{
			Field:  "n",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinImageCount, MaxImageCount, r.Count),
		}
	}
	if !IsSupportedSize(r.Size) {
		return &ValidationError{
			Field:  "size",
			Reason: fmt.Sprintf("must be one of %s, got %q", strings.Join(Sizes, ", "), r.Size),
		}
	}
	return nil
}

// IsSupportedSize reports whether size is one of Sizes.
func IsSupportedSize(size string) bool {
	return slices.Contains(Sizes, size)
}

// WithModel returns a copy of r targeting another model.
func (r GenerationRequest) WithModel(model string) GenerationRequest {
	r.Model = model
	r.Extra = cloneExtra(r.Extra)
	return r
}

// Simplified returns a copy with one parameter reduced toward the minimum
// (count first, then size). ok is false when r is already minimal.
func (r GenerationRequest) Simplified() (GenerationRequest, bool) {
	out := r
	out.Extra = cloneExtra(r.Extra)
	switch {
	case r.Count > MinImageCount:
		out.Count = MinImageCount
	case r.Size != DefaultSize:
		out.Size = DefaultSize
	default:
		return r, false
	}
	return out, true
}

// Params returns the non-prompt parameters, used as diagnosis context.
func (r GenerationRequest) Params() map[string]any {
	return map[string]any{
		"model": r.Model,
		"n":     r.Count,
		"size":  r.Size,
	}
}

func cloneExtra(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
