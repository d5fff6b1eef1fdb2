package server

import (
	"github.com/vietddude/fluxgen/internal/core/domain"
)

type customModelRequest struct {
	ID          string `json:"id"          binding:"required"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// settingsRequest leaves the stored key untouched when api_key is omitted.
type settingsRequest struct {
	APIKey  *string `json:"api_key"`
	BaseURL string  `json:"base_url" binding:"omitempty,url"`
	Model   string  `json:"model"`
}

type settingsResponse struct {
	BaseURL   string `json:"base_url"`
	Model     string `json:"model"`
	HasAPIKey bool   `json:"has_api_key"`
	Ready     bool   `json:"ready"`
}

// generateRequest is validated by the dispatcher, not by binding, so that
// bad input comes back as an invalid_parameters diagnosis.
type generateRequest struct {
	Model  string         `json:"model"`
	Prompt string         `json:"prompt"`
	Count  *int           `json:"n"`
	Size   string         `json:"size"`
	Extra  map[string]any `json:"extra"`
}

func (r generateRequest) toDomain() domain.GenerationRequest {
	count := domain.MinImageCount
	if r.Count != nil {
		count = *r.Count
	}
	size := r.Size
	if size == "" {
		size = domain.DefaultSize
	}
	return domain.GenerationRequest{
		Model:  r.Model,
		Prompt: r.Prompt,
		Count:  count,
		Size:   size,
		Extra:  r.Extra,
	}
}

// outcomeResponse is the JSON form of a dispatch outcome.
type outcomeResponse struct {
	Success   bool                   `json:"success"`
	Attempts  int                    `json:"attempts"`
	Model     string                 `json:"model,omitempty"`
	Images    []domain.Image         `json:"images,omitempty"`
	Diagnosis *domain.ErrorDiagnosis `json:"diagnosis,omitempty"`
	History   []domain.AttemptRecord `json:"history"`
}

func newOutcomeResponse(o domain.Outcome) outcomeResponse {
	switch v := o.(type) {
	case *domain.Success:
		return outcomeResponse{
			Success:  true,
			Attempts: v.Attempts,
			Model:    v.Model,
			Images:   v.Images,
			History:  v.History,
		}
	case *domain.Failure:
		diag := v.Diagnosis
		return outcomeResponse{
			Attempts:  v.Attempts,
			Diagnosis: &diag,
			History:   v.History,
		}
	}
	return outcomeResponse{}
}

type diagnoseRequest struct {
	Message string         `json:"message" binding:"required"`
	Context map[string]any `json:"context"`
}

type optimizeRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

type describeRequest struct {
	ImageURL string `json:"image_url" binding:"required"`
}

type favoriteRequest struct {
	URL string `json:"url" binding:"required"`
}

type statsResponse struct {
	domain.SessionStats
	SuccessRate float64 `json:"success_rate"`
}
