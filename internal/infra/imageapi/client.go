// Package imageapi talks to an OpenAI-compatible image provider.
//
// This package contains:
//   - Client: image generation, model listing, prompt helpers
//   - ProviderError: normalized provider failure text
//   - NewHTTPClient: proxy-aware transport
package imageapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vietddude/fluxgen/internal/core/domain"
	"github.com/vietddude/fluxgen/internal/dispatch"
)

const DefaultBaseURL = "https://api.navy/v1"

// Config holds the credentials and endpoint of one provider.
type Config struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	ProxyURL    string        `yaml:"proxy_url"`
	ChatModel   string        `yaml:"chat_model"`
	VisionModel string        `yaml:"vision_model"`
}

// Health is the client-side view of the provider.
type Health struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
}

// Client implements dispatch.Generator over the OpenAI images API.
type Client struct {
	api *openai.Client
	cfg Config

	mu           sync.RWMutex
	health       Health
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int
}

var _ dispatch.Generator = (*Client)(nil)

// New creates a client. It returns domain.ErrClientNotReady when the API
// key or base URL is missing.
func New(cfg Config) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.APIKey == "" || cfg.BaseURL == "" {
		return nil, domain.ErrClientNotReady
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT4oMini
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = openai.GPT4o
	}

	httpClient, err := NewHTTPClient(cfg.ProxyURL, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL
	apiCfg.HTTPClient = httpClient

	return &Client{
		api: openai.NewClientWithConfig(apiCfg),
		cfg: cfg,
		health: Health{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
	}, nil
}

// BaseURL returns the provider endpoint.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Generate requests req.Count images and returns their references.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Image, error) {
	start := time.Now()

	imgReq := openai.ImageRequest{
		Model:          req.Model,
		Prompt:         req.Prompt,
		N:              req.Count,
		Size:           req.Size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	}
	if style, ok := req.Extra["style"].(string); ok && style != "" {
		imgReq.Style = style
	}
	if _, ok := req.Extra["strength"]; ok {
		slog.Debug("Strength is not supported by the images API, dropping it", "model", req.Model)
	}

	resp, err := c.api.CreateImage(ctx, imgReq)
	if err != nil {
		c.recordFailure()
		return nil, normalizeError(err)
	}

	images := make([]domain.Image, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.URL == "" && d.B64JSON == "" {
			continue
		}
		images = append(images, domain.Image{
			URL:           d.URL,
			B64JSON:       d.B64JSON,
			RevisedPrompt: d.RevisedPrompt,
		})
	}
	if len(images) == 0 {
		c.recordFailure()
		return nil, errors.New("unexpected provider error: response contained no images")
	}

	c.recordSuccess(time.Since(start))
	return images, nil
}

// ListModels returns the model IDs the key can see. It doubles as the
// connectivity test.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	start := time.Now()
	list, err := c.api.ListModels(ctx)
	if err != nil {
		c.recordFailure()
		return nil, normalizeError(err)
	}
	c.recordSuccess(time.Since(start))

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Health returns the provider health seen by this client.
func (c *Client) Health() Health {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

func (c *Client) recordSuccess(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.successCount++
	c.requestCount++
	c.totalLatency += latency
	c.health.LastSuccessAt = time.Now()
	c.health.Available = true
	c.health.ErrorRate = float64(c.failureCount) / float64(c.requestCount)
	c.health.Latency = c.totalLatency / time.Duration(c.successCount)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount++
	c.requestCount++
	c.health.LastFailureAt = time.Now()
	c.health.ErrorRate = float64(c.failureCount) / float64(c.requestCount)

	if c.health.ErrorRate > 0.5 {
		c.health.Available = false
	}
}
