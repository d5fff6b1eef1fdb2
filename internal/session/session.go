// Package session holds per-browser-session state: provider settings, the
// session's dispatcher, custom models, generation history and favorites.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/fluxgen/internal/core/domain"
	"github.com/vietddude/fluxgen/internal/diagnose"
	"github.com/vietddude/fluxgen/internal/dispatch"
)

// GenerationLimit is the number of generations kept per session.
const GenerationLimit = 50

// Provider is everything a session needs from the image provider.
type Provider interface {
	dispatch.Generator
	ListModels(ctx context.Context) ([]string, error)
	Optimize(ctx context.Context, prompt string) (string, error)
	Describe(ctx context.Context, imageURL string) (string, error)
}

// ProviderFactory builds a provider for the given settings. It returns
// domain.ErrClientNotReady when the settings are incomplete.
type ProviderFactory func(settings domain.Settings) (Provider, error)

// Session is the state of one user session.
type Session struct {
	ID string

	dispatcher *dispatch.Dispatcher
	factory    ProviderFactory
	defaults   domain.Settings
	log        *slog.Logger

	mu           sync.RWMutex
	settings     domain.Settings
	provider     Provider
	customModels []domain.ModelInfo
	lastCustom   string
	generations  []domain.Generation
	favorites    []string
	lastSeen     time.Time
}

func newSession(id string, d *dispatch.Dispatcher, factory ProviderFactory, defaults domain.Settings, log *slog.Logger, now time.Time) *Session {
	return &Session{
		ID:         id,
		dispatcher: d,
		factory:    factory,
		defaults:   defaults,
		log:        log.With("session", id),
		lastSeen:   now,
	}
}

// Configure stores settings and rebuilds the provider. Incomplete settings
// are stored and leave the session not ready. The default API key is only
// ever sent to the default base URL.
func (s *Session) Configure(settings domain.Settings) error {
	settings.APIKey = strings.TrimSpace(settings.APIKey)
	settings.BaseURL = strings.TrimSpace(settings.BaseURL)
	if s.usesDefaultKeyElsewhere(settings) {
		s.log.Warn("Dropping default API key for custom base URL", "base_url", settings.BaseURL)
		settings.APIKey = ""
	}

	var provider Provider
	if s.factory != nil {
		p, err := s.factory(settings)
		switch {
		case errors.Is(err, domain.ErrClientNotReady):
		case err != nil:
			return fmt.Errorf("configure provider: %w", err)
		default:
			provider = p
		}
	}

	s.mu.Lock()
	s.settings = settings
	s.provider = provider
	s.mu.Unlock()

	if provider == nil {
		s.dispatcher.SetGenerator(nil)
		s.log.Info("Provider not configured", "base_url", settings.BaseURL, "has_key", settings.HasAPIKey())
		return nil
	}
	s.dispatcher.SetGenerator(provider)
	s.log.Info("Provider configured", "base_url", settings.BaseURL, "model", settings.Model)
	return nil
}

func (s *Session) usesDefaultKeyElsewhere(settings domain.Settings) bool {
	key := strings.TrimSpace(s.defaults.APIKey)
	if key == "" || settings.APIKey != key {
		return false
	}
	return normalizeBaseURL(settings.BaseURL) != normalizeBaseURL(s.defaults.BaseURL)
}

func normalizeBaseURL(u string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(u)), "/")
}

// Settings returns the current settings.
func (s *Session) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Ready reports whether generation requests can be sent.
func (s *Session) Ready() bool {
	return s.dispatcher.Ready()
}

// Dispatcher returns the session's dispatcher.
func (s *Session) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

// Generate dispatches req and records successful generations.
func (s *Session) Generate(ctx context.Context, req domain.GenerationRequest) domain.Outcome {
	if req.Model == "" {
		req.Model = s.Settings().Model
	}
	if s.isCustom(req.Model) {
		s.SetLastCustomModel(req.Model)
	} else {
		req.Extra = nil
	}

	outcome := s.dispatcher.Dispatch(ctx, req)
	if success, ok := outcome.(*domain.Success); ok {
		s.recordGeneration(req, success)
	}
	return outcome
}

func (s *Session) recordGeneration(req domain.GenerationRequest, success *domain.Success) {
	g := domain.Generation{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Prompt:    req.Prompt,
		Model:     success.Model,
		Size:      req.Size,
		Count:     req.Count,
		Extra:     req.Extra,
		Images:    success.Images,
		Attempts:  success.Attempts,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations = append(s.generations, g)
	if len(s.generations) > GenerationLimit {
		s.generations = slices.Clone(s.generations[len(s.generations)-GenerationLimit:])
	}
}

// Generations returns the generation history, newest first.
func (s *Session) Generations() []domain.Generation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.generations)
	slices.Reverse(out)
	return out
}

// AddCustomModel registers a model ID for this session.
func (s *Session) AddCustomModel(id, name, description, icon string) (domain.ModelInfo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ModelInfo{}, ErrEmptyModelID
	}
	if _, ok := domain.LookupModel(domain.ModelID(id)); ok {
		return domain.ModelInfo{}, fmt.Errorf("%w: %s", ErrDuplicateModel, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.customModels {
		if string(m.ID) == id {
			return domain.ModelInfo{}, fmt.Errorf("%w: %s", ErrDuplicateModel, id)
		}
	}
	info := domain.NewCustomModel(id, strings.TrimSpace(name), strings.TrimSpace(description), strings.TrimSpace(icon))
	s.customModels = append(s.customModels, info)
	return info, nil
}

// CustomModels returns the registered custom models in insertion order.
func (s *Session) CustomModels() []domain.ModelInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.customModels)
}

// Models returns the built-in catalog followed by the custom models.
func (s *Session) Models() []domain.ModelInfo {
	return append(slices.Clone(domain.Catalog), s.CustomModels()...)
}

func (s *Session) isCustom(model string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.ContainsFunc(s.customModels, func(m domain.ModelInfo) bool {
		return string(m.ID) == model
	})
}

// SetLastCustomModel remembers the custom model used last.
func (s *Session) SetLastCustomModel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCustom = id
}

func (s *Session) LastCustomModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCustom
}

// ToggleFavorite adds url to the favorites, or removes it if present. It
// reports whether url is a favorite afterwards.
func (s *Session) ToggleFavorite(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.favorites, url); i >= 0 {
		s.favorites = slices.Delete(s.favorites, i, i+1)
		return false
	}
	s.favorites = append(s.favorites, url)
	return true
}

func (s *Session) Favorites() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.favorites)
}

// TestConnectivity lists the provider's models. Failures are classified.
func (s *Session) TestConnectivity(ctx context.Context) ([]string, error) {
	p, err := s.readyProvider()
	if err != nil {
		return nil, err
	}
	models, err := p.ListModels(ctx)
	if err != nil {
		return nil, s.diagnosed(err, map[string]any{"operation": "list_models"})
	}
	return models, nil
}

// OptimizePrompt rewrites prompt with the chat model.
func (s *Session) OptimizePrompt(ctx context.Context, prompt string) (string, error) {
	p, err := s.readyProvider()
	if err != nil {
		return "", err
	}
	out, err := p.Optimize(ctx, prompt)
	if err != nil {
		return "", s.diagnosed(err, map[string]any{"operation": "optimize_prompt"})
	}
	return out, nil
}

// DescribeImage turns an image into a generation prompt.
func (s *Session) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	p, err := s.readyProvider()
	if err != nil {
		return "", err
	}
	out, err := p.Describe(ctx, imageURL)
	if err != nil {
		return "", s.diagnosed(err, map[string]any{"operation": "describe_image"})
	}
	return out, nil
}

func (s *Session) readyProvider() (Provider, error) {
	s.mu.RLock()
	p := s.provider
	s.mu.RUnlock()
	if p == nil {
		return nil, &DiagnosedError{Diagnosis: diagnose.ForCategory(
			domain.CategoryClientNotReady,
			domain.ErrClientNotReady.Error(),
			nil,
		)}
	}
	return p, nil
}

func (s *Session) diagnosed(err error, ctx map[string]any) error {
	diag := diagnose.ClassifyError(err, ctx)
	s.log.Warn("Provider call failed", "operation", ctx["operation"], "category", diag.Category, "error", err)
	return &DiagnosedError{Diagnosis: diag}
}

// Touch marks the session as used at now.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// Snapshot returns the persistable state. The API key is left out.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := s.settings
	settings.APIKey = ""
	return domain.SessionSnapshot{
		ID:              s.ID,
		Settings:        settings,
		CustomModels:    slices.Clone(s.customModels),
		LastCustomModel: s.lastCustom,
		Generations:     slices.Clone(s.generations),
		Favorites:       slices.Clone(s.favorites),
		Stats:           s.dispatcher.Stats(),
		UpdatedAt:       s.lastSeen,
	}
}

func (s *Session) restore(snap domain.SessionSnapshot) {
	s.mu.Lock()
	s.customModels = slices.Clone(snap.CustomModels)
	s.lastCustom = snap.LastCustomModel
	s.generations = slices.Clone(snap.Generations)
	if len(s.generations) > GenerationLimit {
		s.generations = s.generations[len(s.generations)-GenerationLimit:]
	}
	s.favorites = slices.Clone(snap.Favorites)
	s.mu.Unlock()

	if snap.Stats.ByCategory == nil {
		snap.Stats.ByCategory = make(map[domain.Category]int)
	}
	s.dispatcher.RestoreStats(snap.Stats)
}
