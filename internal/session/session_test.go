package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/fluxgen/internal/core/domain"
	"github.com/vietddude/fluxgen/internal/dispatch"
)

// =============================================================================
// Mocks
// =============================================================================

type fakeProvider struct {
	mu       sync.Mutex
	requests []domain.GenerationRequest
	genErr   error
	listErr  error
	chatErr  error
}

func (f *fakeProvider) Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.genErr != nil {
		return nil, f.genErr
	}
	return []domain.Image{{URL: "https://img.example/" + req.Model + ".png"}}, nil
}

func (f *fakeProvider) ListModels(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []string{"flux.schnell"}, nil
}

func (f *fakeProvider) Optimize(ctx context.Context, prompt string) (string, error) {
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return "better " + prompt, nil
}

func (f *fakeProvider) Describe(ctx context.Context, imageURL string) (string, error) {
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return "a described image", nil
}

func (f *fakeProvider) lastRequest() domain.GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// factoryFor returns a factory handing out p for any settings with a key.
func factoryFor(p *fakeProvider) ProviderFactory {
	return func(s domain.Settings) (Provider, error) {
		if s.APIKey == "" || s.BaseURL == "" {
			return nil, domain.ErrClientNotReady
		}
		return p, nil
	}
}

type memoryStore struct {
	mu    sync.Mutex
	snaps map[string]domain.SessionSnapshot
}

func newMemoryStore() *memoryStore {
	return &memoryStore{snaps: make(map[string]domain.SessionSnapshot)}
}

func (m *memoryStore) Save(ctx context.Context, snap domain.SessionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.ID] = snap
	return nil
}

func (m *memoryStore) Load(ctx context.Context, id string) (domain.SessionSnapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[id]
	return snap, ok, nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, id)
	return nil
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

var testSettings = domain.Settings{APIKey: "sk-test", BaseURL: "https://api.navy/v1", Model: "flux.schnell"}

func newTestManager(p *fakeProvider, opts ...Option) *Manager {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithDispatchOptions(dispatch.WithSleeper(noSleep), dispatch.WithJitter(dispatch.NoJitter)),
	}
	return NewManager(Config{
		Defaults: testSettings,
		Dispatch: dispatch.DefaultConfig(),
		IdleTTL:  time.Hour,
	}, factoryFor(p), append(base, opts...)...)
}

func request(model string) domain.GenerationRequest {
	return domain.GenerationRequest{Model: model, Prompt: "a cat", Count: 1, Size: "1024x1024"}
}

// =============================================================================
// Tests
// =============================================================================

func TestSession_ConfigureReadiness(t *testing.T) {
	m := newTestManager(&fakeProvider{})
	s, err := m.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !s.Ready() {
		t.Fatal("expected session ready with default key")
	}

	if err := s.Configure(domain.Settings{BaseURL: "https://api.navy/v1"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if s.Ready() {
		t.Error("expected not ready without key")
	}

	out := s.Generate(context.Background(), request("flux.pro"))
	f, ok := out.(*domain.Failure)
	if !ok {
		t.Fatalf("expected failure, got %T", out)
	}
	if f.Diagnosis.Category != domain.CategoryClientNotReady || f.Attempts != 0 {
		t.Errorf("unexpected failure: %+v", f)
	}
}

func TestSession_ConfigureFactoryError(t *testing.T) {
	boom := errors.New("bad proxy")
	m := NewManager(Config{Dispatch: dispatch.DefaultConfig()}, func(domain.Settings) (Provider, error) {
		return nil, boom
	})
	_, err := m.Create(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected factory error, got %v", err)
	}
}

func TestSession_GenerateRecordsHistory(t *testing.T) {
	p := &fakeProvider{}
	s, _ := newTestManager(p).Create(context.Background())

	for i := 0; i < GenerationLimit+5; i++ {
		out := s.Generate(context.Background(), request("flux.pro"))
		if _, ok := out.(*domain.Success); !ok {
			t.Fatalf("expected success, got %T", out)
		}
	}

	gens := s.Generations()
	if len(gens) != GenerationLimit {
		t.Fatalf("expected %d generations, got %d", GenerationLimit, len(gens))
	}
	if gens[0].Timestamp.Before(gens[len(gens)-1].Timestamp) {
		t.Error("expected newest first")
	}
	if gens[0].Model != "flux.pro" || len(gens[0].Images) != 1 || gens[0].ID == "" {
		t.Errorf("unexpected generation: %+v", gens[0])
	}
}

func TestSession_GenerateDefaultsModel(t *testing.T) {
	p := &fakeProvider{}
	s, _ := newTestManager(p).Create(context.Background())

	s.Generate(context.Background(), request(""))
	if got := p.lastRequest().Model; got != "flux.schnell" {
		t.Errorf("expected settings model, got %q", got)
	}
}

func TestSession_CustomParamsOnlyForCustomModels(t *testing.T) {
	p := &fakeProvider{}
	s, _ := newTestManager(p).Create(context.Background())
	if _, err := s.AddCustomModel("my-model", "", "", ""); err != nil {
		t.Fatalf("AddCustomModel: %v", err)
	}

	req := request("flux.pro")
	req.Extra = map[string]any{"style": "vivid"}
	s.Generate(context.Background(), req)
	if p.lastRequest().Extra != nil {
		t.Error("custom params sent for built-in model")
	}

	req.Model = "my-model"
	s.Generate(context.Background(), req)
	if p.lastRequest().Extra["style"] != "vivid" {
		t.Error("custom params dropped for custom model")
	}
	if s.LastCustomModel() != "my-model" {
		t.Errorf("last custom model: %q", s.LastCustomModel())
	}
}

func TestSession_AddCustomModel(t *testing.T) {
	s, _ := newTestManager(&fakeProvider{}).Create(context.Background())

	info, err := s.AddCustomModel("  sdxl  ", "", "", "")
	if err != nil {
		t.Fatalf("AddCustomModel: %v", err)
	}
	if info.ID != "sdxl" || info.Name != "Custom model sdxl" || info.Icon != domain.DefaultCustomIcon {
		t.Errorf("unexpected defaults: %+v", info)
	}

	tests := []struct {
		name string
		id   string
		want error
	}{
		{"duplicate custom", "sdxl", ErrDuplicateModel},
		{"duplicate builtin", "flux.pro", ErrDuplicateModel},
		{"empty", "  ", ErrEmptyModelID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.AddCustomModel(tt.id, "", "", ""); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	models := s.Models()
	if len(models) != len(domain.Catalog)+1 || models[len(models)-1].ID != "sdxl" {
		t.Errorf("unexpected models: %+v", models)
	}
}

func TestSession_ToggleFavorite(t *testing.T) {
	s, _ := newTestManager(&fakeProvider{}).Create(context.Background())

	if !s.ToggleFavorite("u1") || !s.ToggleFavorite("u2") {
		t.Fatal("expected favorites added")
	}
	if s.ToggleFavorite("u1") {
		t.Error("expected u1 removed")
	}
	if favs := s.Favorites(); len(favs) != 1 || favs[0] != "u2" {
		t.Errorf("unexpected favorites: %v", favs)
	}
}

func TestSession_ProviderHelpers(t *testing.T) {
	p := &fakeProvider{}
	s, _ := newTestManager(p).Create(context.Background())
	ctx := context.Background()

	if models, err := s.TestConnectivity(ctx); err != nil || len(models) != 1 {
		t.Errorf("TestConnectivity: %v %v", models, err)
	}
	if out, err := s.OptimizePrompt(ctx, "cat"); err != nil || out != "better cat" {
		t.Errorf("OptimizePrompt: %q %v", out, err)
	}
	if out, err := s.DescribeImage(ctx, "https://img.example/x.png"); err != nil || out == "" {
		t.Errorf("DescribeImage: %q %v", out, err)
	}
}

func TestSession_ProviderHelpersDiagnose(t *testing.T) {
	p := &fakeProvider{
		listErr: errors.New("http 401: invalid api key"),
		chatErr: errors.New("http 429: too many requests"),
	}
	s, _ := newTestManager(p).Create(context.Background())
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func() error
		expected domain.Category
	}{
		{"connectivity", func() error { _, err := s.TestConnectivity(ctx); return err }, domain.CategoryAuthentication},
		{"optimize", func() error { _, err := s.OptimizePrompt(ctx, "cat"); return err }, domain.CategoryRateLimited},
		{"describe", func() error { _, err := s.DescribeImage(ctx, "u"); return err }, domain.CategoryRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var derr *DiagnosedError
			if !errors.As(tt.call(), &derr) {
				t.Fatal("expected DiagnosedError")
			}
			if derr.Diagnosis.Category != tt.expected {
				t.Errorf("got %s, want %s", derr.Diagnosis.Category, tt.expected)
			}
			if len(derr.Diagnosis.Remediation) == 0 {
				t.Error("expected remediation")
			}
		})
	}
}

func TestSession_HelpersNotReady(t *testing.T) {
	s, _ := newTestManager(&fakeProvider{}).Create(context.Background())
	_ = s.Configure(domain.Settings{})

	_, err := s.TestConnectivity(context.Background())
	var derr *DiagnosedError
	if !errors.As(err, &derr) || derr.Diagnosis.Category != domain.CategoryClientNotReady {
		t.Errorf("expected client_not_ready, got %v", err)
	}
}

func TestSession_SnapshotOmitsAPIKey(t *testing.T) {
	s, _ := newTestManager(&fakeProvider{}).Create(context.Background())
	snap := s.Snapshot()
	if snap.Settings.APIKey != "" {
		t.Error("snapshot carries api key")
	}
	if snap.Settings.BaseURL != testSettings.BaseURL {
		t.Errorf("base url: %q", snap.Settings.BaseURL)
	}
}

func TestSession_DefaultKeyStaysWithDefaultBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.Settings
		keyKept  bool
	}{
		{"default url", testSettings, true},
		{"trailing slash", domain.Settings{APIKey: "sk-test", BaseURL: "https://api.navy/v1/"}, true},
		{"other url", domain.Settings{APIKey: "sk-test", BaseURL: "https://elsewhere.example/v1"}, false},
		{"own key on other url", domain.Settings{APIKey: "sk-mine", BaseURL: "https://elsewhere.example/v1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(&fakeProvider{})
			s, _ := m.Create(context.Background())
			if err := s.Configure(tt.settings); err != nil {
				t.Fatalf("Configure: %v", err)
			}
			if got := s.Settings().HasAPIKey(); got != tt.keyKept {
				t.Errorf("key kept: got %v, want %v", got, tt.keyKept)
			}
			if s.Ready() != tt.keyKept {
				t.Errorf("ready: got %v", s.Ready())
			}
		})
	}
}
