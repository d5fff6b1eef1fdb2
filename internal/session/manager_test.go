package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/fluxgen/internal/core/domain"
)

func TestManager_CreateGet(t *testing.T) {
	m := newTestManager(&fakeProvider{})
	ctx := context.Background()

	s, err := m.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.ID == "" {
		t.Fatal("expected session id")
	}

	got, err := m.Get(ctx, s.ID)
	if err != nil || got != s {
		t.Errorf("Get: %v %v", got, err)
	}
	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := m.Get(ctx, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for empty id, got %v", err)
	}
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	p := &fakeProvider{}
	m := newTestManager(p)
	ctx := context.Background()

	a, _ := m.Create(ctx)
	b, _ := m.Create(ctx)

	a.Generate(ctx, request("flux.pro"))
	a.Generate(ctx, request("flux.pro"))

	if a.Dispatcher().Stats().Total != 2 {
		t.Errorf("session a total: %d", a.Dispatcher().Stats().Total)
	}
	if b.Dispatcher().Stats().Total != 0 || len(b.Generations()) != 0 {
		t.Error("session b affected by session a")
	}
}

func TestManager_GetOrCreate(t *testing.T) {
	m := newTestManager(&fakeProvider{})
	ctx := context.Background()

	s, created, err := m.GetOrCreate(ctx, "unknown")
	if err != nil || !created {
		t.Fatalf("expected new session, created=%v err=%v", created, err)
	}
	again, created, err := m.GetOrCreate(ctx, s.ID)
	if err != nil || created || again != s {
		t.Errorf("expected existing session, created=%v err=%v", created, err)
	}
}

func TestManager_Sweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	m := newTestManager(&fakeProvider{}, WithClock(clock))
	ctx := context.Background()

	idle, _ := m.Create(ctx)
	active, _ := m.Create(ctx)

	advance(50 * time.Minute)
	if _, err := m.Get(ctx, active.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}
	advance(20 * time.Minute)

	if n := m.Sweep(ctx); n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}
	if _, err := m.Get(ctx, idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("idle session survived sweep")
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 live session, got %d", m.Len())
	}
}

func TestManager_RestoreFromStore(t *testing.T) {
	p := &fakeProvider{}
	store := newMemoryStore()
	m := newTestManager(p, WithStore(store))
	ctx := context.Background()

	s, _ := m.Create(ctx)
	if _, err := s.AddCustomModel("sdxl", "", "", ""); err != nil {
		t.Fatalf("AddCustomModel: %v", err)
	}
	s.Generate(ctx, request("flux.pro"))
	s.ToggleFavorite("https://img.example/flux.pro.png")
	if err := m.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A second manager over the same store plays the restarted process.
	restarted := newTestManager(p, WithStore(store))
	got, err := restarted.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get after restart: %v", err)
	}
	if !got.Ready() {
		t.Error("restored session should use the default key")
	}
	if len(got.CustomModels()) != 1 || len(got.Generations()) != 1 || len(got.Favorites()) != 1 {
		t.Errorf("state not restored: models=%v gens=%d favs=%v",
			got.CustomModels(), len(got.Generations()), got.Favorites())
	}
	if got.Dispatcher().Stats().Succeeded != 1 {
		t.Errorf("stats not restored: %+v", got.Dispatcher().Stats())
	}

	if err := restarted.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Load(ctx, s.ID); ok {
		t.Error("snapshot not deleted")
	}
}

func TestManager_NotReadyWithoutDefaults(t *testing.T) {
	m := NewManager(Config{}, factoryFor(&fakeProvider{}))
	s, err := m.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Ready() {
		t.Error("expected not ready")
	}
	out := s.Generate(context.Background(), request("flux.pro"))
	if f, ok := out.(*domain.Failure); !ok || f.Diagnosis.Category != domain.CategoryClientNotReady {
		t.Errorf("unexpected outcome: %#v", out)
	}
}

func TestManager_RestoreDropsDefaultKeyForOtherBaseURL(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	err := store.Save(ctx, domain.SessionSnapshot{
		ID:       "s1",
		Settings: domain.Settings{BaseURL: "https://elsewhere.example/v1", Model: "flux.pro"},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	m := newTestManager(&fakeProvider{}, WithStore(store))
	s, err := m.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Ready() || s.Settings().HasAPIKey() {
		t.Errorf("default key kept for %s: ready=%v", s.Settings().BaseURL, s.Ready())
	}
	if s.Settings().BaseURL != "https://elsewhere.example/v1" {
		t.Errorf("base url: got %q", s.Settings().BaseURL)
	}
}
