package domain

import "time"

// Settings are the per-session provider settings.
type Settings struct {
	APIKey  string `json:"-"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// HasAPIKey reports whether a key is configured without exposing it.
func (s Settings) HasAPIKey() bool {
	return s.APIKey != ""
}

// Generation is one entry of the generation history.
type Generation struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Prompt    string         `json:"prompt"`
	Model     string         `json:"model"`
	Size      string         `json:"size"`
	Count     int            `json:"n"`
	Extra     map[string]any `json:"extra,omitempty"`
	Images    []Image        `json:"images"`
	Attempts  int            `json:"attempts"`
}

// SessionSnapshot is the persisted, non-secret part of a session.
type SessionSnapshot struct {
	ID              string       `json:"id"`
	Settings        Settings     `json:"settings"`
	CustomModels    []ModelInfo  `json:"custom_models"`
	LastCustomModel string       `json:"last_custom_model,omitempty"`
	Generations     []Generation `json:"generations"`
	Favorites       []string     `json:"favorites"`
	Stats           SessionStats `json:"stats"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
