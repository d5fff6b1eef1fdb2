package metrics

import "testing"

func TestModelLabel(t *testing.T) {
	tests := []struct {
		model    string
		expected string
	}{
		{"flux.schnell", "flux.schnell"},
		{"flux.krea-dev", "flux.krea-dev"},
		{"flux.pro", "flux.pro"},
		{"custom", "custom"},
		{"sdxl-turbo", "custom"},
		{"", "custom"},
	}
	for _, tt := range tests {
		if got := ModelLabel(tt.model); got != tt.expected {
			t.Errorf("ModelLabel(%q) = %q, want %q", tt.model, got, tt.expected)
		}
	}
}
