package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/fluxgen/internal/core/domain"
	"github.com/vietddude/fluxgen/internal/diagnose"
)

func TestRenderOutcome(t *testing.T) {
	diag := diagnose.Classify("HTTP 500 unexpected provider error", nil)

	tests := []struct {
		name    string
		outcome domain.Outcome
		want    []string
	}{
		{
			name: "success",
			outcome: &domain.Success{
				Images:   []domain.Image{{URL: "https://img.example/1.png"}},
				Attempts: 2,
				Model:    "flux.schnell",
				History: []domain.AttemptRecord{
					{Sequence: 1, Model: "flux.pro", Diagnosis: &diag, Delay: 3 * time.Second},
					{Sequence: 2, Model: "flux.schnell", Success: true},
				},
			},
			want: []string{"Generated", "flux.schnell", "https://img.example/1.png", "provider_fault", "waited 3s"},
		},
		{
			name: "failure",
			outcome: &domain.Failure{
				Diagnosis: diag,
				Attempts:  3,
			},
			want: []string{"Generation failed", "after 3 attempt(s)", "Diagnosis", "provider_fault", "What to try"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			renderOutcome(&buf, tt.outcome)
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestRenderDiagnosis(t *testing.T) {
	var buf bytes.Buffer
	renderDiagnosis(&buf, diagnose.Classify("401 Unauthorized", nil))

	out := buf.String()
	for _, w := range []string{"authentication", "critical", "retryable: false", "1."} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestRenderModels(t *testing.T) {
	var buf bytes.Buffer
	renderModels(&buf, domain.Catalog)
	for _, m := range domain.Catalog {
		if !strings.Contains(buf.String(), string(m.ID)) {
			t.Errorf("output missing %s", m.ID)
		}
	}
}
