package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vietddude/fluxgen/internal/core/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#01cdfe"))
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#05ffa1"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f87"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3d8"))
	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6c6f93")).
			Padding(0, 1)
)

var severityStyles = map[domain.Severity]lipgloss.Style{
	domain.SeverityCritical: failStyle,
	domain.SeverityHigh:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaf00")),
	domain.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd75f")),
	domain.SeverityLow:      mutedStyle,
}

func renderOutcome(w io.Writer, o domain.Outcome) {
	switch v := o.(type) {
	case *domain.Success:
		var b strings.Builder
		b.WriteString(okStyle.Render("✓ Generated"))
		fmt.Fprintf(&b, " %d image(s) with %s after %d attempt(s)\n", len(v.Images), v.Model, v.Attempts)
		for _, img := range v.Images {
			ref := img.URL
			if ref == "" {
				ref = mutedStyle.Render("(inline base64 image)")
			}
			fmt.Fprintf(&b, "  %s\n", ref)
		}
		renderAttempts(&b, v.History)
		fmt.Fprintln(w, panelStyle.Render(strings.TrimRight(b.String(), "\n")))
	case *domain.Failure:
		var b strings.Builder
		b.WriteString(failStyle.Render("✗ Generation failed"))
		fmt.Fprintf(&b, " after %d attempt(s)\n", v.Attempts)
		renderAttempts(&b, v.History)
		fmt.Fprintln(w, panelStyle.Render(strings.TrimRight(b.String(), "\n")))
		renderDiagnosis(w, v.Diagnosis)
	}
}

func renderAttempts(b *strings.Builder, history []domain.AttemptRecord) {
	for _, r := range history {
		status := okStyle.Render("ok")
		detail := ""
		if !r.Success && r.Diagnosis != nil {
			status = failStyle.Render(string(r.Diagnosis.Category))
			if r.Delay > 0 {
				detail = mutedStyle.Render(fmt.Sprintf(" (waited %s)", r.Delay.Round(100*time.Millisecond)))
			}
		}
		fmt.Fprintf(b, "  #%d %s %s%s\n", r.Sequence, r.Model, status, detail)
	}
}

func renderDiagnosis(w io.Writer, d domain.ErrorDiagnosis) {
	sev, ok := severityStyles[d.Severity]
	if !ok {
		sev = mutedStyle
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Diagnosis"))
	fmt.Fprintf(&b, "\n  category:  %s\n", d.Category)
	fmt.Fprintf(&b, "  severity:  %s\n", sev.Render(string(d.Severity)))
	fmt.Fprintf(&b, "  retryable: %t\n", d.Retryable)
	fmt.Fprintf(&b, "  pattern:   %s\n", d.Pattern)
	if d.RawMessage != "" {
		fmt.Fprintf(&b, "  message:   %s\n", mutedStyle.Render(d.RawMessage))
	}
	if len(d.Remediation) > 0 {
		b.WriteString(titleStyle.Render("What to try"))
		b.WriteString("\n")
		for i, step := range d.Remediation {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
		}
	}
	fmt.Fprintln(w, panelStyle.Render(strings.TrimRight(b.String(), "\n")))
}

func renderModels(w io.Writer, models []domain.ModelInfo) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Models"))
	b.WriteString("\n")
	for _, m := range models {
		fmt.Fprintf(&b, "  %s %-14s %s\n", m.Icon, m.ID, mutedStyle.Render(m.Description))
	}
	fmt.Fprintln(w, panelStyle.Render(strings.TrimRight(b.String(), "\n")))
}

func renderProbe(w io.Writer, baseURL string, models []string) {
	var b strings.Builder
	b.WriteString(okStyle.Render("✓ Connected"))
	fmt.Fprintf(&b, " to %s, %d model(s) available\n", baseURL, len(models))
	for _, id := range models {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	fmt.Fprintln(w, panelStyle.Render(strings.TrimRight(b.String(), "\n")))
}
