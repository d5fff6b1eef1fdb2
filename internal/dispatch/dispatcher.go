// Package dispatch runs image generation requests against a provider with
// retries, backoff and model fallback.
//
// A Dispatcher belongs to one session. It owns that session's attempt log and
// counters; nothing is shared between dispatchers.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/fluxgen/internal/core/domain"
	"github.com/vietddude/fluxgen/internal/diagnose"
	"github.com/vietddude/fluxgen/internal/metrics"
)

// Generator is the image generation capability. Implementations return a
// human-readable error on failure.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Image, error)
}

// Config holds the retry policy constants.
type Config struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	FallbackModels []string
	HistoryLimit   int
}

// DefaultConfig: 3 attempts, 2s base delay, flux fallbacks, 50 records.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		FallbackModels: []string{
			string(domain.ModelFluxSchnell),
			string(domain.ModelFluxKreaDev),
			string(domain.ModelFluxPro),
		},
		HistoryLimit: 50,
	}
}

type Option func(*Dispatcher)

// WithSleeper replaces the backoff wait, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(d *Dispatcher) { d.sleep = s }
}

// WithJitter replaces the jitter source.
func WithJitter(j JitterFunc) Option {
	return func(d *Dispatcher) { d.backoff.Jitter = j }
}

// WithClassifier uses c instead of the default rule table.
func WithClassifier(c *diagnose.Classifier) Option {
	return func(d *Dispatcher) { d.classifier = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// Dispatcher runs dispatches for one session.
type Dispatcher struct {
	cfg        Config
	classifier *diagnose.Classifier
	backoff    Backoff
	sleep      Sleeper
	now        func() time.Time
	log        *slog.Logger

	mu      sync.Mutex
	gen     Generator
	stats   domain.SessionStats
	history *attemptLog
}

// New creates a dispatcher. gen may be nil; dispatches then fail with
// client_not_ready until SetGenerator is called.
func New(gen Generator, cfg Config, opts ...Option) *Dispatcher {
	def := DefaultConfig()
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay < 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.HistoryLimit < 1 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	cfg.FallbackModels = append([]string(nil), cfg.FallbackModels...)

	d := &Dispatcher{
		cfg:        cfg,
		gen:        gen,
		classifier: diagnose.Default(),
		backoff:    Backoff{BaseDelay: cfg.BaseDelay, Jitter: UniformJitter},
		sleep:      SleepContext,
		now:        time.Now,
		log:        slog.Default(),
		stats:      domain.SessionStats{ByCategory: make(map[domain.Category]int)},
		history:    newAttemptLog(cfg.HistoryLimit),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Config returns the policy constants.
func (d *Dispatcher) Config() Config {
	cfg := d.cfg
	cfg.FallbackModels = append([]string(nil), d.cfg.FallbackModels...)
	return cfg
}

// SetGenerator swaps the generation capability, e.g. after new credentials.
func (d *Dispatcher) SetGenerator(gen Generator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen = gen
}

// Ready reports whether a generator is configured.
func (d *Dispatcher) Ready() bool {
	return d.generator() != nil
}

func (d *Dispatcher) generator() Generator {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

// Dispatch runs req to a terminal outcome. It never panics and never
// returns an error: every failure is a *domain.Failure.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.GenerationRequest) domain.Outcome {
	gen := d.generator()
	if gen == nil {
		diag := diagnose.ForCategory(
			domain.CategoryClientNotReady,
			domain.ErrClientNotReady.Error(),
			req.Params(),
		)
		return d.reject(diag)
	}
	if err := req.Validate(); err != nil {
		diag := diagnose.ForCategory(
			domain.CategoryInvalidParameters,
			err.Error(),
			req.Params(),
			"Fix the request: "+err.Error(),
		)
		return d.reject(diag)
	}

	current := req
	tried := map[string]bool{current.Model: true}
	history := make([]domain.AttemptRecord, 0, d.cfg.MaxAttempts)
	var last domain.ErrorDiagnosis

	for attempt := 0; attempt < d.cfg.MaxAttempts; attempt++ {
		start := d.now()
		images, err := d.invoke(ctx, gen, current)
		metrics.AttemptLatency.WithLabelValues(metrics.ModelLabel(current.Model)).Observe(d.now().Sub(start).Seconds())

		if err == nil {
			metrics.AttemptsTotal.WithLabelValues(metrics.ModelLabel(current.Model), "success").Inc()
			rec := d.appendRecord(domain.AttemptRecord{
				Timestamp: start,
				Model:     current.Model,
				Success:   true,
			})
			history = append(history, rec)
			d.finish(true, attempt+1)
			return &domain.Success{
				Images:   images,
				Attempts: attempt + 1,
				Model:    current.Model,
				History:  history,
			}
		}

		diag := d.classifier.ClassifyError(err, attemptContext(attempt, current))
		last = diag
		metrics.AttemptsTotal.WithLabelValues(metrics.ModelLabel(current.Model), "failure").Inc()
		metrics.ErrorsTotal.WithLabelValues(string(diag.Category)).Inc()

		decision := d.Decide(attempt, diag, current, tried)
		d.log.Warn("Generation attempt failed",
			"attempt", attempt+1,
			"model", current.Model,
			"category", diag.Category,
			"pattern", diag.Pattern,
			"action", decision.Action.String(),
			"error", diag.RawMessage,
		)

		rec := d.appendRecord(domain.AttemptRecord{
			Timestamp: start,
			Model:     current.Model,
			Diagnosis: &diag,
			Delay:     decision.Delay,
		})
		history = append(history, rec)
		d.countCategory(diag.Category)

		if decision.Action == ActionAbort {
			d.finish(false, attempt+1)
			return &domain.Failure{Diagnosis: diag, Attempts: attempt + 1, History: history}
		}

		if decision.Action == ActionFallback {
			metrics.FallbacksTotal.WithLabelValues(metrics.ModelLabel(current.Model), metrics.ModelLabel(decision.Request.Model)).Inc()
			d.log.Info("Switching to fallback model",
				"from", current.Model, "to", decision.Request.Model)
		}
		metrics.BackoffSeconds.WithLabelValues(string(diag.Category)).Observe(decision.Delay.Seconds())
		d.log.Debug("Backing off before retry",
			"attempt", attempt+1, "delay", decision.Delay, "action", decision.Action.String())

		if err := d.sleep(ctx, decision.Delay); err != nil {
			d.log.Warn("Dispatch abandoned during backoff", "attempt", attempt+1, "error", err)
			d.finish(false, attempt+1)
			return &domain.Failure{Diagnosis: diag, Attempts: attempt + 1, History: history}
		}

		current = decision.Request
		tried[current.Model] = true
	}

	// Decide aborts on the last attempt, so this is not reached in practice.
	d.finish(false, len(history))
	return &domain.Failure{Diagnosis: last, Attempts: len(history), History: history}
}

// invoke calls the generator, turning panics and empty results into errors.
func (d *Dispatcher) invoke(
	ctx context.Context,
	gen Generator,
	req domain.GenerationRequest,
) (images []domain.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			images = nil
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()

	images, err = gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, errors.New("unexpected provider error: response contained no images")
	}
	return images, nil
}

// reject fails a dispatch before any attempt is made.
func (d *Dispatcher) reject(diag domain.ErrorDiagnosis) domain.Outcome {
	metrics.ErrorsTotal.WithLabelValues(string(diag.Category)).Inc()
	d.log.Warn("Dispatch rejected", "category", diag.Category, "error", diag.RawMessage)

	d.countCategory(diag.Category)
	d.finish(false, 0)
	return &domain.Failure{Diagnosis: diag, Attempts: 0, History: []domain.AttemptRecord{}}
}

func (d *Dispatcher) appendRecord(r domain.AttemptRecord) domain.AttemptRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.history.add(r)
}

func (d *Dispatcher) countCategory(c domain.Category) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.ByCategory[c]++
}

func (d *Dispatcher) finish(success bool, attempts int) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	metrics.DispatchesTotal.WithLabelValues(outcome).Inc()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.Total++
	if success {
		d.stats.Succeeded++
	} else {
		d.stats.Failed++
	}
	if attempts > 1 {
		d.stats.Retried += attempts - 1
	}
}

// Stats returns a copy of the session counters.
func (d *Dispatcher) Stats() domain.SessionStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.stats
	out.ByCategory = make(map[domain.Category]int, len(d.stats.ByCategory))
	for k, v := range d.stats.ByCategory {
		out.ByCategory[k] = v
	}
	return out
}

// RestoreStats replaces the counters, used when a session is restored.
func (d *Dispatcher) RestoreStats(s domain.SessionStats) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats = s
	byCategory := make(map[domain.Category]int, len(s.ByCategory))
	for k, v := range s.ByCategory {
		byCategory[k] = v
	}
	d.stats.ByCategory = byCategory
}

// ResetStats clears the counters and the attempt log.
func (d *Dispatcher) ResetStats() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats = domain.SessionStats{ByCategory: make(map[domain.Category]int)}
	d.history = newAttemptLog(d.cfg.HistoryLimit)
}

// History returns the session attempt log, oldest first.
func (d *Dispatcher) History() []domain.AttemptRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.history.snapshot()
}

func attemptContext(attempt int, req domain.GenerationRequest) map[string]any {
	ctx := req.Params()
	ctx["attempt"] = attempt + 1
	return ctx
}
