package polytlai

import (
	"context"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ZaguanLabs/polytlai/logger"
)

const (
	// DefaultAnalysisTimeout bounds the judge call.
	DefaultAnalysisTimeout = 45 * time.Second
	// DefaultMaxConcurrent caps simultaneous provider calls per run.
	DefaultMaxConcurrent = 5
	// AnalysisQuality is the fixed quality assigned to the judge entry.
	AnalysisQuality = 100
)

// QualityFunc assigns the display quality of a successful translation. The
// value is cosmetic and never drives behaviour.
type QualityFunc func(id ProviderID, text string) int

// RandomQuality returns a pseudo-random value in [90, 100).
func RandomQuality(ProviderID, string) int {
	return 90 + rand.IntN(10)
}

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// Orchestrator fans a request out to the selected providers, collects the
// results into a run's sink and runs the judge when two or more succeed.
type Orchestrator struct {
	registry        *Registry
	client          *http.Client
	rest            *resty.Client
	defaultTimeout  time.Duration
	analysisTimeout time.Duration
	priority        []ProviderID
	maxConcurrent   int
	quality         QualityFunc
	cache           TranslationCache
	throttle        *Throttle
	retry           *RetryConfig
	sourceLang      string
	targetLang      string

	mu      sync.Mutex
	current *Run
}

// Option is a functional option for configuring the Orchestrator.
type Option func(*Orchestrator)

// WithHTTPClient sets the client used for every provider call.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Orchestrator) {
		if client != nil {
			o.client = client
		}
	}
}

// WithDefaultTimeout sets the deadline for adapters without their own.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.defaultTimeout = d
		}
	}
}

// WithAnalysisTimeout sets the judge call deadline.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.analysisTimeout = d
		}
	}
}

// WithAnalysisPriority sets the order in which credentials are tried for the
// judge call.
func WithAnalysisPriority(ids []ProviderID) Option {
	return func(o *Orchestrator) {
		if len(ids) > 0 {
			o.priority = dedupeProviders(ids)
		}
	}
}

// WithMaxConcurrent caps simultaneous provider calls. Zero or less removes
// the cap.
func WithMaxConcurrent(n int) Option {
	return func(o *Orchestrator) {
		o.maxConcurrent = n
	}
}

// WithQualityFunc replaces the cosmetic quality generator.
func WithQualityFunc(fn QualityFunc) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.quality = fn
		}
	}
}

// WithCache serves repeated translations without an HTTP call.
func WithCache(cache TranslationCache) Option {
	return func(o *Orchestrator) {
		o.cache = cache
	}
}

// WithRetry enables retries of rate-limited, server and network failures
// within each call's deadline.
func WithRetry(cfg RetryConfig) Option {
	return func(o *Orchestrator) {
		o.retry = &cfg
	}
}

// WithRateLimits throttles outbound calls per provider.
func WithRateLimits(limits map[ProviderID]RateLimitConfig) Option {
	return func(o *Orchestrator) {
		if len(limits) > 0 {
			o.throttle = NewThrottle(limits)
		}
	}
}

// WithLanguages sets the languages used when a request leaves them blank.
func WithLanguages(source, target string) Option {
	return func(o *Orchestrator) {
		if source != "" {
			o.sourceLang = NormalizeLocale(source)
		}
		if target != "" {
			o.targetLang = NormalizeLocale(target)
		}
	}
}

// NewOrchestrator creates an Orchestrator over the given adapter registry.
func NewOrchestrator(registry *Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:        registry,
		client:          &http.Client{},
		defaultTimeout:  DefaultTimeout,
		analysisTimeout: DefaultAnalysisTimeout,
		priority:        DefaultAnalysisPriority(),
		maxConcurrent:   DefaultMaxConcurrent,
		quality:         RandomQuality,
		sourceLang:      DefaultSourceLang,
		targetLang:      DefaultTargetLang,
	}

	for _, opt := range opts {
		opt(o)
	}
	o.rest = resty.NewWithClient(o.client)

	return o
}

// Registry returns the adapter registry.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Current returns the most recently started run, or nil.
func (o *Orchestrator) Current() *Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Start validates req and launches a run. Validation failures return an
// error before any network call is made. Starting a run cancels the previous
// one; its outstanding calls settle as canceled in the old run's sink.
func (o *Orchestrator) Start(ctx context.Context, req TranslationRequest, creds Credentials) (*Run, error) {
	req, err := o.validate(req, creds)
	if err != nil {
		logger.Warnf("translation rejected: %v", err)
		return nil, err
	}

	run := newRun(ctx, req)

	o.mu.Lock()
	prev := o.current
	o.current = run
	o.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}

	logger.Infof("run %s: %d provider(s), %s -> %s", run.ID, len(req.Providers), req.SourceLang, req.TargetLang)

	run.setState(StateRunning)
	for _, id := range req.Providers {
		run.publish(ResultEntry{Key: string(id), Name: o.registry.Name(id), Status: StatusPending})
	}

	go o.execute(run, creds.Clone())
	return run, nil
}

// Translate starts a run and waits for it to settle.
func (o *Orchestrator) Translate(ctx context.Context, req TranslationRequest, creds Credentials) (*Outcome, error) {
	run, err := o.Start(ctx, req, creds)
	if err != nil {
		return nil, err
	}
	return run.Wait(ctx)
}

func (o *Orchestrator) validate(req TranslationRequest, creds Credentials) (TranslationRequest, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req, ErrEmptyText
	}

	req.Providers = dedupeProviders(req.Providers)
	if len(req.Providers) == 0 {
		return req, ErrNoProviders
	}
	for _, id := range req.Providers {
		if _, err := o.registry.Lookup(id); err != nil {
			return req, err
		}
	}

	var missing []ProviderID
	for _, id := range req.Providers {
		if _, ok := creds.Get(id); !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return req, &MissingCredentialsError{Providers: missing}
	}

	if req.SourceLang == "" {
		req.SourceLang = o.sourceLang
	}
	if req.TargetLang == "" {
		req.TargetLang = o.targetLang
	}
	req.SourceLang = NormalizeLocale(req.SourceLang)
	req.TargetLang = NormalizeLocale(req.TargetLang)
	return req, nil
}

func (o *Orchestrator) execute(run *Run, creds Credentials) {
	ctx := run.ctx

	var g errgroup.Group
	if o.maxConcurrent > 0 {
		g.SetLimit(o.maxConcurrent)
	}
	for _, id := range run.Request.Providers {
		credential, _ := creds.Get(id)
		g.Go(func() error {
			run.publish(o.translateOne(ctx, run.Request, id, credential))
			return nil
		})
	}
	_ = g.Wait()

	successes := run.sink.Successes()
	if len(successes) >= 2 && ctx.Err() == nil {
		run.setState(StateAggregating)
		run.publish(ResultEntry{Key: AnalysisKey, Name: AnalysisName, Status: StatusPending, Analysis: true})
		run.publish(o.analyze(ctx, run.Request, creds, successes))
	}

	out := run.finish()
	logger.Infof("run %s settled: %d succeeded, %d failed in %s",
		run.ID, out.Succeeded(), out.Failed(), out.Elapsed.Round(time.Millisecond))
}

// translateOne resolves a single provider into a final entry. It never
// returns a pending entry.
func (o *Orchestrator) translateOne(ctx context.Context, req TranslationRequest, id ProviderID, credential string) ResultEntry {
	adapter, err := o.registry.Lookup(id)
	if err != nil {
		return failureEntry(string(id), string(id), false, err)
	}

	key := CacheKey(HashText(req.Text), req.SourceLang, req.TargetLang, id, adapter.Model)
	if o.cache != nil {
		if text, ok := o.cache.Get(key); ok {
			logger.Debugf("[%s] cache hit", id)
			return ResultEntry{
				Key:       string(id),
				Name:      adapter.Name,
				Status:    StatusSuccess,
				Text:      text,
				Quality:   o.quality(id, text),
				Cached:    true,
				UpdatedAt: time.Now(),
			}
		}
	}

	text, elapsed, err := o.call(ctx, callSpec{
		adapter:    adapter,
		credential: credential,
		prompt:     TranslationPrompt(req.Text, req.SourceLang, req.TargetLang),
		timeout:    adapter.EffectiveTimeout(o.defaultTimeout),
		purpose:    "translate",
	})
	if err != nil {
		logger.Warnf("[%s] translation failed: %v", id, err)
		entry := failureEntry(string(id), adapter.Name, false, err)
		entry.Elapsed = elapsed
		return entry
	}

	if o.cache != nil {
		if err := o.cache.Set(key, text); err != nil {
			logger.Warnf("[%s] cache write failed: %v", id, err)
		}
	}

	logger.Debugf("[%s] translated in %s", id, elapsed.Round(time.Millisecond))
	return ResultEntry{
		Key:       string(id),
		Name:      adapter.Name,
		Status:    StatusSuccess,
		Text:      text,
		Quality:   o.quality(id, text),
		Elapsed:   elapsed,
		UpdatedAt: time.Now(),
	}
}

