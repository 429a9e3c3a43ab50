package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"adscout/internal/core/domain"
	"adscout/internal/core/ports"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollBudget   = 2 * time.Minute
	DefaultCacheTTL     = 10 * time.Minute
)

// Source says where a scrape result came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// Reason explains why a result is degraded. Empty means a clean result.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonInvalidRequest   Reason = "invalid_request"
	ReasonConfigAbsent     Reason = "config_absent"
	ReasonSubmissionFailed Reason = "submission_failed"
	ReasonNoData           Reason = "no_data"
	ReasonPanic            Reason = "panic"

	// Partial results recovered from a run that did not succeed. These are
	// real data and get cached.
	ReasonPartialRemoteFailure Reason = "partial_remote_failure"
	ReasonPartialLocalTimeout  Reason = "partial_local_timeout"
	ReasonPartialStopped       Reason = "partial_stopped"
)

// Outcome is the tagged result of a scrape.
type Outcome struct {
	Result *domain.ScrapeResult
	Source Source
	Reason Reason
}

// Degraded reports whether the result did not come from a clean run.
func (o Outcome) Degraded() bool {
	return o.Reason != ReasonNone
}

// Options configures an Orchestrator. Zero durations take the defaults.
type Options struct {
	// Client drives the actor platform. Nil means no credentials are
	// configured and every scrape returns synthetic data.
	Client       ports.ActorClient
	PollInterval time.Duration
	PollBudget   time.Duration
	CacheTTL     time.Duration
	Logger       *zap.Logger
	Tracer       trace.Tracer
	Now          func() time.Time
}

// Orchestrator coordinates the ad-library scraping workflow. It owns its
// result cache and active-run slot; construct one per process.
type Orchestrator struct {
	client   ports.ActorClient
	cache    *resultCache
	registry *runRegistry
	poller   *poller
	fallback fallbackGenerator
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollBudget <= 0 {
		opts.PollBudget = DefaultPollBudget
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("adscout/internal/service")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := opts.Logger.Named("orchestrator")
	return &Orchestrator{
		client:   opts.Client,
		cache:    newResultCache(opts.CacheTTL, opts.Now),
		registry: &runRegistry{},
		poller: &poller{
			client:   opts.Client,
			interval: opts.PollInterval,
			budget:   opts.PollBudget,
			logger:   logger,
			tracer:   opts.Tracer,
		},
		fallback: fallbackGenerator{now: opts.Now},
		logger:   logger,
		tracer:   opts.Tracer,
		now:      opts.Now,
	}
}

// Scrape returns ads for the requested brand. It never fails: whenever the
// real path cannot produce data it returns a synthetic result of the same
// shape. The returned value may be shared with the cache and must not be
// modified.
func (o *Orchestrator) Scrape(ctx context.Context, req domain.ScrapeRequest) *domain.ScrapeResult {
	return o.Run(ctx, req).Result
}

// Run is Scrape with the path taken exposed.
func (o *Orchestrator) Run(ctx context.Context, req domain.ScrapeRequest) (out Outcome) {
	ctx, span := o.tracer.Start(ctx, "scrape", trace.WithAttributes(
		attribute.String("brand", req.BrandName),
		attribute.Int("target_count", req.TargetCount),
	))
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("scrape panicked, serving fallback",
				zap.String("brand", req.BrandName),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			out = o.degrade(req, ReasonPanic)
		}
		span.SetAttributes(
			attribute.String("source", string(out.Source)),
			attribute.String("reason", string(out.Reason)),
			attribute.Int("ads", out.Result.TotalCount),
		)
		span.End()
		o.logger.Info("scrape finished",
			zap.String("brand", req.BrandName),
			zap.String("source", string(out.Source)),
			zap.String("reason", string(out.Reason)),
			zap.Int("ads", out.Result.TotalCount),
			zap.Duration("duration", time.Since(started)),
		)
	}()

	return o.run(ctx, req)
}

func (o *Orchestrator) run(ctx context.Context, req domain.ScrapeRequest) Outcome {
	if strings.TrimSpace(req.BrandName) == "" || req.EffectiveCount() == 0 {
		return o.degrade(req, ReasonInvalidRequest)
	}

	// Step 1: no credentials means permanent fallback mode
	if o.client == nil {
		return o.degrade(req, ReasonConfigAbsent)
	}

	// Step 2: cache
	if cached, ok := o.cache.Get(req.BrandName); ok {
		o.logger.Debug("cache hit", zap.String("brand", req.BrandName))
		return Outcome{Result: cached, Source: SourceCache}
	}

	// Step 3: submit
	count := req.EffectiveCount()
	run, err := o.client.StartRun(ctx, ports.RunInput{SearchURL: buildSearchURL(req), Count: count})
	if err != nil {
		o.logger.Warn("actor run submission failed", zap.String("brand", req.BrandName), zap.Error(err))
		return o.degrade(req, ReasonSubmissionFailed)
	}
	log := o.logger.With(zap.String("run_id", run.RunID), zap.String("brand", req.BrandName))
	log.Info("actor run started", zap.String("dataset_id", run.DatasetID), zap.Int("count", count))

	// Step 4: track the run so Stop can reach it
	stop := o.registry.register(run.RunID)
	defer o.registry.release(run.RunID)

	// Step 5: poll
	polled := o.poller.await(ctx, run, count, stop)
	if len(polled.items) == 0 {
		log.Warn("run produced no usable items", zap.String("resolution", string(polled.resolution)))
		return o.degrade(req, ReasonNoData)
	}

	// Step 6: normalize and cache
	ads := normalizeItems(polled.items, req)
	result := &domain.ScrapeResult{
		Ads:        ads,
		TotalCount: len(ads),
		ScrapedAt:  o.now().UTC().Format(time.RFC3339),
		BrandName:  req.BrandName,
	}
	o.cache.Set(req.BrandName, result)
	log.Info("run normalized", zap.Int("ads", len(ads)), zap.String("resolution", string(polled.resolution)))

	return Outcome{Result: result, Source: SourceRemote, Reason: partialReason(polled.resolution)}
}

func partialReason(r resolution) Reason {
	switch r {
	case resolvedRemoteFailed:
		return ReasonPartialRemoteFailure
	case resolvedLocalTimeout:
		return ReasonPartialLocalTimeout
	case resolvedStopped:
		return ReasonPartialStopped
	default:
		return ReasonNone
	}
}

// degrade builds a synthetic result. Fallback results are never cached.
func (o *Orchestrator) degrade(req domain.ScrapeRequest, reason Reason) Outcome {
	o.logger.Info("serving fallback ads", zap.String("brand", req.BrandName), zap.String("reason", string(reason)))
	return Outcome{Result: o.fallback.generate(req), Source: SourceFallback, Reason: reason}
}

// ClearCache drops every cached result so the next scrape goes remote.
func (o *Orchestrator) ClearCache() {
	n := o.cache.Len()
	o.cache.Clear()
	o.logger.Info("cache cleared", zap.Int("entries", n))
}

// AbortActiveRun stops whichever run currently holds the active slot. The
// slot is process-wide, so the run may belong to another caller.
func (o *Orchestrator) AbortActiveRun(ctx context.Context) domain.AbortResult {
	active, ok := o.registry.active()
	if !ok {
		return domain.AbortResult{Aborted: false}
	}

	log := o.logger.With(zap.String("run_id", active.runID))
	if o.client != nil {
		if err := o.client.AbortRun(ctx, active.runID); err != nil {
			log.Warn("remote abort failed", zap.Error(err))
		}
	}
	active.stop()
	log.Info("active run aborted")
	return domain.AbortResult{Aborted: true}
}

// String renders an outcome for logs and CLI output.
func (o Outcome) String() string {
	if o.Reason == ReasonNone {
		return string(o.Source)
	}
	return fmt.Sprintf("%s (%s)", o.Source, o.Reason)
}
