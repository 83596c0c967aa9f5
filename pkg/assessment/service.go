package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mercator-hq/riskctl/pkg/history"
	"mercator-hq/riskctl/pkg/model"
	"mercator-hq/riskctl/pkg/telemetry/metrics"
	"mercator-hq/riskctl/pkg/telemetry/tracing"
	"mercator-hq/riskctl/pkg/workspace"
)

// DefaultConcurrency bounds portfolio evaluation when Options.Concurrency is
// unset.
const DefaultConcurrency = 4

// SourceResolver turns a model reference into a source. model.Resolver
// implements it.
type SourceResolver interface {
	Resolve(ref string) (model.Source, error)
}

// Options configures a Service. Only Sources is required; nil telemetry
// components are no-ops and a nil History disables recording.
type Options struct {
	Sources   SourceResolver
	Loader    *model.Loader
	Workspace *workspace.Store
	History   history.Store
	Metrics   *metrics.Collector
	Tracer    *tracing.Tracer
	Logger    *slog.Logger

	// Concurrency bounds the number of systems evaluated at once by
	// Portfolio.
	Concurrency int

	// Now returns the evaluation timestamp recorded in history.
	Now func() time.Time
}

// Service evaluates facts against cached models.
type Service struct {
	sources   SourceResolver
	loader    *model.Loader
	workspace *workspace.Store
	history   history.Store
	metrics   *metrics.Collector
	tracer    *tracing.Tracer
	logger    *slog.Logger
	limit     int
	now       func() time.Time

	mu    sync.RWMutex
	cache map[string]*model.Model
	// gen counts invalidations. Loads started under an older generation
	// are not cached.
	gen   uint64
	loads singleflight.Group
}

// New creates a service from opts.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loader := opts.Loader
	if loader == nil {
		loader = model.NewLoader(logger)
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		sources:   opts.Sources,
		loader:    loader,
		workspace: opts.Workspace,
		history:   opts.History,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		logger:    logger.With("component", "assessment"),
		limit:     limit,
		now:       now,
		cache:     make(map[string]*model.Model),
	}
}

// Workspace returns the workspace the service reads systems from, or nil.
func (s *Service) Workspace() *workspace.Store { return s.workspace }

// Model returns the model for ref, loading it on a cache miss. Concurrent
// misses for the same reference share one load, which is not cancelled
// when a waiting caller gives up.
func (s *Service) Model(ctx context.Context, ref string) (*model.Model, error) {
	if s.sources == nil {
		return nil, fmt.Errorf("%w: no model sources configured", model.ErrModelLoad)
	}
	src, err := s.sources.Resolve(ref)
	if err != nil {
		return nil, err
	}
	key := src.String()

	s.mu.RLock()
	m, ok := s.cache[key]
	gen := s.gen
	s.mu.RUnlock()
	s.metrics.RecordModelCache(ok)
	if ok {
		return m, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(fmt.Sprintf("%d/%s", gen, key), func() (any, error) {
		return s.load(loadCtx, src, gen)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Model), nil
	}
}

func (s *Service) load(ctx context.Context, src model.Source, gen uint64) (*model.Model, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.load_model")
	kind := sourceKind(src)
	start := time.Now()

	m, err := s.loader.Load(ctx, src)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordModelLoad(kind, metrics.StatusError, duration)
		s.logger.Warn("model load failed", "ref", src.String(), "error", err)
		tracing.End(span, err)
		return nil, err
	}
	s.metrics.RecordModelLoad(kind, metrics.StatusSuccess, duration)
	tracing.SetModelAttributes(span, m.Ref, m.Version)
	tracing.End(span, nil)

	s.mu.Lock()
	if s.gen == gen {
		s.cache[src.String()] = m
	}
	s.mu.Unlock()

	s.logger.Debug("model loaded",
		"ref", m.Ref,
		"version", m.Version,
		"domains", len(m.DomainQuestions),
		"controls", len(m.Catalog),
		"duration", duration,
	)
	return m, nil
}

// Invalidate drops every cached model.
func (s *Service) Invalidate() {
	s.mu.Lock()
	n := len(s.cache)
	s.cache = make(map[string]*model.Model)
	s.gen++
	s.mu.Unlock()
	s.logger.Debug("model cache invalidated", "dropped", n)
}

// Cached reports how many models are cached.
func (s *Service) Cached() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

func sourceKind(src model.Source) string {
	switch src.(type) {
	case *model.FileSource:
		return "dir"
	case *model.GitSource:
		return "git"
	case *model.MemorySource:
		return "memory"
	default:
		return "other"
	}
}
