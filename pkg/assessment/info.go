package assessment

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/riskctl/pkg/engine"
	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/model"
	"mercator-hq/riskctl/pkg/watch"
)

// ModelInfo describes a model for editors: its questions, domain
// descriptions and trigger rules.
type ModelInfo struct {
	ModelRef           string                      `json:"modelDir"`
	ModelVersion       string                      `json:"modelVersion"`
	BaseQuestions      []model.Question            `json:"baseQuestions"`
	BaseDescription    string                      `json:"baseDescription,omitempty"`
	DomainQuestions    map[string][]model.Question `json:"domainQuestions"`
	DomainDescriptions map[string]string           `json:"domainDescriptions"`
	Triggers           []model.TriggerRule         `json:"triggers"`
	Domains            []string                    `json:"domains"`
	Controls           int                         `json:"controls"`
}

// ModelInfo loads the model at ref and describes it.
func (s *Service) ModelInfo(ctx context.Context, ref string) (*ModelInfo, error) {
	m, err := s.Model(ctx, ref)
	if err != nil {
		return nil, err
	}
	info := &ModelInfo{
		ModelRef:           m.Ref,
		ModelVersion:       m.Version,
		BaseQuestions:      nonNil(m.BaseQuestions),
		BaseDescription:    m.BaseDescription,
		DomainQuestions:    make(map[string][]model.Question, len(m.DomainQuestions)),
		DomainDescriptions: make(map[string]string, len(m.DomainDescriptions)),
		Triggers:           nonNil(m.TriggerRules),
		Domains:            m.Domains(),
		Controls:           len(m.Catalog),
	}
	for d, qs := range m.DomainQuestions {
		info.DomainQuestions[d] = nonNil(qs)
	}
	for d, desc := range m.DomainDescriptions {
		info.DomainDescriptions[d] = desc
	}
	return info, nil
}

// Validate reports authoring problems in the model at ref. When f is non-nil
// the facts are checked against the model as well. Warnings never block
// evaluation; an error means the model could not be loaded at all.
func (s *Service) Validate(ctx context.Context, ref string, f *facts.Facts) ([]model.Warning, error) {
	if s.sources == nil {
		return nil, fmt.Errorf("%w: no model sources configured", model.ErrModelLoad)
	}
	src, err := s.sources.Resolve(ref)
	if err != nil {
		return nil, err
	}
	r, err := src.Open(ctx)
	if err != nil {
		return nil, &model.LoadError{Ref: src.String(), Cause: err}
	}
	m, err := s.loader.Read(src.String(), r)
	if err != nil {
		return nil, err
	}

	warnings := model.Validate(r, m)
	if f != nil {
		activated := engine.ActivateDomains(*f, m.TriggerRules)
		warnings = append(warnings, model.ValidateFacts(m, *f, activated)...)
	}
	for _, w := range warnings {
		s.logger.DebugContext(ctx, "validation warning", "subject", w.Subject, "path", w.Path, "message", w.Message)
	}
	return warnings, nil
}

// WatchModels invalidates the model cache whenever a YAML file under cfg.Path
// changes, until ctx is cancelled.
func (s *Service) WatchModels(ctx context.Context, cfg watch.Config) error {
	w, err := watch.New(cfg, s.logger)
	if err != nil {
		return err
	}
	err = w.Run(ctx, func(paths []string) {
		s.Invalidate()
		s.metrics.RecordModelReload()
		s.logger.Info("model files changed, cache invalidated", "paths", paths)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
