package assessment

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/riskctl/pkg/engine"
	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/history"
	"mercator-hq/riskctl/pkg/model"
	"mercator-hq/riskctl/pkg/telemetry/logging"
	"mercator-hq/riskctl/pkg/telemetry/metrics"
	"mercator-hq/riskctl/pkg/telemetry/tracing"
)

// Evaluation is an evaluation result together with the model it was
// computed against.
type Evaluation struct {
	SystemID     string          `json:"systemId,omitempty"`
	ModelRef     string          `json:"modelDir"`
	ModelVersion string          `json:"modelVersion"`
	Result       engine.Result   `json:"result"`
	Warnings     []model.Warning `json:"warnings,omitempty"`
	// RecordID is the history record written for this evaluation, if any.
	RecordID string `json:"recordId,omitempty"`

	Facts facts.Facts `json:"-"`
}

// ModelSide identifies one side of a comparison.
type ModelSide struct {
	ModelRef     string `json:"modelDir"`
	ModelVersion string `json:"modelVersion"`
}

// Comparison is a diff between two models for one facts document.
type Comparison struct {
	Old ModelSide `json:"old"`
	New ModelSide `json:"new"`
	engine.DiffResult
}

// Evaluate evaluates f against the model at ref. Facts warnings are attached
// but never block the result. Nothing is recorded in history.
func (s *Service) Evaluate(ctx context.Context, f facts.Facts, ref string) (*Evaluation, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.evaluate")
	start := time.Now()

	m, err := s.Model(ctx, ref)
	if err != nil {
		s.metrics.RecordEvaluation(metrics.StatusError, time.Since(start), 0, 0)
		tracing.End(span, err)
		return nil, err
	}
	tracing.SetModelAttributes(span, m.Ref, m.Version)

	result := engine.Evaluate(f, m)
	missing := len(result.MissingQuestions())
	s.metrics.RecordEvaluation(metrics.StatusSuccess, time.Since(start), len(result.DerivedControls), missing)
	tracing.SetResultAttributes(span, result.ActivatedDomains, len(result.DerivedControls), missing)
	tracing.End(span, nil)

	s.logger.DebugContext(ctx, "facts evaluated",
		"model", m.Ref,
		"model_version", m.Version,
		"domains", result.ActivatedDomains,
		"controls", len(result.DerivedControls),
		"missing", missing,
	)

	return &Evaluation{
		SystemID:     logging.GetSystemID(ctx),
		ModelRef:     m.Ref,
		ModelVersion: m.Version,
		Result:       result,
		Warnings:     model.ValidateFacts(m, f, result.ActivatedDomains),
		Facts:        f,
	}, nil
}

// EvaluateSystem loads system id from the workspace, evaluates it and
// records the outcome in history when a store is configured. A failed
// history write is logged and does not fail the evaluation.
func (s *Service) EvaluateSystem(ctx context.Context, id, ref string) (*Evaluation, error) {
	if s.workspace == nil {
		return nil, ErrNoWorkspace
	}
	sys, err := s.workspace.Get(id)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithSystemID(ctx, sys.ID)
	ev, err := s.Evaluate(ctx, sys.Facts, ref)
	if err != nil {
		return nil, err
	}
	ev.SystemID = sys.ID
	if rec, err := s.Record(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "failed to record evaluation", "error", err)
	} else if rec != nil {
		ev.RecordID = rec.ID
	}
	return ev, nil
}

// Record stores ev in history and returns the record. With no history store
// configured, or no system id on ev, it returns nil and no error.
func (s *Service) Record(ctx context.Context, ev *Evaluation) (*history.Record, error) {
	if s.history == nil || ev.SystemID == "" {
		return nil, nil
	}
	rec, err := history.NewRecord(ev.SystemID, ev.ModelRef, ev.ModelVersion, ev.Result, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.history.Store(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// History returns stored evaluations matching q.
func (s *Service) History(ctx context.Context, q *history.Query) ([]*history.Record, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.Query(ctx, q)
}

// Diff evaluates f against the models at oldRef and newRef and compares the
// outcomes. Both models load concurrently; if either fails to load no
// partial result is returned.
func (s *Service) Diff(ctx context.Context, f facts.Facts, oldRef, newRef string) (*Comparison, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.diff")
	span.SetAttributes(tracing.AttrOldModelRef.String(oldRef), tracing.AttrNewModelRef.String(newRef))
	start := time.Now()

	var oldModel, newModel *model.Model
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.Model(gctx, oldRef)
		oldModel = m
		return err
	})
	g.Go(func() error {
		m, err := s.Model(gctx, newRef)
		newModel = m
		return err
	})
	if err := g.Wait(); err != nil {
		s.metrics.RecordDiff(metrics.StatusError, time.Since(start), 0, 0)
		tracing.End(span, err)
		return nil, err
	}

	d := engine.Diff(f, oldModel, newModel)
	s.metrics.RecordDiff(metrics.StatusSuccess, time.Since(start), len(d.Controls.Added), len(d.Controls.Removed))
	tracing.SetDiffAttributes(span, len(d.Controls.Added), len(d.Controls.Removed))
	tracing.End(span, nil)

	s.logger.DebugContext(ctx, "models compared",
		"old", oldModel.Ref,
		"new", newModel.Ref,
		"added", len(d.Controls.Added),
		"removed", len(d.Controls.Removed),
		"newly_missing", len(d.Questions.NewlyMissing),
	)

	return &Comparison{
		Old:        ModelSide{ModelRef: oldModel.Ref, ModelVersion: oldModel.Version},
		New:        ModelSide{ModelRef: newModel.Ref, ModelVersion: newModel.Version},
		DiffResult: d,
	}, nil
}
