package assessment

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/riskctl/pkg/engine"
	"mercator-hq/riskctl/pkg/telemetry/logging"
	"mercator-hq/riskctl/pkg/telemetry/tracing"
)

// PortfolioRow summarises one system of a portfolio run.
type PortfolioRow struct {
	ID               string   `json:"id"`
	DerivedControls  int      `json:"derivedControls"`
	MissingAnswers   int      `json:"missingAnswers"`
	ActivatedDomains int      `json:"activatedDomains"`
	Domains          []string `json:"domains"`
}

// SkippedSystem is a portfolio entry whose facts could not be loaded.
type SkippedSystem struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Portfolio is the outcome of evaluating every system in the workspace
// against one model.
type Portfolio struct {
	ModelRef     string          `json:"modelDir"`
	ModelVersion string          `json:"modelVersion"`
	Rows         []PortfolioRow  `json:"rows"`
	Skipped      []SkippedSystem `json:"skipped,omitempty"`
}

// Portfolio evaluates every workspace system against the model at ref, at
// most Options.Concurrency at a time. Rows follow the sorted system list.
// Systems whose facts cannot be read are skipped and reported. A model load
// failure fails the whole run.
func (s *Service) Portfolio(ctx context.Context, ref string) (*Portfolio, error) {
	if s.workspace == nil {
		return nil, ErrNoWorkspace
	}
	ctx, span := s.tracer.Start(ctx, "assessment.portfolio")
	start := time.Now()

	m, err := s.Model(ctx, ref)
	if err != nil {
		tracing.End(span, err)
		return nil, err
	}
	tracing.SetModelAttributes(span, m.Ref, m.Version)

	ids := s.workspace.List()
	rows := make([]*PortfolioRow, len(ids))
	skipped := make([]*SkippedSystem, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sys, err := s.workspace.Get(id)
			if err != nil {
				s.logger.WarnContext(logging.WithSystemID(gctx, id), "skipping system", "error", err)
				skipped[i] = &SkippedSystem{ID: id, Error: err.Error()}
				return nil
			}
			res := engine.Evaluate(sys.Facts, m)
			rows[i] = &PortfolioRow{
				ID:               id,
				DerivedControls:  len(res.DerivedControls),
				MissingAnswers:   len(res.MissingQuestions()),
				ActivatedDomains: len(res.ActivatedDomains),
				Domains:          res.ActivatedDomains,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		tracing.End(span, err)
		return nil, err
	}

	out := &Portfolio{ModelRef: m.Ref, ModelVersion: m.Version, Rows: make([]PortfolioRow, 0, len(ids))}
	for i := range ids {
		if rows[i] != nil {
			out.Rows = append(out.Rows, *rows[i])
		}
		if skipped[i] != nil {
			out.Skipped = append(out.Skipped, *skipped[i])
		}
	}

	duration := time.Since(start)
	s.metrics.RecordPortfolio(len(out.Rows), duration)
	span.SetAttributes(tracing.AttrSystems.Int(len(out.Rows)))
	tracing.End(span, nil)
	s.logger.InfoContext(ctx, "portfolio evaluated",
		"model", m.Ref,
		"systems", len(out.Rows),
		"skipped", len(out.Skipped),
		"duration", duration,
	)
	return out, nil
}
