// Package assessment runs evaluations with I/O around the pure engine.
//
// A Service resolves model references to cached models, loads systems from
// the workspace, records outcomes in the history store and reports metrics,
// spans and logs for every operation. The engine itself stays free of I/O.
//
//	svc := assessment.New(assessment.Options{
//	    Sources:   model.Resolver{DefaultDir: "model"},
//	    Workspace: ws,
//	    History:   store,
//	    Metrics:   tel.Metrics,
//	    Tracer:    tel.Tracer,
//	    Logger:    tel.Logger,
//	})
//	ev, err := svc.EvaluateSystem(ctx, "billing", "")
//	cmp, err := svc.Diff(ctx, ev.Facts, "git:v1.2.0", "model")
//
// Loaded models are cached by reference. Invalidate drops the cache, and
// WatchModels does so whenever the default model directory changes on disk.
package assessment
