package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on riskctl spans.
const (
	AttrSystemID        = attribute.Key("riskctl.system.id")
	AttrModelRef        = attribute.Key("riskctl.model.ref")
	AttrModelVersion    = attribute.Key("riskctl.model.version")
	AttrOldModelRef     = attribute.Key("riskctl.diff.old_ref")
	AttrNewModelRef     = attribute.Key("riskctl.diff.new_ref")
	AttrDomains         = attribute.Key("riskctl.domains.activated")
	AttrControls        = attribute.Key("riskctl.controls.count")
	AttrMissingAnswers  = attribute.Key("riskctl.questions.missing")
	AttrControlsAdded   = attribute.Key("riskctl.diff.controls_added")
	AttrControlsRemoved = attribute.Key("riskctl.diff.controls_removed")
	AttrCacheHit        = attribute.Key("riskctl.model.cache_hit")
	AttrSystems         = attribute.Key("riskctl.portfolio.systems")
)

// SetModelAttributes records the model a span worked against.
func SetModelAttributes(span trace.Span, ref, version string) {
	span.SetAttributes(AttrModelRef.String(ref), AttrModelVersion.String(version))
}

// SetResultAttributes records the size of an evaluation result.
func SetResultAttributes(span trace.Span, domains []string, controls, missing int) {
	span.SetAttributes(
		AttrDomains.StringSlice(domains),
		AttrControls.Int(controls),
		AttrMissingAnswers.Int(missing),
	)
}

// SetDiffAttributes records the control delta of a comparison.
func SetDiffAttributes(span trace.Span, added, removed int) {
	span.SetAttributes(AttrControlsAdded.Int(added), AttrControlsRemoved.Int(removed))
}
