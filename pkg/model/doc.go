// Package model loads and validates versioned knowledge models.
//
// A model is a directory (or a directory inside a git revision) with a fixed
// layout:
//
//	model.manifest.yaml              optional, carries model_version
//	questions/base.questions.yaml    base question catalog
//	questions/<domain>.questions.yaml
//	rules/triggers.rules.yaml        domain activation rules
//	rules/controls.rules.yaml        control derivation rules
//	controls/controls.catalog.yaml   control metadata
//	controls/controls.links.yaml     optional evidence references
//
// Sources abstract where the documents come from:
//
//	loader := model.NewLoader(logger)
//	m, err := loader.Load(ctx, model.NewFileSource("model"))
//	old, err := loader.Load(ctx, model.NewGitSource(".", "v1.2.0", "model"))
//
// Failures to read a required document are reported as *LoadError and match
// ErrModelLoad with errors.Is.
package model
