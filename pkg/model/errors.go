package model

import (
	"errors"
	"fmt"
)

var (
	// ErrModelLoad marks every failure to read or parse a required model
	// document. Use errors.Is to detect it regardless of the concrete cause.
	ErrModelLoad = errors.New("model load failed")

	// ErrInvalidRef indicates a model reference that cannot be parsed.
	ErrInvalidRef = errors.New("invalid model reference")

	// ErrNoRepository indicates a git reference was used without a
	// configured repository.
	ErrNoRepository = errors.New("no git repository configured")
)

// LoadError reports a required model document that could not be read or
// parsed. Evaluation and diff never return partial results when one occurs.
type LoadError struct {
	// Ref is the model reference being loaded.
	Ref string
	// Document is the document path relative to the model root.
	Document string
	Cause    error
}

// Error returns the error message.
func (e *LoadError) Error() string {
	if e.Document == "" {
		return fmt.Sprintf("load model %s: %v", e.Ref, e.Cause)
	}
	return fmt.Sprintf("load model %s: %s: %v", e.Ref, e.Document, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrModelLoad.
func (e *LoadError) Is(target error) bool {
	return target == ErrModelLoad
}
