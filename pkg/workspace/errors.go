package workspace

import "errors"

var (
	// ErrSystemNotFound indicates the id is not listed in the portfolio.
	ErrSystemNotFound = errors.New("system not found in portfolio")

	// ErrSystemExists indicates the id is already listed in the portfolio.
	ErrSystemExists = errors.New("system already in portfolio")

	// ErrInvalidSystem indicates a facts file that is not a YAML mapping.
	ErrInvalidSystem = errors.New("invalid system file")
)
