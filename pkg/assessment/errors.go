package assessment

import "errors"

var (
	// ErrNoWorkspace is returned by operations that read systems when the
	// service was built without a workspace.
	ErrNoWorkspace = errors.New("no workspace configured")

	// ErrHistoryDisabled is returned by History when no store is configured.
	ErrHistoryDisabled = errors.New("evaluation history is disabled")
)
