// Package watch reports debounced file changes under a knowledge model
// directory or for a single facts file.
//
//	w, err := watch.New(watch.Config{Path: "model", Debounce: 250 * time.Millisecond}, logger)
//	go w.Run(ctx, func(paths []string) { cache.Invalidate() })
//
// Hidden files and directories are ignored, as are chmod-only events.
package watch
