// Package health provides liveness and readiness probes for the riskctl
// API server.
//
// Readiness checks are registered by name; the server registers one that
// loads the default knowledge model, one for the workspace root and, when
// history is enabled, one that pings the history store:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("workspace", health.DirCheck(cfg.Workspace.Root))
//	checker.RegisterCheck("history", health.PingCheck(store))
//	health.Register(mux, checker, "/health", "/ready", health.NewVersionInfo(version, commit, date))
package health
