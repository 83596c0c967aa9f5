// Package server exposes the assessment service over HTTP.
//
// Routes:
//
//	POST /api/evaluate              {facts, modelDir?}
//	POST /api/diff                  {facts, oldModelDir, newModelDir}
//	POST /api/validate              {facts?, modelDir?}
//	GET  /api/model                 ?modelDir=
//	GET  /api/systems               list portfolio ids
//	POST /api/systems               {id?, path?} create a system
//	GET  /api/systems/{id}          facts of one system
//	PUT  /api/systems/{id}          {facts} replace facts
//	POST /api/systems/{id}/evaluate evaluate and record in history
//	POST /api/systems/add           {path} register an existing file
//	POST /api/systems/remove        {id} drop from the portfolio
//	GET  /api/portfolio             ?modelDir=
//	GET  /api/history               ?system=&model=&since=&until=&limit=&offset=&format=
//
// Health probes, /version and the Prometheus endpoint are mounted at the
// paths configured under telemetry. Errors are returned as {"error": "..."}.
//
// When server.auth is enabled every /api route requires an API key, sent as
// a bearer token or in X-API-Key; probes and metrics stay open. With
// server.rate_limit enabled each client, named by key or by address, is
// throttled and over-limit requests get 429 with Retry-After. When
// server.tls is enabled the listener serves TLS only.
package server
