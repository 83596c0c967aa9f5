/*
Package auth provides API key authentication for the riskctl HTTP API.

Keys come from the server.auth section of the configuration:

	server:
	  auth:
	    enabled: true
	    api_keys:
	      - name: ci-pipeline
	        key: "rk-0b6f..."
	      - name: dashboard
	        key: "rk-91c2..."
	        disabled: true

Clients send a key in one of two headers, checked in this order:

	Authorization: Bearer rk-0b6f...
	X-API-Key: rk-0b6f...

Wrap handlers with Middleware and read the caller inside them:

	v := auth.NewValidator(cfg.Server.Auth.APIKeys)
	mux.Handle("POST /api/evaluate", auth.Middleware(v, logger)(handler))

	name, ok := auth.ClientName(r.Context())

Key values are never logged; only the configured client name is.
*/
package auth
