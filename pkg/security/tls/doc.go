/*
Package tls serves the riskctl HTTP API over TLS 1.2 or 1.3.

	server:
	  tls:
	    enabled: true
	    cert_file: /etc/riskctl/tls/server.crt
	    key_file: /etc/riskctl/tls/server.key
	    min_version: "1.3"
	    reload_certs: true

With reload_certs set, the certificate pair is reloaded whenever either file
changes on disk, so renewed certificates are picked up without a restart:

	reloader := tls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, logger)
	if err := reloader.Load(); err != nil {
		return err
	}
	go reloader.Run(ctx)

	tlsConfig, err := tls.ServerConfig(cfg, reloader)
*/
package tls
