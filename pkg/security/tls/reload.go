package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/riskctl/pkg/watch"
)

// ErrNoCertificate is returned by GetCertificate before the first
// successful Load.
var ErrNoCertificate = errors.New("no certificate loaded")

// CertificateReloader serves a certificate pair and reloads it when either
// file changes.
type CertificateReloader struct {
	certFile string
	keyFile  string
	debounce time.Duration
	logger   *slog.Logger

	mu   sync.RWMutex
	cert *tls.Certificate
}

// NewCertificateReloader creates a reloader for the given pair. Call Load
// before serving.
func NewCertificateReloader(certFile, keyFile string, logger *slog.Logger) *CertificateReloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CertificateReloader{
		certFile: certFile,
		keyFile:  keyFile,
		debounce: 500 * time.Millisecond,
		logger:   logger.With("component", "tls"),
	}
}

// Load reads and validates the pair. On failure the previously loaded
// certificate stays in use.
func (r *CertificateReloader) Load() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}
	if err := ValidateCertificate(&cert); err != nil {
		return err
	}

	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()

	r.logCertificateInfo(&cert)
	return nil
}

// Run watches both files and reloads the pair after each burst of changes
// until ctx is cancelled.
func (r *CertificateReloader) Run(ctx context.Context) error {
	var watchers []*watch.Watcher
	for _, path := range []string{r.certFile, r.keyFile} {
		w, err := watch.New(watch.Config{Path: path, Debounce: r.debounce}, r.logger)
		if err != nil {
			for _, prev := range watchers {
				_ = prev.Close()
			}
			return err
		}
		watchers = append(watchers, w)
	}

	var mu sync.Mutex
	reload := func([]string) {
		mu.Lock()
		defer mu.Unlock()
		if err := r.Load(); err != nil {
			r.logger.Error("failed to reload certificate",
				"error", err,
				"cert_file", r.certFile,
				"key_file", r.keyFile,
			)
			return
		}
		r.logger.Info("certificate reloaded", "cert_file", r.certFile)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range watchers {
		g.Go(func() error { return w.Run(gctx, reload) })
	}
	return g.Wait()
}

// GetCertificate implements tls.Config.GetCertificate.
func (r *CertificateReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cert == nil {
		return nil, ErrNoCertificate
	}
	return r.cert, nil
}

func (r *CertificateReloader) logCertificateInfo(cert *tls.Certificate) {
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return
	}

	days, warning := CheckCertificateExpiration(leaf)
	if warning != "" {
		r.logger.Warn("certificate expiring soon",
			"subject", leaf.Subject.CommonName,
			"expires_in_days", days,
			"expires_at", leaf.NotAfter.Format(time.RFC3339),
		)
		return
	}
	r.logger.Info("certificate loaded",
		"subject", leaf.Subject.CommonName,
		"issuer", leaf.Issuer.CommonName,
		"expires_in_days", days,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
	)
}
