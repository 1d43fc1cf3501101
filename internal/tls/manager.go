package tls

import (
	"crypto/tls"
	"fmt"
	"os"

	"telecom-relay/internal/config"
	"telecom-relay/internal/util"

	"golang.org/x/crypto/acme/autocert"
)

// Manager resolves the server certificate. Resolution order: autocert
// when a host is configured, then static cert/key files, then a
// generated self-signed certificate for development.
type Manager struct {
	cfg      config.TLSConfig
	autoCert *autocert.Manager
}

func NewManager(cfg config.TLSConfig) *Manager {
	manager := &Manager{cfg: cfg}

	if cfg.Enabled && cfg.AutocertHost != "" {
		manager.setupAutoCert()
	}

	return manager
}

func (m *Manager) setupAutoCert() {
	if err := os.MkdirAll(m.cfg.CacheDir, 0700); err != nil {
		util.Warn("Could not create autocert directory", util.ErrorField(err))
		return
	}

	m.autoCert = &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(m.cfg.AutocertHost),
		Cache:      autocert.DirCache(m.cfg.CacheDir),
	}

	util.Info("AutoCert configured",
		util.String("host", m.cfg.AutocertHost),
		util.String("cache_dir", m.cfg.CacheDir))
}

func (m *Manager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if m.autoCert != nil {
		if cert, err := m.autoCert.GetCertificate(hello); err == nil {
			return cert, nil
		}
	}

	if m.cfg.CertFile != "" && m.cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(m.cfg.CertFile, m.cfg.KeyFile)
		if err == nil {
			return &cert, nil
		}
	}

	return m.generateSelfSignedCert()
}

func (m *Manager) generateSelfSignedCert() (*tls.Certificate, error) {
	generator := NewDevCertGenerator(m.cfg.CacheDir)
	hosts := []string{
		"localhost",
		"127.0.0.1",
		"::1",
	}
	if m.cfg.AutocertHost != "" {
		hosts = append([]string{m.cfg.AutocertHost}, hosts...)
	}

	cert, err := generator.GenerateCert(hosts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate self-signed certificate: %v", err)
	}

	util.Info("Generated self-signed certificate", util.Any("hosts", hosts))
	return &cert, nil
}

func (m *Manager) GetTLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: m.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
		MinVersion:     tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		},
	}
}

func (m *Manager) GetAutocertManager() *autocert.Manager {
	return m.autoCert
}
