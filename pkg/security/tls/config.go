package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"aicentral-hq/gateway/pkg/config"
)

// NewServerConfig builds the listener configuration for cfg. Certificates
// are served by certs.
func NewServerConfig(cfg config.TLSConfig, certs *CertificateReloader) (*tls.Config, error) {
	if certs == nil {
		return nil, errors.New("certificate reloader is required")
	}

	minVersion, err := parseVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}

	// #nosec G402 - MinVersion is 1.2 or 1.3
	tlsConfig := &tls.Config{
		MinVersion:     minVersion,
		GetCertificate: certs.GetCertificate,
	}

	if cfg.ClientCAFile != "" {
		pool, err := loadCertPool(cfg.ClientCAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth, err = parseClientAuth(cfg.ClientAuth)
		if err != nil {
			return nil, err
		}
	}

	return tlsConfig, nil
}

func parseVersion(v string) (uint16, error) {
	switch v {
	case "1.2", "":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q", v)
	}
}

func parseClientAuth(mode string) (tls.ClientAuthType, error) {
	switch mode {
	case "require", "":
		return tls.RequireAndVerifyClientCert, nil
	case "verify_if_given":
		return tls.VerifyClientCertIfGiven, nil
	default:
		return tls.NoClientCert, fmt.Errorf("unsupported client auth mode %q", mode)
	}
}

func loadCertPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}
