/*
Package tls serves the gateway listener over HTTPS.

# Server Configuration

NewServerConfig turns the server.tls section into a crypto/tls
configuration. The certificate is not loaded into the configuration
directly; it is served by a CertificateReloader so a renewed pair is picked
up without restarting the gateway:

	certs := tls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval)
	if err := certs.Load(); err != nil {
		return err
	}
	go certs.Run(ctx)

	tlsConfig, err := tls.NewServerConfig(cfg, certs)
	if err != nil {
		return err
	}
	ln = tls.NewListener(ln, tlsConfig)

# Client Certificates

When client_ca_file is set, callers must present a certificate signed by
one of its CAs ("require") or may present one ("verify_if_given"). Client
certificates are a transport check only; pipelines still run their own
auth provider.

# Expiry

A certificate that is not yet valid or already expired is rejected at load
time. A certificate that expires within 30 days is loaded and logged at
warn level on every reload.
*/
package tls
