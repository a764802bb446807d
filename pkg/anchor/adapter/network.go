package adapter

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// IsNetworkError reports whether err means the transport under a session
// broke: EOF, reset or refused connections, broken pipes and other socket
// errors. Timeouts are not considered a lost connection.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return !opErr.Timeout()
	}
	return false
}

// TLSConfig builds a client TLS configuration from the SSL fields of cfg.
// It returns nil when SSL is disabled.
func TLSConfig(cfg ConnectionConfig, serverName string) (*tls.Config, error) {
	if !cfg.SSL {
		return nil, nil
	}

	tlsCfg := &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: !cfg.RejectUnauthorized(),
		MinVersion:         tls.VersionTLS12,
	}

	if cfg.SSLRootCert != "" {
		pem, err := os.ReadFile(cfg.SSLRootCert)
		if err != nil {
			return nil, NewConfigurationError("", "sslRootCert", fmt.Sprintf("cannot read CA file: %v", err))
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, NewConfigurationError("", "sslRootCert", "no certificates found in CA file")
		}
		tlsCfg.RootCAs = pool
	}

	if cfg.SSLCert != "" || cfg.SSLKey != "" {
		if cfg.SSLCert == "" || cfg.SSLKey == "" {
			return nil, NewConfigurationError("", "sslCert", "sslCert and sslKey must be set together")
		}
		cert, err := tls.LoadX509KeyPair(cfg.SSLCert, cfg.SSLKey)
		if err != nil {
			return nil, NewConfigurationError("", "sslCert", fmt.Sprintf("cannot load client certificate: %v", err))
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	return tlsCfg, nil
}
