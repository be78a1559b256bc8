package collect

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"strings"

	"github.com/sqanar/urlguard/internal/features"
	"github.com/sqanar/urlguard/internal/logging"
)

// TLSCollector opens a TLS handshake against host:443 and reads the peer
// certificate's validity window and issuer. Any connection, handshake or
// parse failure yields an unknown sub-record, never an error.
type TLSCollector struct {
	cfg    Config
	logger logging.Logger

	// addr overrides the dialed host:port in tests (httptest TLS servers
	// listen on loopback, not 443).
	addr string
}

func NewTLSCollector(cfg Config, logger logging.Logger) *TLSCollector {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TLSCollector{
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "tls-collector"}),
	}
}

// Collect reads the certificate presented for host. The validity span is
// not_after − not_before in whole days.
func (c *TLSCollector) Collect(ctx context.Context, host string) features.TLSFeatures {
	addr := c.addr
	if addr == "" {
		addr = net.JoinHostPort(host, "443")
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: c.cfg.TLSTimeout},
		Config: &tls.Config{
			ServerName: host,
			// The collector inspects posture, it does not authenticate the
			// peer; self-signed and expired certs are still signal.
			InsecureSkipVerify: true,
		},
	}

	dialCtx := ctx
	if c.cfg.TLSTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.TLSTimeout)
		defer cancel()
	}

	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		c.logger.Debug("tls dial failed",
			logging.Field{Key: "host", Value: host},
			logging.Field{Key: "error", Value: err.Error()})
		return features.TLSFeatures{}
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return features.TLSFeatures{}
	}
	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return features.TLSFeatures{}
	}

	leaf := certs[0]
	return features.TLSFeatures{
		CertTotalDays: features.Int(validitySpanDays(leaf)),
		CertIssuer:    features.String(issuerName(leaf)),
	}
}

func validitySpanDays(cert *x509.Certificate) int {
	return int(cert.NotAfter.Sub(cert.NotBefore).Hours() / 24)
}

// issuerName prefers the issuer's organization fields, falling back to the
// common name for certs that carry no organization.
func issuerName(cert *x509.Certificate) string {
	if len(cert.Issuer.Organization) > 0 {
		return strings.Join(cert.Issuer.Organization, " ")
	}
	return cert.Issuer.CommonName
}
